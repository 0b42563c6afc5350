// Package storage 可选的分析结果归档（PostgreSQL）。
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"bondradar/pkg/config"
	"bondradar/pkg/model"
)

type Storage struct {
	db *sql.DB
}

func NewStorage(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id SERIAL PRIMARY KEY,
			run_date DATE NOT NULL,
			total_count INTEGER,
			average_score NUMERIC(4,2),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS article_analyses (
			id SERIAL PRIMARY KEY,
			run_id INTEGER REFERENCES analysis_runs(id),
			institution TEXT,
			pub_date TEXT,
			url TEXT,
			attitude_10y TEXT,
			attitude_5y TEXT,
			overall TEXT,
			strategy TEXT,
			score NUMERIC(4,1),
			read_count INTEGER
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// SaveRun 在一个事务内归档一次运行的统计与逐篇分析
func (s *Storage) SaveRun(aggregate model.AggregateStats, analyses []model.Analysis) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var runID int
	err = tx.QueryRow(`
		INSERT INTO analysis_runs (run_date, total_count, average_score)
		VALUES ($1, $2, $3)
		RETURNING id`,
		time.Now().Format(time.DateOnly), aggregate.TotalCount, aggregate.AverageScore).Scan(&runID)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	for _, analysis := range analyses {
		_, err = tx.Exec(`
			INSERT INTO article_analyses
				(run_id, institution, pub_date, url, attitude_10y, attitude_5y, overall, strategy, score, read_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			runID, analysis.Institution, analysis.Date, analysis.URL,
			analysis.Attitude10Y, analysis.Attitude5Y,
			analysis.Overall, analysis.Strategy, analysis.Score, analysis.ReadCount)
		if err != nil {
			return fmt.Errorf("failed to insert article analysis: %w", err)
		}
	}

	return tx.Commit()
}
