// Package engine 串联去重、分类、缓存与 AI 分析的批处理流水线。
package engine

import (
	"context"
	"time"

	"bondradar/pkg/cache"
	"bondradar/pkg/classify"
	"bondradar/pkg/config"
	"bondradar/pkg/fetch"
	"bondradar/pkg/ledger"
	"bondradar/pkg/logger"
	"bondradar/pkg/model"
	"bondradar/pkg/report"
	"bondradar/pkg/stats"
	"bondradar/pkg/storage"
)

// ArticleAnalyzer 文章分析接口，便于测试替换
type ArticleAnalyzer interface {
	Analyze(ctx context.Context, content, url, institution, date string) model.Analysis
	Validate(analysis model.Analysis) bool
}

// RawArticle 上游爬虫或链接清单提供的原始条目
type RawArticle struct {
	Title       string `json:"title"`
	Institution string `json:"institution"`
	PublishDate string `json:"publish_date"`
	URL         string `json:"url"`
	Digest      string `json:"digest"`
	Hint        string `json:"content_type"`
	Content     string `json:"content"`
	ReadCount   int    `json:"read_count"`
}

// RunResult 一次运行的处理结果
type RunResult struct {
	Succeeded  int
	Failed     int
	Skipped    int
	ReportPath string
	Stats      model.AggregateStats
}

// Engine 批处理引擎。整个流水线单线程串行，文章之间留固定间隔
type Engine struct {
	cfg        *config.Config
	classifier *classify.Classifier
	ledger     *ledger.Ledger
	store      *cache.Store
	fetcher    fetch.Fetcher
	analyzer   ArticleAnalyzer
	archive    *storage.Storage // 可选，未配置时为 nil
	reporter   *report.Generator
	sleep      func(time.Duration)
}

// Deps 引擎依赖
type Deps struct {
	Classifier *classify.Classifier
	Ledger     *ledger.Ledger
	Store      *cache.Store
	Fetcher    fetch.Fetcher
	Analyzer   ArticleAnalyzer
	Archive    *storage.Storage
	Reporter   *report.Generator
}

// New 创建引擎
func New(cfg *config.Config, deps Deps) *Engine {
	return &Engine{
		cfg:        cfg,
		classifier: deps.Classifier,
		ledger:     deps.Ledger,
		store:      deps.Store,
		fetcher:    deps.Fetcher,
		analyzer:   deps.Analyzer,
		archive:    deps.Archive,
		reporter:   deps.Reporter,
		sleep:      time.Sleep,
	}
}

// Run 处理一批原始条目：去重、分类、取正文、缓存、分析、汇总、出报告。
// 单篇失败只记数不中断；全部失败时显式告警并跳过报告
func (e *Engine) Run(ctx context.Context, raws []RawArticle) (*RunResult, error) {
	result := &RunResult{}
	delay := time.Duration(e.cfg.Crawl.DelaySeconds) * time.Second
	bucket := time.Now().Format("20060102")

	logger.Log.Infof("开始处理 %d 篇文章", len(raws))

	// 1. 去重、分类、取正文并落缓存
	var records []model.ArticleRecord
	for i, raw := range raws {
		if i > 0 {
			e.sleep(delay)
		}

		if !e.classifier.IsRelevant(raw.Title, raw.Digest, raw.Hint) {
			logger.Log.Infof("跳过无关文章: %s", raw.Title)
			result.Skipped++
			continue
		}

		if e.ledger.IsProcessed(raw.Title, raw.Institution, raw.PublishDate) {
			logger.Log.Infof("文章已处理，跳过: %s", raw.Title)
			result.Skipped++
			continue
		}

		category := e.classifier.Classify(raw.Title, raw.Institution, raw.Content, raw.Hint)

		content := raw.Content
		if len([]rune(content)) < 100 {
			// 优先查缓存，再抓取
			if cached, ok := e.store.Lookup(raw.URL, bucket); ok {
				content = cached
				logger.Log.Infof("命中缓存: %s", raw.Title)
			} else {
				fetched, title, err := e.fetcher.Fetch(raw.URL)
				if err != nil {
					logger.Log.Errorf("抓取失败 [%s]: %v", raw.URL, err)
					result.Failed++
					continue
				}
				content = fetched
				if raw.Title == "" {
					raw.Title = title
				}
			}
		}

		if len([]rune(content)) < 100 {
			logger.Log.Warnf("文章内容过短或为空: %s", raw.Title)
			result.Failed++
			continue
		}

		rec := model.ArticleRecord{
			Title:       raw.Title,
			Institution: raw.Institution,
			PublishDate: raw.PublishDate,
			URL:         raw.URL,
			Content:     content,
			ReadCount:   raw.ReadCount,
			Category:    category,
		}

		if _, err := e.store.Save(rec, content); err != nil {
			logger.Log.Errorf("缓存文章失败 [%s]: %v", raw.Title, err)
			result.Failed++
			continue
		}
		if err := e.ledger.MarkProcessed(raw.Title, raw.Institution, raw.PublishDate); err != nil {
			logger.Log.Errorf("登记台账失败 [%s]: %v", raw.Title, err)
		}
		records = append(records, rec)
	}

	counts, total := e.store.Statistics(bucket)
	for _, category := range model.Categories {
		logger.Log.Infof("缓存统计 %s: %d 篇", category.Label(), counts[category])
	}
	logger.Log.Infof("今日缓存共 %d 篇", total)

	// 2. 逐篇 AI 分析
	analyses := e.analyzeRecords(ctx, records, result)

	// 3. 汇总统计并生成报告
	result.Stats = stats.Merge(analyses)
	if result.Succeeded == 0 {
		logger.Log.Error("本次运行没有任何文章分析成功，不生成报告")
		return result, nil
	}

	path, err := e.reporter.WriteDaily(result.Stats, analyses)
	if err != nil {
		return result, err
	}
	result.ReportPath = path
	logger.Log.Infof("报告已生成: %s", path)

	// 4. 可选归档
	if e.archive != nil {
		if err := e.archive.SaveRun(result.Stats, analyses); err != nil {
			logger.Log.Errorf("归档分析结果失败: %v", err)
		} else {
			logger.Log.Info("分析结果已归档到数据库")
		}
	}

	// 5. 清理过期缓存
	if err := e.store.Prune(e.cfg.Cache.RetentionDays); err != nil {
		logger.Log.Warnf("清理过期缓存失败: %v", err)
	}

	logger.Log.Infof("处理完成: 成功 %d, 失败 %d, 跳过 %d", result.Succeeded, result.Failed, result.Skipped)
	return result, nil
}

// RunFromCache 重新分析今日缓存中的文章，不触发抓取与去重
func (e *Engine) RunFromCache(ctx context.Context) (*RunResult, error) {
	records, err := e.store.ListToday()
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("从缓存载入 %d 篇今日文章", len(records))

	result := &RunResult{}
	analyses := e.analyzeRecords(ctx, records, result)

	result.Stats = stats.Merge(analyses)
	if result.Succeeded == 0 {
		logger.Log.Error("本次运行没有任何文章分析成功，不生成报告")
		return result, nil
	}

	path, err := e.reporter.WriteDaily(result.Stats, analyses)
	if err != nil {
		return result, err
	}
	result.ReportPath = path
	logger.Log.Infof("报告已生成: %s", path)
	return result, nil
}

func (e *Engine) analyzeRecords(ctx context.Context, records []model.ArticleRecord, result *RunResult) []model.Analysis {
	var analyses []model.Analysis
	for i, rec := range records {
		logger.Log.Infof("分析文章 %d/%d: %s", i+1, len(records), rec.Title)

		analysis := e.analyzer.Analyze(ctx, rec.Content, rec.URL, rec.Institution, rec.PublishDate)
		analysis.ReadCount = rec.ReadCount
		if !e.analyzer.Validate(analysis) {
			logger.Log.Warnf("分析结果无效，已剔除: %s", rec.Title)
			result.Failed++
			continue
		}
		logger.Log.Infof("分析完成 - 10Y态度: %s, 评分: %.1f", analysis.Attitude10Y, analysis.Score)
		analyses = append(analyses, analysis)
		result.Succeeded++
	}
	return analyses
}
