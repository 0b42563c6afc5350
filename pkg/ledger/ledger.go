// Package ledger 记录已处理文章的指纹，实现跨运行的幂等去重。
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bondradar/pkg/fingerprint"
	"bondradar/pkg/logger"
)

// Scope 去重范围
type Scope string

const (
	// ScopeDaily 只抑制当天的重复处理，次日允许重爬
	ScopeDaily Scope = "daily"
	// ScopePermanent 只要存在记录就视为已处理
	ScopePermanent Scope = "permanent"
)

// Entry 单条台账记录
type Entry struct {
	Title         string `json:"title"`
	Institution   string `json:"institution"`
	Date          string `json:"date"`
	ProcessedDate string `json:"processed_date"`
	ProcessedTime string `json:"processed_time"`
}

// Ledger 去重台账。启动时整体载入内存，每次标记整体落盘
type Ledger struct {
	path    string
	scope   Scope
	entries map[string]Entry
	now     func() time.Time
}

// Open 打开（或新建）台账文件。
// 文件损坏不致命：退化为空台账并告警；父目录无法创建则返回错误。
func Open(path string, scope Scope) (*Ledger, error) {
	if scope != ScopeDaily && scope != ScopePermanent {
		scope = ScopeDaily
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建台账目录失败: %w", err)
	}

	l := &Ledger{
		path:    path,
		scope:   scope,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("读取台账文件失败: %w", err)
	}
	if len(data) == 0 {
		return l, nil
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		logger.Log.Warnf("台账文件损坏，已重置为空: %v", err)
		l.entries = make(map[string]Entry)
	}
	return l, nil
}

// IsProcessed 判断文章是否已处理。
// daily 范围下仅当记录的处理日期等于今天才算已处理
func (l *Ledger) IsProcessed(title, institution, date string) bool {
	key := fingerprint.DedupKey(title, institution, date)
	entry, ok := l.entries[key]
	if !ok {
		return false
	}
	if l.scope == ScopePermanent {
		return true
	}
	return entry.ProcessedDate == l.now().Format(time.DateOnly)
}

// MarkProcessed 写入（或覆盖）处理记录并同步落盘
func (l *Ledger) MarkProcessed(title, institution, date string) error {
	key := fingerprint.DedupKey(title, institution, date)
	now := l.now()
	l.entries[key] = Entry{
		Title:         title,
		Institution:   institution,
		Date:          date,
		ProcessedDate: now.Format(time.DateOnly),
		ProcessedTime: now.Format(time.RFC3339),
	}
	return l.persist()
}

// Len 当前台账条目数
func (l *Ledger) Len() int {
	return len(l.entries)
}

// persist 先写临时文件再原子改名，避免写一半的台账
func (l *Ledger) persist() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化台账失败: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时台账文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("写入台账失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("关闭临时台账文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("替换台账文件失败: %w", err)
	}
	return nil
}
