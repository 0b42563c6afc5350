// Package cache 按日期与类别归档文章正文。
// 文件名嵌入机构、日期、标题与链接指纹，可读性优先；
// 查找以持久化的指纹索引为主，文件名扫描仅作兜底。
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bondradar/pkg/fingerprint"
	"bondradar/pkg/logger"
	"bondradar/pkg/model"
)

const (
	indexFileName    = "cache_index.json"
	componentMaxLen  = 100 // 文件名中机构/标题的最大字符数
	headerDelimiter  = "--------------------------------------------------------------------------------"
	bucketNameLayout = "20060102"
)

// Store 文章缓存
type Store struct {
	root  string
	index map[string]string // 链接指纹 -> 相对 root 的文件路径
	now   func() time.Time
}

// NewStore 打开缓存根目录并载入指纹索引。
// 根目录无法创建是致命错误；索引损坏退化为空索引并告警。
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建缓存根目录失败: %w", err)
	}

	s := &Store{
		root:  root,
		index: make(map[string]string),
		now:   time.Now,
	}

	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("读取缓存索引失败: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.index); err != nil {
			logger.Log.Warnf("缓存索引损坏，已重置为空: %v", err)
			s.index = make(map[string]string)
		}
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, indexFileName)
}

// ResolvePath 计算文章的缓存路径并确保目录存在。
// 相同参数总是得到相同路径，重复保存即覆盖。
func (s *Store) ResolvePath(url, institution, date, title string, category model.Category) (string, error) {
	bucket := s.now().Format(bucketNameLayout)
	dir := filepath.Join(s.root, bucket, category.Label())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建缓存目录失败: %w", err)
	}

	urlHash := fingerprint.CacheKey(url)
	dateStr := normalizeDateComponent(date)
	instClean := sanitizeComponent(institution)
	if instClean == "" {
		instClean = "未知机构"
	}
	titleClean := sanitizeComponent(title)
	if titleClean == "" {
		titleClean = "未知标题"
	}

	filename := fmt.Sprintf("%s_%s_%s_%s.txt", instClean, dateStr, titleClean, urlHash)
	return filepath.Join(dir, filename), nil
}

// Save 写入文章正文（带元数据头）并更新指纹索引。
// 路径由输入确定性推导，重复保存同一逻辑文章是覆盖而非追加。
func (s *Store) Save(rec model.ArticleRecord, content string) (string, error) {
	path, err := s.ResolvePath(rec.URL, rec.Institution, rec.PublishDate, rec.Title, rec.Category)
	if err != nil {
		return "", err
	}

	full := fmt.Sprintf("标题: %s\n机构: %s\n日期: %s\n链接: %s\n阅读数: %d\n%s\n\n%s",
		rec.Title, rec.Institution, rec.PublishDate, rec.URL, rec.ReadCount, headerDelimiter, content)

	if err := os.WriteFile(path, []byte(full), 0o644); err != nil {
		return "", fmt.Errorf("写入缓存文件失败: %w", err)
	}

	rel, err := filepath.Rel(s.root, path)
	if err == nil {
		s.index[fingerprint.CacheKey(rec.URL)] = filepath.ToSlash(rel)
		if err := s.persistIndex(); err != nil {
			logger.Log.Warnf("缓存索引落盘失败: %v", err)
		}
	}
	return path, nil
}

// Lookup 按链接查找缓存正文。
// 优先查指纹索引；未命中时在指定日期桶内扫描文件名，最后全库扫描
func (s *Store) Lookup(url, dateBucket string) (string, bool) {
	urlHash := fingerprint.CacheKey(url)

	if rel, ok := s.index[urlHash]; ok {
		if body, ok := readBody(filepath.Join(s.root, filepath.FromSlash(rel))); ok {
			return body, true
		}
		// 索引指向的文件已被清理，回退到扫描
	}

	if dateBucket != "" {
		if body, ok := s.scanForHash(filepath.Join(s.root, dateBucket), urlHash); ok {
			return body, true
		}
	}
	return s.scanForHash(s.root, urlHash)
}

func (s *Store) scanForHash(searchRoot, urlHash string) (string, bool) {
	var body string
	found := false
	filepath.WalkDir(searchRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || found || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".txt") && strings.Contains(d.Name(), urlHash) {
			if b, ok := readBody(path); ok {
				body = b
				found = true
				return filepath.SkipAll
			}
		}
		return nil
	})
	return body, found
}

// ListToday 读取今日日期桶下全部缓存文件并还原为文章记录。
// 缺失的头字段取占位默认值，单个文件解析问题不影响整批
func (s *Store) ListToday() ([]model.ArticleRecord, error) {
	bucket := s.now().Format(bucketNameLayout)
	today := s.now().Format(time.DateOnly)

	var records []model.ArticleRecord
	for _, category := range model.Categories {
		dir := filepath.Join(s.root, bucket, category.Label())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				logger.Log.Warnf("读取缓存文件失败 [%s]: %v", entry.Name(), err)
				continue
			}
			rec := parseArticleFile(string(data), today)
			rec.Category = category
			records = append(records, rec)
		}
	}
	return records, nil
}

// Statistics 统计某日期桶内各类别的缓存文件数及总数。
// dateBucket 为空时统计今日
func (s *Store) Statistics(dateBucket string) (map[model.Category]int, int) {
	if dateBucket == "" {
		dateBucket = s.now().Format(bucketNameLayout)
	}

	counts := make(map[model.Category]int, len(model.Categories))
	total := 0
	for _, category := range model.Categories {
		dir := filepath.Join(s.root, dateBucket, category.Label())
		entries, err := os.ReadDir(dir)
		if err != nil {
			counts[category] = 0
			continue
		}
		n := 0
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
				n++
			}
		}
		counts[category] = n
		total += n
	}
	return counts, total
}

// Prune 删除超过保留天数的日期桶，非 YYYYMMDD 命名的目录不动
func (s *Store) Prune(daysToKeep int) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("读取缓存根目录失败: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	indexDirty := false

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || len(name) != 8 {
			continue
		}
		if _, err := strconv.Atoi(name); err != nil {
			continue
		}
		bucketDate, err := time.ParseInLocation(bucketNameLayout, name, time.Local)
		if err != nil {
			continue
		}
		if !bucketDate.Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(filepath.Join(s.root, name)); err != nil {
			logger.Log.Warnf("清理缓存目录失败 [%s]: %v", name, err)
			continue
		}
		logger.Log.Infof("已清理缓存目录: %s", name)

		for key, rel := range s.index {
			if strings.HasPrefix(rel, name+"/") {
				delete(s.index, key)
				indexDirty = true
			}
		}
	}

	if indexDirty {
		return s.persistIndex()
	}
	return nil
}

func (s *Store) persistIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.indexPath(), data, 0o644)
}

// readBody 读取缓存文件并剥离元数据头，返回写入时的正文原文
func readBody(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	text := string(data)
	if i := strings.Index(text, headerDelimiter+"\n\n"); i >= 0 {
		return text[i+len(headerDelimiter)+2:], true
	}
	return text, true
}

// parseArticleFile 从带元数据头的缓存文件还原文章记录
func parseArticleFile(text, defaultDate string) model.ArticleRecord {
	rec := model.ArticleRecord{
		Title:       "未知标题",
		Institution: "未知机构",
		PublishDate: defaultDate,
	}

	head := text
	if i := strings.Index(text, headerDelimiter); i >= 0 {
		head = text[:i]
		body := text[i+len(headerDelimiter):]
		rec.Content = strings.TrimPrefix(strings.TrimPrefix(body, "\n"), "\n")
	}

	for _, line := range strings.Split(head, "\n") {
		switch {
		case strings.HasPrefix(line, "标题:"):
			rec.Title = strings.TrimSpace(strings.TrimPrefix(line, "标题:"))
		case strings.HasPrefix(line, "机构:"):
			rec.Institution = strings.TrimSpace(strings.TrimPrefix(line, "机构:"))
		case strings.HasPrefix(line, "日期:"):
			if d := strings.TrimSpace(strings.TrimPrefix(line, "日期:")); d != "" {
				rec.PublishDate = d
			}
		case strings.HasPrefix(line, "链接:"):
			rec.URL = strings.TrimSpace(strings.TrimPrefix(line, "链接:"))
		case strings.HasPrefix(line, "阅读数:"):
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "阅读数:"))); err == nil {
				rec.ReadCount = n
			}
		}
	}
	return rec
}

// sanitizeComponent 去除文件系统非法字符并限制长度
func sanitizeComponent(s string) string {
	const illegal = `<>:"/\|?*`
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegal, r) {
			return '_'
		}
		return r
	}, s)
	runes := []rune(s)
	if len(runes) > componentMaxLen {
		runes = runes[:componentMaxLen]
	}
	return strings.TrimSpace(string(runes))
}

func normalizeDateComponent(date string) string {
	if date == "" {
		return "未知日期"
	}
	d := strings.ReplaceAll(date, "/", "-")
	d = strings.ReplaceAll(d, " ", "_")
	runes := []rune(d)
	if len(runes) > 10 {
		runes = runes[:10]
	}
	return string(runes)
}
