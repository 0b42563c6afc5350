package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bondradar/pkg/fingerprint"
	"bondradar/pkg/model"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

var testNow = time.Date(2025, 8, 29, 9, 30, 0, 0, time.Local)

func sampleRecord() model.ArticleRecord {
	return model.ArticleRecord{
		Title:       "10年期国债收益率展望",
		Institution: "某证券固收研究部",
		PublishDate: "2025-08-29",
		URL:         "https://mp.weixin.qq.com/s/abc123",
		ReadCount:   1234,
		Category:    model.FixedIncome,
	}
}

func TestResolvePathStable(t *testing.T) {
	s := newTestStore(t, testNow)
	rec := sampleRecord()

	p1, err := s.ResolvePath(rec.URL, rec.Institution, rec.PublishDate, rec.Title, rec.Category)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	p2, _ := s.ResolvePath(rec.URL, rec.Institution, rec.PublishDate, rec.Title, rec.Category)
	if p1 != p2 {
		t.Errorf("ResolvePath not stable: %q != %q", p1, p2)
	}

	if !strings.Contains(p1, filepath.Join("20250829", "固收类")) {
		t.Errorf("path missing date/category layout: %q", p1)
	}
	if !strings.HasSuffix(p1, ".txt") {
		t.Errorf("path missing .txt suffix: %q", p1)
	}
}

func TestResolvePathSanitizesComponents(t *testing.T) {
	s := newTestStore(t, testNow)
	p, err := s.ResolvePath("https://example.com/a", `机构/名称`, "2025/08/29 10:00", `标题: "引用"?`, model.Other)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	name := filepath.Base(p)
	for _, ch := range `<>:"/\|?*` {
		if strings.ContainsRune(name, ch) {
			t.Errorf("filename contains illegal char %q: %q", ch, name)
		}
	}
	if !strings.Contains(name, "2025-08-29") {
		t.Errorf("date not normalized in filename: %q", name)
	}
}

func TestResolvePathTruncatesLongTitle(t *testing.T) {
	s := newTestStore(t, testNow)
	long := strings.Repeat("长", 300)
	p, err := s.ResolvePath("https://example.com/a", "机构", "2025-08-29", long, model.Other)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if n := len([]rune(filepath.Base(p))); n > 150 {
		t.Errorf("filename too long: %d runes", n)
	}
}

func TestSaveThenLookupExactBytes(t *testing.T) {
	s := newTestStore(t, testNow)
	rec := sampleRecord()
	body := "债市周报正文。\n第二段：收益率曲线走陡。\n"

	if _, err := s.Save(rec, body); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok := s.Lookup(rec.URL, testNow.Format("20060102"))
	if !ok {
		t.Fatal("Lookup() miss after Save")
	}
	if got != body {
		t.Errorf("Lookup() = %q, want exact bytes %q", got, body)
	}
}

func TestSaveIsIdempotentOverwrite(t *testing.T) {
	s := newTestStore(t, testNow)
	rec := sampleRecord()

	p1, err := s.Save(rec, "第一版正文，内容足够长以便观察覆盖行为。")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	p2, err := s.Save(rec, "第二版正文。")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if p1 != p2 {
		t.Errorf("re-save produced a different path: %q vs %q", p1, p2)
	}

	got, ok := s.Lookup(rec.URL, "")
	if !ok || got != "第二版正文。" {
		t.Errorf("Lookup() = %q, %v; want second version", got, ok)
	}

	_, total := s.Statistics("")
	if total != 1 {
		t.Errorf("total cached files = %d after re-save, want 1", total)
	}
}

func TestLookupFallsBackToFilenameScan(t *testing.T) {
	s := newTestStore(t, testNow)
	rec := sampleRecord()
	if _, err := s.Save(rec, "可扫描正文内容。"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// 丢弃索引，模拟旧版缓存目录
	s.index = map[string]string{}

	if _, ok := s.Lookup(rec.URL, testNow.Format("20060102")); !ok {
		t.Error("bucket-scoped filename scan should find the file")
	}
	if _, ok := s.Lookup(rec.URL, ""); !ok {
		t.Error("history-wide filename scan should find the file")
	}
	if _, ok := s.Lookup("https://example.com/missing", ""); ok {
		t.Error("unknown URL should miss")
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return testNow }
	rec := sampleRecord()
	if _, err := s.Save(rec, "正文"); err != nil {
		t.Fatal(err)
	}

	s2, err := NewStore(root)
	if err != nil {
		t.Fatal(err)
	}
	s2.now = s.now
	if _, ok := s2.index[fingerprint.CacheKey(rec.URL)]; !ok {
		t.Error("index entry not persisted across reopen")
	}
}

func TestListTodayReconstructsRecords(t *testing.T) {
	s := newTestStore(t, testNow)
	rec := sampleRecord()
	if _, err := s.Save(rec, "正文内容"); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListToday()
	if err != nil {
		t.Fatalf("ListToday() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListToday() len = %d, want 1", len(records))
	}
	got := records[0]
	if got.Title != rec.Title || got.Institution != rec.Institution ||
		got.URL != rec.URL || got.ReadCount != rec.ReadCount {
		t.Errorf("ListToday() record = %+v", got)
	}
	if got.Category != model.FixedIncome {
		t.Errorf("category from folder = %v, want 固收类", got.Category)
	}
	if got.Content != "正文内容" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestListTodayDefaultsMissingHeader(t *testing.T) {
	s := newTestStore(t, testNow)
	dir := filepath.Join(s.root, testNow.Format("20060102"), model.Other.Label())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// 只有正文、没有元数据头的旧文件
	if err := os.WriteFile(filepath.Join(dir, "legacy_0000000000.txt"), []byte("裸正文"), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListToday()
	if err != nil {
		t.Fatalf("ListToday() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListToday() len = %d, want 1", len(records))
	}
	got := records[0]
	if got.Institution != "未知机构" {
		t.Errorf("Institution default = %q", got.Institution)
	}
	if got.PublishDate != testNow.Format(time.DateOnly) {
		t.Errorf("PublishDate default = %q", got.PublishDate)
	}
	if got.URL != "" || got.ReadCount != 0 {
		t.Errorf("URL/ReadCount defaults = %q/%d", got.URL, got.ReadCount)
	}
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t, testNow)
	recs := []model.ArticleRecord{
		{Title: "a", Institution: "i1", PublishDate: "2025-08-29", URL: "https://e.com/1", Category: model.FixedIncome},
		{Title: "b", Institution: "i2", PublishDate: "2025-08-29", URL: "https://e.com/2", Category: model.FixedIncome},
		{Title: "c", Institution: "i3", PublishDate: "2025-08-29", URL: "https://e.com/3", Category: model.Macro},
	}
	for _, rec := range recs {
		if _, err := s.Save(rec, "正文"); err != nil {
			t.Fatal(err)
		}
	}

	counts, total := s.Statistics("")
	if counts[model.FixedIncome] != 2 || counts[model.Macro] != 1 || counts[model.Equity] != 0 {
		t.Errorf("counts = %v", counts)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestPruneRemovesOldBuckets(t *testing.T) {
	s := newTestStore(t, testNow)

	mkBucketFile := func(bucket string) {
		dir := filepath.Join(s.root, bucket, model.Other.Label())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "x_0000000000.txt"), []byte("旧正文"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mkBucketFile("20250810") // 19 天前，应删除
	mkBucketFile("20250828") // 1 天前，应保留
	// 非日期目录不应被触碰
	if err := os.MkdirAll(filepath.Join(s.root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := s.Prune(7); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.root, "20250810")); !os.IsNotExist(err) {
		t.Error("old bucket should be removed")
	}
	if _, err := os.Stat(filepath.Join(s.root, "20250828")); err != nil {
		t.Error("recent bucket should survive")
	}
	if _, err := os.Stat(filepath.Join(s.root, "notes")); err != nil {
		t.Error("non-date folder should be left untouched")
	}
}

func TestPruneDropsStaleIndexEntries(t *testing.T) {
	s := newTestStore(t, testNow)
	s.index["deadbeef00"] = "20250810/其他/x_deadbeef00.txt"
	dir := filepath.Join(s.root, "20250810", "其他")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := s.Prune(7); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if _, ok := s.index["deadbeef00"]; ok {
		t.Error("index entry for pruned bucket should be dropped")
	}
}
