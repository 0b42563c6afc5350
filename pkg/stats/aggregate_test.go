package stats

import (
	"testing"

	"bondradar/pkg/model"
)

func TestMergeScoreDistribution(t *testing.T) {
	analyses := []model.Analysis{
		{Score: 9.5}, {Score: 7.2}, {Score: 5.0}, {Score: 2.1},
	}
	got := Merge(analyses)

	want := map[string]int{
		"9-10分": 1, "7-8分": 1, "5-6分": 1, "3-4分": 0, "1-2分": 1,
	}
	for bucket, n := range want {
		if got.ScoreDistribution[bucket] != n {
			t.Errorf("ScoreDistribution[%s] = %d, want %d", bucket, got.ScoreDistribution[bucket], n)
		}
	}
	if got.TotalCount != 4 {
		t.Errorf("TotalCount = %d, want 4", got.TotalCount)
	}
	if got.AverageScore != 5.95 {
		t.Errorf("AverageScore = %v, want 5.95", got.AverageScore)
	}
}

func TestMergeInvalidScoresExcludedFromDistribution(t *testing.T) {
	analyses := []model.Analysis{
		{Score: 0},   // 分析失败占位
		{Score: 11},  // 越界
		{Score: 8.0}, // 唯一有效分
	}
	got := Merge(analyses)

	sum := 0
	for _, n := range got.ScoreDistribution {
		sum += n
	}
	if sum != 1 {
		t.Errorf("distribution counts sum = %d, want 1", sum)
	}
	if got.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3 (invalid scores still counted)", got.TotalCount)
	}
	if got.AverageScore != 8.0 {
		t.Errorf("AverageScore = %v, want 8.0 (invalid scores excluded)", got.AverageScore)
	}
}

func TestMergeAttitudeCounts(t *testing.T) {
	analyses := []model.Analysis{
		{Attitude10Y: "看多，收益率上行", Attitude5Y: "文章未涉及"},
		{Attitude10Y: "预计下行至1.6%", Attitude5Y: "区间震荡为主"},
		{Attitude10Y: "", Attitude5Y: "偏低位运行"},
	}
	got := Merge(analyses)

	y10 := got.AttitudeCounts["10Y"]
	if y10[DirectionUp] != 1 || y10[DirectionDown] != 1 || y10[DirectionNotCovered] != 1 {
		t.Errorf("10Y counts = %v", y10)
	}
	y5 := got.AttitudeCounts["5Y"]
	if y5[DirectionNotCovered] != 1 || y5[DirectionSideways] != 1 || y5[DirectionDown] != 1 {
		t.Errorf("5Y counts = %v", y5)
	}
}

func TestClassifyDirection(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"收益率上行压力大", DirectionUp},
		{"趋势向下", DirectionDown},
		{"维持区间震荡", DirectionSideways},
		{"横盘整理", DirectionSideways},
		{"文章未涉及", DirectionNotCovered},
		{"", DirectionNotCovered},
		{"观点中性", DirectionNotCovered},
	}
	for _, tc := range cases {
		if got := ClassifyDirection(tc.text); got != tc.want {
			t.Errorf("ClassifyDirection(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestMergeInstitutionRollup(t *testing.T) {
	analyses := []model.Analysis{
		{Institution: "甲券商", Score: 8, ReadCount: 100},
		{Institution: "甲券商", Score: 6, ReadCount: 301},
		{Institution: "乙基金", Score: 9, ReadCount: 50},
		{Institution: "", Score: 5},
	}
	got := Merge(analyses)

	a := got.InstitutionRollup["甲券商"]
	if a.Count != 2 || a.AvgScore != 7 || a.MaxScore != 8 || a.MinScore != 6 {
		t.Errorf("甲券商 rollup = %+v", a)
	}
	if a.TotalReads != 401 || a.AvgReads != 200 {
		t.Errorf("甲券商 reads = total %d avg %d, want 401/200", a.TotalReads, a.AvgReads)
	}

	b := got.InstitutionRollup["乙基金"]
	if b.Count != 1 || b.MinScore != 9 || b.MaxScore != 9 {
		t.Errorf("乙基金 rollup = %+v", b)
	}

	if _, ok := got.InstitutionRollup["未知"]; !ok {
		t.Error("empty institution should roll up under 未知")
	}
}

func TestMergeRollupAvgRounding(t *testing.T) {
	analyses := []model.Analysis{
		{Institution: "丙银行", Score: 7},
		{Institution: "丙银行", Score: 7},
		{Institution: "丙银行", Score: 8},
	}
	got := Merge(analyses)
	if avg := got.InstitutionRollup["丙银行"].AvgScore; avg != 7.33 {
		t.Errorf("AvgScore = %v, want 7.33", avg)
	}
}

func TestMergeKeywordCloud(t *testing.T) {
	analyses := []model.Analysis{
		{Overall: "流动性，宽松。债市情绪：偏暖", Strategy: "建议：拉长久期，久期"},
		{Overall: "流动性、边际收紧", Fundamentals: "经济数据，走弱，M2增速放缓"},
	}
	got := Merge(analyses)

	// 标点切分出的汉字串按整串计数
	if got.KeywordCloud["流动性"] != 2 {
		t.Errorf("流动性 count = %d, want 2", got.KeywordCloud["流动性"])
	}
	if got.KeywordCloud["久期"] != 1 {
		t.Errorf("久期 count = %d, want 1", got.KeywordCloud["久期"])
	}
	for word := range got.KeywordCloud {
		if len([]rune(word)) < 2 {
			t.Errorf("single-rune token %q should be filtered", word)
		}
	}
}

func TestMergeKeywordCloudStopWords(t *testing.T) {
	got := Merge([]model.Analysis{{Overall: "预计 认为 表示 可能"}})
	for _, stop := range []string{"预计", "认为", "表示", "可能"} {
		if _, ok := got.KeywordCloud[stop]; ok {
			t.Errorf("stop word %q should not appear in cloud", stop)
		}
	}
}

func TestMergeEmptyInput(t *testing.T) {
	got := Merge(nil)

	if got.TotalCount != 0 || got.AverageScore != 0 {
		t.Errorf("TotalCount/AverageScore = %d/%v, want zeros", got.TotalCount, got.AverageScore)
	}
	for _, bucket := range []string{"9-10分", "7-8分", "5-6分", "3-4分", "1-2分"} {
		if n, ok := got.ScoreDistribution[bucket]; !ok || n != 0 {
			t.Errorf("ScoreDistribution[%s] = %d,%v, want present and zero", bucket, n, ok)
		}
	}
	for _, term := range []string{"10Y", "5Y"} {
		for _, direction := range directions {
			if n := got.AttitudeCounts[term][direction]; n != 0 {
				t.Errorf("AttitudeCounts[%s][%s] = %d, want 0", term, direction, n)
			}
		}
	}
	if got.InstitutionRollup == nil || got.KeywordCloud == nil {
		t.Error("maps should be non-nil on empty input")
	}
}
