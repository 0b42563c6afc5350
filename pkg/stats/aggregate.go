// Package stats 把一批文章分析结果汇总为报表用的统计快照。
package stats

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"bondradar/pkg/model"
)

// 评分分布的五个固定区间
var scoreBuckets = []string{"9-10分", "7-8分", "5-6分", "3-4分", "1-2分"}

// 收益率方向四分类
const (
	DirectionUp         = "上行"
	DirectionDown       = "下行"
	DirectionSideways   = "震荡"
	DirectionNotCovered = "未涉及"
)

var directions = []string{DirectionUp, DirectionDown, DirectionSideways, DirectionNotCovered}

// 词云参数
const (
	keywordCloudSize = 50
	minKeywordRunes  = 2
)

var cjkRunPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]+`)

var stopWords = map[string]struct{}{
	"的": {}, "了": {}, "在": {}, "是": {}, "和": {}, "与": {}, "或": {},
	"等": {}, "将": {}, "会": {}, "可能": {}, "预计": {}, "认为": {}, "表示": {},
}

// Merge 汇总一批分析结果。纯函数，空输入返回零值统计而非报错
func Merge(analyses []model.Analysis) model.AggregateStats {
	result := model.AggregateStats{
		TotalCount:        len(analyses),
		ScoreDistribution: make(map[string]int, len(scoreBuckets)),
		AttitudeCounts:    make(map[string]map[string]int, 2),
		InstitutionRollup: make(map[string]model.InstitutionStats),
		KeywordCloud:      make(map[string]int),
	}
	for _, bucket := range scoreBuckets {
		result.ScoreDistribution[bucket] = 0
	}
	for _, term := range []string{"10Y", "5Y"} {
		result.AttitudeCounts[term] = make(map[string]int, len(directions))
		for _, direction := range directions {
			result.AttitudeCounts[term][direction] = 0
		}
	}
	if len(analyses) == 0 {
		return result
	}

	scoreSum := 0.0
	scoreCount := 0
	rollup := make(map[string]*institutionAccumulator)

	for _, analysis := range analyses {
		if validScore(analysis.Score) {
			result.ScoreDistribution[scoreBucket(analysis.Score)]++
			scoreSum += analysis.Score
			scoreCount++
		}

		result.AttitudeCounts["10Y"][ClassifyDirection(analysis.Attitude10Y)]++
		result.AttitudeCounts["5Y"][ClassifyDirection(analysis.Attitude5Y)]++

		inst := analysis.Institution
		if inst == "" {
			inst = "未知"
		}
		acc, ok := rollup[inst]
		if !ok {
			acc = &institutionAccumulator{min: 10}
			rollup[inst] = acc
		}
		acc.count++
		acc.sum += analysis.Score
		acc.reads += analysis.ReadCount
		if analysis.Score > acc.max {
			acc.max = analysis.Score
		}
		if analysis.Score < acc.min {
			acc.min = analysis.Score
		}
	}

	if scoreCount > 0 {
		result.AverageScore = round2(scoreSum / float64(scoreCount))
	}
	for inst, acc := range rollup {
		result.InstitutionRollup[inst] = model.InstitutionStats{
			Count:      acc.count,
			AvgScore:   round2(acc.sum / float64(acc.count)),
			MaxScore:   acc.max,
			MinScore:   acc.min,
			TotalReads: acc.reads,
			AvgReads:   acc.reads / acc.count,
		}
	}
	result.KeywordCloud = keywordCloud(analyses)

	return result
}

// ClassifyDirection 用子串启发式把自由文本的方向描述归为四类
func ClassifyDirection(direction string) string {
	if direction == "" {
		return DirectionNotCovered
	}
	direction = strings.ToLower(direction)
	switch {
	case containsAny(direction, "上", "升", "涨", "高"):
		return DirectionUp
	case containsAny(direction, "下", "降", "跌", "低"):
		return DirectionDown
	case containsAny(direction, "震荡", "区间", "横盘", "平稳"):
		return DirectionSideways
	default:
		return DirectionNotCovered
	}
}

type institutionAccumulator struct {
	count int
	sum   float64
	max   float64
	min   float64
	reads int
}

func validScore(score float64) bool {
	return score >= 1 && score <= 10
}

func scoreBucket(score float64) string {
	switch {
	case score >= 9:
		return "9-10分"
	case score >= 7:
		return "7-8分"
	case score >= 5:
		return "5-6分"
	case score >= 3:
		return "3-4分"
	default:
		return "1-2分"
	}
}

// keywordCloud 抽取全部自由文本字段中的汉字串，过滤停用词后取前 50 高频词
func keywordCloud(analyses []model.Analysis) map[string]int {
	freq := make(map[string]int)
	for _, analysis := range analyses {
		for _, field := range []string{
			analysis.Fundamentals, analysis.Liquidity, analysis.Policy,
			analysis.Overall, analysis.Strategy,
		} {
			for _, token := range cjkRunPattern.FindAllString(field, -1) {
				if len([]rune(token)) < minKeywordRunes {
					continue
				}
				if _, stop := stopWords[token]; stop {
					continue
				}
				freq[token]++
			}
		}
	}

	if len(freq) <= keywordCloudSize {
		return freq
	}

	type wordCount struct {
		word  string
		count int
	}
	sorted := make([]wordCount, 0, len(freq))
	for word, count := range freq {
		sorted = append(sorted, wordCount{word, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].word < sorted[j].word
	})

	top := make(map[string]int, keywordCloudSize)
	for _, wc := range sorted[:keywordCloudSize] {
		top[wc.word] = wc.count
	}
	return top
}

func containsAny(text string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
