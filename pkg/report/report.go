// Package report 把统计快照渲染为文本日报。
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bondradar/pkg/model"
	"bondradar/pkg/stats"
)

// Generator 报告生成器
type Generator struct {
	outputDir string
	now       func() time.Time
}

// NewGenerator 创建生成器，报告写入 outputDir
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir, now: time.Now}
}

// WriteDaily 生成当日文本报告，返回报告路径
func (g *Generator) WriteDaily(aggregate model.AggregateStats, analyses []model.Analysis) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(g.outputDir, fmt.Sprintf("债市分析报告_%s.txt", g.now().Format("20060102")))
	if err := os.WriteFile(path, []byte(g.render(aggregate, analyses)), 0o644); err != nil {
		return "", fmt.Errorf("写入报告失败: %w", err)
	}
	return path, nil
}

func (g *Generator) render(aggregate model.AggregateStats, analyses []model.Analysis) string {
	var b strings.Builder
	line := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "%s\n债券市场评论分析日报  %s\n%s\n\n", line, g.now().Format(time.DateOnly), line)
	fmt.Fprintf(&b, "文章总数: %d\n平均评分: %.2f\n\n", aggregate.TotalCount, aggregate.AverageScore)

	b.WriteString("一、评分分布\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, bucket := range []string{"9-10分", "7-8分", "5-6分", "3-4分", "1-2分"} {
		fmt.Fprintf(&b, "  %s: %d 篇\n", bucket, aggregate.ScoreDistribution[bucket])
	}
	b.WriteString("\n")

	b.WriteString("二、收益率态度统计\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, term := range []string{"10Y", "5Y"} {
		counts := aggregate.AttitudeCounts[term]
		fmt.Fprintf(&b, "  %s国债: 上行 %d | 下行 %d | 震荡 %d | 未涉及 %d\n",
			term, counts[stats.DirectionUp], counts[stats.DirectionDown],
			counts[stats.DirectionSideways], counts[stats.DirectionNotCovered])
	}
	b.WriteString("\n")

	b.WriteString("三、机构统计（按平均评分排序）\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, inst := range sortedInstitutions(aggregate.InstitutionRollup) {
		s := aggregate.InstitutionRollup[inst]
		fmt.Fprintf(&b, "  %s: %d 篇, 平均 %.2f 分 (最高 %.1f / 最低 %.1f), 总阅读 %d\n",
			inst, s.Count, s.AvgScore, s.MaxScore, s.MinScore, s.TotalReads)
	}
	b.WriteString("\n")

	b.WriteString("四、高频关键词\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	keywords := sortedKeywords(aggregate.KeywordCloud)
	if len(keywords) > 20 {
		keywords = keywords[:20]
	}
	for _, kw := range keywords {
		fmt.Fprintf(&b, "  %s(%d)", kw, aggregate.KeywordCloud[kw])
	}
	b.WriteString("\n\n")

	b.WriteString("五、机构观点摘要\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, analysis := range analyses {
		fmt.Fprintf(&b, "  [%s] %s（评分 %.1f）\n    %s\n",
			analysis.Institution, analysis.Date, analysis.Score, clip(analysis.Overall, 100))
	}

	return b.String()
}

func sortedInstitutions(rollup map[string]model.InstitutionStats) []string {
	insts := make([]string, 0, len(rollup))
	for inst := range rollup {
		insts = append(insts, inst)
	}
	sort.Slice(insts, func(i, j int) bool {
		a, b := rollup[insts[i]], rollup[insts[j]]
		if a.AvgScore != b.AvgScore {
			return a.AvgScore > b.AvgScore
		}
		return insts[i] < insts[j]
	})
	return insts
}

func sortedKeywords(cloud map[string]int) []string {
	words := make([]string, 0, len(cloud))
	for word := range cloud {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if cloud[words[i]] != cloud[words[j]] {
			return cloud[words[i]] > cloud[words[j]]
		}
		return words[i] < words[j]
	})
	return words
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
