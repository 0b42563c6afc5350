// Package classify 按加权关键词打分为文章指定内容类别。
package classify

import (
	"strings"
	"unicode/utf8"

	"bondradar/pkg/model"
)

// Classifier 文章分类器，规则在构造时注入
type Classifier struct {
	rules *Ruleset
}

// New 创建分类器，rules 为 nil 时使用默认规则
func New(rules *Ruleset) *Classifier {
	if rules == nil {
		rules = DefaultRuleset()
	}
	return &Classifier{rules: rules}
}

// Classify 为文章指定类别。
// hint 为账号元数据中预设的内容类型，含类别标记时直接采信；
// 否则按标题+机构+正文前段的关键词得分取最高类别，得分并列时
// 按固收、权益、宏观的固定顺序取先声明者。任何输入都不会报错，
// 信号不足一律归入其他。
func (c *Classifier) Classify(title, institution, content, hint string) model.Category {
	if hint != "" {
		switch {
		case strings.Contains(hint, "固收") || strings.Contains(hint, "债"):
			return model.FixedIncome
		case strings.Contains(hint, "权益") || strings.Contains(hint, "股"):
			return model.Equity
		case strings.Contains(hint, "宏观"):
			return model.Macro
		}
	}

	blob := strings.ToLower(title + " " + institution + " " + truncateRunes(content, c.rules.ContentLimit))
	if utf8.RuneCountInString(blob) < c.rules.MinTextLen {
		return model.Other
	}

	instLower := strings.ToLower(institution)

	best := model.Other
	bestScore := 0.0
	for _, category := range model.Categories {
		tier, ok := c.rules.Keywords[category]
		if !ok {
			continue
		}

		score := 0.0
		for _, keyword := range tier.Strong {
			if strings.Contains(blob, keyword) {
				score += 2 * tier.Weight
			}
		}
		for _, keyword := range tier.General {
			if strings.Contains(blob, keyword) {
				score += 1 * tier.Weight
			}
		}
		for _, hintWord := range c.rules.InstitutionHints[category] {
			if strings.Contains(instLower, hintWord) {
				score += c.rules.InstitutionBonus
			}
		}

		// 严格大于：并列时保留先声明的类别
		if score > bestScore {
			best = category
			bestScore = score
		}
	}

	if bestScore < c.rules.ScoreFloor {
		return model.Other
	}
	return best
}

// IsRelevant 爬取前的相关性预筛，命中排除词直接否决
func (c *Classifier) IsRelevant(title, digest, hint string) bool {
	text := strings.ToLower(title + digest)
	for _, keyword := range c.rules.ExcludeKeywords {
		if strings.Contains(text, keyword) {
			return false
		}
	}
	return c.Classify(title, "", digest, hint) != model.Other
}

// ClassifyBatch 批量分类，写回 Category 并按类别分桶，桶内保持输入顺序
func (c *Classifier) ClassifyBatch(articles []model.ArticleRecord) map[model.Category][]model.ArticleRecord {
	classified := make(map[model.Category][]model.ArticleRecord, len(model.Categories))
	for _, category := range model.Categories {
		classified[category] = nil
	}

	for _, article := range articles {
		category := c.Classify(article.Title, article.Institution, article.Content, "")
		article.Category = category
		classified[category] = append(classified[category], article)
	}
	return classified
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
