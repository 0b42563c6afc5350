package classify

import "bondradar/pkg/model"

// KeywordTier 某一类别的两档关键词及类别权重
type KeywordTier struct {
	Strong  []string // 命中一次计 2 × Weight
	General []string // 命中一次计 1 × Weight
	Weight  float64
}

// Ruleset 分类规则，可注入替换，便于测试与调整关键词
type Ruleset struct {
	Keywords         map[model.Category]KeywordTier
	InstitutionHints map[model.Category][]string
	ExcludeKeywords  []string
	MinTextLen       int     // 合并文本低于该长度直接归入其他
	ScoreFloor       float64 // 最高得分低于该值归入其他
	InstitutionBonus float64 // 机构名称命中提示词的加分
	ContentLimit     int     // 参与打分的正文截断长度（按字符）
}

// DefaultRuleset 默认分类规则
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Keywords: map[model.Category]KeywordTier{
			model.FixedIncome: {
				Strong: []string{
					"债", "债券", "利率债", "信用债", "固定收益", "债市", "收益率曲线",
					"久期", "凸性", "国债", "地方债", "企业债", "可转债", "城投债",
					"金融债", "公司债", "短融", "中票", "永续债", "转债",
				},
				General: []string{
					"利率", "收益率", "mlf", "lpr", "央行", "流动性", "资金面",
					"货币政策", "公开市场", "逆回购", "信用利差", "期限利差",
					"dr007", "r007", "资金价格", "债券配置", "利差",
				},
				Weight: 1.5,
			},
			model.Equity: {
				Strong: []string{
					"股票", "股市", "a股", "港股", "美股", "个股", "板块",
					"涨停", "跌停", "龙头股", "题材股", "概念股", "创业板",
					"科创板", "主板", "北交所",
				},
				General: []string{
					"指数", "涨跌", "成交量", "换手率", "市盈率", "估值",
					"主力", "游资", "北向资金", "融资融券", "股价", "涨幅",
					"跌幅", "技术分析", "k线",
				},
				Weight: 1.0,
			},
			model.Macro: {
				Strong: []string{
					"宏观经济", "gdp", "经济增长", "通货膨胀", "失业率",
					"贸易战", "经济周期", "产业政策", "经济数据", "经济指标",
				},
				General: []string{
					"cpi", "ppi", "pmi", "工业增加值", "社融", "货币供应",
					"进出口", "消费", "投资", "财政政策", "m1", "m2",
					"社会消费品零售", "固定资产投资",
				},
				Weight: 1.5,
			},
		},
		InstitutionHints: map[model.Category][]string{
			model.FixedIncome: {"固收", "债券", "利率", "信用", "固定收益", "债市"},
			model.Equity:      {"股票", "权益", "策略", "量化", "股市"},
			model.Macro:       {"宏观", "研究", "证券", "金融"},
		},
		ExcludeKeywords: []string{
			"招聘", "培训", "广告", "活动", "会议", "年会", "福利",
			"招标", "中标", "公告", "声明", "澄清",
		},
		MinTextLen:       20,
		ScoreFloor:       2.0,
		InstitutionBonus: 1.5,
		ContentLimit:     500,
	}
}
