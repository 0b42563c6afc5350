package model

// Category 文章内容类别，封闭枚举
type Category int

const (
	FixedIncome Category = iota // 固收类
	Equity                      // 权益类
	Macro                       // 宏观类
	Other                       // 其他
)

// Categories 按固定优先级排列的全部类别，分类打分与目录遍历都依赖该顺序
var Categories = []Category{FixedIncome, Equity, Macro, Other}

var categoryLabels = map[Category]string{
	FixedIncome: "固收类",
	Equity:      "权益类",
	Macro:       "宏观类",
	Other:       "其他",
}

// Label 返回类别的中文名称，同时也是缓存目录名
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return "其他"
}

func (c Category) String() string {
	return c.Label()
}

// ParseCategory 将目录名还原为类别，未知名称归入其他
func ParseCategory(label string) Category {
	for _, c := range Categories {
		if categoryLabels[c] == label {
			return c
		}
	}
	return Other
}

// ArticleRecord 一篇爬取或缓存的文章
type ArticleRecord struct {
	Title       string
	Institution string
	PublishDate string // 标准化 YYYY-MM-DD
	URL         string
	Content     string
	ReadCount   int
	Category    Category
}

// Analysis 单篇文章的 AI 分析结果，JSON 字段与模型约定的输出格式一致
type Analysis struct {
	URL                   string  `json:"url"`
	Institution           string  `json:"机构"`
	Date                  string  `json:"日期"`
	Fundamentals          string  `json:"基本面及通胀"`
	Liquidity             string  `json:"资金面"`
	Policy                string  `json:"货币及财政政策"`
	InstitutionalBehavior string  `json:"机构行为"`
	Overseas              string  `json:"海外及其他"`
	Attitude10Y           string  `json:"10Y国债态度"`
	Range10Y              string  `json:"10Y预测区间"`
	Attitude5Y            string  `json:"5Y国债态度"`
	Range5Y               string  `json:"5Y预测区间"`
	Overall               string  `json:"整体观点"`
	Strategy              string  `json:"投资策略"`
	Score                 float64 `json:"重要性评分"`
	ReadCount             int     `json:"阅读量"`
}

// InstitutionStats 单个机构的汇总统计
type InstitutionStats struct {
	Count      int
	AvgScore   float64
	MaxScore   float64
	MinScore   float64
	TotalReads int
	AvgReads   int
}

// AggregateStats 一批分析结果的统计快照，每次生成报告时重新计算
type AggregateStats struct {
	TotalCount        int
	AverageScore      float64
	ScoreDistribution map[string]int
	AttitudeCounts    map[string]map[string]int // 期限 -> 方向 -> 数量
	InstitutionRollup map[string]InstitutionStats
	KeywordCloud      map[string]int
}
