// Package analyzer 调用 LLM 对单篇文章做结构化分析。
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"bondradar/pkg/config"
	"bondradar/pkg/logger"
	"bondradar/pkg/model"
)

const systemPrompt = "你是一个专业的债券市场分析师，擅长分析利率债市场走势和收益率预测。"

const analysisPromptTpl = `请阅读以下债市评论文章，从五个维度提炼内容，并判断对国债收益率的态度。
机构：%s
日期：%s

文章内容：
%s

请务必严格按照以下 JSON 格式返回，不要包含任何 markdown 标记：
{
	"基本面及通胀": "对基本面与通胀的论述摘要",
	"资金面": "对资金面的论述摘要",
	"货币及财政政策": "对货币与财政政策的论述摘要",
	"机构行为": "对机构行为的论述摘要",
	"海外及其他": "对海外及其他因素的论述摘要",
	"10Y国债态度": "上行/下行/震荡/文章未涉及",
	"10Y预测区间": "如 1.6%%-1.8%%，未给出则填文章未涉及",
	"5Y国债态度": "上行/下行/震荡/文章未涉及",
	"5Y预测区间": "如 1.4%%-1.6%%，未给出则填文章未涉及",
	"整体观点": "全文核心观点（100字以内）",
	"投资策略": "文章给出的操作建议",
	"重要性评分": 7.5
}
评分说明：重要性评分为 1-10 的数值，衡量文章的数据支撑、逻辑完整性与策略可操作性。
文章未涉及某维度时该字段填空字符串。`

const (
	maxRetries    = 3
	retryInterval = 3 * time.Second
	contentLimit  = 5000 // 送入模型前的正文截断长度（按字符）
)

// Analyzer 文章分析器
type Analyzer struct {
	chatModel einomodel.ChatModel
	limiter   *rate.Limiter
}

// New 根据配置创建分析器，内部初始化 LLM
func New(ctx context.Context, cfg config.LLMConfig, limiter *rate.Limiter) (*Analyzer, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return NewWithModel(chatModel, limiter), nil
}

// NewWithModel 注入已有模型创建分析器
func NewWithModel(cm einomodel.ChatModel, limiter *rate.Limiter) *Analyzer {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Analyzer{chatModel: cm, limiter: limiter}
}

// Analyze 分析单篇文章。
// 模型输出不可解析或调用彻底失败时返回默认占位结果，从不报错
func (a *Analyzer) Analyze(ctx context.Context, content, url, institution, date string) model.Analysis {
	runes := []rune(content)
	if len(runes) > contentLimit {
		content = string(runes[:contentLimit])
	}

	prompt := fmt.Sprintf(analysisPromptTpl, institution, date, content)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			logger.Log.Errorf("限流等待中断: %v", err)
			return DefaultAnalysis(url, institution, date)
		}

		messages := []*schema.Message{
			{Role: schema.System, Content: systemPrompt},
			{Role: schema.User, Content: prompt},
		}

		resp, err := a.chatModel.Generate(ctx, messages)
		if err != nil {
			lastErr = err
			logger.Log.Errorf("LLM 调用失败 (尝试 %d/%d): %v", attempt, maxRetries, err)
			if attempt < maxRetries {
				time.Sleep(retryInterval)
			}
			continue
		}

		var analysis model.Analysis
		if err := json.Unmarshal([]byte(ExtractJSON(resp.Content)), &analysis); err != nil {
			lastErr = err
			logger.Log.Errorf("解析分析结果失败 (尝试 %d/%d): %v", attempt, maxRetries, err)
			continue
		}

		analysis.URL = url
		analysis.Institution = institution
		analysis.Date = date
		return analysis
	}

	logger.Log.Errorf("文章分析最终失败 [%s]: %v", url, lastErr)
	return DefaultAnalysis(url, institution, date)
}

// Validate 校验分析结果：整体观点非空且评分落在 [1,10]
func (a *Analyzer) Validate(analysis model.Analysis) bool {
	if analysis.Overall == "" || analysis.Overall == "分析失败" {
		logger.Log.Warnf("分析结果缺少整体观点 [%s]", analysis.URL)
		return false
	}
	if analysis.Score < 1 || analysis.Score > 10 {
		logger.Log.Warnf("评分超出范围 [%s]: %.1f", analysis.URL, analysis.Score)
		return false
	}
	return true
}

// DefaultAnalysis 构造降级用的占位分析结果
func DefaultAnalysis(url, institution, date string) model.Analysis {
	return model.Analysis{
		URL:         url,
		Institution: institution,
		Date:        date,
		Attitude10Y: "文章未涉及",
		Range10Y:    "文章未涉及",
		Attitude5Y:  "文章未涉及",
		Range5Y:     "文章未涉及",
		Overall:     "分析失败",
	}
}

// ExtractJSON 从模型输出中提取第一个配平的 {...} 片段。
// 模型偶尔会在 JSON 前后附加说明或 markdown 围栏，不能假设整段可解析
func ExtractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}
