// Package fetch 文章正文抓取。
package fetch

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Fetcher 内容抓取接口。
// 抓取失败或内容不可用时允许返回空串，由调用方判定是否可用
type Fetcher interface {
	Fetch(url string) (content string, title string, err error)
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// ReadabilityFetcher 基于可读性抽取的正文抓取器
type ReadabilityFetcher struct {
	timeout time.Duration
}

// NewReadabilityFetcher 创建抓取器
func NewReadabilityFetcher(timeout time.Duration) *ReadabilityFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReadabilityFetcher{timeout: timeout}
}

// Fetch 抓取 URL 并提取核心文本与标题
func (f *ReadabilityFetcher) Fetch(url string) (string, string, error) {
	article, err := readability.FromURL(url, f.timeout)
	if err != nil {
		return "", "", err
	}

	return normalizeText(article.TextContent), strings.TrimSpace(article.Title), nil
}

// normalizeText 把连续空白压成单个空格并去掉首尾空白
func normalizeText(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
