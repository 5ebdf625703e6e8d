package search

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/internal/apperr"
	"github.com/iWorld-y/trend_radar/internal/model"
)

const (
	// QuerySuffix 追加在趋势词后的查询后缀（"新闻 OR 博客"）
	QuerySuffix = " 뉴스 OR 블로그"
	// MaxResults 单次搜索的结果上限
	MaxResults  = 5

	minSnippetRunes = 200
	maxFetchedRunes = 1000
	fetchTimeout    = 30 * time.Second
)

// ContentFetcher 抓取网页正文
type ContentFetcher func(url string) (string, error)

// ContextSearcher 为趋势词检索新闻和博客
type ContextSearcher struct {
	searcher   Searcher
	maxResults int
	fetch      ContentFetcher
	log        *logrus.Logger
}

// ContextOption ContextSearcher 可选配置
type ContextOption func(*ContextSearcher)

// WithMaxResults 设置结果条数，只能小于等于 MaxResults
func WithMaxResults(n int) ContextOption {
	return func(s *ContextSearcher) {
		if n > 0 && n <= MaxResults {
			s.maxResults = n
		}
	}
}

// WithContentFetcher 摘要过短时用 fn 抓取正文补充
func WithContentFetcher(fn ContentFetcher) ContextOption {
	return func(s *ContextSearcher) {
		s.fetch = fn
	}
}

// NewContextSearcher 创建 ContextSearcher
func NewContextSearcher(searcher Searcher, log *logrus.Logger, opts ...ContextOption) *ContextSearcher {
	s := &ContextSearcher{
		searcher:   searcher,
		maxResults: MaxResults,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search 按搜索引擎给出的顺序返回最多 maxResults 条结果，不去重也不过滤
func (s *ContextSearcher) Search(ctx context.Context, term model.TrendTerm) ([]model.SearchResult, error) {
	req := &Request{
		Query:      string(term) + QuerySuffix,
		Topic:      "news",
		MaxResults: s.maxResults,
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, apperr.ExternalService(apperr.SourceSearch, err)
	}
	s.log.WithField("term", term).Debugf("搜索返回 %d 条结果", len(resp.Results))

	items := resp.Results
	if len(items) > s.maxResults {
		items = items[:s.maxResults]
	}

	results := make([]model.SearchResult, 0, len(items))
	for _, item := range items {
		snippet := item.Content
		if s.fetch != nil && utf8.RuneCountInString(snippet) < minSnippetRunes && item.URL != "" {
			fetched, err := s.fetch(item.URL)
			if err != nil {
				s.log.Warnf("原文抓取失败，使用搜索摘要 [%s]: %v", item.URL, err)
			} else if utf8.RuneCountInString(fetched) > utf8.RuneCountInString(snippet) {
				snippet = truncateRunes(fetched, maxFetchedRunes)
			}
		}
		results = append(results, model.SearchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: snippet,
		})
	}
	return results, nil
}

// FetchAndCleanContent 抓取 URL 并提取核心文本
func FetchAndCleanContent(url string) (string, error) {
	article, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
