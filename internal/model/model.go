package model

import "strings"

// CountryCode 支持的国家代码
type CountryCode string

const (
	KR CountryCode = "KR"
	US CountryCode = "US"
	JP CountryCode = "JP"
	HK CountryCode = "HK"
)

// TrendTerm 单个热门搜索词
type TrendTerm string

// SearchResult 单条网页搜索结果
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Line 渲染为提示词中的一段：URL，摘要不为空时换行附上摘要
func (r SearchResult) Line() string {
	snippet := strings.TrimSpace(r.Snippet)
	if snippet == "" {
		return r.URL
	}
	return r.URL + "\n" + snippet
}

// Explanations 按插入顺序保存 趋势词 -> 解读
type Explanations struct {
	order  []TrendTerm
	byTerm map[TrendTerm]string
}

// NewExplanations 创建空的解读集合
func NewExplanations() *Explanations {
	return &Explanations{byTerm: make(map[TrendTerm]string)}
}

// Set 写入解读。重复的词保留第一次出现的位置，内容以最后一次为准
func (e *Explanations) Set(term TrendTerm, text string) {
	if _, ok := e.byTerm[term]; !ok {
		e.order = append(e.order, term)
	}
	e.byTerm[term] = text
}

func (e *Explanations) Get(term TrendTerm) (string, bool) {
	text, ok := e.byTerm[term]
	return text, ok
}

func (e *Explanations) Len() int {
	return len(e.order)
}

// Terms 按插入顺序返回所有词
func (e *Explanations) Terms() []TrendTerm {
	out := make([]TrendTerm, len(e.order))
	copy(out, e.order)
	return out
}

// Each 按插入顺序遍历
func (e *Explanations) Each(fn func(term TrendTerm, text string)) {
	for _, term := range e.order {
		fn(term, e.byTerm[term])
	}
}
