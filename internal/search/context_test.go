package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_radar/internal/apperr"
	"github.com/iWorld-y/trend_radar/internal/logger"
	"github.com/iWorld-y/trend_radar/internal/model"
)

// stubSearcher 记录请求并返回固定结果
type stubSearcher struct {
	results  []Result
	err      error
	requests []*Request
}

func (s *stubSearcher) Search(ctx context.Context, req *Request) (*Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Results: s.results}, nil
}

func results(n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{URL: "url" + string(rune('1'+i))}
	}
	return out
}

func TestContextSearcher_BuildsQueryAndLimit(t *testing.T) {
	s := &stubSearcher{results: results(2)}
	cs := NewContextSearcher(s, logger.Discard())

	got, err := cs.Search(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, s.requests, 1)
	assert.Equal(t, "A 뉴스 OR 블로그", s.requests[0].Query)
	assert.Equal(t, MaxResults, s.requests[0].MaxResults)
	assert.Equal(t, []model.SearchResult{{URL: "url1"}, {URL: "url2"}}, got)
}

func TestContextSearcher_NeverMoreThanFive(t *testing.T) {
	s := &stubSearcher{results: results(8)}
	cs := NewContextSearcher(s, logger.Discard(), WithMaxResults(10))

	got, err := cs.Search(context.Background(), "A")
	require.NoError(t, err)
	assert.LessOrEqual(t, s.requests[0].MaxResults, MaxResults)
	require.Len(t, got, MaxResults)
	assert.Equal(t, "url1", got[0].URL)
	assert.Equal(t, "url5", got[4].URL)
}

func TestContextSearcher_LowerLimit(t *testing.T) {
	s := &stubSearcher{results: results(5)}
	cs := NewContextSearcher(s, logger.Discard(), WithMaxResults(3))

	got, err := cs.Search(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 3, s.requests[0].MaxResults)
	assert.Len(t, got, 3)
}

func TestContextSearcher_Error(t *testing.T) {
	cs := NewContextSearcher(&stubSearcher{err: errors.New("quota exceeded")}, logger.Discard())

	_, err := cs.Search(context.Background(), "A")
	require.Error(t, err)
	assert.True(t, apperr.IsExternalServiceFailure(err))
	assert.Equal(t, apperr.SourceSearch, apperr.Source(err))
}

func TestContextSearcher_ContentFetcher(t *testing.T) {
	s := &stubSearcher{results: []Result{
		{URL: "short", Content: "tiny"},
		{URL: "long", Content: strings.Repeat("가", 300)},
		{URL: "broken", Content: "tiny"},
	}}
	var fetched []string
	fetch := func(url string) (string, error) {
		fetched = append(fetched, url)
		if url == "broken" {
			return "", errors.New("timeout")
		}
		return strings.Repeat("본문", 800), nil
	}
	cs := NewContextSearcher(s, logger.Discard(), WithContentFetcher(fetch))

	got, err := cs.Search(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"short", "broken"}, fetched, "摘要足够长时不抓取")
	assert.Len(t, []rune(got[0].Snippet), maxFetchedRunes)
	assert.Equal(t, strings.Repeat("가", 300), got[1].Snippet)
	assert.Equal(t, "tiny", got[2].Snippet)
}
