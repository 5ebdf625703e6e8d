package summarizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_radar/internal/apperr"
	"github.com/iWorld-y/trend_radar/internal/logger"
	dm "github.com/iWorld-y/trend_radar/internal/model"
)

// stubChatModel 按顺序返回预设的错误，然后返回固定内容
type stubChatModel struct {
	reply    string
	errs     []error
	requests [][]*schema.Message
}

func (m *stubChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.requests = append(m.requests, in)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

type stubSearcher struct {
	results map[dm.TrendTerm][]dm.SearchResult
	failOn  dm.TrendTerm
	calls   []dm.TrendTerm
}

func (s *stubSearcher) Search(ctx context.Context, term dm.TrendTerm) ([]dm.SearchResult, error) {
	s.calls = append(s.calls, term)
	if term == s.failOn {
		return nil, apperr.ExternalService(apperr.SourceSearch, errors.New("search down"))
	}
	if r, ok := s.results[term]; ok {
		return r, nil
	}
	return []dm.SearchResult{{URL: "url1"}}, nil
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("A", []dm.SearchResult{{URL: "url1"}, {URL: "url2", Snippet: "요약"}})
	want := "다음은 'A'에 대한 뉴스 기사 및 블로그 검색 결과입니다:\n\n" +
		"url1\nurl2\n요약\n\n" +
		"이 트렌드가 왜 이슈가 되고 있는지 요약하고 설명해 주세요."
	assert.Equal(t, want, prompt)
}

func TestSummarize_OneEntryPerTermInOrder(t *testing.T) {
	cm := &stubChatModel{reply: "explanation"}
	s := &stubSearcher{}
	sum := NewSummarizer(cm, s, logger.Discard())

	out, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A", "B", "C"})
	require.NoError(t, err)

	assert.Equal(t, []dm.TrendTerm{"A", "B", "C"}, out.Terms())
	out.Each(func(term dm.TrendTerm, text string) {
		assert.Equal(t, "explanation", text)
	})
	assert.Equal(t, []dm.TrendTerm{"A", "B", "C"}, s.calls)

	require.Len(t, cm.requests, 3)
	first := cm.requests[0]
	require.Len(t, first, 2)
	assert.Equal(t, schema.System, first[0].Role)
	assert.Equal(t, SystemPrompt, first[0].Content)
	assert.Equal(t, schema.User, first[1].Role)
	assert.Contains(t, first[1].Content, "'A'")
	assert.Contains(t, first[1].Content, "url1")
}

func TestSummarize_KeepsReplyVerbatim(t *testing.T) {
	reply := "  첫 줄\n\n- 항목\n"
	cm := &stubChatModel{reply: reply}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard())

	out, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A"})
	require.NoError(t, err)

	text, ok := out.Get("A")
	require.True(t, ok)
	assert.Equal(t, reply, text)
}

func TestSummarize_Empty(t *testing.T) {
	cm := &stubChatModel{reply: "x"}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard())

	out, err := sum.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Empty(t, cm.requests)
}

func TestSummarize_SearchFailureAbortsLoop(t *testing.T) {
	cm := &stubChatModel{reply: "x"}
	s := &stubSearcher{failOn: "B"}
	sum := NewSummarizer(cm, s, logger.Discard())

	out, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A", "B", "C"})
	assert.Nil(t, out)
	assert.True(t, apperr.IsExternalServiceFailure(err))
	assert.Equal(t, apperr.SourceSearch, apperr.Source(err))
	assert.Equal(t, []dm.TrendTerm{"A", "B"}, s.calls, "失败后不再处理剩余的词")
	assert.Len(t, cm.requests, 1)
}

func TestSummarize_LLMFailureNoRetryByDefault(t *testing.T) {
	cm := &stubChatModel{reply: "x", errs: []error{errors.New("status code: 429, too many requests")}}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard())

	_, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A"})
	require.Error(t, err)
	assert.Equal(t, apperr.SourceLLM, apperr.Source(err))
	assert.Len(t, cm.requests, 1)
}

func TestSummarize_RetriesRateLimited(t *testing.T) {
	cm := &stubChatModel{reply: "ok", errs: []error{
		errors.New("status code: 429"),
		errors.New("Too Many Requests"),
	}}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard(), WithRetry(3, time.Millisecond))

	out, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A"})
	require.NoError(t, err)
	text, _ := out.Get("A")
	assert.Equal(t, "ok", text)
	assert.Len(t, cm.requests, 3)
}

func TestSummarize_DoesNotRetryOtherErrors(t *testing.T) {
	cm := &stubChatModel{reply: "ok", errs: []error{errors.New("401 unauthorized")}}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard(), WithRetry(3, time.Millisecond))

	_, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Len(t, cm.requests, 1)
}

func TestSummarize_WithLimiter(t *testing.T) {
	cm := &stubChatModel{reply: "ok"}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard(), WithLimiter(NewLimiter(0, 0)))

	out, err := sum.Summarize(context.Background(), []dm.TrendTerm{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestSummarize_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cm := &stubChatModel{reply: "ok"}
	sum := NewSummarizer(cm, &stubSearcher{}, logger.Discard(), WithLimiter(NewLimiter(60, 1)))

	_, err := sum.Summarize(ctx, []dm.TrendTerm{"A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cm.requests)
}
