package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/trend_radar/internal/apperr"
	dm "github.com/iWorld-y/trend_radar/internal/model"
)

// SystemPrompt 每次对话的系统消息
const SystemPrompt = "You are a helpful assistant."

const promptTpl = `다음은 '%s'에 대한 뉴스 기사 및 블로그 검색 결과입니다:

%s

이 트렌드가 왜 이슈가 되고 있는지 요약하고 설명해 주세요.`

const defaultRetryInterval = 2 * time.Second

// ChatModel 非流式对话模型，eino 的 openai.ChatModel 满足该接口
type ChatModel interface {
	Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// TermSearcher 为单个趋势词检索上下文
type TermSearcher interface {
	Search(ctx context.Context, term dm.TrendTerm) ([]dm.SearchResult, error)
}

// Summarizer 逐个趋势词检索并调用 LLM 生成解读
type Summarizer struct {
	chatModel     ChatModel
	searcher      TermSearcher
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
	log           *logrus.Logger
}

// Option Summarizer 可选配置
type Option func(*Summarizer)

// WithLimiter 每次 LLM 调用前等待限流令牌
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Summarizer) {
		s.limiter = l
	}
}

// WithRetry 对 429 限流错误做指数退避重试
func WithRetry(maxRetries int, initialInterval time.Duration) Option {
	return func(s *Summarizer) {
		s.maxRetries = maxRetries
		if initialInterval > 0 {
			s.retryInterval = initialInterval
		}
	}
}

// NewSummarizer 创建 Summarizer
func NewSummarizer(cm ChatModel, searcher TermSearcher, log *logrus.Logger, opts ...Option) *Summarizer {
	s := &Summarizer{
		chatModel:     cm,
		searcher:      searcher,
		retryInterval: defaultRetryInterval,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLimiter 按 RPM/QPS 创建限流器，rpm <= 0 表示不限流
func NewLimiter(rpm, qps int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if qps <= 0 {
		qps = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), qps)
}

// BuildPrompt 组装单个趋势词的用户提示词
func BuildPrompt(term dm.TrendTerm, results []dm.SearchResult) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = r.Line()
	}
	return fmt.Sprintf(promptTpl, term, strings.Join(lines, "\n"))
}

// Summarize 按输入顺序串行处理，每个词一次 LLM 调用。
// 任一步失败立即返回，剩余的词不再处理。
func (s *Summarizer) Summarize(ctx context.Context, terms []dm.TrendTerm) (*dm.Explanations, error) {
	out := dm.NewExplanations()
	for i, term := range terms {
		s.log.Infof("正在解读趋势 (%d/%d): %s", i+1, len(terms), term)

		results, err := s.searcher.Search(ctx, term)
		if err != nil {
			return nil, err
		}

		text, err := s.explain(ctx, BuildPrompt(term, results))
		if err != nil {
			return nil, apperr.ExternalService(apperr.SourceLLM, fmt.Errorf("explain %q: %w", term, err))
		}
		out.Set(term, text)
	}
	return out, nil
}

func (s *Summarizer) explain(ctx context.Context, prompt string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(SystemPrompt),
		schema.UserMessage(prompt),
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.maxRetries)), ctx)

	var content string
	attempt := 0
	op := func() error {
		attempt++
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("limiter wait error: %w", err))
			}
		}

		resp, err := s.chatModel.Generate(ctx, messages)
		if err != nil {
			if isRateLimited(err) && attempt <= s.maxRetries {
				s.log.Warnf("触发 429 限流，稍后重试 (%d/%d)...", attempt, s.maxRetries)
				return err
			}
			return backoff.Permanent(err)
		}
		if resp == nil {
			return backoff.Permanent(fmt.Errorf("empty response from chat model"))
		}
		content = resp.Content
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return content, nil
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}
