package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/internal/apperr"
	"github.com/iWorld-y/trend_radar/internal/intent"
	"github.com/iWorld-y/trend_radar/internal/model"
)

// Prompt 每轮输入前的提示语
const Prompt = "어느 나라의 트렌드를 알고 싶으신가요? (예: '한국의 현재 트렌드를 알려줘')"

var exitCommands = map[string]bool{"exit": true, "quit": true, "종료": true}

// State 交互状态
type State int

const (
	AwaitingInput State = iota
	Resolving
	Fetching
	Summarizing
	Displaying
	Stopped
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Resolving:
		return "resolving"
	case Fetching:
		return "fetching"
	case Summarizing:
		return "summarizing"
	case Displaying:
		return "displaying"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Resolver 把用户输入映射为国家代码
type Resolver func(input string) (model.CountryCode, bool)

// TrendFetcher 获取趋势词
type TrendFetcher interface {
	Fetch(ctx context.Context, code model.CountryCode) ([]model.TrendTerm, error)
}

// Summarizer 生成趋势解读
type Summarizer interface {
	Summarize(ctx context.Context, terms []model.TrendTerm) (*model.Explanations, error)
}

// Recorder 保存一次完成的请求
type Recorder interface {
	SaveRun(ctx context.Context, code model.CountryCode, query string, exps *model.Explanations) error
}

// Driver 交互式主循环
type Driver struct {
	resolve    Resolver
	fetcher    TrendFetcher
	summarizer Summarizer
	recorder   Recorder
	out        io.Writer
	log        *logrus.Logger
	state      State
}

// Option Driver 可选配置
type Option func(*Driver)

// WithRecorder 每次成功解读后写入历史
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

// WithResolver 替换默认的关键词解析
func WithResolver(r Resolver) Option {
	return func(d *Driver) {
		d.resolve = r
	}
}

// New 创建 Driver
func New(fetcher TrendFetcher, summarizer Summarizer, out io.Writer, log *logrus.Logger, opts ...Option) *Driver {
	d := &Driver{
		resolve:    intent.Resolve,
		fetcher:    fetcher,
		summarizer: summarizer,
		out:        out,
		log:        log,
		state:      AwaitingInput,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State 返回当前状态
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(s State) {
	d.log.Debugf("状态切换: %s -> %s", d.state, s)
	d.state = s
}

// Run 循环读取输入直到 EOF、退出命令或 ctx 取消
func (d *Driver) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		// 行长度不设上限，超长输入按普通无法识别的输入处理
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				select {
				case lines <- strings.TrimRight(line, "\r\n"):
				case <-done:
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	defer d.transition(Stopped)
	for {
		d.transition(AwaitingInput)
		fmt.Fprintln(d.out, Prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		}

		if exitCommands[strings.TrimSpace(line)] {
			return nil
		}
		if err := d.Handle(ctx, line); err != nil {
			return err
		}
	}
}

// Handle 处理一行输入。可恢复的错误直接输出给用户并返回 nil，
// 只有 ctx 取消会返回错误。
func (d *Driver) Handle(ctx context.Context, line string) error {
	d.transition(Resolving)
	code, ok := d.resolve(line)
	if !ok {
		return d.report(ctx, apperr.UnsupportedCountryInput(intent.Keywords()))
	}

	d.transition(Fetching)
	terms, err := d.fetcher.Fetch(ctx, code)
	if err != nil {
		return d.report(ctx, err)
	}
	if len(terms) == 0 {
		return d.report(ctx, apperr.EmptyTrendResult(string(code)))
	}

	d.transition(Summarizing)
	exps, err := d.summarizer.Summarize(ctx, terms)
	if err != nil {
		return d.report(ctx, err)
	}

	d.transition(Displaying)
	fmt.Fprintf(d.out, "=== %s의 트렌드 요약 및 설명 ===\n", code)
	exps.Each(func(term model.TrendTerm, text string) {
		fmt.Fprintf(d.out, "\n--- %s ---\n%s\n", term, text)
	})

	if d.recorder != nil {
		if err := d.recorder.SaveRun(ctx, code, line, exps); err != nil {
			d.log.Errorf("保存历史记录失败 [%s]: %v", code, err)
		}
	}
	return nil
}

func (d *Driver) report(ctx context.Context, err error) error {
	// ctx 已取消时底层错误未必包装 ctx.Err()（如 rate.Limiter 的截止时间错误）
	if ctx.Err() != nil {
		return ctx.Err()
	}

	switch {
	case apperr.IsUnsupportedCountryInput(err), apperr.IsEmptyTrendResult(err):
		d.log.Debugf("请求未产生结果: %s", apperr.Message(err))
		fmt.Fprintln(d.out, apperr.Message(err))
	case apperr.IsUnsupportedCountryCode(err):
		fmt.Fprintln(d.out, apperr.Message(err))
	case apperr.IsExternalServiceFailure(err):
		d.log.WithField("source", apperr.Source(err)).Errorf("外部服务调用失败: %v", err)
		fmt.Fprintf(d.out, "요청 처리 중 오류가 발생했습니다: %s\n", apperr.Message(err))
	default:
		d.log.Errorf("请求处理失败: %v", err)
		fmt.Fprintf(d.out, "요청 처리 중 오류가 발생했습니다: %v\n", err)
	}
	return nil
}
