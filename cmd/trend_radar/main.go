package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/trend_radar/internal/config"
	"github.com/iWorld-y/trend_radar/internal/driver"
	"github.com/iWorld-y/trend_radar/internal/logger"
	"github.com/iWorld-y/trend_radar/internal/search"
	"github.com/iWorld-y/trend_radar/internal/search/factory"
	"github.com/iWorld-y/trend_radar/internal/storage"
	"github.com/iWorld-y/trend_radar/internal/summarizer"
	"github.com/iWorld-y/trend_radar/internal/trends"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		query      string
	)

	cmd := &cobra.Command{
		Use:          "trend_radar",
		Short:        "국가별 실시간 트렌드와 그 이유를 알려주는 대화형 도우미",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, query)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "config path")
	cmd.Flags().StringVar(&query, "query", "", "handle a single request and exit")
	return cmd
}

func run(ctx context.Context, configPath, query string) error {
	// 1. 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("无法加载配置文件: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 2. 初始化日志
	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("无法初始化日志: %w", err)
	}
	log.Info("启动趋势雷达...")

	d, cleanup, err := buildDriver(ctx, cfg, log)
	if err != nil {
		log.Errorf("初始化失败: %v", err)
		return err
	}
	defer cleanup()

	if query != "" {
		return d.Handle(ctx, query)
	}
	if err := d.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("已退出")
	return nil
}

func buildDriver(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*driver.Driver, func(), error) {
	// 3. 初始化 LLM
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.Timeout) * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	// 4. 初始化限流器
	limiter := summarizer.NewLimiter(cfg.Concurrency.RPM, cfg.Concurrency.QPS)
	log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limiter.Limit(), limiter.Burst())

	// 5. 初始化搜索客户端
	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}
	searchOpts := []search.ContextOption{search.WithMaxResults(cfg.Search.MaxResults)}
	if cfg.Search.FetchContent {
		searchOpts = append(searchOpts, search.WithContentFetcher(search.FetchAndCleanContent))
	}
	contextSearcher := search.NewContextSearcher(searcher, log, searchOpts...)

	// 6. 趋势数据源
	fetcher := trends.NewFetcher(
		trends.NewGoogleRSSProvider(cfg.Trends.FeedURL, 0),
		log,
		trends.WithLimit(cfg.Trends.Limit),
		trends.WithCache(time.Duration(cfg.Trends.CacheTTL)*time.Second),
	)

	sum := summarizer.NewSummarizer(chatModel, contextSearcher, log,
		summarizer.WithLimiter(limiter),
		summarizer.WithRetry(cfg.LLM.MaxRetries, 0),
	)

	// 7. 可选：历史记录
	cleanup := func() {}
	var opts []driver.Option
	if cfg.DB.Host != "" {
		store, err := storage.NewStorage(ctx, cfg.DB)
		if err != nil {
			log.Errorf("无法连接数据库: %v. 将不保存历史记录。", err)
		} else {
			log.Info("已成功连接到数据库")
			opts = append(opts, driver.WithRecorder(store))
			cleanup = func() { store.Close() }
		}
	} else {
		log.Info("未配置数据库信息，跳过数据库连接")
	}

	return driver.New(fetcher, sum, os.Stdout, log, opts...), cleanup, nil
}
