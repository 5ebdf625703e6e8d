package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// 环境变量
	EnvLLMAPIKey    = "UPSTAGE_API_KEY"
	EnvTavilyAPIKey = "TAVILY_API_KEY"

	DefaultLLMBaseURL = "https://api.upstage.ai/v1/solar"
	DefaultLLMModel   = "solar-1-mini-chat"

	// MaxResultLimit 趋势条数和搜索结果条数的上限
	MaxResultLimit = 5
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Trends      TrendsConfig      `yaml:"trends"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Timeout    int    `yaml:"timeout"`     // 秒，0 表示使用 HTTP 客户端默认值
	MaxRetries int    `yaml:"max_retries"` // 429 重试次数，0 表示不重试
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider     string        `yaml:"provider"`
	MaxResults   int           `yaml:"max_results"`
	FetchContent bool          `yaml:"fetch_content"` // 摘要过短时抓取原文
	Tavily       TavilyConfig  `yaml:"tavily"`
	SearXNG      SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// TrendsConfig 趋势数据源配置
type TrendsConfig struct {
	FeedURL  string `yaml:"feed_url"`  // 含 %s 占位符，替换为地区 geo 代码
	Limit    int    `yaml:"limit"`
	CacheTTL int    `yaml:"cache_ttl"` // 秒，0 表示不缓存
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig LLM 调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置，Host 为空时不记录历史
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LoadConfig 从指定路径加载配置，文件不存在时仅使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(EnvTavilyAPIKey); v != "" {
		c.Search.Tavily.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultLLMModel
	}
	if c.Search.Provider == "" {
		if c.Search.SearXNG.BaseURL != "" {
			c.Search.Provider = "searxng"
		} else {
			c.Search.Provider = "tavily"
		}
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = MaxResultLimit
	}
	if c.Trends.Limit == 0 {
		c.Trends.Limit = MaxResultLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 1
	}
}

// Validate 检查必填项和取值范围
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("配置错误: 未设置 LLM API Key (环境变量 %s)", EnvLLMAPIKey)
	}
	switch c.Search.Provider {
	case "tavily", "searxng":
	default:
		return fmt.Errorf("配置错误: 未知的搜索提供方 %q", c.Search.Provider)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > MaxResultLimit {
		return fmt.Errorf("配置错误: search.max_results 必须在 1-%d 之间", MaxResultLimit)
	}
	if c.Trends.Limit < 1 || c.Trends.Limit > MaxResultLimit {
		return fmt.Errorf("配置错误: trends.limit 必须在 1-%d 之间", MaxResultLimit)
	}
	if c.LLM.MaxRetries < 0 || c.Trends.CacheTTL < 0 {
		return errors.New("配置错误: llm.max_retries 和 trends.cache_ttl 不能为负数")
	}
	return nil
}
