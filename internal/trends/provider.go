package trends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// DefaultFeedURL Google Trends 每日热搜 RSS，%s 为 geo 代码
const DefaultFeedURL = "https://trends.google.com/trending/rss?geo=%s"

// Region 趋势数据源使用的地区标识
type Region struct {
	Geo  string // 例如 KR
	Name string // 例如 south_korea
}

// Provider 趋势数据源
type Provider interface {
	Trending(ctx context.Context, region Region) ([]string, error)
}

// GoogleRSSProvider 通过 Google Trends RSS 获取热搜词
type GoogleRSSProvider struct {
	feedURL string
	parser  *gofeed.Parser
}

// NewGoogleRSSProvider 创建 RSS 数据源，feedURL 为空时使用默认地址
func NewGoogleRSSProvider(feedURL string, timeout time.Duration) *GoogleRSSProvider {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	fp := gofeed.NewParser()
	if timeout > 0 {
		fp.Client = &http.Client{Timeout: timeout}
	}
	return &GoogleRSSProvider{feedURL: feedURL, parser: fp}
}

// Ensure GoogleRSSProvider implements Provider
var _ Provider = (*GoogleRSSProvider)(nil)

// Trending 返回 RSS 中条目的标题，保持源顺序
func (p *GoogleRSSProvider) Trending(ctx context.Context, region Region) ([]string, error) {
	url := p.feedURL
	if strings.Contains(url, "%s") {
		url = fmt.Sprintf(url, region.Geo)
	}

	feed, err := p.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse trends feed [%s]: %w", region.Geo, err)
	}

	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		titles = append(titles, item.Title)
	}
	return titles, nil
}
