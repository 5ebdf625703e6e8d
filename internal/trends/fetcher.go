package trends

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/trend_radar/internal/apperr"
	"github.com/iWorld-y/trend_radar/internal/model"
)

// DefaultLimit 每次返回的趋势词上限
const DefaultLimit = 5

var regions = map[model.CountryCode]Region{
	model.US: {Geo: "US", Name: "united_states"},
	model.KR: {Geo: "KR", Name: "south_korea"},
	model.JP: {Geo: "JP", Name: "japan"},
	model.HK: {Geo: "HK", Name: "hong_kong"},
}

// RegionFor 返回国家代码对应的地区标识
func RegionFor(code model.CountryCode) (Region, bool) {
	r, ok := regions[code]
	return r, ok
}

// Fetcher 获取某个国家的热门趋势词
type Fetcher struct {
	provider Provider
	limit    int
	cache    *cache.Cache
	log      *logrus.Logger
}

// Option Fetcher 可选配置
type Option func(*Fetcher)

// WithLimit 设置返回条数，超出 1..DefaultLimit 的值被忽略
func WithLimit(n int) Option {
	return func(f *Fetcher) {
		if n > 0 && n <= DefaultLimit {
			f.limit = n
		}
	}
}

// WithCache 按国家缓存结果，ttl <= 0 时不缓存
func WithCache(ttl time.Duration) Option {
	return func(f *Fetcher) {
		if ttl > 0 {
			f.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// NewFetcher 创建 Fetcher
func NewFetcher(provider Provider, log *logrus.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		provider: provider,
		limit:    DefaultLimit,
		log:      log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch 返回前 limit 个趋势词，保持数据源顺序。
// 未映射的国家代码返回 UnsupportedCountryCode，不会请求数据源。
func (f *Fetcher) Fetch(ctx context.Context, code model.CountryCode) ([]model.TrendTerm, error) {
	region, ok := RegionFor(code)
	if !ok {
		return nil, apperr.UnsupportedCountryCode(string(code))
	}

	if f.cache != nil {
		if v, found := f.cache.Get(string(code)); found {
			f.log.Debugf("趋势缓存命中 [%s]", code)
			return cloneTerms(v.([]model.TrendTerm)), nil
		}
	}

	raw, err := f.provider.Trending(ctx, region)
	if err != nil {
		return nil, apperr.ExternalService(apperr.SourceTrends, err)
	}

	terms := make([]model.TrendTerm, 0, f.limit)
	for _, title := range raw {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		terms = append(terms, model.TrendTerm(title))
		if len(terms) == f.limit {
			break
		}
	}
	f.log.WithField("country", code).Infof("获取到 %d 个趋势词", len(terms))

	if f.cache != nil && len(terms) > 0 {
		f.cache.SetDefault(string(code), cloneTerms(terms))
	}
	return terms, nil
}

func cloneTerms(in []model.TrendTerm) []model.TrendTerm {
	out := make([]model.TrendTerm, len(in))
	copy(out, in)
	return out
}
