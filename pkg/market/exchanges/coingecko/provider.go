package coingecko

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"cointrack/pkg/market"
)

const defaultProviderTimeout = 8 * time.Second

// Provider wraps CoinGecko client calls behind the market.Provider contract.
type Provider struct {
	client     *Client
	timeout    time.Duration
	providerID string
}

type providerConfig struct {
	timeout      time.Duration
	clientConfig []Option
}

// ProviderOption customises the CoinGecko provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying CoinGecko client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientConfig = append(cfg.clientConfig, options...)
	}
}

// NewProvider constructs a CoinGecko market provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{
		timeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		client:  NewClient(cfg.clientConfig...),
		timeout: cfg.timeout,
	}
}

func init() {
	market.RegisterProvider("coingecko", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			clientOptions = append(clientOptions, WithAPIKey(cfg.APIKey))
		}
		if cfg.APIKeyHeader != "" {
			clientOptions = append(clientOptions, WithAPIKeyHeader(cfg.APIKeyHeader))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		if len(clientOptions) > 0 {
			opts = append(opts, WithClientOptions(clientOptions...))
		}
		provider := NewProvider(opts...)
		provider.providerID = name
		return provider, nil
	})
}

// Markets implements market.Provider.
func (p *Provider) Markets(ctx context.Context, q market.MarketsQuery) ([]market.MarketCoin, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.Markets(ctx, q)
}

// Global implements market.Provider.
func (p *Provider) Global(ctx context.Context) (*market.GlobalStats, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.Global(ctx)
}

// Coin implements market.Provider by joining the detail and chart requests.
func (p *Provider) Coin(ctx context.Context, q market.CoinQuery) (*market.CoinResponse, error) {
	q = q.Normalize()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var (
		detail *market.CoinDetail
		chart  *market.CoinChart
	)
	err := mr.Finish(func() error {
		var err error
		detail, err = p.client.CoinDetail(ctx, q.ID)
		return err
	}, func() error {
		var err error
		chart, err = p.client.MarketChart(ctx, q.ID, q.Currency, q.Days)
		return err
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("coingecko: coin provider=%s id=%s err=%v", p.providerName(), q.ID, err)
		return nil, err
	}
	return &market.CoinResponse{Detail: *detail, Chart: *chart}, nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Provider) providerName() string {
	if strings.TrimSpace(p.providerID) != "" {
		return p.providerID
	}
	return "coingecko"
}
