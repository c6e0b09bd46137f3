package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/pkg/market"
)

const (
	defaultBaseURL          = "https://api.coingecko.com/api/v3"
	defaultAPIKeyHeader     = "x-cg-demo-api-key"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 0
	defaultRetryBackoffBase = 150 * time.Millisecond
)

// Client wraps access to the CoinGecko REST API.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	httpClient   *http.Client
	maxRetries   int
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the key attached to every upstream request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithAPIKeyHeader overrides the header carrying the API key.
func WithAPIKeyHeader(header string) Option {
	return func(c *Client) {
		if header = strings.TrimSpace(header); header != "" {
			c.apiKeyHeader = header
		}
	}
}

// WithMaxRetries adjusts the retry budget for 429/5xx/transport failures.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs a CoinGecko API client.
func NewClient(opts ...Option) *Client {
	httpClient := &http.Client{Timeout: defaultHTTPTimeout}
	client := &Client{
		baseURL:      defaultBaseURL,
		apiKeyHeader: defaultAPIKeyHeader,
		httpClient:   httpClient,
		maxRetries:   defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = httpClient
	}
	return client
}

// Markets fetches /coins/markets, always including sparkline and 1h/24h/7d changes.
func (c *Client) Markets(ctx context.Context, q market.MarketsQuery) ([]market.MarketCoin, error) {
	q = q.Normalize()
	params := url.Values{}
	params.Set("vs_currency", string(q.Currency))
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("sparkline", "true")
	params.Set("price_change_percentage", "1h,24h,7d")
	if len(q.IDs) > 0 {
		params.Set("ids", strings.Join(q.IDs, ","))
	}

	var coins []market.MarketCoin
	if err := c.doGet(ctx, "/coins/markets", params, &coins); err != nil {
		return nil, err
	}
	return market.NormalizeCoins(coins), nil
}

// Global fetches /global and unwraps its data envelope.
func (c *Client) Global(ctx context.Context) (*market.GlobalStats, error) {
	var payload market.GlobalResponse
	if err := c.doGet(ctx, "/global", nil, &payload); err != nil {
		return nil, err
	}
	return market.NormalizeGlobal(&payload.Data), nil
}

// CoinDetail fetches /coins/{id} with market data and without tickers or community data.
func (c *Client) CoinDetail(ctx context.Context, id string) (*market.CoinDetail, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")
	params.Set("sparkline", "false")

	var detail market.CoinDetail
	if err := c.doGet(ctx, "/coins/"+url.PathEscape(id), params, &detail); err != nil {
		return nil, err
	}
	if err := market.ValidateDetail(&detail); err != nil {
		return nil, fmt.Errorf("coingecko: coin %s: %w", id, err)
	}
	return &detail, nil
}

// MarketChart fetches /coins/{id}/market_chart for the lookback window.
func (c *Client) MarketChart(ctx context.Context, id string, vs market.Currency, days int) (*market.CoinChart, error) {
	params := url.Values{}
	params.Set("vs_currency", string(vs))
	params.Set("days", strconv.Itoa(days))
	params.Set("interval", market.ChartInterval(days))

	var chart market.CoinChart
	if err := c.doGet(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params, &chart); err != nil {
		return nil, err
	}
	return market.NormalizeChart(&chart), nil
}

// doGet issues a GET against path and decodes the JSON response into result.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("coingecko: build request: %w", err)
		}
		httpReq.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set(c.apiKeyHeader, c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("coingecko: %s: %w", path, err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("coingecko: read response: %w", readErr)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = &market.UpstreamError{Status: resp.StatusCode, Body: string(body)}
				if !retryableStatus(resp.StatusCode) {
					return lastErr
				}
			default:
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("coingecko: decode %s: %w: %w", path, market.ErrInvalidPayload, err)
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			logx.WithContext(ctx).Infof("coingecko: retrying %s attempt=%d err=%v", path, attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return errors.New("coingecko: request failed without error detail")
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
