package marketsync

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"cointrack/pkg/fetcher"
	"cointrack/pkg/market"
)

// Source supplies payloads to the sync hooks. market.Provider satisfies it,
// as does HTTPSource which reads the proxy endpoints.
type Source interface {
	Markets(ctx context.Context, q market.MarketsQuery) ([]market.MarketCoin, error)
	Global(ctx context.Context) (*market.GlobalStats, error)
	Coin(ctx context.Context, q market.CoinQuery) (*market.CoinResponse, error)
}

// HTTPSource reads /api/markets, /api/global and /api/coin from a proxy.
type HTTPSource struct {
	client  *fetcher.Client
	baseURL string
}

// NewHTTPSource builds a Source rooted at baseURL, e.g. http://localhost:8888.
func NewHTTPSource(client *fetcher.Client, baseURL string) *HTTPSource {
	if client == nil {
		client = fetcher.New()
	}
	return &HTTPSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// MarketsURL renders the markets endpoint for q.
func (s *HTTPSource) MarketsURL(q market.MarketsQuery) string {
	q = q.Normalize()
	params := url.Values{}
	params.Set("vs", string(q.Currency))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))
	if len(q.IDs) > 0 {
		params.Set("ids", strings.Join(q.IDs, ","))
	}
	return s.baseURL + "/api/markets?" + params.Encode()
}

// CoinURL renders the coin endpoint for q.
func (s *HTTPSource) CoinURL(q market.CoinQuery) string {
	q = q.Normalize()
	params := url.Values{}
	params.Set("id", q.ID)
	params.Set("vs", string(q.Currency))
	params.Set("days", strconv.Itoa(q.Days))
	return s.baseURL + "/api/coin?" + params.Encode()
}

func (s *HTTPSource) Markets(ctx context.Context, q market.MarketsQuery) ([]market.MarketCoin, error) {
	coins, err := fetcher.Get[[]market.MarketCoin](ctx, s.client, s.MarketsURL(q))
	if err != nil {
		return nil, err
	}
	if coins == nil {
		coins = []market.MarketCoin{}
	}
	return coins, nil
}

func (s *HTTPSource) Global(ctx context.Context) (*market.GlobalStats, error) {
	resp, err := fetcher.Get[market.GlobalResponse](ctx, s.client, s.baseURL+"/api/global")
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (s *HTTPSource) Coin(ctx context.Context, q market.CoinQuery) (*market.CoinResponse, error) {
	resp, err := fetcher.Get[market.CoinResponse](ctx, s.client, s.CoinURL(q))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
