package logic

import (
	"context"
	"encoding/json"
	"fmt"

	"cointrack/internal/svc"
	"cointrack/pkg/market"
)

// CachedSource feeds in-process sync hooks through the proxy's response
// cache, so stream subscribers share upstream calls with HTTP callers.
type CachedSource struct {
	svcCtx *svc.ServiceContext
}

func NewCachedSource(svcCtx *svc.ServiceContext) *CachedSource {
	return &CachedSource{svcCtx: svcCtx}
}

func (s *CachedSource) Markets(ctx context.Context, q market.MarketsQuery) ([]market.MarketCoin, error) {
	body, err := marketsCall(s.svcCtx, q.Normalize()).cached(ctx, s.svcCtx)
	if err != nil {
		return nil, upstreamFailure(err, msgMarketsFailed)
	}
	coins := []market.MarketCoin{}
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("decode cached markets: %w", err)
	}
	return coins, nil
}

func (s *CachedSource) Global(ctx context.Context) (*market.GlobalStats, error) {
	body, err := globalCall(s.svcCtx).cached(ctx, s.svcCtx)
	if err != nil {
		return nil, upstreamFailure(err, msgGlobalFailed)
	}
	var resp market.GlobalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode cached global: %w", err)
	}
	return &resp.Data, nil
}

func (s *CachedSource) Coin(ctx context.Context, q market.CoinQuery) (*market.CoinResponse, error) {
	body, err := coinCall(s.svcCtx, q.Normalize()).cached(ctx, s.svcCtx)
	if err != nil {
		return nil, upstreamFailure(err, msgCoinFailed)
	}
	var resp market.CoinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode cached coin: %w", err)
	}
	return &resp, nil
}
