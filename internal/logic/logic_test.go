package logic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/syncx"

	"cointrack/internal/cache"
	"cointrack/internal/config"
	"cointrack/internal/logic"
	"cointrack/internal/prefs"
	"cointrack/internal/respcache"
	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type fakeUpstream struct {
	mu         sync.Mutex
	markets    []market.MarketsQuery
	global     int
	coins      []market.CoinQuery
	marketsErr error
	globalErr  error
	coinErr    error
	gate       chan struct{}
}

func (f *fakeUpstream) Markets(ctx context.Context, q market.MarketsQuery) ([]market.MarketCoin, error) {
	f.mu.Lock()
	f.markets = append(f.markets, q)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	return []market.MarketCoin{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 100}}, nil
}

func (f *fakeUpstream) Global(context.Context) (*market.GlobalStats, error) {
	f.mu.Lock()
	f.global++
	f.mu.Unlock()
	if f.globalErr != nil {
		return nil, f.globalErr
	}
	return &market.GlobalStats{
		TotalMarketCap:      map[string]float64{"usd": 1e12},
		TotalVolume:         map[string]float64{"usd": 5e10},
		MarketCapPercentage: map[string]float64{"btc": 52.1},
	}, nil
}

func (f *fakeUpstream) Coin(_ context.Context, q market.CoinQuery) (*market.CoinResponse, error) {
	f.mu.Lock()
	f.coins = append(f.coins, q)
	f.mu.Unlock()
	if f.coinErr != nil {
		return nil, f.coinErr
	}
	return &market.CoinResponse{
		Detail: market.CoinDetail{ID: q.ID, Symbol: "btc", Name: "Bitcoin"},
		Chart:  market.CoinChart{Prices: []market.ChartPoint{{Timestamp: 1, Price: 2}}},
	}, nil
}

func (f *fakeUpstream) marketCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.markets)
}

func (f *fakeUpstream) coinCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.coins)
}

func newServiceContext(upstream market.Provider) *svc.ServiceContext {
	return &svc.ServiceContext{
		Config:      config.Config{Env: "test"},
		Upstream:    upstream,
		Policies:    cache.NewPolicies(config.CacheTTL{}),
		Responses:   respcache.NewMemoryStore(time.Minute),
		Flights:     syncx.NewSingleFlight(),
		Preferences: prefs.NewStore(prefs.NewMemoryBackend()),
	}
}

func requireProxyError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var perr *logic.ProxyError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, status, perr.Status)
	assert.Equal(t, message, perr.Message)
}

func TestParseMarketsReq(t *testing.T) {
	tests := []struct {
		name string
		req  types.MarketsReq
		want market.MarketsQuery
	}{
		{
			name: "defaults",
			want: market.MarketsQuery{Currency: market.CurrencyUSD, PerPage: 20, Page: 1},
		},
		{
			name: "explicit values",
			req:  types.MarketsReq{Vs: "IDR", PerPage: "50", Page: "3", IDs: "bitcoin, ethereum,bitcoin"},
			want: market.MarketsQuery{Currency: market.CurrencyIDR, PerPage: 50, Page: 3, IDs: []string{"bitcoin", "ethereum"}},
		},
		{
			name: "per_page clamped high",
			req:  types.MarketsReq{PerPage: "1000"},
			want: market.MarketsQuery{Currency: market.CurrencyUSD, PerPage: 250, Page: 1},
		},
		{
			name: "per_page clamped low and page floored",
			req:  types.MarketsReq{PerPage: "0", Page: "-4"},
			want: market.MarketsQuery{Currency: market.CurrencyUSD, PerPage: 1, Page: 1},
		},
		{
			name: "non numeric falls back",
			req:  types.MarketsReq{PerPage: "lots", Page: "x"},
			want: market.MarketsQuery{Currency: market.CurrencyUSD, PerPage: 20, Page: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			got, err := logic.ParseMarketsReq(&req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := logic.ParseMarketsReq(&types.MarketsReq{Vs: "eur"})
	requireProxyError(t, err, http.StatusBadRequest, "Unsupported currency")
}

func TestParseCoinReq(t *testing.T) {
	q, err := logic.ParseCoinReq(&types.CoinReq{ID: " bitcoin "})
	require.NoError(t, err)
	assert.Equal(t, market.CoinQuery{ID: "bitcoin", Currency: market.CurrencyUSD, Days: 7}, q)

	q, err = logic.ParseCoinReq(&types.CoinReq{ID: "bitcoin", Vs: "idr", Days: "30"})
	require.NoError(t, err)
	assert.Equal(t, 30, q.Days)
	assert.Equal(t, market.CurrencyIDR, q.Currency)

	_, err = logic.ParseCoinReq(&types.CoinReq{})
	requireProxyError(t, err, http.StatusBadRequest, "Missing coin id")

	for _, days := range []string{"0", "-1", "week", "1.5"} {
		_, err = logic.ParseCoinReq(&types.CoinReq{ID: "bitcoin", Days: days})
		requireProxyError(t, err, http.StatusBadRequest, "Invalid days")
	}

	_, err = logic.ParseCoinReq(&types.CoinReq{ID: "bitcoin", Vs: "gbp"})
	requireProxyError(t, err, http.StatusBadRequest, "Unsupported currency")
}

func TestMarketsLogicCachesWithinFreshWindow(t *testing.T) {
	upstream := &fakeUpstream{}
	svcCtx := newServiceContext(upstream)
	l := logic.NewMarketsLogic(context.Background(), svcCtx)

	first, err := l.Markets(&types.MarketsReq{Vs: "usd"})
	require.NoError(t, err)
	second, err := l.Markets(&types.MarketsReq{})
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, 1, upstream.marketCalls())

	var coins []market.MarketCoin
	require.NoError(t, json.Unmarshal(first, &coins))
	require.Len(t, coins, 1)
	assert.Equal(t, "bitcoin", coins[0].ID)

	_, err = l.Markets(&types.MarketsReq{Vs: "idr"})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.marketCalls())
}

func TestMarketsLogicUpstreamStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "rate limited", err: &market.UpstreamError{Status: 429, Body: "slow down"}, status: 429},
		{name: "server error", err: &market.UpstreamError{Status: 503}, status: 503},
		{name: "transport", err: errors.New("dial tcp: refused"), status: http.StatusBadGateway},
		{name: "decode", err: market.ErrInvalidPayload, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcCtx := newServiceContext(&fakeUpstream{marketsErr: tt.err})
			_, err := logic.NewMarketsLogic(context.Background(), svcCtx).Markets(&types.MarketsReq{})
			requireProxyError(t, err, tt.status, "Failed to fetch markets from upstream")
		})
	}
}

func TestMarketsLogicFailureIsNotCached(t *testing.T) {
	upstream := &fakeUpstream{marketsErr: &market.UpstreamError{Status: 500}}
	svcCtx := newServiceContext(upstream)
	l := logic.NewMarketsLogic(context.Background(), svcCtx)

	_, err := l.Markets(&types.MarketsReq{})
	require.Error(t, err)

	upstream.mu.Lock()
	upstream.marketsErr = nil
	upstream.mu.Unlock()

	_, err = l.Markets(&types.MarketsReq{})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.marketCalls())
}

func TestMarketsLogicCollapsesConcurrentMisses(t *testing.T) {
	upstream := &fakeUpstream{gate: make(chan struct{})}
	svcCtx := newServiceContext(upstream)

	const callers = 8
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := logic.NewMarketsLogic(context.Background(), svcCtx).Markets(&types.MarketsReq{}); err != nil {
				failed.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return upstream.marketCalls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(upstream.gate)
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.Equal(t, 1, upstream.marketCalls())
}

func TestSharedFillSurvivesLeaderCancel(t *testing.T) {
	upstream := &fakeUpstream{gate: make(chan struct{})}
	svcCtx := newServiceContext(upstream)
	source := logic.NewCachedSource(svcCtx)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, err := source.Markets(leaderCtx, market.MarketsQuery{})
		leaderDone <- err
	}()
	require.Eventually(t, func() bool { return upstream.marketCalls() == 1 }, time.Second, 5*time.Millisecond)

	followerDone := make(chan error, 1)
	go func() {
		_, err := logic.NewMarketsLogic(context.Background(), svcCtx).Markets(&types.MarketsReq{})
		followerDone <- err
	}()
	time.Sleep(30 * time.Millisecond)
	cancelLeader()
	time.Sleep(20 * time.Millisecond)
	close(upstream.gate)

	require.NoError(t, <-followerDone)
	require.NoError(t, <-leaderDone)
	assert.Equal(t, 1, upstream.marketCalls())
}

func TestGlobalLogic(t *testing.T) {
	svcCtx := newServiceContext(&fakeUpstream{})
	body, err := logic.NewGlobalLogic(context.Background(), svcCtx).Global()
	require.NoError(t, err)

	var resp market.GlobalResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 52.1, resp.Data.MarketCapPercentage["btc"])

	failing := newServiceContext(&fakeUpstream{globalErr: &market.UpstreamError{Status: 502}})
	_, err = logic.NewGlobalLogic(context.Background(), failing).Global()
	requireProxyError(t, err, http.StatusBadGateway, "Failed to fetch global stats")
}

func TestCoinLogicMissingIDSkipsUpstream(t *testing.T) {
	upstream := &fakeUpstream{}
	svcCtx := newServiceContext(upstream)

	_, err := logic.NewCoinLogic(context.Background(), svcCtx).Coin(&types.CoinReq{})
	requireProxyError(t, err, http.StatusBadRequest, "Missing coin id")
	assert.Zero(t, upstream.coinCalls())
}

func TestCoinLogic(t *testing.T) {
	upstream := &fakeUpstream{}
	svcCtx := newServiceContext(upstream)

	body, err := logic.NewCoinLogic(context.Background(), svcCtx).Coin(&types.CoinReq{ID: "bitcoin", Days: "1"})
	require.NoError(t, err)

	var resp market.CoinResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "bitcoin", resp.Detail.ID)
	require.Len(t, resp.Chart.Prices, 1)
	assert.Equal(t, []market.CoinQuery{{ID: "bitcoin", Currency: market.CurrencyUSD, Days: 1}}, upstream.coins)
}

func TestCoinLogicFailureIsBadGateway(t *testing.T) {
	for _, upstreamErr := range []error{
		&market.UpstreamError{Status: 404, Body: "coin not found"},
		errors.New("timeout"),
	} {
		svcCtx := newServiceContext(&fakeUpstream{coinErr: upstreamErr})
		_, err := logic.NewCoinLogic(context.Background(), svcCtx).Coin(&types.CoinReq{ID: "nope"})
		requireProxyError(t, err, http.StatusBadGateway, "Failed to fetch coin data")
	}
}

func TestPreferencesLogic(t *testing.T) {
	svcCtx := newServiceContext(&fakeUpstream{})
	l := logic.NewPreferencesLogic(context.Background(), svcCtx)

	resp, err := l.Preferences()
	require.NoError(t, err)
	assert.Equal(t, "usd", resp.Currency)
	assert.Empty(t, resp.Watchlist)

	resp, err = l.SetCurrency(&types.SetCurrencyReq{Currency: "IDR"})
	require.NoError(t, err)
	assert.Equal(t, "idr", resp.Currency)

	_, err = l.SetCurrency(&types.SetCurrencyReq{Currency: "btc"})
	requireProxyError(t, err, http.StatusBadRequest, "Unsupported currency")

	resp, err = l.ToggleWatch(&types.ToggleWatchReq{ID: "bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, resp.Watchlist)

	resp, err = l.ToggleWatch(&types.ToggleWatchReq{ID: "bitcoin"})
	require.NoError(t, err)
	assert.Empty(t, resp.Watchlist)

	_, err = l.ToggleWatch(&types.ToggleWatchReq{ID: "  "})
	requireProxyError(t, err, http.StatusBadRequest, "Missing coin id")
}

func TestCachedSourceSharesCache(t *testing.T) {
	upstream := &fakeUpstream{}
	svcCtx := newServiceContext(upstream)
	source := logic.NewCachedSource(svcCtx)

	_, err := logic.NewMarketsLogic(context.Background(), svcCtx).Markets(&types.MarketsReq{})
	require.NoError(t, err)

	coins, err := source.Markets(context.Background(), market.MarketsQuery{})
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, 1, upstream.marketCalls())

	stats, err := source.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1e12, stats.TotalMarketCap["usd"])

	resp, err := source.Coin(context.Background(), market.CoinQuery{ID: "bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", resp.Detail.ID)

	failing := logic.NewCachedSource(newServiceContext(&fakeUpstream{marketsErr: &market.UpstreamError{Status: 429}}))
	_, err = failing.Markets(context.Background(), market.MarketsQuery{})
	requireProxyError(t, err, 429, "Failed to fetch markets from upstream")
}

func TestWarmRefreshesEntries(t *testing.T) {
	upstream := &fakeUpstream{}
	svcCtx := newServiceContext(upstream)

	plan := logic.WarmPlan{Currencies: []market.Currency{market.CurrencyUSD, market.CurrencyIDR}, Pages: 2}
	require.NoError(t, logic.Warm(context.Background(), svcCtx, plan))
	assert.Equal(t, 4, upstream.marketCalls())
	assert.Equal(t, 1, upstream.global)

	_, err := svcCtx.Responses.Get(context.Background(), cache.MarketsKey(market.MarketsQuery{Currency: market.CurrencyIDR, Page: 2}))
	require.NoError(t, err)

	// Served from the warmed entry.
	_, err = logic.NewMarketsLogic(context.Background(), svcCtx).Markets(&types.MarketsReq{Vs: "idr", Page: "2"})
	require.NoError(t, err)
	assert.Equal(t, 4, upstream.marketCalls())

	// A second run refreshes rather than reads.
	require.NoError(t, logic.Warm(context.Background(), svcCtx, plan))
	assert.Equal(t, 8, upstream.marketCalls())
}

func TestWarmJoinsFailures(t *testing.T) {
	svcCtx := newServiceContext(&fakeUpstream{
		marketsErr: &market.UpstreamError{Status: 500},
		globalErr:  errors.New("boom"),
	})
	err := logic.Warm(context.Background(), svcCtx, logic.WarmPlan{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	var ue *market.UpstreamError
	assert.ErrorAs(t, err, &ue)
}
