package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/syncx"

	"cointrack/internal/cache"
	"cointrack/internal/config"
	"cointrack/internal/handler"
	"cointrack/internal/prefs"
	"cointrack/internal/respcache"
	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type stubUpstream struct {
	mu      sync.Mutex
	calls   int
	lastIDs []string
	err     error
}

func (s *stubUpstream) Markets(_ context.Context, q market.MarketsQuery) ([]market.MarketCoin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastIDs = q.IDs
	if s.err != nil {
		return nil, s.err
	}
	up, down := 2.5, -1.0
	coins := []market.MarketCoin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 100, MarketCap: 1000, Change24h: &up},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 50, MarketCap: 500, Change24h: &down},
	}
	if len(q.IDs) == 0 {
		return coins, nil
	}
	out := []market.MarketCoin{}
	for _, c := range coins {
		for _, id := range q.IDs {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (s *stubUpstream) Global(context.Context) (*market.GlobalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &market.GlobalStats{MarketCapPercentage: map[string]float64{"btc": 50}}, nil
}

func (s *stubUpstream) Coin(_ context.Context, q market.CoinQuery) (*market.CoinResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &market.CoinResponse{Detail: market.CoinDetail{ID: q.ID}}, nil
}

func (s *stubUpstream) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newServiceContext(upstream market.Provider) *svc.ServiceContext {
	cfg := config.Config{Env: "test"}
	cfg.Stream.Interval = time.Hour
	cfg.Stream.PerPage = 20
	return &svc.ServiceContext{
		Config:      cfg,
		Upstream:    upstream,
		Policies:    cache.NewPolicies(config.CacheTTL{}),
		Responses:   respcache.NewMemoryStore(time.Minute),
		Flights:     syncx.NewSingleFlight(),
		Preferences: prefs.NewStore(prefs.NewMemoryBackend()),
	}
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body types.MessageResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestMarketsHandler(t *testing.T) {
	upstream := &stubUpstream{}
	h := handler.MarketsHandler(newServiceContext(upstream))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/markets?vs=usd&per_page=20&page=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, s-maxage=10, stale-while-revalidate=30", rec.Header().Get("Cache-Control"))
	var coins []market.MarketCoin
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &coins))
	assert.Len(t, coins, 2)
}

func TestMarketsHandlerIDs(t *testing.T) {
	upstream := &stubUpstream{}
	h := handler.MarketsHandler(newServiceContext(upstream))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/markets?ids=ethereum,%20ethereum", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ethereum"}, upstream.lastIDs)
}

func TestMarketsHandlerUpstreamFailure(t *testing.T) {
	upstream := &stubUpstream{err: &market.UpstreamError{Status: http.StatusTooManyRequests, Body: "rate limited"}}
	h := handler.MarketsHandler(newServiceContext(upstream))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "public, s-maxage=10, stale-while-revalidate=30", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Failed to fetch markets from upstream", decodeMessage(t, rec))
	assert.NotContains(t, rec.Body.String(), "rate limited")
}

func TestMarketsHandlerUnsupportedCurrency(t *testing.T) {
	upstream := &stubUpstream{}
	h := handler.MarketsHandler(newServiceContext(upstream))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/markets?vs=eur", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported currency", decodeMessage(t, rec))
	assert.Zero(t, upstream.callCount())
}

func TestGlobalHandler(t *testing.T) {
	h := handler.GlobalHandler(newServiceContext(&stubUpstream{}))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/global", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, s-maxage=30, stale-while-revalidate=120", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"total_market_cap":null,"total_volume":null,"market_cap_percentage":{"btc":50}}}`, rec.Body.String())

	failing := handler.GlobalHandler(newServiceContext(&stubUpstream{err: &market.UpstreamError{Status: 500}}))
	rec = httptest.NewRecorder()
	failing(rec, httptest.NewRequest(http.MethodGet, "/api/global", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch global stats", decodeMessage(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
}

func TestCoinHandlerMissingID(t *testing.T) {
	upstream := &stubUpstream{}
	h := handler.CoinHandler(newServiceContext(upstream))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/coin?vs=usd&days=7", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `{"message":"Missing coin id"}`, strings.TrimSpace(rec.Body.String()))
	assert.Equal(t, "public, s-maxage=10, stale-while-revalidate=30", rec.Header().Get("Cache-Control"))
	assert.Zero(t, upstream.callCount())
}

func TestCoinHandler(t *testing.T) {
	h := handler.CoinHandler(newServiceContext(&stubUpstream{}))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/coin?id=bitcoin&days=30", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp market.CoinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bitcoin", resp.Detail.ID)

	failing := handler.CoinHandler(newServiceContext(&stubUpstream{err: &market.UpstreamError{Status: 404}}))
	rec = httptest.NewRecorder()
	failing(rec, httptest.NewRequest(http.MethodGet, "/api/coin?id=nope", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to fetch coin data", decodeMessage(t, rec))
}

func TestPreferencesHandlers(t *testing.T) {
	svcCtx := newServiceContext(&stubUpstream{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/preferences/currency", strings.NewReader(`{"currency":"idr"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.SetCurrencyHandler(svcCtx)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/preferences/watchlist/toggle", strings.NewReader(`{"id":"bitcoin"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ToggleWatchHandler(svcCtx)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.GetPreferencesHandler(svcCtx)(rec, httptest.NewRequest(http.MethodGet, "/api/preferences", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"currency":"idr","watchlist":["bitcoin"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/preferences/currency", strings.NewReader(`{"currency":"eur"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.SetCurrencyHandler(svcCtx)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported currency", decodeMessage(t, rec))
}

func TestStreamWatchlist(t *testing.T) {
	svcCtx := newServiceContext(&stubUpstream{})
	svcCtx.Preferences.ToggleWatch("ethereum")

	server := httptest.NewServer(handler.StreamWatchlistHandler(svcCtx))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(server.URL, "http://", "ws://", 1), nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := readUntil(t, conn, func(f types.StreamFrame) bool { return f.Status == "ready" })
	require.Len(t, frame.Coins, 1)
	assert.Equal(t, "ethereum", frame.Coins[0].ID)
	assert.Equal(t, []string{"ethereum"}, frame.IDs)

	svcCtx.Preferences.ToggleWatch("bitcoin")
	frame = readUntil(t, conn, func(f types.StreamFrame) bool { return f.Status == "ready" && len(f.Coins) == 2 })
	assert.Equal(t, "bitcoin", frame.Coins[0].ID)
}

func TestStreamMarketsCommands(t *testing.T) {
	svcCtx := newServiceContext(&stubUpstream{})

	server := httptest.NewServer(handler.StreamMarketsHandler(svcCtx))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(server.URL, "http://", "ws://", 1)+"?vs=usd", nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := readUntil(t, conn, func(f types.StreamFrame) bool { return f.Status == "ready" })
	require.Len(t, frame.Coins, 2)
	require.Len(t, frame.Gainers, 2)
	require.Len(t, frame.Losers, 2)
	assert.Equal(t, "bitcoin", frame.Gainers[0].ID)
	assert.Equal(t, "ethereum", frame.Losers[0].ID)

	require.NoError(t, conn.WriteJSON(types.StreamCommand{Action: "search", Term: "ETH"}))
	frame = readUntil(t, conn, func(f types.StreamFrame) bool { return f.Search == "ETH" })
	require.Len(t, frame.Coins, 1)
	assert.Equal(t, "ethereum", frame.Coins[0].ID)
	assert.Len(t, frame.Gainers, 2)

	require.NoError(t, conn.WriteJSON(types.StreamCommand{Action: "sort", Key: "market_cap"}))
	frame = readUntil(t, conn, func(f types.StreamFrame) bool { return f.Direction == "asc" })
	assert.Equal(t, "market_cap", frame.Sort)
}

func TestStreamRejectsUnsupportedCurrency(t *testing.T) {
	h := handler.StreamMarketsHandler(newServiceContext(&stubUpstream{}))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/stream/markets?vs=eur", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported currency", decodeMessage(t, rec))
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(types.StreamFrame) bool) types.StreamFrame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var frame types.StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}
