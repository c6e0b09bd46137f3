package marketsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cointrack/pkg/market"
)

func TestParseRange(t *testing.T) {
	assert.Equal(t, Range1d, ParseRange("1"))
	assert.Equal(t, Range30d, ParseRange(" 30 "))
	assert.Equal(t, Range7d, ParseRange("90"))
	assert.Equal(t, Range7d, ParseRange(""))
	assert.Equal(t, 1, Range1d.Days())
	assert.Equal(t, 7, Range("bogus").Days())
}

func TestCoinSyncFetchesAndRekeys(t *testing.T) {
	src := &fakeSource{coinResp: &market.CoinResponse{
		Detail: market.CoinDetail{ID: "bitcoin", Name: "Bitcoin"},
		Chart:  market.CoinChart{Prices: []market.ChartPoint{{Timestamp: 1, Price: 2}}},
	}}
	c := NewCoinSync(src, CoinKey{ID: "bitcoin"}, WithInterval(time.Hour))
	assert.True(t, c.Result().Loading)
	assert.Equal(t, CoinKey{ID: "bitcoin", Currency: market.CurrencyUSD, Range: Range7d}, c.Key())

	c.Start(context.Background())
	defer c.Stop()

	var res CoinResult
	require.Eventually(t, func() bool {
		res = c.Result()
		return !res.Loading
	}, 2*time.Second, 5*time.Millisecond)
	require.NotNil(t, res.Detail)
	assert.Equal(t, "Bitcoin", res.Detail.Name)
	assert.Len(t, res.Chart.Prices, 1)
	assert.Equal(t, []market.CoinQuery{{ID: "bitcoin", Currency: market.CurrencyUSD, Days: 7}}, src.coinQueries())

	c.SetKey(CoinKey{ID: "bitcoin", Currency: market.CurrencyIDR, Range: Range1d})
	require.Eventually(t, func() bool { return len(src.coinQueries()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, market.CoinQuery{ID: "bitcoin", Currency: market.CurrencyIDR, Days: 1}, src.coinQueries()[1])

	c.SetKey(CoinKey{ID: "bitcoin", Currency: market.CurrencyIDR, Range: Range1d})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, src.coinQueries(), 2, "same key does not refetch")

	c.Refresh()
	require.Eventually(t, func() bool { return len(src.coinQueries()) == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestCoinSyncBindCurrency(t *testing.T) {
	src := &fakeSource{coinResp: &market.CoinResponse{Detail: market.CoinDetail{ID: "bitcoin"}}}
	prefs := newFakePrefs()
	prefs.currency = market.CurrencyIDR

	c := NewCoinSync(src, CoinKey{ID: "bitcoin", Range: Range30d}, WithInterval(time.Hour))
	c.BindCurrency(prefs)
	assert.Equal(t, CoinKey{ID: "bitcoin", Currency: market.CurrencyIDR, Range: Range30d}, c.Key())
	assert.Equal(t, 1, prefs.subscribers())

	c.Start(context.Background())
	require.Eventually(t, func() bool { return len(src.coinQueries()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, market.CurrencyIDR, src.coinQueries()[0].Currency)

	prefs.setCurrency(market.CurrencyUSD)
	require.Eventually(t, func() bool { return len(src.coinQueries()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, market.CoinQuery{ID: "bitcoin", Currency: market.CurrencyUSD, Days: 30}, src.coinQueries()[1])
	assert.Equal(t, market.CurrencyUSD, c.Key().Currency)

	c.Stop()
	assert.Equal(t, 0, prefs.subscribers(), "stop releases the binding")
}

func TestGlobalSyncPolls(t *testing.T) {
	src := &fakeSource{global: &market.GlobalStats{TotalMarketCap: map[string]float64{"usd": 1}}}
	g := NewGlobalSync(src)
	assert.Equal(t, GlobalInterval, g.poller.interval)

	g.Start(context.Background())
	defer g.Stop()
	require.Eventually(t, func() bool { return g.State().Status == Ready }, 2*time.Second, 5*time.Millisecond)
	assert.InDelta(t, 1, g.State().Data.TotalMarketCap["usd"], 1e-9)
}
