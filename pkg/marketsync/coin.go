package marketsync

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"cointrack/pkg/market"
)

// Range is a chart lookback window in days.
type Range string

const (
	Range1d  Range = "1"
	Range7d  Range = "7"
	Range30d Range = "30"
)

// ParseRange accepts 1, 7 or 30 and defaults to 7.
func ParseRange(raw string) Range {
	switch r := Range(strings.TrimSpace(raw)); r {
	case Range1d, Range7d, Range30d:
		return r
	default:
		return Range7d
	}
}

// Days returns the window as an integer.
func (r Range) Days() int {
	n, err := strconv.Atoi(string(ParseRange(string(r))))
	if err != nil {
		return market.DefaultDays
	}
	return n
}

// CoinKey identifies one coin detail subscription.
type CoinKey struct {
	ID       string
	Currency market.Currency
	Range    Range
}

func (k CoinKey) query() market.CoinQuery {
	return market.CoinQuery{ID: k.ID, Currency: k.Currency, Days: k.Range.Days()}.Normalize()
}

// CoinResult is the coin detail hook output.
type CoinResult struct {
	Key       CoinKey
	Detail    *market.CoinDetail
	Chart     *market.CoinChart
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// CoinSync polls one coin's detail and chart.
type CoinSync struct {
	source Source
	poller *Poller[*market.CoinResponse]

	mu     sync.Mutex
	key    CoinKey
	unbind func()
}

// NewCoinSync creates an unmounted coin subscription.
func NewCoinSync(source Source, key CoinKey, opts ...PollerOption) *CoinSync {
	c := &CoinSync{source: source, key: normalizeCoinKey(key)}
	c.poller = NewPoller(c.fetchFor(c.key), opts...)
	return c
}

func normalizeCoinKey(k CoinKey) CoinKey {
	k.ID = strings.TrimSpace(k.ID)
	if k.Currency == "" {
		k.Currency = market.DefaultCurrency
	}
	k.Range = ParseRange(string(k.Range))
	return k
}

// Start mounts the subscription.
func (c *CoinSync) Start(ctx context.Context) { c.poller.Start(ctx) }

// Stop unmounts the subscription and releases the currency binding.
func (c *CoinSync) Stop() {
	c.mu.Lock()
	unbind := c.unbind
	c.unbind = nil
	c.mu.Unlock()
	if unbind != nil {
		unbind()
	}
	c.poller.Stop()
}

// Refresh refetches immediately.
func (c *CoinSync) Refresh() { c.poller.Refresh() }

// Updates forwards poller state transitions.
func (c *CoinSync) Updates() <-chan State[*market.CoinResponse] { return c.poller.Updates() }

// Key returns the current key.
func (c *CoinSync) Key() CoinKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// SetKey switches to another coin, currency or range and fetches at once.
func (c *CoinSync) SetKey(key CoinKey) {
	key = normalizeCoinKey(key)
	c.mu.Lock()
	if key == c.key {
		c.mu.Unlock()
		return
	}
	c.key = key
	c.mu.Unlock()
	c.poller.Rekey(c.fetchFor(key))
}

// SetCurrency keeps the coin and range and switches the quote currency.
func (c *CoinSync) SetCurrency(currency market.Currency) {
	key := c.Key()
	key.Currency = currency
	c.SetKey(key)
}

// BindCurrency follows the store's display currency until Stop.
func (c *CoinSync) BindCurrency(prefs CurrencyPreferences) {
	c.SetCurrency(prefs.Currency())
	unbind := prefs.SubscribeCurrency(c.SetCurrency)
	c.mu.Lock()
	prev := c.unbind
	c.unbind = unbind
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Result returns the latest detail and chart.
func (c *CoinSync) Result() CoinResult {
	state := c.poller.State()
	res := CoinResult{
		Key:       c.Key(),
		Loading:   state.Status == Loading,
		Err:       state.Err,
		UpdatedAt: state.UpdatedAt,
	}
	if state.HasData && state.Data != nil {
		res.Detail = &state.Data.Detail
		res.Chart = &state.Data.Chart
	}
	return res
}

func (c *CoinSync) fetchFor(key CoinKey) FetchFunc[*market.CoinResponse] {
	q := key.query()
	return func(ctx context.Context) (*market.CoinResponse, error) {
		return c.source.Coin(ctx, q)
	}
}
