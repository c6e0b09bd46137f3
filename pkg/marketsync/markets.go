package marketsync

import (
	"context"
	"slices"
	"sync"
	"time"

	"cointrack/pkg/market"
)

// Params keys a market subscription. In watchlist mode IDs restricts the
// listing and an empty list resolves to no coins without a request.
type Params struct {
	Currency  market.Currency
	PerPage   int
	Page      int
	IDs       []string
	Watchlist bool
}

func (p Params) normalize() Params {
	q := market.MarketsQuery{Currency: p.Currency, PerPage: p.PerPage, Page: p.Page, IDs: p.IDs}.Normalize()
	p.Currency, p.PerPage, p.Page, p.IDs = q.Currency, q.PerPage, q.Page, q.IDs
	if p.Watchlist && len(p.IDs) > p.PerPage {
		p.PerPage = min(len(p.IDs), market.MaxPerPage)
	}
	return p
}

func (p Params) equal(o Params) bool {
	return p.Currency == o.Currency && p.PerPage == o.PerPage && p.Page == o.Page &&
		p.Watchlist == o.Watchlist && slices.Equal(p.IDs, o.IDs)
}

// Preferences is the subset of the preference store MarketSync follows.
type Preferences interface {
	CurrencyPreferences
	Watchlist() []string
	SubscribeWatchlist(fn func([]string)) func()
}

// CurrencyPreferences is the display-currency half of Preferences.
type CurrencyPreferences interface {
	Currency() market.Currency
	SubscribeCurrency(fn func(market.Currency)) func()
}

// Result is what a consumer renders: the raw payload plus its derived view.
type Result struct {
	Status    Status
	Err       error
	Params    Params
	Query     Query
	Payload   []market.MarketCoin
	View      View
	UpdatedAt time.Time
}

// Loading reports whether no payload is available yet.
func (r Result) Loading() bool {
	return r.Status == Loading
}

// MarketSync keeps one market listing fresh and derives sorted, filtered and
// mover views from it.
type MarketSync struct {
	source Source
	poller *Poller[[]market.MarketCoin]

	mu     sync.Mutex
	params Params
	query  Query
	unbind []func()

	changes chan struct{}
	wg      sync.WaitGroup
}

// NewMarketSync creates an unmounted subscription. Call Start to begin polling.
func NewMarketSync(source Source, params Params, opts ...PollerOption) *MarketSync {
	m := &MarketSync{
		source:  source,
		params:  params.normalize(),
		query:   DefaultQuery(),
		changes: make(chan struct{}, 1),
	}
	m.poller = NewPoller(m.fetchFor(m.params), opts...)
	return m
}

// Start mounts the subscription.
func (m *MarketSync) Start(ctx context.Context) {
	m.poller.Start(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for range m.poller.Updates() {
			m.notify()
		}
	}()
}

// Stop unmounts the subscription and releases preference bindings.
func (m *MarketSync) Stop() {
	m.mu.Lock()
	unbind := m.unbind
	m.unbind = nil
	m.mu.Unlock()
	for _, fn := range unbind {
		fn()
	}
	m.poller.Stop()
	m.wg.Wait()
}

// Changes signals that Result may have changed. Signals are coalesced.
func (m *MarketSync) Changes() <-chan struct{} {
	return m.changes
}

// Refresh forces an immediate refetch.
func (m *MarketSync) Refresh() {
	m.poller.Refresh()
}

// Result derives the current view from the latest payload and query.
func (m *MarketSync) Result() Result {
	state := m.poller.State()
	m.mu.Lock()
	params, query := m.params, m.query
	m.mu.Unlock()

	payload := state.Data
	if payload == nil {
		payload = []market.MarketCoin{}
	}
	return Result{
		Status:    state.Status,
		Err:       state.Err,
		Params:    params,
		Query:     query,
		Payload:   payload,
		View:      Derive(payload, query),
		UpdatedAt: state.UpdatedAt,
	}
}

// Query returns the active sort/filter state.
func (m *MarketSync) Query() Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// SetQuery replaces the sort/filter state. No refetch happens.
func (m *MarketSync) SetQuery(q Query) {
	m.mu.Lock()
	m.query = q.normalize()
	m.mu.Unlock()
	m.notify()
}

// ToggleSort applies Query.Toggle for key.
func (m *MarketSync) ToggleSort(key SortKey) Query {
	m.mu.Lock()
	m.query = m.query.Toggle(key)
	q := m.query
	m.mu.Unlock()
	m.notify()
	return q
}

// SetSearch updates the search term.
func (m *MarketSync) SetSearch(term string) {
	m.mu.Lock()
	m.query.Search = term
	m.mu.Unlock()
	m.notify()
}

// Params returns the current subscription key.
func (m *MarketSync) Params() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// SetParams rekeys the subscription. Equal params are a no-op.
func (m *MarketSync) SetParams(p Params) {
	p = p.normalize()
	m.mu.Lock()
	if p.equal(m.params) {
		m.mu.Unlock()
		return
	}
	m.params = p
	m.mu.Unlock()
	m.poller.Rekey(m.fetchFor(p))
}

// SetCurrency rekeys with a new display currency.
func (m *MarketSync) SetCurrency(c market.Currency) {
	p := m.Params()
	p.Currency = c
	m.SetParams(p)
}

// SetIDs rekeys with a new id filter.
func (m *MarketSync) SetIDs(ids []string) {
	p := m.Params()
	p.IDs = ids
	m.SetParams(p)
}

// BindPreferences follows the store's currency and, in watchlist mode, its
// watchlist. Bindings are released by Stop.
func (m *MarketSync) BindPreferences(prefs Preferences) {
	p := m.Params()
	p.Currency = prefs.Currency()
	if p.Watchlist {
		p.IDs = prefs.Watchlist()
	}
	m.SetParams(p)

	unbind := []func(){prefs.SubscribeCurrency(m.SetCurrency)}
	if p.Watchlist {
		unbind = append(unbind, prefs.SubscribeWatchlist(m.SetIDs))
	}
	m.mu.Lock()
	m.unbind = append(m.unbind, unbind...)
	m.mu.Unlock()
}

func (m *MarketSync) fetchFor(p Params) FetchFunc[[]market.MarketCoin] {
	if p.Watchlist && len(p.IDs) == 0 {
		return func(context.Context) ([]market.MarketCoin, error) {
			return []market.MarketCoin{}, nil
		}
	}
	q := market.MarketsQuery{Currency: p.Currency, PerPage: p.PerPage, Page: p.Page, IDs: p.IDs}
	return func(ctx context.Context) ([]market.MarketCoin, error) {
		return m.source.Markets(ctx, q)
	}
}

func (m *MarketSync) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}
