// Package prefs holds the process-wide display currency and watchlist.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/cache"
	"cointrack/pkg/market"
)

const backendTimeout = 2 * time.Second

// ErrUnsupportedCurrency is returned by SetCurrency for codes outside the closed set.
var ErrUnsupportedCurrency = errors.New("prefs: unsupported currency")

// Backend is durable string key-value storage.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Option configures a Store.
type Option func(*Store)

// WithScope namespaces the keys, e.g. per user.
func WithScope(scope string) Option {
	return func(s *Store) {
		s.currencyKey = cache.PrefCurrencyKey(scope)
		s.watchlistKey = cache.PrefWatchlistKey(scope)
	}
}

// Store keeps the in-memory values authoritative and writes through to the
// backend on every change. Backend failures are logged, never returned.
type Store struct {
	backend      Backend
	currencyKey  string
	watchlistKey string

	mu        sync.RWMutex
	currency  market.Currency
	watchlist map[string]struct{}

	// commitMu orders memory updates, backend writes and queued notices
	commitMu sync.Mutex

	noticeMu sync.Mutex
	notices  []func()
	draining bool

	subMu   sync.Mutex
	nextSub uint64
	curSubs map[uint64]func(market.Currency)
	wlSubs  map[uint64]func([]string)
}

// NewStore reads both preferences once, falling back to usd and an empty
// watchlist when absent or unreadable.
func NewStore(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend:      backend,
		currencyKey:  cache.PrefCurrencyKey(""),
		watchlistKey: cache.PrefWatchlistKey(""),
		currency:     market.DefaultCurrency,
		watchlist:    map[string]struct{}{},
		curSubs:      map[uint64]func(market.Currency){},
		wlSubs:       map[uint64]func([]string){},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func (s *Store) load() {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	if raw, ok, err := s.backend.Get(ctx, s.currencyKey); err != nil {
		logx.WithContext(ctx).Errorf("prefs: read %s: %v", s.currencyKey, err)
	} else if ok {
		if c, valid := market.ParseCurrency(raw); valid {
			s.currency = c
		} else {
			logx.WithContext(ctx).Infof("prefs: ignoring stored currency %q", raw)
		}
	}

	if raw, ok, err := s.backend.Get(ctx, s.watchlistKey); err != nil {
		logx.WithContext(ctx).Errorf("prefs: read %s: %v", s.watchlistKey, err)
	} else if ok {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			logx.WithContext(ctx).Infof("prefs: ignoring stored watchlist: %v", err)
		} else {
			s.watchlist = toSet(ids)
		}
	}
}

// Currency returns the display currency.
func (s *Store) Currency() market.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// SetCurrency persists c and notifies currency subscribers.
func (s *Store) SetCurrency(c market.Currency) error {
	code, ok := market.ParseCurrency(string(c))
	if !ok {
		return ErrUnsupportedCurrency
	}
	s.commitMu.Lock()
	s.mu.Lock()
	s.currency = code
	s.mu.Unlock()
	s.persist(s.currencyKey, string(code))
	s.enqueue(func() {
		for _, fn := range s.currencySubscribers() {
			fn(code)
		}
	})
	s.commitMu.Unlock()

	s.drain()
	return nil
}

// Watchlist returns the watched ids in sorted order.
func (s *Store) Watchlist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.watchlist)
}

// Contains reports whether id is watched.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.watchlist[cleanID(id)]
	return ok
}

// SetWatchlist replaces the watchlist.
func (s *Store) SetWatchlist(ids []string) []string {
	next := toSet(ids)
	s.commitMu.Lock()
	s.mu.Lock()
	s.watchlist = next
	out := sortedIDs(next)
	s.mu.Unlock()
	s.commitWatchlist(out)
	s.commitMu.Unlock()

	s.drain()
	return out
}

// ToggleWatch flips membership of id, persists the full set and returns it.
func (s *Store) ToggleWatch(id string) []string {
	id = cleanID(id)
	if id == "" {
		return s.Watchlist()
	}
	s.commitMu.Lock()
	s.mu.Lock()
	if _, ok := s.watchlist[id]; ok {
		delete(s.watchlist, id)
	} else {
		s.watchlist[id] = struct{}{}
	}
	out := sortedIDs(s.watchlist)
	s.mu.Unlock()
	s.commitWatchlist(out)
	s.commitMu.Unlock()

	s.drain()
	return out
}

// commitWatchlist must be called with commitMu held.
func (s *Store) commitWatchlist(ids []string) {
	payload, err := json.Marshal(ids)
	if err != nil {
		logx.Errorf("prefs: encode watchlist: %v", err)
	} else {
		s.persist(s.watchlistKey, string(payload))
	}
	s.enqueue(func() {
		for _, fn := range s.watchlistSubscribers() {
			out := make([]string, len(ids))
			copy(out, ids)
			fn(out)
		}
	})
}

// enqueue must be called with commitMu held so notices keep commit order.
func (s *Store) enqueue(notice func()) {
	s.noticeMu.Lock()
	s.notices = append(s.notices, notice)
	s.noticeMu.Unlock()
}

// drain runs queued notices outside every lock. A drain already in progress,
// including one further up the stack of a subscriber that writes back, picks
// up the new notices instead.
func (s *Store) drain() {
	s.noticeMu.Lock()
	if s.draining {
		s.noticeMu.Unlock()
		return
	}
	s.draining = true
	for len(s.notices) > 0 {
		notice := s.notices[0]
		s.notices = s.notices[1:]
		s.noticeMu.Unlock()
		notice()
		s.noticeMu.Lock()
	}
	s.draining = false
	s.noticeMu.Unlock()
}

func (s *Store) persist(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := s.backend.Set(ctx, key, value); err != nil {
		logx.WithContext(ctx).Errorf("prefs: write %s: %v", key, err)
	}
}

// SubscribeCurrency registers fn for currency changes. The returned function
// removes exactly this registration and may be called any number of times.
func (s *Store) SubscribeCurrency(fn func(market.Currency)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.curSubs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.curSubs, id)
		s.subMu.Unlock()
	}
}

// SubscribeWatchlist registers fn for watchlist changes.
func (s *Store) SubscribeWatchlist(fn func([]string)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.wlSubs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.wlSubs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) currencySubscribers() []func(market.Currency) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return orderedSubs(s.curSubs)
}

func (s *Store) watchlistSubscribers() []func([]string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return orderedSubs(s.wlSubs)
}

// orderedSubs returns callbacks in registration order.
func orderedSubs[F any](subs map[uint64]F) []F {
	keys := make([]uint64, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]F, 0, len(keys))
	for _, k := range keys {
		out = append(out, subs[k])
	}
	return out
}

func cleanID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = cleanID(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
