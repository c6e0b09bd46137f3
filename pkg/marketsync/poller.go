package marketsync

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the polling cadence for market and coin data.
const DefaultInterval = 15 * time.Second

// Status is the poller state machine position.
type Status int

const (
	Loading Status = iota
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of a poller. After a failure Data still holds the last
// successful payload when HasData is set.
type State[T any] struct {
	Status    Status
	Data      T
	HasData   bool
	Err       error
	UpdatedAt time.Time
}

// FetchFunc loads one payload.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// PollerOption configures a Poller.
type PollerOption func(*pollerConfig)

type pollerConfig struct {
	interval time.Duration
	now      func() time.Time
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) PollerOption {
	return func(cfg *pollerConfig) {
		if d > 0 {
			cfg.interval = d
		}
	}
}

// Poller fetches on Start, on every interval tick and on Refresh, until Stop.
// Fetches run sequentially on a single goroutine.
type Poller[T any] struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	fetch    FetchFunc[T]
	gen      uint64
	state    State[T]
	started  bool
	inflight context.CancelFunc

	refresh chan struct{}
	updates chan State[T]
	pubMu   sync.Mutex
	closed  bool

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller constructs an idle poller in the Loading state.
func NewPoller[T any](fetch FetchFunc[T], opts ...PollerOption) *Poller[T] {
	cfg := &pollerConfig{interval: DefaultInterval, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Poller[T]{
		interval: cfg.interval,
		now:      cfg.now,
		fetch:    fetch,
		state:    State[T]{Status: Loading},
		refresh:  make(chan struct{}, 1),
		updates:  make(chan State[T], 1),
		done:     make(chan struct{}),
	}
}

// Start begins polling with an immediate fetch. Subsequent calls are no-ops.
func (p *Poller[T]) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop cancels any in-flight fetch, ends polling and closes Updates.
// It is safe to call more than once.
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.started = true
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if started && cancel != nil {
			<-p.done
		}

		p.pubMu.Lock()
		p.closed = true
		close(p.updates)
		p.pubMu.Unlock()
	})
}

// Refresh requests an immediate fetch outside the schedule. Requests made while
// one is pending are coalesced.
func (p *Poller[T]) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Rekey swaps the fetch function, resets to Loading and fetches immediately.
// A result from the previous key that lands later is discarded.
func (p *Poller[T]) Rekey(fetch FetchFunc[T]) {
	p.mu.Lock()
	p.gen++
	p.fetch = fetch
	p.state = State[T]{Status: Loading, UpdatedAt: p.now()}
	snapshot := p.state
	running := p.started && p.cancel != nil
	if p.inflight != nil {
		p.inflight()
	}
	p.mu.Unlock()

	p.publish(snapshot)
	if running {
		p.Refresh()
	}
}

// State returns the current snapshot.
func (p *Poller[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Updates delivers the latest state after every transition. Only the most
// recent undelivered state is kept. The channel is closed by Stop.
func (p *Poller[T]) Updates() <-chan State[T] {
	return p.updates
}

func (p *Poller[T]) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}
}

func (p *Poller[T]) poll(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	fetch := p.fetch
	gen := p.gen
	p.inflight = cancel
	p.mu.Unlock()

	data, err := fetch(pollCtx)

	p.mu.Lock()
	p.inflight = nil
	if gen != p.gen || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.state.Status = Error
		p.state.Err = err
	} else {
		p.state = State[T]{Status: Ready, Data: data, HasData: true}
	}
	p.state.UpdatedAt = p.now()
	snapshot := p.state
	p.mu.Unlock()

	p.publish(snapshot)
}

func (p *Poller[T]) publish(s State[T]) {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	if p.closed {
		return
	}
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- s:
	default:
	}
}
