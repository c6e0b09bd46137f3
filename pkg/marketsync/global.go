package marketsync

import (
	"context"
	"time"

	"cointrack/pkg/market"
)

// GlobalInterval is the slower cadence for aggregate stats.
const GlobalInterval = 30 * time.Second

// GlobalSync polls aggregate market stats.
type GlobalSync struct {
	poller *Poller[*market.GlobalStats]
}

// NewGlobalSync creates an unmounted global stats subscription polling every
// GlobalInterval unless overridden.
func NewGlobalSync(source Source, opts ...PollerOption) *GlobalSync {
	opts = append([]PollerOption{WithInterval(GlobalInterval)}, opts...)
	return &GlobalSync{poller: NewPoller[*market.GlobalStats](source.Global, opts...)}
}

func (g *GlobalSync) Start(ctx context.Context) { g.poller.Start(ctx) }

func (g *GlobalSync) Stop() { g.poller.Stop() }

func (g *GlobalSync) Refresh() { g.poller.Refresh() }

// State returns the latest snapshot.
func (g *GlobalSync) State() State[*market.GlobalStats] { return g.poller.State() }

func (g *GlobalSync) Updates() <-chan State[*market.GlobalStats] { return g.poller.Updates() }
