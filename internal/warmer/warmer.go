// Package warmer refreshes the proxy's cached upstream responses on a cron
// schedule so callers rarely wait on upstream.
package warmer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"cointrack/internal/cache"
	"cointrack/internal/logic"
	"cointrack/internal/svc"
	"cointrack/pkg/market"
)

const runTimeout = 30 * time.Second

// Warmer runs logic.Warm on a schedule. With Redis configured only one
// replica warms per run.
type Warmer struct {
	Cron   *cron.Cron
	svcCtx *svc.ServiceContext
	plan   logic.WarmPlan
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the warm job from svcCtx.Config.Warmer.
func New(ctx context.Context, svcCtx *svc.ServiceContext) (*Warmer, error) {
	cfg := svcCtx.Config.Warmer
	plan := logic.WarmPlan{Pages: cfg.Pages, PerPage: svcCtx.Config.Stream.PerPage}
	for _, raw := range cfg.Currencies {
		c, ok := market.ParseCurrency(raw)
		if !ok {
			return nil, fmt.Errorf("warmer: unsupported currency %q", raw)
		}
		plan.Currencies = append(plan.Currencies, c)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Warmer{
		Cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		svcCtx: svcCtx,
		plan:   plan,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := w.Cron.AddFunc(cfg.Spec, w.RunNow); err != nil {
		cancel()
		return nil, fmt.Errorf("warmer: register %q: %w", cfg.Spec, err)
	}
	return w, nil
}

// Start starts the cron scheduler.
func (w *Warmer) Start() {
	w.Cron.Start()
	logx.Infof("warmer started currencies=%v pages=%d", w.plan.Currencies, max(w.plan.Pages, 1))
}

// Stop cancels a running warm and waits for it to return.
func (w *Warmer) Stop() {
	w.cancel()
	<-w.Cron.Stop().Done()
	logx.Info("warmer stopped")
}

// RunNow executes one warm run immediately.
func (w *Warmer) RunNow() {
	ctx, cancel := context.WithTimeout(w.ctx, runTimeout)
	defer cancel()

	if w.svcCtx.Redis != nil {
		lock := redis.NewRedisLock(w.svcCtx.Redis, cache.WarmLockKey())
		lock.SetExpire(int(runTimeout / time.Second))
		ok, err := lock.AcquireCtx(ctx)
		if err != nil {
			logx.WithContext(ctx).Errorf("warmer: acquire lock: %v", err)
			return
		}
		if !ok {
			logx.WithContext(ctx).Info("warmer: another replica holds the lock, skipping")
			return
		}
		defer func() {
			if _, err := lock.ReleaseCtx(context.Background()); err != nil {
				logx.Errorf("warmer: release lock: %v", err)
			}
		}()
	}

	start := time.Now()
	if err := logic.Warm(ctx, w.svcCtx, w.plan); err != nil {
		logx.WithContext(ctx).Errorf("warmer: run failed after %dms: %v", time.Since(start).Milliseconds(), err)
		return
	}
	logx.WithContext(ctx).Infof("warmer: run ok, took %dms", time.Since(start).Milliseconds())
}
