package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/respcache"
	"cointrack/internal/svc"
)

// fillTimeout bounds a shared load once it is detached from the caller.
const fillTimeout = 15 * time.Second

// upstreamCall describes one cacheable upstream read.
type upstreamCall struct {
	key  string
	ttl  time.Duration
	load func(ctx context.Context) (any, error)
}

// cached serves a live cache entry, or loads and stores a fresh body.
func (c upstreamCall) cached(ctx context.Context, svcCtx *svc.ServiceContext) (json.RawMessage, error) {
	entry, err := svcCtx.Responses.Get(ctx, c.key)
	switch {
	case err == nil:
		logx.WithContext(ctx).Debugf("respcache hit key=%s age=%s", c.key, entry.Age(time.Now()))
		return json.RawMessage(entry.Body), nil
	case !errors.Is(err, respcache.ErrMiss):
		logx.WithContext(ctx).Errorf("respcache get key=%s err=%v", c.key, err)
	}
	return c.fill(ctx, svcCtx)
}

// fill loads from upstream and overwrites the cache entry. Concurrent fills
// of one key share a single upstream call, which outlives the caller that
// started it so waiting callers are not failed by its cancellation.
func (c upstreamCall) fill(ctx context.Context, svcCtx *svc.ServiceContext) (json.RawMessage, error) {
	v, err := svcCtx.Flights.Do(c.key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		payload, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.key, err)
		}
		entry := &respcache.Entry{Body: body, StoredAt: time.Now()}
		if err := svcCtx.Responses.Set(ctx, c.key, entry, c.ttl); err != nil {
			logx.WithContext(ctx).Errorf("respcache set key=%s err=%v", c.key, err)
		}
		return json.RawMessage(body), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}
