// Package respcache keeps recently fetched upstream payloads for their
// freshness window.
package respcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/stores/redis"
)

// ErrMiss is returned by Get when no live entry exists.
var ErrMiss = errors.New("respcache: miss")

// Entry is a cached, already-normalized JSON body.
type Entry struct {
	Body     []byte    `msgpack:"b"`
	StoredAt time.Time `msgpack:"t"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Store caches entries by key with a TTL.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a MemoryStore that sweeps expired entries every cleanup.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	entry, ok := v.(*Entry)
	if !ok {
		return nil, ErrMiss
	}
	return entry, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.c.Set(key, entry, ttl)
	return nil
}

// RedisStore shares entries between replicas, msgpack-encoded.
type RedisStore struct {
	rds *redis.Redis
}

func NewRedisStore(rds *redis.Redis) *RedisStore {
	return &RedisStore{rds: rds}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.rds.GetCtx(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("respcache: redis get %s: %w", key, err)
	}
	if raw == "" {
		return nil, ErrMiss
	}
	var entry Entry
	if err := msgpack.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("respcache: decode %s: %w", key, err)
	}
	return &entry, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		return nil
	}
	payload, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("respcache: encode %s: %w", key, err)
	}
	if err := r.rds.SetexCtx(ctx, key, string(payload), seconds); err != nil {
		return fmt.Errorf("respcache: redis set %s: %w", key, err)
	}
	return nil
}
