// Package cache provides the TTL-expiring key/value layer behind the query
// and baseline caches. Storage backends are swappable behind the Store
// interface; TTL policy is applied per namespace by Cache, so the same
// backend can serve the daily query cache and the weekly baseline cache.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Entry is one stored record: a creation timestamp plus its payload. Payloads
// are JSON documents; the file backend embeds them verbatim so cached entries
// stay human-readable on disk.
type Entry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	Payload   []byte    `json:"payload"`
}

// Store is a storage backend. Get returns (nil, nil) when no entry exists;
// implementations also return (nil, nil) for entries they cannot parse, so a
// partially overwritten record reads as absent rather than failing.
type Store interface {
	Get(ctx context.Context, namespace, key string) (*Entry, error)
	Put(ctx context.Context, namespace, key string, payload []byte) error
	Invalidate(ctx context.Context, namespace, key string) error
	Close() error
}

// Cache applies one TTL policy to one namespace of a Store. All operations
// are best-effort: storage failures are logged and reported as misses or
// dropped writes, never as errors, so a broken cache degrades to
// recompute-every-time.
type Cache struct {
	store     Store
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a Cache over the given namespace with the given TTL.
func New(store Store, namespace string, ttl time.Duration) *Cache {
	return &Cache{store: store, namespace: namespace, ttl: ttl, now: time.Now}
}

// Get returns the payload for key, or ok=false when the entry is missing,
// stale, or unreadable. Callers cannot distinguish the three; all mean
// "recompute."
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, err := c.store.Get(ctx, c.namespace, key)
	if err != nil {
		zap.L().Warn("cache read failed",
			zap.String("namespace", c.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	if c.now().Sub(entry.CreatedAt) > c.ttl {
		return nil, false
	}
	return entry.Payload, true
}

// Put stores payload under key, overwriting any previous entry. Failures are
// logged and swallowed.
func (c *Cache) Put(ctx context.Context, key string, payload []byte) {
	if err := c.store.Put(ctx, c.namespace, key, payload); err != nil {
		zap.L().Warn("cache write failed",
			zap.String("namespace", c.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Invalidate(ctx, c.namespace, key); err != nil {
		zap.L().Warn("cache invalidate failed",
			zap.String("namespace", c.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
