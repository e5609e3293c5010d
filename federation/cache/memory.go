package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// MemoryCache is an in-process EntityCache. It keeps its live snapshot
// behind an atomic.Value the way gateway/engine.go hot-swaps the schema
// store, so readers never block on the eviction sweep, and uses
// singleflight so a burst of identical requests against the same
// fingerprint only ever triggers one subgraph fetch.
type MemoryCache struct {
	snapshot atomic.Value // map[uint64]Entry
	group    singleflight.Group
	mu       sync.Mutex // guards read-modify-write of snapshot
}

// NewMemoryCache returns an empty, ready-to-use MemoryCache.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{}
	c.snapshot.Store(make(map[uint64]Entry))
	return c
}

func (c *MemoryCache) Get(_ context.Context, fingerprint uint64) (Entry, bool, error) {
	entries := c.snapshot.Load().(map[uint64]Entry)
	entry, ok := entries[fingerprint]
	if !ok {
		return Entry{}, false, nil
	}
	if c.expired(entry) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, fingerprint uint64, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	entry.CacheControl.MaxAge = ttl

	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.snapshot.Load().(map[uint64]Entry)
	next := make(map[uint64]Entry, len(old)+1)
	for k, v := range old {
		if !c.expired(v) {
			next[k] = v
		}
	}
	next[fingerprint] = entry
	c.snapshot.Store(next)
	return nil
}

func (c *MemoryCache) GetOrFetch(ctx context.Context, fingerprint uint64, fetch func(ctx context.Context) (Entry, error)) (Entry, error) {
	if entry, ok, err := c.Get(ctx, fingerprint); err == nil && ok {
		return entry, nil
	}

	key := keyFor(fingerprint)
	v, err, _ := c.group.Do(key, func() (any, error) {
		entry, err := fetch(ctx)
		if err != nil {
			return Entry{}, err
		}
		ttl := entry.CacheControl.EffectiveTTL(0)
		if ttl > 0 {
			_ = c.Set(ctx, fingerprint, entry, ttl)
		}
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (c *MemoryCache) expired(e Entry) bool {
	if e.CacheControl.MaxAge <= 0 {
		return false
	}
	return time.Since(e.StoredAt) > e.CacheControl.MaxAge
}

func keyFor(fingerprint uint64) string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hextable[fingerprint&0xf]
		fingerprint >>= 4
	}
	return string(buf)
}
