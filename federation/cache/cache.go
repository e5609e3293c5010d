// Package cache implements the EntityCache contract (spec §4.4/§6): a
// fingerprint-keyed store for _entities resolution results, with
// at-most-one-in-flight-fetch-per-fingerprint semantics and Cache-Control
// aware TTLs.
package cache

import (
	"context"
	"time"
)

// Entry is a cached entity-partition response body plus the Cache-Control
// metadata it was stored with.
type Entry struct {
	Body         []byte
	CacheControl CacheControl
	StoredAt     time.Time
}

// EntityCache is the contract every EntityCache implementation (in-memory
// or otherwise) satisfies.
type EntityCache interface {
	// Get returns the cached Entry for fingerprint, and whether it was
	// found and is still within its TTL.
	Get(ctx context.Context, fingerprint uint64) (Entry, bool, error)

	// Set stores entry under fingerprint for ttl. A ttl of zero or less
	// stores nothing (matches a no-store/private Cache-Control response).
	Set(ctx context.Context, fingerprint uint64, entry Entry, ttl time.Duration) error

	// GetOrFetch returns the cached Entry for fingerprint if present and
	// fresh; otherwise it calls fetch at most once even under concurrent
	// callers sharing the same fingerprint, stores the result according to
	// the Cache-Control the fetch reports, and returns it.
	GetOrFetch(ctx context.Context, fingerprint uint64, fetch func(ctx context.Context) (Entry, error)) (Entry, error)
}
