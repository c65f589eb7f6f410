package authz

import (
	"context"
	"sync"
	"time"

	"github.com/diewo77/gatepass/internal/clock"
)

// CachedResolver wraps a ProfileResolver with TTL-based caching so that
// role lookups do not hit the database on every request.
type CachedResolver[K comparable] struct {
	inner ProfileResolver[K]
	clk   clock.Clock
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[K]cacheEntry
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// NewCachedResolver wraps inner. Expiry is measured on clk.
func NewCachedResolver[K comparable](inner ProfileResolver[K], ttl time.Duration, clk clock.Clock) *CachedResolver[K] {
	if clk == nil {
		clk = clock.Real()
	}
	return &CachedResolver[K]{
		inner: inner,
		clk:   clk,
		ttl:   ttl,
		cache: make(map[K]cacheEntry),
	}
}

// Resolve returns the cached profile for key, fetching it on miss or expiry.
// Errors are not cached.
func (r *CachedResolver[K]) Resolve(ctx context.Context, key K) (Profile, error) {
	now := r.clk.Now()

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = cacheEntry{profile: profile, expiresAt: now.Add(r.ttl)}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate drops key from the cache.
func (r *CachedResolver[K]) Invalidate(key K) {
	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()
}

// InvalidateAll clears the cache. Call after role capabilities change.
func (r *CachedResolver[K]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[K]cacheEntry)
	r.mu.Unlock()
}
