// Package cache provides a keyed TTL cache with single-flight computation.
//
// It backs the weather query cache and the device status aggregator, which
// only ever perform idempotent reads, so the cache never needs invalidation
// hooks, just expiry. Expiry is evaluated lazily at read time; a periodic
// sweep (StartSweep) bounds memory growth but is not needed for correctness.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is a cached value with its expiry deadline.
type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a string-keyed TTL cache.
//
// All methods are safe for concurrent use. Computations triggered through
// GetOrCompute are deduplicated per key: concurrent callers for the same
// missing or expired key share a single in-flight computation, while
// lookups for distinct keys never serialise against each other.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	flight  singleflight.Group
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key.
// An entry past its TTL is treated as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL, replacing any existing entry.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes the entry for key, if any.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for key, computing and caching it
// on a miss.
//
// The computation is single-flight: under concurrent callers for the same
// missing key, compute runs once and every caller receives its result. If
// compute fails, the error is returned to all waiting callers and nothing
// is cached; the next call starts a fresh computation. Errors are never
// cached as values.
//
// The flight is detached from the initiating caller's cancellation: its
// result is shared by every joiner (and the cache itself), so one caller
// disconnecting must not fail or corrupt the value the others receive.
// compute keeps the caller's values but must bound its own work (request
// timeouts, client deadlines).
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A previous flight may have filled the entry while this caller
		// was queued behind it.
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Len returns the number of stored entries, including any not yet swept
// expired ones.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweep launches a background goroutine that periodically removes
// expired entries. It stops when ctx is cancelled.
//
// Sweeping only bounds memory; reads already ignore expired entries.
func (c *Cache[V]) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// sweep removes every expired entry.
func (c *Cache[V]) sweep() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
