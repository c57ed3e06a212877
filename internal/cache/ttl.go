// Package cache provides a concurrent-safe key-value store with TTL expiry
// and an optional LRU capacity bound.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats contains cache performance statistics.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Evicted int64   `json:"evicted"`
	HitRate float64 `json:"hit_rate"`
}

type entry[V any] struct {
	value    V
	expires  time.Time
	lastUsed uint64
}

// TTL maps keys to values that expire ttl after their last Set. A positive
// maxEntries evicts the least recently used entry when full.
type TTL[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*entry[V]
	ttl        time.Duration
	maxEntries int
	tick       uint64
	now        func() time.Time
	onEvict    func(K, V)

	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64
}

// Option configures a TTL cache.
type Option[K comparable, V any] func(*TTL[K, V])

// WithClock overrides time.Now.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *TTL[K, V]) { c.now = now }
}

// WithMaxEntries bounds the number of live entries.
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *TTL[K, V]) { c.maxEntries = n }
}

// WithOnEvict registers a callback run (outside the lock) for every entry
// removed by expiry or capacity eviction.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *TTL[K, V]) { c.onEvict = fn }
}

// New creates a TTL cache.
func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *TTL[K, V] {
	c := &TTL[K, V]{
		entries: make(map[K]*entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the live value for key.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expires) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.misses.Add(1)
		c.evict(key, e.value)
		var zero V
		return zero, false
	}
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.tick++
	e.lastUsed = c.tick
	v := e.value
	c.mu.Unlock()
	c.hits.Add(1)
	return v, true
}

// Set stores value under key and resets its expiry.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.tick++
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = c.now().Add(c.ttl)
		e.lastUsed = c.tick
		c.mu.Unlock()
		return
	}

	var victimKey K
	var victim *entry[V]
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		for k, e := range c.entries {
			if victim == nil || e.lastUsed < victim.lastUsed {
				victimKey, victim = k, e
			}
		}
		delete(c.entries, victimKey)
	}
	c.entries[key] = &entry[V]{value: value, expires: c.now().Add(c.ttl), lastUsed: c.tick}
	c.mu.Unlock()

	if victim != nil {
		c.evict(victimKey, victim.value)
	}
}

// GetOrSet returns the live value for key, storing the result of create when
// there is none.
func (c *TTL[K, V]) GetOrSet(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !c.now().After(e.expires) {
		c.mu.Unlock()
		return e.value
	}
	c.mu.Unlock()
	v := create()
	c.Set(key, v)
	return v
}

// Delete removes key without running the eviction callback.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TTL[K, V]) Sweep() int {
	now := c.now()
	type kv struct {
		k K
		v V
	}
	var removed []kv

	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
			removed = append(removed, kv{k, e.value})
		}
	}
	c.mu.Unlock()

	for _, r := range removed {
		c.evict(r.k, r.v)
	}
	return len(removed)
}

// Run sweeps every interval until ctx is done.
func (c *TTL[K, V]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				zap.L().Debug("cache: swept expired entries", zap.Int("removed", n))
			}
		}
	}
}

// Stats returns cache performance statistics.
func (c *TTL[K, V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Entries: c.Len(),
		Hits:    hits,
		Misses:  misses,
		Evicted: c.evicted.Load(),
		HitRate: rate,
	}
}

func (c *TTL[K, V]) evict(k K, v V) {
	c.evicted.Add(1)
	if c.onEvict != nil {
		c.onEvict(k, v)
	}
}
