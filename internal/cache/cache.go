// Package cache provides a small in-process TTL cache used in front of
// the customer, cart and search lookups. Reads never mutate the map;
// expired entries are dropped by the periodic background sweep.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/pkg/logger"
	"github.com/garageconnect/conversational-commerce/pkg/metrics"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the wall-clock used outside tests.
var RealClock Clock = realClock{}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL map keyed by string. The zero value is not usable;
// construct with New.
type Cache[V any] struct {
	name  string
	ttl   time.Duration
	clock Clock

	mu      sync.RWMutex
	entries map[string]entry[V]
}

// New builds a cache with the given TTL. The name labels metrics.
func New[V any](name string, ttl time.Duration, clock Clock) *Cache[V] {
	if clock == nil {
		clock = RealClock
	}
	return &Cache[V]{
		name:    name,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value when present and unexpired. An expired
// entry is a plain miss; it stays in the map until Sweep drops it.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.clock.Now().Before(e.expiresAt) {
		metrics.RecordCache(c.name, true)
		return e.value, true
	}
	metrics.RecordCache(c.name, false)
	var zero V
	return zero, false
}

// Put stores the value under key with the cache's TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes the entry for key, if any.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// GetOrLoad returns the cached value, or calls load and caches its
// result. Load errors are returned without caching.
func (c *Cache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Put(key, v)
	return v, nil
}

// Len returns the number of entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *Cache[V]) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped int
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Sweeper periodically sweeps a set of caches until the context ends.
type Sweeper struct {
	every  time.Duration
	log    *logger.Logger
	sweeps []func() int
}

// NewSweeper builds a sweeper running at the given interval.
func NewSweeper(every time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{every: every, log: log}
}

// Add registers a cache's Sweep for the background pass.
func (s *Sweeper) Add(sweep func() int) {
	s.sweeps = append(s.sweeps, sweep)
}

// Run blocks, sweeping at the configured interval, until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var total int
			for _, sweep := range s.sweeps {
				total += sweep()
			}
			if total > 0 {
				s.log.Debug("cache sweep", zap.Int("evicted", total))
			}
		}
	}
}
