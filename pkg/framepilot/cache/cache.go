// Package cache provides the concurrent insert-if-absent caches framepilot
// keeps for models, textures and light levels.
//
// Entries are never replaced: the first value installed for a key stays until
// an eviction pass removes it. Concurrent misses on one key share a single
// loader call.
package cache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
)

const (
	// ShardCount is the number of shards. Must be a power of 2.
	ShardCount = 16

	shardMask = ShardCount - 1
)

// Hasher computes the shard hash of a key.
type Hasher[K any] func(K) uint64

// KeyFunc renders a key as the string used to coalesce concurrent loads.
// It must be injective over the keys stored in one cache.
type KeyFunc[K any] func(K) string

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries    int    `json:"entries"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Loads      uint64 `json:"loads"`
	LoadErrors uint64 `json:"load_errors"`
	Evictions  uint64 `json:"evictions"`
}

// entry is boxed so eviction can tell a re-inserted value from the one its
// predicate saw.
type entry[V any] struct {
	value V
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
}

// Cache is a sharded concurrent map with insert-if-absent semantics.
type Cache[K comparable, V any] struct {
	shards [ShardCount]*shard[K, V]
	hasher Hasher[K]
	keyFn  KeyFunc[K]
	flight singleflight.Group

	name    string
	metrics *metrics.Metrics
	logger  *logging.Logger

	size       atomic.Int64
	hits       atomic.Uint64
	misses     atomic.Uint64
	loads      atomic.Uint64
	loadErrors atomic.Uint64
	evictions  atomic.Uint64
}

type options struct {
	name    string
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*options)

// WithName sets the name used in logs and metric labels.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMetrics reports hits, misses, loads and evictions to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates an empty cache.
func New[K comparable, V any](hasher Hasher[K], keyFn KeyFunc[K], opts ...Option) *Cache[K, V] {
	o := options{name: "cache"}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[K, V]{
		hasher:  hasher,
		keyFn:   keyFn,
		name:    o.name,
		metrics: o.metrics,
		logger:  logging.Get("cache"),
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{entries: make(map[K]*entry[V])}
	}
	return c
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

func (c *Cache[K, V]) lookup(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Get returns the resident value for key without loading. It does not
// touch the hit and miss counters.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lookup(key)
}

// GetOrLoad returns the resident value for key, calling load on a miss.
// Among concurrent callers missing on the same key, load runs once. Its
// result is installed only if no value is resident by then, and the
// resident value is what every caller gets back. A load error is returned
// to all waiting callers and nothing is installed.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		c.metrics.RecordCacheRequest(c.name, true)
		return v, nil
	}
	c.misses.Add(1)
	c.metrics.RecordCacheRequest(c.name, false)

	res, err, _ := c.flight.Do(c.keyFn(key), func() (interface{}, error) {
		// Double-check: another flight may have finished since our lookup.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		c.loads.Add(1)
		v, err := load()
		c.metrics.RecordCacheLoad(c.name, err)
		if err != nil {
			c.loadErrors.Add(1)
			return nil, err
		}

		return c.insertIfAbsent(key, v), nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	v, _ := res.(V)
	return v, nil
}

func (c *Cache[K, V]) insertIfAbsent(key K, v V) V {
	s := c.shardFor(key)
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return e.value
	}
	s.entries[key] = &entry[V]{value: v}
	s.mu.Unlock()

	c.metrics.SetCacheEntries(c.name, int(c.size.Add(1)))
	return v
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	return int(c.size.Load())
}

// EvictWhere removes every entry for which pred returns true and then calls
// onEvict once per removed entry, outside any shard lock. pred runs without
// locks held and may call into slow host code. It returns the number of
// entries removed.
func (c *Cache[K, V]) EvictWhere(pred func(K, V) bool, onEvict func(K, V)) int {
	type candidate struct {
		key K
		e   *entry[V]
	}

	var removed []candidate
	for _, s := range c.shards {
		s.mu.RLock()
		snapshot := make([]candidate, 0, len(s.entries))
		for k, e := range s.entries {
			snapshot = append(snapshot, candidate{k, e})
		}
		s.mu.RUnlock()

		var doomed []candidate
		for _, cand := range snapshot {
			if pred(cand.key, cand.e.value) {
				doomed = append(doomed, cand)
			}
		}
		if len(doomed) == 0 {
			continue
		}

		s.mu.Lock()
		for _, cand := range doomed {
			// Skip entries another pass already removed or that were
			// re-inserted after our snapshot.
			if cur, ok := s.entries[cand.key]; ok && cur == cand.e {
				delete(s.entries, cand.key)
				removed = append(removed, cand)
			}
		}
		s.mu.Unlock()
	}

	if len(removed) == 0 {
		return 0
	}

	size := c.size.Add(-int64(len(removed)))
	c.evictions.Add(uint64(len(removed)))
	c.metrics.RecordEvictions(c.name, len(removed))
	c.metrics.SetCacheEntries(c.name, int(size))
	c.logger.Debug("evicted entries", "cache", c.name, "count", len(removed), "remaining", size)

	if onEvict != nil {
		for _, cand := range removed {
			onEvict(cand.key, cand.e.value)
		}
	}
	return len(removed)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Entries:    c.Len(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Loads:      c.loads.Load(),
		LoadErrors: c.loadErrors.Load(),
		Evictions:  c.evictions.Load(),
	}
}

// Name returns the cache name.
func (c *Cache[K, V]) Name() string {
	return c.name
}
