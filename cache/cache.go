/*
Package cache holds build results, addressed by the content of their input.

Building a Gordon surface is expensive, and a CLI run or a service may see
the same network repeatedly. Cache is a sharded LRU cache; keys are
content hashes of curve families together with the tolerance context they
were built with (see KeyOf). The cache is external to the geometry engine
and is its only synchronized structure.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.cache'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.cache")
}

const (
	// ShardCount is the number of shards. It must be a power of 2.
	ShardCount = 16
	// DefaultCapacity is the capacity per shard if none is given.
	DefaultCapacity = 64

	shardMask = ShardCount - 1
)

// Cache is a thread-safe, sharded LRU cache with content keys.
type Cache[V any] struct {
	shards   [ShardCount]*shard[V]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[Key]*list.Element
	lru     *list.List // front is most recently used
}

type entry[V any] struct {
	key   Key
	value V
}

// Stats is a snapshot of cache statistics.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits/(hits+misses), or 0 for an unused cache.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// New creates a cache holding at most capacity entries in total (rounded
// up to a multiple of ShardCount). If capacity <= 0, DefaultCapacity per
// shard is used.
func New[V any](capacity int) *Cache[V] {
	perShard := DefaultCapacity
	if capacity > 0 {
		perShard = (capacity + ShardCount - 1) / ShardCount
	}
	c := &Cache[V]{capacity: perShard}
	for i := range c.shards {
		c.shards[i] = &shard[V]{
			entries: make(map[Key]*list.Element),
			lru:     list.New(),
		}
	}
	return c
}

func (c *Cache[V]) shardFor(key Key) *shard[V] {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key)) // fnv never returns an error
	return c.shards[h.Sum64()&shardMask]
}

// Get retrieves a cached value. On a hit the entry becomes the most
// recently used one of its shard.
func (c *Cache[V]) Get(key Key) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		s.lru.MoveToFront(el)
		c.hits.Add(1)
		return el.Value.(*entry[V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set stores a value, evicting the least recently used entries of the
// shard if it is full. The value is stored as-is.
func (c *Cache[V]) Set(key Key, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.put(s, key, value)
}

// put requires s to be locked.
func (c *Cache[V]) put(s *shard[V], key Key, value V) {
	if el, ok := s.entries[key]; ok {
		el.Value.(*entry[V]).value = value
		s.lru.MoveToFront(el)
		return
	}
	for s.lru.Len() >= c.capacity {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.entries, oldest.Value.(*entry[V]).key)
		c.evictions.Add(1)
	}
	s.entries[key] = s.lru.PushFront(&entry[V]{key: key, value: value})
}

// GetOrBuild returns a cached value or builds it. Build errors are
// returned and not cached. build runs with the shard locked, so concurrent
// requests for the same key build only once; requests for keys of other
// shards are not blocked.
func (c *Cache[V]) GetOrBuild(key Key, build func() (V, error)) (V, error) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		s.lru.MoveToFront(el)
		c.hits.Add(1)
		tracer().Debugf("cache hit for %s", key.Short())
		return el.Value.(*entry[V]).value, nil
	}
	c.misses.Add(1)
	value, err := build()
	if err != nil {
		return value, err
	}
	c.put(s, key, value)
	return value, nil
}

// Delete removes an entry and reports whether it was present.
func (c *Cache[V]) Delete(key Key) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.Remove(el)
	delete(s.entries, key)
	return true
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[Key]*list.Element)
		s.lru.Init()
		s.mu.Unlock()
	}
}

// Len returns the number of entries across all shards.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the total capacity.
func (c *Cache[V]) Capacity() int {
	return c.capacity * ShardCount
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
