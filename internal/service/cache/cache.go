// Package cache provides the in-process tier kept in front of the cache
// store for hot entries.
package cache

import (
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
)

// Cache defines the interface for local cache operations. Callers pass the
// current time so freshness follows the same clock as the store reads.
type Cache interface {
	Get(key string, at time.Time) (*model.CacheEntry, bool)
	Set(key string, entry *model.CacheEntry, at time.Time)
	Invalidate(key string)
	Clear()
	Stop()
}

// Metrics provides cache performance metrics.
type Metrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
}

// CacheWithMetrics extends Cache with metrics reporting.
type CacheWithMetrics interface {
	Cache
	Metrics() Metrics
}

// ShardedCache distributes entries across multiple LRU shards to reduce
// lock contention.
type ShardedCache struct {
	shards    []*ttlCache
	shardMask uint64
	seed      maphash.Seed
}

// NewShardedCache creates a sharded cache with the given total capacity.
// An entry lives at most ttl locally and never past its own expiry.
// numShards is rounded up to a power of 2.
func NewShardedCache(capacity int, ttl time.Duration, numShards int) *ShardedCache {
	if numShards <= 0 {
		numShards = 16
	}
	n := 1
	for n < numShards {
		n *= 2
	}

	perShardCapacity := capacity / n
	if perShardCapacity < 1 {
		perShardCapacity = 1
	}

	shards := make([]*ttlCache, n)
	for i := range shards {
		shards[i] = newTTLCache(perShardCapacity, ttl)
	}
	return &ShardedCache{
		shards:    shards,
		shardMask: uint64(n - 1),
		seed:      maphash.MakeSeed(),
	}
}

func (sc *ShardedCache) getShard(key string) *ttlCache {
	return sc.shards[maphash.String(sc.seed, key)&sc.shardMask]
}

// Get returns the entry for key when it is still fresh at at.
func (sc *ShardedCache) Get(key string, at time.Time) (*model.CacheEntry, bool) {
	return sc.getShard(key).Get(key, at)
}

// Set stores entry under key.
func (sc *ShardedCache) Set(key string, entry *model.CacheEntry, at time.Time) {
	sc.getShard(key).Set(key, entry, at)
}

// Invalidate removes a key from the appropriate shard.
func (sc *ShardedCache) Invalidate(key string) {
	sc.getShard(key).Invalidate(key)
}

// Clear removes all entries from all shards.
func (sc *ShardedCache) Clear() {
	for _, shard := range sc.shards {
		shard.Clear()
	}
}

// Stop shuts down the background cleanup of every shard.
func (sc *ShardedCache) Stop() {
	for _, shard := range sc.shards {
		shard.Stop()
	}
}

// Metrics returns aggregated metrics from all shards.
func (sc *ShardedCache) Metrics() Metrics {
	var total Metrics
	for _, shard := range sc.shards {
		m := shard.Metrics()
		total.Hits += m.Hits
		total.Misses += m.Misses
		total.Evictions += m.Evictions
		total.Size += m.Size
		total.Capacity += m.Capacity
	}
	return total
}

// ttlCache is a thread-safe LRU with per-entry expiry.
type ttlCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	items     map[string]*cacheEntry
	head      *cacheEntry
	tail      *cacheEntry
	stopCh    chan struct{}
	stopOnce  sync.Once
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type cacheEntry struct {
	key       string
	value     *model.CacheEntry
	expiresAt time.Time
	prev      *cacheEntry
	next      *cacheEntry
}

func newTTLCache(capacity int, ttl time.Duration) *ttlCache {
	c := &ttlCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheEntry, capacity),
		stopCh:   make(chan struct{}),
	}
	go c.startCleanup()
	return c
}

// Stop shuts down the cleanup goroutine. Safe to call more than once.
func (c *ttlCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Metrics returns current cache performance metrics.
func (c *ttlCache) Metrics() Metrics {
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()

	return Metrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
		Capacity:  c.capacity,
	}
}

func (c *ttlCache) Get(key string, at time.Time) (*model.CacheEntry, bool) {
	c.mu.Lock()
	entry, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		metrics.RecordLocalCacheOperation("get", "miss")
		return nil, false
	}
	if !at.Before(entry.expiresAt) {
		c.removeEntry(entry)
		c.mu.Unlock()
		c.misses.Add(1)
		metrics.RecordLocalCacheOperation("get", "expired")
		return nil, false
	}
	c.moveToFront(entry)
	value := entry.value
	c.mu.Unlock()

	c.hits.Add(1)
	metrics.RecordLocalCacheOperation("get", "hit")
	return value, true
}

// Set adds or replaces key. If the cache is at capacity, the least recently
// used entry is evicted. Entries already expired at at are not stored.
func (c *ttlCache) Set(key string, value *model.CacheEntry, at time.Time) {
	expiresAt := at.Add(c.ttl)
	if value.ExpiresAt.Before(expiresAt) {
		expiresAt = value.ExpiresAt
	}
	if !at.Before(expiresAt) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &cacheEntry{key: key, value: value, expiresAt: expiresAt}
	c.items[key] = entry
	c.addToFront(entry)

	if len(c.items) > c.capacity {
		c.removeTail()
		c.evictions.Add(1)
		metrics.RecordLocalCacheOperation("evict", "capacity")
	}
}

// startCleanup sweeps expired entries once a minute while the shard is
// more than 80% full.
func (c *ttlCache) startCleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case t := <-ticker.C:
			c.mu.Lock()
			if len(c.items) > c.capacity*80/100 {
				c.cleanup(t)
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// cleanup removes expired entries. Callers hold mu.
func (c *ttlCache) cleanup(at time.Time) {
	for _, entry := range c.items {
		if !at.Before(entry.expiresAt) {
			c.removeEntry(entry)
		}
	}
}

func (c *ttlCache) removeEntry(entry *cacheEntry) {
	delete(c.items, entry.key)
	c.remove(entry)
}

func (c *ttlCache) moveToFront(entry *cacheEntry) {
	if entry == c.head {
		return
	}
	c.remove(entry)
	c.addToFront(entry)
}

func (c *ttlCache) addToFront(entry *cacheEntry) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry
	if c.tail == nil {
		c.tail = entry
	}
}

// remove unlinks entry without touching the map.
func (c *ttlCache) remove(entry *cacheEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev, entry.next = nil, nil
}

func (c *ttlCache) removeTail() {
	if c.tail == nil {
		return
	}
	c.removeEntry(c.tail)
}

// Invalidate removes a specific key from the cache.
func (c *ttlCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
	}
}

// Clear removes all entries and resets the counters.
func (c *ttlCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheEntry, c.capacity)
	c.head = nil
	c.tail = nil
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}
