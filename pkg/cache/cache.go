// Package cache provides the bounded query-result cache. Entries are evicted
// least-recently-used when the cache is full and expire after a fixed TTL.
// Graph writes invalidate everything at once through a version bump, which
// costs O(1) instead of sweeping keys.
package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultCapacity = 512
	DefaultTTL      = 5 * time.Minute
)

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	version   uint64
}

// Cache is a thread-safe LRU with per-entry TTL and coarse version-based
// invalidation. An entry written under an older version is treated as a miss
// and lazily evicted on access.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front is most recently used
	items    map[string]*list.Element
	version  uint64

	hits   uint64
	misses uint64

	// group collapses concurrent computations of the same key without
	// holding mu, so misses on distinct keys compute in parallel.
	group singleflight.Group

	// now is swappable in tests
	now func() time.Time
}

func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the cached value for key if it is fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[V]) getLocked(key string) (V, bool) {
	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	ent := elem.Value.(*entry[V])
	if ent.version != c.version || c.now().Sub(ent.createdAt) >= c.ttl {
		c.order.Remove(elem)
		delete(c.items, key)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Put stores a value under key, evicting the least recently used entry when
// the cache is at capacity.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

func (c *Cache[V]) putLocked(key string, value V) {
	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.createdAt = c.now()
		ent.version = c.version
		c.order.MoveToFront(elem)
		return
	}
	for len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).key)
	}
	elem := c.order.PushFront(&entry[V]{
		key:       key,
		value:     value,
		createdAt: c.now(),
		version:   c.version,
	})
	c.items[key] = elem
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result. Errors are never cached. The compute function runs outside the
// cache lock; concurrent misses on the same key share one computation, while
// misses on different keys proceed in parallel. A result computed across an
// Invalidate is returned to the caller but not cached.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (V, bool, error) {
	c.mu.Lock()
	value, ok := c.getLocked(key)
	version := c.version
	c.mu.Unlock()
	if ok {
		return value, true, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		return compute()
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	value = result.(V)

	c.mu.Lock()
	if c.version == version {
		c.putLocked(key, value)
	}
	c.mu.Unlock()
	return value, false, nil
}

// Invalidate drops every cached entry by bumping the version. Stale entries
// are removed lazily on their next access.
func (c *Cache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
}

// Stats reports hit and miss counters plus the live entry count. The count
// includes entries awaiting lazy eviction.
func (c *Cache[V]) Stats() (hits, misses uint64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}
