// Package cache provides a fixed-capacity, mutex-guarded LRU cache used to
// shield the stores from a lookup on every authenticated request.
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 100

type lruEntry[V any] struct {
	key   string
	value V
}

// LRU is a fixed-capacity least-recently-used cache keyed by string.
// Capacity is fixed at construction and never grows. All operations are
// safe for concurrent use; a single mutex serializes mutations, which is
// sufficient at the capacities this cache is built for.
//
// Recency is promoted on both Get and Set.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element
}

// New constructs an LRU with the given capacity. A capacity of zero or
// less falls back to DefaultCapacity.
func New[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the value stored under key, promoting it to most recently
// used. The second return is false when the key is absent.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry[V]).value, true
}

// Set stores value under key as the most recently used entry. An existing
// key is overwritten in place and re-promoted; it never causes another
// key's eviction. A new key inserted at capacity evicts exactly the least
// recently used entry first.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry[V]).key)
		}
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache unconditionally. It exists for lifecycle resets
// and tests, not for normal-path invalidation.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
