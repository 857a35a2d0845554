// Package cache provides a small LRU cache with TTL used to memoize
// per-period aggregates. Keys are period keys; mutations to the
// underlying data invalidate the affected key or the whole cache.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	index   map[string]*list.Element
	order   *list.List // front = most recently used
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		index:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached value for key. Expired entries are evicted on
// access and reported as misses.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.index[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[T])
	if time.Now().After(ent.expiresAt) {
		c.evict(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set stores value under key, refreshing its TTL. The least recently
// used entry is dropped when the cache is over capacity.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent := &entry[T]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	if elem, ok := c.index[key]; ok {
		elem.Value = ent
		c.order.MoveToFront(elem)
		return
	}
	c.index[key] = c.order.PushFront(ent)

	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.evict(oldest)
		}
	}
}

// Delete drops the entry for key if present.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[key]; ok {
		c.evict(elem)
	}
}

// Purge drops every entry.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element)
	c.order.Init()
}

// Size returns the number of live entries, counting expired ones that
// have not been touched since expiry.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// evict removes elem. Callers hold mu.
func (c *LRUCache[T]) evict(elem *list.Element) {
	ent := elem.Value.(*entry[T])
	delete(c.index, ent.key)
	c.order.Remove(elem)
}
