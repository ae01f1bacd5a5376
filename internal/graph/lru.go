package graph

import (
	"container/list"
	"sync"
)

// lru is a bounded map with eviction from the back of a recency list.
//
// With touchOnGet false the list orders entries by last update only, so
// eviction drops the least recently updated entry and reads never reorder
// it. With touchOnGet true reads count as use (classic LRU).
//
// Thread-safety: lru is safe for concurrent use.
type lru[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]*list.Element
	order      *list.List
	capacity   int
	touchOnGet bool
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRU[K comparable, V any](capacity int, touchOnGet bool) *lru[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &lru[K, V]{
		items:      make(map[K]*list.Element),
		order:      list.New(),
		capacity:   capacity,
		touchOnGet: touchOnGet,
	}
}

func (c *lru[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.touchOnGet {
		c.order.MoveToFront(elem)
	}
	return elem.Value.(*lruEntry[K, V]).value, true
}

func (c *lru[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

// putIf stores value only when keep reports true under the cache lock.
func (c *lru[K, V]) putIf(key K, value V, keep func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !keep() {
		return false
	}
	c.putLocked(key, value)
	return true
}

func (c *lru[K, V]) putLocked(key K, value V) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry[K, V]).key)
	}
}

func (c *lru[K, V]) remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// removeIf drops every entry whose key matches.
func (c *lru[K, V]) removeIf(match func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.items {
		if match(key) {
			c.order.Remove(elem)
			delete(c.items, key)
		}
	}
}

func (c *lru[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
