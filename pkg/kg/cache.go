package kg

import (
	"container/list"
	"sync"
)

// entityCache is a mutex-guarded LRU mapping ids to entities. When a Put
// would exceed the configured capacity, the least-recently-used entry is
// evicted first. Get refreshes recency.
type entityCache[T any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry[T any] struct {
	id    string
	value T
}

func newEntityCache[T any](capacity int) *entityCache[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &entityCache[T]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached entity for id, if resident.
func (c *entityCache[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(cacheEntry[T]).value, true
}

// Put inserts or replaces the entity for id, evicting the least-recently-used
// entry first when at capacity.
func (c *entityCache[T]) Put(id string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		elem.Value = cacheEntry[T]{id: id, value: value}
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(cacheEntry[T]).id)
		}
	}
	c.entries[id] = c.order.PushFront(cacheEntry[T]{id: id, value: value})
}

// Invalidate removes the entry for id, if resident.
func (c *entityCache[T]) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		c.order.Remove(elem)
		delete(c.entries, id)
	}
}

// Len returns the number of resident entries.
func (c *entityCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
