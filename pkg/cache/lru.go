package cache

import (
	"container/list"
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded map that drops the least recently used entry when full.
// Eviction callbacks run after the lock is released, so they may call back
// into the cache.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List
	onEvict  func(key K, value V)
}

// New returns an LRU holding at most capacity entries. It panics when
// capacity is not positive.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// OnEvict sets the callback for entries pushed out by capacity, Remove or
// Clear.
func (c *LRU[K, V]) OnEvict(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Peek returns the value without touching recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the lock, so concurrent callers for one key get the
// same value.
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) (V, bool) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		v := el.Value.(*entry[K, V]).value
		c.mu.Unlock()
		return v, true
	}
	v := create()
	evicted := c.insert(key, v)
	cb := c.onEvict
	c.mu.Unlock()

	c.notify(cb, evicted)
	return v, false
}

// Put stores the value and returns the previous one, if any.
func (c *LRU[K, V]) Put(key K, value V) (V, bool) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		e := el.Value.(*entry[K, V])
		old := e.value
		e.value = value
		c.mu.Unlock()
		return old, true
	}
	evicted := c.insert(key, value)
	cb := c.onEvict
	c.mu.Unlock()

	c.notify(cb, evicted)
	var zero V
	return zero, false
}

// Remove deletes the key and reports the removed value.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	e := c.unlink(el)
	cb := c.onEvict
	c.mu.Unlock()

	c.notify(cb, []*entry[K, V]{e})
	return e.value, true
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// Clear removes every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	removed := make([]*entry[K, V], 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		removed = append(removed, el.Value.(*entry[K, V]))
	}
	c.items = make(map[K]*list.Element)
	c.order.Init()
	cb := c.onEvict
	c.mu.Unlock()

	c.notify(cb, removed)
}

// insert must be called with the lock held.
func (c *LRU[K, V]) insert(key K, value V) []*entry[K, V] {
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	var evicted []*entry[K, V]
	for c.order.Len() > c.capacity {
		evicted = append(evicted, c.unlink(c.order.Back()))
	}
	return evicted
}

// unlink must be called with the lock held.
func (c *LRU[K, V]) unlink(el *list.Element) *entry[K, V] {
	c.order.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	return e
}

func (c *LRU[K, V]) notify(cb func(K, V), entries []*entry[K, V]) {
	if cb == nil {
		return
	}
	for _, e := range entries {
		cb(e.key, e.value)
	}
}
