package app

import "sync"

// itemCache is a best-effort cache of individually fetched records, scoped
// to one logical unit of work. It is constructed per request flow, injected
// into the fetch helpers, and discarded at the end of the flow; it must
// never be shared across requests. Every write path invalidates before
// returning. It carries no correctness obligation beyond avoiding duplicate
// point lookups within one search-then-mutate flow.
type itemCache[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

func newItemCache[T any]() *itemCache[T] {
	return &itemCache[T]{items: make(map[string]T)}
}

func (c *itemCache[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	return v, ok
}

func (c *itemCache[T]) Put(id string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = v
}

func (c *itemCache[T]) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}
