package storage

import "board-api/domain"

// collection keeps one entity type keyed by id, listed in creation order.
// Ids come from a high-water mark so deleted ids are never handed out again.
type collection[T any] struct {
	entity string
	items  map[int64]T
	order  []int64
	lastID int64
	clone  func(T) T
}

func newCollection[T any](entity string, clone func(T) T) *collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &collection[T]{entity: entity, items: make(map[int64]T), clone: clone}
}

func (c *collection[T]) nextID() int64 {
	c.lastID++
	return c.lastID
}

// raise moves the high-water mark up to last.
func (c *collection[T]) raise(last int64) {
	if last > c.lastID {
		c.lastID = last
	}
}

func (c *collection[T]) get(id int64) (T, error) {
	v, ok := c.items[id]
	if !ok {
		var zero T
		return zero, domain.NotFound(c.entity, id)
	}
	return c.clone(v), nil
}

func (c *collection[T]) has(id int64) bool {
	_, ok := c.items[id]
	return ok
}

// put inserts or replaces the value stored under id.
func (c *collection[T]) put(id int64, v T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	if id > c.lastID {
		c.lastID = id
	}
	c.items[id] = c.clone(v)
}

// remove deletes the given ids and returns the removed values in argument
// order. Unknown ids are skipped. The order index is compacted once.
func (c *collection[T]) remove(ids ...int64) []T {
	removed := make([]T, 0, len(ids))
	gone := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		v, ok := c.items[id]
		if !ok {
			continue
		}
		delete(c.items, id)
		gone[id] = struct{}{}
		removed = append(removed, v)
	}
	if len(gone) == 0 {
		return removed
	}
	kept := c.order[:0]
	for _, id := range c.order {
		if _, ok := gone[id]; !ok {
			kept = append(kept, id)
		}
	}
	c.order = kept
	return removed
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.clone(c.items[id]))
	}
	return out
}

func (c *collection[T]) reset() {
	c.items = make(map[int64]T)
	c.order = nil
	c.lastID = 0
}
