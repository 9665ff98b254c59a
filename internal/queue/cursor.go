package queue

import "sort"

// cursor is the mutable position over one built queue.
type cursor[T Drillable] struct {
	items     []T
	index     int
	completed map[string]struct{}
	recent    *Ring
}

func newCursor[T Drillable](items []T, start, recentCapacity int) cursor[T] {
	return cursor[T]{
		items:     items,
		index:     min(max(start, 0), len(items)),
		completed: make(map[string]struct{}),
		recent:    NewRing(recentCapacity),
	}
}

func (c *cursor[T]) current() (T, bool) {
	if c.index < len(c.items) {
		return c.items[c.index], true
	}
	var zero T
	return zero, false
}

// rewind swaps in a freshly built queue and starts it from the top. The
// completed set and recent ring survive.
func (c *cursor[T]) rewind(items []T) {
	c.items = items
	c.index = 0
}

func (c *cursor[T]) exhausted() bool { return c.index >= len(c.items) }

// markCompleted adds id and reports whether it was new.
func (c *cursor[T]) markCompleted(id string) bool {
	if _, ok := c.completed[id]; ok {
		return false
	}
	c.completed[id] = struct{}{}
	return true
}

func (c *cursor[T]) completedIDs() []string {
	ids := make([]string, 0, len(c.completed))
	for id := range c.completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
