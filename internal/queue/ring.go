package queue

// Ring is a fixed-capacity FIFO of ids. Pushing onto a full ring evicts the
// oldest id.
type Ring struct {
	ids   []string
	limit int
}

// NewRing creates a ring holding at most capacity ids. A capacity below one
// is treated as one.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{ids: make([]string, 0, capacity), limit: capacity}
}

// Push appends id, evicting the oldest entry when the ring is full. An id
// already present is moved to the newest position.
func (r *Ring) Push(id string) {
	r.remove(id)
	if len(r.ids) == r.limit {
		copy(r.ids, r.ids[1:])
		r.ids = r.ids[:len(r.ids)-1]
	}
	r.ids = append(r.ids, id)
}

// Contains reports whether id is in the ring.
func (r *Ring) Contains(id string) bool {
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Clear empties the ring.
func (r *Ring) Clear() {
	r.ids = r.ids[:0]
}

// KeepLast drops everything except the n newest ids.
func (r *Ring) KeepLast(n int) {
	if n <= 0 {
		r.Clear()
		return
	}
	if len(r.ids) <= n {
		return
	}
	copy(r.ids, r.ids[len(r.ids)-n:])
	r.ids = r.ids[:n]
}

// Len returns the number of ids held.
func (r *Ring) Len() int { return len(r.ids) }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return r.limit }

// Items returns the ids oldest first.
func (r *Ring) Items() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Ring) remove(id string) {
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			return
		}
	}
}
