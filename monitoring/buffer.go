package monitoring

// ring is a fixed-capacity FIFO buffer. Appending to a full ring evicts the
// oldest entry automatically; no separate eviction call is needed on insert.
// Not safe for concurrent use: callers hold the owning backend's mutex.
type ring[T any] struct {
	items []T
	head  int // next write index
	size  int
}

// newRing creates a ring with the given capacity. Capacity must be positive;
// Config.Validate guarantees that before a ring is ever constructed.
func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, capacity)}
}

// Append inserts an item, evicting the oldest if the ring is full.
func (r *ring[T]) Append(item T) {
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Len returns the number of items currently retained.
func (r *ring[T]) Len() int {
	return r.size
}

// Snapshot returns the retained items oldest-first. The returned slice is a
// copy so callers can read it without holding the backend's lock.
func (r *ring[T]) Snapshot() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head-r.size+i+len(r.items))%len(r.items)]
	}
	return out
}

// Last returns the most recently appended item, if any.
func (r *ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.head-1+len(r.items))%len(r.items)], true
}

// RemoveOldestWhile pops items from the front while drop returns true for
// the oldest remaining item. Used for the age-horizon eviction pass, which is
// independent of capacity eviction. Returns the number removed.
func (r *ring[T]) RemoveOldestWhile(drop func(T) bool) int {
	removed := 0
	for r.size > 0 {
		oldest := r.items[(r.head-r.size+len(r.items))%len(r.items)]
		if !drop(oldest) {
			break
		}
		r.size--
		removed++
	}
	return removed
}
