package core

// QueueCapacity is the number of slots in every WorkQueue.
const QueueCapacity = 64

// WorkQueue is a fixed-capacity FIFO ring buffer. Head and Tail are
// monotonic counters that are never reduced modulo the capacity; only the
// slot address wraps. This keeps "full" (Tail-Head == C) and "empty"
// (Head == Tail) unambiguous.
type WorkQueue[T any] struct {
	Head  uint64           `json:"head"`
	Tail  uint64           `json:"tail"`
	Items [QueueCapacity]T `json:"items"`
}

// Len returns the number of queued items.
func (q *WorkQueue[T]) Len() uint64 {
	return q.Tail - q.Head
}

// Push appends item at the tail.
func (q *WorkQueue[T]) Push(item T) error {
	if q.Len() >= QueueCapacity {
		return ErrQueueFull
	}
	q.Items[q.Tail%QueueCapacity] = item
	q.Tail++
	return nil
}

// Pop removes and returns the item at the head. The vacated slot is reset
// to the zero value so stale entries never leak into later pushes.
func (q *WorkQueue[T]) Pop() (T, error) {
	var zero T
	if q.Head == q.Tail {
		return zero, ErrQueueEmpty
	}
	slot := q.Head % QueueCapacity
	item := q.Items[slot]
	q.Items[slot] = zero
	q.Head++
	return item, nil
}

// Peek returns the head item without removing it.
func (q *WorkQueue[T]) Peek() (T, bool) {
	if q.Head == q.Tail {
		var zero T
		return zero, false
	}
	return q.Items[q.Head%QueueCapacity], true
}

// Pending returns the queued items in FIFO order.
func (q *WorkQueue[T]) Pending() []T {
	out := make([]T, 0, q.Len())
	for i := q.Head; i != q.Tail; i++ {
		out = append(out, q.Items[i%QueueCapacity])
	}
	return out
}
