package tb

import "sync"

// queue is an unbounded FIFO.
//
// Testbench processes only run while holding the kernel baton, so the mutex
// is uncontended during a run; it keeps Len safe for observers reading from
// other goroutines after the run.
type queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *queue[T]) push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// pop removes and returns the front item.
func (q *queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	it := q.items[0]
	// Release the slot so the backing array does not pin popped items.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return it, true
}

func (q *queue[T]) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
