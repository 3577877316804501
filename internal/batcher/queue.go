package batcher

import "sync"

// queue is a FIFO of requests waiting to be drained. It may hold duplicates.
type queue[K comparable] struct {
	items []K
	mu    sync.Mutex
}

// push appends req and returns the new length
func (q *queue[K]) push(req K) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, req)
	return len(q.items)
}

// popN removes and returns up to n requests from the front
func (q *queue[K]) popN(n int) []K {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.items) {
		n = len(q.items)
	}
	if n == 0 {
		return nil
	}

	out := make([]K, n)
	copy(out, q.items[:n])

	var zero K
	for i := 0; i < n; i++ {
		q.items[i] = zero
	}
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return out
}

// len returns the number of queued requests
func (q *queue[K]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
