// Package renderq routes work that must run on the rendering thread, such as
// GPU texture deletion, from worker goroutines back to the driving thread.
package renderq

import (
	"sync"
)

// Queue is a FIFO of closures. Any goroutine may Post; only the driving
// thread calls Drain.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	dropped uint64
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Post appends fn. It reports false, and fn never runs, once the queue is
// closed.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.dropped++
		return false
	}
	q.pending = append(q.pending, fn)
	return true
}

// Drain runs every closure posted before the call, in order, and returns how
// many ran. Closures posted while draining wait for the next Drain.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Close rejects further posts. Pending closures are left for a final Drain.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Len returns the number of pending closures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns how many posts were rejected after Close.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
