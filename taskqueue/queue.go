// Package taskqueue implements the bounded FIFO that hands candidate
// exponents from the single generator to the worker pool.
//
// The queue is a fixed-capacity circular buffer guarded by a mutex, with
// two counting semaphores tracking free and filled slots. A producer
// blocks once the buffer holds Cap() outstanding candidates, which bounds
// memory use no matter how far ahead generation runs; a consumer blocks
// while the buffer is empty. Every element is delivered to exactly one
// consumer, and removal order is FIFO with respect to insertion order.
package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue is a bounded multi-consumer FIFO of candidate exponents.
// All methods are safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	buf   []uint64
	head  int
	tail  int
	count int

	// Counting semaphores: a token in free represents an open slot,
	// a token in filled represents an occupied one. Slot availability
	// is always observed before the index update it licenses.
	free   chan struct{}
	filled chan struct{}

	enqueued atomic.Uint64
	dequeued atomic.Uint64
}

// New returns a queue holding up to capacity elements.
// It panics if capacity is less than one.
func New(capacity int) *Queue {
	if capacity < 1 {
		panic("taskqueue: capacity must be at least 1")
	}
	q := &Queue{
		buf:    make([]uint64, capacity),
		free:   make(chan struct{}, capacity),
		filled: make(chan struct{}, capacity),
	}
	for i := 0; i < capacity; i++ {
		q.free <- struct{}{}
	}
	return q
}

// Enqueue inserts p at the tail, blocking while the queue is full.
// It returns the context's error if ctx ends before a slot opens.
func (q *Queue) Enqueue(ctx context.Context, p uint64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.free:
	}
	q.insert(p)
	return nil
}

// TryEnqueue inserts p at the tail if a slot is free, without blocking.
func (q *Queue) TryEnqueue(p uint64) bool {
	select {
	case <-q.free:
	default:
		return false
	}
	q.insert(p)
	return true
}

// Dequeue removes and returns the head element, blocking while the queue
// is empty. It returns the context's error if ctx ends first. Each
// element is returned to exactly one caller.
func (q *Queue) Dequeue(ctx context.Context) (uint64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-q.filled:
	}
	return q.remove(), nil
}

// TryDequeue removes and returns the head element if one is present,
// without blocking.
func (q *Queue) TryDequeue() (uint64, bool) {
	select {
	case <-q.filled:
	default:
		return 0, false
	}
	return q.remove(), true
}

func (q *Queue) insert(p uint64) {
	q.mu.Lock()
	q.buf[q.tail] = p
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.mu.Unlock()
	q.enqueued.Add(1)
	// Never blocks: the free token consumed above guarantees a slot.
	q.filled <- struct{}{}
}

func (q *Queue) remove() uint64 {
	q.mu.Lock()
	p := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.mu.Unlock()
	q.dequeued.Add(1)
	q.free <- struct{}{}
	return p
}

// Len reports the number of buffered elements.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap reports the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Enqueued reports the total number of completed insertions.
func (q *Queue) Enqueued() uint64 {
	return q.enqueued.Load()
}

// Dequeued reports the total number of completed removals. It never
// exceeds Enqueued.
func (q *Queue) Dequeued() uint64 {
	return q.dequeued.Load()
}
