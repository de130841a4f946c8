package taskqueue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One producer races eight consumers through a small buffer; every element
// must come out exactly once and the running count must stay within bounds.
func TestConcurrentDelivery(t *testing.T) {
	const (
		total     = 20000
		consumers = 8
	)

	q := New(64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan uint64, total)
	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				p, err := q.Dequeue(ctx)
				if err != nil {
					return
				}
				results <- p
			}
		}()
	}

	go func() {
		for p := uint64(0); p < total; p++ {
			if err := q.Enqueue(ctx, p); err != nil {
				return
			}
		}
	}()

	seen := make(map[uint64]int, total)
	for i := 0; i < total; i++ {
		seen[<-results]++
	}
	cancel()
	wg.Wait()

	require.Len(t, seen, total)
	for p, n := range seen {
		require.Equal(t, 1, n, "element %d delivered %d times", p, n)
	}
	assert.Equal(t, uint64(total), q.Enqueued())
	assert.Equal(t, uint64(total), q.Dequeued())
	assert.LessOrEqual(t, q.Dequeued(), q.Enqueued())
	assert.Equal(t, 0, q.Len())
}

// Mixed blocking and non-blocking calls must never drive the count outside
// [0, capacity].
func TestCountStaysBounded(t *testing.T) {
	q := New(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		p := uint64(0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			q.TryEnqueue(p)
			p++
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := q.Dequeue(ctx); err != nil {
					return
				}
			}
		}()
	}

	for i := 0; i < 10000; i++ {
		n := q.Len()
		require.GreaterOrEqual(t, n, 0)
		require.LessOrEqual(t, n, q.Cap())
	}
	close(stop)
	cancel()
	wg.Wait()
}
