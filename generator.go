package main

import (
	"context"

	"github.com/smwms1/prime11/taskqueue"
)

// ==================== CANDIDATE GENERATOR ====================

// Generator feeds candidate exponents into the task queue in ascending
// order. It relies entirely on the queue for backpressure: when the queue
// is full, Enqueue blocks until a worker frees a slot.
type Generator struct {
	queue *taskqueue.Queue
	next  uint64
}

func NewGenerator(queue *taskqueue.Queue, start uint64) *Generator {
	if start < 1 {
		start = 1
	}
	return &Generator{
		queue: queue,
		next:  start,
	}
}

// Run produces exponents until the context is cancelled or the counter
// would wrap. It returns the context error on cancellation.
func (g *Generator) Run(ctx context.Context) error {
	for {
		if err := g.queue.Enqueue(ctx, g.next); err != nil {
			return err
		}
		g.next++
		if g.next == 0 {
			// uint64 exhausted. Nobody will live to see this.
			return nil
		}
	}
}

// Next reports the exponent the generator will enqueue next.
func (g *Generator) Next() uint64 {
	return g.next
}
