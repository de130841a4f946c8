package main

import (
	"runtime"
	"sync/atomic"
	"time"
)

// ==================== STATISTICS ====================

// Counters aggregates the running tallies shared by the workers and the
// reporter goroutine. All fields are updated atomically.
type Counters struct {
	Tested       atomic.Uint64
	Composites   atomic.Uint64
	LucasLehmer  atomic.Uint64
	Primes       atomic.Uint64
	LastExponent atomic.Uint64
}

func (c *Counters) recordExponent(p uint64) {
	// LastExponent only ever moves forward. Workers finish out of order,
	// so a stale smaller value must never overwrite a larger one.
	for {
		cur := c.LastExponent.Load()
		if p <= cur || c.LastExponent.CompareAndSwap(cur, p) {
			return
		}
	}
}

// Statistics is the point-in-time snapshot written to disk and logged at
// each stats interval.
type Statistics struct {
	Timestamp       time.Time `json:"timestamp"`
	Uptime          string    `json:"uptime"`
	ExponentsTested uint64    `json:"exponents_tested"`
	Composites      uint64    `json:"composites"`
	LucasLehmerRuns uint64    `json:"lucas_lehmer_runs"`
	PrimesFound     uint64    `json:"primes_found"`
	HighestExponent uint64    `json:"highest_exponent"`
	TestsPerSecond  float64   `json:"tests_per_second"`
	ActiveWorkers   int       `json:"active_workers"`
	QueueLength     int       `json:"queue_length"`
	QueueCapacity   int       `json:"queue_capacity"`
	Goroutines      int       `json:"goroutines"`
	MemoryAllocMB   float64   `json:"memory_alloc_mb"`
}

func (c *Counters) snapshot(start time.Time, workers, queueLen, queueCap int) Statistics {
	now := time.Now().UTC()
	uptime := now.Sub(start)
	tested := c.Tested.Load()

	rate := 0.0
	if secs := uptime.Seconds(); secs > 0 {
		rate = float64(tested) / secs
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Statistics{
		Timestamp:       now,
		Uptime:          uptime.Round(time.Second).String(),
		ExponentsTested: tested,
		Composites:      c.Composites.Load(),
		LucasLehmerRuns: c.LucasLehmer.Load(),
		PrimesFound:     c.Primes.Load(),
		HighestExponent: c.LastExponent.Load(),
		TestsPerSecond:  rate,
		ActiveWorkers:   workers,
		QueueLength:     queueLen,
		QueueCapacity:   queueCap,
		Goroutines:      runtime.NumGoroutine(),
		MemoryAllocMB:   float64(mem.Alloc) / (1024 * 1024),
	}
}
