package main

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smwms1/prime11/mersenne"
	"github.com/smwms1/prime11/taskqueue"
)

// ==================== REPORTS ====================

type ReportKind int

const (
	// ReportLucasLehmer signals that an exponent survived the cheap
	// filters and a full Lucas-Lehmer run is starting.
	ReportLucasLehmer ReportKind = iota
	ReportPrime
	ReportComposite
)

// Report is one event emitted by a worker for the reporter goroutine.
type Report struct {
	Kind     ReportKind
	Exponent uint64
	Factor   uint64
	WorkerID int
	At       time.Time
}

// ==================== WORKER ====================

type Worker struct {
	id       int
	queue    *taskqueue.Queue
	tester   *mersenne.Tester
	counters *Counters
	reports  chan<- Report
	logger   *logrus.Logger
}

func NewWorker(id int, queue *taskqueue.Queue, rounds int, counters *Counters, reports chan<- Report, logger *logrus.Logger) *Worker {
	w := &Worker{
		id:       id,
		queue:    queue,
		counters: counters,
		reports:  reports,
		logger:   logger,
	}

	w.tester = mersenne.NewTester(rounds)
	w.tester.OnLucasLehmer = func(p uint64) {
		w.emit(Report{Kind: ReportLucasLehmer, Exponent: p, WorkerID: id, At: time.Now().UTC()})
	}

	return w
}

func (w *Worker) run(ctx context.Context) {
	w.logger.WithField("worker_id", w.id).Debug("Worker started")

	for {
		p, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.WithField("worker_id", w.id).Debug("Worker stopping")
			return
		}

		w.process(p)
	}
}

func (w *Worker) process(p uint64) {
	result := w.tester.Test(p)

	w.counters.Tested.Add(1)
	w.counters.recordExponent(p)
	if result.LucasLehmer {
		w.counters.LucasLehmer.Add(1)
	}

	report := Report{
		Exponent: p,
		Factor:   result.Factor,
		WorkerID: w.id,
		At:       time.Now().UTC(),
	}

	if result.Verdict.Prime() {
		w.counters.Primes.Add(1)
		report.Kind = ReportPrime
	} else {
		w.counters.Composites.Add(1)
		report.Kind = ReportComposite
	}

	w.emit(report)
}

// emit never drops a report. Workers may block here briefly while the
// reporter catches up; the reports channel is sized to make that rare.
func (w *Worker) emit(r Report) {
	w.reports <- r
}

// ==================== WORKER POOL ====================

type WorkerPool struct {
	workers []*Worker
	reports chan Report
	wg      sync.WaitGroup
	logger  *logrus.Logger
}

func NewWorkerPool(count int, queue *taskqueue.Queue, rounds int, counters *Counters, logger *logrus.Logger) *WorkerPool {
	pool := &WorkerPool{
		reports: make(chan Report, count*4),
		logger:  logger,
	}

	for i := 0; i < count; i++ {
		pool.workers = append(pool.workers, NewWorker(i, queue, rounds, counters, pool.reports, logger))
	}

	return pool
}

// Reports exposes the event stream consumed by the reporter. The channel
// is closed by Stop once every worker has exited.
func (p *WorkerPool) Reports() <-chan Report {
	return p.reports
}

func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.WithField("workers", len(p.workers)).Info("Starting worker pool")

	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.run(ctx)
		}(w)
	}
}

// Stop waits for all workers to finish and then closes the reports
// channel so the reporter can drain the remaining events and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	close(p.reports)
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) Size() int {
	return len(p.workers)
}
