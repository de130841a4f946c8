package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smwms1/prime11/mersenne"
	"github.com/smwms1/prime11/taskqueue"
)

// ==================== LOGGING ====================

// utcFormatter forces every entry timestamp to UTC before formatting, so
// log lines are comparable across machines regardless of local timezone.
type utcFormatter struct {
	inner logrus.Formatter
}

func (f *utcFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return f.inner.Format(e)
}

func setupLogger(config *OutputConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&utcFormatter{
		inner: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006/01/02 15:04:",
		},
	})

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if config.Verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	return logger
}

// ==================== HUNTER ====================

// Hunter wires the generator, the task queue, the worker pool and the
// reporter together and owns their lifecycle.
type Hunter struct {
	config    *Config
	logger    *logrus.Logger
	queue     *taskqueue.Queue
	generator *Generator
	pool      *WorkerPool
	counters  *Counters
	storage   *StorageManager
	startTime time.Time
}

func NewHunter(config *Config, logger *logrus.Logger) (*Hunter, error) {
	storage, err := NewStorageManager(&config.Output, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	queue := taskqueue.New(config.Performance.QueueCapacity)
	counters := &Counters{}

	return &Hunter{
		config:    config,
		logger:    logger,
		queue:     queue,
		generator: NewGenerator(queue, config.Search.StartExponent),
		pool:      NewWorkerPool(config.Performance.Workers, queue, config.Search.MillerRabinRounds, counters, logger),
		counters:  counters,
		storage:   storage,
	}, nil
}

// Run starts the search and blocks until the context is cancelled or an
// interrupt arrives. Completed tests are always reported before return.
func (h *Hunter) Run(ctx context.Context) error {
	h.startTime = time.Now().UTC()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			h.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	h.logger.WithFields(logrus.Fields{
		"start_exponent": h.config.Search.StartExponent,
		"workers":        h.pool.Size(),
		"queue_capacity": h.queue.Cap(),
	}).Info("Starting Mersenne prime hunt")

	h.pool.Start(ctx)

	// The reporter must outlive the workers: it drains the reports
	// channel until Stop closes it, so no completed verdict is lost on
	// shutdown.
	var g errgroup.Group
	g.Go(func() error {
		h.processReports()
		return nil
	})
	g.Go(func() error {
		h.updateStatistics(ctx)
		return nil
	})

	err := h.generator.Run(ctx)

	h.pool.Stop()
	g.Wait()

	h.logStatistics(h.counters.snapshot(h.startTime, h.pool.Size(), h.queue.Len(), h.queue.Cap()))

	if closeErr := h.storage.Close(); closeErr != nil {
		h.logger.WithError(closeErr).Warn("Failed to close storage cleanly")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ==================== REPORTING ====================

func (h *Hunter) processReports() {
	for report := range h.pool.Reports() {
		switch report.Kind {
		case ReportLucasLehmer:
			h.logger.Infof("Lucas-Lehmer is required for M%d", report.Exponent)

		case ReportPrime:
			h.logger.Infof("Discovered Mersenne prime candidate M%d, full verification is still required", report.Exponent)
			h.logger.WithFields(logrus.Fields{
				"exponent":  report.Exponent,
				"digits":    mersenne.Digits(report.Exponent),
				"worker_id": report.WorkerID,
				"known":     mersenne.IsKnown(report.Exponent),
			}).Info("Discovery details")

			if err := h.storage.SaveDiscovery(report.Exponent, report.WorkerID, report.At); err != nil {
				h.logger.WithError(err).Error("Failed to save discovery")
			}

		case ReportComposite:
			h.logger.Infof("M%d is not prime", report.Exponent)
			if report.Factor != 0 {
				h.logger.WithFields(logrus.Fields{
					"exponent": report.Exponent,
					"factor":   report.Factor,
				}).Debug("Factor found")
			}
		}
	}
}

func (h *Hunter) updateStatistics(ctx context.Context) {
	ticker := time.NewTicker(h.config.Performance.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := h.counters.snapshot(h.startTime, h.pool.Size(), h.queue.Len(), h.queue.Cap())
			h.logStatistics(stats)

			if err := h.storage.SaveStatistics(stats); err != nil {
				h.logger.WithError(err).Error("Failed to save statistics")
			}
		}
	}
}

func (h *Hunter) logStatistics(stats Statistics) {
	h.logger.WithFields(logrus.Fields{
		"tested":           stats.ExponentsTested,
		"composites":       stats.Composites,
		"lucas_lehmer":     stats.LucasLehmerRuns,
		"primes":           stats.PrimesFound,
		"highest_exponent": stats.HighestExponent,
		"tests_per_sec":    fmt.Sprintf("%.2f", stats.TestsPerSecond),
		"queue":            fmt.Sprintf("%d/%d", stats.QueueLength, stats.QueueCapacity),
		"uptime":           stats.Uptime,
	}).Info("Search progress")
}
