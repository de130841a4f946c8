package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCFormatterPrefix(t *testing.T) {
	f := &utcFormatter{
		inner: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006/01/02 15:04:",
			DisableColors:   true,
		},
	}

	zone := time.FixedZone("UTC+2", 2*60*60)
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 6, 1, 14, 30, 0, 0, zone),
		Level:   logrus.InfoLevel,
		Message: "Lucas-Lehmer is required for M13",
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	// 14:30 at UTC+2 is 12:30 UTC.
	assert.Contains(t, string(out), `time="2025/06/01 12:30:"`)
	assert.Contains(t, string(out), "Lucas-Lehmer is required for M13")
}

func TestSetupLoggerLevels(t *testing.T) {
	logger := setupLogger(&OutputConfig{LogLevel: "warn"})
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger = setupLogger(&OutputConfig{LogLevel: "warn", Verbose: true})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger = setupLogger(&OutputConfig{LogLevel: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

// Spins up a full hunter against a temp directory, lets it chew through
// the small exponents, and checks that cancellation shuts it down with
// every completed verdict accounted for.
func TestHunterRunCancellation(t *testing.T) {
	dir := t.TempDir()
	cfg := createTestHunterConfig(dir)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hunter, err := NewHunter(cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hunter.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return hunter.counters.Tested.Load() >= 10
	}, 10*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("hunter did not shut down after cancellation")
	}

	tested := hunter.counters.Tested.Load()
	primes := hunter.counters.Primes.Load()
	composites := hunter.counters.Composites.Load()
	assert.Equal(t, tested, primes+composites)

	// The first ten exponents contain the primes M2, M3, M5 and M7.
	assert.GreaterOrEqual(t, primes, uint64(4))
}

func createTestHunterConfig(dir string) *Config {
	return &Config{
		Search: SearchConfig{
			StartExponent:     1,
			MillerRabinRounds: 25,
		},
		Performance: PerformanceConfig{
			Workers:       2,
			QueueCapacity: 8,
			StatsInterval: time.Hour,
		},
		Output: OutputConfig{
			SaveDiscoveries: true,
			SaveStats:       true,
			OutputDirectory: dir,
			FilenamePrefix:  "test",
			LogLevel:        "info",
		},
	}
}

func TestHunterRecordsDiscoveries(t *testing.T) {
	dir := t.TempDir()
	cfg := createTestHunterConfig(dir)
	cfg.Performance.Workers = 1

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hunter, err := NewHunter(cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hunter.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return hunter.counters.Primes.Load() >= 4
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	f, err := os.Open(filepath.Join(dir, "test_discoveries.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	found := make(map[string]bool)
	for _, rec := range records[1:] {
		found[rec[0]] = true
	}
	for _, want := range []string{"2", "3", "5", "7"} {
		assert.True(t, found[want], "missing discovery for exponent %s", want)
	}
}
