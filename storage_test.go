package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutputConfig(dir string) *OutputConfig {
	return &OutputConfig{
		SaveDiscoveries: true,
		SaveStats:       true,
		OutputDirectory: dir,
		FilenamePrefix:  "test",
	}
}

func TestSaveDiscovery(t *testing.T) {
	dir := t.TempDir()
	sm, err := NewStorageManager(testOutputConfig(dir), testLogger())
	require.NoError(t, err)

	foundAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, sm.SaveDiscovery(13, 2, foundAt))
	require.NoError(t, sm.SaveDiscovery(11, 5, foundAt))
	require.NoError(t, sm.Close())

	f, err := os.Open(filepath.Join(dir, "test_discoveries.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"exponent", "digits", "found_at", "worker_id", "verified", "known"}, records[0])

	// M13 = 8191, a known Mersenne prime with 4 digits.
	assert.Equal(t, []string{"13", "4", "2025-03-14T09:26:53Z", "2", "false", "true"}, records[1])

	// M11 = 2047 = 23 * 89 is not a Mersenne prime.
	assert.Equal(t, []string{"11", "4", "2025-03-14T09:26:53Z", "5", "false", "false"}, records[2])
}

func TestSaveDiscoveryAppendsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := testOutputConfig(dir)
	foundAt := time.Now().UTC()

	sm, err := NewStorageManager(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, sm.SaveDiscovery(17, 0, foundAt))
	require.NoError(t, sm.Close())

	sm, err = NewStorageManager(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, sm.SaveDiscovery(19, 1, foundAt))
	require.NoError(t, sm.Close())

	f, err := os.Open(filepath.Join(dir, "test_discoveries.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// One header plus two rows, the header written only once.
	require.Len(t, records, 3)
	assert.Equal(t, "17", records[1][0])
	assert.Equal(t, "19", records[2][0])
}

func TestSaveStatistics(t *testing.T) {
	dir := t.TempDir()
	sm, err := NewStorageManager(testOutputConfig(dir), testLogger())
	require.NoError(t, err)
	defer sm.Close()

	stats := Statistics{
		Timestamp:       time.Now().UTC(),
		Uptime:          "1m30s",
		ExponentsTested: 42,
		PrimesFound:     3,
		HighestExponent: 127,
		QueueCapacity:   100,
	}
	require.NoError(t, sm.SaveStatistics(stats))

	// The snapshot is rewritten in place, not appended.
	stats.ExponentsTested = 99
	require.NoError(t, sm.SaveStatistics(stats))

	data, err := os.ReadFile(filepath.Join(dir, "test_stats.json"))
	require.NoError(t, err)

	var loaded Statistics
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, uint64(99), loaded.ExponentsTested)
	assert.Equal(t, uint64(3), loaded.PrimesFound)
	assert.Equal(t, uint64(127), loaded.HighestExponent)
}

func TestStorageDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := &OutputConfig{
		SaveDiscoveries: false,
		SaveStats:       false,
		OutputDirectory: dir,
		FilenamePrefix:  "test",
	}

	sm, err := NewStorageManager(cfg, testLogger())
	require.NoError(t, err)

	require.NoError(t, sm.SaveDiscovery(13, 0, time.Now()))
	require.NoError(t, sm.SaveStatistics(Statistics{}))
	require.NoError(t, sm.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
