package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smwms1/prime11/mersenne"
)

// ==================== STORAGE MANAGER ====================

// StorageManager persists discoveries to an append-only CSV file and
// rewrites a JSON statistics snapshot at each stats interval.
type StorageManager struct {
	config *OutputConfig
	logger *logrus.Logger

	mu            sync.Mutex
	discoveryFile *os.File
	csvWriter     *csv.Writer
}

func NewStorageManager(config *OutputConfig, logger *logrus.Logger) (*StorageManager, error) {
	sm := &StorageManager{
		config: config,
		logger: logger,
	}

	if err := os.MkdirAll(config.OutputDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if config.SaveDiscoveries {
		if err := sm.openDiscoveryFile(); err != nil {
			return nil, err
		}
		logger.WithField("file", sm.discoveryPath()).Debug("Discovery file ready")
	}

	return sm, nil
}

func (sm *StorageManager) discoveryPath() string {
	return filepath.Join(sm.config.OutputDirectory, sm.config.FilenamePrefix+"_discoveries.csv")
}

func (sm *StorageManager) statsPath() string {
	return filepath.Join(sm.config.OutputDirectory, sm.config.FilenamePrefix+"_stats.json")
}

func (sm *StorageManager) openDiscoveryFile() error {
	path := sm.discoveryPath()

	info, err := os.Stat(path)
	isNew := err != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open discovery file: %w", err)
	}

	sm.discoveryFile = file
	sm.csvWriter = csv.NewWriter(file)

	if isNew {
		header := []string{"exponent", "digits", "found_at", "worker_id", "verified", "known"}
		if err := sm.csvWriter.Write(header); err != nil {
			file.Close()
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		sm.csvWriter.Flush()
	}

	return nil
}

// SaveDiscovery appends one discovered exponent to the CSV file. Every row
// carries verified=false; a discovery only counts once an independent run
// has confirmed it.
func (sm *StorageManager) SaveDiscovery(exponent uint64, workerID int, foundAt time.Time) error {
	if !sm.config.SaveDiscoveries {
		return nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	record := []string{
		strconv.FormatUint(exponent, 10),
		strconv.FormatUint(mersenne.Digits(exponent), 10),
		foundAt.UTC().Format(time.RFC3339),
		strconv.Itoa(workerID),
		"false",
		strconv.FormatBool(mersenne.IsKnown(exponent)),
	}

	if err := sm.csvWriter.Write(record); err != nil {
		return fmt.Errorf("failed to write discovery: %w", err)
	}
	sm.csvWriter.Flush()

	if err := sm.csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush discovery: %w", err)
	}

	return nil
}

// SaveStatistics rewrites the stats snapshot in place. The file always
// holds exactly one snapshot, the most recent.
func (sm *StorageManager) SaveStatistics(stats Statistics) error {
	if !sm.config.SaveStats {
		return nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}

	if err := os.WriteFile(sm.statsPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}

	return nil
}

func (sm *StorageManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.discoveryFile == nil {
		return nil
	}

	sm.csvWriter.Flush()
	err := sm.discoveryFile.Close()
	sm.discoveryFile = nil

	return err
}
