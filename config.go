package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ==================== CONFIGURATION STRUCTURES ====================

type SearchConfig struct {
	StartExponent     uint64 `json:"start_exponent" yaml:"start_exponent"`
	MillerRabinRounds int    `json:"miller_rabin_rounds" yaml:"miller_rabin_rounds"`
}

type PerformanceConfig struct {
	Workers       int           `json:"workers" yaml:"workers"`
	QueueCapacity int           `json:"queue_capacity" yaml:"queue_capacity"`
	StatsInterval time.Duration `json:"stats_interval" yaml:"stats_interval"`
}

// MarshalYAML renders the stats interval as a duration string ("1m0s")
// instead of raw nanoseconds, so the generated config file stays editable
// by hand. Viper parses both forms when reading it back.
func (p PerformanceConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Workers       int    `yaml:"workers"`
		QueueCapacity int    `yaml:"queue_capacity"`
		StatsInterval string `yaml:"stats_interval"`
	}{p.Workers, p.QueueCapacity, p.StatsInterval.String()}, nil
}

type OutputConfig struct {
	SaveDiscoveries bool   `json:"save_discoveries" yaml:"save_discoveries"`
	SaveStats       bool   `json:"save_stats" yaml:"save_stats"`
	OutputDirectory string `json:"output_directory" yaml:"output_directory"`
	FilenamePrefix  string `json:"filename_prefix" yaml:"filename_prefix"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
	Verbose         bool   `json:"verbose" yaml:"verbose"`
}

type Config struct {
	Search      SearchConfig      `json:"search" yaml:"search"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	Output      OutputConfig      `json:"output" yaml:"output"`

	// Internal fields
	configPath string
	loadedFrom string
}

// ==================== CONFIGURATION MANAGEMENT ====================

func setDefaults() {
	// Search defaults
	viper.SetDefault("search.start_exponent", 1)
	viper.SetDefault("search.miller_rabin_rounds", 25)

	// Performance defaults
	viper.SetDefault("performance.workers", 8)
	viper.SetDefault("performance.queue_capacity", 100)
	viper.SetDefault("performance.stats_interval", "1m")

	// Output defaults
	viper.SetDefault("output.save_discoveries", true)
	viper.SetDefault("output.save_stats", true)
	viper.SetDefault("output.output_directory", ".")
	viper.SetDefault("output.filename_prefix", "mersenne")
	viper.SetDefault("output.log_level", "info")
	viper.SetDefault("output.verbose", false)
}

// configFromViper reads every key explicitly rather than unmarshalling the
// whole tree, so flag and environment bindings are always honored.
func configFromViper() *Config {
	cfg := &Config{}

	cfg.Search.StartExponent = viper.GetUint64("search.start_exponent")
	cfg.Search.MillerRabinRounds = viper.GetInt("search.miller_rabin_rounds")

	cfg.Performance.Workers = viper.GetInt("performance.workers")
	cfg.Performance.QueueCapacity = viper.GetInt("performance.queue_capacity")
	cfg.Performance.StatsInterval = viper.GetDuration("performance.stats_interval")

	cfg.Output.SaveDiscoveries = viper.GetBool("output.save_discoveries")
	cfg.Output.SaveStats = viper.GetBool("output.save_stats")
	cfg.Output.OutputDirectory = viper.GetString("output.output_directory")
	cfg.Output.FilenamePrefix = viper.GetString("output.filename_prefix")
	cfg.Output.LogLevel = viper.GetString("output.log_level")
	cfg.Output.Verbose = viper.GetBool("output.verbose")

	return cfg
}

func loadConfigFromFile(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := configFromViper()

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.configPath = path
	cfg.loadedFrom = viper.ConfigFileUsed()

	return cfg, nil
}

func createDefaultConfig() *Config {
	setDefaults()
	return configFromViper()
}

func validateConfig(cfg *Config) error {
	if cfg.Search.MillerRabinRounds < 1 {
		return fmt.Errorf("miller_rabin_rounds must be at least 1")
	}
	if cfg.Performance.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if cfg.Performance.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1")
	}
	if cfg.Performance.StatsInterval <= 0 {
		return fmt.Errorf("stats_interval must be positive")
	}
	if cfg.Output.OutputDirectory == "" {
		return fmt.Errorf("output_directory cannot be empty")
	}
	switch cfg.Output.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

func saveDefaultConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	header := `# Mersenne hunter configuration
# Generated automatically on ` + time.Now().UTC().Format("2006-01-02 15:04:05") + `

`

	return os.WriteFile(path, []byte(header+string(data)), 0644)
}
