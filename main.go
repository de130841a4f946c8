package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ==================== VERSION INFO ====================

const (
	appName    = "prime11"
	appVersion = "1.0.0"
)

// ==================== CLI ====================

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   appName + " [start-exponent]",
		Short: "Multi-threaded Mersenne prime hunter",
		Long: `prime11 searches for Mersenne primes 2^p - 1 by testing exponents
sequentially. Each candidate passes through a layered filter: a
Miller-Rabin primality check on the exponent, an Euler shortcut for
exponents congruent to 3 mod 4, trial division over factors of the
form 2pk+1, and finally the Lucas-Lehmer test.

The search runs until interrupted. Discovered candidates are logged
and appended to a CSV file for independent verification.`,
		Version: appVersion,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runHunt,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config.yaml)")
	rootCmd.Flags().Uint64("start", 0, "exponent to start the search from")
	rootCmd.Flags().Int("workers", 0, "number of worker goroutines")
	rootCmd.Flags().Int("queue-capacity", 0, "task queue capacity")
	rootCmd.Flags().String("output-dir", "", "directory for discovery and statistics files")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("search.start_exponent", rootCmd.Flags().Lookup("start"))
	viper.BindPFlag("performance.workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("performance.queue_capacity", rootCmd.Flags().Lookup("queue-capacity"))
	viper.BindPFlag("output.output_directory", rootCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("output.verbose", rootCmd.Flags().Lookup("verbose"))

	viper.SetEnvPrefix("MERSENNE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	path := configFile
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	cfg, err := loadConfigFromFile(path)
	if err == nil {
		return cfg, nil
	}

	if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// No config file present. Run on defaults and leave one behind for
	// the next invocation.
	cfg = createDefaultConfig()
	if saveErr := saveDefaultConfig(path, cfg); saveErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not write default config: %v\n", saveErr)
	}

	return cfg, validateConfig(cfg)
}

// resolveStartExponent applies the optional positional argument on top of
// the configured starting exponent. A bare positional argument overrides
// everything else; anything that does not parse as a positive integer is
// ignored and the search starts from the configured exponent, clamped to
// at least 1.
func resolveStartExponent(args []string, configured uint64) uint64 {
	if len(args) == 1 {
		if start, err := strconv.ParseUint(args[0], 10, 64); err == nil && start > 0 {
			return start
		}
	}
	if configured < 1 {
		return 1
	}
	return configured
}

func runHunt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cfg.Search.StartExponent = resolveStartExponent(args, cfg.Search.StartExponent)

	logger := setupLogger(&cfg.Output)

	hunter, err := NewHunter(cfg, logger)
	if err != nil {
		return err
	}

	return hunter.Run(context.Background())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
