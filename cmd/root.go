package cmd

import (
	"fmt"
	"os"
	"sync"

	cfgpkg "github.com/KaramelBytes/tripboard/internal/config"
	"github.com/KaramelBytes/tripboard/internal/dataset"
	"github.com/KaramelBytes/tripboard/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagDataDir   string
	flagLogLevel  string
	flagLogFormat string

	// Loaded configuration
	cfg *cfgpkg.Global

	// The shared dataset cache is configured from the first loaded config only.
	cacheOnce sync.Once
)

var rootCmd = &cobra.Command{
	Use:          "tripboard",
	Short:        "Tripboard: car-sharing trip analytics dashboard",
	Long:         `Tripboard loads trips, cars and cities tables, joins them into one trip view, and reports summary metrics and charts per car brand, on the command line or as a local web dashboard.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tripboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory the dataset files are resolved against (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need data report the failure themselves
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// requireConfig returns the loaded config or the reason it is missing.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	return cfg, nil
}

// sharedSources configures the process-wide cache from config and loads the
// dataset through it.
func sharedSources() (*dataset.Sources, *dataset.Cache, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, nil, err
	}
	policy, err := dataset.ParsePolicy(c.CachePolicy)
	if err != nil {
		return nil, nil, err
	}
	opt, err := c.DatasetOptions()
	if err != nil {
		return nil, nil, err
	}
	cacheOnce.Do(func() { dataset.ConfigureShared(policy, opt) })
	cache := dataset.Shared()
	files := c.Files()
	src, err := cache.Get(files)
	if err != nil {
		return nil, cache, err
	}
	logging.Debug().
		Str("session", src.Session).
		Int("trips", len(src.Trips)).
		Int("cars", len(src.Cars)).
		Int("cities", len(src.Cities)).
		Msg("datasets loaded")
	for _, w := range src.Warnings {
		logging.Warn().Msg(w)
	}
	return src, cache, nil
}
