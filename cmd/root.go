package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tallyloom/internal/config"
	"github.com/KaramelBytes/tallyloom/internal/logging"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/session"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tallyloom",
	Short: "TallyLoom: parse, classify and summarize tabular or free-text data",
	Long: `TallyLoom reads JSON, CSV, TSV, XLSX or loose key:value text, splits the
records into financial and organizational buckets and reports statistics for
each. Results can be kept as sessions, exported, or served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tallyloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	lf := cfg.LogFormat
	if logFormat != "" {
		lf = logFormat
	}
	slog.SetDefault(logging.Setup(level, lf))
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// newEngine builds the engine from the loaded configuration.
func newEngine(mutate func(*pipeline.Config)) (*pipeline.Engine, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	ec := c.EngineConfig()
	if mutate != nil {
		mutate(&ec)
	}
	return pipeline.New(ec), nil
}

// openStore opens the configured session store. Callers must Close it.
func openStore() (session.Store, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	backend, location := c.StoreLocation()
	st, err := session.Open(backend, location)
	if err != nil {
		return nil, fmt.Errorf("open %s session store: %w", backend, err)
	}
	slog.Debug("session store opened", "backend", backend, "location", location)
	return st, nil
}
