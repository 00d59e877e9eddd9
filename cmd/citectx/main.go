// Package main provides the citectx CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/citectx/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	verbose    bool
	configFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitError
}

var rootCmd = &cobra.Command{
	Use:   "citectx",
	Short: "Extract citation contexts from GROBID TEI documents",
	Long: `citectx turns GROBID TEI XML (or PDFs, via a GROBID service) into one row
per bibliographic citation: who cites whom, the citing sentence, its
surrounding context and the section it appears in.

Rows are written as TSV by default, or JSONL with --format jsonl.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides "+config.FileEnv+")")
	rootCmd.Version = Version
}

// loadConfig reads configuration, honouring --config.
func loadConfig() (config.Config, error) {
	if configFile != "" {
		os.Setenv(config.FileEnv, configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, withCode(ExitConfigError, "loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, withCode(ExitConfigError, "invalid configuration: %v", err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
