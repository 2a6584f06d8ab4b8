package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/memfit/pkg/alloc"
	"github.com/Sumatoshi-tech/memfit/pkg/config"
	"github.com/Sumatoshi-tech/memfit/pkg/csvio"
)

// loadConfig reads the configuration, fills unset capacity/timeout flags
// from it, and installs the default logger at the configured level.
func loadConfig(
	cmd *cobra.Command, configPath string, capacity *int64, timeout *time.Duration, verbose bool,
) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if !cmd.Flags().Changed("capacity") {
		*capacity = cfg.Capacity
	}

	if !cmd.Flags().Changed("timeout") {
		*timeout = cfg.Timeout
	}

	setupLogging(cfg.Logging.Level, verbose)

	return cfg, nil
}

// setupLogging installs a text slog handler on stderr. Verbose forces
// debug level regardless of configuration.
func setupLogging(level string, verbose bool) {
	logLevel := slog.LevelInfo

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	if verbose {
		logLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

// readProblem loads and parses the input CSV, stamping the capacity.
func readProblem(path string, capacity int64) (*alloc.Problem, error) {
	contents, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}

	problem, err := csvio.FromCSV(contents)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	problem.Capacity = capacity

	return problem, nil
}
