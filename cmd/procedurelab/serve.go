package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/procedurelab"
	"github.com/jpalmerr/procedurelab/config"
)

// newLogger creates the CLI logger from the log section of the config.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// loadConfig reads the file named by --config, or returns defaults when the
// flag is empty. A --port flag overrides the configured port.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Port = port
	}
	return cfg, nil
}

// serveCmd starts the lab server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lab server",
	Long: `Start the procedurelab HTTP server.

The server will:
  - Load configuration from the given YAML or TOML file, if any
  - Seed the item store with the configured items
  - Serve the form page and API on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  procedurelab serve
  procedurelab serve -c lab.yaml --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (.yaml, .yml or .toml)")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port, overrides the config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Log)
	logger.Info("config loaded",
		"items", len(cfg.Items),
		"max_fib_n", cfg.MaxFibN,
	)
	logger.Info("starting server", "port", cfg.Port)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, procedurelab.WithLogger(logger))

	lab, err := procedurelab.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create lab: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, lab, cfg.ShutdownTimeout.Duration(), logger)
}

// run starts lab and waits for it to stop, giving it at most shutdownTimeout
// to finish once ctx is cancelled.
func run(ctx context.Context, lab *procedurelab.Lab, shutdownTimeout time.Duration, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- lab.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
