package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/procedurelab"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	lab, err := procedurelab.New(
		procedurelab.WithPort(8080),
		procedurelab.WithTitle("Procedure Lab Demo"),
		procedurelab.WithMaxFibN(10000),
		procedurelab.WithLogger(logger),
		procedurelab.WithItem("greeting", map[string]any{"text": "hello", "lang": "en"}),
		procedurelab.WithItem("primes", []any{2, 3, 5, 7, 11}),
		procedurelab.WithChangeCallback(func(c procedurelab.ItemChange) {
			logger.Info("item change", "op", c.Op, "key", c.Key, "value", c.Value)
		}),
	)
	if err != nil {
		slog.Error("failed to create lab", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Procedure Lab Demo")
	fmt.Println()
	fmt.Println("  Form page:    http://localhost:8080")
	fmt.Println("  Live changes: curl -N http://localhost:8080/events")
	fmt.Println()
	fmt.Println("  Demo traffic updates the \"visits\" and \"sensor\" items")
	fmt.Println("  every few seconds. Press Ctrl+C to stop.")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go GenerateDemoTraffic(ctx, "http://localhost:8080", logger)

	if err := lab.Start(ctx); err != nil {
		slog.Error("lab error", "error", err)
		os.Exit(1)
	}
}
