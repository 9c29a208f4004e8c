package procedurelab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/procedurelab/internal/server"
	"github.com/jpalmerr/procedurelab/internal/store"
	"github.com/jpalmerr/procedurelab/web"
)

const (
	defaultPort = 8080
)

// ChangeOp identifies the kind of item mutation reported to change callbacks.
type ChangeOp string

const (
	// ChangeCreated is reported when an item is created or replaced.
	ChangeCreated ChangeOp = "created"

	// ChangeUpdated is reported when an item is patched.
	ChangeUpdated ChangeOp = "updated"

	// ChangeDeleted is reported when an item is deleted.
	ChangeDeleted ChangeOp = "deleted"
)

// ItemChange describes one successful mutation of the item store.
type ItemChange struct {
	// Key is the affected item key.
	Key string

	// Op is the mutation that happened.
	Op ChangeOp

	// Value is the item's value after the mutation as plain Go data
	// (map[string]any, []any, string, float64, bool or nil). It is a copy
	// owned by the callback. Always nil for ChangeDeleted.
	Value any

	// At is when the mutation was applied.
	At time.Time
}

// Lab serves the arithmetic utilities, the item store and the echo pages.
//
// A Lab is created using [New] with functional options and started with
// [Lab.Start]. The item store belongs to the Lab; it starts empty apart from
// items seeded with [WithItem] and is discarded with the process.
//
// The typical lifecycle is:
//
//	lab, err := procedurelab.New(procedurelab.WithPort(8080))
//	if err != nil {
//	    slog.Error("failed to create lab", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	lab.Start(ctx) // blocks until context cancelled
type Lab struct {
	title           string
	port            int
	csp             string
	maxFibN         int
	logger          *slog.Logger
	changeCallbacks []func(ItemChange)
	store           *store.MemoryStore
}

// New creates a new [Lab] instance with the given options.
//
// Defaults:
//   - Port: 8080
//   - Title: "Procedure Lab"
//   - Content-Security-Policy: see [WithContentSecurityPolicy]
//   - No upper bound on /fib's n
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Lab, error) {
	cfg := &labConfig{
		port: defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	st := store.NewMemoryStore()
	for _, item := range cfg.items {
		st.Create(item.key, item.value)
	}

	return &Lab{
		title:           cfg.title,
		port:            cfg.port,
		csp:             cfg.csp,
		maxFibN:         cfg.maxFibN,
		logger:          logger,
		changeCallbacks: cfg.changeCallbacks,
		store:           st,
	}, nil
}

// Start serves HTTP requests until the provided context is cancelled.
//
// While running, every item mutation is logged at DEBUG level and passed to
// the callbacks registered with [WithChangeCallback].
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start.
func (l *Lab) Start(ctx context.Context) error {
	l.logger.Info("procedurelab starting", "items", l.store.Len())
	l.logger.Info("form page available", "url", fmt.Sprintf("http://localhost:%d", l.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	changes := l.store.Subscribe()

	// track the change consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for change := range changes {
			l.logger.Debug("item changed", "op", change.Op, "key", change.Key)

			if len(l.changeCallbacks) == 0 {
				continue
			}
			public := toItemChange(change)
			for _, cb := range l.changeCallbacks {
				invokeCallbackSafe(cb, public, l.logger)
			}
		}
	}()

	// Unsubscribe closes the channel, which ends the consumer
	cleanup := func() {
		l.store.Unsubscribe(changes)
		wg.Wait()
	}

	httpServer := server.NewServer(l.store, l.serverConfig(), l.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	l.logger.Info("procedurelab stopped")
	return nil
}

// Handler returns the lab's HTTP handler without starting a listener, for
// embedding into another server or for tests. It shares the Lab's item
// store. Change callbacks only run while [Lab.Start] is active.
func (l *Lab) Handler() http.Handler {
	return server.NewServer(l.store, l.serverConfig(), l.logger).Handler()
}

// Port returns the configured HTTP port.
func (l *Lab) Port() int {
	return l.port
}

// Title returns the configured form page title, or "" for the default.
func (l *Lab) Title() string {
	return l.title
}

// Keys returns the keys currently in the item store, in ascending order.
func (l *Lab) Keys() []string {
	return l.store.Keys()
}

func (l *Lab) serverConfig() server.Config {
	return server.Config{
		Port:                  l.port,
		Title:                 l.title,
		ContentSecurityPolicy: l.csp,
		MaxFibN:               l.maxFibN,
		Assets:                web.Assets,
	}
}

// toItemChange converts a store change to the public type. The value is
// already a per-subscriber copy, so AsInterface output is owned by the caller.
func toItemChange(c store.Change) ItemChange {
	out := ItemChange{
		Key: c.Key,
		Op:  ChangeOp(c.Op),
		At:  c.At,
	}
	if c.Value != nil {
		out.Value = c.Value.AsInterface()
	}
	return out
}

// invokeCallbackSafe calls a change callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(ItemChange), change ItemChange, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("change callback panicked",
				"panic", r,
				"key", change.Key,
			)
		}
	}()
	cb(change)
}
