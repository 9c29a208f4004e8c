package procedurelab

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jpalmerr/procedurelab/internal/store"
)

// seedItem is an item stored before the Lab starts serving.
type seedItem struct {
	key   string
	value *structpb.Value
}

// labConfig holds mutable state during Lab construction.
type labConfig struct {
	title           string
	port            int
	csp             string
	maxFibN         int
	logger          *slog.Logger
	items           []seedItem
	changeCallbacks []func(ItemChange)
}

// Option is a function that configures a [Lab] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*labConfig) error

// WithPort sets the HTTP port.
//
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *labConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the title shown on the form page.
//
// If not specified, defaults to "Procedure Lab". The title is HTML-escaped
// before it is rendered.
func WithTitle(title string) Option {
	return func(cfg *labConfig) error {
		cfg.title = title
		return nil
	}
}

// WithContentSecurityPolicy replaces the Content-Security-Policy added to
// HTML responses that do not set their own. The default is
//
//	default-src 'self'; script-src 'self'; object-src 'none'; base-uri 'self';
//
// Returns an error if the policy is empty.
func WithContentSecurityPolicy(policy string) Option {
	return func(cfg *labConfig) error {
		if strings.TrimSpace(policy) == "" {
			return errors.New("content security policy cannot be empty")
		}
		cfg.csp = policy
		return nil
	}
}

// WithMaxFibN rejects /fib requests whose n exceeds max with a 400 response.
// Zero, the default, means no limit.
//
// Returns an error if max is negative.
func WithMaxFibN(max int) Option {
	return func(cfg *labConfig) error {
		if max < 0 {
			return errors.New("max fib n cannot be negative")
		}
		cfg.maxFibN = max
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Lab instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *labConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithItem seeds the item store with value at key.
//
// value may be any JSON-like Go value: nil, bool, numbers, string,
// []any and map[string]any, nested freely. The value is copied; later
// changes to it do not affect the store. Seeding the same key twice keeps
// the last value.
//
// Example:
//
//	lab, err := procedurelab.New(
//	    procedurelab.WithItem("greeting", map[string]any{"text": "hi"}),
//	)
//
// Returns an error if the key is empty or the value cannot be represented
// as JSON.
func WithItem(key string, value any) Option {
	return func(cfg *labConfig) error {
		if key == "" {
			return errors.New("item key cannot be empty")
		}
		v, err := store.NewValue(value)
		if err != nil {
			return fmt.Errorf("item %q: %w", key, err)
		}
		cfg.items = append(cfg.items, seedItem{key: key, value: v})
		return nil
	}
}

// WithChangeCallback registers a function to be called after every
// successful item mutation (create, update or delete).
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They are invoked synchronously
// from a single goroutine, and the change feed drops events for a consumer
// that falls more than 100 changes behind.
//
// Panics within callbacks are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithChangeCallback(cb func(ItemChange)) Option {
	return func(cfg *labConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.changeCallbacks = append(cfg.changeCallbacks, cb)
		return nil
	}
}
