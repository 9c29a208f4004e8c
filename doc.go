// Package procedurelab provides a small teaching service that exposes
// arithmetic utilities, an in-memory key-value store and a pair of HTML echo
// pages used to demonstrate input sanitization.
//
// # Quick Start
//
//	lab, _ := procedurelab.New(procedurelab.WithPort(8080))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	lab.Start(ctx) // blocks until context is cancelled
//
// # Endpoints
//
//   - GET /: HTML form page
//   - GET /add?a=&b=: {"result": a+b}
//   - GET /fib?n=: {"n": n, "fib": fib(n)}, exact for any n
//   - GET|PUT|PATCH|DELETE /items/{key}: item CRUD with JSON bodies
//   - GET /items: sorted list of keys
//   - GET /events: Server-Sent Events stream of item changes
//   - GET /vulnerable_echo?name=, GET /safe_echo?name=: escaped greeting
//   - GET /healthz: liveness probe
//
// Malformed input yields 400 and missing items 404, both with a JSON body of
// the form {"error": "..."}. Every HTML response carries a
// Content-Security-Policy header unless the handler set one itself.
//
// # Item Store
//
// Items are arbitrary JSON values. The store copies values on the way in and
// on the way out, so no caller can mutate stored state through a reference.
// PATCH merges the top-level fields of an object patch into an object value
// and replaces any other value outright.
//
// # Architecture
//
// The service consists of several packages:
//
//   - internal/calc: Add, Fib and operand parsing
//   - internal/apperr: Error taxonomy mapped to HTTP status codes
//   - internal/store: Mutex-guarded item store with change feed
//   - internal/server: Routing, handlers and middleware
//   - web: Embedded form page
//   - config: YAML/TOML configuration for the standalone binary
//
// The internal packages are not part of the public API and may change
// without notice.
package procedurelab
