// Package server provides the HTTP server for the lab.
//
// This package handles all HTTP concerns:
//
//   - Form page: Serves the embedded HTML page at "/"
//   - Numeric API: "/add" and "/fib" return JSON results
//   - Item API: CRUD on "/items/{key}" backed by a [store.Store]
//   - Change stream: Server-Sent Events at "/events"
//   - Echo pages: "/vulnerable_echo" and "/safe_echo" reflect an escaped name
//
// Every response passes through a middleware chain that assigns a request
// id, logs the request, recovers from handler panics and adds a
// Content-Security-Policy header to HTML responses that lack one.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the procedurelab library should not need to interact with this
// package directly. The server is started by [procedurelab.Lab.Start].
package server
