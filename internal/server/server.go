package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jpalmerr/procedurelab/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// DefaultTitle is used when no custom title is configured.
	DefaultTitle = "Procedure Lab"
)

// Config holds the optional settings of a [Server].
type Config struct {
	// Port is the TCP port to listen on. Zero picks a free port.
	Port int

	// Title is shown on the form page. Defaults to [DefaultTitle].
	Title string

	// ContentSecurityPolicy is added to HTML responses.
	// Defaults to [DefaultContentSecurityPolicy].
	ContentSecurityPolicy string

	// MaxFibN rejects /fib requests with a larger n. Zero means no limit.
	MaxFibN int

	// Assets holds the form page at web.IndexPath. May be nil, in which
	// case "/" answers 500.
	Assets fs.FS
}

// Server handles HTTP requests for the lab.
//
// Server provides these endpoints:
//   - GET /: HTML form page
//   - GET /add, GET /fib: numeric utilities
//   - GET|PUT|PATCH|DELETE /items/{key}, GET /items: item store
//   - GET /events: Server-Sent Events stream of item changes
//   - GET /vulnerable_echo, GET /safe_echo: escaped greeting pages
//   - GET /healthz: liveness probe
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	title      string
	csp        string
	maxFibN    int
	assets     fs.FS
	httpServer *http.Server
	addr       net.Addr
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server] backed by st.
//
// The server is not started until [Server.Start] is called; [Server.Handler]
// can be used without starting it.
func NewServer(st store.Store, cfg Config, logger *slog.Logger) *Server {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.ContentSecurityPolicy == "" {
		cfg.ContentSecurityPolicy = DefaultContentSecurityPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		store:   st,
		port:    cfg.Port,
		title:   cfg.Title,
		csp:     cfg.ContentSecurityPolicy,
		maxFibN: cfg.MaxFibN,
		assets:  cfg.Assets,
		logger:  logger,
	}
}

// Handler returns the routed handler wrapped in the middleware chain:
// request id, access log, panic recovery and CSP post-processing.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/add", s.handleAdd).Methods(http.MethodGet)
	r.HandleFunc("/fib", s.handleFib).Methods(http.MethodGet)

	r.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	r.HandleFunc("/items/{key}", s.handleGetItem).Methods(http.MethodGet)
	r.HandleFunc("/items/{key}", s.handlePutItem).Methods(http.MethodPut)
	r.HandleFunc("/items/{key}", s.handlePatchItem).Methods(http.MethodPatch)
	r.HandleFunc("/items/{key}", s.handleDeleteItem).Methods(http.MethodDelete)
	r.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	r.HandleFunc("/vulnerable_echo", s.handleVulnerableEcho).Methods(http.MethodGet)
	r.HandleFunc("/safe_echo", s.handleSafeEcho).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// outermost first
	var h http.Handler = r
	h = s.withContentSecurityPolicy(h)
	h = s.withRecovery(h)
	h = s.withAccessLog(h)
	h = withRequestID(h)
	return h
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx, so long-running handlers like
		// the SSE stream end when the server shuts down
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on, or nil before
// [Server.Start] succeeded.
func (s *Server) Addr() net.Addr {
	return s.addr
}
