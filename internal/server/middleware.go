package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultContentSecurityPolicy is added to HTML responses that do not
	// set their own policy. It restricts scripts, styles and the base URI to
	// the service's own origin and forbids plugin objects.
	DefaultContentSecurityPolicy = "default-src 'self'; script-src 'self'; object-src 'none'; base-uri 'self';"

	headerCSP       = "Content-Security-Policy"
	headerRequestID = "X-Request-ID"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the request id stored in ctx by the request id
// middleware, or "" when there is none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// responseRecorder wraps an http.ResponseWriter to observe the status code
// and to run a hook right before the headers are sent.
type responseRecorder struct {
	http.ResponseWriter

	status       int
	bytes        int
	wroteHeader  bool
	beforeHeader func(http.Header)
}

func newResponseRecorder(w http.ResponseWriter, beforeHeader func(http.Header)) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		status:         http.StatusOK,
		beforeHeader:   beforeHeader,
	}
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = code
	if r.beforeHeader != nil {
		r.beforeHeader(r.Header())
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		// net/http would sniff after our hook ran; sniff first so the hook
		// sees the real content type
		if r.Header().Get("Content-Type") == "" {
			r.Header().Set("Content-Type", http.DetectContentType(b))
		}
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Flush implements http.Flusher for streaming handlers.
func (r *responseRecorder) Flush() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestID reuses the caller's X-Request-ID or generates one, stores it
// in the request context and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAccessLog logs one line per request.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w, nil)

		next.ServeHTTP(rec, r)

		s.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestID(r.Context()),
		)
	})
}

// withRecovery turns a panicking handler into a 500 response. The full stack
// trace is logged with a correlation id; the client only sees the id.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := newResponseRecorder(w, nil)

		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}

			correlationID := uuid.NewString()
			s.logger.Error("handler panic",
				"correlation_id", correlationID,
				"request_id", RequestID(r.Context()),
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)

			if rec.wroteHeader {
				// too late for a clean error response
				return
			}
			s.writeError(rec, http.StatusInternalServerError,
				fmt.Sprintf("internal error (correlation_id: %s)", correlationID))
		}()

		next.ServeHTTP(rec, r)
	})
}

// withContentSecurityPolicy adds the configured policy to HTML responses
// that do not already carry a Content-Security-Policy header.
func (s *Server) withContentSecurityPolicy(next http.Handler) http.Handler {
	addPolicy := func(h http.Header) {
		if !strings.HasPrefix(h.Get("Content-Type"), "text/html") {
			return
		}
		if h.Get(headerCSP) != "" {
			return
		}
		h.Set(headerCSP, s.csp)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(newResponseRecorder(w, addPolicy), r)
	})
}
