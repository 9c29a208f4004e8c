package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jpalmerr/procedurelab/internal/store"
)

// changeEvent is the JSON payload of one SSE message.
type changeEvent struct {
	Op    store.Op        `json:"op"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
	At    time.Time       `json:"at"`
}

// newChangeEvent converts a store change to its wire form.
func newChangeEvent(c store.Change) (changeEvent, error) {
	ev := changeEvent{Op: c.Op, Key: c.Key, At: c.At}
	if c.Value != nil {
		data, err := store.EncodeJSON(c.Value)
		if err != nil {
			return changeEvent{}, err
		}
		ev.Value = data
	}
	return ev, nil
}

// handleEvents streams item changes via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	rc := http.NewResponseController(w)

	// not every ResponseWriter supports deadlines (httptest.ResponseRecorder doesn't)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send headers now so clients see the stream open before the first change
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case change, ok := <-ch:
			if !ok {
				return
			}
			ev, err := newChangeEvent(change)
			if err != nil {
				s.logger.Error("failed to encode change", "key", change.Key, "error", err)
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
