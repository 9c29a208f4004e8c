package server

import (
	"encoding/json"
	"net/http"

	"github.com/jpalmerr/procedurelab/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// resultBody is the JSON shape of mutation acknowledgements and /add.
type resultBody struct {
	Result any `json:"result"`
}

// writeJSON encodes v as the response body with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode json response", "error", err)
	}
}

// writeError writes {"error": message} with the given status code.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Error: message})
}

// writeAppError classifies err and writes it with the matching status code.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	appErr := apperr.Classify(err)
	status := apperr.StatusCode(appErr.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, appErr.Message)
}

// writeHTML writes an HTML body. The Content-Security-Policy header is added
// by the CSP middleware.
func (s *Server) writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("failed to write html response", "error", err)
	}
}
