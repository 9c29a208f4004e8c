package server

import (
	"fmt"
	"html"
	"io/fs"
	"math"
	"math/big"
	"net/http"
	"strings"

	"github.com/jpalmerr/procedurelab/internal/apperr"
	"github.com/jpalmerr/procedurelab/internal/calc"
	"github.com/jpalmerr/procedurelab/web"
)

// fibBody is the JSON shape of a /fib response.
type fibBody struct {
	N   int      `json:"n"`
	Fib *big.Int `json:"fib"`
}

// queryParam returns the first value of the query parameter name, or def
// when the parameter is absent. A present but empty parameter yields "".
func queryParam(r *http.Request, name, def string) string {
	values, ok := r.URL.Query()[name]
	if !ok || len(values) == 0 {
		return def
	}
	return values[0]
}

// handleIndex serves the form page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		s.writeError(w, http.StatusInternalServerError, "page not found")
		return
	}

	content, err := fs.ReadFile(s.assets, web.IndexPath)
	if err != nil {
		s.logger.Error("failed to read form page", "error", err)
		s.writeError(w, http.StatusInternalServerError, "page not found")
		return
	}

	// the title comes from configuration; escape it like any other input
	rendered := strings.ReplaceAll(string(content), web.TitlePlaceholder, html.EscapeString(s.title))
	s.writeHTML(w, http.StatusOK, rendered)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAdd returns a+b for the query parameters a and b.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	a, errA := calc.ParseFloat(queryParam(r, "a", "0"))
	b, errB := calc.ParseFloat(queryParam(r, "b", "0"))
	if errA != nil || errB != nil {
		s.writeError(w, http.StatusBadRequest, calc.MsgInvalidNumbers)
		return
	}

	sum := calc.Add(a, b)
	if math.IsInf(sum, 0) {
		// finite operands can still overflow, and JSON has no infinity
		s.writeError(w, http.StatusBadRequest, calc.MsgInvalidNumbers)
		return
	}

	s.writeJSON(w, http.StatusOK, resultBody{Result: sum})
}

// handleFib returns the n-th Fibonacci number for the query parameter n.
func (s *Server) handleFib(w http.ResponseWriter, r *http.Request) {
	n, err := calc.ParseInt(queryParam(r, "n", "0"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	if s.maxFibN > 0 && n > s.maxFibN {
		s.writeAppError(w, apperr.New(apperr.InvalidArgument, fmt.Sprintf("n must be <= %d", s.maxFibN)))
		return
	}

	fib, err := calc.Fib(n)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fibBody{N: n, Fib: fib})
}

// handleVulnerableEcho greets the name query parameter.
//
// Despite its name the input is escaped; the endpoint is kept as the
// "before" half of the echo pair, with the mitigation applied.
func (s *Server) handleVulnerableEcho(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, http.StatusOK, greeting(r.URL.Query().Get("name")))
}

// handleSafeEcho greets the name query parameter with escaping.
func (s *Server) handleSafeEcho(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, http.StatusOK, greeting(r.URL.Query().Get("name")))
}

// greeting renders the echo page body. html.EscapeString neutralizes
// <, >, &, ' and ", so name can neither close the h2 element nor open an
// attribute or script context.
func greeting(name string) string {
	return "<h2>Hello " + html.EscapeString(name) + "</h2>"
}
