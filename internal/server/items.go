package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jpalmerr/procedurelab/internal/apperr"
	"github.com/jpalmerr/procedurelab/internal/store"
)

var (
	errNotFound    = apperr.New(apperr.NotFound, "not found")
	errInvalidJSON = apperr.New(apperr.InvalidArgument, "invalid json")
)

// itemBody is the JSON shape of GET /items/{key}.
type itemBody struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// keysBody is the JSON shape of GET /items.
type keysBody struct {
	Keys []string `json:"keys"`
}

// handleGetItem returns the value stored at {key}.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	value, ok := s.store.Read(key)
	if !ok {
		s.writeAppError(w, errNotFound)
		return
	}

	data, err := store.EncodeJSON(value)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, itemBody{Key: key, Value: data})
}

// handlePutItem stores the JSON body at {key}, replacing any existing value.
func (s *Server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	value, err := s.decodeBody(r)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	s.store.Create(key, value)
	s.logger.Debug("item created", "key", key, "request_id", RequestID(r.Context()))

	s.writeJSON(w, http.StatusCreated, resultBody{Result: "created"})
}

// handlePatchItem merges the JSON body into the value stored at {key}.
func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	patch, err := s.decodeBody(r)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	if !s.store.Update(key, patch) {
		s.writeAppError(w, errNotFound)
		return
	}
	s.logger.Debug("item updated", "key", key, "request_id", RequestID(r.Context()))

	s.writeJSON(w, http.StatusOK, resultBody{Result: "updated"})
}

// handleDeleteItem removes {key}.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if !s.store.Delete(key) {
		s.writeAppError(w, errNotFound)
		return
	}
	s.logger.Debug("item deleted", "key", key, "request_id", RequestID(r.Context()))

	s.writeJSON(w, http.StatusOK, resultBody{Result: "deleted"})
}

// handleListItems returns the stored keys in ascending order.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, keysBody{Keys: s.store.Keys()})
}

// decodeBody parses the request body as a JSON value of any shape.
// The Content-Type header is not checked.
func (s *Server) decodeBody(r *http.Request) (*structpb.Value, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errInvalidJSON
	}

	value, err := store.DecodeJSON(body)
	if err != nil {
		s.logger.Debug("rejected request body", "error", err, "request_id", RequestID(r.Context()))
		return nil, errInvalidJSON
	}
	return value, nil
}
