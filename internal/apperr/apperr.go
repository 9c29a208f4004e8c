// Package apperr defines the error taxonomy shared by the numeric utilities,
// the item store and the HTTP layer.
//
// Every failure that reaches a client is classified into a [Kind]. The HTTP
// layer maps kinds to status codes with [StatusCode] and writes the
// [Error.Message] as the response body, so messages must be safe to show to
// callers.
package apperr

import (
	"errors"
	"net/http"
)

var _ error = (*Error)(nil)

// Kind names a class of failure.
type Kind string

const (
	// InvalidArgument is reported for malformed input such as unparsable
	// numbers, a negative Fibonacci index or an invalid JSON body.
	InvalidArgument Kind = "InvalidArgument"

	// NotFound is reported when an item key is not present in the store.
	NotFound Kind = "NotFound"

	// Internal is reported for everything else.
	Internal Kind = "Internal"
)

// Error is a classified error with a client-facing message.
type Error struct {
	// Kind is the failure class.
	Kind Kind `json:"kind"`

	// Message is the human-readable description returned to clients.
	Message string `json:"message"`
}

// New returns a new Error instance.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Is reports whether target is an *Error of the same kind, so callers can
// write errors.Is(err, apperr.New(apperr.NotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Classify returns err as an *Error. Errors that are already classified are
// returned unchanged; anything else becomes an Internal error that keeps the
// original message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return New(Internal, err.Error())
}

// KindOf returns the Kind of err: Internal when err is unclassified, "" when
// err is nil.
func KindOf(err error) Kind {
	if c := Classify(err); c != nil {
		return c.Kind
	}
	return ""
}

// StatusCode maps a Kind to the HTTP status code used to report it.
func StatusCode(kind Kind) int {
	switch kind {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
