package client

import (
	"errors"
	"fmt"
	"strings"

	"finboard/internal/core"
)

var (
	// ErrNotFound is returned for HTTP 404.
	ErrNotFound = core.ErrNotFound
	// ErrUnauthorized is returned for HTTP 401; the session is cleared first.
	ErrUnauthorized = core.ErrUnauthorized
	// ErrForbidden is returned for HTTP 403.
	ErrForbidden = core.ErrForbidden
	// ErrNetwork wraps transport failures: no response was received.
	ErrNetwork = errors.New("network error")
)

// ValidationError carries the field errors of an HTTP 400 response.
type ValidationError struct {
	Message string
	Fields  []core.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return e.Message
		}
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Msg
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is(err, core.ErrValidation) match.
func (e *ValidationError) Unwrap() error { return core.ErrValidation }

// Field returns the message for param, if any.
func (e *ValidationError) Field(param string) (string, bool) {
	for _, f := range e.Fields {
		if f.Param == param {
			return f.Msg, true
		}
	}
	return "", false
}

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}
