package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoResult is returned by a lookup when every network attempt failed.
// It is the terminal-miss signal: callers must check for it before using
// a result, and it is never accompanied by a partial value.
var ErrNoResult = errors.New("no result from nakdan service")

// ErrorType classifies service errors for the HTTP boundary.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a caller error (bad genre, empty
	// or oversize text) detected before any cache or network work.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	// ErrorTypeUpstream indicates the remote service could not be
	// reached after exhausting retries.
	ErrorTypeUpstream ErrorType = "upstream_unavailable"
)

// ServiceError is the error type crossing the collaborator boundary.
type ServiceError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	// Err holds the underlying cause for debugging; not exposed to clients.
	Err error `json:"-"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the error type to an HTTP status.
func (e *ServiceError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidGenreError reports a genre outside the allowed set.
func NewInvalidGenreError(genre string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInvalidRequest,
		Message: fmt.Sprintf("invalid genre: %q", genre),
	}
}

// NewInvalidRequestError reports a caller error such as empty or
// oversize input text or an out-of-range settings value.
func NewInvalidRequestError(message string) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeInvalidRequest,
		Message: message,
	}
}

// NewUpstreamError wraps ErrNoResult for the HTTP boundary.
func NewUpstreamError(err error) *ServiceError {
	return &ServiceError{
		Type:    ErrorTypeUpstream,
		Message: "failed to get nikud from the nakdan service",
		Err:     err,
	}
}
