package domain

import (
	"errors"
	"net/http"
)

// Domain errors - used across all layers
var (
	// ErrInvalidPersona indicates the persona is outside the closed set
	ErrInvalidPersona = errors.New("invalid persona")

	// ErrNotFound indicates the requested record was not found in the store
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable indicates the shared state store could not be reached
	ErrStoreUnavailable = errors.New("state store unavailable")
)

// StatusError is a tagged error carrying the HTTP status the boundary
// should answer with. Domain code decides the status once; the HTTP
// layer translates without re-wrapping.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// InvalidInput marks bad persona/state/code input (400).
func InvalidInput(message string) *StatusError {
	return &StatusError{Status: http.StatusBadRequest, Message: message}
}

// Unauthenticated marks a missing, expired, or invalid session (401).
func Unauthenticated(message string) *StatusError {
	return &StatusError{Status: http.StatusUnauthorized, Message: message}
}

// Forbidden marks a role still missing after retry (403).
func Forbidden(message string) *StatusError {
	return &StatusError{Status: http.StatusForbidden, Message: message}
}

// Internal marks upstream or store failures surfaced to the caller with
// a generic message (500). Detail belongs in logs, never the response.
func Internal(message string) *StatusError {
	return &StatusError{Status: http.StatusInternalServerError, Message: message}
}

// StatusOf extracts the HTTP status from an error chain, defaulting to
// 500 for anything untagged.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return http.StatusInternalServerError
}
