package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned on missing or malformed input
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is returned when the resource conflicts (e.g. duplicate registration)
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned on invalid tokens, codes, challenges and fingerprints
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCrypto is returned when decryption of a stored field fails.
	// Callers must not mask it as "field absent".
	ErrCrypto = errors.New("crypto failure")

	// ErrUpstream is returned when the data store misbehaves
	ErrUpstream = errors.New("upstream failure")

	// ErrInternal (for unhandled exceptions)
	ErrInternal = errors.New("internal error")
)

// ServiceError is the uniform failure shape of the business layer, carrying
// the HTTP status the transport layer should answer with alongside a human
// message and a machine-usable reason.
type ServiceError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Reason)
}

// NewServiceError creates a ServiceError. A zero code defaults to 500.
func NewServiceError(message string, reason string, code int) *ServiceError {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return &ServiceError{Code: code, Message: message, Reason: reason}
}

// AsServiceError extracts a ServiceError from err, mapping known sentinel
// errors to their HTTP status. Anything unrecognized becomes a generic 500
// so internals never leak to the caller.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NewServiceError("Not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrBadRequest):
		return NewServiceError("Invalid input", err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrConflict):
		return NewServiceError("Conflict", err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrUnauthorized):
		return NewServiceError("Unauthorized", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrCrypto), errors.Is(err, ErrUpstream):
		return NewServiceError("Internal server error", "internal failure", http.StatusBadGateway)
	}
	return NewServiceError("Internal server error", "internal failure", http.StatusInternalServerError)
}
