// Package apperr defines the error kinds surfaced to API clients and their
// mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Error kinds. Use errors.Is to test an error against a kind.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a client-facing error: a kind plus a human-readable message.
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string {
	return e.message
}

// Unwrap exposes the kind so that errors.Is(err, ErrNotFound) works.
func (e *Error) Unwrap() error {
	return e.kind
}

func newError(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Validation reports malformed client input.
func Validation(message string) error {
	return newError(ErrValidation, message)
}

// Unauthorized reports bad credentials or a missing/invalid token.
func Unauthorized(message string) error {
	return newError(ErrUnauthorized, message)
}

// Forbidden reports an ownership mismatch.
func Forbidden(message string) error {
	return newError(ErrForbidden, message)
}

// NotFound reports an unknown id or code.
func NotFound(message string) error {
	return newError(ErrNotFound, message)
}

// Conflict reports a uniqueness violation.
func Conflict(message string) error {
	return newError(ErrConflict, message)
}

// StatusCode maps an error onto the HTTP status code it should be reported with.
// Errors that carry no known kind map to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// Message returns the text that may be shown to a client for err.
// Internal errors never leak their details.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.message
	}

	return http.StatusText(StatusCode(err))
}
