package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation")      // 400
	ErrUnauthenticated = errors.New("unauthenticated") // 401
	ErrForbidden       = errors.New("forbidden")       // 403
	ErrNotFound        = errors.New("not found")       // 404
	ErrConflict        = errors.New("conflict")        // 409
	ErrUnavailable     = errors.New("unavailable")     // 500, feature not configured
)

// Error is a domain failure that carries a client-facing message and an
// optional machine-readable code.
type Error struct {
	Kind    error
	Message string
	Code    string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func WithCode(kind error, msg, code string) *Error {
	return &Error{Kind: kind, Message: msg, Code: code}
}

func Validation(msg string) *Error { return New(ErrValidation, msg) }

func NotFound(msg string) *Error { return New(ErrNotFound, msg) }

func Unauthenticated(msg string) *Error { return New(ErrUnauthenticated, msg) }

func Forbidden(msg string) *Error { return New(ErrForbidden, msg) }

func Conflict(msg string) *Error { return New(ErrConflict, msg) }

// Status maps an error to the HTTP status it should be reported with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
