package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure kinds the service can surface.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrInternal       = errors.New("internal error")
)

// AppError is a structured application error carrying a stable machine
// code, a caller-safe message, and its HTTP status mapping. The wrapped
// Err never crosses the API boundary.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	msg := fmt.Sprintf("%s with id %s not found", resource, id)
	return newAppError("NOT_FOUND", msg, http.StatusNotFound, ErrNotFound)
}

// AlreadyExists creates a 409 error for a uniqueness conflict.
func AlreadyExists(resource, field, value string) *AppError {
	msg := fmt.Sprintf("%s with %s %q already exists", resource, field, value)
	return newAppError("ALREADY_EXISTS", msg, http.StatusConflict, ErrAlreadyExists)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// Unavailable creates a 503 error for a transient infrastructure
// failure. Callers may retry.
func Unavailable(message string, err error) *AppError {
	cause := fmt.Errorf("%w: %w", ErrServiceUnavail, err)
	return newAppError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, cause)
}

// Internal creates a 500 error. The underlying cause is kept for
// logging only; the message shown to callers is generic.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError, err)
}

// Wrap adds context to an error while preserving its identity.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

var sentinelStatus = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, m := range sentinelStatus {
		if errors.Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
