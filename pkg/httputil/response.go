package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Haseeburrahmann/mandi-reviews/pkg/errors"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/logger"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/validator"
)

// Response is the JSON envelope used by every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope. Fields carries
// per-field validation messages when present.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error onto the caller-facing status, code, and
// message. AppErrors carry their own mapping; bare sentinels get a
// generic message; anything else is an internal error whose detail
// stays server-side.
func classify(err error) (status int, code, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}

	switch {
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrServiceUnavail):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "temporarily unavailable, please retry"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
}

// WriteError converts err into the standard error envelope and logs
// server-side failures. It prefers the request-scoped logger from
// context over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	status, code, message := classify(err)

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}

// WriteValidationError writes a 400 response carrying the field→message
// map from a ValidationError.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
