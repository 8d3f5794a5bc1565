// Package httputil holds the JSON response envelope and error rendering
// shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Titansingh/ProfessionalBackend/pkg/errors"
	"github.com/Titansingh/ProfessionalBackend/pkg/logger"
	"github.com/Titansingh/ProfessionalBackend/pkg/validator"
)

// Response is the envelope every endpoint returns: data on success, error
// otherwise, never both.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse carries the API error code, a client-safe message, optional
// per-field validation failures and the request's correlation ID.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status. Encoding failures are swallowed;
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody maps err to the envelope's code, message and status. Anything
// outside the taxonomy renders as a generic 500.
func errorBody(err error) (code, message string, status int) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message, appErr.Status
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "NOT_FOUND", "resource not found", http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return "CONFLICT", "resource already exists", http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "INVALID_INPUT", err.Error(), http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return "UNAUTHENTICATED", "authentication required", http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "UNAUTHORIZED", err.Error(), http.StatusUnauthorized
	default:
		return "INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError
	}
}

// WriteError renders err through the taxonomy and logs internal errors. The
// request-scoped logger from RequestLogger is preferred; fallback covers
// requests that never passed through it.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	code, message, status := errorBody(err)

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
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

// WriteValidationError renders validator failures with per-field messages.
// Other errors fall back to a plain INVALID_INPUT.
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
