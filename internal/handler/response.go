package handler

// Response helpers shared by every endpoint. One writeJSON, one
// writeError: every error body has the same two-field shape, and the
// error kind is what lets clients tell the two 429s apart
// (rate_limited vs quota_exceeded).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/stock-advisor/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable kind (e.g. "quota_exceeded")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body — once Encode
// writes, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// The service layer returns apperror categories; this is the single place
// they become status codes. Anything without a recognised category is a
// 500 with a generic body — raw internal errors never reach the caller.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusUnprocessableEntity // 422
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized // 401
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrQuotaExceeded):
			status = http.StatusTooManyRequests // 429, daily allowance spent
			errorType = "quota_exceeded"
		case errors.Is(err, apperror.ErrRateLimited):
			status = http.StatusTooManyRequests // 429, per-IP throttle
			errorType = "rate_limited"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// RateLimitExceeded is the handler the per-IP limiter invokes when a
// client trips the sliding window. Exported so the server wiring can hand
// it to httprate; the "rate_limited" kind keeps it distinguishable from a
// quota-exhausted 429.
func RateLimitExceeded(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:   "rate_limited",
		Message: "Rate limit exceeded. Try again in a minute.",
	})
}
