package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the categories the API distinguishes.
// Services wrap these in an AppError; handlers detect the category
// anywhere in the chain with errors.Is and map it to an HTTP status.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnavailable   = errors.New("service unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable message, safe to show the caller
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for any identity or session failure.
// The message must stay generic — auth failures are surfaced to the
// caller without internal detail.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// QuotaExceeded is returned when a user has spent their daily allowance.
// Handlers map this to 429, distinct from the per-IP rate limiter's 429.
func QuotaExceeded(limit int) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("Daily query limit reached. You can make %d queries per day.", limit),
	}
}

// Unavailable wraps a persistence or upstream failure. The underlying
// error is kept for server-side logs; the message stays generic so no
// internal detail leaks to the caller.
func Unavailable(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err)),
		Message: "An internal error occurred",
	}
}
