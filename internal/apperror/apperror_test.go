package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "sub-123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("message", "message is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("valid authentication required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "QuotaExceeded wraps ErrQuotaExceeded",
			err:       QuotaExceeded(3),
			target:    ErrQuotaExceeded,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable("loading user", errors.New("db locked")),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "QuotaExceeded does NOT match ErrRateLimited",
			err:       QuotaExceeded(3),
			target:    ErrRateLimited,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrUnauthorized",
			err:       NotFound("user", "sub-123"),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

// Wrapping an AppError with fmt.Errorf %w must keep the category
// detectable — this is how service-layer wrapping reaches writeError.
func TestUnwrapThroughWrapping(t *testing.T) {
	inner := QuotaExceeded(3)
	wrapped := errors.Join(errors.New("chat: consuming quota"), inner)

	if !errors.Is(wrapped, ErrQuotaExceeded) {
		t.Error("wrapped QuotaExceeded no longer matches ErrQuotaExceeded")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As failed to extract *AppError from wrapped chain")
	}
	if appErr.Message == "" {
		t.Error("extracted AppError has no message")
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("loading user sub-1", cause)

	if !errors.Is(err, cause) {
		t.Error("Unavailable should keep the underlying cause in the chain")
	}
	if err.Message != "An internal error occurred" {
		t.Errorf("Unavailable message leaks detail: %q", err.Message)
	}
}
