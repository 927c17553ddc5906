// Package repository defines the storage contracts the services depend on.
//
// Services receive these interfaces, never the concrete sqlite types, so
// tests can substitute in-memory fakes and the storage engine can change
// without touching business logic.
package repository

import (
	"context"

	"github.com/sakif/stock-advisor/internal/model"
)

// UserRepository is the user directory: durable records keyed by subject ID
// plus the usage-counter operations the quota manager builds on.
//
// GetOrCreate must be race-tolerant: concurrent first-time calls for the
// same subject create at most one record, and every caller observes a
// consistent one. ConsumeQuery is the atomic spend — rollover, limit check,
// and increment in a single conditional write, so two concurrent requests
// can never both pass a stale read-then-check.
type UserRepository interface {
	// GetOrCreate returns the record for user.SubjectID, creating it with
	// zero usage on first sight. Email and Name are refreshed from the
	// given values on every call; the usage fields are never touched.
	// The full stored record is written back into user.
	GetOrCreate(ctx context.Context, user *model.User) error

	// GetBySubjectID returns the record, or apperror.ErrNotFound.
	GetBySubjectID(ctx context.Context, subjectID string) (*model.User, error)

	// UpdateUsage overwrites the two usage fields.
	UpdateUsage(ctx context.Context, subjectID string, used int, lastQueryDate string) error

	// ConsumeQuery atomically charges one query for today. If the stored
	// last_query_date differs from today the counter rolls over to 1;
	// otherwise it increments, but only while under limit. Returns the new
	// count, apperror.ErrQuotaExceeded when the limit is already spent, or
	// apperror.ErrNotFound for an unknown subject.
	ConsumeQuery(ctx context.Context, subjectID, today string, limit int) (int, error)
}
