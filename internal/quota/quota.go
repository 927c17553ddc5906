// Package quota enforces the per-user daily query allowance.
//
// THE STATE MACHINE:
// A user is in one of two computed states at check time — FRESH_DAY (the
// stored last_query_date differs from today, counter logically zero) or
// SAME_DAY (counter live). The states are never stored; they fall out of
// comparing the stored date against today's UTC date.
//
// Two operations cover every caller:
//   - CheckRemaining: a peek. Persists the day rollover if needed but
//     never charges. Used on login and profile reads.
//   - Consume: the spend. One atomic conditional update on the directory
//     does rollover + limit check + increment together, so concurrent
//     requests from the same user can never both pass a stale check and
//     push the counter past the limit.
//
// Day boundaries are UTC calendar dates — a single reference time zone
// for all users, not per-user local time.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/repository"
)

// DateFormat is how calendar dates are rendered for storage and comparison.
const DateFormat = "2006-01-02"

// Manager computes and charges daily usage against the user directory.
type Manager struct {
	users  repository.UserRepository
	limit  int
	logger *slog.Logger
	now    func() time.Time // injectable clock for rollover tests
}

// New creates a Manager with the given per-day limit.
func New(users repository.UserRepository, limit int, logger *slog.Logger) *Manager {
	return &Manager{
		users:  users,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// Limit returns the configured daily allowance.
func (m *Manager) Limit() int {
	return m.limit
}

// Today returns the current UTC calendar date — the reference day for
// every quota decision.
func (m *Manager) Today() string {
	return m.now().UTC().Format(DateFormat)
}

// CheckRemaining reports how many queries the user has left today without
// charging one.
//
// FRESH_DAY: the stored counter belongs to a previous day (or the user has
// never queried), so the reset is persisted and the full limit returned.
// SAME_DAY at the limit: fails with ErrQuotaExceeded, no mutation.
// SAME_DAY under the limit: returns the difference, no mutation.
func (m *Manager) CheckRemaining(ctx context.Context, subjectID string) (int, error) {
	user, err := m.users.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("quota: loading user %s: %w", subjectID, err)
	}

	today := m.Today()

	if user.LastQueryDate != today {
		// Day rollover: persist the reset so the stored state matches
		// what we are about to report.
		if err := m.users.UpdateUsage(ctx, subjectID, 0, today); err != nil {
			return 0, fmt.Errorf("quota: resetting usage for %s: %w", subjectID, err)
		}
		return m.limit, nil
	}

	if user.QueriesUsedToday >= m.limit {
		return 0, apperror.QuotaExceeded(m.limit)
	}

	return m.limit - user.QueriesUsedToday, nil
}

// Consume atomically charges one query and returns the remaining
// allowance after the charge. Fails with ErrQuotaExceeded — and charges
// nothing — when today's allowance is already spent.
//
// The rollover, the limit check, and the increment all happen inside the
// directory's single conditional update, so Consume is safe to call from
// any number of concurrent requests.
func (m *Manager) Consume(ctx context.Context, subjectID string) (int, error) {
	newCount, err := m.users.ConsumeQuery(ctx, subjectID, m.Today(), m.limit)
	if err != nil {
		return 0, fmt.Errorf("quota: consuming query for %s: %w", subjectID, err)
	}

	m.logger.Debug("query consumed",
		slog.String("subjectID", subjectID),
		slog.Int("usedToday", newCount),
		slog.Int("remaining", m.limit-newCount),
	)

	return m.limit - newCount, nil
}
