package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/model"
	"github.com/sakif/stock-advisor/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// GetOrCreate inserts the user on first sight, or refreshes email/name if
// the subject already exists, then reads the canonical row back.
//
// RACE TOLERANCE:
// Two concurrent first-logins for the same subject both run the upsert.
// ON CONFLICT turns the loser's INSERT into an UPDATE of email/name only —
// at most one row ever exists, the usage counters are never touched, and
// both callers read back the same consistent record.
func (db *DB) GetOrCreate(ctx context.Context, user *model.User) error {
	if user.SubjectID == "" {
		return fmt.Errorf("sqlite: user subject ID must not be empty")
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (subject_id, email, name, queries_used_today, last_query_date, created_at)
		 VALUES (?, ?, ?, 0, '', ?)
		 ON CONFLICT(subject_id) DO UPDATE SET
			email = excluded.email,
			name  = excluded.name`,
		user.SubjectID,
		user.Email,
		user.Name,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %s: %w", user.SubjectID, err)
	}

	// Read the canonical row back so the caller sees the stored usage
	// fields and creation time, not just what it passed in.
	stored, err := db.GetBySubjectID(ctx, user.SubjectID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back user %s: %w", user.SubjectID, err)
	}
	*user = *stored

	return nil
}

// GetBySubjectID retrieves a user record.
// Returns apperror.ErrNotFound if no user exists for that subject.
func (db *DB) GetBySubjectID(ctx context.Context, subjectID string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT subject_id, email, name, queries_used_today, last_query_date, created_at
		 FROM users WHERE subject_id = ?`,
		subjectID,
	).Scan(
		&u.SubjectID,
		&u.Email,
		&u.Name,
		&u.QueriesUsedToday,
		&u.LastQueryDate,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", subjectID)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", subjectID, err)
	}

	return &u, nil
}

// UpdateUsage overwrites the two usage fields. Used by the quota manager
// to persist a day-rollover reset.
func (db *DB) UpdateUsage(ctx context.Context, subjectID string, used int, lastQueryDate string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET queries_used_today = ?, last_query_date = ? WHERE subject_id = ?`,
		used, lastQueryDate, subjectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating usage for %s: %w", subjectID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating usage for %s: %w", subjectID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", subjectID)
	}

	return nil
}

// ConsumeQuery charges one query for today in a single conditional UPDATE.
//
// The statement folds all three quota transitions into one atomic write:
//   - stored date != today  → rollover: count becomes 1, date becomes today
//   - stored date == today, count < limit → increment
//   - stored date == today, count >= limit → WHERE excludes the row, no write
//
// Because SQLite evaluates the whole statement under one lock, two
// concurrent calls can never both read a stale count and over-grant —
// the second caller sees the first one's increment. RETURNING gives us
// the post-update count without a second round trip.
func (db *DB) ConsumeQuery(ctx context.Context, subjectID, today string, limit int) (int, error) {
	var newCount int

	err := db.conn.QueryRowContext(ctx,
		`UPDATE users
		 SET queries_used_today = CASE WHEN last_query_date = ?1 THEN queries_used_today + 1 ELSE 1 END,
		     last_query_date    = ?1
		 WHERE subject_id = ?2
		   AND (last_query_date <> ?1 OR queries_used_today < ?3)
		 RETURNING queries_used_today`,
		today, subjectID, limit,
	).Scan(&newCount)

	if errors.Is(err, sql.ErrNoRows) {
		// Either the user doesn't exist or today's allowance is spent.
		// One extra read to tell the two apart.
		if _, getErr := db.GetBySubjectID(ctx, subjectID); getErr != nil {
			return 0, getErr
		}
		return 0, apperror.QuotaExceeded(limit)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: consuming query for %s: %w", subjectID, err)
	}

	return newCount, nil
}
