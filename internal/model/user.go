// Package model defines the data structures used throughout the application.
package model

import "time"

// User is one account, keyed by the stable subject identifier Google
// issues for the Google account ("sub" claim). We use it directly as the
// primary key — it never changes for the lifetime of the account, and the
// whole system only supports one identity provider.
//
// QueriesUsedToday and LastQueryDate together hold the daily quota state.
// LastQueryDate is a UTC calendar date in "2006-01-02" form; the empty
// string means the user has never queried. Whenever LastQueryDate is not
// today, QueriesUsedToday is logically zero regardless of its stored
// value — the quota manager persists the reset on the next check.
type User struct {
	SubjectID        string    `json:"user_id"            db:"subject_id"`
	Email            string    `json:"email"              db:"email"`
	Name             string    `json:"name"               db:"name"`
	QueriesUsedToday int       `json:"queries_used_today" db:"queries_used_today"`
	LastQueryDate    string    `json:"last_query_date"    db:"last_query_date"`
	CreatedAt        time.Time `json:"created_at"         db:"created_at"`
}
