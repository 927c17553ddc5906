package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/model"
)

// newTestDB returns a DB backed by an in-memory database that is torn
// down with the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser is a helper that gets-or-creates a user and fails the
// test on error.
func createTestUser(t *testing.T, db *DB, subjectID string) *model.User {
	t.Helper()
	user := &model.User{
		SubjectID: subjectID,
		Email:     subjectID + "@example.com",
		Name:      "Test User",
	}
	if err := db.GetOrCreate(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// GET OR CREATE TESTS
// =========================================================================

func TestGetOrCreate_NewUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		SubjectID: "google-sub-12345",
		Email:     "alice@example.com",
		Name:      "Alice",
	}
	if err := db.GetOrCreate(context.Background(), user); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if user.QueriesUsedToday != 0 {
		t.Errorf("new user queries_used_today = %d, want 0", user.QueriesUsedToday)
	}
	if user.LastQueryDate != "" {
		t.Errorf("new user last_query_date = %q, want empty", user.LastQueryDate)
	}
	if user.CreatedAt.IsZero() {
		t.Error("GetOrCreate() did not set CreatedAt")
	}
}

func TestGetOrCreate_ExistingUserPreservesUsage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "sub-1")
	if err := db.UpdateUsage(ctx, "sub-1", 2, "2026-08-31"); err != nil {
		t.Fatalf("UpdateUsage() error = %v", err)
	}

	// Re-authentication: same subject, new email. Usage must survive,
	// profile fields must refresh.
	again := &model.User{
		SubjectID: "sub-1",
		Email:     "newmail@example.com",
		Name:      "Renamed",
	}
	if err := db.GetOrCreate(ctx, again); err != nil {
		t.Fatalf("GetOrCreate() second call error = %v", err)
	}

	if again.QueriesUsedToday != 2 {
		t.Errorf("queries_used_today = %d, want 2 (must not reset on re-auth)", again.QueriesUsedToday)
	}
	if again.LastQueryDate != "2026-08-31" {
		t.Errorf("last_query_date = %q, want 2026-08-31", again.LastQueryDate)
	}
	if again.Email != "newmail@example.com" {
		t.Errorf("email = %q, want refreshed value", again.Email)
	}
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	db := newTestDB(t)

	// N concurrent first-time logins for the same subject: exactly one
	// record, everyone observes it with zero usage.
	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	users := make([]*model.User, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := &model.User{SubjectID: "race-sub", Email: "race@example.com", Name: "Race"}
			errs[i] = db.GetOrCreate(context.Background(), u)
			users[i] = u
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: GetOrCreate() error = %v", i, err)
		}
		if users[i].QueriesUsedToday != 0 {
			t.Errorf("goroutine %d observed queries_used_today = %d, want 0", i, users[i].QueriesUsedToday)
		}
	}

	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM users WHERE subject_id = ?`, "race-sub").Scan(&count)
	if err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("stored records = %d, want exactly 1", count)
	}
}

// =========================================================================
// GET / UPDATE TESTS
// =========================================================================

func TestGetBySubjectID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetBySubjectID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetBySubjectID() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUsage_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUsage(context.Background(), "missing", 1, "2026-08-31")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUsage() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// CONSUME QUERY TESTS
// =========================================================================

func TestConsumeQuery_UpToLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "sub-consume")

	const limit = 3
	today := "2026-08-31"

	for want := 1; want <= limit; want++ {
		got, err := db.ConsumeQuery(ctx, "sub-consume", today, limit)
		if err != nil {
			t.Fatalf("ConsumeQuery() #%d error = %v", want, err)
		}
		if got != want {
			t.Errorf("ConsumeQuery() #%d count = %d, want %d", want, got, want)
		}
	}

	// Fourth consume on the same day must fail without mutating anything.
	_, err := db.ConsumeQuery(ctx, "sub-consume", today, limit)
	if !errors.Is(err, apperror.ErrQuotaExceeded) {
		t.Fatalf("ConsumeQuery() over limit error = %v, want ErrQuotaExceeded", err)
	}

	u, err := db.GetBySubjectID(ctx, "sub-consume")
	if err != nil {
		t.Fatalf("GetBySubjectID() error = %v", err)
	}
	if u.QueriesUsedToday != limit {
		t.Errorf("queries_used_today after rejected consume = %d, want %d", u.QueriesUsedToday, limit)
	}
}

func TestConsumeQuery_DayRollover(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "sub-rollover")

	// Yesterday's allowance fully spent.
	if err := db.UpdateUsage(ctx, "sub-rollover", 3, "2026-08-30"); err != nil {
		t.Fatalf("UpdateUsage() error = %v", err)
	}

	// First consume on the next day rolls the counter over to 1.
	got, err := db.ConsumeQuery(ctx, "sub-rollover", "2026-08-31", 3)
	if err != nil {
		t.Fatalf("ConsumeQuery() after rollover error = %v", err)
	}
	if got != 1 {
		t.Errorf("count after rollover = %d, want 1", got)
	}

	u, _ := db.GetBySubjectID(ctx, "sub-rollover")
	if u.LastQueryDate != "2026-08-31" {
		t.Errorf("last_query_date = %q, want 2026-08-31", u.LastQueryDate)
	}
}

func TestConsumeQuery_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	_, err := db.ConsumeQuery(context.Background(), "missing", "2026-08-31", 3)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ConsumeQuery() error = %v, want ErrNotFound", err)
	}
}

func TestConsumeQuery_ConcurrentNeverExceedsLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "sub-hammer")

	const limit = 3
	const attempts = 12
	today := "2026-08-31"

	var wg sync.WaitGroup
	granted := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if n, err := db.ConsumeQuery(ctx, "sub-hammer", today, limit); err == nil {
				granted <- n
			}
		}()
	}
	wg.Wait()
	close(granted)

	grants := 0
	for range granted {
		grants++
	}
	if grants != limit {
		t.Errorf("concurrent grants = %d, want exactly %d", grants, limit)
	}

	u, _ := db.GetBySubjectID(ctx, "sub-hammer")
	if u.QueriesUsedToday > limit {
		t.Errorf("queries_used_today = %d, exceeds limit %d", u.QueriesUsedToday, limit)
	}
}
