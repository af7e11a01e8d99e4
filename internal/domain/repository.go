package domain

import (
	"context"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns wall-clock time in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// SampleFilter selects samples for a user with timestamps in [From, To].
// Empty Category and WindowLabel match everything; WindowLabel compares
// case-insensitively.
type SampleFilter struct {
	UserID      int64
	From        time.Time
	To          time.Time
	Category    Category
	WindowLabel string
}

// UserRepository reads user identities.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context, role Role) ([]User, error)
	UpsertUser(ctx context.Context, user User) (User, error)
}

// SampleRepository persists and queries telemetry samples.
type SampleRepository interface {
	// InsertSamples stores a batch atomically. A batch referencing an unknown
	// user fails with ErrUserNotFound.
	InsertSamples(ctx context.Context, samples []ActivitySample) error
	// SamplesBetween returns matching samples ordered by timestamp then ID.
	SamplesBetween(ctx context.Context, filter SampleFilter) ([]ActivitySample, error)
	CountSamples(ctx context.Context, filter SampleFilter) (int, error)
	LatestSample(ctx context.Context, userID int64) (*ActivitySample, error)
	ListSamples(ctx context.Context, userID int64, cursor *Cursor, limit int) ([]ActivitySample, *Cursor, error)
}

// ScoreRepository owns the per-user productivity score row.
type ScoreRepository interface {
	GetScore(ctx context.Context, userID int64) (*ProductivityScore, error)
	// UpdateScore loads (or lazily creates) the score row under a per-user
	// lock, applies mutate and persists the result in one step.
	UpdateScore(ctx context.Context, userID int64, mutate func(*ProductivityScore)) (ProductivityScore, error)
	// RecordBatch inserts samples of a single user and applies mutate to that
	// user's score row as one unit. On error neither the samples nor the
	// score change.
	RecordBatch(ctx context.Context, samples []ActivitySample, mutate func(*ProductivityScore)) (ProductivityScore, error)
}

// AdvisoryRepository stores emitted advisories.
type AdvisoryRepository interface {
	// InsertAdvisoryUnlessRecent inserts rec unless a record of the same user
	// and category was emitted at or after since. The check and the insert
	// happen under one per-user lock.
	InsertAdvisoryUnlessRecent(ctx context.Context, rec AdvisoryRecord, since time.Time) (bool, error)
	RecentAdvisories(ctx context.Context, userID int64, category string, limit int) ([]AdvisoryRecord, error)
}

// Repository is the full storage surface used by Service.
type Repository interface {
	UserRepository
	SampleRepository
	ScoreRepository
	AdvisoryRepository
}
