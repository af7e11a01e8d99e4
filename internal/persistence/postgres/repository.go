// Package postgres implements domain.Repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/events"
)

const foreignKeyViolation = "23503"

// Repository provides Postgres-backed persistence for users, samples, scores,
// advisories and their outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return mapError(err)
	}
	return tx.Commit(ctx)
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return domain.ErrUserNotFound
	}
	return err
}

const userColumns = `id, username, first_name, last_name, email, role, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.CreatedAt)
	return u, err
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1 AND active`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers implements domain.UserRepository. An empty role lists everyone.
func (r *Repository) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE active AND ($1 = '' OR role = $1) ORDER BY id`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertUser implements domain.UserRepository, keyed by username.
func (r *Repository) UpsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	const stmt = `INSERT INTO users (username, first_name, last_name, email, role)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (username) DO UPDATE
           SET first_name = EXCLUDED.first_name,
               last_name = EXCLUDED.last_name,
               email = EXCLUDED.email,
               role = EXCLUDED.role,
               active = TRUE
        RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, stmt, user.Username, user.FirstName, user.LastName, user.Email, user.Role))
}

// InsertSamples persists the batch and its outbox event inside a single transaction.
func (r *Repository) InsertSamples(ctx context.Context, samples []domain.ActivitySample) error {
	if len(samples) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return r.insertSamples(ctx, tx, samples)
	})
}

// RecordBatch stores the samples, their outbox event and the folded score in
// one transaction.
func (r *Repository) RecordBatch(ctx context.Context, samples []domain.ActivitySample, mutate func(*domain.ProductivityScore)) (domain.ProductivityScore, error) {
	if len(samples) == 0 {
		return domain.ProductivityScore{}, errors.New("empty batch")
	}
	userID := samples[0].UserID
	for _, s := range samples {
		if s.UserID != userID {
			return domain.ProductivityScore{}, errors.New("batch spans several users")
		}
	}

	var updated domain.ProductivityScore
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.insertSamples(ctx, tx, samples); err != nil {
			return err
		}
		var err error
		updated, err = r.updateScore(ctx, tx, userID, mutate)
		return err
	})
	return updated, err
}

func (r *Repository) insertSamples(ctx context.Context, tx pgx.Tx, samples []domain.ActivitySample) error {
	const insertSample = `INSERT INTO activity_samples (sample_id, user_id, machine_id, ts, active_window, top_processes, system_load, productivity, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	batch := &pgx.Batch{}
	for _, s := range samples {
		batch.Queue(insertSample, s.ID, s.UserID, s.MachineID, s.Timestamp, s.ActiveWindow, s.TopProcesses, s.SystemLoad, s.Category, s.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	first, last := samples[0].Timestamp, samples[0].Timestamp
	categories := make(map[string]int)
	for _, s := range samples {
		categories[string(s.Category)]++
		if s.Timestamp.Before(first) {
			first = s.Timestamp
		}
		if s.Timestamp.After(last) {
			last = s.Timestamp
		}
	}

	batchID := uuid.NewString()
	return r.insertOutbox(ctx, tx, "activity_batch", batchID, samples[0].UserID, events.TypeActivityBatchRecorded, events.ActivityBatchRecorded{
		BatchID:     batchID,
		UserID:      samples[0].UserID,
		MachineID:   samples[0].MachineID,
		SampleCount: len(samples),
		Categories:  categories,
		FirstAt:     first,
		LastAt:      last,
	})
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID string, userID int64, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		strconv.FormatInt(userID, 10),
		body,
		fmt.Sprintf("%s:%s", aggregateID, eventType),
	)
	return err
}

const sampleColumns = `sample_id::text, user_id, machine_id, ts, active_window, top_processes, system_load, productivity, created_at`

func scanSample(row pgx.Row) (domain.ActivitySample, error) {
	var s domain.ActivitySample
	err := row.Scan(&s.ID, &s.UserID, &s.MachineID, &s.Timestamp, &s.ActiveWindow, &s.TopProcesses, &s.SystemLoad, &s.Category, &s.CreatedAt)
	return s, err
}

func filterClause(f domain.SampleFilter) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{f.UserID, f.From, f.To}
	b.WriteString(` WHERE user_id=$1 AND ts >= $2 AND ts <= $3`)
	if f.Category != "" {
		args = append(args, f.Category)
		fmt.Fprintf(&b, ` AND productivity = $%d`, len(args))
	}
	if f.WindowLabel != "" {
		args = append(args, f.WindowLabel)
		fmt.Fprintf(&b, ` AND lower(active_window) = lower($%d)`, len(args))
	}
	return b.String(), args
}

// SamplesBetween implements domain.SampleRepository.
func (r *Repository) SamplesBetween(ctx context.Context, f domain.SampleFilter) ([]domain.ActivitySample, error) {
	where, args := filterClause(f)
	rows, err := r.pool.Query(ctx, `SELECT `+sampleColumns+` FROM activity_samples`+where+` ORDER BY ts, sample_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ActivitySample, 0)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountSamples implements domain.SampleRepository.
func (r *Repository) CountSamples(ctx context.Context, f domain.SampleFilter) (int, error) {
	where, args := filterClause(f)
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_samples`+where, args...).Scan(&n)
	return n, err
}

// LatestSample implements domain.SampleRepository.
func (r *Repository) LatestSample(ctx context.Context, userID int64) (*domain.ActivitySample, error) {
	s, err := scanSample(r.pool.QueryRow(ctx,
		`SELECT `+sampleColumns+` FROM activity_samples WHERE user_id=$1 ORDER BY ts DESC, sample_id DESC LIMIT 1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListSamples returns samples for a user newest first.
func (r *Repository) ListSamples(ctx context.Context, userID int64, cursor *domain.Cursor, limit int) ([]domain.ActivitySample, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT ` + sampleColumns + ` FROM activity_samples WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (ts, sample_id) < ($3, $4::uuid)`
		args = append(args, cursor.Timestamp, cursor.ID)
	}

	query += ` ORDER BY ts DESC, sample_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivitySample, 0, limit)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{Timestamp: last.Timestamp, ID: last.ID}
	}
	return results, next, nil
}

func scanScore(row pgx.Row) (domain.ProductivityScore, error) {
	var (
		s   domain.ProductivityScore
		day *time.Time
	)
	if err := row.Scan(&s.UserID, &s.Score, &s.Improvements, &day, &s.UpdatedAt); err != nil {
		return domain.ProductivityScore{}, err
	}
	if day != nil {
		s.LastImprovementOn = *day
	}
	return s, nil
}

const scoreColumns = `user_id, score, improvements, last_improvement_on, updated_at`

// GetScore implements domain.ScoreRepository.
func (r *Repository) GetScore(ctx context.Context, userID int64) (*domain.ProductivityScore, error) {
	s, err := scanScore(r.pool.QueryRow(ctx, `SELECT `+scoreColumns+` FROM productivity_scores WHERE user_id=$1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpdateScore locks the user's score row for the duration of the mutation.
func (r *Repository) UpdateScore(ctx context.Context, userID int64, mutate func(*domain.ProductivityScore)) (domain.ProductivityScore, error) {
	var updated domain.ProductivityScore
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = r.updateScore(ctx, tx, userID, mutate)
		return err
	})
	return updated, err
}

func (r *Repository) updateScore(ctx context.Context, tx pgx.Tx, userID int64, mutate func(*domain.ProductivityScore)) (domain.ProductivityScore, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO productivity_scores (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return domain.ProductivityScore{}, err
	}

	current, err := scanScore(tx.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM productivity_scores WHERE user_id=$1 FOR UPDATE`, userID))
	if err != nil {
		return domain.ProductivityScore{}, err
	}

	mutate(&current)

	var day interface{}
	if !current.LastImprovementOn.IsZero() {
		day = current.LastImprovementOn.Format(time.DateOnly)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE productivity_scores
            SET score = $2, improvements = $3, last_improvement_on = $4::date, updated_at = $5
          WHERE user_id = $1`,
		userID, current.Score, current.Improvements, day, current.UpdatedAt); err != nil {
		return domain.ProductivityScore{}, err
	}
	return current, nil
}

// InsertAdvisoryUnlessRecent serialises per user with a transaction-scoped
// advisory lock so concurrent triggers cannot both pass the recency check.
func (r *Repository) InsertAdvisoryUnlessRecent(ctx context.Context, rec domain.AdvisoryRecord, since time.Time) (bool, error) {
	inserted := false
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, rec.UserID); err != nil {
			return err
		}

		var recent bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM advisory_records WHERE user_id=$1 AND category=$2 AND emitted_at >= $3)`,
			rec.UserID, rec.Category, since).Scan(&recent); err != nil {
			return err
		}
		if recent {
			return nil
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO advisory_records (advisory_id, user_id, text, category, detection, emitted_at) VALUES ($1,$2,$3,$4,$5,$6)`,
			rec.ID, rec.UserID, rec.Text, rec.Category, rec.Detection, rec.EmittedAt); err != nil {
			return err
		}

		tags := make(map[string]int, len(rec.Detection.TagCounts))
		for tag, n := range rec.Detection.TagCounts {
			tags[string(tag)] = n
		}
		if err := r.insertOutbox(ctx, tx, "advisory", rec.ID, rec.UserID, events.TypeAdvisoryEmitted, events.AdvisoryEmitted{
			AdvisoryID: rec.ID,
			UserID:     rec.UserID,
			Category:   rec.Category,
			Text:       rec.Text,
			Tags:       tags,
			EmittedAt:  rec.EmittedAt,
		}); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// RecentAdvisories implements domain.AdvisoryRepository, newest first.
func (r *Repository) RecentAdvisories(ctx context.Context, userID int64, category string, limit int) ([]domain.AdvisoryRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT advisory_id::text, user_id, text, category, detection, emitted_at
           FROM advisory_records
          WHERE user_id=$1 AND ($2 = '' OR category = $2)
          ORDER BY emitted_at DESC
          LIMIT $3`, userID, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AdvisoryRecord, 0, limit)
	for rows.Next() {
		var rec domain.AdvisoryRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Text, &rec.Category, &rec.Detection, &rec.EmittedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityBatchRecorded: {
		Topic:         "activity_events",
		SchemaSubject: "activity_events-value",
	},
	events.TypeAdvisoryEmitted: {
		Topic:         "advisory_events",
		SchemaSubject: "advisory_events-value",
	},
}

var _ domain.Repository = (*Repository)(nil)
