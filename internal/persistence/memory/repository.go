// Package memory provides an in-process domain.Repository for local
// development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Roan1982/saraianew/internal/domain"
)

// Repository keeps users, samples, scores and advisories in memory.
type Repository struct {
	mu         sync.RWMutex
	nextUserID int64
	users      map[int64]domain.User
	samples    map[int64][]domain.ActivitySample
	scores     map[int64]domain.ProductivityScore
	advisories map[int64][]domain.AdvisoryRecord

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		nextUserID: 1,
		users:      make(map[int64]domain.User),
		samples:    make(map[int64][]domain.ActivitySample),
		scores:     make(map[int64]domain.ProductivityScore),
		advisories: make(map[int64][]domain.AdvisoryRecord),
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (r *Repository) userLock(userID int64) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ListUsers implements domain.UserRepository. An empty role lists everyone.
func (r *Repository) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertUser implements domain.UserRepository, keyed by username.
func (r *Repository) UpsertUser(ctx context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.users {
		if existing.Username == user.Username {
			user.ID = id
			user.CreatedAt = existing.CreatedAt
			r.users[id] = user
			return user, nil
		}
	}
	if user.ID == 0 {
		user.ID = r.nextUserID
	}
	if user.ID >= r.nextUserID {
		r.nextUserID = user.ID + 1
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = user
	return user, nil
}

// InsertSamples implements domain.SampleRepository.
func (r *Repository) InsertSamples(ctx context.Context, samples []domain.ActivitySample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		if _, ok := r.users[s.UserID]; !ok {
			return domain.ErrUserNotFound
		}
	}
	for _, s := range samples {
		if strings.TrimSpace(s.ID) == "" {
			s.ID = uuid.NewString()
		}
		r.samples[s.UserID] = append(r.samples[s.UserID], s)
	}
	return nil
}

func matches(s domain.ActivitySample, f domain.SampleFilter) bool {
	if s.Timestamp.Before(f.From) || s.Timestamp.After(f.To) {
		return false
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.WindowLabel != "" && !strings.EqualFold(s.ActiveWindow, f.WindowLabel) {
		return false
	}
	return true
}

// SamplesBetween implements domain.SampleRepository.
func (r *Repository) SamplesBetween(ctx context.Context, f domain.SampleFilter) ([]domain.ActivitySample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ActivitySample, 0)
	for _, s := range r.samples[f.UserID] {
		if matches(s, f) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return ascending(out[i], out[j]) })
	return out, nil
}

// CountSamples implements domain.SampleRepository.
func (r *Repository) CountSamples(ctx context.Context, f domain.SampleFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.samples[f.UserID] {
		if matches(s, f) {
			n++
		}
	}
	return n, nil
}

// LatestSample implements domain.SampleRepository.
func (r *Repository) LatestSample(ctx context.Context, userID int64) (*domain.ActivitySample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.ActivitySample
	for i := range r.samples[userID] {
		s := r.samples[userID][i]
		if latest == nil || ascending(*latest, s) {
			latest = &s
		}
	}
	return latest, nil
}

// ListSamples implements domain.SampleRepository, newest first.
func (r *Repository) ListSamples(ctx context.Context, userID int64, cursor *domain.Cursor, limit int) ([]domain.ActivitySample, *domain.Cursor, error) {
	r.mu.RLock()
	all := append([]domain.ActivitySample(nil), r.samples[userID]...)
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return ascending(all[j], all[i]) })

	out := make([]domain.ActivitySample, 0, limit)
	for _, s := range all {
		if cursor != nil && !before(s, *cursor) {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}

	var next *domain.Cursor
	if limit > 0 && len(out) == limit {
		last := out[len(out)-1]
		next = &domain.Cursor{Timestamp: last.Timestamp, ID: last.ID}
	}
	return out, next, nil
}

func ascending(a, b domain.ActivitySample) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID < b.ID
	}
	return a.Timestamp.Before(b.Timestamp)
}

// before reports whether s sorts strictly after the cursor position in
// newest-first order, matching (ts, id) < (cursor.ts, cursor.id).
func before(s domain.ActivitySample, c domain.Cursor) bool {
	if s.Timestamp.Equal(c.Timestamp) {
		return s.ID < c.ID
	}
	return s.Timestamp.Before(c.Timestamp)
}

// GetScore implements domain.ScoreRepository.
func (r *Repository) GetScore(ctx context.Context, userID int64) (*domain.ProductivityScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scores[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// UpdateScore implements domain.ScoreRepository.
func (r *Repository) UpdateScore(ctx context.Context, userID int64, mutate func(*domain.ProductivityScore)) (domain.ProductivityScore, error) {
	l := r.userLock(userID)
	l.Lock()
	defer l.Unlock()

	r.mu.RLock()
	_, known := r.users[userID]
	score, ok := r.scores[userID]
	r.mu.RUnlock()
	if !known {
		return domain.ProductivityScore{}, domain.ErrUserNotFound
	}
	if !ok {
		score = domain.ProductivityScore{UserID: userID}
	}

	mutate(&score)

	r.mu.Lock()
	r.scores[userID] = score
	r.mu.Unlock()
	return score, nil
}

// RecordBatch implements domain.ScoreRepository. Samples and score land
// together under the user's lock.
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

	l := r.userLock(userID)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return domain.ProductivityScore{}, domain.ErrUserNotFound
	}
	score, ok := r.scores[userID]
	if !ok {
		score = domain.ProductivityScore{UserID: userID}
	}

	mutate(&score)

	for _, s := range samples {
		if strings.TrimSpace(s.ID) == "" {
			s.ID = uuid.NewString()
		}
		r.samples[userID] = append(r.samples[userID], s)
	}
	r.scores[userID] = score
	return score, nil
}

// InsertAdvisoryUnlessRecent implements domain.AdvisoryRepository.
func (r *Repository) InsertAdvisoryUnlessRecent(ctx context.Context, rec domain.AdvisoryRecord, since time.Time) (bool, error) {
	l := r.userLock(rec.UserID)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[rec.UserID]; !ok {
		return false, domain.ErrUserNotFound
	}
	for _, existing := range r.advisories[rec.UserID] {
		if existing.Category == rec.Category && !existing.EmittedAt.Before(since) {
			return false, nil
		}
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	r.advisories[rec.UserID] = append(r.advisories[rec.UserID], rec)
	return true, nil
}

// RecentAdvisories implements domain.AdvisoryRepository, newest first.
func (r *Repository) RecentAdvisories(ctx context.Context, userID int64, category string, limit int) ([]domain.AdvisoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AdvisoryRecord, 0)
	for _, rec := range r.advisories[userID] {
		if category == "" || rec.Category == category {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EmittedAt.After(out[j].EmittedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ domain.Repository = (*Repository)(nil)
