// Package domain defines the activity scoring and advisory logic.
package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/observability"
)

const (
	// DefaultTopN is the size of the top-window ranking on dashboards.
	DefaultTopN = 5
	// ActiveThreshold is how recent a sample must be for a user to count as active.
	ActiveThreshold = 5 * time.Minute
)

// Options tunes a Service.
type Options struct {
	Clock    Clock
	Location *time.Location
	Logger   *zap.Logger
}

// Service orchestrates ingest, aggregation, scoring and advisories.
type Service struct {
	repo       Repository
	clock      Clock
	loc        *time.Location
	logger     *zap.Logger
	aggregator *Aggregator
	scorer     *ScoreUpdater
	engine     *AdvisoryEngine
}

// NewService constructs a Service.
func NewService(repo Repository, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		clock:      opts.Clock,
		loc:        opts.Location,
		logger:     opts.Logger,
		aggregator: NewAggregator(repo),
		scorer:     NewScoreUpdater(repo, repo, opts.Clock, opts.Location),
		engine:     NewAdvisoryEngine(repo, opts.Clock, opts.Location, opts.Logger.Named("advisor")),
	}
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Location returns the zone calendar days are evaluated in.
func (s *Service) Location() *time.Location { return s.loc }

// RawEvent is one telemetry event as received from an agent.
type RawEvent struct {
	Timestamp    string
	ActiveWindow string
	TopProcesses []string
	SystemLoad   map[string]any
	Productivity string
}

// IngestInput captures a batch from the API layer.
type IngestInput struct {
	MachineID string
	UserID    int64
	Events    []RawEvent
}

// IngestResult reports what an ingest call produced.
type IngestResult struct {
	Accepted int
	Score    ProductivityScore
	Advisory *AdvisoryRecord
}

// Message is the user-facing acknowledgement.
func (r IngestResult) Message() string {
	return fmt.Sprintf("%d actividades registradas", r.Accepted)
}

// Ingest persists a batch together with its score updates and then runs the
// advisory engine once against the last sample. Advisory failures never fail
// the ingest.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (IngestResult, error) {
	if strings.TrimSpace(input.MachineID) == "" {
		return IngestResult{}, invalid("machineId", "is required")
	}
	if len(input.Events) == 0 {
		return IngestResult{}, invalid("activities", "must not be empty")
	}

	user, err := s.repo.GetUser(ctx, input.UserID)
	if err != nil {
		return IngestResult{}, storageErr("load user", err)
	}
	if user == nil {
		return IngestResult{}, ErrUserNotFound
	}

	now := s.clock.Now()
	samples := make([]ActivitySample, 0, len(input.Events))
	for i, ev := range input.Events {
		sample := s.normalize(input, ev, now)
		if _, ok := ParseCategory(ev.Productivity); !ok && strings.TrimSpace(ev.Productivity) != "" {
			s.logger.Debug("unknown productivity category coerced to neutral",
				zap.Int("index", i), zap.String("productivity", ev.Productivity))
		}
		samples = append(samples, sample)
	}

	score, err := s.scorer.ApplyBatch(ctx, samples)
	if err != nil {
		return IngestResult{}, err
	}
	observability.RecordSamplesIngested(len(samples), categoryCounts(samples), now)

	result := IngestResult{Accepted: len(samples), Score: score}

	last := samples[len(samples)-1]
	result.Advisory = s.engine.Advise(ctx, user.ID, last.Timestamp, last)

	s.logger.Info("activity batch ingested",
		zap.Int64("user_id", user.ID),
		zap.String("machine_id", input.MachineID),
		zap.Int("samples", len(samples)),
		zap.Int("score", result.Score.Score),
		zap.Bool("advisory", result.Advisory != nil),
	)
	return result, nil
}

func (s *Service) normalize(input IngestInput, ev RawEvent, now time.Time) ActivitySample {
	ts, ok := ParseTimestamp(ev.Timestamp)
	if !ok {
		ts = now
	}
	window := strings.TrimSpace(ev.ActiveWindow)
	if window == "" {
		window = UnknownWindow
	}
	category, _ := ParseCategory(ev.Productivity)
	processes := ev.TopProcesses
	if processes == nil {
		processes = []string{}
	}
	load := ev.SystemLoad
	if load == nil {
		load = map[string]any{}
	}
	return ActivitySample{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		MachineID:    input.MachineID,
		Timestamp:    ts.UTC(),
		ActiveWindow: window,
		TopProcesses: processes,
		SystemLoad:   load,
		Category:     category,
		CreatedAt:    now,
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 and naive ISO 8601 (read as UTC).
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func categoryCounts(samples []ActivitySample) map[string]int {
	counts := make(map[string]int, len(Categories))
	for _, s := range samples {
		counts[string(s.Category)]++
	}
	return counts
}

// Aggregate summarises the user's samples over w.
func (s *Service) Aggregate(ctx context.Context, userID int64, w Window, topN int) (WindowSummary, error) {
	return s.aggregator.Aggregate(ctx, userID, w, topN)
}

// Dashboard is the per-user aggregate view.
type Dashboard struct {
	UserID       int64         `json:"user_id"`
	Summary      WindowSummary `json:"summary"`
	Score        int           `json:"score"`
	Improvements int           `json:"improvements"`
	HasScore     bool          `json:"has_score"`
}

// Dashboard combines a window summary with the current score.
func (s *Service) Dashboard(ctx context.Context, userID int64, w Window, topN int) (Dashboard, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return Dashboard{}, err
	}
	summary, err := s.aggregator.Aggregate(ctx, userID, w, topN)
	if err != nil {
		return Dashboard{}, err
	}
	score, err := s.repo.GetScore(ctx, userID)
	if err != nil {
		return Dashboard{}, storageErr("load score", err)
	}
	d := Dashboard{UserID: userID, Summary: summary}
	if score != nil {
		d.Score = score.Score
		d.Improvements = score.Improvements
		d.HasScore = true
	}
	return d, nil
}

// ProactiveAdvice runs the rule engine against the user's latest sample at
// the current time. It returns nil when nothing is emitted.
func (s *Service) ProactiveAdvice(ctx context.Context, userID int64) (*AdvisoryRecord, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	latest, err := s.repo.LatestSample(ctx, userID)
	if err != nil {
		return nil, storageErr("load latest sample", err)
	}
	if latest == nil {
		return nil, nil
	}
	return s.engine.Advise(ctx, userID, s.clock.Now(), *latest), nil
}

// RecentAdvisories lists the newest advisories of category (all when empty).
func (s *Service) RecentAdvisories(ctx context.Context, userID int64, category string, limit int) ([]AdvisoryRecord, error) {
	recs, err := s.repo.RecentAdvisories(ctx, userID, category, limit)
	return recs, storageErr("load advisories", err)
}

// ListSamples pages through the user's samples newest first.
func (s *Service) ListSamples(ctx context.Context, userID int64, cursor *Cursor, limit int) ([]ActivitySample, *Cursor, error) {
	samples, next, err := s.repo.ListSamples(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, storageErr("list samples", err)
	}
	return samples, next, nil
}

// GetUser returns the user or ErrUserNotFound.
func (s *Service) GetUser(ctx context.Context, userID int64) (User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, storageErr("load user", err)
	}
	if user == nil {
		return User{}, ErrUserNotFound
	}
	return *user, nil
}

// GetScore returns the persisted score, nil if none exists yet.
func (s *Service) GetScore(ctx context.Context, userID int64) (*ProductivityScore, error) {
	score, err := s.repo.GetScore(ctx, userID)
	if err != nil {
		return nil, storageErr("load score", err)
	}
	return score, nil
}

// CountToday counts the user's samples from local midnight up to ref.
func (s *Service) CountToday(ctx context.Context, userID int64, ref time.Time) (int, error) {
	w := Today(ref, s.loc)
	n, err := s.repo.CountSamples(ctx, SampleFilter{UserID: userID, From: w.From, To: w.To})
	if err != nil {
		return 0, storageErr("count today", err)
	}
	return n, nil
}

// SeedUser creates or updates a user by username.
func (s *Service) SeedUser(ctx context.Context, user User) (User, error) {
	if strings.TrimSpace(user.Username) == "" {
		return User{}, invalid("username", "is required")
	}
	if user.Role == "" {
		user.Role = RoleEmployee
	}
	saved, err := s.repo.UpsertUser(ctx, user)
	if err != nil {
		return User{}, storageErr("upsert user", err)
	}
	return saved, nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	_, err := s.GetUser(ctx, userID)
	return err
}
