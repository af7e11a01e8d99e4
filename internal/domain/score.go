package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Roan1982/saraianew/internal/observability"
)

const (
	// MaxScore and MinScore bound ProductivityScore.Score.
	MaxScore = 100
	MinScore = 0
	// ImprovementThreshold is the number of productive samples in a calendar
	// day above which the improvement counter advances.
	ImprovementThreshold = 50
)

var scoreDeltas = map[Category]int{
	CategoryProductive:   1,
	CategoryUnproductive: -2,
	CategoryGaming:       -3,
	CategoryNeutral:      0,
}

// ProductivityScore is the per-user bounded running score.
type ProductivityScore struct {
	UserID            int64     `json:"user_id"`
	Score             int       `json:"score"`
	Improvements      int       `json:"improvements"`
	LastImprovementOn time.Time `json:"last_improvement_on,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Apply adjusts the score by the delta for c and clamps it into range.
func (s *ProductivityScore) Apply(c Category) {
	s.Score += scoreDeltas[c]
	if s.Score > MaxScore {
		s.Score = MaxScore
	}
	if s.Score < MinScore {
		s.Score = MinScore
	}
}

// markImprovement advances the counter at most once per calendar day.
func (s *ProductivityScore) markImprovement(day time.Time) bool {
	if !s.LastImprovementOn.IsZero() && sameDate(s.LastImprovementOn, day) {
		return false
	}
	s.Improvements++
	s.LastImprovementOn = day
	return true
}

// sameDate compares wall-clock dates; stored dates come back as UTC midnight.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ScoreUpdater folds samples into the user's score.
type ScoreUpdater struct {
	samples SampleRepository
	scores  ScoreRepository
	clock   Clock
	loc     *time.Location
}

// NewScoreUpdater constructs a ScoreUpdater. Calendar days are evaluated in loc.
func NewScoreUpdater(samples SampleRepository, scores ScoreRepository, clock Clock, loc *time.Location) *ScoreUpdater {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock
	}
	return &ScoreUpdater{samples: samples, scores: scores, clock: clock, loc: loc}
}

// Apply adjusts the score for one persisted sample. The improvement counter
// is keyed on the sample's calendar day, so replaying a sample never counts
// the same day twice.
func (u *ScoreUpdater) Apply(ctx context.Context, sample ActivitySample) (ProductivityScore, error) {
	day := StartOfDay(sample.Timestamp, u.loc)
	dayWindow := CalendarDay(sample.Timestamp, u.loc)
	productive, err := u.samples.CountSamples(ctx, SampleFilter{
		UserID:   sample.UserID,
		From:     dayWindow.From,
		To:       dayWindow.To,
		Category: CategoryProductive,
	})
	if err != nil {
		return ProductivityScore{}, storageErr("count productive samples", err)
	}

	now := u.clock.Now()
	improved := false
	score, err := u.scores.UpdateScore(ctx, sample.UserID, func(s *ProductivityScore) {
		s.Apply(sample.Category)
		if productive > ImprovementThreshold {
			improved = s.markImprovement(day)
		}
		s.UpdatedAt = now
	})
	if err != nil {
		return ProductivityScore{}, storageErr("update score", err)
	}
	observability.RecordScoreUpdate(string(sample.Category), score.Score, improved)
	return score, nil
}

type scoreStep struct {
	category Category
	score    int
	improved bool
}

// ApplyBatch stores samples and folds each of them into the user's score
// through one RecordBatch call. All samples must share a user.
func (u *ScoreUpdater) ApplyBatch(ctx context.Context, samples []ActivitySample) (ProductivityScore, error) {
	if len(samples) == 0 {
		return ProductivityScore{}, errors.New("empty batch")
	}
	productive, err := u.productiveByDay(ctx, samples)
	if err != nil {
		return ProductivityScore{}, err
	}

	now := u.clock.Now()
	var steps []scoreStep
	score, err := u.scores.RecordBatch(ctx, samples, func(s *ProductivityScore) {
		steps = steps[:0]
		for _, sample := range samples {
			day := StartOfDay(sample.Timestamp, u.loc)
			improved := false
			s.Apply(sample.Category)
			if productive[day.Format(time.DateOnly)] > ImprovementThreshold {
				improved = s.markImprovement(day)
			}
			steps = append(steps, scoreStep{category: sample.Category, score: s.Score, improved: improved})
		}
		s.UpdatedAt = now
	})
	if err != nil {
		return ProductivityScore{}, storageErr("record batch", err)
	}
	for _, st := range steps {
		observability.RecordScoreUpdate(string(st.category), st.score, st.improved)
	}
	return score, nil
}

// productiveByDay counts productive samples per calendar day as they will be
// once the batch is stored: already persisted ones plus those in the batch.
func (u *ScoreUpdater) productiveByDay(ctx context.Context, samples []ActivitySample) (map[string]int, error) {
	counts := make(map[string]int)
	for _, sample := range samples {
		key := StartOfDay(sample.Timestamp, u.loc).Format(time.DateOnly)
		if _, seen := counts[key]; !seen {
			w := CalendarDay(sample.Timestamp, u.loc)
			n, err := u.samples.CountSamples(ctx, SampleFilter{
				UserID:   sample.UserID,
				From:     w.From,
				To:       w.To,
				Category: CategoryProductive,
			})
			if err != nil {
				return nil, storageErr("count productive samples", err)
			}
			counts[key] = n
		}
		if sample.Category == CategoryProductive {
			counts[key]++
		}
	}
	return counts, nil
}
