package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/observability"
)

// Name is how the assistant introduces itself.
const Name = "SARA"

// ProfileSource is the read surface replies are personalised from.
// *domain.Service satisfies it.
type ProfileSource interface {
	GetUser(ctx context.Context, userID int64) (domain.User, error)
	GetScore(ctx context.Context, userID int64) (*domain.ProductivityScore, error)
	CountToday(ctx context.Context, userID int64, ref time.Time) (int, error)
	Aggregate(ctx context.Context, userID int64, w domain.Window, topN int) (domain.WindowSummary, error)
	RecentAdvisories(ctx context.Context, userID int64, category string, limit int) ([]domain.AdvisoryRecord, error)
}

// Model post-processes a canned reply. It stands in for a trained model and
// is constructed once at startup.
type Model interface {
	Refine(ctx context.Context, intent Intent, message, reply string) string
}

// NoopModel returns replies unchanged.
type NoopModel struct{}

// Refine implements Model.
func (NoopModel) Refine(_ context.Context, _ Intent, _ string, reply string) string { return reply }

// Options tunes an Assistant.
type Options struct {
	Model    Model
	Location *time.Location
	Logger   *zap.Logger
}

// Assistant answers chat messages.
type Assistant struct {
	source ProfileSource
	model  Model
	loc    *time.Location
	logger *zap.Logger
}

// New constructs an Assistant.
func New(source ProfileSource, opts Options) *Assistant {
	if opts.Model == nil {
		opts.Model = NoopModel{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Assistant{source: source, model: opts.Model, loc: opts.Location, logger: opts.Logger}
}

// Reply is the dispatched answer.
type Reply struct {
	Intent Intent
	Text   string
}

// Reply classifies message and renders the intent's response for userID at ref.
func (a *Assistant) Reply(ctx context.Context, userID int64, message string, ref time.Time) (Reply, error) {
	user, err := a.source.GetUser(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	intent := Classify(message)
	p := &profile{ctx: ctx, source: a.source, user: user, ref: ref, loc: a.loc, logger: a.logger}
	text := responders[intent](p, message)
	text = a.model.Refine(ctx, intent, message, text)

	observability.RecordChatIntent(string(intent))
	a.logger.Debug("chat dispatched", zap.Int64("user_id", userID), zap.String("intent", string(intent)))
	return Reply{Intent: intent, Text: text}, nil
}

// profile lazily loads personalisation data; load failures are logged and
// fall back to zero values so a reply is always produced.
type profile struct {
	ctx    context.Context
	source ProfileSource
	user   domain.User
	ref    time.Time
	loc    *time.Location
	logger *zap.Logger

	scoreLoaded bool
	score       *domain.ProductivityScore

	todayLoaded bool
	today       int

	summaryLoaded bool
	summary       domain.WindowSummary
}

func (p *profile) hour() int { return p.ref.In(p.loc).Hour() }

func (p *profile) name() string { return p.user.DisplayName() }

func (p *profile) Score() *domain.ProductivityScore {
	if !p.scoreLoaded {
		p.scoreLoaded = true
		s, err := p.source.GetScore(p.ctx, p.user.ID)
		if err != nil {
			p.logger.Warn("assistant score lookup failed", zap.Error(err))
		}
		p.score = s
	}
	return p.score
}

func (p *profile) TodayMinutes() int {
	if !p.todayLoaded {
		p.todayLoaded = true
		n, err := p.source.CountToday(p.ctx, p.user.ID, p.ref)
		if err != nil {
			p.logger.Warn("assistant today count failed", zap.Error(err))
		}
		p.today = n
	}
	return int(time.Duration(p.today) * domain.SampleInterval / time.Minute)
}

func (p *profile) Summary() domain.WindowSummary {
	if !p.summaryLoaded {
		p.summaryLoaded = true
		s, err := p.source.Aggregate(p.ctx, p.user.ID, domain.Last24Hours(p.ref), 3)
		if err != nil {
			p.logger.Warn("assistant summary failed", zap.Error(err))
		}
		p.summary = s
	}
	return p.summary
}

func (p *profile) Advisories(limit int) []domain.AdvisoryRecord {
	recs, err := p.source.RecentAdvisories(p.ctx, p.user.ID, "", limit)
	if err != nil {
		p.logger.Warn("assistant advisory lookup failed", zap.Error(err))
		return nil
	}
	return recs
}
