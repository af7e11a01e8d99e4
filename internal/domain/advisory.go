package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/observability"
)

// ProactiveCategory is the record category of rule-engine output.
const ProactiveCategory = "proactive"

const (
	// DedupWindow suppresses a second proactive advisory for the same user.
	DedupWindow = 5 * time.Minute
	// ContinuousUseWindow and ContinuousUseThreshold drive the continuous-app-use rule.
	ContinuousUseWindow    = 30 * time.Minute
	ContinuousUseThreshold = 20
	// SampleInterval is the agent's nominal sampling period.
	SampleInterval = 30 * time.Second

	lowRatioMinSamples  = 10
	lowRatioThreshold   = 0.4
	dominanceMinSamples = 5
	lowScoreThreshold   = 50
	gamingCutoffHour    = 18
	longDay             = 8 * time.Hour
	longStretch         = 6 * time.Hour
	advisorySeparator   = " | "
)

// RuleTag groups rule output in the detection payload.
type RuleTag string

const (
	TagContextual          RuleTag = "contextual"
	TagProductivityPattern RuleTag = "productivity-pattern"
	TagTimeFatigue         RuleTag = "time-fatigue"
	TagProactive           RuleTag = "proactive"
)

// AdvisoryRecord is one emitted advisory.
type AdvisoryRecord struct {
	ID        string            `json:"id"`
	UserID    int64             `json:"user_id"`
	Text      string            `json:"text"`
	Category  string            `json:"category"`
	Detection AdvisoryDetection `json:"detection"`
	EmittedAt time.Time         `json:"emitted_at"`
}

// AdvisoryDetection is the structured context persisted with a record.
type AdvisoryDetection struct {
	Type         string          `json:"tipo"`
	ActiveWindow string          `json:"ventana_activa"`
	Hour         int             `json:"hora_actual"`
	TimeInApp    int             `json:"tiempo_en_app"`
	TagCounts    map[RuleTag]int `json:"tags"`
	Rules        []string        `json:"rules"`
	Reference    time.Time       `json:"timestamp"`
}

// RuleInput is the evaluated state a rule sees. It is computed once per
// evaluation so rules stay pure.
type RuleInput struct {
	Ref          time.Time
	Hour         int
	ActiveWindow string
	TimeInApp    int
	LastHour     WindowSummary
	TodaySamples int
	Score        *ProductivityScore
}

// Finding is one advisory string produced by a rule.
type Finding struct {
	Rule string
	Tag  RuleTag
	Text string
}

// Rule is one named advisory condition.
type Rule struct {
	Name string
	Tag  RuleTag
	Eval func(RuleInput) []string
}

// DefaultRules is the ordered rule set.
var DefaultRules = []Rule{
	{Name: "continuous-app-use", Tag: TagContextual, Eval: continuousAppUse},
	{Name: "low-productivity-ratio", Tag: TagProductivityPattern, Eval: lowProductivityRatio},
	{Name: "unproductive-dominance", Tag: TagProductivityPattern, Eval: unproductiveDominance},
	{Name: "time-of-day", Tag: TagTimeFatigue, Eval: timeOfDay},
	{Name: "workday-length", Tag: TagTimeFatigue, Eval: workdayLength},
	{Name: "score-threshold", Tag: TagProactive, Eval: scoreThreshold},
	{Name: "gaming-during-hours", Tag: TagProductivityPattern, Eval: gamingDuringHours},
}

func continuousAppUse(in RuleInput) []string {
	if in.TimeInApp <= ContinuousUseThreshold {
		return nil
	}
	return AppTips(ClassifyApp(in.ActiveWindow))
}

func lowProductivityRatio(in RuleInput) []string {
	if in.LastHour.Total > lowRatioMinSamples && in.LastHour.Ratio < lowRatioThreshold {
		return []string{tipLowRatio, tipPomodoro}
	}
	return nil
}

func unproductiveDominance(in RuleInput) []string {
	if in.LastHour.Total > dominanceMinSamples && in.LastHour.Unproductive > in.LastHour.Productive {
		return []string{tipDominance}
	}
	return nil
}

func timeOfDay(in RuleInput) []string {
	switch h := in.Hour; {
	case h == 11:
		return []string{tipCoffee}
	case h == 14:
		return []string{tipLunch}
	case h == 17:
		return []string{tipWrapUp}
	case h >= 18 && h < 22:
		return []string{tipEvening}
	case h >= 22 || h < 6:
		return []string{tipOffHours}
	}
	return nil
}

func workdayLength(in RuleInput) []string {
	worked := time.Duration(in.TodaySamples) * SampleInterval
	switch {
	case worked > longDay:
		return []string{tipLongDay}
	case worked > longStretch:
		return []string{tipLongStretch}
	}
	return nil
}

func scoreThreshold(in RuleInput) []string {
	if in.Score == nil {
		return []string{tipOnboarding}
	}
	if in.Score.Score < lowScoreThreshold {
		return []string{tipLowScore}
	}
	return nil
}

func gamingDuringHours(in RuleInput) []string {
	if in.LastHour.Gaming > 0 && in.Hour < gamingCutoffHour {
		return []string{tipGamingInWork}
	}
	return nil
}

// Evaluate runs rules in order against in.
func Evaluate(rules []Rule, in RuleInput) []Finding {
	var findings []Finding
	for _, r := range rules {
		for _, text := range r.Eval(in) {
			findings = append(findings, Finding{Rule: r.Name, Tag: r.Tag, Text: text})
		}
	}
	return findings
}

// JoinFindings flattens findings into the advisory text.
func JoinFindings(findings []Finding) string {
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, advisorySeparator)
}

// AdvisoryEngine evaluates rules against fresh aggregates and persists
// deduplicated proactive advisories.
type AdvisoryEngine struct {
	samples    SampleRepository
	scores     ScoreRepository
	advisories AdvisoryRepository
	aggregator *Aggregator
	rules      []Rule
	clock      Clock
	loc        *time.Location
	logger     *zap.Logger
}

// NewAdvisoryEngine constructs an AdvisoryEngine using DefaultRules.
func NewAdvisoryEngine(repo Repository, clock Clock, loc *time.Location, logger *zap.Logger) *AdvisoryEngine {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryEngine{
		samples:    repo,
		scores:     repo,
		advisories: repo,
		aggregator: NewAggregator(repo),
		rules:      DefaultRules,
		clock:      clock,
		loc:        loc,
		logger:     logger,
	}
}

// Input gathers the rule input for userID at ref. trigger is the sample that
// prompted evaluation; its window label keys the continuous-use rule.
func (e *AdvisoryEngine) Input(ctx context.Context, userID int64, ref time.Time, trigger ActivitySample) (RuleInput, error) {
	in := RuleInput{
		Ref:          ref,
		Hour:         ref.In(e.loc).Hour(),
		ActiveWindow: trigger.ActiveWindow,
	}

	inApp := Trailing(ref, ContinuousUseWindow)
	n, err := e.samples.CountSamples(ctx, SampleFilter{UserID: userID, From: inApp.From, To: inApp.To, WindowLabel: trigger.ActiveWindow})
	if err != nil {
		return RuleInput{}, storageErr("count time in app", err)
	}
	in.TimeInApp = n

	if in.LastHour, err = e.aggregator.Aggregate(ctx, userID, LastHour(ref), 0); err != nil {
		return RuleInput{}, err
	}

	today := Today(ref, e.loc)
	if in.TodaySamples, err = e.samples.CountSamples(ctx, SampleFilter{UserID: userID, From: today.From, To: today.To}); err != nil {
		return RuleInput{}, storageErr("count today", err)
	}

	if in.Score, err = e.scores.GetScore(ctx, userID); err != nil {
		return RuleInput{}, storageErr("load score", err)
	}
	return in, nil
}

// Advise evaluates the rules for userID at ref. The record is stamped with the
// engine clock, which also anchors the dedup window; ref only drives the rule
// windows. It returns nil when no rule fired, when a proactive
// advisory was emitted within DedupWindow, or when evaluation failed; failures
// are logged and never propagate.
func (e *AdvisoryEngine) Advise(ctx context.Context, userID int64, ref time.Time, trigger ActivitySample) *AdvisoryRecord {
	logger := e.logger.With(zap.Int64("user_id", userID), zap.Time("ref", ref))

	in, err := e.Input(ctx, userID, ref, trigger)
	if err != nil {
		logger.Warn("advisory input failed", zap.Error(err))
		observability.RecordAdvisory("failed")
		return nil
	}

	findings := Evaluate(e.rules, in)
	if len(findings) == 0 {
		observability.RecordAdvisory("empty")
		return nil
	}

	now := e.clock.Now()
	rec := AdvisoryRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      JoinFindings(findings),
		Category:  ProactiveCategory,
		Detection: detectionFor(in, findings),
		EmittedAt: now,
	}

	inserted, err := e.advisories.InsertAdvisoryUnlessRecent(ctx, rec, now.Add(-DedupWindow))
	if err != nil {
		logger.Warn("advisory persist failed", zap.Error(err))
		observability.RecordAdvisory("failed")
		return nil
	}
	if !inserted {
		logger.Debug("advisory suppressed by recent emission")
		observability.RecordAdvisory("suppressed")
		return nil
	}

	observability.RecordAdvisory("emitted")
	logger.Info("advisory emitted", zap.String("advisory_id", rec.ID), zap.Int("findings", len(findings)))
	return &rec
}

func detectionFor(in RuleInput, findings []Finding) AdvisoryDetection {
	d := AdvisoryDetection{
		Type:         ProactiveCategory,
		ActiveWindow: in.ActiveWindow,
		Hour:         in.Hour,
		TimeInApp:    in.TimeInApp,
		TagCounts:    make(map[RuleTag]int),
		Reference:    in.Ref,
	}
	seen := make(map[string]bool)
	for _, f := range findings {
		d.TagCounts[f.Tag]++
		if !seen[f.Rule] {
			seen[f.Rule] = true
			d.Rules = append(d.Rules, f.Rule)
		}
	}
	return d
}
