package domain_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/observability"
	"github.com/Roan1982/saraianew/internal/persistence/memory"
)

func rulesFired(findings []domain.Finding) []string {
	names := make([]string, 0, len(findings))
	for _, f := range findings {
		if len(names) == 0 || names[len(names)-1] != f.Rule {
			names = append(names, f.Rule)
		}
	}
	return names
}

func TestEvaluateRules(t *testing.T) {
	ref := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	score := &domain.ProductivityScore{Score: 80}

	cases := []struct {
		name string
		in   domain.RuleInput
		want []string
	}{
		{
			name: "quiet morning",
			in:   domain.RuleInput{Ref: ref, Hour: 10, Score: score},
			want: []string{},
		},
		{
			name: "continuous spreadsheet use",
			in:   domain.RuleInput{Ref: ref, Hour: 10, ActiveWindow: "Book1 - Excel", TimeInApp: 21, Score: score},
			want: []string{"continuous-app-use"},
		},
		{
			name: "threshold is exclusive",
			in:   domain.RuleInput{Ref: ref, Hour: 10, ActiveWindow: "Book1 - Excel", TimeInApp: 20, Score: score},
			want: []string{},
		},
		{
			name: "low ratio and dominance",
			in: domain.RuleInput{Ref: ref, Hour: 10, Score: score,
				LastHour: domain.WindowSummary{Total: 12, Productive: 2, Unproductive: 10, Ratio: 2.0 / 12}},
			want: []string{"low-productivity-ratio", "unproductive-dominance"},
		},
		{
			name: "coffee hour",
			in:   domain.RuleInput{Ref: ref, Hour: 11, Score: score},
			want: []string{"time-of-day"},
		},
		{
			name: "off hours",
			in:   domain.RuleInput{Ref: ref, Hour: 23, Score: score},
			want: []string{"time-of-day"},
		},
		{
			name: "long workday",
			in:   domain.RuleInput{Ref: ref, Hour: 10, TodaySamples: 961, Score: score},
			want: []string{"workday-length"},
		},
		{
			name: "onboarding without score",
			in:   domain.RuleInput{Ref: ref, Hour: 10},
			want: []string{"score-threshold"},
		},
		{
			name: "gaming during work hours",
			in:   domain.RuleInput{Ref: ref, Hour: 15, Score: score, LastHour: domain.WindowSummary{Total: 1, Gaming: 1}},
			want: []string{"gaming-during-hours"},
		},
		{
			name: "gaming after hours is tolerated",
			in:   domain.RuleInput{Ref: ref, Hour: 19, Score: score, LastHour: domain.WindowSummary{Total: 1, Gaming: 1}},
			want: []string{"time-of-day"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rulesFired(domain.Evaluate(domain.DefaultRules, tc.in))
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLowRatioEmitsPomodoroTip(t *testing.T) {
	in := domain.RuleInput{Hour: 10, Score: &domain.ProductivityScore{Score: 90},
		LastHour: domain.WindowSummary{Total: 11, Productive: 4, Neutral: 7, Ratio: 4.0 / 11}}
	text := domain.JoinFindings(domain.Evaluate(domain.DefaultRules, in))
	require.Contains(t, text, "Pomodoro")
	require.Equal(t, 2, strings.Count(text, " | ")+1)
}

func TestClassifyApp(t *testing.T) {
	require.Equal(t, domain.AppSpreadsheet, domain.ClassifyApp("Informe.xlsx - Excel"))
	require.Equal(t, domain.AppWordProcessor, domain.ClassifyApp("Documento1 - Word"))
	require.Equal(t, domain.AppIDE, domain.ClassifyApp("main.go - Visual Studio Code"))
	require.Equal(t, domain.AppBrowser, domain.ClassifyApp("Google Chrome"))
	require.Equal(t, domain.AppCommunications, domain.ClassifyApp("Slack | general"))
	require.Equal(t, domain.AppOther, domain.ClassifyApp("Bloc de notas"))
}

func TestAdviseDeduplicatesWithinFiveMinutes(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	user, err := repo.UpsertUser(ctx, domain.User{Username: "empleado1", Role: domain.RoleEmployee})
	require.NoError(t, err)

	ref := time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC)
	trigger := domain.ActivitySample{UserID: user.ID, Timestamp: ref, ActiveWindow: "Excel", Category: domain.CategoryProductive}
	require.NoError(t, repo.InsertSamples(ctx, []domain.ActivitySample{trigger}))

	clock := ref
	engine := domain.NewAdvisoryEngine(repo, domain.ClockFunc(func() time.Time { return clock }), time.UTC, zap.NewNop())
	suppressed := testutil.ToFloat64(observability.AdvisoryCount("suppressed"))

	first := engine.Advise(ctx, user.ID, ref, trigger)
	require.NotNil(t, first)
	require.Equal(t, domain.ProactiveCategory, first.Category)
	require.Equal(t, 1, first.Detection.TagCounts[domain.TagTimeFatigue])

	clock = ref.Add(4 * time.Minute)
	second := engine.Advise(ctx, user.ID, clock, trigger)
	require.Nil(t, second)
	require.Equal(t, suppressed+1, testutil.ToFloat64(observability.AdvisoryCount("suppressed")))

	recs, err := repo.RecentAdvisories(ctx, user.ID, domain.ProactiveCategory, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	clock = ref.Add(6 * time.Minute)
	third := engine.Advise(ctx, user.ID, clock, trigger)
	require.NotNil(t, third)
}

func TestAdviseStampsEngineClock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	user, err := repo.UpsertUser(ctx, domain.User{Username: "empleado1", Role: domain.RoleEmployee})
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC)
	engine := domain.NewAdvisoryEngine(repo, domain.ClockFunc(func() time.Time { return now }), time.UTC, nil)

	ahead := now.Add(time.Hour)
	trigger := domain.ActivitySample{UserID: user.ID, Timestamp: ahead, ActiveWindow: "Excel", Category: domain.CategoryProductive}
	require.NoError(t, repo.InsertSamples(ctx, []domain.ActivitySample{trigger}))

	rec := engine.Advise(ctx, user.ID, ahead, trigger)
	require.NotNil(t, rec)
	require.Equal(t, now, rec.EmittedAt)
	require.Equal(t, ahead, rec.Detection.Reference)

	// a sample ten minutes old is still inside the window of the record above
	require.Nil(t, engine.Advise(ctx, user.ID, now.Add(-10*time.Minute), trigger))

	now = now.Add(domain.DedupWindow + time.Second)
	require.NotNil(t, engine.Advise(ctx, user.ID, now.Add(-10*time.Minute), trigger))
}

func TestAdviseUnknownUserDegradesToNil(t *testing.T) {
	repo := memory.NewRepository()
	engine := domain.NewAdvisoryEngine(repo, nil, time.UTC, nil)
	ref := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	require.Nil(t, engine.Advise(context.Background(), 404, ref, domain.ActivitySample{Timestamp: ref}))
}
