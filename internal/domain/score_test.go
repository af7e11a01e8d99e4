package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/persistence/memory"
)

func TestProductivityScoreApply(t *testing.T) {
	cases := []struct {
		name     string
		start    int
		category domain.Category
		want     int
	}{
		{"productive increments", 10, domain.CategoryProductive, 11},
		{"productive capped", 100, domain.CategoryProductive, 100},
		{"unproductive decrements by two", 10, domain.CategoryUnproductive, 8},
		{"unproductive floored", 1, domain.CategoryUnproductive, 0},
		{"gaming decrements by three", 10, domain.CategoryGaming, 7},
		{"gaming floored", 2, domain.CategoryGaming, 0},
		{"neutral unchanged", 42, domain.CategoryNeutral, 42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := domain.ProductivityScore{Score: tc.start}
			s.Apply(tc.category)
			require.Equal(t, tc.want, s.Score)
		})
	}
}

func TestProductiveNeverDecreasesOrExceedsMax(t *testing.T) {
	for start := domain.MinScore; start <= domain.MaxScore; start++ {
		s := domain.ProductivityScore{Score: start}
		s.Apply(domain.CategoryProductive)
		require.GreaterOrEqual(t, s.Score, start)
		require.LessOrEqual(t, s.Score, domain.MaxScore)
	}
}

func TestPenaltiesAreExactAndFloored(t *testing.T) {
	for start := domain.MinScore; start <= domain.MaxScore; start++ {
		u := domain.ProductivityScore{Score: start}
		u.Apply(domain.CategoryUnproductive)
		require.Equal(t, max(0, start-2), u.Score)

		g := domain.ProductivityScore{Score: start}
		g.Apply(domain.CategoryGaming)
		require.Equal(t, max(0, start-3), g.Score)
	}
}

func TestScoreUpdaterImprovementCountedOncePerDay(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	user, err := repo.UpsertUser(ctx, domain.User{Username: "empleado1", Role: domain.RoleEmployee})
	require.NoError(t, err)

	ref := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	samples := make([]domain.ActivitySample, 0, 52)
	for i := 0; i < 52; i++ {
		samples = append(samples, domain.ActivitySample{
			UserID:       user.ID,
			Timestamp:    ref.Add(time.Duration(i) * 30 * time.Second),
			ActiveWindow: "Visual Studio Code",
			Category:     domain.CategoryProductive,
		})
	}
	require.NoError(t, repo.InsertSamples(ctx, samples))

	updater := domain.NewScoreUpdater(repo, repo, domain.ClockFunc(func() time.Time { return ref }), time.UTC)

	var last domain.ProductivityScore
	for _, s := range samples {
		last, err = updater.Apply(ctx, s)
		require.NoError(t, err)
	}
	require.Equal(t, 1, last.Improvements)
	require.Equal(t, 52, last.Score)

	// replaying a sample of the same day must not count the day again
	last, err = updater.Apply(ctx, samples[0])
	require.NoError(t, err)
	require.Equal(t, 1, last.Improvements)
}

func TestScoreUpdaterUnknownUser(t *testing.T) {
	repo := memory.NewRepository()
	updater := domain.NewScoreUpdater(repo, repo, nil, nil)
	_, err := updater.Apply(context.Background(), domain.ActivitySample{UserID: 99, Timestamp: time.Now(), Category: domain.CategoryProductive})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyBatchMatchesPerSampleFolding(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	user, err := repo.UpsertUser(ctx, domain.User{Username: "empleado1", Role: domain.RoleEmployee})
	require.NoError(t, err)

	ref := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	batch := make([]domain.ActivitySample, 0, 53)
	for i := 0; i < 52; i++ {
		batch = append(batch, domain.ActivitySample{
			UserID:    user.ID,
			Timestamp: ref.Add(time.Duration(i) * 30 * time.Second),
			Category:  domain.CategoryProductive,
		})
	}
	batch = append(batch, domain.ActivitySample{UserID: user.ID, Timestamp: ref.Add(time.Hour), Category: domain.CategoryGaming})

	updater := domain.NewScoreUpdater(repo, repo, domain.ClockFunc(func() time.Time { return ref }), time.UTC)
	score, err := updater.ApplyBatch(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 49, score.Score)
	require.Equal(t, 1, score.Improvements)
	require.Equal(t, ref, score.UpdatedAt)

	n, err := repo.CountSamples(ctx, domain.SampleFilter{UserID: user.ID, From: ref, To: ref.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Equal(t, 53, n)

	_, err = updater.ApplyBatch(ctx, []domain.ActivitySample{{UserID: 404, Timestamp: ref, Category: domain.CategoryNeutral}})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
