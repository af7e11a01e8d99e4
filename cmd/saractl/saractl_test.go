package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Roan1982/saraianew/internal/auth"
	"github.com/Roan1982/saraianew/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommandSignsParsableToken(t *testing.T) {
	out, err := run(t, "token", "--store", "memory", "--user", "7", "--role", "supervisor", "--scope", auth.ScopeDashboardRead)
	require.NoError(t, err)

	claims, err := auth.Parse(strings.TrimSpace(out), auth.Config{Secret: "dev-secret-change-me", Issuer: "sara"})
	require.NoError(t, err)
	require.EqualValues(t, 7, claims.UserID)
	require.True(t, claims.IsSupervisor())
	require.True(t, claims.HasScope(auth.ScopeDashboardRead))
	require.False(t, claims.HasScope(auth.ScopeTelemetryWrite))
}

func TestSeedCommandPrintsAccounts(t *testing.T) {
	out, err := run(t, "seed", "--store", "memory", "--log-level", "error")
	require.NoError(t, err)
	for _, name := range []string{"admin", "supervisor1", "empleado1", "empleado2"} {
		require.Contains(t, out, name)
	}
}

func TestCommandsRequireUser(t *testing.T) {
	_, err := run(t, "report", "--store", "memory")
	require.ErrorContains(t, err, "--user is required")

	_, err = run(t, "chat", "--store", "memory", "hola")
	require.ErrorContains(t, err, "--user is required")
}

func TestInvalidStoreFlagFailsSetup(t *testing.T) {
	_, err := run(t, "seed", "--store", "sqlite")
	require.ErrorContains(t, err, `store "sqlite"`)
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)

	w, err := resolveWindow("1h", now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, now.Add(-time.Hour), w.From)

	w, err = resolveWindow("", now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, now.Add(-24*time.Hour), w.From)

	w, err = resolveWindow("day", now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), w.From)

	_, err = resolveWindow("week", now, time.UTC)
	require.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)
	dash := domain.Dashboard{
		UserID: 3,
		Summary: domain.WindowSummary{
			From: now.Add(-time.Hour), To: now,
			Total: 4, Productive: 3, Neutral: 1, Ratio: 0.75,
			TopWindows: []domain.WindowUsage{{Label: "Excel", Count: 3, Percent: 100}, {Label: "Chrome", Count: 1, Percent: 33.3}},
		},
		Score: 12, Improvements: 1, HasScore: true,
	}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, dash, time.UTC))
	out := buf.String()
	require.Contains(t, out, "12/100 (1 mejoras)")
	require.Contains(t, out, "75.0%")
	require.Contains(t, out, "Excel")
	require.Contains(t, out, "Chrome")

	buf.Reset()
	require.NoError(t, writeReport(&buf, domain.Dashboard{UserID: 3, Summary: domain.WindowSummary{From: now, To: now}}, time.UTC))
	require.Contains(t, buf.String(), "sin puntaje")
	require.Contains(t, buf.String(), "Sin actividad en la ventana.")
}
