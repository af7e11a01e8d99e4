package domain

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
)

// Window is an inclusive time range [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// Trailing returns the window of length d ending at ref.
func Trailing(ref time.Time, d time.Duration) Window {
	return Window{From: ref.Add(-d), To: ref}
}

// LastHour is the trailing one hour window.
func LastHour(ref time.Time) Window { return Trailing(ref, time.Hour) }

// Last24Hours is the trailing 24 hour window.
func Last24Hours(ref time.Time) Window { return Trailing(ref, 24*time.Hour) }

// CalendarDay covers the whole calendar day containing ref in loc.
func CalendarDay(ref time.Time, loc *time.Location) Window {
	start := StartOfDay(ref, loc)
	return Window{From: start, To: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}

// Today covers the calendar day of ref up to ref itself.
func Today(ref time.Time, loc *time.Location) Window {
	return Window{From: StartOfDay(ref, loc), To: ref}
}

// StartOfDay returns local midnight of ref's day in loc.
func StartOfDay(ref time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Contains reports whether ts lies in the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.From) && !ts.After(w.To)
}

// Validate rejects inverted ranges.
func (w Window) Validate() error {
	if w.From.IsZero() || w.To.IsZero() {
		return invalid("window", "from and to are required")
	}
	if w.To.Before(w.From) {
		return invalid("window", "to must not precede from")
	}
	return nil
}

// WindowUsage is one entry of the top-N window ranking.
type WindowUsage struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// WindowSummary is the derived view over the samples of a window.
type WindowSummary struct {
	From         time.Time     `json:"from"`
	To           time.Time     `json:"to"`
	Total        int           `json:"total"`
	Productive   int           `json:"productive"`
	Unproductive int           `json:"unproductive"`
	Gaming       int           `json:"gaming"`
	Neutral      int           `json:"neutral"`
	Ratio        float64       `json:"ratio"`
	TopWindows   []WindowUsage `json:"top_windows"`
}

// Count returns the tally for c.
func (s WindowSummary) Count(c Category) int {
	switch c {
	case CategoryProductive:
		return s.Productive
	case CategoryUnproductive:
		return s.Unproductive
	case CategoryGaming:
		return s.Gaming
	case CategoryNeutral:
		return s.Neutral
	}
	return 0
}

// Summarize computes per-category counts, the productive ratio and the top-N
// window labels. samples must be ordered by timestamp so that equal counts
// rank by first occurrence.
func Summarize(w Window, samples []ActivitySample, topN int) WindowSummary {
	summary := WindowSummary{From: w.From, To: w.To, TopWindows: []WindowUsage{}}

	type tally struct {
		label string
		count int
	}
	byLabel := make(map[string]*tally)
	order := make([]*tally, 0)

	for _, s := range samples {
		summary.Total++
		switch s.Category {
		case CategoryProductive:
			summary.Productive++
		case CategoryUnproductive:
			summary.Unproductive++
		case CategoryGaming:
			summary.Gaming++
		default:
			summary.Neutral++
		}

		label := s.ActiveWindow
		if strings.TrimSpace(label) == "" {
			label = UnknownWindow
		}
		t, ok := byLabel[label]
		if !ok {
			t = &tally{label: label}
			byLabel[label] = t
			order = append(order, t)
		}
		t.count++
	}

	if summary.Total > 0 {
		summary.Ratio = float64(summary.Productive) / float64(summary.Total)
	}

	if topN <= 0 || len(order) == 0 {
		return summary
	}

	// stable: equal counts keep first-occurrence order
	sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })
	if len(order) > topN {
		order = order[:topN]
	}

	peak := order[0].count
	for _, t := range order {
		summary.TopWindows = append(summary.TopWindows, WindowUsage{
			Label:   t.label,
			Count:   t.count,
			Percent: round1(float64(t.count) / float64(peak) * 100),
		})
	}
	return summary
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Aggregator derives window summaries from stored samples.
type Aggregator struct {
	samples SampleRepository
}

// NewAggregator constructs an Aggregator.
func NewAggregator(samples SampleRepository) *Aggregator {
	return &Aggregator{samples: samples}
}

// Aggregate summarises the user's samples in w.
func (a *Aggregator) Aggregate(ctx context.Context, userID int64, w Window, topN int) (WindowSummary, error) {
	if err := w.Validate(); err != nil {
		return WindowSummary{}, err
	}
	samples, err := a.samples.SamplesBetween(ctx, SampleFilter{UserID: userID, From: w.From, To: w.To})
	if err != nil {
		return WindowSummary{}, storageErr("load samples", err)
	}
	return Summarize(w, samples, topN), nil
}
