package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/Roan1982/saraianew/internal/domain"
)

func newReportCmd(c *cli) *cobra.Command {
	var (
		userID int64
		window string
		top    int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a user's activity summary and score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			w, err := resolveWindow(window, rt.Service.Now(), rt.Service.Location())
			if err != nil {
				return err
			}
			dash, err := rt.Service.Dashboard(cmd.Context(), userID, w, top)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), dash, rt.Service.Location())
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	cmd.Flags().StringVar(&window, "window", "24h", "window: 1h, 24h or day")
	cmd.Flags().IntVar(&top, "top", domain.DefaultTopN, "number of top windows to list")
	return cmd
}

func resolveWindow(name string, now time.Time, loc *time.Location) (domain.Window, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "1h":
		return domain.LastHour(now), nil
	case "", "24h":
		return domain.Last24Hours(now), nil
	case "day":
		return domain.Today(now, loc), nil
	}
	return domain.Window{}, fmt.Errorf("unknown window %q: use 1h, 24h or day", name)
}

func writeReport(w io.Writer, dash domain.Dashboard, loc *time.Location) error {
	s := dash.Summary
	if _, err := fmt.Fprintf(w, "Usuario %d  %s → %s\n",
		dash.UserID, s.From.In(loc).Format(time.DateTime), s.To.In(loc).Format(time.DateTime)); err != nil {
		return err
	}
	score := "sin puntaje"
	if dash.HasScore {
		score = fmt.Sprintf("%d/100 (%d mejoras)", dash.Score, dash.Improvements)
	}
	if _, err := fmt.Fprintf(w, "Puntaje: %s  Productividad: %.1f%%\n\n", score, s.Ratio*100); err != nil {
		return err
	}

	counts := tablewriter.NewWriter(w)
	counts.Header([]string{"Categoría", "Muestras"})
	counts.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignRight}
	})
	rows := make([][]string, 0, len(domain.Categories)+1)
	for _, cat := range domain.Categories {
		rows = append(rows, []string{string(cat), strconv.Itoa(s.Count(cat))})
	}
	rows = append(rows, []string{"total", strconv.Itoa(s.Total)})
	if err := counts.Bulk(rows); err != nil {
		return err
	}
	if err := counts.Render(); err != nil {
		return err
	}

	if len(s.TopWindows) == 0 {
		_, err := fmt.Fprintln(w, "\nSin actividad en la ventana.")
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	apps := tablewriter.NewWriter(w)
	apps.Header([]string{"#", "Ventana", "Muestras", "%"})
	apps.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignRight, tw.AlignLeft, tw.AlignRight, tw.AlignRight}
	})
	rows = rows[:0]
	for i, u := range s.TopWindows {
		rows = append(rows, []string{strconv.Itoa(i + 1), u.Label, strconv.Itoa(u.Count), fmt.Sprintf("%.1f", u.Percent)})
	}
	if err := apps.Bulk(rows); err != nil {
		return err
	}
	return apps.Render()
}
