package domain

import (
	"context"
	"math"
	"time"
)

// EmployeeStatus classifies recency of activity.
type EmployeeStatus string

const (
	StatusActive     EmployeeStatus = "activo"
	StatusIdleToday  EmployeeStatus = "inactivo_hoy"
	StatusNoActivity EmployeeStatus = "sin_actividad"
)

// EmployeeOverview is one row of the supervisor overview.
type EmployeeOverview struct {
	User                User           `json:"-"`
	UserID              int64          `json:"user_id"`
	Name                string         `json:"nombre"`
	Total               int            `json:"total_actividades"`
	Productive          int            `json:"productivas"`
	Unproductive        int            `json:"improductivas"`
	Gaming              int            `json:"gaming"`
	ProductivityPercent float64        `json:"productividad_porcentaje"`
	LastActivity        *time.Time     `json:"ultima_actividad"`
	Status              EmployeeStatus `json:"estado"`
	Score               int            `json:"puntaje"`
}

// Overview summarises the trailing 24 hours for every employee at ref.
func (s *Service) Overview(ctx context.Context, ref time.Time) ([]EmployeeOverview, error) {
	users, err := s.repo.ListUsers(ctx, RoleEmployee)
	if err != nil {
		return nil, storageErr("list users", err)
	}

	rows := make([]EmployeeOverview, 0, len(users))
	for _, u := range users {
		summary, err := s.aggregator.Aggregate(ctx, u.ID, Last24Hours(ref), 0)
		if err != nil {
			return nil, err
		}
		latest, err := s.repo.LatestSample(ctx, u.ID)
		if err != nil {
			return nil, storageErr("load latest sample", err)
		}
		score, err := s.repo.GetScore(ctx, u.ID)
		if err != nil {
			return nil, storageErr("load score", err)
		}

		row := EmployeeOverview{
			User:                u,
			UserID:              u.ID,
			Name:                u.DisplayName(),
			Total:               summary.Total,
			Productive:          summary.Productive,
			Unproductive:        summary.Unproductive,
			Gaming:              summary.Gaming,
			ProductivityPercent: math.Round(summary.Ratio*1000) / 10,
			Status:              StatusNoActivity,
		}
		if latest != nil {
			ts := latest.Timestamp
			row.LastActivity = &ts
			row.Status = statusAt(ts, ref, s.loc)
		}
		if score != nil {
			row.Score = score.Score
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func statusAt(last, ref time.Time, loc *time.Location) EmployeeStatus {
	if ref.Sub(last) <= ActiveThreshold {
		return StatusActive
	}
	if !last.Before(StartOfDay(ref, loc)) {
		return StatusIdleToday
	}
	return StatusNoActivity
}

// UserDetail is the supervisor drill-down for one user.
type UserDetail struct {
	User           User               `json:"-"`
	Summary        WindowSummary      `json:"resumen"`
	RecentSamples  []ActivitySample   `json:"-"`
	Score          *ProductivityScore `json:"puntaje"`
	LatestAdvisory *AdvisoryRecord    `json:"ultimo_consejo"`
}

const (
	detailTopApps       = 10
	detailRecentSamples = 20
)

// UserDetail gathers the trailing 24 hour view for userID at ref.
func (s *Service) UserDetail(ctx context.Context, userID int64, ref time.Time) (UserDetail, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return UserDetail{}, err
	}
	summary, err := s.aggregator.Aggregate(ctx, userID, Last24Hours(ref), detailTopApps)
	if err != nil {
		return UserDetail{}, err
	}
	recent, _, err := s.repo.ListSamples(ctx, userID, nil, detailRecentSamples)
	if err != nil {
		return UserDetail{}, storageErr("list samples", err)
	}
	score, err := s.repo.GetScore(ctx, userID)
	if err != nil {
		return UserDetail{}, storageErr("load score", err)
	}
	advisories, err := s.repo.RecentAdvisories(ctx, userID, "", 1)
	if err != nil {
		return UserDetail{}, storageErr("load advisories", err)
	}

	detail := UserDetail{User: user, Summary: summary, RecentSamples: recent, Score: score}
	if len(advisories) > 0 {
		detail.LatestAdvisory = &advisories[0]
	}
	return detail, nil
}
