package domain

import (
	"strings"
	"time"
)

// Category classifies a telemetry sample.
type Category string

const (
	CategoryProductive   Category = "productive"
	CategoryUnproductive Category = "unproductive"
	CategoryGaming       Category = "gaming"
	CategoryNeutral      Category = "neutral"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryProductive, CategoryUnproductive, CategoryGaming, CategoryNeutral}

// ParseCategory normalises a raw label. Unknown or empty values map to neutral
// and report false.
func ParseCategory(raw string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryProductive:
		return CategoryProductive, true
	case CategoryUnproductive:
		return CategoryUnproductive, true
	case CategoryGaming:
		return CategoryGaming, true
	case CategoryNeutral:
		return CategoryNeutral, true
	}
	return CategoryNeutral, false
}

// UnknownWindow is stored when the agent could not resolve the foreground window.
const UnknownWindow = "Desconocido"

// ActivitySample is one immutable telemetry observation for a user.
type ActivitySample struct {
	ID           string
	UserID       int64
	MachineID    string
	Timestamp    time.Time
	ActiveWindow string
	TopProcesses []string
	SystemLoad   map[string]any
	Category     Category
	CreatedAt    time.Time
}

// Role enumerates the account roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleEmployee   Role = "empleado"
)

// User is the identity samples, scores and advisories hang off.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// DisplayName prefers the first name and falls back to the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FirstName) != "" {
		return u.FirstName
	}
	return u.Username
}

// Cursor models the pagination token over samples ordered newest first.
type Cursor struct {
	Timestamp time.Time
	ID        string
}
