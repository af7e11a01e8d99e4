package auth

// Scopes granted to SARA clients.
const (
	ScopeTelemetryWrite = "telemetry:write"
	ScopeAssistantUse   = "assistant:use"
	ScopeDashboardRead  = "dashboard:read"
)

// Role claim values; they match domain.Role.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleEmployee   = "empleado"
)

// IsSupervisor reports whether the caller may see other employees' data.
func (c *Claims) IsSupervisor() bool {
	return c != nil && (c.Role == RoleAdmin || c.Role == RoleSupervisor)
}

// CanViewUser reports whether the caller may read userID's activity.
func (c *Claims) CanViewUser(userID int64) bool {
	if c == nil {
		return false
	}
	return c.UserID == userID || c.IsSupervisor()
}
