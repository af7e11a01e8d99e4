package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Roan1982/saraianew/internal/auth"
	"github.com/Roan1982/saraianew/internal/domain"
)

const maxTopN = 50

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeDashboardRead)
	if !ok {
		return
	}
	userID, ok := targetUser(w, r, claims)
	if !ok {
		return
	}

	window, err := parseWindow(r, h.service.Now(), h.service.Location())
	if err != nil {
		h.respondError(w, err)
		return
	}

	topN := domain.DefaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "top debe ser un entero no negativo")
			return
		}
		topN = min(parsed, maxTopN)
	}

	dash, err := h.service.Dashboard(r.Context(), userID, window, topN)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// parseWindow reads window=1h|24h|day|range (default 24h). Ranges take RFC3339 from/to.
func parseWindow(r *http.Request, now time.Time, loc *time.Location) (domain.Window, error) {
	q := r.URL.Query()
	var w domain.Window
	switch strings.ToLower(strings.TrimSpace(q.Get("window"))) {
	case "1h":
		w = domain.LastHour(now)
	case "", "24h":
		w = domain.Last24Hours(now)
	case "day":
		w = domain.Today(now, loc)
	case "range":
		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			return domain.Window{}, &domain.ValidationError{Field: "from", Message: "debe ser RFC3339"}
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			return domain.Window{}, &domain.ValidationError{Field: "to", Message: "debe ser RFC3339"}
		}
		w = domain.Window{From: from, To: to}
	default:
		return domain.Window{}, &domain.ValidationError{Field: "window", Message: "use 1h, 24h, day o range"}
	}
	return w, w.Validate()
}

func (h *Handler) proactiveAdvice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeAssistantUse)
	if !ok {
		return
	}

	rec, err := h.service.ProactiveAdvice(r.Context(), claims.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ts := h.service.Now()
	if rec == nil {
		writeJSON(w, http.StatusOK, ProactiveResponse{Timestamp: ts, Message: "No hay consejos disponibles en este momento"})
		return
	}
	writeJSON(w, http.StatusOK, ProactiveResponse{Advice: &rec.Text, Timestamp: ts, Type: "proactivo"})
}

func (h *Handler) employeesOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
		return
	}
	if _, ok := requireSupervisor(w, r); !ok {
		return
	}

	rows, err := h.service.Overview(r.Context(), h.service.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"empleados": rows, "total": len(rows)})
}

func (h *Handler) userActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
		return
	}
	if _, ok := requireSupervisor(w, r); !ok {
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/actividad/usuario/"), "/")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id de usuario inválido")
		return
	}

	detail, err := h.service.UserDetail(r.Context(), userID, h.service.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserDetailResponse{
		UserID:         detail.User.ID,
		Username:       detail.User.Username,
		Name:           detail.User.DisplayName(),
		Summary:        detail.Summary,
		RecentSamples:  toSampleViews(detail.RecentSamples),
		Score:          detail.Score,
		LatestAdvisory: detail.LatestAdvisory,
	})
}

func requireSupervisor(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := requireScope(w, r, auth.ScopeDashboardRead)
	if !ok {
		return nil, false
	}
	if !claims.IsSupervisor() {
		writeError(w, http.StatusForbidden, "forbidden", "solo supervisores o administradores")
		return nil, false
	}
	return claims, true
}
