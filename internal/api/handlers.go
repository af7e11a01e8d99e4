// Package api exposes the SARA HTTP surface: telemetry ingest, dashboards,
// proactive advice, supervisor views and the assistant chat.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/assistant"
	"github.com/Roan1982/saraianew/internal/auth"
	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/persistence"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 4 << 20
	serviceName     = "sara-backend"
)

// Handler coordinates HTTP requests with the domain service and the assistant.
type Handler struct {
	service   *domain.Service
	assistant *assistant.Assistant
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewHandler builds a Handler. A nil logger discards output.
func NewHandler(service *domain.Service, bot *assistant.Assistant, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, assistant: bot, validate: newValidator(), logger: logger.Named("api")}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/activity/", h.activity)
	mux.HandleFunc("/api/dashboard/", h.dashboard)
	mux.HandleFunc("/api/consejos-proactivos/", h.proactiveAdvice)
	mux.HandleFunc("/api/empleados/overview/", h.employeesOverview)
	mux.HandleFunc("/api/actividad/usuario/", h.userActivity)
	mux.HandleFunc("/api/asistente/chat/", h.chat)
	mux.HandleFunc("/api/health/", h.health)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: h.service.Now(), Service: serviceName})
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingest(w, r)
	case http.MethodGet:
		h.listSamples(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
	}
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTelemetryWrite)
	if !ok {
		return
	}

	var req IngestRequest
	if !h.decode(w, r, &req) {
		return
	}
	// an absent userId never resolves and is reported as not found by the service
	if req.UserID != 0 && !claims.CanViewUser(req.UserID) {
		writeError(w, http.StatusForbidden, "forbidden", "no puede registrar actividad de otro usuario")
		return
	}

	result, err := h.service.Ingest(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := IngestResponse{Message: result.Message(), Accepted: result.Accepted, Score: result.Score.Score}
	if result.Advisory != nil {
		resp.Advisory = result.Advisory.Text
		resp.AdvisoryID = result.Advisory.ID
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) listSamples(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeDashboardRead)
	if !ok {
		return
	}
	userID, ok := targetUser(w, r, claims)
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit debe ser un entero positivo")
			return
		}
		limit = min(parsed, maxPageSize)
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "cursor inválido")
		return
	}

	samples, next, err := h.service.ListSamples(r.Context(), userID, cursor, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListSamplesResponse{Items: toSampleViews(samples), NextCursor: persistence.EncodeCursor(next)})
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request", "cuerpo vacío")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "JSON inválido: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"type":    "validation_failed",
			"error":   "datos inválidos",
			"details": validationDetails(err),
		})
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Usuario no encontrado")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "error interno")
	}
}

func requireScope(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

// targetUser resolves ?user_id=, defaulting to the caller, and enforces visibility.
func targetUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if raw == "" {
		return claims.UserID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "user_id inválido")
		return 0, false
	}
	if !claims.CanViewUser(id) {
		writeError(w, http.StatusForbidden, "forbidden", "sin permiso para ver este usuario")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"type": code, "error": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
