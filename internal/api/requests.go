package api

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Roan1982/saraianew/internal/domain"
)

// IngestRequest is the desktop agent payload for POST /api/activity/.
type IngestRequest struct {
	MachineID  string            `json:"machineId" validate:"required,max=128"`
	UserID     int64             `json:"userId"`
	Activities []ActivityPayload `json:"activities" validate:"required,min=1,max=1000,dive"`
}

// ActivityPayload is one telemetry event.
type ActivityPayload struct {
	Timestamp    string         `json:"timestamp"`
	ActiveWindow string         `json:"activeWindow" validate:"max=1024"`
	TopProcesses []string       `json:"topProcesses" validate:"max=64"`
	SystemLoad   map[string]any `json:"systemLoad"`
	Productivity string         `json:"productivity" validate:"max=32"`
}

func (r IngestRequest) toInput() domain.IngestInput {
	events := make([]domain.RawEvent, 0, len(r.Activities))
	for _, a := range r.Activities {
		events = append(events, domain.RawEvent{
			Timestamp:    a.Timestamp,
			ActiveWindow: a.ActiveWindow,
			TopProcesses: a.TopProcesses,
			SystemLoad:   a.SystemLoad,
			Productivity: a.Productivity,
		})
	}
	return domain.IngestInput{MachineID: strings.TrimSpace(r.MachineID), UserID: r.UserID, Events: events}
}

// IngestResponse acknowledges a stored batch.
type IngestResponse struct {
	Message    string `json:"message"`
	Accepted   int    `json:"actividades"`
	Score      int    `json:"puntaje"`
	Advisory   string `json:"consejo,omitempty"`
	AdvisoryID string `json:"consejo_id,omitempty"`
}

// ChatRequest is the payload for POST /api/asistente/chat/.
type ChatRequest struct {
	Message string `json:"mensaje" validate:"required,max=2000"`
}

// ChatResponse carries the assistant reply.
type ChatResponse struct {
	Reply     string    `json:"respuesta"`
	Intent    string    `json:"intencion"`
	Timestamp time.Time `json:"timestamp"`
}

// SampleView is the wire form of a stored sample.
type SampleView struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	MachineID    string         `json:"machine_id"`
	ActiveWindow string         `json:"ventana_activa"`
	TopProcesses []string       `json:"procesos_activos"`
	SystemLoad   map[string]any `json:"carga_sistema"`
	Productivity string         `json:"productividad"`
}

func toSampleViews(samples []domain.ActivitySample) []SampleView {
	out := make([]SampleView, 0, len(samples))
	for _, s := range samples {
		out = append(out, SampleView{
			ID:           s.ID,
			Timestamp:    s.Timestamp,
			MachineID:    s.MachineID,
			ActiveWindow: s.ActiveWindow,
			TopProcesses: s.TopProcesses,
			SystemLoad:   s.SystemLoad,
			Productivity: string(s.Category),
		})
	}
	return out
}

// ListSamplesResponse is one page of samples.
type ListSamplesResponse struct {
	Items      []SampleView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ProactiveResponse is the body of GET /api/consejos-proactivos/.
type ProactiveResponse struct {
	Advice    *string    `json:"consejos"`
	Timestamp time.Time `json:"timestamp"`
	Type      string     `json:"tipo,omitempty"`
	Message   string     `json:"mensaje,omitempty"`
}

// UserDetailResponse is the body of GET /api/actividad/usuario/{id}/.
type UserDetailResponse struct {
	UserID         int64                     `json:"user_id"`
	Username       string                    `json:"username"`
	Name           string                    `json:"nombre"`
	Summary        domain.WindowSummary      `json:"resumen"`
	RecentSamples  []SampleView              `json:"actividades_recientes"`
	Score          *domain.ProductivityScore `json:"puntaje"`
	LatestAdvisory *domain.AdvisoryRecord    `json:"ultimo_consejo"`
}

// HealthResponse is the body of GET /api/health/.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationDetails flattens validator errors to field -> message.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["body"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		details[fieldPath(fe.Namespace())] = formatValidationError(fe)
	}
	return details
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es requerido"
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "min":
		return "requiere al menos " + fe.Param() + " elementos"
	case "max":
		return "excede el máximo de " + fe.Param()
	default:
		return "no es válido (" + fe.Tag() + ")"
	}
}
