package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ outcome label values.
const (
	dlqOutcomeHandled     = "handled"
	dlqOutcomeRequeued    = "requeued"
	dlqOutcomeQuarantined = "quarantined"
	dlqOutcomeRetry       = "retry_scheduled"
)

var (
	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sara",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries by manager outcome and event type.",
	}, []string{"outcome", "event_type"})

	dlqBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sara",
		Subsystem: "dlq",
		Name:      "queued_messages",
		Help:      "Entries in outbox_dlq that are not quarantined.",
	})
)

func init() {
	prometheus.MustRegister(dlqOutcomes, dlqBacklogGauge)
}

func recordDLQProcessed(e dlqEntry) {
	dlqOutcomes.WithLabelValues(dlqOutcomeHandled, e.EventType).Inc()
}

func recordDLQRequeued(e dlqEntry) {
	dlqOutcomes.WithLabelValues(dlqOutcomeRequeued, e.EventType).Inc()
}

func recordDLQQuarantined(e dlqEntry) {
	dlqOutcomes.WithLabelValues(dlqOutcomeQuarantined, e.EventType).Inc()
}

func recordDLQRetry(e dlqEntry) {
	dlqOutcomes.WithLabelValues(dlqOutcomeRetry, e.EventType).Inc()
}

// DLQBacklog exposes the backlog gauge for tests.
func DLQBacklog() prometheus.Gauge { return dlqBacklogGauge }

func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklogGauge.Set(float64(count))
}
