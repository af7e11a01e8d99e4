package outbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcome label values.
const (
	relayDelivered = "delivered"
	relayFailed    = "failed"
)

var (
	relayedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sara",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox rows relayed to Kafka, by outcome and event type.",
	}, []string{"outcome", "event_type"})

	deadLettered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sara",
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Outbox rows copied to outbox_dlq, by topic.",
	}, []string{"topic"})

	relayBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sara",
		Subsystem: "outbox",
		Name:      "batch_size",
		Help:      "Rows claimed per non-empty relay pass.",
		Buckets:   prometheus.LinearBuckets(1, 5, 10),
	})

	relayBatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sara",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of one non-empty relay pass.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(relayedEvents, deadLettered, relayBatchSize, relayBatchSeconds)
}

func recordRelay(outcome string, messages []Message) {
	for _, msg := range messages {
		relayedEvents.WithLabelValues(outcome, msg.EventType).Inc()
	}
}

func recordDeadLetter(msg Message) {
	deadLettered.WithLabelValues(msg.Topic).Inc()
}

func observeBatch(size int, started time.Time) {
	relayBatchSize.Observe(float64(size))
	relayBatchSeconds.Observe(time.Since(started).Seconds())
}

// RelayedCount exposes the relay counter for one outcome and event type.
func RelayedCount(outcome, eventType string) prometheus.Counter {
	return relayedEvents.WithLabelValues(outcome, eventType)
}

// DeadLetterCount exposes the dead-letter counter for one topic.
func DeadLetterCount(topic string) prometheus.Counter {
	return deadLettered.WithLabelValues(topic)
}
