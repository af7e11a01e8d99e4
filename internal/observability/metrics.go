// Package observability holds the Prometheus collectors shared by the domain
// and HTTP layers.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sara"

var (
	samplesIngestedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "samples_total",
		Help:      "Activity samples persisted, by productivity category.",
	}, []string{"category"})

	batchesIngestedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "batches_total",
		Help:      "Telemetry batches persisted.",
	})

	lastIngestGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "last_batch_timestamp_seconds",
		Help:      "Unix timestamp of the most recent batch persisted.",
	})

	scoreUpdateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "updates_total",
		Help:      "Score updates applied, by sample category.",
	}, []string{"category"})

	scoreImprovementCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "improvements_total",
		Help:      "Daily improvement increments granted.",
	})

	scoreHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "score",
		Name:      "value",
		Help:      "Distribution of scores after each update.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	advisoryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "advisory",
		Name:      "evaluations_total",
		Help:      "Advisory engine evaluations by outcome (emitted, suppressed, empty, failed).",
	}, []string{"outcome"})

	chatIntentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assistant",
		Name:      "intents_total",
		Help:      "Chat messages dispatched, by classified intent.",
	}, []string{"intent"})
)

func init() {
	prometheus.MustRegister(
		samplesIngestedCounter,
		batchesIngestedCounter,
		lastIngestGauge,
		scoreUpdateCounter,
		scoreImprovementCounter,
		scoreHistogram,
		advisoryCounter,
		chatIntentCounter,
	)
}

// RecordSamplesIngested counts a persisted batch.
func RecordSamplesIngested(total int, byCategory map[string]int, ts time.Time) {
	if total == 0 {
		return
	}
	batchesIngestedCounter.Inc()
	for category, n := range byCategory {
		samplesIngestedCounter.WithLabelValues(category).Add(float64(n))
	}
	if !ts.IsZero() {
		lastIngestGauge.Set(float64(ts.Unix()))
	}
}

// RecordScoreUpdate tracks one score adjustment.
func RecordScoreUpdate(category string, score int, improved bool) {
	scoreUpdateCounter.WithLabelValues(category).Inc()
	scoreHistogram.Observe(float64(score))
	if improved {
		scoreImprovementCounter.Inc()
	}
}

// RecordAdvisory tracks an advisory evaluation outcome.
func RecordAdvisory(outcome string) {
	advisoryCounter.WithLabelValues(outcome).Inc()
}

// RecordChatIntent tracks a dispatched chat intent.
func RecordChatIntent(intent string) {
	chatIntentCounter.WithLabelValues(intent).Inc()
}

// AdvisoryCount exposes the advisory counter for tests.
func AdvisoryCount(outcome string) prometheus.Counter {
	return advisoryCounter.WithLabelValues(outcome)
}

// ChatIntentCount exposes the intent counter for tests.
func ChatIntentCount(intent string) prometheus.Counter {
	return chatIntentCounter.WithLabelValues(intent)
}
