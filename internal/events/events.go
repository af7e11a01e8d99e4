// Package events defines the payloads published through the outbox.
package events

import "time"

const (
	TypeActivityBatchRecorded = "activity.batch_recorded"
	TypeAdvisoryEmitted       = "advisory.emitted"
)

// ActivityBatchRecorded is emitted when a telemetry batch is persisted.
type ActivityBatchRecorded struct {
	BatchID     string         `json:"batch_id"`
	UserID      int64          `json:"user_id"`
	MachineID   string         `json:"machine_id"`
	SampleCount int            `json:"sample_count"`
	Categories  map[string]int `json:"categories"`
	FirstAt     time.Time      `json:"first_at"`
	LastAt      time.Time      `json:"last_at"`
}

// AdvisoryEmitted is emitted when the rule engine persists a proactive advisory.
type AdvisoryEmitted struct {
	AdvisoryID string         `json:"advisory_id"`
	UserID     int64          `json:"user_id"`
	Category   string         `json:"category"`
	Text       string         `json:"text"`
	Tags       map[string]int `json:"tags,omitempty"`
	EmittedAt  time.Time      `json:"emitted_at"`
}
