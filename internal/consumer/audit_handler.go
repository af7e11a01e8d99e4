package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditHandler appends every consumed event to telemetry_event_log. Redelivered
// records are ignored through the (topic, partition, offset) key.
type AuditHandler struct {
	pool *pgxpool.Pool
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(pool *pgxpool.Pool) *AuditHandler {
	return &AuditHandler{pool: pool}
}

// Handle stores msg.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	var (
		userID   *int64
		received *time.Time
	)
	if msg.UserID != 0 {
		userID = &msg.UserID
	}
	if !msg.Timestamp.IsZero() {
		ts := msg.Timestamp.UTC()
		received = &ts
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO telemetry_event_log (event_type, user_id, topic, kafka_partition, kafka_offset, schema_id, schema_subject, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8, COALESCE($9, NOW()))
         ON CONFLICT (topic, kafka_partition, kafka_offset) DO NOTHING`,
		msg.EventType, userID, msg.Topic, msg.Partition, msg.Offset, msg.SchemaID, msg.SchemaSubject, msg.Payload, received)
	return err
}
