//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Roan1982/saraianew/internal/domain"
	"github.com/Roan1982/saraianew/internal/events"
	"github.com/Roan1982/saraianew/internal/persistence/postgres"
	"github.com/Roan1982/saraianew/internal/testsupport"
)

func TestDispatcherPublishesIngestedBatch(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	userID := seedBatch(t, ctx, pool, 3)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5, nil)

	before := testutil.ToFloat64(RelayedCount(relayDelivered, events.TypeActivityBatchRecorded))
	n, err := dispatcher.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.InDelta(t, before+1, testutil.ToFloat64(RelayedCount(relayDelivered, events.TypeActivityBatchRecorded)), 0.0001)

	require.Len(t, producer.writes, 1)
	write := producer.writes[0]
	require.Equal(t, "activity_events", write.topic)
	require.Len(t, write.messages, 1)

	record := write.messages[0]
	require.Equal(t, []byte(formatID(userID)), record.Key)
	require.Contains(t, record.Headers, kafka.Header{Key: HeaderEventType, Value: []byte(events.TypeActivityBatchRecorded)})
	require.Contains(t, record.Headers, kafka.Header{Key: HeaderUserID, Value: []byte(formatID(userID))})

	schemaID, payload, err := DecodeWireFormat(record.Value)
	require.NoError(t, err)
	require.Equal(t, 42, schemaID)

	var evt events.ActivityBatchRecorded
	require.NoError(t, json.Unmarshal(payload, &evt))
	require.Equal(t, userID, evt.UserID)
	require.Equal(t, 3, evt.SampleCount)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)

	n, err = dispatcher.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDispatcherRoutesFailedBatchToDLQ(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	seedBatch(t, ctx, pool, 1)

	dispatcher := NewDispatcher(pool, &stubProducer{err: errors.New("kafka write failed")}, &stubRegistry{id: 7}, 10*time.Millisecond, 5, nil)

	beforeFailed := testutil.ToFloat64(RelayedCount(relayFailed, events.TypeActivityBatchRecorded))
	beforeDLQ := testutil.ToFloat64(DeadLetterCount("activity_events"))

	_, err := dispatcher.ProcessBatch(ctx)
	require.NoError(t, err)

	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(RelayedCount(relayFailed, events.TypeActivityBatchRecorded)), 0.0001)
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(DeadLetterCount("activity_events")), 0.0001)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq`).Scan(&reason))
	require.Contains(t, reason, "kafka write failed")

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending)
}

func TestDispatcherCachesSchemaIDs(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	seedBatch(t, ctx, pool, 1)
	seedBatch(t, ctx, pool, 2)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 21}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5, nil)

	n, err := dispatcher.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, producer.writes, 1)
	require.Len(t, producer.writes[0].messages, 2)
	require.Len(t, registry.calls, 1)
	require.Equal(t, "activity_events-value", registry.calls[0].subject)
}

func TestDispatcherUnknownEventTypeGoesToDLQ(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)

	var eventID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ('activity', $1, 'activity.unknown', 'activity_events', 'activity_events-value', '1', '{}')
         RETURNING event_id`, uuid.NewString()).Scan(&eventID))

	producer := &stubProducer{}
	registry := &stubRegistry{id: 99}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5, nil)

	_, err := dispatcher.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq WHERE event_id = $1`, eventID).Scan(&reason))
	require.Contains(t, reason, "no schema metadata for event_type=activity.unknown")
}

func TestDLQManagerRequeuesAndQuarantines(t *testing.T) {
	ctx := context.Background()
	pool, _ := testsupport.StartPostgres(ctx, t)
	seedBatch(t, ctx, pool, 2)

	registry := &stubRegistry{id: 5}
	failing := NewDispatcher(pool, &stubProducer{err: errors.New("broker down")}, registry, time.Millisecond, 10, nil)
	_, err := failing.ProcessBatch(ctx)
	require.NoError(t, err)

	manager := NewDLQManager(pool, 2, time.Second, nil)
	requeued, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, requeued)
	require.Zero(t, testutil.ToFloat64(DLQBacklog()))

	producer := &stubProducer{}
	healthy := NewDispatcher(pool, producer, registry, time.Millisecond, 10, nil)
	n, err := healthy.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, producer.writes, 1)

	// An entry that already exhausted its retries is quarantined, not replayed.
	_, err = pool.Exec(ctx,
		`INSERT INTO outbox_dlq (event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count, next_retry_at)
         VALUES (0, $1, 'activity_events', '{}', 'boom', 'activity', 'x', 'activity_events-value', '1', 2, NOW())`,
		events.TypeActivityBatchRecorded)
	require.NoError(t, err)

	requeued, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, requeued)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantined))
	require.Equal(t, 1, quarantined)
}

func seedBatch(t *testing.T, ctx context.Context, pool *pgxpool.Pool, samples int) int64 {
	t.Helper()
	repo := postgres.NewRepository(pool)
	user, err := repo.UpsertUser(ctx, domain.User{Username: "empleado-" + uuid.NewString()[:8], Role: domain.RoleEmployee})
	require.NoError(t, err)

	ref := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	batch := make([]domain.ActivitySample, 0, samples)
	for i := 0; i < samples; i++ {
		batch = append(batch, domain.ActivitySample{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			MachineID:    "PC-01",
			Timestamp:    ref.Add(time.Duration(i) * 30 * time.Second),
			ActiveWindow: "Excel",
			TopProcesses: []string{"excel.exe"},
			SystemLoad:   map[string]any{},
			Category:     domain.CategoryProductive,
			CreatedAt:    ref,
		})
	}
	require.NoError(t, repo.InsertSamples(ctx, batch))
	return user.ID
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: append([]kafka.Message(nil), msgs...)})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	calls []schemaCall
}

type schemaCall struct {
	subject string
	schema  string
}

func (s *stubRegistry) EnsureSchema(_ context.Context, subject, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, schemaCall{subject: subject, schema: schema})
	return s.id, nil
}
