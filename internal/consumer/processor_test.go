package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Roan1982/saraianew/internal/events"
	"github.com/Roan1982/saraianew/internal/outbox"
)

func frame(schemaID int, payload string) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)
	return value
}

func advisoryRecord(offset int64, headers ...kafka.Header) kafka.Message {
	return kafka.Message{
		Topic:   "advisory_events",
		Offset:  offset,
		Time:    time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC),
		Value:   frame(42, `{"advisory_id":"a1","user_id":7}`),
		Headers: headers,
	}
}

var defaultHeaders = []kafka.Header{
	{Key: outbox.HeaderEventType, Value: []byte(events.TypeAdvisoryEmitted)},
	{Key: outbox.HeaderSchemaSubject, Value: []byte("advisory_events-value")},
	{Key: outbox.HeaderUserID, Value: []byte("7")},
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{advisoryRecord(10, defaultHeaders...)}}
	handler := &stubHandler{}

	before := testutil.ToFloat64(ProcessedCount("advisory_events", events.TypeAdvisoryEmitted))
	err := NewProcessor(reader, handler, WithLogger(zaptest.NewLogger(t))).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.TypeAdvisoryEmitted, handler.last.EventType)
	require.Equal(t, int64(7), handler.last.UserID)
	require.Equal(t, "advisory_events-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, `{"advisory_id":"a1","user_id":7}`, string(handler.last.Payload))
	require.Equal(t, before+1, testutil.ToFloat64(ProcessedCount("advisory_events", events.TypeAdvisoryEmitted)))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{advisoryRecord(20, defaultHeaders...)}}
	handler := &stubHandler{err: errors.New("boom")}

	err := NewProcessor(reader, handler, WithLogger(zaptest.NewLogger(t))).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
	require.Zero(t, reader.commitCalls)
}

func TestProcessorCommitsUndecodableRecords(t *testing.T) {
	short := kafka.Message{Topic: "activity_events", Value: []byte{0, 1}}
	noType := advisoryRecord(30)
	badUser := advisoryRecord(31,
		kafka.Header{Key: outbox.HeaderEventType, Value: []byte(events.TypeAdvisoryEmitted)},
		kafka.Header{Key: outbox.HeaderUserID, Value: []byte("siete")},
	)
	reader := &stubReader{messages: []kafka.Message{short, noType, badUser}}
	handler := &stubHandler{}

	before := testutil.ToFloat64(DecodeErrorCount("advisory_events"))
	err := NewProcessor(reader, handler).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
	require.Equal(t, before+2, testutil.ToFloat64(DecodeErrorCount("advisory_events")))
}

func TestProcessorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewProcessor(&stubReader{}, HandlerFunc(func(context.Context, Message) error { return nil })).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.commitCalls += len(msgs)
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
