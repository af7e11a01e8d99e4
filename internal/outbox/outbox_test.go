package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Roan1982/saraianew/internal/events"
)

func TestWireFormatRoundTrip(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{"a":1}`))
	require.Equal(t, []byte{0, 0, 0, 1, 2}, frame[:5])

	id, payload, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 258, id)
	require.JSONEq(t, `{"a":1}`, string(payload))

	_, _, err = DecodeWireFormat([]byte{1, 0})
	require.Error(t, err)
}

func TestMessageHeaders(t *testing.T) {
	msg := Message{EventType: events.TypeAdvisoryEmitted, SchemaSubject: "advisory_events-value", PartitionKey: "17"}
	require.Equal(t, []kafka.Header{
		{Key: HeaderEventType, Value: []byte(events.TypeAdvisoryEmitted)},
		{Key: HeaderSchemaSubject, Value: []byte("advisory_events-value")},
		{Key: HeaderUserID, Value: []byte("17")},
	}, msg.headers())

	msg.PartitionKey = "not-a-user"
	require.Len(t, msg.headers(), 2)
}

func TestSchemaCatalogCoversPublishedEvents(t *testing.T) {
	for _, eventType := range []string{events.TypeActivityBatchRecorded, events.TypeAdvisoryEmitted} {
		entry, ok := schemaCatalog[eventType]
		require.True(t, ok, eventType)
		require.True(t, json.Valid([]byte(entry.Schema)), eventType)
	}
}

func TestBackoffDelay(t *testing.T) {
	m := NewDLQManager(nil, 0, 0, nil)
	require.Equal(t, defaultMaxRetries, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(8))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestSchemaRegistryRegistersUnknownSubject(t *testing.T) {
	var registered bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/advisory_events-value/versions/latest":
			if !registered {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"id": 11}`))
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/advisory_events-value/versions":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "JSON", body["schemaType"])
			registered = true
			_, _ = w.Write([]byte(`{"id": 11}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	id, err := client.EnsureSchema(context.Background(), "advisory_events-value", advisoryEmittedSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
	require.True(t, registered)

	id, err = client.EnsureSchema(context.Background(), "advisory_events-value", advisoryEmittedSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", activityBatchRecordedSchema)
	require.ErrorContains(t, err, "502")
}

func TestRelayMetricsCountPerEventType(t *testing.T) {
	batch := []Message{
		{Topic: "activity_events", EventType: events.TypeActivityBatchRecorded},
		{Topic: "activity_events", EventType: events.TypeActivityBatchRecorded},
		{Topic: "advisory_events", EventType: events.TypeAdvisoryEmitted},
	}
	activity := testutil.ToFloat64(RelayedCount(relayFailed, events.TypeActivityBatchRecorded))
	advisory := testutil.ToFloat64(RelayedCount(relayFailed, events.TypeAdvisoryEmitted))
	dead := testutil.ToFloat64(DeadLetterCount("advisory_events"))

	recordRelay(relayFailed, batch)
	recordDeadLetter(batch[2])

	require.Equal(t, activity+2, testutil.ToFloat64(RelayedCount(relayFailed, events.TypeActivityBatchRecorded)))
	require.Equal(t, advisory+1, testutil.ToFloat64(RelayedCount(relayFailed, events.TypeAdvisoryEmitted)))
	require.Equal(t, dead+1, testutil.ToFloat64(DeadLetterCount("advisory_events")))
}
