package outbox

import "github.com/Roan1982/saraianew/internal/events"

const activityBatchRecordedSchema = `{
  "type": "object",
  "title": "ActivityBatchRecorded",
  "properties": {
    "batch_id": {"type": "string"},
    "user_id": {"type": "integer"},
    "machine_id": {"type": "string"},
    "sample_count": {"type": "integer", "minimum": 1},
    "categories": {"type": "object", "additionalProperties": {"type": "integer"}},
    "first_at": {"type": "string", "format": "date-time"},
    "last_at": {"type": "string", "format": "date-time"}
  },
  "required": ["batch_id", "user_id", "machine_id", "sample_count", "categories", "first_at", "last_at"],
  "additionalProperties": false
}`

const advisoryEmittedSchema = `{
  "type": "object",
  "title": "AdvisoryEmitted",
  "properties": {
    "advisory_id": {"type": "string"},
    "user_id": {"type": "integer"},
    "category": {"type": "string"},
    "text": {"type": "string"},
    "tags": {"type": "object", "additionalProperties": {"type": "integer"}},
    "emitted_at": {"type": "string", "format": "date-time"}
  },
  "required": ["advisory_id", "user_id", "category", "text", "emitted_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps an event type to its JSON schema.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeActivityBatchRecorded: {Schema: activityBatchRecordedSchema},
	events.TypeAdvisoryEmitted:       {Schema: advisoryEmittedSchema},
}
