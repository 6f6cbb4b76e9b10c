package log

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldEvent     = "event"

	// Source / stream fields
	FieldSource   = "source"
	FieldURL      = "url"
	FieldHost     = "host"
	FieldStatus   = "status"
	FieldScore    = "score"
	FieldLatency  = "latency_ms"
	FieldAttempt  = "attempt"
	FieldEntries  = "entries"
	FieldChannels = "channels"
	FieldCategory = "category"

	// File fields
	FieldPath = "path"
	FieldLine = "line"
	FieldKey  = "key"
)
