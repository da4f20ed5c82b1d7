package flowlog

import "context"

// Repository is the port for persisting flow log entries. The workflow
// depends on this abstraction, not on SQLite directly, so tests can swap
// in an in-memory recorder.
type Repository interface {
	// Save appends a new log entry; the log is append-only, never upserted.
	Save(ctx context.Context, entry *Entry) error
}
