package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NickolasKemp/ordify/internal/checkout/flowlog"
)

// SaveFlowLog appends a checkout workflow transition. Safe to call
// concurrently.
func (s *Store) SaveFlowLog(ctx context.Context, entry *flowlog.Entry) error {
	const q = `
		INSERT INTO checkout_logs
			(flow_id, status, current_step, payload, error_messages, trace_id, span_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		entry.FlowID,
		string(entry.Status),
		entry.CurrentStep,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save flow log for %q: %w", entry.FlowID, err)
	}
	return nil
}

// ListFlowLogs returns all events for one flow in chronological order.
func (s *Store) ListFlowLogs(ctx context.Context, flowID string) ([]flowlog.Entry, error) {
	const q = `
		SELECT flow_id, status, current_step, COALESCE(payload, ''), error_messages,
		       trace_id, span_id, updated_at
		FROM checkout_logs WHERE flow_id = ? ORDER BY updated_at, id`

	rows, err := s.db.QueryContext(ctx, q, flowID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list flow logs for %q: %w", flowID, err)
	}
	defer rows.Close()

	entries := make([]flowlog.Entry, 0)
	for rows.Next() {
		var e flowlog.Entry
		var status, updatedAt string
		if err := rows.Scan(&e.FlowID, &status, &e.CurrentStep, &e.Payload,
			&e.ErrorMessages, &e.TraceID, &e.SpanID, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan flow log: %w", err)
		}
		e.Status = flowlog.Status(status)
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FlowLogs adapts the store to the flowlog.Repository port.
func (s *Store) FlowLogs() flowlog.Repository {
	return flowLogRepo{store: s}
}

type flowLogRepo struct {
	store *Store
}

func (r flowLogRepo) Save(ctx context.Context, entry *flowlog.Entry) error {
	return r.store.SaveFlowLog(ctx, entry)
}

func nullableString(s string) any {
	if s == "" {
		return sql.NullString{}
	}
	return s
}
