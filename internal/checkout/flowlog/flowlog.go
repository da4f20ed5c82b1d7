// Package flowlog defines the durable audit trail of the checkout
// workflow. Every state transition of an order placement is appended as an
// immutable event, so an operator can see exactly where a placement is (or
// was) and correlate it with a distributed trace via the trace_id field.
package flowlog

import "time"

// Status represents the lifecycle state of one workflow execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Entry is a point-in-time snapshot of a workflow execution.
type Entry struct {
	// FlowID identifies the placement; it is generated up front so failed
	// placements are traceable even when no order was created.
	FlowID string

	Status Status

	// CurrentStep is the name of the step that was just executed or failed.
	CurrentStep string

	// Payload is the JSON-serialised input that started the flow.
	// Written once on STARTED.
	Payload string

	// ErrorMessages accumulates failure details as a JSON array.
	ErrorMessages string

	// TraceID/SpanID tie the entry to the OpenTelemetry trace that was
	// active when it was written. Empty outside instrumented requests.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
