package flowlog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// NewEntry builds an Entry with trace identifiers extracted from the
// active OpenTelemetry span in ctx. Without an active span (unit tests,
// tracing disabled) both identifiers are empty strings.
func NewEntry(ctx context.Context, flowID string, status Status, currentStep, payload string, errs []string) *Entry {
	sc := trace.SpanFromContext(ctx).SpanContext()

	var traceID, spanID string
	if sc.IsValid() {
		traceID = sc.TraceID().String()
		spanID = sc.SpanID().String()
	}

	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}

	return &Entry{
		FlowID:        flowID,
		Status:        status,
		CurrentStep:   currentStep,
		Payload:       payload,
		ErrorMessages: errJSON,
		TraceID:       traceID,
		SpanID:        spanID,
		UpdatedAt:     time.Now().UTC(),
	}
}
