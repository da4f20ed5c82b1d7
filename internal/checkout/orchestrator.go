package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NickolasKemp/ordify/internal/checkout/flowlog"
)

// Step is a single unit of work in an order placement. Each step must
// have a compensating action to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator runs placement steps sequentially. If a step fails, it
// compensates all previously successful steps in LIFO order. Every
// transition is appended to the flow log.
type Orchestrator struct {
	flowID string
	steps  []Step
	repo   flowlog.Repository // nil-safe: logging skipped if nil
	log    *slog.Logger
}

func NewOrchestrator(flowID string, steps []Step, repo flowlog.Repository, log *slog.Logger) *Orchestrator {
	return &Orchestrator{flowID: flowID, steps: steps, repo: repo, log: log}
}

// Start executes the steps. payload is the JSON-serialised input recorded
// with the STARTED event so a failed placement can be replayed from the log.
func (o *Orchestrator) Start(ctx context.Context, payload string) error {
	o.record(ctx, flowlog.StatusStarted, "", payload, nil)

	var completed []Step
	for _, step := range o.steps {
		o.log.InfoContext(ctx, "executing placement step", "flow_id", o.flowID, "step", step.Name())

		if err := step.Execute(ctx); err != nil {
			o.log.ErrorContext(ctx, "placement step failed, rolling back",
				"flow_id", o.flowID, "step", step.Name(), "error", err)

			errs := []string{fmt.Sprintf("%s: %v", step.Name(), err)}
			o.record(ctx, flowlog.StatusCompensating, step.Name(), "", errs)
			errs = append(errs, o.rollback(ctx, completed)...)
			o.record(ctx, flowlog.StatusFailed, step.Name(), "", errs)
			return err
		}

		completed = append(completed, step)
		o.record(ctx, flowlog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, flowlog.StatusCompleted, "", "", nil)
	return nil
}

// rollback compensates completed steps in reverse order, collecting any
// compensation failures for the FAILED log entry.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		o.log.InfoContext(ctx, "compensating placement step", "flow_id", o.flowID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			o.log.ErrorContext(ctx, "CRITICAL: failed to compensate placement step",
				"flow_id", o.flowID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s: %v", step.Name(), err))
		}
	}
	return errs
}

func (o *Orchestrator) record(ctx context.Context, status flowlog.Status, step, payload string, errs []string) {
	if o.repo == nil {
		return
	}
	entry := flowlog.NewEntry(ctx, o.flowID, status, step, payload, errs)
	if err := o.repo.Save(ctx, entry); err != nil {
		o.log.ErrorContext(ctx, "failed to persist flow log entry",
			"flow_id", o.flowID, "status", status, "error", err)
	}
}
