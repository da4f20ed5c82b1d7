package checkout_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickolasKemp/ordify/internal/checkout"
	"github.com/NickolasKemp/ordify/internal/checkout/flowlog"
)

type recordingStep struct {
	name    string
	failOn  bool
	history *[]string
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Execute(context.Context) error {
	*s.history = append(*s.history, "execute:"+s.name)
	if s.failOn {
		return errors.New(s.name + " exploded")
	}
	return nil
}

func (s *recordingStep) Compensate(context.Context) error {
	*s.history = append(*s.history, "compensate:"+s.name)
	return nil
}

type memoryFlowLog struct {
	entries []flowlog.Entry
}

func (m *memoryFlowLog) Save(_ context.Context, entry *flowlog.Entry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryFlowLog) statuses() []flowlog.Status {
	out := make([]flowlog.Status, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Status
	}
	return out
}

func TestOrchestratorHappyPath(t *testing.T) {
	var history []string
	steps := []checkout.Step{
		&recordingStep{name: "first", history: &history},
		&recordingStep{name: "second", history: &history},
	}
	repo := &memoryFlowLog{}

	o := checkout.NewOrchestrator("flow-1", steps, repo, slog.Default())
	require.NoError(t, o.Start(context.Background(), `{"test":true}`))

	assert.Equal(t, []string{"execute:first", "execute:second"}, history)
	assert.Equal(t, []flowlog.Status{
		flowlog.StatusStarted,
		flowlog.StatusStepDone,
		flowlog.StatusStepDone,
		flowlog.StatusCompleted,
	}, repo.statuses())
	assert.Equal(t, `{"test":true}`, repo.entries[0].Payload)
}

func TestOrchestratorCompensatesInReverseOrder(t *testing.T) {
	var history []string
	steps := []checkout.Step{
		&recordingStep{name: "first", history: &history},
		&recordingStep{name: "second", history: &history},
		&recordingStep{name: "third", failOn: true, history: &history},
	}
	repo := &memoryFlowLog{}

	o := checkout.NewOrchestrator("flow-2", steps, repo, slog.Default())
	err := o.Start(context.Background(), "{}")
	require.Error(t, err)

	assert.Equal(t, []string{
		"execute:first",
		"execute:second",
		"execute:third",
		"compensate:second",
		"compensate:first",
	}, history)

	statuses := repo.statuses()
	assert.Contains(t, statuses, flowlog.StatusCompensating)
	assert.Equal(t, flowlog.StatusFailed, statuses[len(statuses)-1])

	last := repo.entries[len(repo.entries)-1]
	assert.Contains(t, last.ErrorMessages, "third exploded")
}

func TestOrchestratorNilRepository(t *testing.T) {
	var history []string
	steps := []checkout.Step{&recordingStep{name: "only", history: &history}}

	o := checkout.NewOrchestrator("flow-3", steps, nil, slog.Default())
	require.NoError(t, o.Start(context.Background(), ""))
	assert.Equal(t, []string{"execute:only"}, history)
}
