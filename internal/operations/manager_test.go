package operations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStep is a configurable Step for exercising the manager and queue.
type fakeStep struct {
	BaseStep
	mu       sync.Mutex
	runs     int
	execute  func(ctx context.Context, state *OperationState) error
	validate func(state *OperationState) error
}

func newFakeStep(id string, deps ...string) *fakeStep {
	return &fakeStep{BaseStep: NewBaseStep(id, id, deps)}
}

func (s *fakeStep) Execute(ctx context.Context, state *OperationState) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	if s.execute != nil {
		return s.execute(ctx, state)
	}
	return nil
}

func (s *fakeStep) Validate(state *OperationState) error {
	if s.validate != nil {
		return s.validate(state)
	}
	return nil
}

func (s *fakeStep) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

type hubEvent struct {
	eventType string
	step      string
	status    string
	metadata  interface{}
}

// fakeHub records every broadcast for assertion.
type fakeHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *fakeHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{eventType, step, status, metadata})
}

func (h *fakeHub) snapshots() []*OperationSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*OperationSnapshot
	for _, e := range h.events {
		if snap, ok := e.metadata.(*OperationSnapshot); ok {
			out = append(out, snap)
		}
	}
	return out
}

// fastRetryConfig keeps retry tests quick.
func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newTestManager(t *testing.T, hub WebSocketHub, config *Config) *Manager {
	t.Helper()
	m := NewManager(hub, NewRegistry(), config)
	t.Cleanup(m.GetBroadcaster().Stop)
	return m
}

func TestManagerExecuteFullPipeline(t *testing.T) {
	m := newTestManager(t, nil, nil)

	var mu sync.Mutex
	var order []string
	record := func(id string) func(context.Context, *OperationState) error {
		return func(context.Context, *OperationState) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, id)
			return nil
		}
	}

	// Registered out of dependency order on purpose.
	importStep := newFakeStep(StepIDImport, StepIDRoster)
	importStep.execute = record(StepIDImport)
	rosterStep := newFakeStep(StepIDRoster, StepIDClean)
	rosterStep.execute = record(StepIDRoster)
	cleanStep := newFakeStep(StepIDClean)
	cleanStep.execute = record(StepIDClean)

	require.NoError(t, m.RegisterStep(importStep))
	require.NoError(t, m.RegisterStep(rosterStep))
	require.NoError(t, m.RegisterStep(cleanStep))

	resp, err := m.Execute(context.Background(), OperationRequest{Domain: "player_boxscores", Season: "2024-25"})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, []string{StepIDClean, StepIDRoster, StepIDImport}, order)
	require.Len(t, resp.Steps, 3)
	for id, step := range resp.Steps {
		assert.Equal(t, StepStatusCompleted, step.GetStatus(), "step %s", id)
	}
}

func TestManagerExecuteSeedsConfig(t *testing.T) {
	m := newTestManager(t, nil, nil)

	step := newFakeStep(StepIDClean)
	var gotDomain, gotSeason interface{}
	var gotForce interface{}
	step.execute = func(_ context.Context, state *OperationState) error {
		gotDomain, _ = state.GetConfig(ContextKeyDomain)
		gotSeason, _ = state.GetConfig(ContextKeySeason)
		gotForce, _ = state.GetConfig(ContextKeyForce)
		return nil
	}
	require.NoError(t, m.RegisterStep(step))

	_, err := m.Execute(context.Background(), OperationRequest{
		Domain: "adv_boxscores",
		Season: "2023-24",
		Force:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "adv_boxscores", gotDomain)
	assert.Equal(t, "2023-24", gotSeason)
	assert.Equal(t, true, gotForce)
}

func TestManagerExecuteSingleStep(t *testing.T) {
	m := newTestManager(t, nil, nil)

	cleanStep := newFakeStep(StepIDClean)
	rosterStep := newFakeStep(StepIDRoster)
	require.NoError(t, m.RegisterStep(cleanStep))
	require.NoError(t, m.RegisterStep(rosterStep))

	resp, err := m.Execute(context.Background(), OperationRequest{
		Parameters: map[string]interface{}{"step": StepIDRoster},
	})
	require.NoError(t, err)

	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, 1, rosterStep.Runs())
	assert.Zero(t, cleanStep.Runs())
	assert.Len(t, resp.Steps, 1)
}

func TestManagerExecuteUnknownStep(t *testing.T) {
	m := newTestManager(t, nil, nil)
	require.NoError(t, m.RegisterStep(newFakeStep(StepIDClean)))

	resp, err := m.Execute(context.Background(), OperationRequest{
		Parameters: map[string]interface{}{"step": "bogus"},
	})
	require.Error(t, err)
	assert.Equal(t, OperationStatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "not found")
}

func TestManagerRetriesRetryableFailures(t *testing.T) {
	config := NewConfigBuilder().WithRetryConfig(fastRetryConfig()).Build()
	m := newTestManager(t, nil, config)

	step := newFakeStep(StepIDClean)
	fails := 2
	step.execute = func(context.Context, *OperationState) error {
		if step.Runs() <= fails {
			return NewExecutionError(StepIDClean, errors.New("transient read failure"), true)
		}
		return nil
	}
	require.NoError(t, m.RegisterStep(step))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, 3, step.Runs())
}

func TestManagerDoesNotRetryPlainErrors(t *testing.T) {
	config := NewConfigBuilder().WithRetryConfig(fastRetryConfig()).Build()
	m := newTestManager(t, nil, config)

	step := newFakeStep(StepIDClean)
	step.execute = func(context.Context, *OperationState) error {
		return errors.New("bad input")
	}
	require.NoError(t, m.RegisterStep(step))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, step.Runs(), "plain errors are not retryable")
	assert.Equal(t, OperationStatusFailed, resp.Status)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrorTypeExecution, opErr.Type)
	assert.Equal(t, StepIDClean, opErr.Step)
}

func TestManagerRetryExhaustion(t *testing.T) {
	config := NewConfigBuilder().WithRetryConfig(fastRetryConfig()).Build()
	m := newTestManager(t, nil, config)

	step := newFakeStep(StepIDClean)
	step.execute = func(context.Context, *OperationState) error {
		return NewExecutionError(StepIDClean, errors.New("still failing"), true)
	}
	require.NoError(t, m.RegisterStep(step))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, step.Runs())
	assert.Equal(t, OperationStatusFailed, resp.Status)
}

func TestManagerSkipsDependentsOnFailure(t *testing.T) {
	m := newTestManager(t, nil, nil)

	cleanStep := newFakeStep(StepIDClean)
	cleanStep.execute = func(context.Context, *OperationState) error {
		return errors.New("raw tree unreadable")
	}
	rosterStep := newFakeStep(StepIDRoster, StepIDClean)
	importStep := newFakeStep(StepIDImport, StepIDRoster)

	require.NoError(t, m.RegisterStep(cleanStep))
	require.NoError(t, m.RegisterStep(rosterStep))
	require.NoError(t, m.RegisterStep(importStep))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)

	assert.Equal(t, StepStatusFailed, resp.Steps[StepIDClean].GetStatus())
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDRoster].GetStatus())
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDImport].GetStatus(), "transitive dependents skip too")
	assert.Zero(t, rosterStep.Runs())
	assert.Zero(t, importStep.Runs())
}

func TestManagerContinueOnError(t *testing.T) {
	config := NewConfigBuilder().WithContinueOnError(true).Build()
	m := newTestManager(t, nil, config)

	cleanStep := newFakeStep(StepIDClean)
	cleanStep.execute = func(context.Context, *OperationState) error {
		return errors.New("raw tree unreadable")
	}
	rosterStep := newFakeStep(StepIDRoster)

	require.NoError(t, m.RegisterStep(cleanStep))
	require.NoError(t, m.RegisterStep(rosterStep))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.NoError(t, err, "independent steps still run after a failure")

	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, StepStatusFailed, resp.Steps[StepIDClean].GetStatus())
	assert.Equal(t, StepStatusCompleted, resp.Steps[StepIDRoster].GetStatus())
	assert.Equal(t, 1, rosterStep.Runs())
}

func TestManagerValidationFailureSkipsStep(t *testing.T) {
	m := newTestManager(t, nil, nil)

	step := newFakeStep(StepIDClean)
	step.validate = func(*OperationState) error {
		return errors.New("no raw files staged")
	}
	require.NoError(t, m.RegisterStep(step))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrorTypeValidation, opErr.Type)
	assert.Zero(t, step.Runs(), "failed validation never executes")
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDClean].GetStatus())
}

func TestManagerCancelledContext(t *testing.T) {
	m := newTestManager(t, nil, nil)
	step := newFakeStep(StepIDClean)
	require.NoError(t, m.RegisterStep(step))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := m.Execute(ctx, OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.Equal(t, OperationStatusFailed, resp.Status)
	assert.Zero(t, step.Runs())
}

func TestManagerStepTimeout(t *testing.T) {
	config := NewConfigBuilder().
		WithStepTimeout(StepIDClean, 10*time.Millisecond).
		WithRetryConfig(RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}).
		Build()
	m := newTestManager(t, nil, config)

	step := newFakeStep(StepIDClean)
	step.execute = func(ctx context.Context, _ *OperationState) error {
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, m.RegisterStep(step))

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, OperationStatusFailed, resp.Status)
}

func TestManagerTracksRunningOperations(t *testing.T) {
	m := newTestManager(t, nil, nil)

	release := make(chan struct{})
	step := newFakeStep(StepIDClean)
	step.execute = func(ctx context.Context, _ *OperationState) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	require.NoError(t, m.RegisterStep(step))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Execute(context.Background(), OperationRequest{ID: "op-1"})
	}()

	require.Eventually(t, func() bool {
		state, err := m.GetOperation("op-1")
		return err == nil && state.GetStatus() == OperationStatusRunning
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, m.ListOperations(), 1)

	close(release)
	<-done

	_, err := m.GetOperation("op-1")
	assert.Error(t, err, "finished operations are no longer tracked")
	assert.Empty(t, m.ListOperations())
}

func TestManagerCancelOperationNotFound(t *testing.T) {
	m := newTestManager(t, nil, nil)
	assert.Error(t, m.CancelOperation("missing"))
}

func TestManagerBroadcastsSnapshots(t *testing.T) {
	hub := &fakeHub{}
	m := newTestManager(t, hub, nil)
	require.NoError(t, m.RegisterStep(newFakeStep(StepIDClean)))

	_, err := m.Execute(context.Background(), OperationRequest{ID: "op-ws"})
	require.NoError(t, err)

	snaps := hub.snapshots()
	require.NotEmpty(t, snaps)
	for _, snap := range snaps {
		assert.Equal(t, "op-ws", snap.OperationID)
	}
	last := snaps[len(snaps)-1]
	assert.Equal(t, string(OperationStatusCompleted), last.Status)
	assert.Equal(t, 100, last.Progress)
}
