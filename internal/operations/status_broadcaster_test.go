package operations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbacli/internal/shared/testutil"
)

func newTestBroadcaster(t *testing.T, hub WebSocketHub) *StatusBroadcaster {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	sb := NewStatusBroadcaster(hub, logger)
	t.Cleanup(sb.Stop)
	return sb
}

func TestBroadcasterCreateOperation(t *testing.T) {
	sb := newTestBroadcaster(t, nil)

	sb.CreateOperation("op-1", []string{StepIDClean, StepIDRoster})

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusPending), snap.Status)
	assert.Zero(t, snap.Progress)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, StepIDClean, snap.Steps[0].ID)
	assert.Equal(t, string(StepStatusPending), snap.Steps[0].Status)
}

func TestBroadcasterStepProgress(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean, StepIDRoster})
	sb.StartOperation("op-1")

	sb.UpdateStepProgress("op-1", StepIDClean, 50, "cleaning domains")

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusRunning), snap.Status)
	assert.Equal(t, string(StepStatusActive), snap.Steps[0].Status)
	assert.Equal(t, 50, snap.Steps[0].Progress)
	assert.Equal(t, "cleaning domains", snap.Steps[0].Message)
	assert.Equal(t, StepIDClean, snap.CurrentStep)
	assert.Equal(t, 25, snap.Progress, "overall progress is the mean of step progresses")

	sb.UpdateStepProgress("op-1", StepIDClean, 100, "done")
	snap, _ = sb.GetSnapshot("op-1")
	assert.Equal(t, string(StepStatusCompleted), snap.Steps[0].Status)
	assert.Equal(t, 100, snap.Steps[0].Progress)
}

func TestBroadcasterProgressIsMonotonicWhileActive(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean})

	sb.UpdateStepProgress("op-1", StepIDClean, 60, "ahead")
	sb.UpdateStepProgress("op-1", StepIDClean, 30, "late update")

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, 60, snap.Steps[0].Progress, "late lower values never wind progress back")
	assert.Equal(t, "late update", snap.Steps[0].Message)
}

func TestBroadcasterUnknownStepIsAppended(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean})

	sb.UpdateStepProgress("op-1", "surprise", 10, "unexpected step")

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	require.Len(t, snap.Steps, 2)
	assert.Equal(t, "surprise", snap.Steps[1].ID)
	assert.Equal(t, string(StepStatusActive), snap.Steps[1].Status)
}

func TestBroadcasterCompleteAndFailStep(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean, StepIDRoster})

	sb.CompleteStep("op-1", StepIDClean, "clean finished")
	sb.FailStep("op-1", StepIDRoster, errors.New("roster source missing"))

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, string(StepStatusCompleted), snap.Steps[0].Status)
	assert.Equal(t, 100, snap.Steps[0].Progress)
	assert.Equal(t, string(StepStatusFailed), snap.Steps[1].Status)
	assert.Equal(t, "roster source missing", snap.Steps[1].Error)
}

func TestBroadcasterCompleteOperationFinishesSteps(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean, StepIDRoster})
	sb.UpdateStepProgress("op-1", StepIDClean, 40, "halfway")

	sb.CompleteOperation("op-1", "all done")

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusCompleted), snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.Empty(t, snap.CurrentStep)
	require.NotNil(t, snap.CompletedAt)
	for _, step := range snap.Steps {
		assert.Equal(t, string(StepStatusCompleted), step.Status)
		assert.Equal(t, 100, step.Progress)
	}
}

func TestBroadcasterFailAndCancelOperation(t *testing.T) {
	sb := newTestBroadcaster(t, nil)

	sb.CreateOperation("op-fail", []string{StepIDClean})
	sb.FailOperation("op-fail", errors.New("clean failed"))
	snap, ok := sb.GetSnapshot("op-fail")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusFailed), snap.Status)
	assert.Equal(t, "clean failed", snap.Error)
	require.NotNil(t, snap.CompletedAt)

	sb.CreateOperation("op-cancel", []string{StepIDClean})
	sb.CancelOperation("op-cancel")
	snap, ok = sb.GetSnapshot("op-cancel")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusCancelled), snap.Status)
}

func TestBroadcasterSnapshotIsolation(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean})

	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	snap.Steps[0].Status = "mutated"

	fresh, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, string(StepStatusPending), fresh.Steps[0].Status, "snapshot copies shield internal state")
}

func TestBroadcasterGetAllSnapshots(t *testing.T) {
	sb := newTestBroadcaster(t, nil)
	sb.CreateOperation("op-1", []string{StepIDClean})
	sb.CreateOperation("op-2", []string{StepIDRoster})

	assert.Len(t, sb.GetAllSnapshots(), 2)

	_, ok := sb.GetSnapshot("op-3")
	assert.False(t, ok)
}

func TestBroadcasterCleanupOldOperations(t *testing.T) {
	sb := newTestBroadcaster(t, nil)

	sb.CreateOperation("op-done", []string{StepIDClean})
	sb.CompleteOperation("op-done", "finished")
	sb.CreateOperation("op-live", []string{StepIDClean})
	sb.StartOperation("op-live")

	time.Sleep(5 * time.Millisecond)
	sb.CleanupOldOperations(context.Background(), time.Millisecond)

	_, ok := sb.GetSnapshot("op-done")
	assert.False(t, ok, "terminal operations older than the cutoff are dropped")
	_, ok = sb.GetSnapshot("op-live")
	assert.True(t, ok, "running operations are never dropped")
}

func TestBroadcasterPushesToHub(t *testing.T) {
	hub := &fakeHub{}
	sb := newTestBroadcaster(t, hub)

	sb.CreateOperation("op-1", []string{StepIDClean})
	sb.CompleteOperation("op-1", "finished")

	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.NotEmpty(t, hub.events)
	for _, e := range hub.events {
		assert.Equal(t, EventTypeOperationSnapshot, e.eventType)
		assert.Equal(t, "op-1", e.step)
		assert.Equal(t, "update", e.status)
	}
}
