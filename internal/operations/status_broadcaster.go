package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StatusBroadcaster is the single authority for operation status updates.
// It holds the current snapshot of every operation and pushes the full
// snapshot to the hub on each change.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
}

// OperationSnapshot is the complete state of an operation at a point in
// time. It is the only structure sent to connected clients.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"current_step"`
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot is the client-facing state of a single step.
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type updateRequest struct {
	operationID string
	updateFunc  func(*OperationSnapshot)
	done        chan struct{}
}

// NewStatusBroadcaster creates a broadcaster bound to the given hub. A nil
// hub disables broadcasting but snapshots are still maintained.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger,
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}

	go sb.processUpdates()

	return sb
}

// processUpdates applies all updates on one goroutine so snapshot
// mutations stay ordered.
func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	defer sb.mu.Unlock()

	snapshot, exists := sb.operations[req.operationID]
	if !exists {
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      string(OperationStatusPending),
			StartedAt:   time.Now(),
			UpdatedAt:   time.Now(),
			Steps:       []StepSnapshot{},
		}
		sb.operations[req.operationID] = snapshot
	}

	req.updateFunc(snapshot)
	snapshot.UpdatedAt = time.Now()

	// Overall progress is the mean of the step progresses.
	if len(snapshot.Steps) > 0 {
		total := 0
		for _, step := range snapshot.Steps {
			total += step.Progress
		}
		snapshot.Progress = total / len(snapshot.Steps)
	}

	if isTerminalStatus(snapshot.Status) && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	sb.broadcast(snapshot)
}

func isTerminalStatus(status string) bool {
	switch OperationStatus(status) {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}

func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting operation snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep))

	sb.hub.BroadcastUpdate(EventTypeOperationSnapshot, snapshot.OperationID, "update", snapshot)
}

// UpdateStatus applies an update to one operation's snapshot and blocks
// until the update has been broadcast.
func (sb *StatusBroadcaster) UpdateStatus(operationID string, updateFunc func(*OperationSnapshot)) {
	req := updateRequest{
		operationID: operationID,
		updateFunc:  updateFunc,
		done:        make(chan struct{}),
	}

	sb.updates <- req
	<-req.done
}

// CreateOperation initializes a snapshot with the given steps. Step IDs
// are used as snapshot IDs so later progress updates match by Step.ID().
func (sb *StatusBroadcaster) CreateOperation(operationID string, stepIDs []string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusPending)
		snapshot.Progress = 0
		snapshot.Steps = make([]StepSnapshot, len(stepIDs))
		for i, id := range stepIDs {
			snapshot.Steps[i] = StepSnapshot{
				ID:     id,
				Name:   id,
				Status: string(StepStatusPending),
			}
		}
		snapshot.Message = "Operation created"
	})
}

// StartOperation marks an operation as running.
func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusRunning)
		snapshot.Message = "Operation started"
	})
}

// UpdateStepProgress updates a step's progress and message.
func (sb *StatusBroadcaster) UpdateStepProgress(operationID, stepID string, progress int, message string) {
	sb.UpdateStepWithMetadata(operationID, stepID, progress, message, nil)
}

// UpdateStepWithMetadata updates a step's progress, message and metadata.
// Unknown step IDs are appended so progress never stalls on a mismatch.
func (sb *StatusBroadcaster) UpdateStepWithMetadata(operationID, stepID string, progress int, message string, metadata map[string]interface{}) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID != stepID {
				continue
			}
			// Step progress is monotonic while active; late lower values
			// keep the higher progress already observed.
			if progress >= snapshot.Steps[i].Progress || snapshot.Steps[i].Status != string(StepStatusActive) {
				snapshot.Steps[i].Progress = min(max(progress, 0), 100)
			}
			snapshot.Steps[i].Message = message
			if metadata != nil {
				snapshot.Steps[i].Metadata = metadata
			}
			if progress > 0 && progress < 100 {
				snapshot.Steps[i].Status = string(StepStatusActive)
				snapshot.CurrentStep = snapshot.Steps[i].Name
			} else if progress >= 100 {
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
			}
			return
		}

		step := StepSnapshot{
			ID:       stepID,
			Name:     stepID,
			Status:   string(StepStatusActive),
			Progress: min(max(progress, 0), 100),
			Message:  message,
			Metadata: metadata,
		}
		if progress >= 100 {
			step.Status = string(StepStatusCompleted)
		} else if progress > 0 {
			snapshot.CurrentStep = stepID
		}
		snapshot.Steps = append(snapshot.Steps, step)
	})
}

// CompleteStep marks a step as completed.
func (sb *StatusBroadcaster) CompleteStep(operationID, stepID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
				snapshot.Steps[i].Message = message
				break
			}
		}
	})
}

// FailStep marks a step as failed.
func (sb *StatusBroadcaster) FailStep(operationID, stepID string, err error) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusFailed)
				snapshot.Steps[i].Error = err.Error()
				break
			}
		}
	})
}

// CompleteOperation marks an operation and any unfinished steps as
// completed.
func (sb *StatusBroadcaster) CompleteOperation(operationID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusCompleted)
		snapshot.Progress = 100
		snapshot.CurrentStep = ""
		snapshot.Message = message
		for i := range snapshot.Steps {
			if snapshot.Steps[i].Status == string(StepStatusActive) || snapshot.Steps[i].Status == string(StepStatusPending) {
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
			}
		}
	})
}

// FailOperation marks an operation as failed.
func (sb *StatusBroadcaster) FailOperation(operationID string, err error) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusFailed)
		snapshot.Error = err.Error()
		snapshot.CurrentStep = ""
	})
}

// CancelOperation marks an operation as cancelled.
func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusCancelled)
		snapshot.CurrentStep = ""
		snapshot.Message = "Operation cancelled by user"
	})
}

// GetSnapshot returns a copy of the current snapshot for an operation.
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}
	return copySnapshot(snapshot), true
}

// GetAllSnapshots returns copies of every tracked operation snapshot.
func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshots := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snapshot := range sb.operations {
		snapshots = append(snapshots, copySnapshot(snapshot))
	}
	return snapshots
}

func copySnapshot(snapshot *OperationSnapshot) *OperationSnapshot {
	out := *snapshot
	out.Steps = make([]StepSnapshot, len(snapshot.Steps))
	copy(out.Steps, snapshot.Steps)
	return &out
}

// CleanupOldOperations drops terminal operations older than maxAge.
func (sb *StatusBroadcaster) CleanupOldOperations(ctx context.Context, maxAge time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := time.Now()
	for id, snapshot := range sb.operations {
		if !isTerminalStatus(snapshot.Status) {
			continue
		}
		if snapshot.CompletedAt != nil && now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			sb.logger.Info("cleaned up old operation",
				slog.String("operation_id", id),
				slog.String("status", snapshot.Status))
		}
	}
}

// Stop shuts down the update processor.
func (sb *StatusBroadcaster) Stop() {
	close(sb.stop)
}
