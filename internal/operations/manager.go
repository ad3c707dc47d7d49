package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager orchestrates step execution for operations: dependency ordering,
// per-step timeouts, retries and status broadcasting.
type Manager struct {
	registry    *Registry
	config      *Config
	hub         WebSocketHub
	broadcaster *StatusBroadcaster

	mu         sync.RWMutex
	operations map[string]*OperationState
}

// NewManager creates an operation manager. Nil registry and config fall
// back to empty defaults.
func NewManager(hub WebSocketHub, registry *Registry, config *Config) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	return &Manager{
		registry:    registry,
		config:      config,
		hub:         hub,
		broadcaster: NewStatusBroadcaster(hub, slog.Default()),
		operations:  make(map[string]*OperationState),
	}
}

// RegisterStep registers a step with the manager's registry.
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// SetConfig replaces the manager configuration.
func (m *Manager) SetConfig(config *Config) {
	if config != nil {
		m.config = config
	}
}

// GetRegistry returns the step registry.
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetBroadcaster returns the status broadcaster.
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// Execute runs an operation. When the request names a single step only
// that step runs; otherwise all registered steps run in dependency order.
// Steps execute sequentially: each consumes the outputs of the previous.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID)

	if req.Domain != "" {
		state.SetConfig(ContextKeyDomain, req.Domain)
	}
	if req.Season != "" {
		state.SetConfig(ContextKeySeason, req.Season)
	}
	if len(req.Seasons) > 0 {
		state.SetConfig(ContextKeySeasons, req.Seasons)
	}
	if req.AllSeasons {
		state.SetConfig(ContextKeyAllSeasons, true)
	}
	if req.Force {
		state.SetConfig(ContextKeyForce, true)
	}
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	m.storeOperation(state)
	defer m.removeOperation(req.ID)

	var steps []Step
	stepParam, hasStep := req.Parameters["step"].(string)

	if hasStep && stepParam != "" && stepParam != "full_pipeline" {
		requested, err := m.registry.Get(stepParam)
		if err != nil {
			m.logOperationError(ctx, req.ID, err)
			state.Fail(err)
			return m.createResponse(state), err
		}
		steps = []Step{requested}

		slog.InfoContext(ctx, "executing_single_step",
			slog.String("step_id", stepParam),
			slog.String("operation_id", req.ID))
	} else {
		var err error
		steps, err = m.registry.GetDependencyOrder()
		if err != nil {
			err = fmt.Errorf("failed to get dependency order: %w", err)
			m.logOperationError(ctx, req.ID, err)
			state.Fail(err)
			return m.createResponse(state), err
		}

		slog.InfoContext(ctx, "executing_full_pipeline",
			slog.Int("step_count", len(steps)),
			slog.String("operation_id", req.ID))
	}

	// Broadcaster snapshots are keyed by step ID so progress updates
	// issued with Step.ID() match.
	stepIDs := make([]string, len(steps))
	for i, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
		stepIDs[i] = step.ID()
	}

	m.broadcaster.CreateOperation(req.ID, stepIDs)

	state.Start()
	m.broadcaster.StartOperation(req.ID)

	err := m.executeSequential(ctx, state, steps)

	if err != nil {
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
	} else {
		state.Complete()
		m.broadcaster.CompleteOperation(req.ID, "Operation completed successfully")
	}

	return m.createResponse(state), err
}

// executeSequential runs steps one by one in the given order.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	slog.InfoContext(ctx, "sequential_execution_start",
		slog.String("operation_id", state.ID),
		slog.Int("step_count", len(steps)))

	for i, step := range steps {
		select {
		case <-ctx.Done():
			slog.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID())
		default:
		}

		stepState := state.GetStep(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusSkipped {
			slog.InfoContext(ctx, "step_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Int("step_number", i+1),
				slog.Int("total_steps", len(steps)))
			continue
		}

		slog.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.logStepError(ctx, state.ID, step.ID(), err)
			if !m.config.ContinueOnError {
				m.skipDependentSteps(state, steps, step.ID())
				return err
			}
			slog.WarnContext(ctx, "step_failed_continuing",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
		}
	}

	slog.InfoContext(ctx, "all_steps_completed",
		slog.String("operation_id", state.ID))
	return nil
}

// executeStep runs a single step with dependency checks, validation, a
// per-step timeout and retries.
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	m.logStepStart(ctx, state.ID, step.ID())

	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		slog.WarnContext(ctx, "dependencies_not_met",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("Dependencies not met: %v", err))
		m.broadcaster.UpdateStepProgress(state.ID, step.ID(), int(stepState.Progress), fmt.Sprintf("Skipped: %v", err))
		return err
	}

	if err := step.Validate(state); err != nil {
		slog.WarnContext(ctx, "validation_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("Validation failed: %v", err))
		m.broadcaster.UpdateStepProgress(state.ID, step.ID(), int(stepState.Progress), fmt.Sprintf("Skipped: validation failed: %v", err))
		return NewValidationError(step.ID(), err.Error())
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retryConfig := m.config.RetryConfig
	var lastErr error

	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		stepState.Start()
		m.broadcaster.UpdateStepProgress(state.ID, step.ID(), int(stepState.Progress), "Step started")

		startTime := time.Now()
		err := step.Execute(stepCtx, state)
		duration := time.Since(startTime)

		if err == nil {
			m.logStepComplete(ctx, state.ID, step.ID(), duration)
			stepState.Complete()
			m.broadcaster.CompleteStep(state.ID, step.ID(), "Step completed successfully")
			return nil
		}

		slog.ErrorContext(ctx, "step_execution_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if stepState.Metadata != nil {
			if metaJSON, merr := json.Marshal(stepState.Metadata); merr == nil {
				slog.ErrorContext(ctx, "step_metadata",
					slog.String("operation_id", state.ID),
					slog.String("step", step.ID()),
					slog.String("metadata", string(metaJSON)))
			}
		}

		lastErr = err

		if !IsRetryable(err) || attempt >= retryConfig.MaxAttempts {
			stepState.Fail(err)
			m.broadcaster.FailStep(state.ID, step.ID(), err)
			return WrapError(err, step.ID(), "step execution failed")
		}

		delay := m.calculateRetryDelay(attempt, retryConfig)
		slog.WarnContext(ctx, "step_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retryConfig.MaxAttempts),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-stepCtx.Done():
			timeoutErr := NewTimeoutError(step.ID(), timeout.String())
			stepState.Fail(timeoutErr)
			m.broadcaster.FailStep(state.ID, step.ID(), timeoutErr)
			return timeoutErr
		}
	}

	stepState.Fail(lastErr)
	m.broadcaster.FailStep(state.ID, step.ID(), lastErr)
	return WrapError(lastErr, step.ID(), fmt.Sprintf("step execution failed after %d attempts", retryConfig.MaxAttempts))
}

// skipDependentSteps marks every pending step that depends on the failed
// step, directly or transitively, as skipped.
func (m *Manager) skipDependentSteps(state *OperationState, steps []Step, failedStepID string) {
	for _, step := range steps {
		for _, dep := range step.GetDependencies() {
			if dep != failedStepID {
				continue
			}
			stepState := state.GetStep(step.ID())
			if stepState != nil && stepState.GetStatus() == StepStatusPending {
				stepState.Skip(fmt.Sprintf("Dependency %s failed", failedStepID))
				m.broadcaster.UpdateStepProgress(state.ID, step.ID(), int(stepState.Progress), fmt.Sprintf("Skipped: dependency %s failed", failedStepID))
				m.skipDependentSteps(state, steps, step.ID())
			}
			break
		}
	}
}

// checkDependencies verifies that every dependency of the step completed.
// Dependencies that are not part of this operation, as in a single-step
// run, do not constrain it.
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStep(dep)
		if depState == nil {
			continue
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return fmt.Errorf("dependency %s not completed (status: %s)", dep, status)
		}
	}
	return nil
}

// calculateRetryDelay returns the exponential backoff delay before the
// next attempt, capped at the configured maximum.
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay >= config.MaxDelay {
			return config.MaxDelay
		}
	}
	if delay > config.MaxDelay {
		return config.MaxDelay
	}
	return delay
}

// createResponse renders an operation state as a response.
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.GetStatus(),
		Duration: state.Duration(),
		Steps:    state.Steps,
	}

	if state.Error != nil {
		resp.Error = state.Error.Error()
	}

	return resp
}

// GetOperation returns a copy of a running operation's state.
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, fmt.Errorf("operation %s not found", id)
	}

	return state.Clone(), nil
}

// ListOperations returns copies of all active operation states.
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		operations = append(operations, state.Clone())
	}

	return operations
}

// CancelOperation cancels a running operation.
func (m *Manager) CancelOperation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.operations[id]
	if !exists {
		return fmt.Errorf("operation %s not found", id)
	}

	state.Cancel()
	m.broadcaster.CancelOperation(id)
	return nil
}

func (m *Manager) storeOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}
