package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apperrors "nbacli/internal/errors"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents an asynchronously executed operation.
type Job struct {
	ID          string                 `json:"id"`
	OperationID string                 `json:"operation_id"`
	StepID      string                 `json:"step_id"`
	StepName    string                 `json:"step_name"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Request     *OperationRequest      `json:"request,omitempty"`
}

// JobStore persists jobs across the queue lifecycle.
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
	DeleteJob(id string) error
}

// JobFilter selects jobs when listing.
type JobFilter struct {
	Status      JobStatus
	OperationID string
	StepID      string
	Since       time.Time
	Limit       int
}

// JobQueue runs operations asynchronously. Runs are serialized: at most
// one job may be pending or running at a time, and a second submission is
// rejected until the first finishes.
type JobQueue struct {
	mu       sync.RWMutex
	jobs     chan *Job
	workers  int
	wg       sync.WaitGroup
	store    JobStore
	manager  *Manager
	logger   *slog.Logger
	shutdown chan struct{}
	active   map[string]*Job
	cancels  map[string]context.CancelFunc
	inFlight int
}

// NewJobQueue creates a job queue backed by the given store and manager.
func NewJobQueue(workers int, store JobStore, manager *Manager, logger *slog.Logger) *JobQueue {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{
		jobs:     make(chan *Job, workers*2),
		workers:  workers,
		store:    store,
		manager:  manager,
		logger:   logger.With(slog.String("component", "jobqueue")),
		shutdown: make(chan struct{}),
		active:   make(map[string]*Job),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start launches the worker goroutines and recovers interrupted jobs.
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("starting job queue", slog.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	go q.recoverJobs(ctx)
}

// Stop shuts the queue down, waiting up to timeout for workers to finish.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")

	close(q.shutdown)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded")
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// Enqueue submits a job. It fails with ErrRunActive while another job is
// pending or running.
func (q *JobQueue) Enqueue(job *Job) error {
	q.mu.Lock()
	if q.inFlight > 0 {
		q.mu.Unlock()
		return fmt.Errorf("%w: another run is already in progress", apperrors.ErrRunActive)
	}
	q.inFlight++
	q.mu.Unlock()

	job.Status = JobStatusPending
	job.CreatedAt = time.Now()

	if err := q.store.CreateJob(job); err != nil {
		q.releaseSlot()
		return fmt.Errorf("failed to save job: %w", err)
	}

	// Create the operation snapshot up front so clients see the queued
	// state before a worker picks the job up.
	q.manager.GetBroadcaster().CreateOperation(job.OperationID, q.stepIDsFor(job))

	// Once the job is on the channel the worker owns it; everything the
	// caller needs afterwards comes from the store.
	jobID, stepID := job.ID, job.StepID

	select {
	case q.jobs <- job:
		q.logger.Info("job enqueued",
			slog.String("job_id", jobID),
			slog.String("step_id", stepID))
		return nil
	default:
		job.Status = JobStatusFailed
		job.Error = "job queue is full"
		q.store.UpdateJob(job)
		q.releaseSlot()
		return fmt.Errorf("job queue is full")
	}
}

// stepIDsFor resolves which step IDs a job will run.
func (q *JobQueue) stepIDsFor(job *Job) []string {
	if job.StepID != "" && job.StepID != "full_pipeline" {
		return []string{job.StepID}
	}
	if steps, err := q.manager.GetRegistry().GetDependencyOrder(); err == nil {
		ids := make([]string, len(steps))
		for i, step := range steps {
			ids[i] = step.ID()
		}
		return ids
	}
	return q.manager.GetRegistry().ListIDs()
}

// HasActiveJobs reports whether a job is pending or running.
func (q *JobQueue) HasActiveJobs() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.inFlight > 0
}

// GetJob retrieves a job from the store.
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// CancelJob cancels a pending or running job. A running job's context is
// cancelled and the worker records the terminal state; a queued job is
// marked cancelled in the store so the worker drops it on pickup.
func (q *JobQueue) CancelJob(id string) error {
	q.mu.Lock()
	cancel, running := q.cancels[id]
	q.mu.Unlock()
	if running {
		cancel()
		return nil
	}

	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}
	if job.Status != JobStatusPending {
		return fmt.Errorf("job %s cannot be cancelled (status: %s)", id, job.Status)
	}

	job.Status = JobStatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	return q.store.UpdateJob(job)
}

// ListJobs returns jobs matching the filter.
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.processJob(ctx, job, logger)
		}
	}
}

// processJob executes a single job through the manager.
func (q *JobQueue) processJob(ctx context.Context, job *Job, logger *slog.Logger) {
	if job.Metadata != nil {
		if traceID, ok := job.Metadata["trace_id"].(string); ok {
			ctx = context.WithValue(ctx, middleware.RequestIDKey, traceID)
		}
	}

	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("operation_id", job.OperationID),
		slog.String("step_id", job.StepID),
	)

	jobCtx, cancel := context.WithCancel(ctx)

	q.mu.Lock()
	q.active[job.ID] = job
	q.cancels[job.ID] = cancel
	q.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job processing panicked", slog.Any("panic", r))

			job.Status = JobStatusFailed
			job.Error = fmt.Sprintf("job processing panicked: %v", r)
			job.Message = "Internal error occurred"
			completedAt := time.Now()
			job.CompletedAt = &completedAt

			if err := q.store.UpdateJob(job); err != nil {
				logger.Error("failed to update job after panic", slog.String("error", err.Error()))
			}
			q.manager.GetBroadcaster().FailOperation(job.OperationID, fmt.Errorf("internal error: %v", r))
		}

		cancel()
		q.mu.Lock()
		delete(q.active, job.ID)
		delete(q.cancels, job.ID)
		q.mu.Unlock()
		q.releaseSlot()
	}()

	// The job may have been cancelled while it sat in the queue.
	if stored, err := q.store.GetJob(job.ID); err == nil && stored.Status == JobStatusCancelled {
		logger.Info("job cancelled before start")
		q.manager.GetBroadcaster().CancelOperation(job.OperationID)
		return
	}

	logger.Info("processing job started")

	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress = 0
	job.Message = "Job started"

	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update job status", slog.String("error", err.Error()))
	}

	req := q.buildRequest(job)
	resp, err := q.manager.Execute(jobCtx, req)
	if err != nil {
		if jobCtx.Err() != nil || GetErrorType(err) == ErrorTypeCancellation {
			q.handleJobCancelled(job, logger)
			return
		}
		q.handleJobError(job, err, logger)
		return
	}

	job.Status = JobStatusCompleted
	job.Progress = 100
	job.Message = "Job completed successfully"
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	if resp != nil && job.Metadata == nil {
		job.Metadata = map[string]interface{}{"duration": resp.Duration.String()}
	}

	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update job completion", slog.String("error", err.Error()))
	}

	logger.Info("processing job completed")
}

// buildRequest renders the manager request for a job.
func (q *JobQueue) buildRequest(job *Job) OperationRequest {
	var req OperationRequest
	if job.Request != nil {
		req = *job.Request
	}
	req.ID = job.OperationID
	if job.StepID != "" && job.StepID != "full_pipeline" {
		if req.Parameters == nil {
			req.Parameters = make(map[string]interface{})
		}
		req.Parameters["step"] = job.StepID
	}
	return req
}

func (q *JobQueue) handleJobCancelled(job *Job, logger *slog.Logger) {
	logger.Info("job cancelled")

	job.Status = JobStatusCancelled
	job.Message = "Job cancelled"
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update cancelled job", slog.String("error", err.Error()))
	}
	q.manager.GetBroadcaster().CancelOperation(job.OperationID)
}

func (q *JobQueue) handleJobError(job *Job, err error, logger *slog.Logger) {
	logger.Error("job failed", slog.String("error", err.Error()))

	job.Status = JobStatusFailed
	job.Error = err.Error()
	job.Message = "Job failed"
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if uerr := q.store.UpdateJob(job); uerr != nil {
		logger.Error("failed to update job error", slog.String("error", uerr.Error()))
	}
}

func (q *JobQueue) releaseSlot() {
	q.mu.Lock()
	if q.inFlight > 0 {
		q.inFlight--
	}
	q.mu.Unlock()
}

// recoverJobs re-queues the most recent interrupted job after a restart.
// Older interrupted jobs are failed so the single-run rule holds.
func (q *JobQueue) recoverJobs(ctx context.Context) {
	running, err := q.store.ListJobs(JobFilter{Status: JobStatusRunning})
	if err != nil {
		q.logger.Error("failed to recover running jobs", slog.String("error", err.Error()))
		return
	}

	pending, err := q.store.ListJobs(JobFilter{Status: JobStatusPending})
	if err != nil {
		q.logger.Error("failed to recover pending jobs", slog.String("error", err.Error()))
	} else {
		running = append(running, pending...)
	}

	if len(running) == 0 {
		return
	}
	q.logger.Info("recovering interrupted jobs", slog.Int("count", len(running)))

	newest := running[0]
	for _, job := range running[1:] {
		if job.CreatedAt.After(newest.CreatedAt) {
			newest = job
		}
	}

	for _, job := range running {
		if job.ID == newest.ID {
			continue
		}
		job.Status = JobStatusFailed
		job.Error = "superseded by a newer run on restart"
		now := time.Now()
		job.CompletedAt = &now
		q.store.UpdateJob(job)
	}

	q.mu.Lock()
	if q.inFlight > 0 {
		q.mu.Unlock()
		q.logger.Warn("run already active, recovery skipped", slog.String("job_id", newest.ID))
		return
	}
	q.inFlight++
	q.mu.Unlock()

	newest.Status = JobStatusPending
	newest.StartedAt = nil
	newest.Progress = 0
	q.store.UpdateJob(newest)

	select {
	case q.jobs <- newest:
		q.logger.Info("recovered job", slog.String("job_id", newest.ID))
	default:
		q.releaseSlot()
		q.logger.Warn("could not recover job, queue full", slog.String("job_id", newest.ID))
	}
}

// GetQueueStats returns queue statistics.
func (q *JobQueue) GetQueueStats() map[string]interface{} {
	q.mu.RLock()
	activeCount := len(q.active)
	inFlight := q.inFlight
	q.mu.RUnlock()

	return map[string]interface{}{
		"workers":     q.workers,
		"queue_size":  len(q.jobs),
		"queue_cap":   cap(q.jobs),
		"active_jobs": activeCount,
		"in_flight":   inFlight,
	}
}
