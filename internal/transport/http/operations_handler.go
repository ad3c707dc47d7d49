package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nbacli/internal/config"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/infrastructure"
	"nbacli/internal/middleware"
	"nbacli/internal/operations"
	api "nbacli/pkg/contracts/api/v1"
)

// Hub is the slice of the WebSocket hub the handler needs to announce
// operation lifecycle events.
type Hub interface {
	BroadcastUpdate(updateType, step, status string, data interface{})
}

// OperationsHandler handles operation lifecycle HTTP requests: launching
// cleaning runs, polling their status and cancelling them.
type OperationsHandler struct {
	service   OperationServiceInterface
	wsHub     Hub
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
	jobQueue  *operations.JobQueue
	validator *middleware.ValidationMiddleware
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, wsHub Hub, logger *slog.Logger) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if wsHub == nil {
		panic("wsHub cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OperationsHandler{
		service: service,
		wsHub:   wsHub,
		logger:  logger.With(slog.String("handler", "operations")),
	}
}

// SetMetrics sets the business metrics for the handler
func (h *OperationsHandler) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	h.metrics = metrics
}

// SetJobQueue sets the job queue for async run execution
func (h *OperationsHandler) SetJobQueue(jobQueue *operations.JobQueue) {
	h.jobQueue = jobQueue
}

// SetValidator attaches the tag-driven request validator.
func (h *OperationsHandler) SetValidator(v *middleware.ValidationMiddleware) {
	h.validator = v
}

// startRequest wraps the API contract so it satisfies render.Binder.
type startRequest struct {
	api.OperationStartRequest
}

// Bind implements render.Binder: structural validation of the launch body.
func (sr *startRequest) Bind(req *http.Request) error {
	if err := sr.Validate(); err != nil {
		return err
	}
	for _, label := range sr.SeasonLabels() {
		if !config.IsSeasonLabel(label) {
			return fmt.Errorf("invalid season label %q: want YYYY-YY", label)
		}
	}
	return nil
}

// Routes returns a chi router for operations endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Timeout(60*time.Second, h.logger))

	r.Get("/types", h.GetOperationTypes)
	r.Post("/", middleware.OperationTraceHandler("run", h.StartOperation))
	r.Post("/start", middleware.OperationTraceHandler("run", h.StartOperation))
	r.Get("/", h.ListOperations)
	r.Post("/{id}/stop", h.StopOperation)
	r.Get("/{id}/status", h.GetOperationStatus)

	// Async job surface backing the dashboard's poll loop.
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{id}", h.GetJobStatus)

	return r
}

// StartOperation handles POST /api/operations. The body selects the run
// scope (domain, season flags, force) and optionally a single step; the
// run executes asynchronously through the job queue when one is attached.
func (h *OperationsHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.start_operation",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &startRequest{}
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_validation"))

		h.logger.ErrorContext(ctx, "failed to bind operation request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apperrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/validation_failed",
			"validation_failed",
			err.Error(),
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

		render.Render(w, r, problem)
		return
	}

	if h.validator != nil {
		if err := h.validator.ValidateStruct(&data.OperationStartRequest); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "request_validation"))

			h.logger.ErrorContext(ctx, "operation request failed validation",
				slog.String("error", err.Error()),
				slog.String("request_id", reqID))

			problem := apperrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				err.Error(),
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

			render.Render(w, r, problem)
			return
		}
	}

	operationID := reqID
	if operationID == "" {
		operationID = uuid.New().String()
	}

	request := &operations.OperationRequest{
		ID:         operationID,
		Domain:     data.Domain,
		Season:     data.Season,
		Seasons:    data.Seasons,
		AllSeasons: data.AllSeasons,
		Force:      data.Force,
		Parameters: map[string]interface{}{},
	}
	for k, v := range data.Parameters {
		request.Parameters[k] = v
	}
	if data.Step != "" {
		request.Parameters["step"] = data.Step
	}

	span.SetAttributes(
		attribute.String("operation.id", request.ID),
		attribute.String("operation.domain", request.Domain),
		attribute.String("operation.step", data.Step),
		attribute.Bool("operation.force", request.Force),
	)

	if h.jobQueue != nil {
		job := &operations.Job{
			ID:          request.ID,
			OperationID: request.ID,
			StepID:      data.Step,
			StepName:    data.Step,
			Status:      operations.JobStatusPending,
			CreatedAt:   time.Now(),
			Request:     request,
			Metadata: map[string]interface{}{
				"trace_id":   infrastructure.TraceIDFromContext(ctx),
				"request_id": reqID,
				"domain":     request.Domain,
			},
		}
		if data.Step == "" {
			job.StepID = "full_pipeline"
			job.StepName = "Full Pipeline"
		}

		if err := h.jobQueue.Enqueue(job); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "job enqueue failed")

			h.logger.ErrorContext(ctx, "failed to enqueue job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
				slog.String("request_id", reqID))

			status := http.StatusServiceUnavailable
			detail := "Run queue is full. Please try again later."
			if errors.Is(err, apperrors.ErrRunActive) {
				status = http.StatusConflict
				detail = "A run is already active; wait for it to finish or cancel it."
			}

			problem := apperrors.NewProblemDetails(
				status,
				"/errors/run_not_accepted",
				"run_not_accepted",
				detail,
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)).
				WithExtension("operation_id", request.ID)

			render.Render(w, r, problem)
			return
		}

		h.logger.InfoContext(ctx, "run enqueued",
			slog.String("job_id", job.ID),
			slog.String("step_id", job.StepID),
			slog.String("domain", request.Domain),
			slog.String("request_id", reqID))

		h.wsHub.BroadcastUpdate("operation_update", job.StepID, "pending", map[string]interface{}{
			"job_id":       job.ID,
			"operation_id": request.ID,
			"domain":       request.Domain,
			"timestamp":    time.Now().UTC(),
		})

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]interface{}{
			"job_id":       job.ID,
			"operation_id": request.ID,
			"status":       "pending",
			"message":      "Run queued for processing",
			"poll_url":     "/api/operations/jobs/" + job.ID,
		})
		return
	}

	// No queue attached (CLI-embedded servers): run synchronously.
	h.logger.WarnContext(ctx, "job queue not available, executing synchronously",
		slog.String("operation_id", request.ID))

	startCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if h.metrics != nil {
		infrastructure.RecordActiveOperationChange(ctx, h.metrics, 1, data.Step)
		defer infrastructure.RecordActiveOperationChange(ctx, h.metrics, -1, data.Step)
	}

	executionStart := time.Now()
	result, err := h.service.ExecuteOperation(startCtx, request)
	executionDuration := time.Since(executionStart)

	if h.metrics != nil {
		infrastructure.RecordOperationMetrics(ctx, h.metrics, request.ID, data.Step, executionDuration, err == nil, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation execution failed")

		h.logger.ErrorContext(ctx, "operation execution failed",
			slog.String("operation_id", request.ID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apperrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/operation_failed",
			"operation_failed",
			"Failed to execute operation: "+err.Error(),
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)).
			WithExtension("operation_id", request.ID)

		render.Render(w, r, problem)
		return
	}

	span.SetAttributes(
		attribute.Bool("operation.success", result.Status == operations.OperationStatusCompleted),
		attribute.Float64("operation.duration_ms", float64(result.Duration.Milliseconds())),
	)

	h.wsHub.BroadcastUpdate("operation_update", data.Step, string(result.Status), map[string]interface{}{
		"operation_id": request.ID,
		"domain":       request.Domain,
		"timestamp":    time.Now().UTC(),
	})

	response := map[string]interface{}{
		"id":      request.ID,
		"success": result.Status == operations.OperationStatusCompleted,
		"steps":   result.Steps,
	}
	if result.Error != "" {
		response["error"] = result.Error
	}

	render.JSON(w, r, response)
}

// StopOperation handles POST /api/operations/{id}/stop
func (h *OperationsHandler) StopOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.stop_operation",
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "operation stop request",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID))

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := h.service.CancelOperation(cancelCtx, operationID)
	if err == nil && h.metrics != nil {
		infrastructure.RecordOperationCancellation(ctx, h.metrics, operationID, "operation", "user_requested")
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation cancellation failed")

		h.logger.ErrorContext(ctx, "failed to cancel operation",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		switch {
		case errors.Is(err, operations.ErrOperationNotFound):
			render.Render(w, r, apperrors.NewProblemDetails(
				http.StatusNotFound,
				"/errors/not_found",
				"not_found",
				"Operation not found",
				r.URL.Path+"#"+reqID,
			).WithExtension("operation_id", operationID))
		case errors.Is(err, operations.ErrOperationCompleted):
			render.Render(w, r, apperrors.NewProblemDetails(
				http.StatusConflict,
				"/errors/invalid_state",
				"invalid_state",
				"Operation has already completed and cannot be cancelled",
				r.URL.Path+"#"+reqID,
			).WithExtension("operation_id", operationID))
		default:
			render.Render(w, r, apperrors.NewProblemDetails(
				http.StatusInternalServerError,
				"/errors/cancellation_failed",
				"cancellation_failed",
				"Failed to cancel operation",
				r.URL.Path+"#"+reqID,
			).WithExtension("operation_id", operationID))
		}
		return
	}

	h.wsHub.BroadcastUpdate("operation_update", "", "cancelled", map[string]interface{}{
		"operation_id": operationID,
		"timestamp":    time.Now().UTC(),
	})

	render.JSON(w, r, map[string]string{
		"message": "Operation cancelled successfully",
	})
}

// GetOperationStatus handles GET /api/operations/{id}/status
func (h *OperationsHandler) GetOperationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)

	statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := h.service.GetOperationStatus(statusCtx, operationID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get operation status",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusNotFound,
			"/errors/not_found",
			"not_found",
			"Operation not found",
			r.URL.Path+"#"+reqID,
		).WithExtension("operation_id", operationID))
		return
	}

	response := map[string]interface{}{
		"id":         status.ID,
		"status":     status.GetStatus(),
		"start_time": status.StartTime,
		"steps":      status.Steps,
	}
	if status.EndTime != nil {
		response["end_time"] = status.EndTime
		response["duration"] = status.Duration().String()
	}
	if status.Error != nil {
		response["error"] = status.Error.Error()
	}

	render.JSON(w, r, response)
}

// ListOperations handles GET /api/operations with an optional status filter
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	statusFilter := r.URL.Query().Get("status")

	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var states []*operations.OperationState
	var err error

	if statusFilter != "" {
		validStatuses := map[string]operations.OperationStatus{
			"pending":   operations.OperationStatusPending,
			"running":   operations.OperationStatusRunning,
			"completed": operations.OperationStatusCompleted,
			"failed":    operations.OperationStatusFailed,
			"cancelled": operations.OperationStatusCancelled,
		}
		status, ok := validStatuses[statusFilter]
		if !ok {
			render.Render(w, r, apperrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				fmt.Sprintf("Invalid status filter: %s", statusFilter),
				r.URL.Path+"#"+reqID,
			).WithExtension("valid_statuses", []string{"pending", "running", "completed", "failed", "cancelled"}))
			return
		}
		states, err = h.service.ListOperationsByStatus(listCtx, status)
	} else {
		states, err = h.service.ListOperations(listCtx)
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list operations",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/list_failed",
			"list_failed",
			"Failed to list operations",
			r.URL.Path+"#"+reqID,
		))
		return
	}

	list := make([]map[string]interface{}, len(states))
	for i, op := range states {
		entry := map[string]interface{}{
			"id":         op.ID,
			"status":     op.GetStatus(),
			"start_time": op.StartTime,
		}
		if op.EndTime != nil {
			entry["end_time"] = op.EndTime
			entry["duration"] = op.Duration().String()
		}
		list[i] = entry
	}

	render.JSON(w, r, map[string]interface{}{
		"operations": list,
		"count":      len(list),
	})
}

// GetOperationTypes handles GET /api/operations/types
func (h *OperationsHandler) GetOperationTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	types, err := h.service.GetOperationTypes(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get operation types",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/types_failed",
			"types_failed",
			"Failed to list operation types",
			r.URL.Path+"#"+reqID,
		))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"types": types,
		"count": len(types),
	})
}

// GetJobStatus handles GET /api/operations/jobs/{id}
func (h *OperationsHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(r.Context())

	if h.jobQueue == nil {
		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusNotImplemented,
			"/errors/jobs_unavailable",
			"jobs_unavailable",
			"Async job execution is not enabled",
			r.URL.Path+"#"+reqID,
		))
		return
	}

	job, err := h.jobQueue.GetJob(jobID)
	if err != nil {
		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusNotFound,
			"/errors/not_found",
			"not_found",
			"Job not found",
			r.URL.Path+"#"+reqID,
		).WithExtension("job_id", jobID))
		return
	}

	render.JSON(w, r, job)
}

// ListJobs handles GET /api/operations/jobs
func (h *OperationsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	if h.jobQueue == nil {
		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusNotImplemented,
			"/errors/jobs_unavailable",
			"jobs_unavailable",
			"Async job execution is not enabled",
			r.URL.Path+"#"+reqID,
		))
		return
	}

	filter := operations.JobFilter{
		Status:      operations.JobStatus(r.URL.Query().Get("status")),
		OperationID: r.URL.Query().Get("operation_id"),
		StepID:      r.URL.Query().Get("step"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 500 {
			render.Render(w, r, apperrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				"limit must be an integer between 1 and 500",
				r.URL.Path+"#"+reqID,
			))
			return
		}
		filter.Limit = limit
	}

	jobs, err := h.jobQueue.ListJobs(filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list jobs",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/list_failed",
			"list_failed",
			"Failed to list jobs",
			r.URL.Path+"#"+reqID,
		))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
