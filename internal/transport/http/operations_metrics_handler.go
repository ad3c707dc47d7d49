package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nbacli/internal/infrastructure"
	"nbacli/internal/operations"
)

// OperationsMetricsHandler serves run-health summaries derived from the
// in-memory operation states: counts by status, durations and the checks
// the dashboard's status badge reads.
type OperationsMetricsHandler struct {
	service OperationServiceInterface
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter

	httpRequestDuration metric.Float64Histogram
	httpRequestsTotal   metric.Int64Counter
	httpActiveRequests  metric.Int64UpDownCounter
}

// NewOperationsMetricsHandler creates a new operations metrics handler
func NewOperationsMetricsHandler(service OperationServiceInterface, logger *slog.Logger) (*OperationsMetricsHandler, error) {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	tracer := otel.Tracer("operations-metrics-handler")
	meter := otel.Meter("operations-metrics-handler")

	httpRequestDuration, err := meter.Float64Histogram(
		"operations_handler_request_duration_seconds",
		metric.WithDescription("HTTP request duration for operations endpoints in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestsTotal, err := meter.Int64Counter(
		"operations_handler_requests_total",
		metric.WithDescription("Total number of HTTP requests to operations endpoints"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"operations_handler_active_requests",
		metric.WithDescription("Number of active HTTP requests to operations endpoints"),
	)
	if err != nil {
		return nil, err
	}

	return &OperationsMetricsHandler{
		service:             service,
		logger:              logger.With(slog.String("handler", "operations_metrics")),
		tracer:              tracer,
		meter:               meter,
		httpRequestDuration: httpRequestDuration,
		httpRequestsTotal:   httpRequestsTotal,
		httpActiveRequests:  httpActiveRequests,
	}, nil
}

// Routes returns a chi router for operations metrics endpoints
func (h *OperationsMetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.instrumentMiddleware)

	r.Get("/summary", h.GetOperationsSummary)
	r.Get("/performance", h.GetPerformanceMetrics)
	r.Get("/health", h.GetOperationsHealth)

	return r
}

// instrumentMiddleware adds OpenTelemetry instrumentation to requests
func (h *OperationsMetricsHandler) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		route := chi.RouteContext(ctx).RoutePattern()

		h.httpActiveRequests.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)
		defer h.httpActiveRequests.Add(ctx, -1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)

		startTime := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(startTime)

		h.httpRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.Int("status", ww.Status()),
			),
		)
		h.httpRequestDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.Int("status", ww.Status()),
			),
		)
	})
}

// GetOperationsSummary returns status counts across all known operations
func (h *OperationsMetricsHandler) GetOperationsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	ctx, span := h.tracer.Start(ctx, "metrics.get_operations_summary",
		trace.WithAttributes(
			attribute.String("http.route", "/api/operations/metrics/summary"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "retrieving operations summary",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))

	states, err := h.service.ListOperations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list operations")

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{
			"error": "Failed to retrieve operations",
		})
		return
	}

	summary := h.calculateSummary(states)

	span.SetAttributes(
		attribute.Int("operations.total", summary["total"].(int)),
		attribute.Int("operations.active", summary["active"].(int)),
	)

	render.JSON(w, r, summary)
}

// GetPerformanceMetrics returns duration and outcome-rate metrics
func (h *OperationsMetricsHandler) GetPerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	ctx, span := h.tracer.Start(ctx, "metrics.get_performance_metrics",
		trace.WithAttributes(
			attribute.String("http.route", "/api/operations/metrics/performance"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	states, err := h.service.ListOperations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list operations")

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{
			"error": "Failed to retrieve operations",
		})
		return
	}

	metrics := h.calculatePerformanceMetrics(states)

	span.SetAttributes(
		attribute.Float64("performance.avg_duration_seconds", metrics["avg_duration_seconds"].(float64)),
		attribute.Float64("performance.success_rate", metrics["success_rate"].(float64)),
	)

	render.JSON(w, r, metrics)
}

// GetOperationsHealth returns health checks over the run system
func (h *OperationsMetricsHandler) GetOperationsHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	ctx, span := h.tracer.Start(ctx, "metrics.get_operations_health",
		trace.WithAttributes(
			attribute.String("http.route", "/api/operations/metrics/health"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	states, err := h.service.ListOperations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list operations")

		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{
			"status": "unhealthy",
			"error":  "Cannot retrieve operations status",
		})
		return
	}

	health := h.calculateHealth(states)

	span.SetAttributes(
		attribute.String("health.status", health["status"].(string)),
	)

	statusCode := http.StatusOK
	if health["status"] != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	render.Status(r, statusCode)
	render.JSON(w, r, health)
}

// calculateSummary counts operations by status and by step type.
func (h *OperationsMetricsHandler) calculateSummary(states []*operations.OperationState) map[string]interface{} {
	summary := map[string]interface{}{
		"total":     len(states),
		"active":    0,
		"timestamp": time.Now().UTC(),
	}

	statusCounts := make(map[string]int)
	for _, op := range states {
		status := op.GetStatus()
		statusCounts[string(status)]++
		if status == operations.OperationStatusPending || status == operations.OperationStatusRunning {
			summary["active"] = summary["active"].(int) + 1
		}
	}

	summary["pending"] = statusCounts[string(operations.OperationStatusPending)]
	summary["running"] = statusCounts[string(operations.OperationStatusRunning)]
	summary["completed"] = statusCounts[string(operations.OperationStatusCompleted)]
	summary["failed"] = statusCounts[string(operations.OperationStatusFailed)]
	summary["cancelled"] = statusCounts[string(operations.OperationStatusCancelled)]

	typeBreakdown := make(map[string]map[string]int)
	for _, op := range states {
		opType := "unknown"
		for _, step := range op.Steps {
			opType = step.Name
			break
		}
		if _, exists := typeBreakdown[opType]; !exists {
			typeBreakdown[opType] = make(map[string]int)
		}
		typeBreakdown[opType][string(op.GetStatus())]++
	}
	summary["by_type"] = typeBreakdown

	return summary
}

// calculatePerformanceMetrics derives duration and outcome rates.
func (h *OperationsMetricsHandler) calculatePerformanceMetrics(states []*operations.OperationState) map[string]interface{} {
	metrics := map[string]interface{}{
		"total_operations":     len(states),
		"avg_duration_seconds": 0.0,
		"min_duration_seconds": 0.0,
		"max_duration_seconds": 0.0,
		"success_rate":         0.0,
		"failure_rate":         0.0,
		"cancellation_rate":    0.0,
		"timestamp":            time.Now().UTC(),
	}

	if len(states) == 0 {
		return metrics
	}

	var totalDuration, minDuration, maxDuration time.Duration
	var finishedCount, successCount, failedCount, cancelledCount int

	for _, op := range states {
		if op.EndTime != nil {
			duration := op.Duration()
			totalDuration += duration
			finishedCount++

			if minDuration == 0 || duration < minDuration {
				minDuration = duration
			}
			if duration > maxDuration {
				maxDuration = duration
			}
		}

		switch op.GetStatus() {
		case operations.OperationStatusCompleted:
			successCount++
		case operations.OperationStatusFailed:
			failedCount++
		case operations.OperationStatusCancelled:
			cancelledCount++
		}
	}

	if finishedCount > 0 {
		metrics["avg_duration_seconds"] = totalDuration.Seconds() / float64(finishedCount)
		metrics["min_duration_seconds"] = minDuration.Seconds()
		metrics["max_duration_seconds"] = maxDuration.Seconds()
	}

	totalFinished := successCount + failedCount + cancelledCount
	if totalFinished > 0 {
		metrics["success_rate"] = float64(successCount) / float64(totalFinished)
		metrics["failure_rate"] = float64(failedCount) / float64(totalFinished)
		metrics["cancellation_rate"] = float64(cancelledCount) / float64(totalFinished)
	}

	return metrics
}

// calculateHealth runs the stuck-run and failure-rate checks.
func (h *OperationsMetricsHandler) calculateHealth(states []*operations.OperationState) map[string]interface{} {
	health := map[string]interface{}{
		"status":    "healthy",
		"checks":    make(map[string]interface{}),
		"timestamp": time.Now().UTC(),
	}
	checks := health["checks"].(map[string]interface{})

	// Cleaning runs are serialized, so more than a handful of concurrent
	// running states means the store is leaking.
	activeCount := 0
	for _, op := range states {
		if op.GetStatus() == operations.OperationStatusRunning {
			activeCount++
		}
	}
	activeOpsHealthy := activeCount < 10
	checks["active_operations"] = map[string]interface{}{
		"status":    conditionalStatus(activeOpsHealthy),
		"count":     activeCount,
		"threshold": 10,
	}

	recentOps := filterRecentOperations(states, 1*time.Hour)
	failureRate := calculateRecentFailureRate(recentOps)
	failureRateHealthy := failureRate < 0.1
	checks["failure_rate"] = map[string]interface{}{
		"status":    conditionalStatus(failureRateHealthy),
		"rate":      failureRate,
		"threshold": 0.1,
		"window":    "1h",
	}

	stuckCount := 0
	for _, op := range states {
		if op.GetStatus() == operations.OperationStatusRunning && op.StartTime.Before(time.Now().Add(-30*time.Minute)) {
			stuckCount++
		}
	}
	noStuckOps := stuckCount == 0
	checks["stuck_operations"] = map[string]interface{}{
		"status":    conditionalStatus(noStuckOps),
		"count":     stuckCount,
		"threshold": "30m",
	}

	if !activeOpsHealthy || !failureRateHealthy || !noStuckOps {
		health["status"] = "unhealthy"
	}

	return health
}

func conditionalStatus(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}

func filterRecentOperations(states []*operations.OperationState, window time.Duration) []*operations.OperationState {
	cutoff := time.Now().Add(-window)
	recent := make([]*operations.OperationState, 0)
	for _, op := range states {
		if op.StartTime.After(cutoff) {
			recent = append(recent, op)
		}
	}
	return recent
}

func calculateRecentFailureRate(states []*operations.OperationState) float64 {
	if len(states) == 0 {
		return 0.0
	}

	failedCount := 0
	finishedCount := 0
	for _, op := range states {
		switch op.GetStatus() {
		case operations.OperationStatusFailed:
			failedCount++
			finishedCount++
		case operations.OperationStatusCompleted:
			finishedCount++
		}
	}
	if finishedCount == 0 {
		return 0.0
	}
	return float64(failedCount) / float64(finishedCount)
}
