package operations

import (
	"context"
	"fmt"
	"time"

	"nbacli/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "nbacli.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for operation
// execution: spans per operation and step plus business metrics.
type OperationTracer struct {
	tracer          trace.Tracer
	meter           metric.Meter
	businessMetrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer backed by the given providers.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	businessMetrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return &OperationTracer{
		tracer:          otel.Tracer(TracerName),
		meter:           providers.Meter,
		businessMetrics: businessMetrics,
	}, nil
}

// TraceOperationExecution opens the span covering a whole operation.
func (t *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, req OperationRequest) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.domain", req.Domain),
			attribute.String("operation.season", req.Season),
			attribute.Bool("operation.all_seasons", req.AllSeasons),
			attribute.Bool("operation.force", req.Force),
		),
	)

	t.businessMetrics.OperationExecutionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "start"),
		),
	)

	t.businessMetrics.OperationActiveOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation.type", "pipeline"),
		),
	)

	return ctx, span
}

// TraceStepExecution opens the span covering a single step.
func (t *OperationTracer) TraceStepExecution(ctx context.Context, operationID, stepID, stepType string) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.step.%s", stepType)
	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
			attribute.String("step.type", stepType),
		),
	)

	t.businessMetrics.OperationStepsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("step_type", stepType),
			attribute.String("operation", "start"),
		),
	)

	return ctx, span
}

// RecordOperationCompletion closes out the operation span with status,
// duration and the number of processed rows.
func (t *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, operationID string, duration time.Duration, status string, rowsProcessed int64) {
	span.SetAttributes(
		attribute.String("operation.status", status),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
		attribute.Int64("operation.rows_processed", rowsProcessed),
	)

	t.businessMetrics.OperationExecutionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)

	t.businessMetrics.OperationActiveOperations.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("operation.type", "pipeline"),
		),
	)

	infrastructure.AddSpanEvent(ctx, "operation.completed", map[string]interface{}{
		"operation_id":   operationID,
		"status":         status,
		"duration":       duration.Seconds(),
		"rows_processed": rowsProcessed,
	})

	if status == "success" {
		span.SetStatus(codes.Ok, "operation completed successfully")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("operation failed with status: %s", status))
	}
}

// RecordStepCompletion closes out a step span with its outcome.
func (t *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, operationID, stepID string, duration time.Duration, success bool, itemsProcessed int64) {
	status := "success"
	if !success {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
		attribute.Int64("step.items_processed", itemsProcessed),
	)

	t.businessMetrics.OperationStepDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("step_id", stepID),
			attribute.String("status", status),
		),
	)

	infrastructure.AddSpanEvent(ctx, "step.completed", map[string]interface{}{
		"step_id":         stepID,
		"status":          status,
		"duration":        duration.Seconds(),
		"items_processed": itemsProcessed,
	})

	if success {
		span.SetStatus(codes.Ok, "step completed successfully")
	} else {
		span.SetStatus(codes.Error, "step execution failed")
	}
}

// RecordStepProgress attaches step progress to the active span.
func (t *OperationTracer) RecordStepProgress(ctx context.Context, operationID, stepID string, progress int, message string) {
	infrastructure.AddSpanEvent(ctx, "step.progress", map[string]interface{}{
		"step_id":  stepID,
		"progress": progress,
		"message":  message,
	})

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("step.progress_percent", progress),
			attribute.String("step.progress_message", message),
		)
	}
}

// RecordStepError records a step failure on the span and error counter.
func (t *OperationTracer) RecordStepError(ctx context.Context, operationID, stepID string, err error) {
	infrastructure.RecordError(ctx, err,
		trace.WithAttributes(
			attribute.String("step_id", stepID),
			attribute.String("error.type", "step_execution_error"),
		),
	)

	t.businessMetrics.OperationErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("step_id", stepID),
		),
	)
}

// RecordOperationError records an operation-level failure and releases the
// active-operation slot.
func (t *OperationTracer) RecordOperationError(ctx context.Context, operationID string, err error) {
	infrastructure.RecordError(ctx, err,
		trace.WithAttributes(
			attribute.String("operation_id", operationID),
			attribute.String("error.type", "operation_execution_error"),
		),
	)

	t.businessMetrics.OperationErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation_id", operationID),
		),
	)

	t.businessMetrics.OperationActiveOperations.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("operation.type", "pipeline"),
		),
	)
}

// TraceTableProcessing opens a span for one table transformation pass.
func (t *OperationTracer) TraceTableProcessing(ctx context.Context, operationType string, rowCount int) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.table.%s", operationType)
	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("table.operation", operationType),
			attribute.Int("table.row_count", rowCount),
		),
	)

	return ctx, span
}

// RecordTableProcessingCompletion closes a table processing span.
func (t *OperationTracer) RecordTableProcessingCompletion(ctx context.Context, span trace.Span, operationType string, rowsProcessed int64, duration time.Duration) {
	span.SetAttributes(
		attribute.Int64("table.rows_processed", rowsProcessed),
		attribute.Float64("table.duration_seconds", duration.Seconds()),
	)
	if duration > 0 {
		span.SetAttributes(attribute.Float64("table.throughput_rows_per_second", float64(rowsProcessed)/duration.Seconds()))
	}

	infrastructure.AddSpanEvent(ctx, "table.processing.completed", map[string]interface{}{
		"operation":      operationType,
		"rows_processed": rowsProcessed,
		"duration":       duration.Seconds(),
	})

	span.SetStatus(codes.Ok, fmt.Sprintf("Processed %d rows in %v", rowsProcessed, duration))
}

// TraceWebSocketNotification opens a span for a broadcast to clients.
func (t *OperationTracer) TraceWebSocketNotification(ctx context.Context, messageType string, clientCount int) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.websocket.%s", messageType)
	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("websocket.message_type", messageType),
			attribute.Int("websocket.client_count", clientCount),
		),
	)

	return ctx, span
}

// RecordWebSocketNotificationCompletion closes a broadcast span.
func (t *OperationTracer) RecordWebSocketNotificationCompletion(ctx context.Context, span trace.Span, messageType string, successCount, failureCount int) {
	span.SetAttributes(
		attribute.Int("websocket.success_count", successCount),
		attribute.Int("websocket.failure_count", failureCount),
	)
	if total := successCount + failureCount; total > 0 {
		span.SetAttributes(attribute.Float64("websocket.success_rate", float64(successCount)/float64(total)))
	}

	infrastructure.AddSpanEvent(ctx, "websocket.notification.completed", map[string]interface{}{
		"message_type":  messageType,
		"success_count": successCount,
		"failure_count": failureCount,
	})

	if failureCount > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("WebSocket notification had %d failures", failureCount))
	} else {
		span.SetStatus(codes.Ok, "WebSocket notification completed successfully")
	}
}

var globalOperationTracer *OperationTracer

// InitGlobalOperationTracer initializes the process-wide operation tracer.
func InitGlobalOperationTracer(providers *infrastructure.OTelProviders) error {
	tracer, err := NewOperationTracer(providers)
	if err != nil {
		return err
	}
	globalOperationTracer = tracer
	return nil
}

// GetOperationTracer returns the process-wide operation tracer.
func GetOperationTracer() *OperationTracer {
	return globalOperationTracer
}
