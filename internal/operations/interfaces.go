package operations

import "context"

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// ProgressReporter interface for steps that can report progress
type ProgressReporter interface {
	ReportProgress(progress int, message string) error
}

// RunRecorder persists run manifests for later inspection
type RunRecorder interface {
	RecordRun(ctx context.Context, manifest *RunManifest) error
}

// StepOptions contains optional dependencies for steps
type StepOptions struct {
	WebSocketManager  WebSocketHub
	StatusBroadcaster *StatusBroadcaster
	Recorder          RunRecorder
	EnableProgress    bool
}
