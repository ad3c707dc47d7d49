package services

import "errors"

// Data service errors
var (
	// Artifact errors
	ErrNoFilesFound        = errors.New("no files found")
	ErrFileNotFound        = errors.New("file not found")
	ErrInvalidArtifactPath = errors.New("invalid artifact path")
	ErrInvalidSeason       = errors.New("invalid season label")

	// operation errors
	ErrOperationNotFound   = errors.New("operation not found")
	ErrOperationRunning    = errors.New("operation already running")
	ErrOperationNotRunning = errors.New("operation not running")
	ErrInvalidStep         = errors.New("invalid operation step")

	// Run catalog errors
	ErrCatalogUnavailable = errors.New("run catalog unavailable")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")
	ErrWebSocketClosed  = errors.New("websocket connection closed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
