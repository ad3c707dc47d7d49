package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nbacli/internal/config"
)

var (
	globalLogger *slog.Logger
	loggerOnce   sync.Once
	logFile      *os.File
	logFileMutex sync.Mutex
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	// TraceIDContextKey is the context key for trace IDs
	TraceIDContextKey contextKey = "trace_id"
)

// InitializeLogger sets up the global logger based on configuration.
// This should be called once at application startup.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var initErr error

	loggerOnce.Do(func() {
		logger, err := createLogger(cfg)
		if err != nil {
			initErr = err
			return
		}

		globalLogger = logger
		slog.SetDefault(logger)
	})

	if initErr != nil {
		return nil, initErr
	}
	return GetLogger(), nil
}

// createLogger creates a logger based on the configuration
func createLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Level == "debug",
	}

	var handler slog.Handler

	switch cfg.Output {
	case "file":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handler = slog.NewJSONHandler(file, opts)

	case "both":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		multiWriter := io.MultiWriter(os.Stdout, file)
		handler = slog.NewJSONHandler(multiWriter, opts)

	default: // "stdout" or empty
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Wrap handler to include trace ID from context
	handler = &traceHandler{Handler: handler}

	return slog.New(handler), nil
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// openLogFile opens or creates a log file with proper permissions
func openLogFile(path string) (*os.File, error) {
	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	// Close existing file if open
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	logFile = file
	return file, nil
}

// traceHandler wraps a slog.Handler to automatically include trace IDs
type traceHandler struct {
	slog.Handler
}

// Handle adds trace ID from context if available
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID, ok := ctx.Value(TraceIDContextKey).(string); ok && traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new handler with the given attributes
func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group
func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// GetLogger returns the global logger instance.
// If not initialized, returns the default slog logger.
func GetLogger() *slog.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	return slog.Default()
}

// WithTraceID returns a new context with the given trace ID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID extracts the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDContextKey).(string); ok {
		return traceID
	}
	return ""
}

// LoggerFromContext returns a logger with trace ID from context
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}
	return logger
}

// MustInitializeLogger initializes the logger and panics on error.
// Use this in main() where logger initialization failure is fatal.
func MustInitializeLogger(cfg config.LoggingConfig) *slog.Logger {
	logger, err := InitializeLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return logger
}

// CloseLogFile closes the log file if open.
// Should be called during graceful shutdown.
func CloseLogFile() error {
	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// ResetLoggerForTesting resets the logger state for testing purposes.
// This should only be used in tests.
func ResetLoggerForTesting() {
	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	globalLogger = nil
	loggerOnce = sync.Once{}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
