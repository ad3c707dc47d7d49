package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"nbacli/internal/config"
	"nbacli/internal/files"
	"nbacli/internal/operations"
	ws "nbacli/internal/websocket"
)

// HealthService answers liveness, readiness and version queries. Readiness
// covers the dependencies a cleaning run needs: writable data directories,
// the run catalog, the operation manager and the event hub.
type HealthService struct {
	version   string
	repoURL   string
	buildTime string
	buildID   string
	paths     *config.Paths
	fileMgr   *files.Manager
	catalog   RunCatalog
	operation *operations.Manager
	hub       *ws.Hub
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalFiles       int     `json:"total_files"`
	TotalSizeBytes   int64   `json:"total_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	ActiveOperations int     `json:"active_operations"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a new health service with injected dependencies and default logger
func NewHealthService(version, repoURL string, paths *config.Paths, cat RunCatalog, operation *operations.Manager, hub *ws.Hub, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, repoURL, "", "", paths, cat, operation, hub, logger)
}

// NewHealthServiceWithBuildInfo creates a new health service with build information
func NewHealthServiceWithBuildInfo(version, repoURL, buildTime, buildID string, paths *config.Paths, cat RunCatalog, operation *operations.Manager, hub *ws.Hub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	var fileMgr *files.Manager
	if paths != nil {
		fileMgr = files.NewManager(paths)
	}

	return &HealthService{
		version:   version,
		repoURL:   repoURL,
		buildTime: buildTime,
		buildID:   buildID,
		paths:     paths,
		fileMgr:   fileMgr,
		catalog:   cat,
		operation: operation,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger,
	}
}

// NewHealthServiceWithLogger creates a health service without dependency
// probes; readiness degrades to a liveness answer. Used by tests.
func NewHealthServiceWithLogger(version, repoURL string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		repoURL:   repoURL,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.Debug("HealthCheck: performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck probes every dependency and reports per-service status.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["catalog"] = hs.checkCatalogHealth(ctx)
	status.Services["websocket"] = hs.checkWebSocketHealth()
	status.Services["operation"] = hs.checkOperationHealth()
	status.Services["data"] = hs.checkDataHealth()

	allReady := true
	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			allReady = false
			break
		}
	}

	if !allReady {
		status.Status = "not_ready"
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"repo_url":     hs.repoURL,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}

	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if hs.paths != nil {
		filepath.Walk(hs.paths.DataDir, func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				stats.TotalFiles++
				stats.TotalSizeBytes += info.Size()
			}
			return nil
		})
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	if hs.operation != nil {
		stats.ActiveOperations = len(hs.operation.ListOperations())
	}

	return stats, nil
}

// checkCatalogHealth checks run catalog reachability
func (hs *HealthService) checkCatalogHealth(ctx context.Context) ServiceHealth {
	if hs.catalog == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "run catalog not configured",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hs.catalog.Ping(pingCtx); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("catalog unreachable: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "run catalog is reachable",
	}
}

// checkWebSocketHealth checks the event hub
func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "event hub not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("event hub serving %d clients", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkOperationHealth checks the operation manager
func (hs *HealthService) checkOperationHealth() ServiceHealth {
	if hs.operation == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "operation manager not initialized",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d steps registered", hs.operation.GetRegistry().Count()),
	}
}

// checkDataHealth verifies the directories cleaning runs write into
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil || hs.fileMgr == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "data paths not configured",
		}
	}

	for _, dir := range []string{hs.paths.ProcessedDir, hs.paths.ExternalDir} {
		if err := hs.fileMgr.CheckWritable(dir); err != nil {
			return ServiceHealth{
				Status:  "not_ready",
				Message: fmt.Sprintf("directory not writable: %v", err),
			}
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "data directories are writable",
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats, _ := hs.SystemStats(ctx)

	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}
}
