package services

import (
	"context"
	"fmt"
	"log/slog"

	"nbacli/internal/catalog"
)

// RunCatalog is the read side of the run catalog the API serves.
type RunCatalog interface {
	RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error)
	GetRun(ctx context.Context, id string) (*catalog.Run, []catalog.RunFile, error)
	Ping(ctx context.Context) error
}

// RunService answers run-history queries from the catalog. The server
// stays up without a catalog; every query then reports it unavailable.
type RunService struct {
	catalog RunCatalog
	logger  *slog.Logger
}

// NewRunService creates a run service over an opened catalog. A nil
// catalog is allowed so the server can run without one.
func NewRunService(cat RunCatalog, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		catalog: cat,
		logger:  logger,
	}
}

// RecentRuns returns the latest recorded runs, newest first.
func (rs *RunService) RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	if rs.catalog == nil {
		return nil, ErrCatalogUnavailable
	}

	runs, err := rs.catalog.RecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}

	rs.logger.DebugContext(ctx, "RecentRuns: catalog queried",
		slog.Int("limit", limit),
		slog.Int("returned", len(runs)))

	return runs, nil
}

// GetRun returns one run and its per-file outcomes.
func (rs *RunService) GetRun(ctx context.Context, id string) (*catalog.Run, []catalog.RunFile, error) {
	if rs.catalog == nil {
		return nil, nil, ErrCatalogUnavailable
	}
	if id == "" {
		return nil, nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}

	run, files, err := rs.catalog.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rs.logger.DebugContext(ctx, "GetRun: catalog queried",
		slog.String("run_id", id),
		slog.Int("files", len(files)))

	return run, files, nil
}

// Ping reports whether the catalog answers queries.
func (rs *RunService) Ping(ctx context.Context) error {
	if rs.catalog == nil {
		return ErrCatalogUnavailable
	}
	return rs.catalog.Ping(ctx)
}
