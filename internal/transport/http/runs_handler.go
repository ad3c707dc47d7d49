package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"nbacli/internal/catalog"
	apierrors "nbacli/internal/errors"
	custommw "nbacli/internal/middleware"
	"nbacli/internal/services"
)

// RunServiceInterface is the slice of the run service the handler needs.
type RunServiceInterface interface {
	RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error)
	GetRun(ctx context.Context, id string) (*catalog.Run, []catalog.RunFile, error)
}

// RunsHandler serves the run catalog: recent pipeline runs and their
// per-file outcomes.
type RunsHandler struct {
	service      RunServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	params       *custommw.QueryParamValidator
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service RunServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RunsHandler {
	return &RunsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "runs")),
		errorHandler: errorHandler,
		params:       custommw.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes mounts the run catalog endpoints.
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)

	return r
}

// ListRuns handles GET /api/runs?limit=
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	limit, ok := h.params.ValidateInt(w, r, "limit", 1, 200, 20)
	if !ok {
		return
	}

	h.logger.DebugContext(r.Context(), "listing runs",
		slog.String("request_id", reqID),
		slog.Int("limit", limit))

	runs, err := h.service.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list runs",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.handleCatalogError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   runsToResponse(runs),
		"count":  len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	runID := chi.URLParam(r, "id")

	run, files, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get run",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("run_id", runID))

		if errors.Is(err, apierrors.ErrRunNotFound) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"RUN_NOT_FOUND",
				"Run "+runID+" is not in the catalog",
				map[string]interface{}{"run_id": runID},
			))
			return
		}
		h.handleCatalogError(w, r, err)
		return
	}

	fileList := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		fileList = append(fileList, map[string]interface{}{
			"path":    f.Path,
			"status":  f.Status,
			"rows":    f.Rows,
			"message": f.Message,
		})
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"run":   runToResponse(*run),
			"files": fileList,
		},
	})
}

// handleCatalogError maps catalog availability failures to 503.
func (h *RunsHandler) handleCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrCatalogUnavailable) {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusServiceUnavailable,
			"CATALOG_UNAVAILABLE",
			"The run catalog is not available on this server",
		))
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

func runToResponse(run catalog.Run) map[string]interface{} {
	return map[string]interface{}{
		"id":            run.ID,
		"kind":          run.Kind,
		"domain":        run.Domain,
		"seasons":       run.SeasonList(),
		"status":        run.Status,
		"started_at":    run.StartedAt,
		"finished_at":   run.FinishedAt,
		"files_written": run.FilesWritten,
		"files_skipped": run.FilesSkipped,
		"files_failed":  run.FilesFailed,
		"forced":        run.Forced,
		"error":         run.Error,
	}
}

func runsToResponse(runs []catalog.Run) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToResponse(run))
	}
	return out
}
