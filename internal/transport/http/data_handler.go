package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"nbacli/internal/config"
	apierrors "nbacli/internal/errors"
	"nbacli/internal/services"
)

// DataHandler handles data-related HTTP requests with RFC 7807 compliance
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes with proper Chi patterns
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/domains", h.GetDomains)
	r.Get("/workbooks", h.GetWorkbooks)

	r.Route("/files", func(r chi.Router) {
		r.Use(h.DomainCtx)
		r.Get("/", h.GetFiles)
	})

	// Typed projections of the cleaned entity tables.
	r.Route("/records", func(r chi.Router) {
		r.Get("/players", h.GetPlayerRecords)
		r.Get("/franchises", h.GetFranchiseRecords)
		r.Get("/awards/{award}", h.GetAwardBallots)
		r.Get("/schedule/{season}", h.GetSeasonSchedule)
	})

	// Artifact downloads reach into season, team and month subtrees.
	r.Get("/download/{domain}/{filepath:.*}", h.DownloadArtifact)

	return r
}

// DomainCtx middleware validates the domain query parameter
func (h *DataHandler) DomainCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		domain := r.URL.Query().Get("domain")
		if domain == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("domain", "Stat domain is required"))
			return
		}

		if season := r.URL.Query().Get("season"); season != "" && !config.IsSeasonLabel(season) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("season", fmt.Sprintf("Season %q is not a label like 2024-25", season)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetDomains handles GET /api/data/domains with RFC 7807 errors
func (h *DataHandler) GetDomains(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching domains",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	domains, err := h.service.GetDomains(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get domains",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   domains,
		"count":  len(domains),
	})
}

// GetFiles handles GET /api/data/files?domain=&season= with RFC 7807 errors
func (h *DataHandler) GetFiles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	domain := r.URL.Query().Get("domain")
	season := r.URL.Query().Get("season")

	h.logger.InfoContext(r.Context(), "fetching files",
		slog.String("request_id", reqID),
		slog.String("domain", domain),
		slog.String("season", season),
	)

	listing, err := h.service.GetFiles(r.Context(), domain, season)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get files",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("domain", domain),
		)

		if errors.Is(err, apierrors.ErrUnknownDomain) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusNotFound,
				"UNKNOWN_DOMAIN",
				fmt.Sprintf("Stat domain '%s' is not registered", domain),
				map[string]interface{}{
					"domain": domain,
				},
			))
			return
		}
		if errors.Is(err, services.ErrInvalidSeason) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("season", err.Error()))
			return
		}

		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   listing,
	})
}

// GetWorkbooks handles GET /api/data/workbooks with RFC 7807 errors
func (h *DataHandler) GetWorkbooks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching workbooks",
		slog.String("request_id", reqID),
	)

	workbooks, err := h.service.GetWorkbooks(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get workbooks",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   workbooks,
		"count":  len(workbooks),
	})
}

// GetPlayerRecords handles GET /api/data/records/players
func (h *DataHandler) GetPlayerRecords(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.PlayerRecords(r.Context())
	if err != nil {
		h.handleRecordError(w, r, "players", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   players,
		"count":  len(players),
	})
}

// GetFranchiseRecords handles GET /api/data/records/franchises
func (h *DataHandler) GetFranchiseRecords(w http.ResponseWriter, r *http.Request) {
	franchises, err := h.service.FranchiseRecords(r.Context())
	if err != nil {
		h.handleRecordError(w, r, "franchises", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   franchises,
		"count":  len(franchises),
	})
}

// GetAwardBallots handles GET /api/data/records/awards/{award}
func (h *DataHandler) GetAwardBallots(w http.ResponseWriter, r *http.Request) {
	award := chi.URLParam(r, "award")
	shares, err := h.service.AwardBallots(r.Context(), award)
	if err != nil {
		h.handleRecordError(w, r, award, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"award":  award,
		"data":   shares,
		"count":  len(shares),
	})
}

// GetSeasonSchedule handles GET /api/data/records/schedule/{season}.
// The playoff table is selected with ?games=playoffs.
func (h *DataHandler) GetSeasonSchedule(w http.ResponseWriter, r *http.Request) {
	season := chi.URLParam(r, "season")
	playoffs := r.URL.Query().Get("games") == "playoffs"
	games, err := h.service.ScheduleGames(r.Context(), season, playoffs)
	if err != nil {
		h.handleRecordError(w, r, season, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"season": season,
		"data":   games,
		"count":  len(games),
	})
}

// handleRecordError maps record projection failures: a missing or empty
// cleaned artifact is 404, bad selectors are 400.
func (h *DataHandler) handleRecordError(w http.ResponseWriter, r *http.Request, subject string, err error) {
	reqID := middleware.GetReqID(r.Context())
	h.logger.ErrorContext(r.Context(), "failed to project records",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("subject", subject),
	)

	switch {
	case errors.Is(err, apierrors.ErrSourceMissing) || errors.Is(err, apierrors.ErrEmptySource):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"RECORDS_NOT_FOUND",
			fmt.Sprintf("No cleaned data for '%s'; run the pipeline first", subject),
			map[string]interface{}{"subject": subject},
		))
	case errors.Is(err, services.ErrInvalidSeason):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("season", err.Error()))
	case errors.Is(err, services.ErrInvalidArtifactPath):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("award", err.Error()))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// isResponseWritten reports whether a handler already sent a status.
func isResponseWritten(w http.ResponseWriter) bool {
	if ww, ok := w.(interface{ Status() int }); ok {
		return ww.Status() != 0
	}
	return false
}

// DownloadArtifact handles GET /api/data/download/{domain}/{filepath} with
// nested path support
func (h *DataHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	domain := chi.URLParam(r, "domain")
	rel := chi.URLParam(r, "filepath")

	// Decode the path so encoded slashes (%2F) reach the resolver.
	decodedPath, err := url.QueryUnescape(rel)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode filepath",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filepath", rel),
		)
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_PATH",
			"Invalid file path encoding",
			map[string]interface{}{
				"filepath": rel,
				"error":    err.Error(),
			},
		))
		return
	}

	h.logger.InfoContext(r.Context(), "downloading artifact",
		slog.String("request_id", reqID),
		slog.String("domain", domain),
		slog.String("filepath", decodedPath),
	)

	if err := h.service.DownloadFile(r.Context(), w, r, domain, decodedPath); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to download artifact",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("domain", domain),
			slog.String("filepath", decodedPath),
		)

		// Only handle error if response not yet written
		if !isResponseWritten(w) {
			switch {
			case errors.Is(err, apierrors.ErrUnknownDomain):
				h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
					http.StatusNotFound,
					"UNKNOWN_DOMAIN",
					fmt.Sprintf("Stat domain '%s' is not registered", domain),
					map[string]interface{}{
						"domain": domain,
					},
				))
			case errors.Is(err, services.ErrFileNotFound):
				h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
					http.StatusNotFound,
					"FILE_NOT_FOUND",
					fmt.Sprintf("Artifact '%s' not found", decodedPath),
					map[string]interface{}{
						"filepath": decodedPath,
					},
				))
			case errors.Is(err, services.ErrInvalidArtifactPath):
				h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filepath", "Artifact path is invalid"))
			default:
				h.errorHandler.HandleError(w, r, err)
			}
		}
	}
}
