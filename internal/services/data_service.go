package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"nbacli/internal/awards"
	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/files"
	"nbacli/internal/operations"
	"nbacli/internal/roster"
	"nbacli/internal/schedule"
	"nbacli/pkg/contracts/domain"
)

// DataService exposes the cleaned data tree to the API: registered
// domains, the artifacts under them, and pending workbook imports.
type DataService struct {
	config    *config.Config
	paths     *config.Paths
	domains   *operations.DomainRegistry
	discovery *files.Discovery
	manager   *files.Manager
	logger    *slog.Logger
}

// NewDataService creates a new data service using default logger
func NewDataService(cfg *config.Config) (*DataService, error) {
	return NewDataServiceWithLogger(cfg, slog.Default())
}

// NewDataServiceWithLogger creates a new data service with a specific logger
func NewDataServiceWithLogger(cfg *config.Config, logger *slog.Logger) (*DataService, error) {
	paths, err := resolveServicePaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("DataService initialized with paths",
		slog.String("data_dir", paths.DataDir),
		slog.String("processed_dir", paths.ProcessedDir),
		slog.String("external_dir", paths.ExternalDir))

	return &DataService{
		config:    cfg,
		paths:     paths,
		domains:   operations.DefaultDomains(),
		discovery: files.NewDiscovery(paths),
		manager:   files.NewManager(paths),
		logger:    logger,
	}, nil
}

// resolveServicePaths anchors the path set at the configured data
// directory, falling back to the executable-relative default.
func resolveServicePaths(cfg *config.Config) (*config.Paths, error) {
	if cfg != nil {
		return cfg.ResolvePaths()
	}
	return config.GetPaths()
}

// Domains returns the registry the service answers for.
func (ds *DataService) Domains() *operations.DomainRegistry {
	return ds.domains
}

// GetDomains returns every registered domain together with the seasons
// present on disk, raw and cleaned.
func (ds *DataService) GetDomains(ctx context.Context) ([]map[string]interface{}, error) {
	specs := ds.domains.List()

	result := make([]map[string]interface{}, 0, len(specs))
	for _, spec := range specs {
		rawSeasons, err := ds.discovery.Seasons(spec.Name)
		if err != nil {
			// A missing raw tree is normal on a serving-only node.
			ds.logger.Debug("raw seasons unavailable",
				slog.String("domain", spec.Name),
				slog.String("error", err.Error()))
			rawSeasons = nil
		}
		processedSeasons, err := ds.discovery.ProcessedSeasons(spec.Name)
		if err != nil {
			ds.logger.Warn("processed seasons unavailable",
				slog.String("domain", spec.Name),
				slog.String("error", err.Error()))
			processedSeasons = nil
		}

		result = append(result, map[string]interface{}{
			"name":              spec.Name,
			"title":             spec.Title,
			"sub_modes":         spec.SubModes,
			"raw_seasons":       rawSeasons,
			"processed_seasons": processedSeasons,
		})
	}

	ds.logger.DebugContext(ctx, "GetDomains: listed registry",
		slog.Int("domains", len(result)))

	return result, nil
}

// GetFiles returns the cleaned artifact listing for one domain, optionally
// narrowed to a season. Paths are relative to the domain's processed root,
// the form the download endpoint accepts.
func (ds *DataService) GetFiles(ctx context.Context, domain, season string) (map[string]interface{}, error) {
	if !ds.domains.Has(domain) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownDomain, domain)
	}
	if season != "" && !config.IsSeasonLabel(season) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeason, season)
	}

	artifacts, err := ds.discovery.ProcessedArtifacts(domain, season)
	if err != nil {
		logDataError(ctx, "get_files", "failed to scan processed tree",
			slog.String("domain", domain),
			slog.String("season", season),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("list artifacts for %s: %w", domain, err)
	}

	fileList := make([]map[string]interface{}, 0, len(artifacts))
	for _, a := range artifacts {
		fileList = append(fileList, map[string]interface{}{
			"name":     a.Name,
			"path":     a.Rel,
			"size":     a.Size,
			"modified": a.ModTime,
		})
	}

	ds.logger.DebugContext(ctx, "GetFiles: scanned processed tree",
		slog.String("domain", domain),
		slog.String("season", season),
		slog.Int("files", len(fileList)))

	return map[string]interface{}{
		"domain": domain,
		"season": season,
		"files":  fileList,
		"count":  len(fileList),
	}, nil
}

// GetWorkbooks lists the spreadsheet exports waiting under the external
// root for the next import run.
func (ds *DataService) GetWorkbooks(ctx context.Context) ([]map[string]interface{}, error) {
	workbooks, err := ds.discovery.FindWorkbooks()
	if err != nil {
		logDataError(ctx, "get_workbooks", "failed to scan external root",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("list workbooks: %w", err)
	}

	result := make([]map[string]interface{}, 0, len(workbooks))
	for _, wb := range workbooks {
		result = append(result, map[string]interface{}{
			"name":     wb.Name,
			"size":     wb.Size,
			"modified": wb.ModTime,
		})
	}
	return result, nil
}

// DownloadFile serves one cleaned artifact. The relative path may reach
// into season, team and month subdirectories; anything that would escape
// the domain's processed tree is rejected.
func (ds *DataService) DownloadFile(ctx context.Context, w http.ResponseWriter, r *http.Request, domain, rel string) error {
	if !ds.domains.Has(domain) {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownDomain, domain)
	}

	full, err := ds.manager.ResolveProcessed(domain, rel)
	if err != nil {
		ds.logger.Warn("rejected artifact path",
			slog.String("domain", domain),
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s", ErrInvalidArtifactPath, rel)
	}

	if !ds.manager.FileExists(full) {
		ds.logger.Warn("artifact not found",
			slog.String("domain", domain),
			slog.String("path", rel),
			slog.String("resolved", full))
		return fmt.Errorf("%w: %s", ErrFileNotFound, rel)
	}

	ds.logger.DebugContext(ctx, "DownloadFile: serving artifact",
		slog.String("domain", domain),
		slog.String("path", rel))

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(full)))
	w.Header().Set("Content-Type", "text/csv")

	http.ServeFile(w, r, full)
	return nil
}

// PlayerRecords loads the cleaned roster as typed player records.
func (ds *DataService) PlayerRecords(ctx context.Context) ([]domain.Player, error) {
	t, err := dataprocessing.ReadTable(roster.PlayersFile(ds.paths))
	if err != nil {
		return nil, fmt.Errorf("read cleaned roster: %w", err)
	}
	ds.logger.DebugContext(ctx, "PlayerRecords: projected roster",
		slog.Int("players", t.NumRows()))
	return roster.PlayerRecords(t), nil
}

// FranchiseRecords loads the cleaned franchise table as typed records.
func (ds *DataService) FranchiseRecords(ctx context.Context) ([]domain.Franchise, error) {
	t, err := dataprocessing.ReadTable(roster.FranchisesFile(ds.paths))
	if err != nil {
		return nil, fmt.Errorf("read cleaned franchises: %w", err)
	}
	ds.logger.DebugContext(ctx, "FranchiseRecords: projected franchises",
		slog.Int("franchises", t.NumRows()))
	return roster.FranchiseRecords(t), nil
}

// AwardBallots loads one award's cleaned ballot table as typed shares.
// The award name selects a file, so separators are rejected outright.
func (ds *DataService) AwardBallots(ctx context.Context, award string) ([]domain.AwardShare, error) {
	if award == "" || strings.ContainsAny(award, `/\.`) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArtifactPath, award)
	}
	t, err := dataprocessing.ReadTable(awards.BallotFile(ds.paths, award))
	if err != nil {
		return nil, fmt.Errorf("read cleaned ballots for %s: %w", award, err)
	}
	ds.logger.DebugContext(ctx, "AwardBallots: projected ballots",
		slog.String("award", award),
		slog.Int("rows", t.NumRows()))
	return awards.BallotRecords(t), nil
}

// ScheduleGames loads one season's derived schedule as typed games.
func (ds *DataService) ScheduleGames(ctx context.Context, season string, playoffs bool) ([]domain.ScheduleGame, error) {
	if !config.IsSeasonLabel(season) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeason, season)
	}
	t, err := dataprocessing.ReadTable(schedule.SeasonFile(ds.paths, season, playoffs))
	if err != nil {
		return nil, fmt.Errorf("read schedule for %s: %w", season, err)
	}
	ds.logger.DebugContext(ctx, "ScheduleGames: projected schedule",
		slog.String("season", season),
		slog.Bool("playoffs", playoffs),
		slog.Int("games", t.NumRows()))
	return schedule.GameRecords(t, season), nil
}

// LastModified reports the newest artifact change for cache validation.
func (ds *DataService) LastModified(ctx context.Context, domain string) (time.Time, error) {
	artifacts, err := ds.discovery.ProcessedArtifacts(domain, "")
	if err != nil {
		return time.Time{}, err
	}
	var newest time.Time
	for _, a := range artifacts {
		if a.ModTime.After(newest) {
			newest = a.ModTime
		}
	}
	return newest, nil
}
