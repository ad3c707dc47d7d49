package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/exporter"
	"nbacli/internal/files"
	"nbacli/internal/infrastructure"
)

// workbookRoute is the raw-tree destination parsed from a workbook
// file name.
type workbookRoute struct {
	Domain  string
	Season  string
	SubMode string
	File    string
}

// Importer drains the external data root: every waiting workbook is
// converted to a raw CSV in the domain tree so the next cleaning run
// picks it up like any scraped file. Workbook names carry their own
// destination: domain__season[__mode]__name.xlsx.
type Importer struct {
	paths     *config.Paths
	domains   *DomainRegistry
	discovery *files.Discovery
	workbooks *dataprocessing.WorkbookImporter
	writer    *exporter.PartitionWriter
	logger    *slog.Logger

	metrics  *infrastructure.BusinessMetrics
	recorder RunRecorder
}

// NewImporter creates a workbook importer over the given data root. A nil
// registry falls back to the built-in domains.
func NewImporter(paths *config.Paths, domains *DomainRegistry, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if domains == nil {
		domains = DefaultDomains()
	}
	return &Importer{
		paths:     paths,
		domains:   domains,
		discovery: files.NewDiscovery(paths),
		workbooks: dataprocessing.NewWorkbookImporter(logger),
		writer:    exporter.NewPartitionWriter(logger),
		logger:    logger,
	}
}

// WithMetrics attaches business metrics to the importer.
func (i *Importer) WithMetrics(m *infrastructure.BusinessMetrics) *Importer {
	i.metrics = m
	return i
}

// WithRecorder attaches a catalog recorder that receives the manifest of
// every finished import run.
func (i *Importer) WithRecorder(r RunRecorder) *Importer {
	i.recorder = r
	return i
}

// ImportAll converts every workbook under the external root, oldest
// first. A workbook that cannot be routed or read is skipped or recorded
// as failed; the rest of the pile still imports. Only cancellation and an
// unreadable external root abort the run.
func (i *Importer) ImportAll(ctx context.Context, force bool) (*RunManifest, error) {
	manifest := NewRunManifest("import")
	manifest.SetScope("", nil, force)

	workbooks, err := i.discovery.FindWorkbooks()
	if err != nil {
		manifest.Finish(err)
		i.record(ctx, manifest)
		return manifest, err
	}
	if len(workbooks) == 0 {
		i.logger.Info("no workbooks waiting for import", "dir", i.paths.ExternalDir)
		manifest.Finish(nil)
		i.record(ctx, manifest)
		return manifest, nil
	}

	i.logger.Info("workbook import started",
		"run_id", manifest.ID,
		"workbooks", len(workbooks),
		"force", force)

	var runErr error
	for _, wb := range workbooks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		route, err := i.routeWorkbook(wb.Name)
		if err != nil {
			i.logger.Warn("workbook skipped", "workbook", wb.Name, "error", err.Error())
			manifest.AddSkip(wb.Name, err.Error())
			continue
		}

		table, err := i.workbooks.Import(wb.Path, "")
		if err != nil {
			if errors.Is(err, apperrors.ErrEmptySource) {
				i.logger.Warn("workbook empty, skipped", "workbook", wb.Name)
				manifest.AddSkip(wb.Name, err.Error())
				continue
			}
			i.logger.Error("workbook import failed", "workbook", wb.Name, "error", err.Error())
			manifest.AddFailure(wb.Name, err)
			continue
		}

		dest := filepath.Join(i.paths.RawSeasonDir(route.Domain, route.Season, route.SubMode), route.File)
		report := i.writer.Write(table, dest, nil, force)
		i.addReport(manifest, report)
		infrastructure.RecordCleanFileMetrics(ctx, i.metrics, "import", route.Season,
			int64(table.NumRows()), int64(report.RowsWritten()))
		infrastructure.RecordCleanWriteOutcomes(ctx, i.metrics, "import", route.Season,
			int64(report.Written()), int64(report.Skipped()), int64(report.Failed()))

		i.logger.Info("workbook imported",
			"workbook", wb.Name,
			"dest", i.relPath(dest),
			"rows", table.NumRows(),
			"written", report.Written() > 0)
	}

	manifest.Finish(runErr)
	i.record(ctx, manifest)

	i.logger.Info("workbook import finished",
		"run_id", manifest.ID,
		"status", manifest.Status,
		"written", manifest.FilesWritten(),
		"skipped", manifest.FilesSkipped(),
		"failed", manifest.FilesFailed())
	return manifest, runErr
}

// routeWorkbook resolves the raw-tree destination encoded in a workbook
// file name. Domains carrying sub-modes must name one; others must not.
func (i *Importer) routeWorkbook(name string) (workbookRoute, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	segs := strings.Split(stem, "__")
	if len(segs) < 3 || len(segs) > 4 {
		return workbookRoute{}, fmt.Errorf("workbook name %q: want domain__season[__mode]__name", name)
	}

	route := workbookRoute{
		Domain: segs[0],
		Season: segs[1],
		File:   segs[len(segs)-1] + ".csv",
	}
	if len(segs) == 4 {
		route.SubMode = segs[2]
	}

	spec, err := i.domains.Get(route.Domain)
	if err != nil {
		return workbookRoute{}, err
	}
	if !config.IsSeasonLabel(route.Season) {
		return workbookRoute{}, fmt.Errorf("invalid season label %q in workbook name %q", route.Season, name)
	}

	if len(spec.SubModes) == 0 {
		if route.SubMode != "" {
			return workbookRoute{}, fmt.Errorf("domain %s takes no mode, got %q in workbook name %q", route.Domain, route.SubMode, name)
		}
		return route, nil
	}
	if route.SubMode == "" {
		return workbookRoute{}, fmt.Errorf("domain %s requires a mode (%s) in workbook name %q",
			route.Domain, strings.Join(spec.SubModes, ", "), name)
	}
	for _, mode := range spec.SubModes {
		if mode == route.SubMode {
			return route, nil
		}
	}
	return workbookRoute{}, fmt.Errorf("domain %s has no mode %q (have %s)",
		route.Domain, route.SubMode, strings.Join(spec.SubModes, ", "))
}

// record hands the finished manifest to the catalog recorder. Recording
// failures are logged, never propagated.
func (i *Importer) record(ctx context.Context, manifest *RunManifest) {
	if i.recorder == nil {
		return
	}
	if err := i.recorder.RecordRun(ctx, manifest); err != nil {
		i.logger.Warn("run not recorded to catalog", "run_id", manifest.ID, "error", err)
	}
}

func (i *Importer) relPath(path string) string {
	return i.paths.RelPath(path)
}

// addReport folds a write report into the manifest with catalog-relative
// paths.
func (i *Importer) addReport(manifest *RunManifest, report exporter.WriteReport) {
	for j := range report.Results {
		report.Results[j].Path = i.relPath(report.Results[j].Path)
	}
	manifest.AddReport(report)
}
