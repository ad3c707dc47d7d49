package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nbacli/internal/awards"
	"nbacli/internal/config"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/exporter"
	"nbacli/internal/roster"
	"nbacli/internal/schedule"
)

// runScopeFromState reads the season selection, force flag and optional
// domain out of the operation config. Season lists arrive as []string
// from direct calls and as []interface{} from decoded JSON bodies.
func runScopeFromState(state *OperationState) (RunOptions, string) {
	var opts RunOptions
	var domain string

	if v, ok := state.GetConfig(ContextKeyDomain); ok {
		domain, _ = v.(string)
	}
	if v, ok := state.GetConfig(ContextKeySeason); ok {
		opts.Season, _ = v.(string)
	}
	if v, ok := state.GetConfig(ContextKeySeasons); ok {
		switch list := v.(type) {
		case []string:
			opts.Seasons = list
		case []interface{}:
			for _, e := range list {
				if s, ok := e.(string); ok {
					opts.Seasons = append(opts.Seasons, s)
				}
			}
		}
	}
	if v, ok := state.GetConfig(ContextKeyAllSeasons); ok {
		opts.AllSeasons, _ = v.(bool)
	}
	if v, ok := state.GetConfig(ContextKeyForce); ok {
		opts.Force, _ = v.(bool)
	}
	return opts, domain
}

// reportStepProgress mirrors a progress update into the step state and the
// status broadcaster.
func reportStepProgress(options *StepOptions, operationID, stepID string, stepState *StepState, progress int, message string) {
	if stepState != nil {
		stepState.UpdateProgress(float64(progress), message)
	}
	if options != nil && options.StatusBroadcaster != nil {
		options.StatusBroadcaster.UpdateStepProgress(operationID, stepID, progress, message)
	}
}

// recordRun hands a manifest to the configured recorder. Recording
// failures are logged, never propagated.
func recordRun(ctx context.Context, options *StepOptions, logger *slog.Logger, manifest *RunManifest) {
	if options == nil || options.Recorder == nil {
		return
	}
	if err := options.Recorder.RecordRun(ctx, manifest); err != nil {
		logger.Warn("run not recorded to catalog", "run_id", manifest.ID, "error", err)
	}
}

// appendManifests accumulates run manifests on the operation state so
// later steps and the response assembly can see what was produced.
func appendManifests(state *OperationState, manifests ...*RunManifest) {
	existing, _ := state.GetContext(ContextKeyManifests)
	list, _ := existing.([]*RunManifest)
	state.SetContext(ContextKeyManifests, append(list, manifests...))
}

// relReports rewrites every result path relative to the data root.
func relReports(paths *config.Paths, reports []exporter.WriteReport) []exporter.WriteReport {
	for i := range reports {
		for j := range reports[i].Results {
			reports[i].Results[j].Path = paths.RelPath(reports[i].Results[j].Path)
		}
	}
	return reports
}

// BuildRunManifest assembles a finished manifest from write reports, for
// runs driven outside the cleaning pipeline itself.
func BuildRunManifest(kind, domain string, seasons []string, force bool, reports []exporter.WriteReport, runErr error) *RunManifest {
	m := NewRunManifest(kind)
	m.SetScope(domain, seasons, force)
	for _, r := range reports {
		m.AddReport(r)
	}
	m.Finish(runErr)
	return m
}

// CleanStep runs the tabular cleaning pipeline across the stat domains.
type CleanStep struct {
	BaseStep
	pipeline *Pipeline
	logger   *slog.Logger
	options  *StepOptions
}

// NewCleanStep creates the cleaning step over an assembled pipeline.
func NewCleanStep(pipeline *Pipeline, logger *slog.Logger, options *StepOptions) *CleanStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanStep{
		BaseStep: NewBaseStep(StepIDClean, StepNameClean, nil),
		pipeline: pipeline,
		logger:   logger.With("step", StepIDClean),
		options:  options,
	}
}

// Validate rejects unknown domains and conflicting season selections
// before any file is touched.
func (s *CleanStep) Validate(state *OperationState) error {
	opts, domain := runScopeFromState(state)
	if domain != "" {
		if _, err := s.pipeline.Domains().Get(domain); err != nil {
			return err
		}
	}
	return opts.Validate()
}

// Execute cleans the requested domain, or every registered one. A domain
// without raw seasons is skipped; other domain failures are collected and
// the sweep continues until cancellation.
func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())
	opts, domain := runScopeFromState(state)

	names := s.pipeline.Domains().Names()
	if domain != "" {
		names = []string{domain}
	}

	s.logger.InfoContext(ctx, "cleaning step started",
		"operation_id", state.ID,
		"domains", len(names),
		"force", opts.Force)

	tracker := NewProgressTracker(s.ID(), len(names))
	var manifests []*RunManifest
	var errs []error

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		current, total, pct, _ := tracker.GetProgress()
		s.updateProgress(state.ID, stepState, 5+int(pct*0.9),
			fmt.Sprintf("Cleaning %s (%d/%d)...", name, current+1, total))

		manifest, err := s.pipeline.CleanDomain(ctx, name, opts)
		if manifest != nil {
			manifests = append(manifests, manifest)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				errs = append(errs, err)
				break
			}
			if errors.Is(err, apperrors.ErrNoSeasons) {
				s.logger.WarnContext(ctx, "domain has no raw seasons, skipped", "domain", name)
			} else {
				errs = append(errs, fmt.Errorf("domain %s: %w", name, err))
			}
		}
		tracker.Increment(name)
	}

	appendManifests(state, manifests...)

	written, skipped, failed, rows := 0, 0, 0, 0
	for _, m := range manifests {
		written += m.FilesWritten()
		skipped += m.FilesSkipped()
		failed += m.FilesFailed()
		rows += m.RowsWritten()
	}
	stepState.SetMetadata("domains_cleaned", len(manifests))
	stepState.SetMetadata("files_written", written)
	stepState.SetMetadata("files_skipped", skipped)
	stepState.SetMetadata("files_failed", failed)
	state.SetContext(ContextKeyRowsKept, rows)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cleaning: %w", err)
	}

	s.updateProgress(state.ID, stepState, 100,
		fmt.Sprintf("Cleaned %d domains: %d files written, %d skipped", len(manifests), written, skipped))
	return nil
}

func (s *CleanStep) updateProgress(operationID string, stepState *StepState, progress int, message string) {
	reportStepProgress(s.options, operationID, s.ID(), stepState, progress, message)
}

// RosterStep cleans the player roster and franchise tables.
type RosterStep struct {
	BaseStep
	cleaner *roster.Cleaner
	paths   *config.Paths
	logger  *slog.Logger
	options *StepOptions
}

// NewRosterStep creates the roster step.
func NewRosterStep(cleaner *roster.Cleaner, paths *config.Paths, logger *slog.Logger, options *StepOptions) *RosterStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterStep{
		BaseStep: NewBaseStep(StepIDRoster, StepNameRoster, nil),
		cleaner:  cleaner,
		paths:    paths,
		logger:   logger.With("step", StepIDRoster),
		options:  options,
	}
}

// Execute cleans both entity tables. The roster has no season scope, so
// only the force flag is read from the request.
func (s *RosterStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())
	opts, _ := runScopeFromState(state)

	s.logger.InfoContext(ctx, "roster step started",
		"operation_id", state.ID,
		"force", opts.Force)
	s.updateProgress(state.ID, stepState, 10, "Cleaning player and franchise tables...")

	results, err := s.cleaner.Clean(ctx, opts.Force)

	reports := make([]exporter.WriteReport, 0, len(results))
	rowsKept := 0
	for _, r := range results {
		reports = append(reports, r.Report)
		rowsKept += r.RowsOut
	}
	manifest := BuildRunManifest("roster", "", nil, opts.Force, relReports(s.paths, reports), err)
	recordRun(ctx, s.options, s.logger, manifest)
	appendManifests(state, manifest)

	stepState.SetMetadata("tables_cleaned", len(results))
	stepState.SetMetadata("rows_kept", rowsKept)
	stepState.SetMetadata("files_written", manifest.FilesWritten())

	if err != nil {
		return fmt.Errorf("roster cleaning: %w", err)
	}

	s.updateProgress(state.ID, stepState, 100,
		fmt.Sprintf("Roster tables cleaned: %d rows kept, %d files written", rowsKept, manifest.FilesWritten()))
	return nil
}

func (s *RosterStep) updateProgress(operationID string, stepState *StepState, progress int, message string) {
	reportStepProgress(s.options, operationID, s.ID(), stepState, progress, message)
}

// AwardsStep reshapes the award ballots, team selections and MVP table.
type AwardsStep struct {
	BaseStep
	cleaner *awards.Cleaner
	paths   *config.Paths
	logger  *slog.Logger
	options *StepOptions
}

// NewAwardsStep creates the awards step.
func NewAwardsStep(cleaner *awards.Cleaner, paths *config.Paths, logger *slog.Logger, options *StepOptions) *AwardsStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AwardsStep{
		BaseStep: NewBaseStep(StepIDAwards, StepNameAwards, nil),
		cleaner:  cleaner,
		paths:    paths,
		logger:   logger.With("step", StepIDAwards),
		options:  options,
	}
}

// Execute cleans whatever award files are on disk. Like the roster, the
// awards tree spans seasons, so only the force flag applies.
func (s *AwardsStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())
	opts, _ := runScopeFromState(state)

	s.logger.InfoContext(ctx, "awards step started",
		"operation_id", state.ID,
		"force", opts.Force)
	s.updateProgress(state.ID, stepState, 10, "Reshaping award ballots...")

	results, err := s.cleaner.Clean(ctx, opts.Force)

	reports := make([]exporter.WriteReport, 0, len(results))
	rowsKept := 0
	for _, r := range results {
		reports = append(reports, r.Report)
		rowsKept += r.RowsOut
	}
	manifest := BuildRunManifest("awards", awards.AwardsDomain, nil, opts.Force, relReports(s.paths, reports), err)
	recordRun(ctx, s.options, s.logger, manifest)
	appendManifests(state, manifest)

	stepState.SetMetadata("awards_cleaned", len(results))
	stepState.SetMetadata("rows_kept", rowsKept)
	stepState.SetMetadata("files_written", manifest.FilesWritten())

	if err != nil {
		return fmt.Errorf("awards cleaning: %w", err)
	}

	s.updateProgress(state.ID, stepState, 100,
		fmt.Sprintf("Awards reshaped: %d tables, %d files written", len(results), manifest.FilesWritten()))
	return nil
}

func (s *AwardsStep) updateProgress(operationID string, stepState *StepState, progress int, message string) {
	reportStepProgress(s.options, operationID, s.ID(), stepState, progress, message)
}

// ScheduleStep derives per-team schedules from the cleaned box scores
// produced by the cleaning step.
type ScheduleStep struct {
	BaseStep
	builder *schedule.Builder
	paths   *config.Paths
	logger  *slog.Logger
	options *StepOptions
}

// NewScheduleStep creates the schedule step. It depends on the cleaning
// step inside a full operation; alone it builds from whatever cleaned
// data is already on disk.
func NewScheduleStep(builder *schedule.Builder, paths *config.Paths, logger *slog.Logger, options *StepOptions) *ScheduleStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleStep{
		BaseStep: NewBaseStep(StepIDSchedule, StepNameSchedule, []string{StepIDClean}),
		builder:  builder,
		paths:    paths,
		logger:   logger.With("step", StepIDSchedule),
		options:  options,
	}
}

// Validate rejects conflicting season selections.
func (s *ScheduleStep) Validate(state *OperationState) error {
	opts, _ := runScopeFromState(state)
	return opts.Validate()
}

// Execute builds schedules for the selected seasons. Seasons without
// cleaned box scores are skipped; other failures are collected.
func (s *ScheduleStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())
	opts, _ := runScopeFromState(state)

	seasons, err := s.resolveSeasons(opts)
	if err != nil {
		return fmt.Errorf("schedule scope: %w", err)
	}

	s.logger.InfoContext(ctx, "schedule step started",
		"operation_id", state.ID,
		"seasons", seasons,
		"force", opts.Force)

	manifest := NewRunManifest("schedule")
	manifest.SetScope(schedule.ScheduleDomain, seasons, opts.Force)

	tracker := NewProgressTracker(s.ID(), len(seasons))
	var errs []error
	games := 0

	for _, season := range seasons {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		current, total, pct, _ := tracker.GetProgress()
		s.updateProgress(state.ID, stepState, 5+int(pct*0.9),
			fmt.Sprintf("Building %s schedules (%d/%d)...", season, current+1, total))

		result, err := s.builder.BuildSeason(ctx, season, opts.Force)
		if err != nil {
			if errors.Is(err, apperrors.ErrSourceMissing) || errors.Is(err, apperrors.ErrEmptySource) {
				s.logger.WarnContext(ctx, "season skipped, no cleaned box scores",
					"season", season, "error", err.Error())
				manifest.AddSkip(season, err.Error())
			} else {
				errs = append(errs, fmt.Errorf("season %s: %w", season, err))
			}
		}
		if result != nil {
			for i := range result.Report.Results {
				result.Report.Results[i].Path = s.paths.RelPath(result.Report.Results[i].Path)
			}
			manifest.AddReport(result.Report)
			games += result.RegularGames + result.PlayoffGames
		}
		tracker.Increment(season)
	}

	runErr := errors.Join(errs...)
	manifest.Finish(runErr)
	recordRun(ctx, s.options, s.logger, manifest)
	appendManifests(state, manifest)

	stepState.SetMetadata("seasons_built", len(seasons))
	stepState.SetMetadata("games_scheduled", games)
	stepState.SetMetadata("files_written", manifest.FilesWritten())

	if runErr != nil {
		return fmt.Errorf("schedule build: %w", runErr)
	}

	s.updateProgress(state.ID, stepState, 100,
		fmt.Sprintf("Schedules built: %d games across %d seasons", games, len(seasons)))
	return nil
}

// resolveSeasons expands the request scope the same way the pipeline
// does, except that the all-seasons sweep walks the cleaned tree the
// builder reads from.
func (s *ScheduleStep) resolveSeasons(opts RunOptions) ([]string, error) {
	switch {
	case opts.AllSeasons:
		return s.builder.SeasonsOnDisk()
	case len(opts.Seasons) > 0:
		return opts.Seasons, nil
	case opts.Season != "":
		return []string{opts.Season}, nil
	default:
		return []string{config.DefaultSeason}, nil
	}
}

func (s *ScheduleStep) updateProgress(operationID string, stepState *StepState, progress int, message string) {
	reportStepProgress(s.options, operationID, s.ID(), stepState, progress, message)
}

// ImportStep drains the external workbook pile into the raw tree so the
// cleaning step sees the new files.
type ImportStep struct {
	BaseStep
	importer *Importer
	logger   *slog.Logger
	options  *StepOptions
}

// NewImportStep creates the workbook import step. The importer carries
// its own catalog recorder, so the step never records runs itself.
func NewImportStep(importer *Importer, logger *slog.Logger, options *StepOptions) *ImportStep {
	if options == nil {
		options = &StepOptions{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportStep{
		BaseStep: NewBaseStep(StepIDImport, StepNameImport, nil),
		importer: importer,
		logger:   logger.With("step", StepIDImport),
		options:  options,
	}
}

// Execute imports every waiting workbook.
func (s *ImportStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())
	opts, _ := runScopeFromState(state)

	s.logger.InfoContext(ctx, "import step started",
		"operation_id", state.ID,
		"force", opts.Force)
	s.updateProgress(state.ID, stepState, 10, "Scanning external workbooks...")

	manifest, err := s.importer.ImportAll(ctx, opts.Force)
	if manifest != nil {
		appendManifests(state, manifest)
		stepState.SetMetadata("workbooks_written", manifest.FilesWritten())
		stepState.SetMetadata("workbooks_skipped", manifest.FilesSkipped())
		stepState.SetMetadata("workbooks_failed", manifest.FilesFailed())
	}
	if err != nil {
		return fmt.Errorf("workbook import: %w", err)
	}

	s.updateProgress(state.ID, stepState, 100,
		fmt.Sprintf("Workbook import finished: %d written, %d skipped", manifest.FilesWritten(), manifest.FilesSkipped()))
	return nil
}

func (s *ImportStep) updateProgress(operationID string, stepState *StepState, progress int, message string) {
	reportStepProgress(s.options, operationID, s.ID(), stepState, progress, message)
}

// RegisterDefaultSteps registers the production steps in pipeline order:
// import, clean, roster, awards, schedule.
func RegisterDefaultSteps(registry *Registry, importStep *ImportStep, cleanStep *CleanStep, rosterStep *RosterStep, awardsStep *AwardsStep, scheduleStep *ScheduleStep) error {
	steps := []Step{importStep, cleanStep, rosterStep, awardsStep, scheduleStep}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return nil
}
