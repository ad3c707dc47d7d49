package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/exporter"
	"nbacli/internal/files"
	"nbacli/internal/infrastructure"
)

// Phase identifies where a cleaning run currently is. Phases exist for
// observability only; they impose no behavior of their own.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseResolvingSeasons Phase = "resolving_seasons"
	PhaseReading          Phase = "reading"
	PhaseNormalizing      Phase = "normalizing"
	PhaseEnriching        Phase = "enriching"
	PhaseCoercing         Phase = "coercing"
	PhaseReducing         Phase = "reducing"
	PhaseWriting          Phase = "writing"
)

// PhaseListener receives phase transitions as a run progresses. The season
// argument is empty for transitions that are not tied to a single season.
type PhaseListener func(domain, season string, phase Phase)

// monthFileSuffix names the per-month output produced by domains with a
// month split enabled.
const monthFileSuffix = "_boxscores.csv"

// RunOptions selects which seasons a cleaning run covers and whether
// existing outputs are rewritten.
type RunOptions struct {
	Season     string
	Seasons    []string
	AllSeasons bool
	Force      bool
}

// Validate rejects conflicting or malformed season selections. At most one
// of Season, Seasons and AllSeasons may be set.
func (o RunOptions) Validate() error {
	selectors := 0
	if o.Season != "" {
		selectors++
	}
	if len(o.Seasons) > 0 {
		selectors++
	}
	if o.AllSeasons {
		selectors++
	}
	if selectors > 1 {
		return fmt.Errorf("season flags are mutually exclusive: pass one of -s, -S or -a")
	}

	if o.Season != "" && !config.IsSeasonLabel(o.Season) {
		return fmt.Errorf("invalid season label %q: want YYYY-YY", o.Season)
	}
	for _, s := range o.Seasons {
		if !config.IsSeasonLabel(s) {
			return fmt.Errorf("invalid season label %q: want YYYY-YY", s)
		}
	}
	return nil
}

// Pipeline runs the tabular cleaning flow for stat domains: read raw CSVs,
// normalize headers, enrich with derived keys, coerce numerics, reduce
// duplicates and write partitioned outputs.
type Pipeline struct {
	paths      *config.Paths
	domains    *DomainRegistry
	discovery  *files.Discovery
	normalizer *dataprocessing.Normalizer
	coercer    *dataprocessing.Coercer
	reducer    *dataprocessing.Reducer
	writer     *exporter.PartitionWriter
	logger     *slog.Logger

	metrics       *infrastructure.BusinessMetrics
	recorder      RunRecorder
	phase         PhaseListener
	defaultSeason string
}

// NewPipeline creates a cleaning pipeline over the given data root.
// A nil registry falls back to the built-in domains.
func NewPipeline(paths *config.Paths, domains *DomainRegistry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if domains == nil {
		domains = DefaultDomains()
	}
	return &Pipeline{
		paths:         paths,
		domains:       domains,
		discovery:     files.NewDiscovery(paths),
		normalizer:    dataprocessing.NewNormalizer(logger),
		coercer:       dataprocessing.NewCoercer(logger),
		reducer:       dataprocessing.NewReducer(logger),
		writer:        exporter.NewPartitionWriter(logger),
		logger:        logger,
		defaultSeason: config.DefaultSeason,
	}
}

// WithMetrics attaches business metrics to the pipeline.
func (p *Pipeline) WithMetrics(m *infrastructure.BusinessMetrics) *Pipeline {
	p.metrics = m
	return p
}

// WithRecorder attaches a catalog recorder that receives the manifest of
// every finished run.
func (p *Pipeline) WithRecorder(r RunRecorder) *Pipeline {
	p.recorder = r
	return p
}

// WithPhaseListener attaches a listener for phase transitions.
func (p *Pipeline) WithPhaseListener(l PhaseListener) *Pipeline {
	p.phase = l
	return p
}

// WithDefaultSeason overrides the season used when no selector is given.
func (p *Pipeline) WithDefaultSeason(season string) *Pipeline {
	if season != "" {
		p.defaultSeason = season
	}
	return p
}

// Domains exposes the registry the pipeline runs against.
func (p *Pipeline) Domains() *DomainRegistry {
	return p.domains
}

// ResolveSeasons expands the run options into the concrete season list for
// one domain. The default selection is the configured current season.
func (p *Pipeline) ResolveSeasons(domain string, opts RunOptions) ([]string, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch {
	case opts.AllSeasons:
		seasons, err := p.discovery.Seasons(domain)
		if err != nil {
			return nil, err
		}
		if len(seasons) == 0 {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrNoSeasons, p.paths.RawDomainDir(domain))
		}
		return seasons, nil
	case len(opts.Seasons) > 0:
		seasons := make([]string, len(opts.Seasons))
		copy(seasons, opts.Seasons)
		return seasons, nil
	case opts.Season != "":
		return []string{opts.Season}, nil
	default:
		return []string{p.defaultSeason}, nil
	}
}

// CleanDomain runs the full cleaning flow for one domain. A season whose
// raw directory is missing is skipped with a warning; the run only fails
// outright on cancellation or when the domain is unknown.
func (p *Pipeline) CleanDomain(ctx context.Context, domain string, opts RunOptions) (*RunManifest, error) {
	spec, err := p.domains.Get(domain)
	if err != nil {
		return nil, err
	}

	manifest := NewRunManifest("clean")
	p.setPhase(domain, "", PhaseResolvingSeasons)
	defer p.setPhase(domain, "", PhaseIdle)

	seasons, err := p.ResolveSeasons(domain, opts)
	if err != nil {
		manifest.SetScope(domain, nil, opts.Force)
		manifest.Finish(err)
		p.record(ctx, manifest)
		return manifest, err
	}
	manifest.SetScope(domain, seasons, opts.Force)

	logger := p.logger.With("domain", domain)
	logger.Info("cleaning run started",
		"run_id", manifest.ID,
		"seasons", seasons,
		"force", opts.Force)

	var runErr error
	for _, season := range seasons {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := p.cleanSeason(ctx, spec, season, opts.Force, manifest); err != nil {
			runErr = err
			break
		}
	}

	manifest.Finish(runErr)
	p.record(ctx, manifest)

	logger.Info("cleaning run finished",
		"run_id", manifest.ID,
		"status", manifest.Status,
		"written", manifest.FilesWritten(),
		"skipped", manifest.FilesSkipped(),
		"failed", manifest.FilesFailed())
	return manifest, runErr
}

// cleanSeason processes every raw file of one season across the domain's
// per-mode sub-directories. Only cancellation propagates as an error.
func (p *Pipeline) cleanSeason(ctx context.Context, spec DomainSpec, season string, force bool, manifest *RunManifest) error {
	logger := p.logger.With("domain", spec.Name, "season", season)

	var months map[string]*dataprocessing.Table
	if spec.MonthSplit {
		months = make(map[string]*dataprocessing.Table)
	}

	for _, mode := range spec.Modes() {
		infos, err := p.discovery.SeasonFiles(spec.Name, season, mode)
		if err != nil {
			rawDir := p.paths.RawSeasonDir(spec.Name, season, mode)
			if errors.Is(err, apperrors.ErrSourceMissing) {
				logger.Warn("season directory missing, skipped", "dir", rawDir)
				manifest.AddSkip(p.relPath(rawDir), "season directory missing")
			} else {
				logger.Warn("season directory unreadable", "dir", rawDir, "error", err)
				manifest.AddFailure(p.relPath(rawDir), err)
			}
			continue
		}
		if len(infos) == 0 {
			logger.Warn("no raw files found", "dir", p.paths.RawSeasonDir(spec.Name, season, mode))
			continue
		}

		for _, fi := range infos {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.cleanFile(ctx, spec, season, mode, fi, force, manifest, months)
		}
	}

	p.writeMonthFiles(ctx, spec, season, force, months, manifest)
	return nil
}

// cleanFile runs one raw file through the read, normalize, enrich, coerce,
// reduce and write phases. Failures are localized: they land in the
// manifest and never abort the season.
func (p *Pipeline) cleanFile(ctx context.Context, spec DomainSpec, season, mode string, fi files.FileInfo, force bool, manifest *RunManifest, months map[string]*dataprocessing.Table) {
	logger := p.logger.With("domain", spec.Name, "season", season, "file", fi.Name)

	p.setPhase(spec.Name, season, PhaseReading)
	t, err := dataprocessing.ReadTable(fi.Path)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmptySource):
			logger.Warn("empty source, skipped")
			manifest.AddSkip(p.relPath(fi.Path), "empty source")
			infrastructure.RecordCleanSkip(ctx, p.metrics, spec.Name, season)
		case errors.Is(err, apperrors.ErrSourceMissing):
			logger.Warn("source missing, skipped")
			manifest.AddSkip(p.relPath(fi.Path), "source missing")
			infrastructure.RecordCleanSkip(ctx, p.metrics, spec.Name, season)
		default:
			logger.Warn("source unreadable", "error", err)
			manifest.AddFailure(p.relPath(fi.Path), err)
		}
		return
	}

	rowsRead := t.NumRows()
	if rowsRead == 0 {
		logger.Warn("no data rows, skipped")
		manifest.AddSkip(p.relPath(fi.Path), "no data rows")
		infrastructure.RecordCleanSkip(ctx, p.metrics, spec.Name, season)
		return
	}

	p.setPhase(spec.Name, season, PhaseNormalizing)
	for old, name := range spec.PreRenames {
		t.RenameColumn(old, name)
	}
	p.normalizer.NormalizeHeader(t)
	for old, name := range canonicalSynonyms {
		t.RenameColumn(old, name)
	}
	for old, name := range spec.Renames {
		t.RenameColumn(old, name)
	}

	p.setPhase(spec.Name, season, PhaseEnriching)
	p.enrich(ctx, spec, t, season, mode, fi.Name, logger)

	p.setPhase(spec.Name, season, PhaseCoercing)
	stats := p.coercer.CoerceNumeric(t, spec.Exclude)
	infrastructure.RecordCleanCoercions(ctx, p.metrics, spec.Name, season, int64(stats.ToMissing))

	p.setPhase(spec.Name, season, PhaseReducing)
	if dropped := p.reducer.DropExactDuplicates(t); dropped > 0 {
		logger.Info("duplicate rows dropped", "rows", dropped)
	}
	if t.NumRows() == 0 {
		logger.Warn("no rows after cleaning, skipped")
		manifest.AddSkip(p.relPath(fi.Path), "no rows after cleaning")
		infrastructure.RecordCleanSkip(ctx, p.metrics, spec.Name, season)
		return
	}

	p.setPhase(spec.Name, season, PhaseWriting)
	if len(spec.SortKeys) > 0 {
		t.SortBy(spec.SortKeys...)
	}
	if spec.MonthSplit {
		p.bucketByMonth(t, months, logger)
	}

	primary := filepath.Join(p.paths.ProcessedSeasonDir(spec.Name, season, mode), fi.Name)

	var specs []exporter.PartitionSpec
	if spec.TeamSplit {
		if t.HasColumn("team") {
			name := fi.Name
			specs = append(specs, exporter.PartitionSpec{
				Column: "team",
				PathFor: func(team string) string {
					return filepath.Join(p.paths.ProcessedTeamDir(spec.Name, season, mode, team), name)
				},
			})
		} else {
			logger.Warn("no team column, per-team split skipped")
		}
	}

	report := p.writer.Write(t, primary, specs, force)
	p.addReport(manifest, report)

	infrastructure.RecordCleanFileMetrics(ctx, p.metrics, spec.Name, season, int64(rowsRead), int64(t.NumRows()))
	infrastructure.RecordCleanWriteOutcomes(ctx, p.metrics, spec.Name, season,
		int64(report.Written()), int64(report.Skipped()), int64(report.Failed()))
}

// enrich adds the derived key columns: season labels and bounds, season
// type, per mode, normalized game dates, matchup sides and the
// standardized team code.
func (p *Pipeline) enrich(ctx context.Context, spec DomainSpec, t *dataprocessing.Table, season, mode, filename string, logger *slog.Logger) {
	setOrAddConstant(t, "season", dataprocessing.Text(season))
	seasonType := strings.TrimSuffix(filename, filepath.Ext(filename))
	setOrAddConstant(t, "season_type", dataprocessing.Text(seasonType))
	if mode != "" {
		setOrAddConstant(t, "per_mode", dataprocessing.Text(mode))
	}

	span, err := dataprocessing.ParseSeasonSpan(season)
	if err != nil {
		logger.Warn("season bounds not derived", "error", err)
		infrastructure.RecordCleanDeriveFailures(ctx, p.metrics, spec.Name, season, 1)
	} else {
		setOrAddConstant(t, "season_start", dataprocessing.Number(float64(span.Start)))
		setOrAddConstant(t, "season_end", dataprocessing.Number(float64(span.End)))
	}

	if t.HasColumn("game_date") {
		failures := 0
		for i := 0; i < t.NumRows(); i++ {
			v := t.At(i, "game_date")
			if v.IsMissing() {
				continue
			}
			nv := dataprocessing.NormalizeGameDate(v)
			if nv.IsMissing() {
				failures++
			}
			t.Set(i, "game_date", nv)
		}
		if failures > 0 {
			logger.Warn("unparseable game dates set to missing", "rows", failures)
			infrastructure.RecordCleanDeriveFailures(ctx, p.metrics, spec.Name, season, int64(failures))
		}
	}

	if spec.MatchupSplit {
		splitMatchup(t)
	}
	if spec.TeamSplit {
		standardizeTeams(t)
	}
}

// splitMatchup derives home, away and is_home from the "TEAM vs. OPP" and
// "TEAM @ OPP" matchup notations. Unrecognized values leave all three
// columns missing for that row.
func splitMatchup(t *dataprocessing.Table) {
	if !t.HasColumn("matchup") {
		return
	}

	n := t.NumRows()
	home := make([]dataprocessing.Value, n)
	away := make([]dataprocessing.Value, n)
	isHome := make([]dataprocessing.Value, n)
	for i := 0; i < n; i++ {
		home[i] = dataprocessing.Missing()
		away[i] = dataprocessing.Missing()
		isHome[i] = dataprocessing.Missing()

		v := t.At(i, "matchup")
		if v.IsMissing() {
			continue
		}
		raw := v.String()

		var sides []string
		homeGame := false
		switch {
		case strings.Contains(raw, " vs. "):
			sides = strings.SplitN(raw, " vs. ", 2)
			homeGame = true
		case strings.Contains(raw, " @ "):
			sides = strings.SplitN(raw, " @ ", 2)
		default:
			continue
		}

		a := strings.TrimSpace(sides[0])
		b := strings.TrimSpace(sides[1])
		if a == "" || b == "" {
			continue
		}
		if homeGame {
			home[i] = dataprocessing.Text(a)
			away[i] = dataprocessing.Text(b)
			isHome[i] = dataprocessing.Number(1)
		} else {
			home[i] = dataprocessing.Text(b)
			away[i] = dataprocessing.Text(a)
			isHome[i] = dataprocessing.Number(0)
		}
	}

	setOrAddValues(t, "home", home)
	setOrAddValues(t, "away", away)
	setOrAddValues(t, "is_home", isHome)
}

// setOrAddConstant stamps every row of the named column with one value,
// appending the column when the source did not carry it. Derived columns
// always win over whatever the export held.
func setOrAddConstant(t *dataprocessing.Table, name string, v dataprocessing.Value) {
	if t.HasColumn(name) {
		for i := 0; i < t.NumRows(); i++ {
			t.Set(i, name, v)
		}
		return
	}
	t.AddColumnFunc(name, func(int) dataprocessing.Value { return v })
}

// setOrAddValues writes one value per row into the named column,
// appending the column when absent.
func setOrAddValues(t *dataprocessing.Table, name string, values []dataprocessing.Value) {
	if t.HasColumn(name) {
		for i := 0; i < t.NumRows() && i < len(values); i++ {
			t.Set(i, name, values[i])
		}
		return
	}
	t.AddColumn(name, values)
}

// standardizeTeams resolves each row's team code through the candidate
// column priority and rewrites the team column in place. Rows without a
// derivable code become missing so the per-team split passes over them.
func standardizeTeams(t *dataprocessing.Table) {
	n := t.NumRows()
	codes := make([]dataprocessing.Value, n)
	derived := false
	for i := 0; i < n; i++ {
		code := dataprocessing.DeriveTeamCode(t, i)
		if code == "" {
			codes[i] = dataprocessing.Missing()
			continue
		}
		codes[i] = dataprocessing.Text(code)
		derived = true
	}

	if t.HasColumn("team") {
		for i := 0; i < n; i++ {
			t.Set(i, "team", codes[i])
		}
		return
	}
	if derived {
		t.AddColumn("team", codes)
	}
}

// bucketByMonth appends each row to its month bucket keyed by the game
// date's lowercase month abbreviation. The table itself is left without
// the helper column afterwards.
func (p *Pipeline) bucketByMonth(t *dataprocessing.Table, months map[string]*dataprocessing.Table, logger *slog.Logger) {
	if !t.HasColumn("game_date") {
		logger.Warn("no game_date column, month split skipped")
		return
	}

	t.AddColumnFunc("mon", func(i int) dataprocessing.Value {
		return dataprocessing.DeriveMonthAbbrev(t.At(i, "game_date"))
	})

	groups, skipped := t.GroupBy("mon")
	if skipped > 0 {
		logger.Warn("rows without a derivable month", "rows", skipped)
	}
	for _, g := range groups {
		g.Table.DropColumns("mon")
		bucket := months[g.Key]
		if bucket == nil {
			bucket = dataprocessing.NewTable(nil)
			months[g.Key] = bucket
		}
		bucket.AppendTable(g.Table)
	}

	t.DropColumns("mon")
}

// writeMonthFiles flushes the accumulated month buckets for one season.
func (p *Pipeline) writeMonthFiles(ctx context.Context, spec DomainSpec, season string, force bool, months map[string]*dataprocessing.Table, manifest *RunManifest) {
	if len(months) == 0 {
		return
	}

	keys := make([]string, 0, len(months))
	for mon := range months {
		keys = append(keys, mon)
	}
	sort.Strings(keys)

	for _, mon := range keys {
		bucket := months[mon]
		if bucket.NumRows() == 0 {
			continue
		}
		path := filepath.Join(p.paths.ProcessedMonthDir(spec.Name, season, mon), mon+monthFileSuffix)
		report := p.writer.Write(bucket, path, nil, force)
		p.addReport(manifest, report)
		infrastructure.RecordCleanWriteOutcomes(ctx, p.metrics, spec.Name, season,
			int64(report.Written()), int64(report.Skipped()), int64(report.Failed()))
	}
}

// CleanAll runs every registered domain in registration order against the
// same options. Per-domain failures are collected; cancellation stops the
// sweep.
func (p *Pipeline) CleanAll(ctx context.Context, opts RunOptions) ([]*RunManifest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var manifests []*RunManifest
	var errs []error
	for _, domain := range p.domains.Names() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		manifest, err := p.CleanDomain(ctx, domain, opts)
		if manifest != nil {
			manifests = append(manifests, manifest)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("domain %s: %w", domain, err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
		}
	}
	return manifests, errors.Join(errs...)
}

func (p *Pipeline) setPhase(domain, season string, phase Phase) {
	if p.phase != nil {
		p.phase(domain, season, phase)
	}
}

// record hands the finished manifest to the catalog recorder. Recording
// failures are logged, never propagated.
func (p *Pipeline) record(ctx context.Context, manifest *RunManifest) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordRun(ctx, manifest); err != nil {
		p.logger.Warn("run not recorded to catalog", "run_id", manifest.ID, "error", err)
	}
}

func (p *Pipeline) relPath(path string) string {
	return p.paths.RelPath(path)
}

// addReport folds a write report into the manifest with catalog-relative
// paths.
func (p *Pipeline) addReport(manifest *RunManifest, report exporter.WriteReport) {
	for i := range report.Results {
		report.Results[i].Path = p.relPath(report.Results[i].Path)
	}
	manifest.AddReport(report)
}
