package roster

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
	"nbacli/internal/infrastructure"
	"nbacli/pkg/contracts/domain"
)

const (
	// PlayersDomain and FranchisesDomain name the processed subtrees the
	// cleaned entity tables land in.
	PlayersDomain    = "players"
	FranchisesDomain = "teams"

	playersOutFile    = "all_players.csv"
	franchisesOutFile = "franchises.csv"

	// defaultBirthdate substitutes for unparseable or absent birthdates.
	defaultBirthdate = "1980-01-01"

	// retireeSparsityThreshold is how many core bio fields may be missing
	// before a retired player's row is pruned.
	retireeSparsityThreshold = 4
)

// rosterCoreColumns are the bio fields counted when judging whether a
// retired player's row is too sparse to keep.
var rosterCoreColumns = []string{
	"height", "weight", "position", "country",
	"birthdate", "draft_year", "draft_pick", "experience",
}

// rosterSynonyms maps normalized header variants from different export
// vintages onto the canonical roster schema.
var rosterSynonyms = map[string]string{
	"player_name":       "player",
	"pos":               "position",
	"ht":                "height",
	"wt":                "weight",
	"exp":               "experience",
	"birth_date":        "birthdate",
	"team_abbreviation": "team",
	"profile":           "profile_url",
	"headshot":          "headshot_url",
}

// rosterExclude lists the textual roster columns numeric coercion must
// leave untouched.
var rosterExclude = []string{
	"player", "player_id", "pid", "team", "position", "alt_positions",
	"country", "school", "college", "last_attended", "birthdate",
	"headshot_url", "profile_url", "draft_status", "is_retired",
}

// franchiseSynonyms maps normalized franchise header variants onto the
// canonical schema.
var franchiseSynonyms = map[string]string{
	"short_code":        "code",
	"abbreviation":      "code",
	"team_abbreviation": "code",
	"team_name":         "name",
	"full_name":         "name",
	"conferencename":    "conference",
	"divisionname":      "division",
}

// franchiseExclude lists the textual franchise columns numeric coercion
// must leave untouched.
var franchiseExclude = []string{
	"code", "name", "nickname", "city", "state", "arena", "owner",
	"head_coach", "conference", "division", "team_url", "logo_url",
	"is_active",
}

// Result summarizes one entity-table cleaning pass.
type Result struct {
	Table      string
	Source     string
	RowsIn     int
	RowsOut    int
	Duplicates int
	Pruned     int
	Report     exporter.WriteReport
}

// Cleaner cleans the all-players roster and the franchise list into the
// processed tree. The headshot CDN endpoints come from configuration so
// alternate mirrors can be swapped in without a rebuild.
type Cleaner struct {
	paths      *config.Paths
	normalizer *dataprocessing.Normalizer
	coercer    *dataprocessing.Coercer
	reducer    *dataprocessing.Reducer
	writer     *exporter.PartitionWriter
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics

	headshotCDN string
	fallbackURL string
}

// NewCleaner creates a roster cleaner over the given data root.
func NewCleaner(paths *config.Paths, pipeline config.PipelineConfig, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		paths:       paths,
		normalizer:  dataprocessing.NewNormalizer(logger),
		coercer:     dataprocessing.NewCoercer(logger),
		reducer:     dataprocessing.NewReducer(logger),
		writer:      exporter.NewPartitionWriter(logger),
		logger:      logger,
		headshotCDN: strings.TrimRight(pipeline.HeadshotCDN, "/"),
		fallbackURL: pipeline.HeadshotFallbackURL,
	}
}

// WithMetrics attaches business metrics recording.
func (c *Cleaner) WithMetrics(m *infrastructure.BusinessMetrics) *Cleaner {
	c.metrics = m
	return c
}

// Clean runs both entity tables. Missing or empty sources are skipped
// with a warning; other failures are collected and returned together.
func (c *Cleaner) Clean(ctx context.Context, force bool) ([]*Result, error) {
	var results []*Result
	var errs []error

	for _, run := range []func(context.Context, bool) (*Result, error){
		c.CleanPlayers,
		c.CleanFranchises,
	} {
		result, err := run(ctx, force)
		switch {
		case err == nil:
			results = append(results, result)
		case errors.Is(err, apperrors.ErrSourceMissing) || errors.Is(err, apperrors.ErrEmptySource):
			c.logger.Warn("entity table skipped", "error", err)
		default:
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// CleanPlayers cleans the all-players bio table: profile-URL IDs, headshot
// repair, team sentinels, position/height/weight/experience parsing, draft
// splitting, retiree pruning, player keys, then the partitioned write.
func (c *Cleaner) CleanPlayers(ctx context.Context, force bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := c.paths.RawPlayersCSV
	logger := c.logger.With("table", PlayersDomain, "source", source)

	t, err := dataprocessing.ReadTable(source)
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", apperrors.ErrEmptySource, source)
	}
	rowsIn := t.NumRows()

	c.normalizer.NormalizeHeader(t)
	for old, name := range rosterSynonyms {
		t.RenameColumn(old, name)
	}
	if !t.HasColumn("player") {
		return nil, fmt.Errorf("%w: player", apperrors.ErrMissingColumn)
	}
	c.ensureColumns(t)

	t.AddColumnFunc("pid", func(row int) dataprocessing.Value {
		pid := extractPlayerID(t.At(row, "profile_url").String())
		if pid == "" {
			return dataprocessing.Missing()
		}
		return dataprocessing.Text(pid)
	})

	c.repairHeadshots(t)
	c.standardizeBio(t)
	c.splitPositions(t)
	c.splitDraft(t)

	pruned := c.reducer.PruneSparseRows(t, "is_retired", rosterCoreColumns, retireeSparsityThreshold)
	if pruned > 0 {
		logger.Info("sparse retired rows pruned", "rows", pruned)
	}

	keys := dataprocessing.NewPlayerKeyBuilder()
	t.AddColumnFunc("player_id", func(row int) dataprocessing.Value {
		key := keys.Key(t.At(row, "player").String())
		if key == "" {
			return dataprocessing.Missing()
		}
		return dataprocessing.Text(key)
	})

	stats := c.coercer.CoerceNumeric(t, rosterExclude)
	infrastructure.RecordCleanCoercions(ctx, c.metrics, PlayersDomain, "", int64(stats.ToMissing))
	duplicates := c.reducer.DropExactDuplicates(t)

	primary := filepath.Join(c.paths.ProcessedDomainDir(PlayersDomain), playersOutFile)
	specs := []exporter.PartitionSpec{{
		Column: "team",
		PathFor: func(team string) string {
			return filepath.Join(c.paths.ProcessedDomainDir(PlayersDomain), "teams", team, playersOutFile)
		},
	}}
	report := c.writer.Write(t, primary, specs, force)

	infrastructure.RecordCleanFileMetrics(ctx, c.metrics, PlayersDomain, "", int64(rowsIn), int64(t.NumRows()))
	infrastructure.RecordCleanWriteOutcomes(ctx, c.metrics, PlayersDomain, "",
		int64(report.Written()), int64(report.Skipped()), int64(report.Failed()))
	logger.Info("players roster cleaned",
		"rows_in", rowsIn,
		"rows_out", t.NumRows(),
		"written", report.Written(),
		"skipped", report.Skipped(),
		"failed", report.Failed())

	return &Result{
		Table:      PlayersDomain,
		Source:     source,
		RowsIn:     rowsIn,
		RowsOut:    t.NumRows(),
		Duplicates: duplicates,
		Pruned:     pruned,
		Report:     report,
	}, nil
}

// ensureColumns adds the bio columns later steps read, so exports that
// omit them still clean instead of erroring.
func (c *Cleaner) ensureColumns(t *dataprocessing.Table) {
	for _, col := range []string{
		"profile_url", "headshot_url", "team", "position",
		"height", "weight", "experience", "birthdate", "country", "draft",
	} {
		if !t.HasColumn(col) {
			t.AddColumn(col, nil)
		}
	}
	if !t.HasColumn("is_retired") {
		t.AddColumnFunc("is_retired", func(int) dataprocessing.Value {
			return dataprocessing.Bool(false)
		})
	}
}

// repairHeadshots rebuilds missing or silhouette headshot URLs from the
// CDN template when a player ID is available; the silhouette stays as the
// last resort.
func (c *Cleaner) repairHeadshots(t *dataprocessing.Table) {
	for i := 0; i < t.NumRows(); i++ {
		url := strings.TrimSpace(t.At(i, "headshot_url").String())
		if url != "" && url != c.fallbackURL {
			continue
		}
		pid := t.At(i, "pid").String()
		if pid == "" {
			t.Set(i, "headshot_url", dataprocessing.Text(c.fallbackURL))
			continue
		}
		t.Set(i, "headshot_url", dataprocessing.Text(c.headshotCDN+"/"+pid+".png"))
	}
}

// standardizeBio trims names, applies the RET/FA team sentinels, parses
// height/weight/experience and defaults the birthdate.
func (c *Cleaner) standardizeBio(t *dataprocessing.Table) {
	for i := 0; i < t.NumRows(); i++ {
		if v := t.At(i, "player"); !v.IsMissing() {
			t.Set(i, "player", dataprocessing.Text(strings.TrimSpace(v.String())))
		}

		retired := dataprocessing.Truthy(t.At(i, "is_retired"))
		team := strings.TrimSpace(t.At(i, "team").String())
		switch {
		case retired:
			team = domain.TeamRetired
		case team == "":
			team = domain.TeamFreeAgent
		default:
			team = strings.ToUpper(team)
		}
		t.Set(i, "team", dataprocessing.Text(team))

		t.Set(i, "height", parseHeightInches(t.At(i, "height")))
		t.Set(i, "weight", parseWeight(t.At(i, "weight")))
		t.Set(i, "experience", parseExperience(t.At(i, "experience")))

		birth := t.At(i, "birthdate")
		d, err := dataprocessing.ParseGameDate(birth.String())
		if birth.IsMissing() || err != nil {
			t.Set(i, "birthdate", dataprocessing.Text(defaultBirthdate))
		} else {
			t.Set(i, "birthdate", dataprocessing.Text(d.Format("2006-01-02")))
		}
	}
}

// splitPositions replaces the raw position with its primary value and
// adds the pipe-joined alternates.
func (c *Cleaner) splitPositions(t *dataprocessing.Table) {
	alts := make([]dataprocessing.Value, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		v := t.At(i, "position")
		if v.IsMissing() {
			alts[i] = dataprocessing.Missing()
			continue
		}
		primary, alt := splitPosition(v.String())
		if primary == "" {
			t.Set(i, "position", dataprocessing.Missing())
			alts[i] = dataprocessing.Missing()
			continue
		}
		t.Set(i, "position", dataprocessing.Text(primary))
		alts[i] = dataprocessing.Text(alt)
	}
	t.AddColumn("alt_positions", alts)
}

// splitDraft expands the free-text draft column into draft_year,
// draft_round, draft_pick and draft_status. Undrafted players get the
// UDF status with the numeric fields forced to zero.
func (c *Cleaner) splitDraft(t *dataprocessing.Table) {
	rows := t.NumRows()
	years := make([]dataprocessing.Value, rows)
	rounds := make([]dataprocessing.Value, rows)
	picks := make([]dataprocessing.Value, rows)
	statuses := make([]dataprocessing.Value, rows)

	for i := 0; i < rows; i++ {
		info := dataprocessing.ParseDraftInfo(t.At(i, "draft").String())
		if info.Year.IsMissing() {
			statuses[i] = dataprocessing.Text(string(domain.DraftStatusUndrafted))
			years[i] = dataprocessing.Number(0)
			rounds[i] = dataprocessing.Number(0)
			picks[i] = dataprocessing.Number(0)
			continue
		}
		statuses[i] = dataprocessing.Text(string(domain.DraftStatusDrafted))
		years[i] = info.Year
		rounds[i] = info.Round
		picks[i] = info.Pick
	}

	t.AddColumn("draft_year", years)
	t.AddColumn("draft_round", rounds)
	t.AddColumn("draft_pick", picks)
	t.AddColumn("draft_status", statuses)
	t.DropColumns("draft")
}

// CleanFranchises cleans the franchise list: canonical headers, uppercase
// codes, a conference lookup when the source lacks one, coercion,
// deduplication and a single league-wide write.
func (c *Cleaner) CleanFranchises(ctx context.Context, force bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := c.paths.RawTeamsCSV
	logger := c.logger.With("table", FranchisesDomain, "source", source)

	t, err := dataprocessing.ReadTable(source)
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", apperrors.ErrEmptySource, source)
	}
	rowsIn := t.NumRows()

	c.normalizer.NormalizeHeader(t)
	for old, name := range franchiseSynonyms {
		t.RenameColumn(old, name)
	}
	if !t.HasColumn("code") {
		return nil, fmt.Errorf("%w: code", apperrors.ErrMissingColumn)
	}

	for i := 0; i < t.NumRows(); i++ {
		if v := t.At(i, "code"); !v.IsMissing() {
			t.Set(i, "code", dataprocessing.Text(strings.ToUpper(strings.TrimSpace(v.String()))))
		}
	}
	if !t.HasColumn("conference") {
		t.AddColumnFunc("conference", func(row int) dataprocessing.Value {
			return dataprocessing.Text(config.GetTeamConference(t.At(row, "code").String()))
		})
	}

	stats := c.coercer.CoerceNumeric(t, franchiseExclude)
	infrastructure.RecordCleanCoercions(ctx, c.metrics, FranchisesDomain, "", int64(stats.ToMissing))
	duplicates := c.reducer.DropExactDuplicates(t)
	t.SortBy("code")

	primary := filepath.Join(c.paths.ProcessedDomainDir(FranchisesDomain), franchisesOutFile)
	report := c.writer.Write(t, primary, nil, force)

	infrastructure.RecordCleanFileMetrics(ctx, c.metrics, FranchisesDomain, "", int64(rowsIn), int64(t.NumRows()))
	infrastructure.RecordCleanWriteOutcomes(ctx, c.metrics, FranchisesDomain, "",
		int64(report.Written()), int64(report.Skipped()), int64(report.Failed()))
	logger.Info("franchise table cleaned",
		"rows_in", rowsIn,
		"rows_out", t.NumRows(),
		"written", report.Written(),
		"skipped", report.Skipped())

	return &Result{
		Table:      FranchisesDomain,
		Source:     source,
		RowsIn:     rowsIn,
		RowsOut:    t.NumRows(),
		Duplicates: duplicates,
		Report:     report,
	}, nil
}
