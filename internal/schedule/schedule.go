package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/exporter"
	"nbacli/internal/infrastructure"
	"nbacli/pkg/contracts/domain"
)

const (
	// ScheduleDomain names the processed subtree the schedules land in.
	ScheduleDomain = "schedule"

	// SourceDomain is the cleaned domain the schedules derive from.
	SourceDomain = "adv_boxscores"

	regularSourceFile = "regular_season_traditional.csv"
	playoffSourceFile = "playoffs_traditional.csv"
	regularOutFile    = "regular_season_schedule.csv"
	playoffOutFile    = "playoff_schedule.csv"
)

// roundLabels maps the ordinal of a playoff series within a team's run
// to its round name. Anything past the finals reads UNKNOWN.
var roundLabels = map[int]string{
	1: domain.RoundFirst,
	2: domain.RoundSemis,
	3: domain.RoundConfFinal,
	4: domain.RoundFinals,
}

var (
	regularColumns = []string{"team", "game_id", "game_date", "away", "home", "game_week"}
	playoffColumns = []string{"team", "game_id", "game_date", "away", "home", "round", "series_game"}
)

// Result summarizes one season's schedule build.
type Result struct {
	Season       string
	Teams        int
	RegularGames int
	PlayoffGames int
	Report       exporter.WriteReport
}

// Builder derives schedules from the cleaned team box score tree.
type Builder struct {
	paths   *config.Paths
	writer  *exporter.PartitionWriter
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewBuilder creates a schedule builder over the given data root.
func NewBuilder(paths *config.Paths, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		paths:  paths,
		writer: exporter.NewPartitionWriter(logger),
		logger: logger,
	}
}

// WithMetrics attaches business metrics recording.
func (b *Builder) WithMetrics(m *infrastructure.BusinessMetrics) *Builder {
	b.metrics = m
	return b
}

// SeasonsOnDisk lists the seasons that have cleaned team box scores,
// in label order.
func (b *Builder) SeasonsOnDisk() ([]string, error) {
	entries, err := os.ReadDir(b.paths.ProcessedDomainDir(SourceDomain))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no cleaned %s data", apperrors.ErrNoSeasons, SourceDomain)
		}
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	var seasons []string
	for _, entry := range entries {
		if entry.IsDir() && config.IsSeasonLabel(entry.Name()) {
			seasons = append(seasons, entry.Name())
		}
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w: no cleaned %s data", apperrors.ErrNoSeasons, SourceDomain)
	}
	sort.Strings(seasons)
	return seasons, nil
}

// Build derives schedules for the given seasons. Seasons without
// cleaned box scores are skipped with a warning; other failures are
// collected and returned together.
func (b *Builder) Build(ctx context.Context, seasons []string, force bool) ([]*Result, error) {
	var results []*Result
	var errs []error

	for _, season := range seasons {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := b.BuildSeason(ctx, season, force)
		switch {
		case err == nil:
			results = append(results, result)
		case errors.Is(err, apperrors.ErrSourceMissing) || errors.Is(err, apperrors.ErrEmptySource):
			b.logger.Warn("season skipped", "season", season, "error", err)
		default:
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// BuildSeason derives one season's schedules: a per-team regular season
// and playoff table under teams/, plus season-wide copies sorted by
// game date.
func (b *Builder) BuildSeason(ctx context.Context, season string, force bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := b.logger.With("season", season)

	teamsRoot := filepath.Join(b.paths.ProcessedSeasonDir(SourceDomain, season, ""), "teams")
	entries, err := os.ReadDir(teamsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no cleaned team box scores under %s", apperrors.ErrSourceMissing, teamsRoot)
		}
		return nil, fmt.Errorf("read team directory: %w", err)
	}

	regularAll := dataprocessing.NewTable(regularColumns)
	playoffAll := dataprocessing.NewTable(playoffColumns)
	result := &Result{Season: season}
	var errs []error

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		team := entry.Name()
		teamDir := filepath.Join(teamsRoot, team)
		outDir := b.paths.ProcessedTeamDir(ScheduleDomain, season, "", team)
		seen := false

		regular, err := b.regularSchedule(filepath.Join(teamDir, regularSourceFile), team)
		switch {
		case err == nil:
			seen = true
			report := b.writer.Write(regular, filepath.Join(outDir, regularOutFile), nil, force)
			result.Report.Results = append(result.Report.Results, report.Results...)
			result.RegularGames += regular.NumRows()
			regularAll.AppendTable(regular)
		case errors.Is(err, apperrors.ErrSourceMissing):
		default:
			errs = append(errs, fmt.Errorf("team %s: %w", team, err))
		}

		playoffs, err := b.playoffSchedule(filepath.Join(teamDir, playoffSourceFile), team)
		switch {
		case err == nil:
			seen = true
			report := b.writer.Write(playoffs, filepath.Join(outDir, playoffOutFile), nil, force)
			result.Report.Results = append(result.Report.Results, report.Results...)
			result.PlayoffGames += playoffs.NumRows()
			playoffAll.AppendTable(playoffs)
		case errors.Is(err, apperrors.ErrSourceMissing):
		default:
			errs = append(errs, fmt.Errorf("team %s: %w", team, err))
		}

		if seen {
			result.Teams++
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if result.Teams == 0 {
		return nil, fmt.Errorf("%w: no team box score files under %s", apperrors.ErrSourceMissing, teamsRoot)
	}

	seasonDir := b.paths.ProcessedSeasonDir(ScheduleDomain, season, "")
	if regularAll.NumRows() > 0 {
		regularAll.SortBy("game_date", "team")
		report := b.writer.Write(regularAll, filepath.Join(seasonDir, regularOutFile), nil, force)
		result.Report.Results = append(result.Report.Results, report.Results...)
	}
	if playoffAll.NumRows() > 0 {
		playoffAll.SortBy("game_date", "team")
		report := b.writer.Write(playoffAll, filepath.Join(seasonDir, playoffOutFile), nil, force)
		result.Report.Results = append(result.Report.Results, report.Results...)
	}

	games := result.RegularGames + result.PlayoffGames
	infrastructure.RecordCleanFileMetrics(ctx, b.metrics, ScheduleDomain, season, int64(games), int64(games))
	infrastructure.RecordCleanWriteOutcomes(ctx, b.metrics, ScheduleDomain, season,
		int64(result.Report.Written()), int64(result.Report.Skipped()), int64(result.Report.Failed()))
	logger.Info("season schedule built",
		"teams", result.Teams,
		"regular_games", result.RegularGames,
		"playoff_games", result.PlayoffGames,
		"written", result.Report.Written(),
		"skipped", result.Report.Skipped())

	return result, nil
}

// regularSchedule projects one team's regular season box scores into
// schedule rows ordered by game date, with a 1-based game_week index.
func (b *Builder) regularSchedule(path, team string) (*dataprocessing.Table, error) {
	src, err := dataprocessing.ReadTable(path)
	if err != nil {
		return nil, err
	}
	t := projectGames(src, team)
	t.SortBy("game_date")
	t.AddColumnFunc("game_week", func(row int) dataprocessing.Value {
		return dataprocessing.Number(float64(row + 1))
	})
	return t, nil
}

// playoffSchedule projects one team's playoff box scores into schedule
// rows ordered by game date. A new series starts whenever the opponent
// changes; rounds are labeled by series ordinal and games numbered
// within each series.
func (b *Builder) playoffSchedule(path, team string) (*dataprocessing.Table, error) {
	src, err := dataprocessing.ReadTable(path)
	if err != nil {
		return nil, err
	}
	t := projectGames(src, team)
	t.SortBy("game_date")

	n := t.NumRows()
	rounds := make([]dataprocessing.Value, n)
	games := make([]dataprocessing.Value, n)
	series, inSeries := 0, 0
	prev := ""
	for i := 0; i < n; i++ {
		opp := opponentOf(t, i, team)
		if i == 0 || opp != prev {
			series++
			inSeries = 0
		}
		inSeries++
		prev = opp

		label, ok := roundLabels[series]
		if !ok {
			label = domain.RoundUnknown
		}
		rounds[i] = dataprocessing.Text(label)
		games[i] = dataprocessing.Number(float64(inSeries))
	}
	t.AddColumn("round", rounds)
	t.AddColumn("series_game", games)
	return t, nil
}

// projectGames copies the schedule columns out of a cleaned box score
// table and stamps the owning team.
func projectGames(src *dataprocessing.Table, team string) *dataprocessing.Table {
	t := dataprocessing.NewTable([]string{"team", "game_id", "game_date", "away", "home"})
	for i := 0; i < src.NumRows(); i++ {
		t.AppendRow([]dataprocessing.Value{
			dataprocessing.Text(team),
			src.At(i, "game_id"),
			src.At(i, "game_date"),
			src.At(i, "away"),
			src.At(i, "home"),
		})
	}
	return t
}

// opponentOf returns the other side of row i from the team's view.
func opponentOf(t *dataprocessing.Table, i int, team string) string {
	if t.At(i, "away").String() == team {
		return t.At(i, "home").String()
	}
	return t.At(i, "away").String()
}
