package schedule

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/shared/testutil"
	"nbacli/pkg/contracts/domain"
)

const testSeason = "2023-24"

func newTestBuilder(t *testing.T) (*Builder, *config.Paths, *testutil.BufferedSlogHandler) {
	t.Helper()
	paths := config.GetPathsWithBase(t.TempDir())
	logger, handler := testutil.NewTestLogger(t)
	return NewBuilder(paths, logger), paths, handler
}

func writeTeamFile(t *testing.T, paths *config.Paths, season, team, file, content string) {
	t.Helper()
	path := filepath.Join(paths.ProcessedSeasonDir(SourceDomain, season, ""), "teams", team, file)
	testutil.WriteFile(t, path, content)
}

func seedSeason(t *testing.T, paths *config.Paths) {
	t.Helper()
	header := []string{"team", "game_id", "game_date", "home", "away", "pts"}

	writeTeamFile(t, paths, testSeason, "BOS", regularSourceFile, testutil.BuildCSV(header,
		[]string{"BOS", "0022300002", "2023-10-27", "NYK", "BOS", "108"},
		[]string{"BOS", "0022300001", "2023-10-25", "BOS", "NYK", "112"},
	))
	writeTeamFile(t, paths, testSeason, "NYK", regularSourceFile, testutil.BuildCSV(header,
		[]string{"NYK", "0022300001", "2023-10-25", "BOS", "NYK", "104"},
		[]string{"NYK", "0022300002", "2023-10-27", "NYK", "BOS", "99"},
	))
	writeTeamFile(t, paths, testSeason, "BOS", playoffSourceFile, testutil.BuildCSV(header,
		[]string{"BOS", "0042300101", "2024-04-21", "BOS", "MIA", "110"},
		[]string{"BOS", "0042300102", "2024-04-24", "BOS", "MIA", "121"},
		[]string{"BOS", "0042300103", "2024-04-27", "MIA", "BOS", "104"},
		[]string{"BOS", "0042300201", "2024-05-07", "BOS", "CLE", "120"},
		[]string{"BOS", "0042300202", "2024-05-09", "CLE", "BOS", "113"},
	))
}

func readOutput(t *testing.T, path string) *dataprocessing.Table {
	t.Helper()
	table, err := dataprocessing.ReadTable(path)
	require.NoError(t, err)
	return table
}

func cell(t *testing.T, table *dataprocessing.Table, row int, col string) string {
	t.Helper()
	require.True(t, table.HasColumn(col), "column %s missing", col)
	return table.At(row, col).String()
}

func TestBuildSeason(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)
	seedSeason(t, paths)

	result, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.NoError(t, err)

	assert.Equal(t, testSeason, result.Season)
	assert.Equal(t, 2, result.Teams)
	assert.Equal(t, 4, result.RegularGames)
	assert.Equal(t, 5, result.PlayoffGames)
	// Three per-team files plus the two season-wide copies.
	assert.Equal(t, 5, result.Report.Written())
	assert.Equal(t, 0, result.Report.Failed())

	teamFile := filepath.Join(paths.ProcessedTeamDir(ScheduleDomain, testSeason, "", "BOS"), regularOutFile)
	teamOut := readOutput(t, teamFile)
	require.Equal(t, 2, teamOut.NumRows())
	assert.False(t, teamOut.HasColumn("pts"))

	// Rows sort by date, so the week index follows the calendar.
	assert.Equal(t, "0022300001", cell(t, teamOut, 0, "game_id"))
	assert.Equal(t, "1", cell(t, teamOut, 0, "game_week"))
	assert.Equal(t, "BOS", cell(t, teamOut, 0, "home"))
	assert.Equal(t, "NYK", cell(t, teamOut, 0, "away"))
	assert.Equal(t, "0022300002", cell(t, teamOut, 1, "game_id"))
	assert.Equal(t, "2", cell(t, teamOut, 1, "game_week"))

	seasonFile := filepath.Join(paths.ProcessedSeasonDir(ScheduleDomain, testSeason, ""), regularOutFile)
	seasonOut := readOutput(t, seasonFile)
	require.Equal(t, 4, seasonOut.NumRows())
	assert.Equal(t, "2023-10-25", cell(t, seasonOut, 0, "game_date"))
	assert.Equal(t, "BOS", cell(t, seasonOut, 0, "team"))
	assert.Equal(t, "NYK", cell(t, seasonOut, 1, "team"))
	assert.Equal(t, "2023-10-27", cell(t, seasonOut, 2, "game_date"))
}

func TestBuildSeasonPlayoffRounds(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)
	seedSeason(t, paths)

	_, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.NoError(t, err)

	out := readOutput(t, filepath.Join(paths.ProcessedTeamDir(ScheduleDomain, testSeason, "", "BOS"), playoffOutFile))
	require.Equal(t, 5, out.NumRows())

	wantRounds := []string{"RND1", "RND1", "RND1", "SF", "SF"}
	wantGames := []string{"1", "2", "3", "1", "2"}
	for i := range wantRounds {
		assert.Equal(t, wantRounds[i], cell(t, out, i, "round"), "row %d", i)
		assert.Equal(t, wantGames[i], cell(t, out, i, "series_game"), "row %d", i)
	}
	// The home/away flip in game 3 keeps the opponent, and the series.
	assert.Equal(t, "MIA", cell(t, out, 2, "home"))
	assert.Equal(t, "BOS", cell(t, out, 2, "away"))
}

func TestBuildSeasonRoundsBeyondFinals(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)

	header := []string{"game_id", "game_date", "home", "away"}
	writeTeamFile(t, paths, testSeason, "DEN", playoffSourceFile, testutil.BuildCSV(header,
		[]string{"1", "2024-04-20", "DEN", "LAL"},
		[]string{"2", "2024-04-28", "DEN", "MIN"},
		[]string{"3", "2024-05-06", "DEN", "OKC"},
		[]string{"4", "2024-05-20", "DEN", "BOS"},
		[]string{"5", "2024-06-01", "DEN", "MIA"},
	))

	_, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.NoError(t, err)

	out := readOutput(t, filepath.Join(paths.ProcessedTeamDir(ScheduleDomain, testSeason, "", "DEN"), playoffOutFile))
	require.Equal(t, 5, out.NumRows())
	assert.Equal(t, "RND1", cell(t, out, 0, "round"))
	assert.Equal(t, "SF", cell(t, out, 1, "round"))
	assert.Equal(t, "CONF", cell(t, out, 2, "round"))
	assert.Equal(t, "FINALS", cell(t, out, 3, "round"))
	assert.Equal(t, "UNKNOWN", cell(t, out, 4, "round"))
}

func TestBuildSeasonMissingSource(t *testing.T) {
	builder, _, _ := newTestBuilder(t)

	_, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.ErrorIs(t, err, apperrors.ErrSourceMissing)
}

func TestBuildSeasonEmptyTeamsDir(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)
	teamsRoot := filepath.Join(paths.ProcessedSeasonDir(SourceDomain, testSeason, ""), "teams")
	require.NoError(t, os.MkdirAll(teamsRoot, 0755))

	_, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.ErrorIs(t, err, apperrors.ErrSourceMissing)
}

func TestBuildSeasonSecondRunSkips(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)
	seedSeason(t, paths)

	first, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Report.Written())

	second, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Report.Written())
	assert.Equal(t, 5, second.Report.Skipped())

	forced, err := builder.BuildSeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Equal(t, 5, forced.Report.Written())
}

func TestBuildSkipsMissingSeasons(t *testing.T) {
	builder, paths, handler := newTestBuilder(t)
	seedSeason(t, paths)

	results, err := builder.Build(context.Background(), []string{testSeason, "2025-26"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, testSeason, results[0].Season)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "season skipped")
}

func TestSeasonsOnDisk(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)

	root := paths.ProcessedDomainDir(SourceDomain)
	for _, dir := range []string{"2023-24", "2022-23", "archive"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}

	seasons, err := builder.SeasonsOnDisk()
	require.NoError(t, err)
	assert.Equal(t, []string{"2022-23", "2023-24"}, seasons)
}

func TestSeasonsOnDiskMissing(t *testing.T) {
	builder, _, _ := newTestBuilder(t)

	_, err := builder.SeasonsOnDisk()
	require.ErrorIs(t, err, apperrors.ErrNoSeasons)
}

func TestGameRecords(t *testing.T) {
	builder, paths, _ := newTestBuilder(t)
	seedSeason(t, paths)

	_, err := builder.BuildSeason(context.Background(), testSeason, false)
	require.NoError(t, err)

	regular := readOutput(t, filepath.Join(paths.ProcessedTeamDir(ScheduleDomain, testSeason, "", "BOS"), regularOutFile))
	games := GameRecords(regular, testSeason)
	require.Len(t, games, 2)

	opener := games[0]
	assert.Equal(t, testSeason, opener.Season)
	assert.Equal(t, "BOS", opener.Team)
	assert.Equal(t, "0022300001", opener.GameID)
	assert.Equal(t, time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC), opener.GameDate)
	assert.Equal(t, 1, opener.GameWeek)
	assert.True(t, opener.HomeGame())
	assert.Equal(t, "NYK", opener.Opponent())
	assert.False(t, opener.Playoff())

	playoff := readOutput(t, filepath.Join(paths.ProcessedTeamDir(ScheduleDomain, testSeason, "", "BOS"), playoffOutFile))
	run := GameRecords(playoff, testSeason)
	require.Len(t, run, 5)

	assert.Equal(t, domain.RoundFirst, run[0].Round)
	assert.Equal(t, 1, run[0].SeriesGame)
	assert.True(t, run[0].Playoff())
	assert.Equal(t, 0, run[0].GameWeek)
	assert.Equal(t, "MIA", run[2].Opponent())
	assert.Equal(t, domain.RoundSemis, run[3].Round)
	assert.Equal(t, 1, run[3].SeriesGame)
	assert.Equal(t, "CLE", run[4].Opponent())
	assert.False(t, run[4].HomeGame())
}
