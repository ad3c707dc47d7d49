package operations

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/shared/testutil"
)

func newTestPipeline(t *testing.T) (*Pipeline, *config.Paths) {
	t.Helper()
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	return NewPipeline(paths, nil, logger), paths
}

func readOutput(t *testing.T, path string) *dataprocessing.Table {
	t.Helper()
	table, err := dataprocessing.ReadTable(path)
	require.NoError(t, err, "cleaned output should exist at %s", path)
	return table
}

func cell(t *testing.T, table *dataprocessing.Table, row int, col string) string {
	t.Helper()
	require.True(t, table.HasColumn(col), "column %q missing from %v", col, table.Columns())
	return table.At(row, col).String()
}

type captureRecorder struct {
	mu        sync.Mutex
	manifests []*RunManifest
	err       error
}

func (r *captureRecorder) RecordRun(_ context.Context, m *RunManifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests = append(r.manifests, m)
	return r.err
}

func TestRunOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    RunOptions
		wantErr string
	}{
		{name: "empty selection", opts: RunOptions{}},
		{name: "single season", opts: RunOptions{Season: "2024-25"}},
		{name: "season list", opts: RunOptions{Seasons: []string{"2023-24", "2024-25"}}},
		{name: "all seasons", opts: RunOptions{AllSeasons: true}},
		{
			name:    "season and all seasons conflict",
			opts:    RunOptions{Season: "2024-25", AllSeasons: true},
			wantErr: "mutually exclusive",
		},
		{
			name:    "season and season list conflict",
			opts:    RunOptions{Season: "2024-25", Seasons: []string{"2023-24"}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "malformed single season",
			opts:    RunOptions{Season: "24-25"},
			wantErr: "invalid season label",
		},
		{
			name:    "malformed season in list",
			opts:    RunOptions{Seasons: []string{"2023-24", "garbage"}},
			wantErr: "invalid season label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveSeasons(t *testing.T) {
	pipe, paths := newTestPipeline(t)

	t.Run("default is the configured season", func(t *testing.T) {
		seasons, err := pipe.ResolveSeasons("player_boxscores", RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{config.DefaultSeason}, seasons)
	})

	t.Run("explicit season", func(t *testing.T) {
		seasons, err := pipe.ResolveSeasons("player_boxscores", RunOptions{Season: "2019-20"})
		require.NoError(t, err)
		assert.Equal(t, []string{"2019-20"}, seasons)
	})

	t.Run("season list is copied", func(t *testing.T) {
		in := []string{"2023-24", "2022-23"}
		seasons, err := pipe.ResolveSeasons("player_boxscores", RunOptions{Seasons: in})
		require.NoError(t, err)
		assert.Equal(t, in, seasons)
		seasons[0] = "mutated"
		assert.Equal(t, "2023-24", in[0])
	})

	t.Run("all seasons from the raw tree", func(t *testing.T) {
		testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2023-24", "", "regular_season.csv", testutil.SampleBoxscoreCSV())
		testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

		seasons, err := pipe.ResolveSeasons("player_boxscores", RunOptions{AllSeasons: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"2023-24", "2024-25"}, seasons)
	})

	t.Run("all seasons over an empty domain", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(paths.RawDomainDir("team_general"), 0755))
		_, err := pipe.ResolveSeasons("team_general", RunOptions{AllSeasons: true})
		assert.ErrorIs(t, err, apperrors.ErrNoSeasons)
	})
}

func TestCleanDomainPlayerBoxscores(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	manifest, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	require.NotNil(t, manifest)

	assert.Equal(t, RunStatusCompleted, manifest.Status)
	assert.Equal(t, "player_boxscores", manifest.Domain)
	assert.Equal(t, []string{"2024-25"}, manifest.Seasons)
	assert.Equal(t, 3, manifest.FilesWritten(), "primary plus one file per team")
	assert.Zero(t, manifest.FilesSkipped())
	assert.Zero(t, manifest.FilesFailed())
	assert.Equal(t, 3+2+1, manifest.RowsWritten())

	primary := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("player_boxscores", "2024-25", ""), "regular_season.csv"))
	require.Equal(t, 3, primary.NumRows())

	for _, col := range []string{"player", "team", "matchup", "game_date", "w_l", "min", "pts", "fgpct", "3ppct", "plus_minus", "season", "season_type", "season_start", "season_end"} {
		assert.True(t, primary.HasColumn(col), "expected column %q, got %v", col, primary.Columns())
	}

	// Sorted by game date then player name.
	assert.Equal(t, "Derrick White", cell(t, primary, 0, "player"))
	assert.Equal(t, "Jayson Tatum", cell(t, primary, 1, "player"))
	assert.Equal(t, "Trae Young", cell(t, primary, 2, "player"))

	assert.Equal(t, "2024-11-04", cell(t, primary, 1, "game_date"))
	assert.Equal(t, "W", cell(t, primary, 1, "w_l"))
	assert.Equal(t, "BOS vs. ATL", cell(t, primary, 1, "matchup"))
	assert.Equal(t, "28", cell(t, primary, 1, "pts"))
	assert.Equal(t, "48.5", cell(t, primary, 1, "fgpct"))
	assert.Equal(t, "12", cell(t, primary, 1, "plus_minus"))
	assert.Equal(t, "2024-25", cell(t, primary, 1, "season"))
	assert.Equal(t, "regular_season", cell(t, primary, 1, "season_type"))
	assert.Equal(t, "2024", cell(t, primary, 1, "season_start"))
	assert.Equal(t, "2025", cell(t, primary, 1, "season_end"))

	bos := readOutput(t, filepath.Join(paths.ProcessedTeamDir("player_boxscores", "2024-25", "", "BOS"), "regular_season.csv"))
	assert.Equal(t, 2, bos.NumRows())
	atl := readOutput(t, filepath.Join(paths.ProcessedTeamDir("player_boxscores", "2024-25", "", "ATL"), "regular_season.csv"))
	assert.Equal(t, 1, atl.NumRows())
	assert.Equal(t, "Trae Young", cell(t, atl, 0, "player"))
}

func TestCleanDomainManifestPathsAreRelative(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	manifest, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)

	var found []string
	for _, f := range manifest.Files {
		found = append(found, f.Path)
	}
	assert.Contains(t, found, "processed/player_boxscores/2024-25/regular_season.csv")
	assert.Contains(t, found, "processed/player_boxscores/2024-25/teams/BOS/regular_season.csv")
}

func TestCleanDomainSecondRunSkipsThenForceRewrites(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	first, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	require.Equal(t, 3, first.FilesWritten())

	second, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	assert.Zero(t, second.FilesWritten())
	assert.Equal(t, 3, second.FilesSkipped())
	assert.Equal(t, RunStatusCompleted, second.Status)

	forced, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 3, forced.FilesWritten())
	assert.Zero(t, forced.FilesSkipped())
	assert.True(t, forced.Force)
}

func TestCleanDomainDropsDuplicateRows(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	rows := testutil.BoxscoreRows()
	rows = append(rows, rows[0])
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv",
		testutil.BuildCSV(testutil.BoxscoreHeader, rows...))

	manifest, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)

	primary := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("player_boxscores", "2024-25", ""), "regular_season.csv"))
	assert.Equal(t, 3, primary.NumRows(), "the duplicated row collapses")
	assert.Equal(t, 3+2+1, manifest.RowsWritten())
}

func TestCleanDomainSeasonTypePerFile(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "playoffs.csv", testutil.SampleBoxscoreCSV())

	_, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)

	regular := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("player_boxscores", "2024-25", ""), "regular_season.csv"))
	assert.Equal(t, "regular_season", cell(t, regular, 0, "season_type"))

	playoffs := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("player_boxscores", "2024-25", ""), "playoffs.csv"))
	assert.Equal(t, "playoffs", cell(t, playoffs, 0, "season_type"))
}

func TestCleanDomainSubModes(t *testing.T) {
	pipe, paths := newTestPipeline(t)

	header := []string{"PLAYER", "TM", "AGE", "GP", "PTS"}
	rows := [][]string{
		{"Jayson Tatum", "BOS", "26", "74", "1998"},
		{"Trae Young", "ATL", "25", "76", "1988"},
	}
	content := testutil.BuildCSV(header, rows...)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_stats", "2024-25", config.SubModeTotals, "stats.csv", content)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_stats", "2024-25", config.SubModePerGame, "stats.csv", content)

	manifest, err := pipe.CleanDomain(context.Background(), "player_stats", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	assert.Equal(t, 6, manifest.FilesWritten(), "a primary and two team files per sub-mode")

	totals := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("player_stats", "2024-25", config.SubModeTotals), "stats.csv"))
	assert.Equal(t, "totals", cell(t, totals, 0, "per_mode"))
	assert.True(t, totals.HasColumn("team"), "tm renames to team")
	assert.False(t, totals.HasColumn("tm"))
	assert.Equal(t, "ATL", cell(t, totals, 0, "team"), "sorted by team then player")
	assert.Equal(t, "BOS", cell(t, totals, 1, "team"))

	perGame := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("player_stats", "2024-25", config.SubModePerGame), "stats.csv"))
	assert.Equal(t, "per_game", cell(t, perGame, 0, "per_mode"))

	bos := readOutput(t, filepath.Join(paths.ProcessedTeamDir("player_stats", "2024-25", config.SubModeTotals, "BOS"), "stats.csv"))
	assert.Equal(t, 1, bos.NumRows())
}

func TestCleanDomainMatchupAndMonthSplit(t *testing.T) {
	pipe, paths := newTestPipeline(t)

	header := []string{"TEAM", "MATCH UP", "GAME DATE", "OFFRTG", "+/-"}
	rows := [][]string{
		{"BOS", "BOS vs. ATL", "2024-11-04", "118.3", "12"},
		{"ATL", "ATL @ BOS", "2024-11-04", "106.1", "-12"},
		{"BOS", "BOS @ NYK", "01/15/2025", "111.0", "3"},
	}
	testutil.WriteRawSeasonFile(t, paths.RawDir, "adv_boxscores", "2024-25", "", "regular_season.csv",
		testutil.BuildCSV(header, rows...))

	manifest, err := pipe.CleanDomain(context.Background(), "adv_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	assert.Equal(t, 5, manifest.FilesWritten(), "primary, two teams, two months")

	primary := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("adv_boxscores", "2024-25", ""), "regular_season.csv"))
	require.Equal(t, 3, primary.NumRows())
	assert.False(t, primary.HasColumn("mon"), "the month helper column never reaches the output")

	// Sorted by game date then team: ATL and BOS in November, BOS in January.
	assert.Equal(t, "ATL", cell(t, primary, 0, "team"))
	assert.Equal(t, "BOS", cell(t, primary, 1, "team"))
	assert.Equal(t, "2025-01-15", cell(t, primary, 2, "game_date"))

	// "ATL @ BOS" reads as an away game for ATL.
	assert.Equal(t, "BOS", cell(t, primary, 0, "home"))
	assert.Equal(t, "ATL", cell(t, primary, 0, "away"))
	assert.Equal(t, "0", cell(t, primary, 0, "is_home"))

	// "BOS vs. ATL" reads as a home game for BOS.
	assert.Equal(t, "BOS", cell(t, primary, 1, "home"))
	assert.Equal(t, "ATL", cell(t, primary, 1, "away"))
	assert.Equal(t, "1", cell(t, primary, 1, "is_home"))

	nov := readOutput(t, filepath.Join(paths.ProcessedMonthDir("adv_boxscores", "2024-25", "nov"), "nov_boxscores.csv"))
	assert.Equal(t, 2, nov.NumRows())
	assert.False(t, nov.HasColumn("mon"))

	jan := readOutput(t, filepath.Join(paths.ProcessedMonthDir("adv_boxscores", "2024-25", "jan"), "jan_boxscores.csv"))
	assert.Equal(t, 1, jan.NumRows())
	assert.Equal(t, "2025-01-15", cell(t, jan, 0, "game_date"))

	bos := readOutput(t, filepath.Join(paths.ProcessedTeamDir("adv_boxscores", "2024-25", "", "BOS"), "regular_season.csv"))
	assert.Equal(t, 2, bos.NumRows())
}

func TestCleanDomainMissingSeasonDirSkips(t *testing.T) {
	pipe, _ := newTestPipeline(t)

	manifest, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2030-31"})
	require.NoError(t, err, "a missing season directory degrades to a skip")
	assert.Equal(t, RunStatusCompleted, manifest.Status)
	assert.Equal(t, 1, manifest.FilesSkipped())
	require.Len(t, manifest.Files, 1)
	assert.Equal(t, "season directory missing", manifest.Files[0].Message)
}

func TestCleanDomainEmptyAndHeaderOnlySources(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "empty.csv", "")
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "header_only.csv",
		testutil.BuildCSV(testutil.BoxscoreHeader))

	manifest, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, manifest.Status)
	assert.Zero(t, manifest.FilesWritten())
	assert.Equal(t, 2, manifest.FilesSkipped())

	messages := make(map[string]string, len(manifest.Files))
	for _, f := range manifest.Files {
		messages[filepath.Base(f.Path)] = f.Message
	}
	assert.Equal(t, "empty source", messages["empty.csv"])
	assert.Equal(t, "no data rows", messages["header_only.csv"])
}

func TestCleanDomainUnknownDomain(t *testing.T) {
	pipe, _ := newTestPipeline(t)

	manifest, err := pipe.CleanDomain(context.Background(), "nonsense", RunOptions{})
	assert.Nil(t, manifest)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDomain)
}

func TestCleanDomainCancelledContext(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manifest, err := pipe.CleanDomain(ctx, "player_boxscores", RunOptions{Season: "2024-25"})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, manifest)
	assert.Equal(t, RunStatusFailed, manifest.Status)
}

func TestCleanDomainRecordsRun(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	recorder := &captureRecorder{}
	pipe.WithRecorder(recorder)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	manifest, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)

	require.Len(t, recorder.manifests, 1)
	assert.Equal(t, manifest.ID, recorder.manifests[0].ID)
	assert.Equal(t, RunStatusCompleted, recorder.manifests[0].Status)
}

func TestCleanDomainRecorderFailureIsNotFatal(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, handler := testutil.NewTestLogger(t)
	pipe := NewPipeline(paths, nil, logger).WithRecorder(&captureRecorder{err: assert.AnError})
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	_, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)
	assert.True(t, handler.ContainsMessage("run not recorded to catalog"))
}

func TestCleanDomainPhases(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	var mu sync.Mutex
	var phases []Phase
	pipe.WithPhaseListener(func(_, _ string, phase Phase) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, phase)
	})
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	_, err := pipe.CleanDomain(context.Background(), "player_boxscores", RunOptions{Season: "2024-25"})
	require.NoError(t, err)

	require.NotEmpty(t, phases)
	assert.Equal(t, PhaseResolvingSeasons, phases[0])
	assert.Equal(t, PhaseIdle, phases[len(phases)-1])
	for _, want := range []Phase{PhaseReading, PhaseNormalizing, PhaseEnriching, PhaseCoercing, PhaseReducing, PhaseWriting} {
		assert.Contains(t, phases, want)
	}
}

func TestCleanAll(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	manifests, err := pipe.CleanAll(context.Background(), RunOptions{Season: "2024-25"})
	require.NoError(t, err, "domains without raw data skip, they do not fail")
	assert.Len(t, manifests, len(pipe.Domains().Names()))

	byDomain := make(map[string]*RunManifest, len(manifests))
	for _, m := range manifests {
		byDomain[m.Domain] = m
	}
	assert.Equal(t, 3, byDomain["player_boxscores"].FilesWritten())
	assert.Zero(t, byDomain["team_general"].FilesWritten())
}

func TestCleanAllRejectsConflictingOptions(t *testing.T) {
	pipe, _ := newTestPipeline(t)

	manifests, err := pipe.CleanAll(context.Background(), RunOptions{Season: "2024-25", AllSeasons: true})
	assert.Nil(t, manifests)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestStandardizeTeamsFallbackColumns(t *testing.T) {
	table := dataprocessing.NewTable([]string{"player", "team_abbreviation"})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("Jayson Tatum"), dataprocessing.Text("bos")})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("Dirk Nowitzki"), dataprocessing.Missing()})

	standardizeTeams(table)

	require.True(t, table.HasColumn("team"))
	assert.Equal(t, "BOS", table.At(0, "team").String(), "codes uppercase on the way in")
	assert.True(t, table.At(1, "team").IsMissing())
}

func TestSplitMatchupUnrecognizedText(t *testing.T) {
	table := dataprocessing.NewTable([]string{"team", "matchup"})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("BOS"), dataprocessing.Text("BOS vs. ATL")})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("NYK"), dataprocessing.Text("garbled")})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("MIA"), dataprocessing.Missing()})

	splitMatchup(table)

	assert.Equal(t, "BOS", table.At(0, "home").String())
	assert.Equal(t, "ATL", table.At(0, "away").String())
	assert.True(t, table.At(1, "home").IsMissing(), "unrecognized notation leaves the split missing")
	assert.True(t, table.At(2, "is_home").IsMissing())
}

func TestSetOrAddColumns(t *testing.T) {
	table := dataprocessing.NewTable([]string{"player", "season"})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("Jayson Tatum"), dataprocessing.Text("stale")})
	table.AppendRow([]dataprocessing.Value{dataprocessing.Text("Trae Young"), dataprocessing.Missing()})

	// An existing column is overwritten row by row, not duplicated.
	setOrAddConstant(table, "season", dataprocessing.Text("2024-25"))
	assert.Equal(t, "2024-25", table.At(0, "season").String())
	assert.Equal(t, "2024-25", table.At(1, "season").String())

	setOrAddConstant(table, "per_mode", dataprocessing.Text("totals"))
	require.True(t, table.HasColumn("per_mode"))
	assert.Equal(t, "totals", table.At(1, "per_mode").String())

	setOrAddValues(table, "is_home", []dataprocessing.Value{
		dataprocessing.Number(1), dataprocessing.Number(0),
	})
	require.True(t, table.HasColumn("is_home"))
	assert.Equal(t, "1", table.At(0, "is_home").String())
	assert.Equal(t, "0", table.At(1, "is_home").String())

	setOrAddValues(table, "is_home", []dataprocessing.Value{
		dataprocessing.Number(0), dataprocessing.Number(1),
	})
	assert.Equal(t, "0", table.At(0, "is_home").String(), "existing column rewritten in place")
}
