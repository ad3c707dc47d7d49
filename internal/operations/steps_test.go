package operations

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"nbacli/internal/awards"
	"nbacli/internal/config"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/roster"
	"nbacli/internal/schedule"
	"nbacli/internal/shared/testutil"
)

const stepTestCDN = "https://cdn.example.com/headshots"

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		DefaultSeason:       config.DefaultSeason,
		HeadshotCDN:         stepTestCDN,
		HeadshotFallbackURL: stepTestCDN + "/fallback.png",
	}
}

// stepExecState builds an operation state carrying one pending step, the
// way the manager prepares it before Execute.
func stepExecState(step Step, cfg map[string]interface{}) (*OperationState, *StepState) {
	state := NewOperationState("op-under-test")
	for k, v := range cfg {
		state.SetConfig(k, v)
	}
	st := NewStepState(step.ID(), step.Name())
	state.SetStep(step.ID(), st)
	return state, st
}

func TestRunScopeFromState(t *testing.T) {
	state := NewOperationState("op")
	state.SetConfig(ContextKeyDomain, "player_boxscores")
	state.SetConfig(ContextKeySeason, "2023-24")
	state.SetConfig(ContextKeyForce, true)

	opts, domain := runScopeFromState(state)
	assert.Equal(t, "player_boxscores", domain)
	assert.Equal(t, "2023-24", opts.Season)
	assert.True(t, opts.Force)
	assert.False(t, opts.AllSeasons)
}

func TestRunScopeFromStateDecodedJSON(t *testing.T) {
	state := NewOperationState("op")
	state.SetConfig(ContextKeySeasons, []interface{}{"2022-23", "2023-24"})
	state.SetConfig(ContextKeyAllSeasons, false)

	opts, _ := runScopeFromState(state)
	assert.Equal(t, []string{"2022-23", "2023-24"}, opts.Seasons)
}

func TestBuildRunManifest(t *testing.T) {
	m := BuildRunManifest("roster", "", nil, true, nil, nil)
	assert.Equal(t, "roster", m.Kind)
	assert.True(t, m.Force)
	assert.Equal(t, RunStatusCompleted, m.Status)
	require.NotNil(t, m.EndTime)

	failed := BuildRunManifest("awards", "awards", nil, false, nil, assert.AnError)
	assert.Equal(t, RunStatusFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)
}

func TestCleanStepExecute(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	logger, _ := testutil.NewTestLogger(t)
	step := NewCleanStep(pipe, logger, nil)
	state, st := stepExecState(step, map[string]interface{}{
		ContextKeySeason: "2024-25",
	})

	require.NoError(t, step.Execute(context.Background(), state))

	registered := len(pipe.Domains().Names())
	assert.Equal(t, registered, st.Metadata["domains_cleaned"])
	assert.Equal(t, 3, st.Metadata["files_written"], "primary plus one file per team")
	assert.Equal(t, 0, st.Metadata["files_failed"])

	manifests, ok := state.GetContext(ContextKeyManifests)
	require.True(t, ok)
	assert.Len(t, manifests.([]*RunManifest), registered)

	rows, ok := state.GetContext(ContextKeyRowsKept)
	require.True(t, ok)
	assert.Equal(t, 6, rows)

	assert.Equal(t, float64(100), st.Progress)
	assert.Contains(t, st.Message, "files written")
}

func TestCleanStepSingleDomain(t *testing.T) {
	pipe, paths := newTestPipeline(t)
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())

	logger, _ := testutil.NewTestLogger(t)
	step := NewCleanStep(pipe, logger, nil)
	state, st := stepExecState(step, map[string]interface{}{
		ContextKeyDomain: "player_boxscores",
		ContextKeySeason: "2024-25",
	})

	require.NoError(t, step.Execute(context.Background(), state))

	assert.Equal(t, 1, st.Metadata["domains_cleaned"])
	manifests, _ := state.GetContext(ContextKeyManifests)
	require.Len(t, manifests.([]*RunManifest), 1)
	assert.Equal(t, "player_boxscores", manifests.([]*RunManifest)[0].Domain)
}

func TestCleanStepValidate(t *testing.T) {
	pipe, _ := newTestPipeline(t)
	logger, _ := testutil.NewTestLogger(t)
	step := NewCleanStep(pipe, logger, nil)

	state, _ := stepExecState(step, map[string]interface{}{ContextKeyDomain: "dunk_contest"})
	assert.ErrorIs(t, step.Validate(state), apperrors.ErrUnknownDomain)

	state, _ = stepExecState(step, map[string]interface{}{
		ContextKeySeason:     "2024-25",
		ContextKeyAllSeasons: true,
	})
	err := step.Validate(state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	state, _ = stepExecState(step, map[string]interface{}{ContextKeySeason: "2024-25"})
	assert.NoError(t, step.Validate(state))
}

func TestRosterStepExecute(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	testutil.WriteFile(t, paths.RawPlayersCSV, testutil.SampleRosterCSV())

	recorder := &captureRecorder{}
	cleaner := roster.NewCleaner(paths, testPipelineConfig(), logger)
	step := NewRosterStep(cleaner, paths, logger, &StepOptions{Recorder: recorder})
	state, st := stepExecState(step, map[string]interface{}{})

	require.NoError(t, step.Execute(context.Background(), state))

	assert.Equal(t, 1, st.Metadata["tables_cleaned"], "franchise table missing, players only")
	assert.Equal(t, 3, st.Metadata["rows_kept"])
	assert.Equal(t, 4, st.Metadata["files_written"], "league file plus one per team")

	require.Len(t, recorder.manifests, 1)
	recorded := recorder.manifests[0]
	assert.Equal(t, "roster", recorded.Kind)
	assert.Equal(t, RunStatusCompleted, recorded.Status)

	var paths0 []string
	for _, f := range recorded.Files {
		paths0 = append(paths0, f.Path)
	}
	assert.Contains(t, paths0, "processed/players/all_players.csv")
}

func TestRosterStepFailureStillRecords(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	testutil.WriteFile(t, paths.RawPlayersCSV, testutil.BuildCSV(
		[]string{"NAME", "TEAM"},
		[]string{"Jayson Tatum", "BOS"},
	))

	recorder := &captureRecorder{}
	cleaner := roster.NewCleaner(paths, testPipelineConfig(), logger)
	step := NewRosterStep(cleaner, paths, logger, &StepOptions{Recorder: recorder})
	state, _ := stepExecState(step, map[string]interface{}{})

	err := step.Execute(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingColumn)

	require.Len(t, recorder.manifests, 1)
	assert.Equal(t, RunStatusFailed, recorder.manifests[0].Status)
}

func TestAwardsStepExecute(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	testutil.WriteFile(t, filepath.Join(paths.AwardsDir, "roty.csv"), testutil.SampleAwardBallotCSV())

	recorder := &captureRecorder{}
	cleaner := awards.NewCleaner(paths, logger)
	step := NewAwardsStep(cleaner, paths, logger, &StepOptions{Recorder: recorder})
	state, st := stepExecState(step, map[string]interface{}{ContextKeyForce: false})

	require.NoError(t, step.Execute(context.Background(), state))

	assert.Equal(t, 1, st.Metadata["awards_cleaned"])
	assert.Equal(t, 3, st.Metadata["rows_kept"])
	assert.Equal(t, 1, st.Metadata["files_written"])

	require.Len(t, recorder.manifests, 1)
	recorded := recorder.manifests[0]
	assert.Equal(t, "awards", recorded.Kind)
	assert.Equal(t, "awards", recorded.Domain)
	assert.Equal(t, "processed/awards/roty_cleaned.csv", recorded.Files[0].Path)
}

func seedCleanedBoxScores(t *testing.T, paths *config.Paths, season, team string, rows ...[]string) {
	t.Helper()
	dir := filepath.Join(paths.ProcessedSeasonDir(schedule.SourceDomain, season, ""), "teams", team)
	testutil.WriteFile(t, filepath.Join(dir, "regular_season_traditional.csv"),
		testutil.BuildCSV([]string{"game_id", "game_date", "home", "away"}, rows...))
}

func TestScheduleStepExecute(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	seedCleanedBoxScores(t, paths, "2023-24", "BOS",
		[]string{"0022300010", "2023-11-01", "BOS", "NYK"},
		[]string{"0022300020", "2023-11-04", "MIA", "BOS"},
	)

	recorder := &captureRecorder{}
	builder := schedule.NewBuilder(paths, logger)
	step := NewScheduleStep(builder, paths, logger, &StepOptions{Recorder: recorder})
	state, st := stepExecState(step, map[string]interface{}{ContextKeySeason: "2023-24"})

	require.NoError(t, step.Execute(context.Background(), state))

	assert.Equal(t, 1, st.Metadata["seasons_built"])
	assert.Equal(t, 2, st.Metadata["games_scheduled"])
	assert.Equal(t, 2, st.Metadata["files_written"], "per-team file plus the season copy")

	require.Len(t, recorder.manifests, 1)
	recorded := recorder.manifests[0]
	assert.Equal(t, "schedule", recorded.Kind)
	assert.Equal(t, schedule.ScheduleDomain, recorded.Domain)
	assert.Equal(t, []string{"2023-24"}, recorded.Seasons)

	var written []string
	for _, f := range recorded.Files {
		written = append(written, f.Path)
	}
	assert.Contains(t, written, "processed/schedule/2023-24/teams/BOS/regular_season_schedule.csv")
	assert.Contains(t, written, "processed/schedule/2023-24/regular_season_schedule.csv")
}

func TestScheduleStepSkipsSeasonWithoutData(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, handler := testutil.NewTestLogger(t)

	builder := schedule.NewBuilder(paths, logger)
	step := NewScheduleStep(builder, paths, logger, nil)
	state, st := stepExecState(step, map[string]interface{}{ContextKeySeason: "2025-26"})

	require.NoError(t, step.Execute(context.Background(), state))
	assert.Equal(t, 0, st.Metadata["games_scheduled"])
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "season skipped")
}

func TestScheduleStepAllSeasonsWithoutData(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)

	builder := schedule.NewBuilder(paths, logger)
	step := NewScheduleStep(builder, paths, logger, nil)
	state, _ := stepExecState(step, map[string]interface{}{ContextKeyAllSeasons: true})

	err := step.Execute(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoSeasons)
}

func TestImportStepExecute(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	writeExternalWorkbook(t, paths, "player_boxscores__2023-24__regular_season.xlsx", func(f *excelize.File) {
		boxscoreSheet(t, f)
	})

	logger, _ := testutil.NewTestLogger(t)
	step := NewImportStep(imp, logger, nil)
	state, st := stepExecState(step, map[string]interface{}{})

	require.NoError(t, step.Execute(context.Background(), state))

	assert.Equal(t, 1, st.Metadata["workbooks_written"])
	assert.Equal(t, 0, st.Metadata["workbooks_skipped"])

	manifests, ok := state.GetContext(ContextKeyManifests)
	require.True(t, ok)
	require.Len(t, manifests.([]*RunManifest), 1)
	assert.Equal(t, "import", manifests.([]*RunManifest)[0].Kind)
}

func TestRegisterDefaultSteps(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	pipe := NewPipeline(paths, nil, logger)

	registry := NewRegistry()
	err := RegisterDefaultSteps(registry,
		NewImportStep(NewImporter(paths, nil, logger), logger, nil),
		NewCleanStep(pipe, logger, nil),
		NewRosterStep(roster.NewCleaner(paths, testPipelineConfig(), logger), paths, logger, nil),
		NewAwardsStep(awards.NewCleaner(paths, logger), paths, logger, nil),
		NewScheduleStep(schedule.NewBuilder(paths, logger), paths, logger, nil),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{StepIDImport, StepIDClean, StepIDRoster, StepIDAwards, StepIDSchedule}, registry.ListIDs())

	ordered, err := registry.GetDependencyOrder()
	require.NoError(t, err)
	ids := make([]string, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ID()
	}
	assert.Equal(t, []string{StepIDImport, StepIDClean, StepIDRoster, StepIDAwards, StepIDSchedule}, ids)
}

func TestManagerExecutesFullOperationEndToEnd(t *testing.T) {
	paths := config.GetPathsWithBase(t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	recorder := &captureRecorder{}

	// Raw stat files for two domains, the roster, one award ballot and
	// one workbook waiting for import.
	testutil.WriteRawSeasonFile(t, paths.RawDir, "player_boxscores", "2024-25", "", "regular_season.csv", testutil.SampleBoxscoreCSV())
	testutil.WriteRawSeasonFile(t, paths.RawDir, "adv_boxscores", "2024-25", "", "regular_season_traditional.csv", testutil.BuildCSV(
		[]string{"Team", "Match Up", "Game Date", "Game ID", "PTS", "+/-"},
		[]string{"BOS", "BOS vs. ATL", "11/04/2024", "0022400001", "115", "12"},
		[]string{"ATL", "ATL @ BOS", "11/04/2024", "0022400001", "103", "-12"},
	))
	testutil.WriteFile(t, paths.RawPlayersCSV, testutil.SampleRosterCSV())
	testutil.WriteFile(t, filepath.Join(paths.AwardsDir, "roty.csv"), testutil.SampleAwardBallotCSV())
	writeExternalWorkbook(t, paths, "team_general__2024-25__totals__team_general.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Team", "GP", "W", "L"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"BOS", 82, 64, 18}))
	})

	manager := newTestManager(t, nil, nil)
	options := &StepOptions{
		StatusBroadcaster: manager.GetBroadcaster(),
		Recorder:          recorder,
	}

	pipe := NewPipeline(paths, nil, logger).WithRecorder(recorder)
	importer := NewImporter(paths, nil, logger).WithRecorder(recorder)
	require.NoError(t, RegisterDefaultSteps(manager.GetRegistry(),
		NewImportStep(importer, logger, options),
		NewCleanStep(pipe, logger, options),
		NewRosterStep(roster.NewCleaner(paths, testPipelineConfig(), logger), paths, logger, options),
		NewAwardsStep(awards.NewCleaner(paths, logger), paths, logger, options),
		NewScheduleStep(schedule.NewBuilder(paths, logger), paths, logger, options),
	))

	resp, err := manager.Execute(context.Background(), OperationRequest{
		Season: "2024-25",
	})
	require.NoError(t, err)
	require.Equal(t, OperationStatusCompleted, resp.Status)
	for id, st := range resp.Steps {
		assert.Equal(t, StepStatusCompleted, st.GetStatus(), "step %s", id)
	}

	// The imported workbook flowed through cleaning like a scraped file.
	cleanedGeneral := readOutput(t, filepath.Join(paths.ProcessedSeasonDir("team_general", "2024-25", "totals"), "team_general.csv"))
	require.Equal(t, 1, cleanedGeneral.NumRows())
	assert.Equal(t, "64", cell(t, cleanedGeneral, 0, "w"))

	// Box scores cleaned with the matchup split, then projected into a
	// schedule for each side of the game.
	bosBox := readOutput(t, filepath.Join(paths.ProcessedTeamDir("adv_boxscores", "2024-25", "", "BOS"), "regular_season_traditional.csv"))
	assert.Equal(t, "BOS", cell(t, bosBox, 0, "home"))
	assert.Equal(t, "ATL", cell(t, bosBox, 0, "away"))

	bosSchedule := readOutput(t, filepath.Join(paths.ProcessedTeamDir("schedule", "2024-25", "", "BOS"), "regular_season_schedule.csv"))
	require.Equal(t, 1, bosSchedule.NumRows())
	assert.Equal(t, "1", cell(t, bosSchedule, 0, "game_week"))
	assert.Equal(t, "0022400001", cell(t, bosSchedule, 0, "game_id"))

	readOutput(t, filepath.Join(paths.ProcessedDomainDir("players"), "all_players.csv"))
	readOutput(t, filepath.Join(paths.ProcessedDomainDir("awards"), "roty_cleaned.csv"))

	// Every run landed in the catalog: one per domain from the cleaning
	// sweep, plus import, roster, awards and schedule.
	assert.Len(t, recorder.manifests, len(pipe.Domains().Names())+4)
}
