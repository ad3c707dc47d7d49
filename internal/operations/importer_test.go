package operations

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"nbacli/internal/config"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/shared/testutil"
)

func newTestImporter(t *testing.T) (*Importer, *config.Paths, *testutil.BufferedSlogHandler) {
	t.Helper()
	paths := config.GetPathsWithBase(t.TempDir())
	logger, handler := testutil.NewTestLogger(t)
	return NewImporter(paths, nil, logger), paths, handler
}

func writeExternalWorkbook(t *testing.T, paths *config.Paths, name string, build func(f *excelize.File)) {
	t.Helper()
	f := excelize.NewFile()
	build(f)
	require.NoError(t, os.MkdirAll(paths.ExternalDir, 0755))
	require.NoError(t, f.SaveAs(filepath.Join(paths.ExternalDir, name)))
	require.NoError(t, f.Close())
}

func boxscoreSheet(t *testing.T, f *excelize.File) {
	t.Helper()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Player", "Team", "Match Up", "Game Date", "PTS"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Jayson Tatum", "BOS", "BOS vs. ATL", "11/04/2024", 28}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Trae Young", "ATL", "ATL @ BOS", "11/04/2024", 24}))
}

func TestRouteWorkbook(t *testing.T) {
	imp, _, _ := newTestImporter(t)

	tests := []struct {
		name    string
		file    string
		want    workbookRoute
		wantErr string
	}{
		{
			name: "flat domain",
			file: "adv_boxscores__2023-24__regular_season_traditional.xlsx",
			want: workbookRoute{Domain: "adv_boxscores", Season: "2023-24", File: "regular_season_traditional.csv"},
		},
		{
			name: "domain with mode",
			file: "player_stats__2023-24__totals__player_stats.xlsx",
			want: workbookRoute{Domain: "player_stats", Season: "2023-24", SubMode: "totals", File: "player_stats.csv"},
		},
		{
			name:    "too few segments",
			file:    "player_boxscores__2023-24.xlsx",
			wantErr: "want domain__season",
		},
		{
			name:    "unknown domain",
			file:    "dunk_contest__2023-24__finals.xlsx",
			wantErr: "unknown stat domain",
		},
		{
			name:    "bad season label",
			file:    "player_boxscores__banana__file.xlsx",
			wantErr: "invalid season label",
		},
		{
			name:    "mode missing where required",
			file:    "player_stats__2023-24__file.xlsx",
			wantErr: "requires a mode",
		},
		{
			name:    "mode unknown to domain",
			file:    "player_stats__2023-24__weekly__file.xlsx",
			wantErr: `no mode "weekly"`,
		},
		{
			name:    "mode given where none taken",
			file:    "player_boxscores__2023-24__totals__file.xlsx",
			wantErr: "takes no mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := imp.routeWorkbook(tt.file)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, route)
		})
	}
}

func TestImportAll(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	writeExternalWorkbook(t, paths, "player_boxscores__2023-24__regular_season.xlsx", func(f *excelize.File) {
		boxscoreSheet(t, f)
	})

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, manifest)

	assert.Equal(t, "import", manifest.Kind)
	assert.Equal(t, RunStatusCompleted, manifest.Status)
	assert.Equal(t, 1, manifest.FilesWritten())
	assert.Equal(t, "raw/player_boxscores/2023-24/regular_season.csv", manifest.Files[0].Path)

	raw := readOutput(t, filepath.Join(paths.RawSeasonDir("player_boxscores", "2023-24", ""), "regular_season.csv"))
	assert.Equal(t, []string{"Player", "Team", "Match Up", "Game Date", "PTS"}, raw.Columns())
	require.Equal(t, 2, raw.NumRows())
	assert.Equal(t, "Jayson Tatum", cell(t, raw, 0, "Player"))
	assert.Equal(t, "28", cell(t, raw, 0, "PTS"))
}

func TestImportAllSkipsPreambleRows(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	writeExternalWorkbook(t, paths, "team_general__2023-24__totals__team_general.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Team stats export"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Generated", "2024-05-01"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"Team", "GP", "W", "L"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A5", &[]interface{}{"BOS", 82, 64, 18}))
	})

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.FilesWritten())

	raw := readOutput(t, filepath.Join(paths.RawSeasonDir("team_general", "2023-24", "totals"), "team_general.csv"))
	assert.Equal(t, []string{"Team", "GP", "W", "L"}, raw.Columns())
	require.Equal(t, 1, raw.NumRows())
	assert.Equal(t, "64", cell(t, raw, 0, "W"))
}

func TestImportAllRoutesModes(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	writeExternalWorkbook(t, paths, "player_stats__2023-24__per_game__player_stats.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Player", "Team", "PTS"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Jayson Tatum", "BOS", 26.9}))
	})

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.FilesWritten())

	raw := readOutput(t, filepath.Join(paths.RawSeasonDir("player_stats", "2023-24", "per_game"), "player_stats.csv"))
	require.Equal(t, 1, raw.NumRows())
	assert.Equal(t, "26.9", cell(t, raw, 0, "PTS"))
}

func TestImportAllSecondRunSkipsThenForceRewrites(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	writeExternalWorkbook(t, paths, "player_boxscores__2023-24__regular_season.xlsx", func(f *excelize.File) {
		boxscoreSheet(t, f)
	})

	first, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.FilesWritten())

	second, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, second.FilesWritten())
	assert.Equal(t, 1, second.FilesSkipped())

	forced, err := imp.ImportAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, forced.FilesWritten())

	raw := readOutput(t, filepath.Join(paths.RawSeasonDir("player_boxscores", "2023-24", ""), "regular_season.csv"))
	assert.Equal(t, 2, raw.NumRows())
}

func TestImportAllEmptyRoot(t *testing.T) {
	imp, _, handler := newTestImporter(t)

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, manifest.Status)
	assert.Empty(t, manifest.Files)
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "no workbooks waiting for import")
}

func TestImportAllSkipsUnroutableWorkbook(t *testing.T) {
	imp, paths, handler := newTestImporter(t)
	writeExternalWorkbook(t, paths, "notes.xlsx", func(f *excelize.File) {
		boxscoreSheet(t, f)
	})

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, manifest.Status)
	assert.Zero(t, manifest.FilesWritten())
	assert.Equal(t, 1, manifest.FilesSkipped())
	assert.Equal(t, "notes.xlsx", manifest.Files[0].Path)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "workbook skipped")
}

func TestImportAllSkipsHeaderlessWorkbook(t *testing.T) {
	imp, paths, handler := newTestImporter(t)
	writeExternalWorkbook(t, paths, "player_boxscores__2023-24__mystery.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"just a note"}))
	})

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, manifest.FilesWritten())
	assert.Equal(t, 1, manifest.FilesSkipped())
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "workbook empty, skipped")
}

func TestImportAllRecordsRun(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	recorder := &captureRecorder{}
	imp.WithRecorder(recorder)

	writeExternalWorkbook(t, paths, "player_boxscores__2023-24__regular_season.xlsx", func(f *excelize.File) {
		boxscoreSheet(t, f)
	})

	manifest, err := imp.ImportAll(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, recorder.manifests, 1)
	assert.Equal(t, manifest.ID, recorder.manifests[0].ID)
	assert.Equal(t, "import", recorder.manifests[0].Kind)
}

func TestImportAllHonorsContextCancellation(t *testing.T) {
	imp, paths, _ := newTestImporter(t)
	writeExternalWorkbook(t, paths, "player_boxscores__2023-24__regular_season.xlsx", func(f *excelize.File) {
		boxscoreSheet(t, f)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manifest, err := imp.ImportAll(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunStatusFailed, manifest.Status)

	_, statErr := os.Stat(filepath.Join(paths.RawSeasonDir("player_boxscores", "2023-24", ""), "regular_season.csv"))
	assert.True(t, os.IsNotExist(statErr), "cancelled run should not write")
}

func TestImportAllMisroutedErrors(t *testing.T) {
	imp, _, _ := newTestImporter(t)
	_, err := imp.routeWorkbook("dunk_contest__2023-24__finals.xlsx")
	require.ErrorIs(t, err, apperrors.ErrUnknownDomain)
}
