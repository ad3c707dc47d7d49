package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbacli/internal/catalog"
	apperrors "nbacli/internal/errors"
)

// stubCatalog satisfies RunCatalog with canned answers.
type stubCatalog struct {
	runs    []catalog.Run
	files   map[string][]catalog.RunFile
	pingErr error
}

func (s *stubCatalog) RecentRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	if limit > 0 && limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubCatalog) GetRun(ctx context.Context, id string) (*catalog.Run, []catalog.RunFile, error) {
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], s.files[id], nil
		}
	}
	return nil, nil, apperrors.ErrRunNotFound
}

func (s *stubCatalog) Ping(ctx context.Context) error {
	return s.pingErr
}

func seedStubCatalog() *stubCatalog {
	started := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	return &stubCatalog{
		runs: []catalog.Run{
			{ID: "run-2", Kind: "clean", Domain: "player_stats", Status: "completed", StartedAt: started.Add(time.Hour)},
			{ID: "run-1", Kind: "import", Status: "completed", StartedAt: started},
		},
		files: map[string][]catalog.RunFile{
			"run-2": {
				{RunID: "run-2", Path: "player_stats/2024-25/totals/player_stats_2024-25.csv", Status: "written", Rows: 540},
			},
		},
	}
}

func TestRunServiceRecentRuns(t *testing.T) {
	svc := NewRunService(seedStubCatalog(), testLogger())

	runs, err := svc.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)

	limited, err := svc.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRunServiceGetRun(t *testing.T) {
	svc := NewRunService(seedStubCatalog(), testLogger())

	run, files, err := svc.GetRun(context.Background(), "run-2")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "clean", run.Kind)
	assert.Equal(t, "player_stats", run.Domain)
	require.Len(t, files, 1)
	assert.Equal(t, 540, files[0].Rows)
}

func TestRunServiceGetRunNotFound(t *testing.T) {
	svc := NewRunService(seedStubCatalog(), testLogger())

	_, _, err := svc.GetRun(context.Background(), "run-404")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
}

func TestRunServiceRequiresRunID(t *testing.T) {
	svc := NewRunService(seedStubCatalog(), testLogger())

	_, _, err := svc.GetRun(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunServiceWithoutCatalog(t *testing.T) {
	svc := NewRunService(nil, testLogger())

	_, err := svc.RecentRuns(context.Background(), 5)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	_, _, err = svc.GetRun(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	assert.ErrorIs(t, svc.Ping(context.Background()), ErrCatalogUnavailable)
}
