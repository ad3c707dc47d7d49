package dataprocessing

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "nbacli/internal/errors"
)

func writeWorkbook(t *testing.T, build func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	build(f)
	path := filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestWorkbookImport(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"NBA Player Stats"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Player", "Team", "PTS"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"Jayson Tatum", "BOS", 28}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A5", &[]interface{}{"Trae Young", "ATL", 24}))
	})

	importer := NewWorkbookImporter(nil)
	table, err := importer.Import(path, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Player", "Team", "PTS"}, table.Columns())
	require.Equal(t, 2, table.NumRows())
	assert.Equal(t, "Jayson Tatum", table.At(0, "Player").String())
	assert.Equal(t, "28", table.At(0, "PTS").String())
	assert.Equal(t, KindText, table.At(0, "PTS").Kind(), "imported cells stay raw until coercion")
}

func TestWorkbookImportShortPreambleRow(t *testing.T) {
	// Sheet readers trim trailing empty cells, so without a sheet-wide
	// width a two-cell metadata row looks fully dense and would win.
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Generated", "2024-05-01"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Team", "GP", "W", "L"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"BOS", 82, 64, 18}))
	})

	importer := NewWorkbookImporter(nil)
	table, err := importer.Import(path, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Team", "GP", "W", "L"}, table.Columns())
	require.Equal(t, 1, table.NumRows())
	assert.Equal(t, "64", table.At(0, "W").String())
}

func TestWorkbookImportNamedSheet(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Notes"}))
		_, err := f.NewSheet("Players")
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Players", "A1", &[]interface{}{"Player", "Team"}))
		require.NoError(t, f.SetSheetRow("Players", "A2", &[]interface{}{"Derrick White", "BOS"}))
	})

	importer := NewWorkbookImporter(nil)

	t.Run("explicit name", func(t *testing.T) {
		table, err := importer.Import(path, "Players")
		require.NoError(t, err)
		require.Equal(t, 1, table.NumRows())
		assert.Equal(t, "Derrick White", table.At(0, "Player").String())
	})

	t.Run("scan falls through headerless sheets", func(t *testing.T) {
		table, err := importer.Import(path, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Player", "Team"}, table.Columns())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := importer.Import(path, "Coaches")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Coaches")
	})
}

func TestWorkbookImportSkipsEmptyRows(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Player", "Team"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Jalen Johnson", "ATL"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"Dyson Daniels", "ATL"}))
	})

	importer := NewWorkbookImporter(nil)
	table, err := importer.Import(path, "")
	require.NoError(t, err)

	require.Equal(t, 2, table.NumRows())
	assert.Equal(t, "Dyson Daniels", table.At(1, "Player").String())
}

func TestWorkbookImportNoHeader(t *testing.T) {
	path := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"just a note"}))
	})

	importer := NewWorkbookImporter(nil)
	_, err := importer.Import(path, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptySource))
}

func TestWorkbookImportMissingFile(t *testing.T) {
	importer := NewWorkbookImporter(nil)
	_, err := importer.Import(filepath.Join(t.TempDir(), "nope.xlsx"), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceMissing))
}
