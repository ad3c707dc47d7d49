package dataprocessing

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "nbacli/internal/errors"
)

// WorkbookImporter converts spreadsheet exports into raw tables that enter
// the pipeline exactly like scraped CSVs.
type WorkbookImporter struct {
	logger *slog.Logger
}

// NewWorkbookImporter creates an importer with the given logger.
func NewWorkbookImporter(logger *slog.Logger) *WorkbookImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookImporter{logger: logger}
}

// Import reads one sheet of an xlsx workbook into a Table. An empty sheet
// name selects the first sheet with a detectable header row. The header
// row is the first row where at least 60% of the cells are non-empty and
// the non-empty cells are unique; rows above it are discarded.
func (w *WorkbookImporter) Import(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("failed to close workbook",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", apperrors.ErrEmptySource, path)
	}
	candidates := sheets
	if sheet != "" {
		if !containsSheet(sheets, sheet) {
			return nil, fmt.Errorf("sheet %q not found in %s (have %s)",
				sheet, path, strings.Join(sheets, ", "))
		}
		candidates = []string{sheet}
	}

	for _, name := range candidates {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		headerIdx := headerRowIndex(rows)
		if headerIdx < 0 {
			continue
		}
		w.logger.Debug("importing sheet",
			slog.String("sheet", name),
			slog.Int("header_row", headerIdx+1),
			slog.Int("rows", len(rows)-headerIdx-1))
		return buildTable(rows[headerIdx], rows[headerIdx+1:]), nil
	}
	return nil, fmt.Errorf("%w: no header row detected in %s", apperrors.ErrEmptySource, path)
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}

// headerRowIndex finds the first row where at least 60% of the sheet's
// widest row holds a value and no value repeats. Density is judged
// against the sheet width, not the row's own length: sheet readers trim
// trailing empty cells, so a short preamble row would otherwise score as
// fully dense and shadow the real header below it.
func headerRowIndex(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if isHeaderRow(row, width) {
			return i
		}
	}
	return -1
}

func isHeaderRow(row []string, width int) bool {
	seen := make(map[string]bool, len(row))
	nonEmpty := 0
	for _, cell := range row {
		c := strings.TrimSpace(cell)
		if c == "" {
			continue
		}
		if seen[c] {
			return false
		}
		seen[c] = true
		nonEmpty++
	}
	return nonEmpty >= 2 && nonEmpty*5 >= width*3
}

func buildTable(header []string, rows [][]string) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("unnamed_%d", i)
		}
		cols[i] = name
	}
	t := NewTable(cols)
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		cells := make([]Value, len(row))
		for i, field := range row {
			cells[i] = ParseCell(strings.TrimSpace(field))
		}
		t.AppendRow(cells)
	}
	return t
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
