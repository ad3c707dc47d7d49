package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "nbacli/internal/errors"
)

// ReadTable loads a raw CSV file into a Table. Empty fields become missing
// cells and everything else is text. A nonexistent path reports
// ErrSourceMissing; a file without even a header row reports
// ErrEmptySource. A header-only file yields a table with zero rows.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := ReadTableFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadTableFrom loads CSV content from a reader. Ragged rows are padded or
// truncated to the header width.
func ReadTableFrom(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.ErrEmptySource
		}
		return nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	t := NewTable(header)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		cells := make([]Value, len(record))
		for i, field := range record {
			cells[i] = ParseCell(field)
		}
		t.AppendRow(cells)
	}
	return t, nil
}
