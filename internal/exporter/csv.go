package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "nbacli/internal/errors"
)

// CSVWriter writes cleaned tables to disk with the pipeline's cache
// policy: an existing file is left untouched unless force is set.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	// Force rewrites the target even when it already exists.
	Force bool
	// BOMPrefix adds a UTF-8 BOM for Excel compatibility.
	BOMPrefix bool
}

// WriteRecords writes a header-plus-rows record set to path. It reports
// whether a file was written: an existing target without Force is a
// silent skip, not an error. The file lands via a temp-file rename so a
// failed write never leaves a half-written target behind.
func (w *CSVWriter) WriteRecords(path string, records [][]string, opts WriteOptions) (bool, error) {
	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			w.logger.Debug("skipping existing file", slog.String("path", path))
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("%w: create directory %s: %v", apperrors.ErrWriteFailure, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("%w: create temp file in %s: %v", apperrors.ErrWriteFailure, dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if opts.BOMPrefix {
		if _, err := tmp.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			tmp.Close()
			return false, fmt.Errorf("%w: write BOM to %s: %v", apperrors.ErrWriteFailure, tmpPath, err)
		}
	}

	writer := csv.NewWriter(tmp)
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return false, fmt.Errorf("%w: write record %d to %s: %v", apperrors.ErrWriteFailure, i, tmpPath, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return false, fmt.Errorf("%w: flush %s: %v", apperrors.ErrWriteFailure, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("%w: close %s: %v", apperrors.ErrWriteFailure, tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return false, fmt.Errorf("%w: rename %s to %s: %v", apperrors.ErrWriteFailure, tmpPath, path, err)
	}
	return true, nil
}
