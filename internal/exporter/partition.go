package exporter

import (
	"log/slog"

	"nbacli/internal/dataprocessing"
)

// Status classifies the outcome of one target path.
type Status string

const (
	// StatusWritten means the file was created or rewritten.
	StatusWritten Status = "written"
	// StatusSkipped means an existing file was left untouched.
	StatusSkipped Status = "skipped"
	// StatusFailed means the write was abandoned for this path only.
	StatusFailed Status = "failed"
)

// WriteResult records the outcome for a single target path.
type WriteResult struct {
	Path   string
	Status Status
	Rows   int
	Err    error
}

// WriteReport aggregates the outcome of one table's fan-out.
type WriteReport struct {
	Results []WriteResult
}

// Written counts targets that were created or rewritten.
func (r *WriteReport) Written() int { return r.count(StatusWritten) }

// Skipped counts targets left untouched by the cache policy.
func (r *WriteReport) Skipped() int { return r.count(StatusSkipped) }

// Failed counts targets whose write was abandoned.
func (r *WriteReport) Failed() int { return r.count(StatusFailed) }

func (r *WriteReport) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// RowsWritten sums the rows of every written target.
func (r *WriteReport) RowsWritten() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusWritten {
			n += res.Rows
		}
	}
	return n
}

// PartitionSpec describes one fan-out dimension: the column to group by
// and how each group's key maps to a target path.
type PartitionSpec struct {
	Column  string
	PathFor func(key string) string
}

// PartitionWriter writes a cleaned table to its primary path and fans it
// out per distinct partition-column value. Every target is independent:
// one failure is reported as a warning and never blocks the others.
type PartitionWriter struct {
	writer *CSVWriter
	logger *slog.Logger
}

// NewPartitionWriter creates a partition writer with the given logger.
func NewPartitionWriter(logger *slog.Logger) *PartitionWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PartitionWriter{
		writer: NewCSVWriter(logger),
		logger: logger,
	}
}

// Write writes table to primaryPath and once per distinct value of each
// partition column. Rows with a missing partition key stay in the primary
// file but join no group; a warning reports how many were left out.
func (p *PartitionWriter) Write(table *dataprocessing.Table, primaryPath string, specs []PartitionSpec, force bool) WriteReport {
	var report WriteReport
	p.writeOne(&report, table, primaryPath, force)

	for _, spec := range specs {
		if !table.HasColumn(spec.Column) {
			p.logger.Warn("partition column absent, fan-out skipped",
				slog.String("column", spec.Column),
				slog.String("primary", primaryPath))
			continue
		}
		groups, skipped := table.GroupBy(spec.Column)
		if skipped > 0 {
			p.logger.Warn("rows missing partition key",
				slog.String("column", spec.Column),
				slog.Int("rows", skipped),
				slog.String("primary", primaryPath))
		}
		for _, g := range groups {
			p.writeOne(&report, g.Table, spec.PathFor(g.Key), force)
		}
	}
	return report
}

func (p *PartitionWriter) writeOne(report *WriteReport, table *dataprocessing.Table, path string, force bool) {
	written, err := p.writer.WriteRecords(path, table.Records(), WriteOptions{Force: force})
	switch {
	case err != nil:
		p.logger.Warn("write abandoned",
			slog.String("path", path),
			slog.String("error", err.Error()))
		report.Results = append(report.Results, WriteResult{Path: path, Status: StatusFailed, Err: err})
	case !written:
		report.Results = append(report.Results, WriteResult{Path: path, Status: StatusSkipped})
	default:
		report.Results = append(report.Results, WriteResult{
			Path:   path,
			Status: StatusWritten,
			Rows:   table.NumRows(),
		})
	}
}
