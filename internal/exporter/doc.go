// Package exporter writes cleaned tables to the processed-data tree.
//
// This package contains two main components:
//
// CSVWriter: core CSV writing with the pipeline's cache policy (existing
// files are skipped unless force is set) and temp-file renames so targets
// are never half-written.
//
// PartitionWriter: writes the league-wide file and fans the same table out
// into per-team and per-month mirror copies, with every target written
// independently.
//
// Example usage:
//
//	writer := exporter.NewPartitionWriter(logger)
//	report := writer.Write(table, primaryPath, []exporter.PartitionSpec{
//	    {Column: "team", PathFor: func(team string) string {
//	        dir := paths.ProcessedTeamDir(domain, season, subMode, team)
//	        return filepath.Join(dir, filename)
//	    }},
//	}, false)
//	logger.Info("cleaned file written",
//	    "written", report.Written(),
//	    "skipped", report.Skipped(),
//	    "failed", report.Failed())
package exporter
