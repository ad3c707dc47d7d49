// Package operations orchestrates the data preparation workflows: the
// per-domain stat cleaning pipeline plus the roster, award, schedule and
// catalog import steps that build on its outputs.
//
// Core components:
//
// Pipeline runs the tabular cleaning flow for registered stat domains.
// For each raw season file it reads the CSV, normalizes the header,
// enriches the table with derived keys, coerces numeric cells, drops
// duplicate rows and writes the primary output plus any per-team and
// per-month partitions. Every run produces a RunManifest describing the
// files it touched.
//
// Manager executes registered steps in dependency order with per-step
// timeouts and retries, broadcasting progress through a StatusBroadcaster.
// Step is the unit of work; Registry resolves execution order from step
// dependencies; OperationState tracks run and step status.
//
// JobQueue runs operations asynchronously. Runs are serialized: while a
// job is pending or running, further submissions fail with ErrRunActive.
//
// Example usage:
//
//	pipe := operations.NewPipeline(paths, operations.DefaultDomains(), logger)
//	manifest, err := pipe.CleanDomain(ctx, "player_boxscores", operations.RunOptions{
//		Season: "2024-25",
//	})
//
//	manager := operations.NewManager(hub, registry, operations.NewConfig())
//	resp, err := manager.Execute(ctx, operations.OperationRequest{
//		Domain: "player_boxscores",
//		Season: "2024-25",
//	})
package operations
