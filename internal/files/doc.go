// Package files provides discovery and path resolution over the NBA
// stats data tree.
//
// This package contains two main components:
//
// Discovery: walks the tree the pipeline reads and writes: raw season
// directories and their CSV files for the cleaners, cleaned artifacts
// (including team and month mirrors) for the API, and external workbooks
// for the importer.
//
// Manager: resolves download requests to absolute paths inside the
// processed tree, rejecting anything that would escape it, and probes
// directories for writability on behalf of the health endpoint.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths)
//
//	seasons, err := discovery.Seasons("player_boxscores")
//
//	manager := files.NewManager(paths)
//	full, err := manager.ResolveProcessed("player_boxscores", "2024-25/boxscores.csv")
package files
