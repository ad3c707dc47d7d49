// Package config provides centralized configuration management for the
// NBA Pulse cleaning pipeline. It handles loading configuration from
// multiple sources, validation, and provides a type-safe API for
// accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern NBA_* for namespacing:
//
//	NBA_SERVER_PORT=8080
//	NBA_PATHS_DATA_DIR=/srv/nba/data
//	NBA_PIPELINE_DEFAULT_SEASON=2024-25
//	NBA_LOGGING_LEVEL=info
//
// # Path Management
//
// The package provides centralized path management through the Paths type.
// Paths anchor at the executable directory by default and at
// NBA_PATHS_DATA_DIR when set:
//
//	paths, err := cfg.ResolvePaths()
//	rawDir := paths.RawSeasonDir("adv_boxscores", "2024-25", "")
//	outDir := paths.ProcessedSeasonDir("adv_boxscores", "2024-25", "")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
