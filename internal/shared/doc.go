// Package shared provides common utilities and test helpers used across the
// NBA Pulse codebase. It serves as a central location for shared functionality
// that doesn't belong to any specific domain or architectural layer.
//
// # Structure
//
// The package is organized into the following components:
//
// - testutil: Testing utilities including fixtures, log capture, and assertions
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
// 3. Common constants or types used across packages
//
// It should NOT contain:
//
// 1. Business logic or domain-specific code
// 2. Circular dependencies with other internal packages
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - A buffered slog handler for asserting on log output
//   - Raw CSV fixtures matching the layouts scraped from stats.nba.com
//   - Helpers for writing fixture files into temp data trees
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    // run code under test with logger
//	    testutil.AssertLogContains(t, logs, slog.LevelWarn, "column collision")
//	}
package shared
