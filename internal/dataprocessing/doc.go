// Package dataprocessing provides the core table-cleaning primitives for the
// NBA stats pipeline. It consolidates header normalization, key derivation,
// numeric coercion, and row reduction into a cohesive package that handles the
// lifecycle from raw CSV ingestion to write-ready tables.
//
// # Architecture
//
// The package is organized into five main components:
//
// 1. Table: an ordered, column-indexed grid of three-state cells
// 2. Normalizer: canonical snake_case header normalization
// 3. Key derivation: season spans, team codes, draft fields, player keys
// 4. Coercer: numeric conversion with per-domain exclusion sets
// 5. Reducer: duplicate dropping and sparse-row pruning
//
// # Usage
//
// Basic cleaning example:
//
//	table, err := dataprocessing.ReadTable("raw/player_boxscores/2024-25/boxscores.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	normalizer := dataprocessing.NewNormalizer(logger)
//	normalizer.NormalizeHeader(table)
//	coercer := dataprocessing.NewCoercer(logger)
//	coercer.CoerceNumeric(table, []string{"player", "team", "matchup", "game_date"})
//
// # Cell Semantics
//
// Every cell is missing, a number, or text. Missing cells render as empty CSV
// fields; numbers render without exponent notation. Raw CSV ingestion maps
// empty fields to missing and everything else to text, so typing happens only
// through explicit coercion or derivation.
//
// # Error Handling
//
// Readers wrap the package-level sentinel errors from internal/errors so that
// callers can distinguish a missing source from an empty one.
package dataprocessing
