// Package roster cleans the season-independent entity tables: the
// all-players bio table and the franchise list. Both flow through the
// shared cleaning primitives (header normalization, key derivation,
// numeric coercion, deduplication, partitioned writes) and project to
// the typed records the API serves.
package roster
