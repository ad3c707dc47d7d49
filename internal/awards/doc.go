// Package awards cleans the voting and selection tables. Per-award
// ballot files melt their wide player-slot columns into one row per
// player, all-league team selections additionally split the trailing
// position token off each player cell, and the MVP table carries its
// player id in the trailing column.
package awards
