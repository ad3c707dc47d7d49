// Package schedule derives season schedules from the cleaned team box
// scores: per-team regular season tables with a game-week index and
// playoff tables with series rounds and within-series game numbers.
package schedule
