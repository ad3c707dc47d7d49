package domain

import (
	"time"
)

// Playoff round codes as written into derived schedule tables. A series
// past the finals reads RoundUnknown.
const (
	RoundFirst     = "RND1"
	RoundSemis     = "SF"
	RoundConfFinal = "CONF"
	RoundFinals    = "FINALS"
	RoundUnknown   = "UNKNOWN"
)

// ScheduleGame represents one game from a team's derived schedule. The
// same game appears once per participating team, keyed by the owning
// Team column.
type ScheduleGame struct {
	Season   string    `json:"season" validate:"required"`
	Team     string    `json:"team" validate:"required"`
	GameID   string    `json:"game_id" validate:"required"`
	GameDate time.Time `json:"game_date"`
	Away     string    `json:"away"`
	Home     string    `json:"home"`

	// GameWeek is the 1-based position in the team's regular season
	// and zero for playoff games.
	GameWeek int `json:"game_week,omitempty"`

	// Round and SeriesGame are set for playoff games only.
	Round      string `json:"round,omitempty"`
	SeriesGame int    `json:"series_game,omitempty"`
}

// Playoff reports whether the game belongs to a playoff series.
func (g ScheduleGame) Playoff() bool {
	return g.Round != ""
}

// HomeGame reports whether the owning team hosts.
func (g ScheduleGame) HomeGame() bool {
	return g.Home == g.Team
}

// Opponent returns the other side of the game from the owning team's
// view.
func (g ScheduleGame) Opponent() string {
	if g.HomeGame() {
		return g.Away
	}
	return g.Home
}
