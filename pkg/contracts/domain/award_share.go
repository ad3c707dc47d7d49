package domain

// AwardShare represents one player's line on a cleaned award ballot.
// Vote tallies come from wide ballot exports after the player slots
// have been melted into rows.
type AwardShare struct {
	Award       string  `json:"award" validate:"required"`
	Season      string  `json:"season" validate:"required"`
	SeasonStart int     `json:"season_start,omitempty"`
	SeasonEnd   int     `json:"season_end,omitempty"`
	League      string  `json:"league,omitempty"`
	Rank        int     `json:"rank,omitempty"`
	Player      string  `json:"player" validate:"required"`
	PlayerKey   string  `json:"player_key,omitempty"`
	Team        string  `json:"team,omitempty"`
	FirstPlace  float64 `json:"first_place"`
	PointsWon   float64 `json:"points_won"`
	PointsMax   float64 `json:"points_max"`
	Share       float64 `json:"share"`
}

// Won reports whether this line took the award outright. Tied ranks
// come through the cleaning pass blank and never read as a win.
func (a AwardShare) Won() bool {
	return a.Rank == 1
}

// Unanimous reports whether every first-place vote went to this line.
func (a AwardShare) Unanimous() bool {
	return a.PointsMax > 0 && a.PointsWon == a.PointsMax
}

// VoteShare returns the share, recomputing it from the tallies when the
// source file omitted the column.
func (a AwardShare) VoteShare() float64 {
	if a.Share > 0 {
		return a.Share
	}
	if a.PointsMax == 0 {
		return 0
	}
	return a.PointsWon / a.PointsMax
}
