package domain

import (
	"time"
)

// Reserved team codes for players without a current franchise.
const (
	TeamFreeAgent = "FA"
	TeamRetired   = "RET"
)

// DraftStatus marks whether a player entered the league through the draft.
type DraftStatus string

const (
	DraftStatusDrafted   DraftStatus = "Drafted"
	DraftStatusUndrafted DraftStatus = "UDF"
)

// Player represents one cleaned roster entry.
type Player struct {
	PlayerKey    string      `json:"player_key" validate:"required,len=9"`
	PlayerID     string      `json:"player_id,omitempty"`
	Name         string      `json:"name" validate:"required"`
	Team         string      `json:"team" validate:"required"`
	Position     string      `json:"position,omitempty"`
	AltPositions []string    `json:"alt_positions,omitempty"`
	HeightIn     int         `json:"height_in,omitempty"`
	WeightLbs    float64     `json:"weight_lbs,omitempty"`
	Experience   int         `json:"experience"`
	Country      string      `json:"country,omitempty"`
	Birthdate    time.Time   `json:"birthdate"`
	DraftStatus  DraftStatus `json:"draft_status"`
	DraftYear    int         `json:"draft_year"`
	DraftRound   int         `json:"draft_round"`
	DraftPick    int         `json:"draft_pick"`
	HeadshotURL  string      `json:"headshot_url,omitempty"`
	ProfileURL   string      `json:"profile_url,omitempty"`
	Retired      bool        `json:"retired"`
}

// IsFreeAgent reports whether the player is unattached to a franchise.
func (p Player) IsFreeAgent() bool {
	return p.Team == TeamFreeAgent
}

// Drafted reports whether the player entered the league through the draft.
func (p Player) Drafted() bool {
	return p.DraftStatus == DraftStatusDrafted
}
