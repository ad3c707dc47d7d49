package domain

// Franchise represents one cleaned NBA franchise entry, active or
// historical.
type Franchise struct {
	Code        string `json:"code" validate:"required,min=2,max=4"`
	Name        string `json:"name" validate:"required"`
	Nickname    string `json:"nickname,omitempty"`
	City        string `json:"city,omitempty"`
	Conference  string `json:"conference,omitempty"`
	Division    string `json:"division,omitempty"`
	FirstSeason int    `json:"first_season,omitempty"`
	LastSeason  int    `json:"last_season,omitempty"`
	Active      bool   `json:"active"`
	TeamURL     string `json:"team_url,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}
