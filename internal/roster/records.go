package roster

import (
	"path/filepath"
	"strings"
	"time"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	"nbacli/pkg/contracts/domain"
)

// PlayersFile returns the primary cleaned roster artifact.
func PlayersFile(paths *config.Paths) string {
	return filepath.Join(paths.ProcessedDomainDir(PlayersDomain), playersOutFile)
}

// FranchisesFile returns the cleaned franchise artifact.
func FranchisesFile(paths *config.Paths) string {
	return filepath.Join(paths.ProcessedDomainDir(FranchisesDomain), franchisesOutFile)
}

// PlayerRecords projects a cleaned roster table to typed player records.
// Rows keep their table order.
func PlayerRecords(t *dataprocessing.Table) []domain.Player {
	players := make([]domain.Player, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		p := domain.Player{
			PlayerKey:   t.At(i, "player_id").String(),
			PlayerID:    t.At(i, "pid").String(),
			Name:        t.At(i, "player").String(),
			Team:        t.At(i, "team").String(),
			Position:    t.At(i, "position").String(),
			Country:     t.At(i, "country").String(),
			DraftStatus: domain.DraftStatus(t.At(i, "draft_status").String()),
			HeadshotURL: t.At(i, "headshot_url").String(),
			ProfileURL:  t.At(i, "profile_url").String(),
			Retired:     dataprocessing.Truthy(t.At(i, "is_retired")),
		}
		if alt := t.At(i, "alt_positions").String(); alt != "" {
			p.AltPositions = strings.Split(alt, "|")
		}
		if f, ok := numAt(t, i, "height"); ok {
			p.HeightIn = int(f)
		}
		if f, ok := numAt(t, i, "weight"); ok {
			p.WeightLbs = f
		}
		if f, ok := numAt(t, i, "experience"); ok {
			p.Experience = int(f)
		}
		if f, ok := numAt(t, i, "draft_year"); ok {
			p.DraftYear = int(f)
		}
		if f, ok := numAt(t, i, "draft_round"); ok {
			p.DraftRound = int(f)
		}
		if f, ok := numAt(t, i, "draft_pick"); ok {
			p.DraftPick = int(f)
		}
		if d, err := time.Parse("2006-01-02", t.At(i, "birthdate").String()); err == nil {
			p.Birthdate = d
		}
		players = append(players, p)
	}
	return players
}

// FranchiseRecords projects a cleaned franchise table to typed records.
func FranchiseRecords(t *dataprocessing.Table) []domain.Franchise {
	franchises := make([]domain.Franchise, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		f := domain.Franchise{
			Code:       t.At(i, "code").String(),
			Name:       t.At(i, "name").String(),
			Nickname:   t.At(i, "nickname").String(),
			City:       t.At(i, "city").String(),
			Conference: t.At(i, "conference").String(),
			Division:   t.At(i, "division").String(),
			Active:     dataprocessing.Truthy(t.At(i, "is_active")),
			TeamURL:    t.At(i, "team_url").String(),
			LogoURL:    t.At(i, "logo_url").String(),
		}
		if y, ok := numAt(t, i, "first_season"); ok {
			f.FirstSeason = int(y)
		}
		if y, ok := numAt(t, i, "last_season"); ok {
			f.LastSeason = int(y)
		}
		franchises = append(franchises, f)
	}
	return franchises
}

// numAt reads a cell numerically whether it has been coerced yet or not.
func numAt(t *dataprocessing.Table, row int, col string) (float64, bool) {
	v := t.At(row, col)
	switch v.Kind() {
	case dataprocessing.KindNumber:
		return v.Num(), true
	case dataprocessing.KindText:
		return dataprocessing.ParseNumber(v.Text())
	default:
		return 0, false
	}
}
