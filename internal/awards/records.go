package awards

import (
	"path/filepath"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	"nbacli/pkg/contracts/domain"
)

// BallotFile returns the cleaned ballot artifact for one award.
func BallotFile(paths *config.Paths, award string) string {
	return filepath.Join(paths.ProcessedDomainDir(AwardsDomain), award+cleanedSuffix)
}

// BallotRecords projects a cleaned ballot table to typed award shares.
// Rows keep their table order.
func BallotRecords(t *dataprocessing.Table) []domain.AwardShare {
	shares := make([]domain.AwardShare, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		s := domain.AwardShare{
			Award:     t.At(i, "award").String(),
			Season:    t.At(i, "season").String(),
			League:    t.At(i, "lg").String(),
			Player:    t.At(i, "player").String(),
			PlayerKey: t.At(i, "player_id").String(),
			Team:      t.At(i, "team").String(),
		}
		if f, ok := numAt(t, i, "season_start"); ok {
			s.SeasonStart = int(f)
		}
		if f, ok := numAt(t, i, "season_end"); ok {
			s.SeasonEnd = int(f)
		}
		if f, ok := numAt(t, i, "rank"); ok {
			s.Rank = int(f)
		}
		if f, ok := numAt(t, i, "first"); ok {
			s.FirstPlace = f
		}
		if f, ok := numAt(t, i, "pts_won"); ok {
			s.PointsWon = f
		}
		if f, ok := numAt(t, i, "pts_max"); ok {
			s.PointsMax = f
		}
		if f, ok := numAt(t, i, "share"); ok {
			s.Share = f
		}
		shares = append(shares, s)
	}
	return shares
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
