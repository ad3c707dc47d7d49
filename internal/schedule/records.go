package schedule

import (
	"path/filepath"
	"time"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	"nbacli/pkg/contracts/domain"
)

// SeasonFile returns one season's combined schedule artifact.
func SeasonFile(paths *config.Paths, season string, playoffs bool) string {
	name := regularOutFile
	if playoffs {
		name = playoffOutFile
	}
	return filepath.Join(paths.ProcessedSeasonDir(ScheduleDomain, season, ""), name)
}

// GameRecords projects a derived schedule table to typed games for the
// given season. Regular season tables contribute game_week, playoff
// tables round and series_game; the projection reads whichever columns
// are present.
func GameRecords(t *dataprocessing.Table, season string) []domain.ScheduleGame {
	games := make([]domain.ScheduleGame, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		g := domain.ScheduleGame{
			Season: season,
			Team:   t.At(i, "team").String(),
			GameID: t.At(i, "game_id").String(),
			Away:   t.At(i, "away").String(),
			Home:   t.At(i, "home").String(),
			Round:  t.At(i, "round").String(),
		}
		if d, err := time.Parse("2006-01-02", t.At(i, "game_date").String()); err == nil {
			g.GameDate = d
		}
		if f, ok := numAt(t, i, "game_week"); ok {
			g.GameWeek = int(f)
		}
		if f, ok := numAt(t, i, "series_game"); ok {
			g.SeriesGame = int(f)
		}
		games = append(games, g)
	}
	return games
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
