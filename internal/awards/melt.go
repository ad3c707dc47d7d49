package awards

import (
	"strings"

	"nbacli/internal/dataprocessing"
)

// playerSlotColumn reports whether a normalized header names one of the
// anonymous player-slot columns the voting exports carry ("unnamed_4",
// "unnamed_5", ...).
func playerSlotColumn(name string) bool {
	return strings.HasPrefix(name, "unnamed") && strings.ContainsAny(name, "0123456789")
}

// playerSlots returns the player-slot columns of a table in order.
func playerSlots(t *dataprocessing.Table) []string {
	var slots []string
	for _, c := range t.Columns() {
		if playerSlotColumn(c) {
			slots = append(slots, c)
		}
	}
	return slots
}

// meltPlayers reshapes the wide player-slot columns into a long table
// with one row per named player. The id columns repeat per slot, blank
// slots are dropped, and the members of each ballot stay adjacent.
func meltPlayers(t *dataprocessing.Table, slots []string) *dataprocessing.Table {
	slotSet := make(map[string]bool, len(slots))
	for _, s := range slots {
		slotSet[s] = true
	}
	keep := make([]string, 0, t.NumCols())
	for _, c := range t.Columns() {
		if !slotSet[c] && c != "player" {
			keep = append(keep, c)
		}
	}

	out := dataprocessing.NewTable(append(append([]string(nil), keep...), "player"))
	for i := 0; i < t.NumRows(); i++ {
		for _, slot := range slots {
			v := t.At(i, slot)
			if v.IsMissing() || strings.TrimSpace(v.String()) == "" {
				continue
			}
			row := make([]dataprocessing.Value, 0, len(keep)+1)
			for _, c := range keep {
				row = append(row, t.At(i, c))
			}
			row = append(row, dataprocessing.Text(strings.TrimSpace(v.String())))
			out.AppendRow(row)
		}
	}
	return out
}

// splitNamePosition separates a trailing short position token from a
// melted player cell: "Nikola Jokic C" yields ("Nikola Jokic", "C").
// Cells without a two-letter-or-shorter tail stay whole.
func splitNamePosition(s string) (name, pos string) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, " ")
	if i < 0 {
		return s, ""
	}
	tail := s[i+1:]
	if len(tail) > 2 {
		return s, ""
	}
	return strings.TrimSpace(s[:i]), tail
}

// addSeasonBounds derives numeric season_start and season_end columns
// from the season label. Rows with unparseable labels get missing bounds.
func addSeasonBounds(t *dataprocessing.Table) {
	if !t.HasColumn("season") {
		return
	}
	starts := make([]dataprocessing.Value, t.NumRows())
	ends := make([]dataprocessing.Value, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		span, err := dataprocessing.ParseSeasonSpan(t.At(i, "season").String())
		if err != nil {
			starts[i] = dataprocessing.Missing()
			ends[i] = dataprocessing.Missing()
			continue
		}
		starts[i] = dataprocessing.Number(float64(span.Start))
		ends[i] = dataprocessing.Number(float64(span.End))
	}
	t.AddColumn("season_start", starts)
	t.AddColumn("season_end", ends)
}
