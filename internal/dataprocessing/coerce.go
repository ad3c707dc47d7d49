package dataprocessing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a raw numeric string, tolerating surrounding
// whitespace and thousands separators ("1,234" parses as 1234). NaN and
// infinities report failure so canonical output stays plain decimal.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CoerceStats summarizes one coercion pass.
type CoerceStats struct {
	// Converted counts text cells that became numbers.
	Converted int
	// ToMissing counts text cells that could not parse and became missing.
	ToMissing int
}

// Coercer converts table columns to numeric cells.
type Coercer struct {
	logger *slog.Logger
}

// NewCoercer creates a Coercer with the given logger.
func NewCoercer(logger *slog.Logger) *Coercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coercer{logger: logger}
}

// CoerceNumeric converts every column outside the exclusion set to numeric
// cells. Unparseable text becomes missing, excluded columns are returned
// byte-for-byte untouched, and already-numeric cells pass through, so the
// pass is idempotent.
func (c *Coercer) CoerceNumeric(t *Table, exclude []string) CoerceStats {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	var stats CoerceStats
	for idx, col := range t.cols {
		if skip[col] {
			continue
		}
		for i := range t.rows {
			v := t.rows[i][idx]
			if v.Kind() != KindText {
				continue
			}
			if f, ok := ParseNumber(v.Text()); ok {
				t.rows[i][idx] = Number(f)
				stats.Converted++
			} else {
				t.rows[i][idx] = Missing()
				stats.ToMissing++
			}
		}
	}
	if stats.ToMissing > 0 {
		c.logger.Debug("coerced unparseable cells to missing",
			slog.Int("cells", stats.ToMissing))
	}
	return stats
}
