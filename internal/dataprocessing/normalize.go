package dataprocessing

import (
	"log/slog"
	"strings"
	"unicode"
)

// NormalizeName maps a raw column header to its canonical snake_case form:
// trim, lowercase, "%" becomes "pct", "/" becomes "_", every run of
// non-word characters becomes a single "_", repeated underscores collapse,
// and edge underscores are stripped. The function is idempotent.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "%", "pct")
	s = strings.ReplaceAll(s, "/", "_")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '_' })
	return strings.Join(parts, "_")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Normalizer applies canonical header normalization to tables. Collisions
// where two raw headers normalize to the same name resolve last-write-wins:
// the later column survives and the earlier one is dropped with a warning.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// NormalizeNames maps each raw name to its canonical form, preserving
// length and order. Collisions are not resolved here.
func (n *Normalizer) NormalizeNames(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = NormalizeName(name)
	}
	return out
}

// NormalizeHeader rewrites the table's column names in place. When two
// columns normalize to the same canonical name, the later column wins and
// the earlier one is removed from the table.
func (n *Normalizer) NormalizeHeader(t *Table) {
	names := n.NormalizeNames(t.cols)
	last := make(map[string]int, len(names))
	for i, name := range names {
		last[name] = i
	}
	keptIdx := make([]int, 0, len(names))
	for i, name := range names {
		if last[name] != i {
			n.logger.Warn("column collision after normalization",
				slog.String("dropped_raw", t.cols[i]),
				slog.String("kept_raw", t.cols[last[name]]),
				slog.String("canonical", name))
			continue
		}
		keptIdx = append(keptIdx, i)
	}
	cols := make([]string, len(keptIdx))
	for j, i := range keptIdx {
		cols[j] = names[i]
	}
	index := make(map[string]int, len(cols))
	for j, c := range cols {
		index[c] = j
	}
	if len(keptIdx) != len(t.cols) {
		for r, row := range t.rows {
			next := make([]Value, len(keptIdx))
			for j, i := range keptIdx {
				next[j] = row[i]
			}
			t.rows[r] = next
		}
	}
	t.cols = cols
	t.index = index
}
