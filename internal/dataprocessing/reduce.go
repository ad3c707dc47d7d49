package dataprocessing

import (
	"log/slog"
	"strings"
)

// Truthy interprets a cell as a boolean flag. Numbers are true when
// non-zero; text is true for "true" (any case) and "1"; missing cells are
// false.
func Truthy(v Value) bool {
	switch v.Kind() {
	case KindNumber:
		return v.Num() != 0
	case KindText:
		return strings.EqualFold(v.Text(), "true") || v.Text() == "1"
	default:
		return false
	}
}

// Reducer removes redundant or too-sparse rows from tables.
type Reducer struct {
	logger *slog.Logger
}

// NewReducer creates a Reducer with the given logger.
func NewReducer(logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{logger: logger}
}

// DropExactDuplicates removes rows equal across every column, keeping the
// first occurrence and the relative order of survivors. It returns the
// number of rows removed and is idempotent.
func (r *Reducer) DropExactDuplicates(t *Table) int {
	seen := make(map[string]bool, len(t.rows))
	kept := t.rows[:0]
	dropped := 0
	for _, row := range t.rows {
		key := rowKey(row)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	t.rows = kept
	if dropped > 0 {
		r.logger.Debug("dropped duplicate rows", slog.Int("rows", dropped))
	}
	return dropped
}

// rowKey renders a row so that cells differing in kind never collide.
func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteByte(byte('0' + v.Kind()))
		b.WriteString(v.String())
		b.WriteByte(0)
	}
	return b.String()
}

// PruneSparseRows drops rows whose flag column is true and whose count of
// missing or empty core columns meets the threshold. Rows with a false
// flag are never pruned. It returns the number of rows removed.
func (r *Reducer) PruneSparseRows(t *Table, flagCol string, coreCols []string, threshold int) int {
	flagIdx, ok := t.ColumnIndex(flagCol)
	if !ok {
		return 0
	}
	coreIdx := make([]int, 0, len(coreCols))
	for _, c := range coreCols {
		if i, found := t.ColumnIndex(c); found {
			coreIdx = append(coreIdx, i)
		}
	}
	kept := t.rows[:0]
	dropped := 0
	for _, row := range t.rows {
		if Truthy(row[flagIdx]) {
			missing := 0
			for _, i := range coreIdx {
				v := row[i]
				if v.IsMissing() || v.String() == "" {
					missing++
				}
			}
			if missing >= threshold {
				dropped++
				continue
			}
		}
		kept = append(kept, row)
	}
	t.rows = kept
	if dropped > 0 {
		r.logger.Debug("pruned sparse rows",
			slog.String("flag", flagCol),
			slog.Int("rows", dropped))
	}
	return dropped
}
