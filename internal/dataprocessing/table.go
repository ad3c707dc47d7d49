package dataprocessing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the state of a table cell.
type Kind uint8

const (
	// KindMissing marks a cell with no value. It renders as an empty CSV field.
	KindMissing Kind = iota
	// KindNumber marks a numeric cell.
	KindNumber
	// KindText marks a textual cell.
	KindText
)

// Value is a single table cell. The zero value is a missing cell.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns a missing cell.
func Missing() Value {
	return Value{kind: KindMissing}
}

// Number returns a numeric cell.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text returns a textual cell.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Bool returns a textual cell holding "true" or "false".
func Bool(b bool) Value {
	if b {
		return Text("true")
	}
	return Text("false")
}

// ParseCell maps a raw CSV field to a cell. Empty fields are missing,
// everything else is text; typing happens later through coercion.
func ParseCell(s string) Value {
	if s == "" {
		return Missing()
	}
	return Text(s)
}

// Kind reports the cell state.
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether the cell has no value.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Num returns the numeric value. It is only meaningful for KindNumber cells.
func (v Value) Num() float64 {
	return v.num
}

// Text returns the textual value. It is only meaningful for KindText cells.
func (v Value) Text() string {
	return v.text
}

// String renders the cell in its canonical CSV form.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same state and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	default:
		return true
	}
}

// FormatNumber renders a float in its canonical CSV form: the shortest
// decimal representation without exponent notation, so 28 stays "28" and
// 48.5 stays "48.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Compare orders two cells for sorting. Numbers order before text, equal
// kinds compare by value, and missing cells always order last.
func Compare(a, b Value) int {
	if a.kind == KindMissing || b.kind == KindMissing {
		switch {
		case a.kind == b.kind:
			return 0
		case a.kind == KindMissing:
			return 1
		default:
			return -1
		}
	}
	if a.kind != b.kind {
		if a.kind == KindNumber {
			return -1
		}
		return 1
	}
	if a.kind == KindNumber {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.text, b.text)
}

// Table is an ordered grid of cells with named, indexed columns. Column
// order is preserved through every operation so written files keep a stable
// header layout.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value
}

// NewTable creates an empty table with the given column names.
func NewTable(cols []string) *Table {
	t := &Table{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	return t
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// AppendRow adds a row. Short rows are padded with missing cells and long
// rows are truncated, so ragged CSV input never corrupts the grid.
func (t *Table) AppendRow(cells []Value) {
	row := make([]Value, len(t.cols))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Row returns the cells of row i. The slice is shared with the table.
func (t *Table) Row(i int) []Value {
	return t.rows[i]
}

// At returns the cell at the named column of row i. Unknown columns read as
// missing.
func (t *Table) At(i int, col string) Value {
	idx, ok := t.index[col]
	if !ok {
		return Missing()
	}
	return t.rows[i][idx]
}

// Set stores a cell at the named column of row i. Unknown columns are a
// silent no-op so derivations can run against partial schemas.
func (t *Table) Set(i int, col string, v Value) {
	idx, ok := t.index[col]
	if !ok {
		return
	}
	t.rows[i][idx] = v
}

// RenameColumn changes a column name in place. Renaming onto an existing
// name drops the displaced column, so the last write wins and headers stay
// unique.
func (t *Table) RenameColumn(old, name string) bool {
	idx, ok := t.index[old]
	if !ok || old == name {
		return ok
	}
	if _, exists := t.index[name]; exists {
		t.DropColumns(name)
		idx = t.index[old]
	}
	delete(t.index, old)
	t.cols[idx] = name
	t.index[name] = idx
	return true
}

// AddColumn appends a new column filled from values. Missing cells pad the
// tail when values is shorter than the table.
func (t *Table) AddColumn(name string, values []Value) error {
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for i := range t.rows {
		v := Missing()
		if i < len(values) {
			v = values[i]
		}
		t.rows[i] = append(t.rows[i], v)
	}
	return nil
}

// AddColumnFunc appends a new column computed per row.
func (t *Table) AddColumnFunc(name string, fn func(row int) Value) error {
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fn(i))
	}
	return nil
}

// AppendTable appends every row of src, aligning columns by name. Columns
// unique to src are added to the receiver first (existing rows pad with
// missing); receiver columns absent from src fill with missing.
func (t *Table) AppendTable(src *Table) {
	for _, c := range src.cols {
		if _, ok := t.index[c]; !ok {
			t.AddColumn(c, nil)
		}
	}
	for i := range src.rows {
		row := make([]Value, len(t.cols))
		for j := range row {
			row[j] = Missing()
		}
		for k, c := range src.cols {
			row[t.index[c]] = src.rows[i][k]
		}
		t.rows = append(t.rows, row)
	}
}

// DropColumns removes the named columns, ignoring unknown names.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := make([]string, 0, len(t.cols))
	keptIdx := make([]int, 0, len(t.cols))
	for i, c := range t.cols {
		if !drop[c] {
			kept = append(kept, c)
			keptIdx = append(keptIdx, i)
		}
	}
	if len(kept) == len(t.cols) {
		return
	}
	t.cols = kept
	t.index = make(map[string]int, len(kept))
	for i, c := range kept {
		t.index[c] = i
	}
	for r, row := range t.rows {
		next := make([]Value, len(keptIdx))
		for i, idx := range keptIdx {
			next[i] = row[idx]
		}
		t.rows[r] = next
	}
}

// SortBy stably sorts rows by the given columns in priority order. Missing
// cells order last within each column, matching the write order of the
// upstream feeds.
func (t *Table) SortBy(cols ...string) {
	idxs := make([]int, 0, len(cols))
	for _, c := range cols {
		if i, ok := t.index[c]; ok {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, i := range idxs {
			if c := Compare(t.rows[a][i], t.rows[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// Filter returns a new table holding the rows for which keep returns true.
// Row slices are shared with the receiver.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := NewTable(t.cols)
	for i := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, t.rows[i])
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.cols)
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		out.rows[i] = append([]Value(nil), row...)
	}
	return out
}

// Group is one partition of a table keyed by a column value.
type Group struct {
	Key   string
	Table *Table
}

// GroupBy partitions rows by the rendered value of the named column and
// returns the groups sorted by key. Rows with a missing key are not
// assigned to any group; the second return reports how many were skipped.
func (t *Table) GroupBy(col string) ([]Group, int) {
	idx, ok := t.index[col]
	if !ok {
		return nil, len(t.rows)
	}
	groups := make(map[string]*Table)
	skipped := 0
	for i := range t.rows {
		v := t.rows[i][idx]
		if v.IsMissing() {
			skipped++
			continue
		}
		key := v.String()
		g, ok := groups[key]
		if !ok {
			g = NewTable(t.cols)
			groups[key] = g
		}
		g.rows = append(g.rows, t.rows[i])
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Group, len(keys))
	for i, k := range keys {
		out[i] = Group{Key: k, Table: groups[k]}
	}
	return out, skipped
}

// Records renders the table as a header row followed by data rows, ready
// for a CSV writer.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = v.String()
		}
		out = append(out, rec)
	}
	return out
}
