package domain

import (
	"fmt"
	"sort"
)

// FlatRow maps single-level column names to scalar values.
// Keys keep the order they were first set in.
// The zero FlatRow is empty and ready to use.
type FlatRow struct {
	keys []string
	vals map[string]Value
}

// Row builds a FlatRow from fields in order.
func Row(fields ...Field) FlatRow {
	var r FlatRow
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set stores v under key. Containers are stored as their JSON text
// so a row never holds a nested value.
func (r *FlatRow) Set(key string, v Value) {
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if v.Kind() == KindList || v.Kind() == KindObject {
		v = String(v.Text())
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Get returns the value stored under key.
func (r FlatRow) Get(key string) (Value, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Keys returns the column names in first-set order.
func (r FlatRow) Keys() []string {
	return r.keys
}

// Len returns the number of columns in the row.
func (r FlatRow) Len() int {
	return len(r.keys)
}

// Table is a rectangular result set. Every row has one cell per column.
type Table struct {
	// Columns holds the header in display order.
	Columns []string

	// Rows holds the cells, one slice per row, aligned with Columns.
	Rows [][]Value

	// Sentinel is the text used to back-fill missing non-numeric cells.
	Sentinel string

	// normalized records columns already converted from micros.
	normalized map[string]bool
}

// NewTable returns an empty table with the given header.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table carries column.
func (t *Table) HasColumn(column string) bool {
	return t.Index(column) >= 0
}

// Column returns a copy of every cell in column, or nil if it is absent.
func (t *Table) Column(column string) []Value {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Cell returns the value at row i in column.
func (t *Table) Cell(i int, column string) Value {
	idx := t.Index(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i][idx]
}

// Set overwrites the value at row i in column.
func (t *Table) Set(i int, column string, v Value) error {
	idx := t.Index(column)
	if idx < 0 {
		return fmt.Errorf("column %q: %w", column, ErrNotFound)
	}
	if i < 0 || i >= len(t.Rows) {
		return fmt.Errorf("row %d out of range: %w", i, ErrInvalidInput)
	}
	t.Rows[i][idx] = v
	return nil
}

// AppendRow adds a row. It must have one cell per column.
func (t *Table) AppendRow(cells ...Value) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns: %w", len(cells), len(t.Columns), ErrInvalidInput)
	}
	row := make([]Value, len(cells))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends column filled with fill. Existing columns are left alone.
func (t *Table) AddColumn(column string, fill Value) {
	if t.HasColumn(column) {
		return
	}
	t.Columns = append(t.Columns, column)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fill)
	}
}

// DropColumn removes column and reports whether it was present.
func (t *Table) DropColumn(column string) bool {
	idx := t.Index(column)
	if idx < 0 {
		return false
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:idx], row[idx+1:]...)
	}
	delete(t.normalized, column)
	return true
}

// RenameColumns renames columns per the old→new mapping. Unknown names are ignored.
func (t *Table) RenameColumns(names map[string]string) {
	for i, c := range t.Columns {
		if n, ok := names[c]; ok {
			t.Columns[i] = n
			if t.normalized[c] {
				delete(t.normalized, c)
				t.MarkNormalized(n)
			}
		}
	}
}

// Select returns a new table holding only the named columns, in that order.
// Missing columns are reported as ErrNotFound.
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q: %w", c, ErrNotFound)
		}
	}
	out := NewTable(columns...)
	out.Sentinel = t.Sentinel
	for _, c := range columns {
		if t.IsNormalized(c) {
			out.MarkNormalized(c)
		}
	}
	out.Rows = make([][]Value, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]Value, len(idx))
		for i, j := range idx {
			cells[i] = row[j]
		}
		out.Rows[r] = cells
	}
	return out, nil
}

// Clone returns a deep copy of the table's header and rows.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Sentinel = t.Sentinel
	for c := range t.normalized {
		out.MarkNormalized(c)
	}
	out.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}
	return out
}

// SortBy stably sorts rows in place.
func (t *Table) SortBy(less func(a, b []Value) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	out := t.Clone()
	if n >= 0 && n < len(out.Rows) {
		out.Rows = out.Rows[:n]
	}
	return out
}

// Filter returns a copy holding the rows keep accepts.
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	out := NewTable(t.Columns...)
	out.Sentinel = t.Sentinel
	for c := range t.normalized {
		out.MarkNormalized(c)
	}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, append([]Value(nil), row...))
		}
	}
	return out
}

// MarkNormalized records that column already holds currency units.
func (t *Table) MarkNormalized(column string) {
	if t.normalized == nil {
		t.normalized = make(map[string]bool)
	}
	t.normalized[column] = true
}

// IsNormalized reports whether column was converted from micros.
func (t *Table) IsNormalized(column string) bool {
	return t.normalized[column]
}

// Values renders the rows as plain Go values for spreadsheet and SQL sinks.
func (t *Table) Values() [][]any {
	out := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v.Native()
		}
		out[i] = cells
	}
	return out
}

// Header returns the column names as plain values.
func (t *Table) Header() []any {
	out := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c
	}
	return out
}
