// Package tabular assembles flattened rows into rectangular tables.
package tabular

import (
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// DefaultSentinel back-fills missing text cells.
const DefaultSentinel = "--"

// DefaultNumericMarkers are the column-name fragments that mark a column as numeric.
var DefaultNumericMarkers = []string{
	"metrics", "micros", "cost", "spend", "value", "roas",
	"clicks", "impressions", "conversions", "revenue", "sessions", "users",
}

// FillPolicy decides the back-fill value for a missing cell.
type FillPolicy struct {
	// Sentinel is used for columns that are not numeric.
	Sentinel string

	// NumericMarkers are matched case-insensitively against column names.
	// A matching column is back-filled with integer zero.
	NumericMarkers []string
}

// DefaultFillPolicy returns the policy used for every source: "--" for text, 0 for numbers.
func DefaultFillPolicy() FillPolicy {
	return FillPolicy{
		Sentinel:       DefaultSentinel,
		NumericMarkers: DefaultNumericMarkers,
	}
}

// IsNumeric reports whether column carries a numeric marker.
func (p FillPolicy) IsNumeric(column string) bool {
	lower := strings.ToLower(column)
	for _, m := range p.NumericMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Fill returns the back-fill value for column.
func (p FillPolicy) Fill(column string) domain.Value {
	if p.IsNumeric(column) {
		return domain.Int(0)
	}
	return domain.String(p.Sentinel)
}

// Accumulator collects heterogeneous rows. Columns are the union of all
// keys in first-seen order.
type Accumulator struct {
	policy  FillPolicy
	columns []string
	index   map[string]int
	rows    []domain.FlatRow
}

// NewAccumulator creates an Accumulator with policy.
func NewAccumulator(policy FillPolicy) *Accumulator {
	return &Accumulator{
		policy: policy,
		index:  make(map[string]int),
	}
}

// Add appends rows and records any new columns.
func (a *Accumulator) Add(rows ...domain.FlatRow) {
	for _, row := range rows {
		for _, k := range row.Keys() {
			if _, ok := a.index[k]; !ok {
				a.index[k] = len(a.columns)
				a.columns = append(a.columns, k)
			}
		}
		a.rows = append(a.rows, row)
	}
}

// Len returns the number of rows added.
func (a *Accumulator) Len() int {
	return len(a.rows)
}

// Columns returns the discovered columns in first-seen order.
func (a *Accumulator) Columns() []string {
	out := make([]string, len(a.columns))
	copy(out, a.columns)
	return out
}

// Table builds the rectangular table. Cells a row does not carry are
// back-filled per the policy.
func (a *Accumulator) Table() *domain.Table {
	t := domain.NewTable(a.columns...)
	t.Sentinel = a.policy.Sentinel
	fills := make([]domain.Value, len(a.columns))
	for i, c := range a.columns {
		fills[i] = a.policy.Fill(c)
	}
	t.Rows = make([][]domain.Value, len(a.rows))
	for r, row := range a.rows {
		cells := make([]domain.Value, len(a.columns))
		for i, c := range a.columns {
			if v, ok := row.Get(c); ok && !v.IsNull() {
				cells[i] = v
			} else {
				cells[i] = fills[i]
			}
		}
		t.Rows[r] = cells
	}
	return t
}

// FromRows builds a table from rows in one call.
func FromRows(policy FillPolicy, rows []domain.FlatRow) *domain.Table {
	acc := NewAccumulator(policy)
	acc.Add(rows...)
	return acc.Table()
}
