package tabular

import (
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// LeftJoin keeps every row of left and appends the columns of right. A left
// row matching several right rows is repeated once per match, in right
// order. Unmatched rows are back-filled per policy. Right columns that
// already exist on left are skipped. leftOn and rightOn must have the same
// length.
func LeftJoin(left, right *domain.Table, leftOn, rightOn []string, policy FillPolicy) (*domain.Table, error) {
	if len(leftOn) != len(rightOn) || len(leftOn) == 0 {
		return nil, domain.ErrInvalidInput
	}
	lidx, err := indexes(left, leftOn)
	if err != nil {
		return nil, err
	}
	ridx, err := indexes(right, rightOn)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string][][]domain.Value, len(right.Rows))
	for _, row := range right.Rows {
		k := key(row, ridx)
		lookup[k] = append(lookup[k], row)
	}

	var extra []int
	out := left.Clone()
	for i, c := range right.Columns {
		if out.HasColumn(c) {
			continue
		}
		extra = append(extra, i)
		out.Columns = append(out.Columns, c)
	}

	rows := make([][]domain.Value, 0, len(left.Rows))
	for _, row := range left.Rows {
		matches := lookup[key(row, lidx)]
		if len(matches) == 0 {
			matches = [][]domain.Value{nil}
		}
		for _, match := range matches {
			joined := make([]domain.Value, len(row), len(row)+len(extra))
			copy(joined, row)
			for _, i := range extra {
				if match != nil && !match[i].IsNull() {
					joined = append(joined, match[i])
				} else {
					joined = append(joined, policy.Fill(right.Columns[i]))
				}
			}
			rows = append(rows, joined)
		}
	}
	out.Rows = rows
	return out, nil
}

func indexes(t *domain.Table, columns []string) ([]int, error) {
	out := make([]int, len(columns))
	for i, c := range columns {
		out[i] = t.Index(c)
		if out[i] < 0 {
			return nil, &MissingColumnError{Column: c}
		}
	}
	return out, nil
}

func key(row []domain.Value, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = row[j].Text()
	}
	return strings.Join(parts, "\x00")
}

// MissingColumnError reports a join key column that does not exist.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return "join column " + e.Column + " not found"
}

// Is matches domain.ErrNotFound.
func (e *MissingColumnError) Is(target error) bool {
	return target == domain.ErrNotFound
}
