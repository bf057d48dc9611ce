package warehouse

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// sqlType is the inferred storage type of a column.
type sqlType int

const (
	typeText sqlType = iota
	typeBigInt
	typeDouble
	typeBool
)

// dialect holds the syntax differences between warehouses.
type dialect struct {
	name        string
	quote       byte
	types       map[sqlType]string
	placeholder func(n int) string
}

var mysqlDialect = dialect{
	name:  "mysql",
	quote: '`',
	types: map[sqlType]string{
		typeText:   "TEXT",
		typeBigInt: "BIGINT",
		typeDouble: "DOUBLE",
		typeBool:   "BOOLEAN",
	},
	placeholder: func(int) string { return "?" },
}

var postgresDialect = dialect{
	name:  "postgres",
	quote: '"',
	types: map[sqlType]string{
		typeText:   "TEXT",
		typeBigInt: "BIGINT",
		typeDouble: "DOUBLE PRECISION",
		typeBool:   "BOOLEAN",
	},
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

// ident quotes name, doubling any embedded quote character.
func (d dialect) ident(name string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// createTable renders CREATE TABLE IF NOT EXISTS for the table's columns.
func (d dialect) createTable(name string, columns []string, types []sqlType) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.ident(c) + " " + d.types[types[i]]
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.ident(name), strings.Join(defs, ", "))
}

// insert renders a multi-row INSERT for rows rows.
func (d dialect) insert(name string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.ident(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.ident(name), strings.Join(quoted, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// inferTypes picks a storage type per column from its non-null cells.
func inferTypes(table *domain.Table) []sqlType {
	types := make([]sqlType, len(table.Columns))
	for c := range table.Columns {
		var ints, floats, bools, others int
		for _, row := range table.Rows {
			switch row[c].Kind() {
			case domain.KindNull:
			case domain.KindInt:
				ints++
			case domain.KindFloat:
				floats++
			case domain.KindBool:
				bools++
			default:
				others++
			}
		}
		switch {
		case others > 0:
			types[c] = typeText
		case bools > 0 && ints+floats == 0:
			types[c] = typeBool
		case bools > 0:
			types[c] = typeText
		case floats > 0:
			types[c] = typeDouble
		case ints > 0:
			types[c] = typeBigInt
		default:
			types[c] = typeText
		}
	}
	return types
}

// rowValues converts the cells to values matching types.
func rowValues(table *domain.Table, types []sqlType) [][]any {
	out := make([][]any, len(table.Rows))
	for r, row := range table.Rows {
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = convert(v, types[c])
		}
		out[r] = cells
	}
	return out
}

func convert(v domain.Value, t sqlType) any {
	if v.IsNull() {
		return nil
	}
	switch t {
	case typeBigInt:
		if i, ok := v.IntValue(); ok {
			return i
		}
	case typeDouble:
		if f, ok := v.Float64(); ok {
			return f
		}
	case typeBool:
		if b, ok := v.BoolValue(); ok {
			return b
		}
	}
	return v.Text()
}
