package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatRow_SetKeepsOrder(t *testing.T) {
	var r FlatRow
	r.Set("b", Int(1))
	r.Set("a", Int(2))
	r.Set("b", Int(3))

	assert.Equal(t, []string{"b", "a"}, r.Keys())
	v, ok := r.Get("b")
	assert.True(t, ok)
	assert.True(t, v.Equal(Int(3)))
}

func TestFlatRow_SetStringifiesContainers(t *testing.T) {
	r := Row(F("list", List(Int(1), Int(2))), F("obj", Object(F("k", String("v")))))

	v, _ := r.Get("list")
	assert.True(t, v.Equal(String("[1,2]")))
	v, _ = r.Get("obj")
	assert.True(t, v.Equal(String(`{"k":"v"}`)))
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable("name", "clicks", "revenue")
	require.NoError(t, tbl.AppendRow(String("a"), Int(10), Float(5)))
	require.NoError(t, tbl.AppendRow(String("b"), Int(20), Float(1)))
	require.NoError(t, tbl.AppendRow(String("c"), Int(5), Float(9)))
	return tbl
}

func TestTable_AppendRow_WrongWidth(t *testing.T) {
	tbl := NewTable("a", "b")
	err := tbl.AppendRow(Int(1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTable_ColumnAndCell(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 1, tbl.Index("clicks"))
	assert.Equal(t, -1, tbl.Index("missing"))
	assert.Nil(t, tbl.Column("missing"))
	assert.Len(t, tbl.Column("clicks"), 3)
	assert.True(t, tbl.Cell(1, "name").Equal(String("b")))
	assert.True(t, tbl.Cell(9, "name").IsNull())
}

func TestTable_Set(t *testing.T) {
	tbl := sampleTable(t)

	require.NoError(t, tbl.Set(0, "clicks", Int(99)))
	assert.True(t, tbl.Cell(0, "clicks").Equal(Int(99)))
	assert.ErrorIs(t, tbl.Set(0, "missing", Int(1)), ErrNotFound)
	assert.ErrorIs(t, tbl.Set(10, "clicks", Int(1)), ErrInvalidInput)
}

func TestTable_AddAndDropColumn(t *testing.T) {
	tbl := sampleTable(t)

	tbl.AddColumn("cost", Int(0))
	tbl.AddColumn("cost", Int(1))
	assert.Equal(t, []string{"name", "clicks", "revenue", "cost"}, tbl.Columns)
	assert.True(t, tbl.Cell(2, "cost").Equal(Int(0)))

	assert.True(t, tbl.DropColumn("clicks"))
	assert.False(t, tbl.DropColumn("clicks"))
	assert.Equal(t, []string{"name", "revenue", "cost"}, tbl.Columns)
	for _, row := range tbl.Rows {
		assert.Len(t, row, 3)
	}
	assert.True(t, tbl.Cell(1, "revenue").Equal(Float(1)))
}

func TestTable_RenameKeepsNormalized(t *testing.T) {
	tbl := sampleTable(t)
	tbl.MarkNormalized("revenue")

	tbl.RenameColumns(map[string]string{"revenue": "Revenue", "unknown": "x"})

	assert.Equal(t, []string{"name", "clicks", "Revenue"}, tbl.Columns)
	assert.True(t, tbl.IsNormalized("Revenue"))
	assert.False(t, tbl.IsNormalized("revenue"))
}

func TestTable_Select(t *testing.T) {
	tbl := sampleTable(t)

	sel, err := tbl.Select("revenue", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue", "name"}, sel.Columns)
	assert.True(t, sel.Cell(0, "name").Equal(String("a")))

	_, err = tbl.Select("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTable_SortByIsStable(t *testing.T) {
	tbl := NewTable("k", "v")
	require.NoError(t, tbl.AppendRow(Int(1), String("first")))
	require.NoError(t, tbl.AppendRow(Int(0), String("x")))
	require.NoError(t, tbl.AppendRow(Int(1), String("second")))

	tbl.SortBy(func(a, b []Value) bool {
		x, _ := a[0].IntValue()
		y, _ := b[0].IntValue()
		return x < y
	})

	assert.True(t, tbl.Cell(1, "v").Equal(String("first")))
	assert.True(t, tbl.Cell(2, "v").Equal(String("second")))
}

func TestTable_HeadAndFilterCopy(t *testing.T) {
	tbl := sampleTable(t)

	head := tbl.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, tbl.Len())

	filtered := tbl.Filter(func(row []Value) bool {
		f, _ := row[2].Float64()
		return f > 2
	})
	require.Equal(t, 2, filtered.Len())
	filtered.Rows[0][0] = String("changed")
	assert.True(t, tbl.Cell(0, "name").Equal(String("a")))

	assert.Equal(t, 3, tbl.Head(100).Len())
}

func TestTable_Values(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, []any{"name", "clicks", "revenue"}, tbl.Header())
	assert.Equal(t, []any{"a", int64(10), 5.0}, tbl.Values()[0])
}
