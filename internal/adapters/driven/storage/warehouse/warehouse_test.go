package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

func sampleTable() *domain.Table {
	t := domain.NewTable("Product Id", "Clicks", "Spent", "Active", "Note")
	t.Rows = [][]domain.Value{
		{domain.String("sku-1"), domain.Int(4), domain.Float(1.5), domain.Bool(true), domain.String("--")},
		{domain.String("sku-2"), domain.Int(0), domain.Int(0), domain.Bool(false), domain.Null()},
	}
	return t
}

func TestInferTypes(t *testing.T) {
	types := inferTypes(sampleTable())
	assert.Equal(t, []sqlType{typeText, typeBigInt, typeDouble, typeBool, typeText}, types)
}

func TestInferTypes_MixedAndEmpty(t *testing.T) {
	table := domain.NewTable("mixed", "empty", "flag")
	table.Rows = [][]domain.Value{
		{domain.Int(1), domain.Null(), domain.Bool(true)},
		{domain.String("--"), domain.Null(), domain.Int(1)},
	}
	assert.Equal(t, []sqlType{typeText, typeText, typeText}, inferTypes(table))
}

func TestRowValues(t *testing.T) {
	table := sampleTable()
	rows := rowValues(table, inferTypes(table))

	require.Len(t, rows, 2)
	assert.Equal(t, []any{"sku-1", int64(4), 1.5, true, "--"}, rows[0])
	assert.Equal(t, []any{"sku-2", int64(0), float64(0), false, nil}, rows[1])
}

func TestDialect_CreateTable(t *testing.T) {
	table := sampleTable()
	types := inferTypes(table)

	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS `shopping_1_merchant_data` (`Product Id` TEXT, `Clicks` BIGINT, "+
			"`Spent` DOUBLE, `Active` BOOLEAN, `Note` TEXT)",
		mysqlDialect.createTable("shopping_1_merchant_data", table.Columns, types))

	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "shopping_1_merchant_data" ("Product Id" TEXT, "Clicks" BIGINT, `+
			`"Spent" DOUBLE PRECISION, "Active" BOOLEAN, "Note" TEXT)`,
		postgresDialect.createTable("shopping_1_merchant_data", table.Columns, types))
}

func TestDialect_Insert(t *testing.T) {
	cols := []string{"a", "b"}

	assert.Equal(t, "INSERT INTO `t` (`a`, `b`) VALUES (?, ?), (?, ?)", mysqlDialect.insert("t", cols, 2))
	assert.Equal(t, `INSERT INTO "t" ("a", "b") VALUES ($1, $2), ($3, $4)`, postgresDialect.insert("t", cols, 2))
}

func TestDialect_IdentEscapesQuotes(t *testing.T) {
	assert.Equal(t, "`we``ird`", mysqlDialect.ident("we`ird"))
	assert.Equal(t, `"say ""hi"""`, postgresDialect.ident(`say "hi"`))
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		columns int
		want    int
	}{
		{columns: 0, want: 500},
		{columns: 11, want: 500},
		{columns: 200, want: 300},
		{columns: 70000, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, batchSize(tt.columns), "columns=%d", tt.columns)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, DriverMySQL, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Open(ctx, "oracle", "dsn")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = Open(ctx, DriverMySQL, "not a dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse mysql dsn")
}

func TestMySQLSink_WriteTable_InvalidInput(t *testing.T) {
	sink := NewMySQLSinkFromDB(nil)
	err := sink.WriteTable(context.Background(), "", sampleTable())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
