package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// maxPlaceholders stays under MySQL's 65535 prepared statement limit.
const maxPlaceholders = 60000

// maxBatchRows caps the rows sent in one INSERT.
const maxBatchRows = 500

var _ driven.TableSink = (*MySQLSink)(nil)

// MySQLSink writes tables to a MySQL database.
type MySQLSink struct {
	db *sql.DB
}

// NewMySQLSink opens a MySQL connection pool from a go-sql-driver DSN
// such as "user:pass@tcp(host:3306)/reports".
func NewMySQLSink(ctx context.Context, dsn string) (*MySQLSink, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["charset"] = "utf8mb4"

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &MySQLSink{db: db}, nil
}

// NewMySQLSinkFromDB wraps an existing pool.
func NewMySQLSinkFromDB(db *sql.DB) *MySQLSink {
	return &MySQLSink{db: db}
}

// WriteTable replaces the contents of name with table.
// DELETE is used instead of TRUNCATE, which would commit the transaction.
func (s *MySQLSink) WriteTable(ctx context.Context, name string, table *domain.Table) error {
	if name == "" || table == nil || len(table.Columns) == 0 {
		return fmt.Errorf("table %q: %w", name, domain.ErrInvalidInput)
	}
	types := inferTypes(table)
	rows := rowValues(table, types)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, mysqlDialect.createTable(name, table.Columns, types)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+mysqlDialect.ident(name)); err != nil {
		return fmt.Errorf("empty table %s: %w", name, err)
	}

	batch := batchSize(len(table.Columns))
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		args := make([]any, 0, (end-start)*len(table.Columns))
		for _, row := range rows[start:end] {
			args = append(args, row...)
		}
		query := mysqlDialect.insert(name, table.Columns, end-start)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d into %s: %w", start, end-1, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *MySQLSink) Close() error {
	return s.db.Close()
}

// batchSize returns the rows per INSERT for a table with columns columns.
func batchSize(columns int) int {
	if columns <= 0 {
		return maxBatchRows
	}
	return max(1, min(maxBatchRows, maxPlaceholders/columns))
}
