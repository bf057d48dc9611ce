package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.TableSink = (*PostgresSink)(nil)

// PostgresSink writes tables to PostgreSQL using COPY.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a connection pool for connString and pings it.
func NewPostgresSink(ctx context.Context, connString string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSink{pool: pool}, nil
}

// WriteTable replaces the contents of name with table in one transaction.
func (s *PostgresSink) WriteTable(ctx context.Context, name string, table *domain.Table) error {
	if name == "" || table == nil || len(table.Columns) == 0 {
		return fmt.Errorf("table %q: %w", name, domain.ErrInvalidInput)
	}
	types := inferTypes(table)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := copyTable(ctx, tx, name, table, types); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback failed: %v (original err: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func copyTable(ctx context.Context, tx pgx.Tx, name string, table *domain.Table, types []sqlType) error {
	if _, err := tx.Exec(ctx, postgresDialect.createTable(name, table.Columns, types)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+postgresDialect.ident(name)); err != nil {
		return fmt.Errorf("truncate %s: %w", name, err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, table.Columns, pgx.CopyFromRows(rowValues(table, types)))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", name, err)
	}
	if int(n) != table.Len() {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", name, n, table.Len())
	}
	return nil
}

// Close closes the pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
