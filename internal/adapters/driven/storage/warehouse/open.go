package warehouse

import (
	"context"
	"fmt"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Supported driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Open connects to the warehouse named by driver. "postgres" is accepted
// as an alias for "pgx".
func Open(ctx context.Context, driver, dsn string) (driven.TableSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("warehouse dsn: %w", domain.ErrInvalidInput)
	}
	switch driver {
	case DriverMySQL:
		return NewMySQLSink(ctx, dsn)
	case DriverPostgres, "postgres", "postgresql":
		return NewPostgresSink(ctx, dsn)
	default:
		return nil, fmt.Errorf("warehouse driver %q: %w", driver, domain.ErrUnsupportedType)
	}
}
