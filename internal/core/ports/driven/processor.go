package driven

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// TableProcessor derives, converts or drops columns on an assembled table.
// Processors are chained in a pipeline (e.g. micros, roas, resourcenames).
type TableProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process modifies the table in place.
	Process(ctx context.Context, table *domain.Table) error
}

// TablePipeline chains multiple TableProcessors.
type TablePipeline interface {
	// Process runs the table through all processors in order.
	Process(ctx context.Context, table *domain.Table) error
}
