package driving

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// ReportRunner runs named reports across customers.
type ReportRunner interface {
	// Run executes def for every customer concurrently and returns once all finish.
	// A failing customer never stops the others; failures are reported in the summary.
	Run(ctx context.Context, def domain.ReportDefinition, customers []domain.Customer) (*domain.RunSummary, error)

	// Reports returns the registered report names.
	Reports() []string
}

// RunHistory reads past runs.
type RunHistory interface {
	// GetRun returns one run with its customer results.
	GetRun(ctx context.Context, id string) (*domain.RunSummary, error)

	// ListRuns returns recent runs, most recent first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}
