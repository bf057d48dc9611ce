package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// RunStore persists report run history.
type RunStore interface {
	// CreateRun records the start of a run.
	CreateRun(ctx context.Context, run *domain.RunSummary) error

	// RecordCustomer stores one customer's outcome.
	RecordCustomer(ctx context.Context, result domain.CustomerResult) error

	// FinishRun stores the final status and finish time.
	FinishRun(ctx context.Context, run *domain.RunSummary) error

	// GetRun returns a run with its customer results.
	// Returns ErrNotFound if the run does not exist.
	GetRun(ctx context.Context, id string) (*domain.RunSummary, error)

	// ListRuns returns recent runs, most recent first, without customer results.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// PruneRuns removes runs started before cutoff.
	PruneRuns(ctx context.Context, cutoff time.Time) error
}
