package driving

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// BatchRunner submits mutate operations as batch jobs and waits for their results.
type BatchRunner interface {
	// Submit uploads ops in chunks, runs each job and collects per-operation results.
	Submit(ctx context.Context, customerID string, ops []domain.MutateOperation) (*domain.BatchResult, error)

	// Await polls an existing job until it is ready and returns its results.
	Await(ctx context.Context, jobID string) ([]domain.OperationResult, error)
}
