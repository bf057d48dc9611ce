package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// BatchJobService manages asynchronous mutate jobs on the remote service.
type BatchJobService interface {
	// Create opens a new job for a customer.
	Create(ctx context.Context, customerID string) (*domain.BatchJob, error)

	// Get returns the current state of a job. It never changes the job.
	Get(ctx context.Context, jobID string) (*domain.BatchJob, error)

	// Upload adds operations to a job.
	Upload(ctx context.Context, job *domain.BatchJob, ops []domain.MutateOperation) error

	// Run starts a job once all operations are uploaded.
	Run(ctx context.Context, job *domain.BatchJob) error

	// DownloadResult fetches the raw result document from a download URL.
	DownloadResult(ctx context.Context, url string) ([]byte, error)
}

// Sleeper waits for a duration. Implementations must return early
// with the context error when ctx is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}
