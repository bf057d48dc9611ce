package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
	"github.com/custodia-labs/adreports/internal/logger"
)

// BulkMutateLimit is the largest number of operations uploaded to one job.
const BulkMutateLimit = 5000

// Ensure BatchProcessor implements the interface.
var _ driving.BatchRunner = (*BatchProcessor)(nil)

// BatchProcessor runs mutate operations through batch jobs.
// Operations are split into chunks and each chunk gets its own job.
type BatchProcessor struct {
	jobs      driven.BatchJobService
	poller    *BatchPoller
	chunkSize int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(jobs driven.BatchJobService, poller *BatchPoller) *BatchProcessor {
	if poller == nil {
		poller = NewBatchPoller(jobs, nil)
	}
	return &BatchProcessor{
		jobs:      jobs,
		poller:    poller,
		chunkSize: BulkMutateLimit,
	}
}

// Submit uploads ops for customerID and waits for every chunk's results.
// Result indexes refer to positions in ops. Results collected before a
// failing chunk are returned together with the error.
func (b *BatchProcessor) Submit(
	ctx context.Context,
	customerID string,
	ops []domain.MutateOperation,
) (*domain.BatchResult, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id required: %w", domain.ErrInvalidInput)
	}

	result := &domain.BatchResult{CustomerID: customerID}
	if len(ops) == 0 {
		return result, nil
	}

	logger.Section("Batch Submit")
	for start := 0; start < len(ops); start += b.chunkSize {
		end := min(start+b.chunkSize, len(ops))
		chunk := ops[start:end]

		jobID, results, err := b.runChunk(ctx, customerID, chunk)
		if jobID != "" {
			result.Jobs = append(result.Jobs, jobID)
		}
		if err != nil {
			return result, fmt.Errorf("chunk %d-%d: %w", start, end-1, err)
		}

		for _, r := range results {
			r.Index += start
			result.Results = append(result.Results, r)
		}
		logger.Info("batch job %s: %d operations processed", jobID, len(chunk))
	}

	return result, nil
}

// Await polls an existing job and returns its results.
func (b *BatchProcessor) Await(ctx context.Context, jobID string) ([]domain.OperationResult, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id required: %w", domain.ErrInvalidInput)
	}
	return b.collect(ctx, &domain.BatchJob{ID: jobID, Status: domain.BatchJobActive})
}

func (b *BatchProcessor) runChunk(
	ctx context.Context,
	customerID string,
	ops []domain.MutateOperation,
) (string, []domain.OperationResult, error) {
	job, err := b.jobs.Create(ctx, customerID)
	if err != nil {
		return "", nil, fmt.Errorf("create batch job: %w", err)
	}
	logger.Debug("created batch job %s", job.ID)

	if err := b.jobs.Upload(ctx, job, ops); err != nil {
		return job.ID, nil, fmt.Errorf("upload operations: %w", err)
	}
	if err := b.jobs.Run(ctx, job); err != nil {
		return job.ID, nil, fmt.Errorf("run batch job: %w", err)
	}

	results, err := b.collect(ctx, job)
	return job.ID, results, err
}

func (b *BatchProcessor) collect(ctx context.Context, job *domain.BatchJob) ([]domain.OperationResult, error) {
	url, err := b.poller.Poll(ctx, job)
	if err != nil {
		return nil, err
	}

	body, err := b.jobs.DownloadResult(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download results: %w", err)
	}

	return ParseBatchResults(body)
}

// ParseBatchResults reads a listResults document. Each entry has an
// operationIndex, a mutateOperationResponse on success and a status on failure.
func ParseBatchResults(body []byte) ([]domain.OperationResult, error) {
	doc, err := domain.DecodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("parse batch results: %w", err)
	}

	entries, _ := doc.Get("results")
	items := entries.Items()
	out := make([]domain.OperationResult, 0, len(items))
	for i, item := range items {
		r := domain.OperationResult{Index: i, Success: true}

		if idx, ok := item.Get("operationIndex"); ok {
			if f, ok := idx.Float64(); ok {
				r.Index = int(f)
			}
		}

		if status, ok := item.Get("status"); ok && !status.IsNull() {
			code, _ := status.Get("code")
			if c, _ := code.Float64(); c != 0 || !status.Has("code") {
				r.Success = false
				msg, _ := status.Get("message")
				r.Error = msg.Text()
			}
		}

		if resp, ok := item.Get("mutateOperationResponse"); ok {
			r.ResourceName = firstResourceName(resp)
		}

		out = append(out, r)
	}
	return out, nil
}

// firstResourceName returns the resourceName of the single result
// held in a mutateOperationResponse.
func firstResourceName(resp domain.Value) string {
	for _, f := range resp.Fields() {
		if name, ok := f.Value.Get("resourceName"); ok {
			if s, ok := name.Str(); ok {
				return s
			}
		}
	}
	return ""
}
