package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

func makeOps(n int) []domain.MutateOperation {
	ops := make([]domain.MutateOperation, n)
	for i := range ops {
		ops[i] = domain.MutateOperation{
			Kind:      "campaignOperation",
			Operation: json.RawMessage(`{"remove":"customers/1/campaigns/1"}`),
		}
	}
	return ops
}

func TestBatchProcessor_NoOperations(t *testing.T) {
	jobs := &fakeJobService{}
	b := NewBatchProcessor(jobs, NewBatchPoller(jobs, &recordingSleeper{}))

	res, err := b.Submit(context.Background(), "123", nil)

	require.NoError(t, err)
	assert.Equal(t, "123", res.CustomerID)
	assert.Empty(t, res.Results)
	assert.Zero(t, jobs.created)
}

func TestBatchProcessor_RequiresCustomer(t *testing.T) {
	jobs := &fakeJobService{}
	b := NewBatchProcessor(jobs, nil)

	_, err := b.Submit(context.Background(), "", makeOps(1))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBatchProcessor_ChunksOperations(t *testing.T) {
	jobs := &fakeJobService{readyAt: 1}
	b := NewBatchProcessor(jobs, NewBatchPoller(jobs, &recordingSleeper{}, WithJitter(zeroJitter)))

	jobs.results = map[string][]byte{
		"https://example.test/customers/123/batchJobs/1:listResults": []byte(
			`{"results":[{"operationIndex":"0","mutateOperationResponse":{"campaignResult":{"resourceName":"customers/123/campaigns/1"}}}]}`),
		"https://example.test/customers/123/batchJobs/2:listResults": []byte(
			`{"results":[{"operationIndex":"1","status":{"code":3,"message":"bad campaign"}}]}`),
	}

	res, err := b.Submit(context.Background(), "123", makeOps(BulkMutateLimit+2))

	require.NoError(t, err)
	assert.Equal(t, 2, jobs.created)
	assert.Equal(t, 2, jobs.ran)
	require.Len(t, jobs.uploaded, 2)
	assert.Len(t, jobs.uploaded[0], BulkMutateLimit)
	assert.Len(t, jobs.uploaded[1], 2)
	assert.Equal(t, []string{"customers/123/batchJobs/1", "customers/123/batchJobs/2"}, res.Jobs)

	require.Len(t, res.Results, 2)
	assert.Equal(t, domain.OperationResult{
		Index:        0,
		Success:      true,
		ResourceName: "customers/123/campaigns/1",
	}, res.Results[0])
	assert.Equal(t, BulkMutateLimit+1, res.Results[1].Index)
	assert.False(t, res.Results[1].Success)
	assert.Equal(t, "bad campaign", res.Results[1].Error)
	assert.Equal(t, 1, res.Succeeded())
	assert.Equal(t, 1, res.Failed())
}

func TestBatchProcessor_PollExhaustedKeepsJobID(t *testing.T) {
	jobs := &fakeJobService{}
	b := NewBatchProcessor(jobs, NewBatchPoller(jobs, &recordingSleeper{}))

	res, err := b.Submit(context.Background(), "123", makeOps(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPollExhausted)
	assert.Equal(t, []string{"customers/123/batchJobs/1"}, res.Jobs)
	assert.Empty(t, res.Results)
}

func TestBatchProcessor_Await(t *testing.T) {
	jobs := &fakeJobService{readyAt: 2}
	b := NewBatchProcessor(jobs, NewBatchPoller(jobs, &recordingSleeper{}))

	results, err := b.Await(context.Background(), "customers/9/batchJobs/7")

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 2, jobs.queries)

	_, err = b.Await(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseBatchResults(t *testing.T) {
	body := []byte(`{
		"results": [
			{"operationIndex": "2", "mutateOperationResponse": {"adGroupResult": {"resourceName": "customers/1/adGroups/5"}}},
			{"operationIndex": 3, "status": {"code": 3, "message": "invalid"}},
			{"mutateOperationResponse": {}}
		]
	}`)

	results, err := ParseBatchResults(body)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Index)
	assert.True(t, results[0].Success)
	assert.Equal(t, "customers/1/adGroups/5", results[0].ResourceName)
	assert.Equal(t, 3, results[1].Index)
	assert.False(t, results[1].Success)
	assert.Equal(t, "invalid", results[1].Error)
	assert.Equal(t, 2, results[2].Index)
	assert.True(t, results[2].Success)
}

func TestParseBatchResults_Invalid(t *testing.T) {
	_, err := ParseBatchResults([]byte(`{"results":`))
	require.Error(t, err)

	results, err := ParseBatchResults([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, results)
}

type failingUploadService struct {
	fakeJobService
}

func (f *failingUploadService) Upload(context.Context, *domain.BatchJob, []domain.MutateOperation) error {
	return errors.New("quota")
}

func TestBatchProcessor_UploadError(t *testing.T) {
	jobs := &failingUploadService{}
	b := NewBatchProcessor(jobs, NewBatchPoller(jobs, &recordingSleeper{}))

	res, err := b.Submit(context.Background(), "123", makeOps(1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload operations: quota")
	assert.Equal(t, []string{"customers/123/batchJobs/1"}, res.Jobs)
}
