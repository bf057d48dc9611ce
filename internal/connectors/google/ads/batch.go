package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.BatchJobService = (*BatchJobs)(nil)

// jobNamePattern matches batch job resource names.
var jobNamePattern = regexp.MustCompile(`^customers/\d+/batchJobs/\d+$`)

// resultsPageSize is the page size used when listing job results.
const resultsPageSize = 1000

// remoteStatus maps BatchJobStatus enum values to job statuses.
var remoteStatus = map[string]domain.BatchJobStatus{
	"PENDING": domain.BatchJobAwaitingFile,
	"RUNNING": domain.BatchJobActive,
	"DONE":    domain.BatchJobDone,
}

// BatchJobs manages batch mutate jobs. Job IDs are resource names such as
// "customers/123/batchJobs/456".
type BatchJobs struct {
	client *Client
	search *Source
}

// NewBatchJobs creates a batch job service.
func NewBatchJobs(client *Client) *BatchJobs {
	return &BatchJobs{client: client, search: NewSource(client)}
}

// Create opens an empty batch job.
func (b *BatchJobs) Create(ctx context.Context, customerID string) (*domain.BatchJob, error) {
	customerID = NormalizeCustomerID(customerID)
	resp, err := b.client.do(ctx,
		b.client.url("customers/"+customerID+"/batchJobs:mutate"),
		map[string]any{"operation": map[string]any{"create": map[string]any{}}})
	if err != nil {
		return nil, fmt.Errorf("create batch job for %s: %w", customerID, err)
	}

	result, _ := resp.Get("result")
	name, _ := result.Get("resourceName")
	if name.Text() == "" {
		return nil, fmt.Errorf("create batch job for %s: no resource name in response", customerID)
	}
	return &domain.BatchJob{
		ID:         name.Text(),
		CustomerID: customerID,
		Status:     domain.BatchJobAwaitingFile,
	}, nil
}

// Get reads the job status with a GAQL query. A finished job gets the
// listResults URL as its download URL.
func (b *BatchJobs) Get(ctx context.Context, jobID string) (*domain.BatchJob, error) {
	if !jobNamePattern.MatchString(jobID) {
		return nil, fmt.Errorf("batch job %q: %w", jobID, domain.ErrInvalidInput)
	}
	customerID := customerOf(jobID)
	query := BuildQuery(
		[]string{"batch_job.resource_name", "batch_job.status", "batch_job.next_add_sequence_token"},
		"batch_job",
		[]string{"batch_job.resource_name = " + Quote(jobID)},
		"", 0)

	rows, err := b.search.Search(ctx, customerID, query)
	if err != nil {
		return nil, fmt.Errorf("get batch job %s: %w", jobID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("batch job %s: %w", jobID, domain.ErrNotFound)
	}

	job, _ := rows[0].Get("batchJob")
	status, _ := job.Get("status")
	token, _ := job.Get("nextAddSequenceToken")

	out := &domain.BatchJob{
		ID:                jobID,
		CustomerID:        customerID,
		Status:            domain.BatchJobUnknown,
		NextSequenceToken: token.Text(),
	}
	if s, ok := remoteStatus[status.Text()]; ok {
		out.Status = s
	}
	if out.Status == domain.BatchJobDone {
		out.DownloadURL = b.client.url(jobID + ":listResults")
	}
	return out, nil
}

// Upload adds operations to the job and records the next sequence token.
func (b *BatchJobs) Upload(ctx context.Context, job *domain.BatchJob, ops []domain.MutateOperation) error {
	mutateOps := make([]map[string]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		mutateOps = append(mutateOps, map[string]json.RawMessage{op.Kind: op.Operation})
	}
	body := map[string]any{"mutateOperations": mutateOps}
	if job.NextSequenceToken != "" {
		body["sequenceToken"] = job.NextSequenceToken
	}

	resp, err := b.client.do(ctx, b.client.url(job.ID+":addOperations"), body)
	if err != nil {
		return fmt.Errorf("add operations to %s: %w", job.ID, err)
	}
	if next, ok := resp.Get("nextSequenceToken"); ok {
		job.NextSequenceToken = next.Text()
	}
	return nil
}

// Run starts the job. The returned long-running operation is not tracked;
// the poller reads the job status instead.
func (b *BatchJobs) Run(ctx context.Context, job *domain.BatchJob) error {
	if _, err := b.client.do(ctx, b.client.url(job.ID+":run"), map[string]any{}); err != nil {
		return fmt.Errorf("run %s: %w", job.ID, err)
	}
	return nil
}

// DownloadResult reads every page of a listResults URL and returns one
// document holding all results.
func (b *BatchJobs) DownloadResult(ctx context.Context, rawURL string) ([]byte, error) {
	var all []domain.Value
	pageToken := ""
	for {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse result url: %w", err)
		}
		q := u.Query()
		q.Set("pageSize", fmt.Sprint(resultsPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u.RawQuery = q.Encode()

		page, err := b.client.do(ctx, u.String(), nil)
		if err != nil {
			return nil, err
		}
		results, _ := page.Get("results")
		all = append(all, results.Items()...)

		next, _ := page.Get("nextPageToken")
		if pageToken = next.Text(); pageToken == "" {
			break
		}
	}
	return domain.Object(domain.F("results", domain.List(all...))).MarshalJSON()
}

// customerOf returns the customer ID of a "customers/<id>/..." resource name.
func customerOf(resourceName string) string {
	parts := strings.Split(resourceName, "/")
	if len(parts) >= 2 && parts[0] == "customers" {
		return parts[1]
	}
	return ""
}
