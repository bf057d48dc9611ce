package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/services"
)

// fakeAds is a minimal Google Ads REST server with one batch job.
type fakeAds struct {
	mu        sync.Mutex
	status    string
	headers   http.Header
	queries   []string
	uploads   []map[string]any
	ran       bool
	pageCalls int
}

func (f *fakeAds) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = r.Header.Clone()

	var body map[string]any
	if r.Method == http.MethodPost {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
	}

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/googleAds:searchStream"):
		q, _ := body["query"].(string)
		f.queries = append(f.queries, q)
		if strings.Contains(q, "FROM batch_job") {
			fmt.Fprintf(w, `[{"results": [{"batchJob": {"resourceName": "customers/123/batchJobs/9", "status": %q, "nextAddSequenceToken": "t2"}}]}]`, f.status)
			return
		}
		fmt.Fprint(w, `[
			{"results": [{"campaign": {"resourceName": "customers/123/campaigns/1", "id": "1"}, "metrics": {"clicks": "4", "costMicros": "2500000"}}]},
			{"results": [{"campaign": {"resourceName": "customers/123/campaigns/2", "id": "2"}, "metrics": {"clicks": "0", "costMicros": "0"}}]}
		]`)
	case strings.HasSuffix(path, "/batchJobs:mutate"):
		fmt.Fprint(w, `{"result": {"resourceName": "customers/123/batchJobs/9"}}`)
	case strings.HasSuffix(path, ":addOperations"):
		f.uploads = append(f.uploads, body)
		fmt.Fprint(w, `{"totalOperations": "2", "nextSequenceToken": "t1"}`)
	case strings.HasSuffix(path, ":run"):
		f.ran = true
		fmt.Fprint(w, `{"name": "customers/123/operations/op"}`)
	case strings.HasSuffix(path, ":listResults"):
		f.pageCalls++
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"results": [{"operationIndex": "0", "mutateOperationResponse": {"campaignResult": {"resourceName": "customers/123/campaigns/5"}}}], "nextPageToken": "p2"}`)
			return
		}
		fmt.Fprint(w, `{"results": [{"operationIndex": "1", "status": {"code": 3, "message": "name already exists"}}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"code": 404, "message": "not found", "status": "NOT_FOUND"}}`)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), "dev-token",
		WithBaseURL(srv.URL),
		WithAPIVersion("v21"),
		WithLoginCustomerID("999-000-1111"))
}

func TestSource_FetchStreamsAllBatches(t *testing.T) {
	fake := &fakeAds{}
	src := NewSource(newTestClient(t, fake))

	records, errs := src.Fetch(context.Background(), domain.ReportQuery{
		CustomerID: "123",
		Fields:     []string{"campaign.id", "metrics.clicks"},
		Params:     map[string]string{ParamResource: "campaign", ParamWhere: "segments.date DURING LAST_MONTH"},
	})
	var got []domain.Value
	for r := range records {
		got = append(got, r)
	}

	require.NoError(t, <-errs)
	require.Len(t, got, 2)
	metrics, _ := got[0].Get("metrics")
	cost, _ := metrics.Get("costMicros")
	assert.Equal(t, domain.String("2500000"), cost)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"SELECT campaign.id, metrics.clicks FROM campaign WHERE segments.date DURING LAST_MONTH"}, fake.queries)
	assert.Equal(t, "dev-token", fake.headers.Get("developer-token"))
	assert.Equal(t, "9990001111", fake.headers.Get("login-customer-id"))
}

func TestSource_MissingQuery(t *testing.T) {
	src := NewSource(newTestClient(t, &fakeAds{}))

	_, err := src.Search(context.Background(), "123", "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSource_APIErrorClassified(t *testing.T) {
	src := NewSource(newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": 403, "message": "The caller does not have permission", "status": "PERMISSION_DENIED"}}`)
	})))

	_, err := src.Search(context.Background(), "123", "SELECT campaign.id FROM campaign")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "search customer 123")
}

func TestBatchJobs_Lifecycle(t *testing.T) {
	fake := &fakeAds{status: "PENDING"}
	jobs := NewBatchJobs(newTestClient(t, fake))
	ctx := context.Background()

	job, err := jobs.Create(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "customers/123/batchJobs/9", job.ID)
	assert.Equal(t, "123", job.CustomerID)

	ops := []domain.MutateOperation{
		{Kind: "campaignOperation", Operation: json.RawMessage(`{"create": {"name": "A"}}`)},
		{Kind: "campaignOperation", Operation: json.RawMessage(`{"create": {"name": "B"}}`)},
	}
	require.NoError(t, jobs.Upload(ctx, job, ops))
	assert.Equal(t, "t1", job.NextSequenceToken)
	require.NoError(t, jobs.Upload(ctx, job, ops[:1]))

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobAwaitingFile, got.Status)
	assert.False(t, got.Ready())

	require.NoError(t, jobs.Run(ctx, job))

	fake.mu.Lock()
	fake.status = "DONE"
	require.Len(t, fake.uploads, 2)
	assert.Nil(t, fake.uploads[0]["sequenceToken"])
	assert.Equal(t, "t1", fake.uploads[1]["sequenceToken"])
	assert.True(t, fake.ran)
	fake.mu.Unlock()

	got, err = jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobDone, got.Status)
	assert.True(t, strings.HasSuffix(got.DownloadURL, "/v21/customers/123/batchJobs/9:listResults"))

	body, err := jobs.DownloadResult(ctx, got.DownloadURL)
	require.NoError(t, err)
	results, err := services.ParseBatchResults(body)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, "customers/123/campaigns/5", results[0].ResourceName)
	assert.False(t, results[1].Success)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, "name already exists", results[1].Error)
}

func TestBatchJobs_UnknownStatus(t *testing.T) {
	jobs := NewBatchJobs(newTestClient(t, &fakeAds{status: "BATCH_JOB_STATUS_UNSPECIFIED"}))

	got, err := jobs.Get(context.Background(), "customers/123/batchJobs/9")

	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobUnknown, got.Status)
	assert.False(t, got.Status.Pending())
}

func TestBatchJobs_GetRejectsMalformedJobName(t *testing.T) {
	fake := &fakeAds{status: "DONE"}
	jobs := NewBatchJobs(newTestClient(t, fake))

	for _, id := range []string{
		"",
		"9",
		"customers/123/batchJobs/9' OR batch_job.status = 'DONE",
		"customers/abc/batchJobs/9",
		"customers/123/campaigns/9",
	} {
		_, err := jobs.Get(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, id)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.queries)
}

func TestCustomerOf(t *testing.T) {
	assert.Equal(t, "123", customerOf("customers/123/batchJobs/9"))
	assert.Equal(t, "", customerOf("batchJobs/9"))
}
