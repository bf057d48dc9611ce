package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// fakeDrive records requests made to a minimal Drive API.
type fakeDrive struct {
	mu       sync.Mutex
	existing []map[string]string
	queries  []string
	uploads  []string
	methods  []string
	shared   []string
	status   int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "insufficient permissions"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(r.URL.Path, "/upload/drive/v3/files"):
		body, _ := io.ReadAll(r.Body)
		f.uploads = append(f.uploads, string(body))
		f.methods = append(f.methods, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "file-1"})
	case strings.HasSuffix(r.URL.Path, "/permissions"):
		var perm map[string]string
		_ = json.NewDecoder(r.Body).Decode(&perm)
		f.shared = append(f.shared, perm["emailAddress"])
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "perm"})
	case strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(map[string]any{"files": f.existing})
	default:
		http.NotFound(w, r)
	}
}

func newTestExporter(t *testing.T, fake *fakeDrive) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewExporter(svc)
}

func table() *domain.Table {
	tbl := domain.NewTable("Product Id", "Clicks")
	tbl.Rows = [][]domain.Value{{domain.String("sku-1"), domain.Int(3)}}
	return tbl
}

func TestExporter_ExportCreatesFile(t *testing.T) {
	fake := &fakeDrive{}
	e := newTestExporter(t, fake)

	id, err := e.Export(context.Background(), "folder-9", "Acme - Merchant Data.csv", table())

	require.NoError(t, err)
	assert.Equal(t, "file-1", id)
	require.Len(t, fake.queries, 1)
	assert.Equal(t, "name = 'Acme - Merchant Data.csv' and trashed = false and 'folder-9' in parents", fake.queries[0])
	require.Len(t, fake.uploads, 1)
	assert.Equal(t, http.MethodPost, fake.methods[0])
	assert.Contains(t, fake.uploads[0], "Product Id,Clicks")
	assert.Contains(t, fake.uploads[0], "sku-1,3")
}

func TestExporter_ExportUpdatesExistingFile(t *testing.T) {
	fake := &fakeDrive{existing: []map[string]string{{"id": "old-file", "name": "x.csv"}}}
	e := newTestExporter(t, fake)

	_, err := e.Export(context.Background(), "", "x.csv", table())

	require.NoError(t, err)
	require.Len(t, fake.methods, 1)
	assert.Equal(t, http.MethodPatch, fake.methods[0])
}

func TestExporter_Share(t *testing.T) {
	fake := &fakeDrive{}
	e := newTestExporter(t, fake)

	err := e.Share(context.Background(), "file-1", []string{"a@example.com", " ", "b@example.com"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, fake.shared)
}

func TestExporter_ErrorsAreClassified(t *testing.T) {
	fake := &fakeDrive{status: http.StatusForbidden}
	e := newTestExporter(t, fake)

	_, err := e.Export(context.Background(), "folder", "x.csv", table())

	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `O\'Neil \\ Co`, escapeQuery(`O'Neil \ Co`))
}
