// Package drive exports report tables to Google Drive as CSV files and
// shares them with report recipients.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/adreports/internal/connectors/google"
	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/tabular"
)

// MimeTypeCSV is the MIME type of exported tables.
const MimeTypeCSV = "text/csv"

var _ driven.FileExporter = (*Exporter)(nil)

// Exporter uploads tables to Drive folders.
type Exporter struct {
	svc     *drive.Service
	limiter *google.RateLimiter
}

// NewExporter creates an Exporter.
func NewExporter(svc *drive.Service) *Exporter {
	return &Exporter{
		svc:     svc,
		limiter: google.NewRateLimiter(google.ServiceDrive),
	}
}

// Export uploads table as CSV into folderID. A file with the same name in
// the folder is overwritten so re-runs keep one file per report.
func (e *Exporter) Export(ctx context.Context, folderID, name string, table *domain.Table) (string, error) {
	data, err := tabular.CSV(table)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	existing, err := e.FindByName(ctx, folderID, name)
	if err != nil {
		return "", err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if existing != nil {
		f, err := e.svc.Files.Update(existing.Id, &drive.File{}).
			Media(bytes.NewReader(data)).
			SupportsAllDrives(true).
			Fields("id").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("update %s: %w", name, google.WrapError(err))
		}
		return f.Id, nil
	}

	file := &drive.File{Name: name, MimeType: MimeTypeCSV}
	if folderID != "" {
		file.Parents = []string{folderID}
	}
	f, err := e.svc.Files.Create(file).
		Media(bytes.NewReader(data)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, google.WrapError(err))
	}
	return f.Id, nil
}

// FindByName returns the first non-trashed file called name in folderID,
// or nil when there is none.
func (e *Exporter) FindByName(ctx context.Context, folderID, name string) (*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(name))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	list, err := e.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, google.WrapError(err))
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

// Share grants read access to each email without sending a notification.
func (e *Exporter) Share(ctx context.Context, fileID string, emails []string) error {
	for _, email := range emails {
		if email = strings.TrimSpace(email); email == "" {
			continue
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		perm := &drive.Permission{Type: "user", Role: "reader", EmailAddress: email}
		_, err := e.svc.Permissions.Create(fileID, perm).
			SendNotificationEmail(false).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("share %s with %s: %w", fileID, email, google.WrapError(err))
		}
	}
	return nil
}

// escapeQuery escapes a literal for a Drive query string.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
