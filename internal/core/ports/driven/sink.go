package driven

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// SpreadsheetSink writes tables to spreadsheet tabs.
// Each write replaces the tab contents; the last write wins.
type SpreadsheetSink interface {
	// WriteTable writes the header at A1 and the values from A2.
	WriteTable(ctx context.Context, spreadsheetURL, sheet string, table *domain.Table) error
}

// TableSink writes tables to a SQL warehouse.
type TableSink interface {
	// WriteTable creates the table if needed, truncates it and inserts every row.
	WriteTable(ctx context.Context, name string, table *domain.Table) error

	// Close releases the connection.
	Close() error
}

// FileExporter exports tables as files and shares them.
type FileExporter interface {
	// Export uploads table as a CSV file and returns its file ID.
	Export(ctx context.Context, folderID, name string, table *domain.Table) (string, error)

	// Share grants read access on a file to each email.
	Share(ctx context.Context, fileID string, emails []string) error
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, email domain.Email) error
}

// Notifier posts chat notifications.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
