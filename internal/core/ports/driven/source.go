package driven

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// ReportSource streams raw records from a reporting API.
// Each source type (google_ads, facebook, analytics, merchant) implements this interface.
type ReportSource interface {
	// Type returns the source type identifier.
	Type() domain.SourceType

	// Fetch streams the records matching query.
	// The records channel is closed when the source is exhausted.
	// At most one error is sent; the error channel is closed after records.
	Fetch(ctx context.Context, query domain.ReportQuery) (<-chan domain.Value, <-chan error)
}
