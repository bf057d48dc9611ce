package driven

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// LabelService reads and creates account labels.
type LabelService interface {
	// Lookup returns the customer's enabled labels keyed by resource name.
	Lookup(ctx context.Context, customerID string) (map[string]domain.Label, error)

	// Ensure returns the enabled label with name, creating it when missing.
	Ensure(ctx context.Context, customerID, name string) (domain.Label, error)
}
