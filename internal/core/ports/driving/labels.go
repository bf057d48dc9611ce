package driving

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// LabelManager lists and creates account labels.
type LabelManager interface {
	// List returns the customer's enabled labels ordered by name.
	List(ctx context.Context, customerID string) ([]domain.Label, error)

	// Ensure returns the enabled label with name, creating it when missing.
	Ensure(ctx context.Context, customerID, name string) (domain.Label, error)
}
