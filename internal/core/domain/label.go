package domain

import "context"

// Label is an account label, e.g. a Google Ads campaign label.
type Label struct {
	ResourceName string
	ID           string
	Name         string
}

type customerKey struct{}

// WithCustomer returns a context carrying the customer a table belongs to.
// Post-processors that need per-account data read it with CustomerFrom.
func WithCustomer(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerKey{}, customerID)
}

// CustomerFrom returns the customer set by WithCustomer, or "".
func CustomerFrom(ctx context.Context) string {
	id, _ := ctx.Value(customerKey{}).(string)
	return id
}
