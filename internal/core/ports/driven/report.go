package driven

import (
	"context"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Report produces the tables of one named report for a customer.
type Report interface {
	// Name returns the registered report name.
	Name() string

	// Run builds the report for a single customer.
	Run(ctx context.Context, customer domain.Customer, def domain.ReportDefinition) (*domain.ReportOutput, error)
}

// ReportRegistry looks reports up by name.
type ReportRegistry interface {
	// Get returns the named report or ErrNotFound.
	Get(name string) (Report, error)

	// Names returns all registered report names, sorted.
	Names() []string
}
