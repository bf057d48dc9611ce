// Package resourcenames drops opaque API resource handles from tables.
package resourcenames

import (
	"context"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Marker identifies resource-name columns.
const Marker = "resource_name"

// Processor drops every column whose name contains Marker unless keep is set.
type Processor struct {
	keep bool
}

// Option configures the processor.
type Option func(*Processor)

// WithKeep retains resource-name columns.
func WithKeep(keep bool) Option {
	return func(p *Processor) {
		p.keep = keep
	}
}

// New creates a new resource-name processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "resourcenames"
}

// Process removes resource-name columns.
func (p *Processor) Process(_ context.Context, table *domain.Table) error {
	if p.keep {
		return nil
	}
	var drop []string
	for _, c := range table.Columns {
		if strings.Contains(c, Marker) {
			drop = append(drop, c)
		}
	}
	for _, c := range drop {
		table.DropColumn(c)
	}
	return nil
}
