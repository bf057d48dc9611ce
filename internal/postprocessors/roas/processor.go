// Package roas derives the return-on-ad-spend column.
package roas

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Default column names.
const (
	DefaultRevenueColumn = "metrics.conversions_value"
	DefaultCostColumn    = "metrics.cost_micros"
	DefaultOutputColumn  = "metrics.roas"
)

// Processor computes revenue / cost per row. Rows with a cost of zero or
// less get 0.0.
type Processor struct {
	revenue string
	cost    string
	output  string
}

// Option configures the ROAS processor.
type Option func(*Processor)

// WithRevenueColumn sets the revenue column.
func WithRevenueColumn(column string) Option {
	return func(p *Processor) {
		if column != "" {
			p.revenue = column
		}
	}
}

// WithCostColumn sets the cost column.
func WithCostColumn(column string) Option {
	return func(p *Processor) {
		if column != "" {
			p.cost = column
		}
	}
}

// WithOutputColumn sets the derived column name.
func WithOutputColumn(column string) Option {
	return func(p *Processor) {
		if column != "" {
			p.output = column
		}
	}
}

// New creates a new ROAS processor.
func New(opts ...Option) *Processor {
	p := &Processor{
		revenue: DefaultRevenueColumn,
		cost:    DefaultCostColumn,
		output:  DefaultOutputColumn,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "roas"
}

// Process adds or overwrites the output column. Tables missing either
// input column are left unchanged. A micros cost column must already be
// normalized.
func (p *Processor) Process(_ context.Context, table *domain.Table) error {
	ri := table.Index(p.revenue)
	ci := table.Index(p.cost)
	if ri < 0 || ci < 0 {
		return nil
	}
	if strings.Contains(p.cost, "micros") && !table.IsNormalized(p.cost) {
		return fmt.Errorf("cost column %s: %w", p.cost, domain.ErrNotNormalized)
	}

	table.AddColumn(p.output, domain.Float(0))
	oi := table.Index(p.output)
	for _, row := range table.Rows {
		revenue, _ := row[ri].Float64()
		cost, _ := row[ci].Float64()
		row[oi] = domain.Float(domain.ROAS(revenue, cost))
	}
	return nil
}
