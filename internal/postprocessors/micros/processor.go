// Package micros converts money columns from micros to currency units.
package micros

import (
	"context"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Marker flags a column as holding micros without listing it explicitly.
const Marker = "_micros"

// Processor divides flagged columns by one million.
// A converted column is recorded on the table so a second run leaves it alone.
type Processor struct {
	columns map[string]bool
}

// Option configures the micros processor.
type Option func(*Processor)

// WithColumns flags additional columns as micros.
func WithColumns(columns ...string) Option {
	return func(p *Processor) {
		for _, c := range columns {
			p.columns[c] = true
		}
	}
}

// New creates a new micros processor.
func New(opts ...Option) *Processor {
	p := &Processor{columns: make(map[string]bool)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "micros"
}

// Flagged reports whether column holds micros.
func (p *Processor) Flagged(column string) bool {
	return p.columns[column] || strings.Contains(column, Marker)
}

// Process converts every flagged column that is not yet normalized.
// Cells that are not numeric count as zero.
func (p *Processor) Process(_ context.Context, table *domain.Table) error {
	for idx, column := range table.Columns {
		if !p.Flagged(column) || table.IsNormalized(column) {
			continue
		}
		for _, row := range table.Rows {
			f, ok := row[idx].Float64()
			if !ok {
				f = 0
			}
			row[idx] = domain.Float(domain.FromMicros(f))
		}
		table.MarkNormalized(column)
	}
	return nil
}
