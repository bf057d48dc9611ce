// Package missingfields adds requested query fields that a report did not return.
package missingfields

import (
	"context"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Processor adds a zero column for every requested field that no column covers.
// Label fields are skipped since they are merged separately.
type Processor struct {
	fields []string
}

// New creates a processor for the requested fields.
func New(fields ...string) *Processor {
	return &Processor{fields: fields}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "missingfields"
}

// Process adds the missing columns. A field counts as present when any
// column contains it, so "campaign.labels" is covered by "campaign.labels.0".
func (p *Processor) Process(_ context.Context, table *domain.Table) error {
	for _, field := range p.fields {
		if field == "" || strings.Contains(field, ".labels") || covered(table, field) {
			continue
		}
		table.AddColumn(field, domain.Int(0))
	}
	return nil
}

func covered(table *domain.Table, field string) bool {
	for _, c := range table.Columns {
		if strings.Contains(c, field) {
			return true
		}
	}
	return false
}
