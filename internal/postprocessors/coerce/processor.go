// Package coerce converts numeric text in metric columns to numbers.
package coerce

import (
	"context"
	"strconv"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// DefaultMarkers select the columns that are coerced.
var DefaultMarkers = []string{"metrics", "micros"}

// Processor turns numeric strings into Int or Float in matching columns.
// Text holding a "." becomes a Float, plain digits become an Int, and
// anything else is left as text.
type Processor struct {
	markers []string
}

// Option configures the processor.
type Option func(*Processor)

// WithMarkers replaces the column-name markers.
func WithMarkers(markers ...string) Option {
	return func(p *Processor) {
		if len(markers) > 0 {
			p.markers = markers
		}
	}
}

// New creates a new coerce processor.
func New(opts ...Option) *Processor {
	p := &Processor{markers: DefaultMarkers}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "coerce"
}

// Process coerces matching columns in place.
func (p *Processor) Process(_ context.Context, table *domain.Table) error {
	for idx, column := range table.Columns {
		if !p.matches(column) {
			continue
		}
		for _, row := range table.Rows {
			row[idx] = Coerce(row[idx])
		}
	}
	return nil
}

func (p *Processor) matches(column string) bool {
	lower := strings.ToLower(column)
	for _, m := range p.markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Coerce converts a numeric string. Other values are returned unchanged.
func Coerce(v domain.Value) domain.Value {
	s, ok := v.Str()
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return domain.Float(f)
		}
		return v
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.Int(i)
	}
	return v
}
