// Package labels merges per-index label columns into label id and name
// columns and optionally filters rows by label.
package labels

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Output columns.
const (
	IDColumn   = "label.id"
	NameColumn = "label.name"
)

// Operator selects rows by their label names.
type Operator string

// Supported operators.
const (
	ContainsAll  Operator = "CONTAINS ALL"
	ContainsAny  Operator = "CONTAINS ANY"
	ContainsNone Operator = "CONTAINS NONE"
)

// ParseOperator validates s, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case ContainsAll, ContainsAny, ContainsNone:
		return op, nil
	default:
		return "", fmt.Errorf("label operator %q: %w", s, domain.ErrInvalidInput)
	}
}

// Label is a label's id and display name.
type Label = domain.Label

// Source lists a customer's labels keyed by resource name.
type Source interface {
	Lookup(ctx context.Context, customerID string) (map[string]Label, error)
}

// Processor merges "<level>.labels.N" columns.
type Processor struct {
	level    string
	lookup   map[string]Label
	source   Source
	names    []string
	operator Operator
	sep      string
}

// Option configures the processor.
type Option func(*Processor)

// WithLookup sets the resource name to label mapping.
func WithLookup(lookup map[string]Label) Option {
	return func(p *Processor) {
		p.lookup = lookup
	}
}

// WithSource reads the labels of the table's customer (see
// domain.WithCustomer) before merging. Entries set by WithLookup win.
func WithSource(src Source) Option {
	return func(p *Processor) {
		p.source = src
	}
}

// WithFilter keeps only rows whose label names satisfy op against names.
func WithFilter(op Operator, names ...string) Option {
	return func(p *Processor) {
		p.operator = op
		p.names = names
	}
}

// New creates a processor for a report level such as "campaign" or "ad_group".
func New(level string, opts ...Option) *Processor {
	p := &Processor{level: level, sep: ", "}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "labels"
}

// Process replaces the per-index columns with IDColumn and NameColumn.
// Unknown resource names keep their id (the last path segment) and use it as name.
func (p *Processor) Process(ctx context.Context, table *domain.Table) error {
	prefix := p.level + ".labels"
	var labelCols []int
	for i, c := range table.Columns {
		if strings.HasPrefix(c, prefix) {
			labelCols = append(labelCols, i)
		}
	}

	lookup, err := p.lookupFor(ctx, len(labelCols) > 0)
	if err != nil {
		return err
	}

	ids := make([][]string, len(table.Rows))
	names := make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		for _, i := range labelCols {
			resource := row[i].Text()
			if resource == "" || resource == table.Sentinel || resource == "--" {
				continue
			}
			l := resolve(lookup, resource)
			ids[r] = append(ids[r], l.ID)
			names[r] = append(names[r], l.Name)
		}
	}

	var drop []string
	for _, i := range labelCols {
		drop = append(drop, table.Columns[i])
	}
	for _, c := range drop {
		table.DropColumn(c)
	}

	table.AddColumn(IDColumn, domain.String(""))
	table.AddColumn(NameColumn, domain.String(""))
	idIdx, nameIdx := table.Index(IDColumn), table.Index(NameColumn)
	for r, row := range table.Rows {
		row[idIdx] = p.joined(table, ids[r])
		row[nameIdx] = p.joined(table, names[r])
	}

	if p.operator == "" || len(p.names) == 0 {
		return nil
	}
	kept := table.Rows[:0]
	for r, row := range table.Rows {
		if Match(p.operator, names[r], p.names) {
			kept = append(kept, row)
		}
	}
	table.Rows = kept
	return nil
}

// lookupFor merges the customer's labels from the source with the static lookup.
func (p *Processor) lookupFor(ctx context.Context, needed bool) (map[string]Label, error) {
	customer := domain.CustomerFrom(ctx)
	if !needed || p.source == nil || customer == "" {
		return p.lookup, nil
	}
	fetched, err := p.source.Lookup(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("labels of %s: %w", customer, err)
	}
	merged := make(map[string]Label, len(fetched)+len(p.lookup))
	maps.Copy(merged, fetched)
	maps.Copy(merged, p.lookup)
	return merged, nil
}

func resolve(lookup map[string]Label, resource string) Label {
	if l, ok := lookup[resource]; ok {
		return l
	}
	id := resource
	if i := strings.LastIndexByte(resource, '/'); i >= 0 {
		id = resource[i+1:]
	}
	if i := strings.IndexByte(id, '~'); i >= 0 {
		id = id[i+1:]
	}
	return Label{ID: id, Name: id}
}

func (p *Processor) joined(table *domain.Table, parts []string) domain.Value {
	if len(parts) == 0 {
		sentinel := table.Sentinel
		if sentinel == "" {
			sentinel = "--"
		}
		return domain.String(sentinel)
	}
	return domain.String(strings.Join(parts, p.sep))
}

// Match reports whether have satisfies op against want.
func Match(op Operator, have, want []string) bool {
	n := 0
	for _, w := range want {
		if slices.Contains(have, w) {
			n++
		}
	}
	switch op {
	case ContainsAll:
		return n == len(want)
	case ContainsAny:
		return n > 0
	case ContainsNone:
		return n == 0
	default:
		return false
	}
}
