// Package insights flattens Facebook Insights style records.
//
// Top-level keys become title-cased columns. Lists of {action_type, value}
// pairs become one column per action type. Nested objects extend the column
// name with " | " and the title-cased field name, at any depth.
package insights

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Ensure Flattener implements the interface.
var _ driven.Flattener = (*Flattener)(nil)

const (
	// DefaultDiscriminator names the field that splits list entries into columns.
	DefaultDiscriminator = "action_type"

	// DefaultValueKey names the field holding an entry's value.
	DefaultValueKey = "value"

	// Separator joins column name segments.
	Separator = " | "

	// scalarColumn names the column for a record that is itself a scalar.
	scalarColumn = "Value"
)

// Flattener applies the insights column-naming rule.
type Flattener struct {
	discriminator string
	valueKey      string
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithDiscriminator sets the field that splits list entries into columns.
func WithDiscriminator(key string) Option {
	return func(f *Flattener) {
		if key != "" {
			f.discriminator = key
		}
	}
}

// WithValueKey sets the field that holds a list entry's value.
func WithValueKey(key string) Option {
	return func(f *Flattener) {
		if key != "" {
			f.valueKey = key
		}
	}
}

// New creates a Flattener.
func New(opts ...Option) *Flattener {
	f := &Flattener{
		discriminator: DefaultDiscriminator,
		valueKey:      DefaultValueKey,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flatten appends one row for an object record. A list record contributes
// one row per element; a bare scalar becomes a single "Value" column.
func (f *Flattener) Flatten(record domain.Value, out *[]domain.FlatRow) {
	switch record.Kind() {
	case domain.KindNull:
		return
	case domain.KindList:
		for _, item := range record.Items() {
			f.Flatten(item, out)
		}
		return
	case domain.KindObject:
		var row domain.FlatRow
		for _, field := range record.Fields() {
			f.value(&row, Title(field.Key), field.Value)
		}
		*out = append(*out, row)
	default:
		*out = append(*out, domain.Row(domain.F(scalarColumn, record)))
	}
}

func (f *Flattener) value(row *domain.FlatRow, column string, v domain.Value) {
	switch v.Kind() {
	case domain.KindNull:
	case domain.KindList:
		for _, item := range v.Items() {
			f.listItem(row, column, item)
		}
	case domain.KindObject:
		for _, field := range v.Fields() {
			f.value(row, column+Separator+Title(field.Key), field.Value)
		}
	default:
		row.Set(column, v)
	}
}

func (f *Flattener) listItem(row *domain.FlatRow, column string, item domain.Value) {
	switch item.Kind() {
	case domain.KindNull:
	case domain.KindList:
		for _, nested := range item.Items() {
			f.listItem(row, column, nested)
		}
	case domain.KindObject:
		value, hasValue := item.Get(f.valueKey)
		disc, hasDisc := item.Get(f.discriminator)
		switch {
		case hasValue && hasDisc && disc.IsScalar():
			f.value(row, column+Separator+Title(disc.Text()), value)
		case hasValue && !hasDisc:
			f.value(row, column, value)
		default:
			for _, field := range item.Fields() {
				if field.Value.IsNull() {
					continue
				}
				row.Set(column+Separator+Title(field.Key), domain.String(field.Value.Text()))
			}
		}
	default:
		// Scalars in a list share one column; the last one wins.
		row.Set(column, item)
	}
}

// Title upper-cases the first letter of every run of letters and
// lower-cases the rest, so "cost_per_action_type" becomes
// "Cost_Per_Action_Type" and "offsite_conversion.fb_pixel_purchase"
// becomes "Offsite_Conversion.Fb_Pixel_Purchase".
func Title(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if inWord {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			inWord = true
			continue
		}
		inWord = false
		b.WriteRune(r)
	}
	return b.String()
}
