// Package path flattens records into dot-joined column paths, the shape
// Google Ads and Merchant Center reports use ("campaign.name",
// "metrics.cost_micros", "campaign.labels.0").
package path

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Ensure Flattener implements the interface.
var _ driven.Flattener = (*Flattener)(nil)

// Flattener produces one row per object record with dot-joined paths.
type Flattener struct {
	separator string
	snakeCase bool
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithSeparator overrides the "." path separator.
func WithSeparator(sep string) Option {
	return func(f *Flattener) {
		f.separator = sep
	}
}

// WithSnakeCase converts camelCase key segments to snake_case.
func WithSnakeCase() Option {
	return func(f *Flattener) {
		f.snakeCase = true
	}
}

// New creates a Flattener.
func New(opts ...Option) *Flattener {
	f := &Flattener{separator: "."}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flatten appends one row for an object record. List records contribute one
// row per element. Nulls and empty containers produce no column.
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
		f.walk(&row, "", record)
		*out = append(*out, row)
	default:
		*out = append(*out, domain.Row(domain.F("value", record)))
	}
}

func (f *Flattener) walk(row *domain.FlatRow, prefix string, v domain.Value) {
	switch v.Kind() {
	case domain.KindNull:
	case domain.KindObject:
		for _, field := range v.Fields() {
			f.walk(row, f.join(prefix, f.key(field.Key)), field.Value)
		}
	case domain.KindList:
		for i, item := range v.Items() {
			f.walk(row, f.join(prefix, strconv.Itoa(i)), item)
		}
	default:
		row.Set(prefix, v)
	}
}

func (f *Flattener) join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + f.separator + key
}

// key strips a "$type" suffix left by flattening libraries and applies case conversion.
func (f *Flattener) key(k string) string {
	if i := strings.IndexByte(k, '$'); i >= 0 {
		k = k[:i]
	}
	k = strings.TrimSpace(k)
	if f.snakeCase {
		k = SnakeCase(k)
	}
	return k
}

// SnakeCase converts "costMicros" to "cost_micros". Keys that are already
// snake_case are returned unchanged.
func SnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
