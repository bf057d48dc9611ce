// Package analytics flattens Google Analytics report responses by zipping
// dimension and metric headers with each row's values.
//
// Both the GA4 runReport shape (dimensionHeaders, metricHeaders, rows) and
// the older reporting v4 shape (reports[].columnHeader, data.rows) are read.
package analytics

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Ensure Flattener implements the interface.
var _ driven.Flattener = (*Flattener)(nil)

// Flattener turns one report response into one row per report row.
type Flattener struct{}

// New creates a Flattener.
func New() *Flattener {
	return &Flattener{}
}

// Flatten appends a row per report row. Responses without headers produce nothing.
func (f *Flattener) Flatten(record domain.Value, out *[]domain.FlatRow) {
	if reports, ok := record.Get("reports"); ok {
		for _, report := range reports.Items() {
			flattenV4(report, out)
		}
		return
	}
	if record.Kind() == domain.KindList {
		for _, item := range record.Items() {
			f.Flatten(item, out)
		}
		return
	}
	flattenGA4(record, out)
}

func flattenGA4(resp domain.Value, out *[]domain.FlatRow) {
	dims := headerNames(field(resp, "dimensionHeaders"))
	metrics := headerNames(field(resp, "metricHeaders"))
	for _, r := range field(resp, "rows").Items() {
		var row domain.FlatRow
		zip(&row, dims, field(r, "dimensionValues").Items(), false)
		zip(&row, metrics, field(r, "metricValues").Items(), true)
		*out = append(*out, row)
	}
}

func flattenV4(report domain.Value, out *[]domain.FlatRow) {
	header := field(report, "columnHeader")
	var dims []string
	for _, d := range field(header, "dimensions").Items() {
		dims = append(dims, d.Text())
	}
	metrics := headerNames(field(field(header, "metricHeader"), "metricHeaderEntries"))
	for _, r := range field(field(report, "data"), "rows").Items() {
		var row domain.FlatRow
		for i, d := range field(r, "dimensions").Items() {
			if i < len(dims) {
				row.Set(dims[i], d)
			}
		}
		for _, dr := range field(r, "metrics").Items() {
			for i, v := range field(dr, "values").Items() {
				if i < len(metrics) {
					row.Set(metrics[i], ParseMetric(v.Text()))
				}
			}
		}
		*out = append(*out, row)
	}
}

func zip(row *domain.FlatRow, names []string, values []domain.Value, metric bool) {
	for i, v := range values {
		if i >= len(names) {
			return
		}
		text := v.Text()
		if inner, ok := v.Get("value"); ok {
			text = inner.Text()
		}
		if metric {
			row.Set(names[i], ParseMetric(text))
		} else {
			row.Set(names[i], domain.String(text))
		}
	}
}

func headerNames(headers domain.Value) []string {
	items := headers.Items()
	names := make([]string, 0, len(items))
	for _, h := range items {
		if name, ok := h.Get("name"); ok {
			names = append(names, name.Text())
		} else {
			names = append(names, h.Text())
		}
	}
	return names
}

func field(v domain.Value, key string) domain.Value {
	out, _ := v.Get(key)
	return out
}

// ParseMetric converts a metric string. Values containing "." or "," are
// floats, other numeric values are integers, and anything else stays text.
func ParseMetric(s string) domain.Value {
	trimmed := strings.TrimSpace(s)
	if strings.ContainsAny(trimmed, ".,") {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64); err == nil {
			return domain.Float(f)
		}
		return domain.String(s)
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return domain.Int(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return domain.Float(f)
	}
	return domain.String(s)
}
