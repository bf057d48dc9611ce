// Package source provides a report that downloads one table from any
// report source, configured entirely through the report definition.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/services"
)

var _ driven.Report = (*Report)(nil)

// Definition options read by Run. Any other option becomes a query param.
const (
	OptionQuery  = "query"
	OptionFields = "fields"
	OptionSheet  = "sheet"
)

// Report downloads a single table from a source.
type Report struct {
	name       string
	source     driven.ReportSource
	downloader *services.TableDownloader
	pipeline   driven.TablePipeline
}

// New creates a report named name reading from src. pipeline may be nil.
func New(name string, src driven.ReportSource, downloader *services.TableDownloader, pipeline driven.TablePipeline) *Report {
	return &Report{
		name:       name,
		source:     src,
		downloader: downloader,
		pipeline:   pipeline,
	}
}

// Name returns the registered report name.
func (r *Report) Name() string {
	return r.name
}

// Run downloads the table for customer. The sheet option names the output
// table, which defaults to the report name.
func (r *Report) Run(ctx context.Context, customer domain.Customer, def domain.ReportDefinition) (*domain.ReportOutput, error) {
	query := domain.ReportQuery{
		CustomerID: customer.ID,
		Params:     make(map[string]string),
	}
	for k, v := range def.Options {
		switch k {
		case OptionQuery:
			query.Query = v
		case OptionFields:
			for _, f := range strings.Split(v, ",") {
				if f = strings.TrimSpace(f); f != "" {
					query.Fields = append(query.Fields, f)
				}
			}
		case OptionSheet:
		default:
			query.Params[k] = v
		}
	}

	table, err := r.downloader.Download(ctx, r.source, query, r.pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s report: %w", r.name, err)
	}

	sheet := def.Options[OptionSheet]
	if sheet == "" {
		sheet = r.name
	}
	return &domain.ReportOutput{Tables: []domain.NamedTable{{Name: sheet, Table: table}}}, nil
}
