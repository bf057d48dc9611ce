package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/logger"
	"github.com/custodia-labs/adreports/internal/tabular"
)

// TableDownloader fetches records from a report source, flattens them and
// assembles a rectangular table.
type TableDownloader struct {
	flatteners driven.FlattenerRegistry
	policy     tabular.FillPolicy
}

// NewTableDownloader creates a downloader using the given fill policy.
func NewTableDownloader(flatteners driven.FlattenerRegistry, policy tabular.FillPolicy) *TableDownloader {
	return &TableDownloader{
		flatteners: flatteners,
		policy:     policy,
	}
}

// Download runs query against source and returns the assembled table.
// A nil pipeline returns the table as accumulated.
func (d *TableDownloader) Download(
	ctx context.Context,
	source driven.ReportSource,
	query domain.ReportQuery,
	pipeline driven.TablePipeline,
) (*domain.Table, error) {
	flattener, err := d.flatteners.Get(source.Type())
	if err != nil {
		return nil, fmt.Errorf("flattener for %s: %w", source.Type(), err)
	}

	acc := tabular.NewAccumulator(d.policy)
	records, errs := source.Fetch(ctx, query)

	var rows []domain.FlatRow
	count := 0
	for record := range records {
		rows = rows[:0]
		flattener.Flatten(record, &rows)
		acc.Add(rows...)
		count++
	}
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source.Type(), err)
	}
	logger.Debug("%s: %d records, %d rows, %d columns", source.Type(), count, acc.Len(), len(acc.Columns()))

	table := acc.Table()
	if pipeline != nil {
		if err := pipeline.Process(domain.WithCustomer(ctx, query.CustomerID), table); err != nil {
			return nil, err
		}
	}
	return table, nil
}
