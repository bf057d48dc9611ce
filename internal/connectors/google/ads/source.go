package ads

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.ReportSource = (*Source)(nil)

// Query parameters used when ReportQuery.Query is empty.
const (
	ParamResource = "resource"
	ParamWhere    = "where"
	ParamOrderBy  = "order_by"
)

// Source streams GAQL report rows through googleAds:searchStream.
type Source struct {
	client *Client
}

// NewSource creates a Google Ads report source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Type returns the source type identifier.
func (s *Source) Type() domain.SourceType {
	return domain.SourceGoogleAds
}

// Fetch runs the GAQL query for query.CustomerID and sends each result row.
// Without query.Query a query is built from Fields and the resource param.
func (s *Source) Fetch(ctx context.Context, query domain.ReportQuery) (<-chan domain.Value, <-chan error) {
	records := make(chan domain.Value)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(records)

		rows, err := s.Search(ctx, query.CustomerID, gaql(query))
		if err != nil {
			errs <- err
			return
		}
		for _, row := range rows {
			select {
			case records <- row:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return records, errs
}

// Search runs a GAQL query and returns every result row.
func (s *Source) Search(ctx context.Context, customerID, query string) ([]domain.Value, error) {
	customerID = NormalizeCustomerID(customerID)
	if customerID == "" || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search needs a customer and a query: %w", domain.ErrInvalidInput)
	}

	resp, err := s.client.do(ctx,
		s.client.url("customers/"+customerID+"/googleAds:searchStream"),
		map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("search customer %s: %w", customerID, err)
	}

	var rows []domain.Value
	for _, batch := range resp.Items() {
		results, _ := batch.Get("results")
		rows = append(rows, results.Items()...)
	}
	return rows, nil
}

func gaql(query domain.ReportQuery) string {
	if query.Query != "" {
		return query.Query
	}
	resource := query.Param(ParamResource, "")
	if resource == "" || len(query.Fields) == 0 {
		return ""
	}
	var where []string
	if w := query.Param(ParamWhere, ""); w != "" {
		where = append(where, w)
	}
	return BuildQuery(query.Fields, resource, where, query.Param(ParamOrderBy, ""), 0)
}
