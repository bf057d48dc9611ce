// Package merchant lists Merchant Center products through the Content API.
package merchant

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	content "google.golang.org/api/content/v2.1"

	"github.com/custodia-labs/adreports/internal/connectors/google"
	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.ReportSource = (*Client)(nil)

// PageSize is the largest page products.list returns.
const PageSize = 250

// Client lists products for merchant accounts.
type Client struct {
	svc     *content.APIService
	limiter *google.RateLimiter
}

// NewClient creates a Client on top of a Content API service.
func NewClient(svc *content.APIService) *Client {
	return &Client{
		svc:     svc,
		limiter: google.NewRateLimiter(google.ServiceMerchant),
	}
}

// Type returns the source type identifier.
func (c *Client) Type() domain.SourceType {
	return domain.SourceMerchant
}

// Fetch streams every product of the merchant in query.CustomerID.
func (c *Client) Fetch(ctx context.Context, query domain.ReportQuery) (<-chan domain.Value, <-chan error) {
	records := make(chan domain.Value)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(records)
		err := c.eachPage(ctx, query.CustomerID, func(products []domain.Value) error {
			for _, p := range products {
				select {
				case records <- p:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return records, errs
}

// ListProducts returns every product of a merchant.
func (c *Client) ListProducts(ctx context.Context, merchantID string) ([]domain.Value, error) {
	var all []domain.Value
	err := c.eachPage(ctx, merchantID, func(products []domain.Value) error {
		all = append(all, products...)
		return nil
	})
	return all, err
}

func (c *Client) eachPage(ctx context.Context, merchantID string, fn func([]domain.Value) error) error {
	id, err := strconv.ParseUint(merchantID, 10, 64)
	if err != nil {
		return fmt.Errorf("merchant id %q: %w", merchantID, domain.ErrInvalidInput)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	call := c.svc.Products.List(id).MaxResults(PageSize)
	err = call.Pages(ctx, func(page *content.ProductsListResponse) error {
		products := make([]domain.Value, 0, len(page.Resources))
		for _, p := range page.Resources {
			v, err := decodeProduct(p)
			if err != nil {
				return err
			}
			products = append(products, v)
		}
		if err := fn(products); err != nil {
			return err
		}
		if page.NextPageToken == "" {
			return nil
		}
		return c.limiter.Wait(ctx)
	})
	if err != nil {
		err = google.WrapError(err)
		if errors.Is(err, domain.ErrRateLimited) {
			c.limiter.RecordRateLimitError(0)
		}
		return fmt.Errorf("list products for merchant %s: %w", merchantID, err)
	}
	return nil
}

func decodeProduct(p *content.Product) (domain.Value, error) {
	raw, err := p.MarshalJSON()
	if err != nil {
		return domain.Null(), fmt.Errorf("encode product: %w", err)
	}
	v, err := domain.DecodeJSON(raw)
	if err != nil {
		return domain.Null(), fmt.Errorf("decode product: %w", err)
	}
	return v, nil
}
