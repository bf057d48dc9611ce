// Package shopping builds the shopping performance report: last month's
// Google Ads product performance joined with Merchant Center product data.
package shopping

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/adreports/internal/connectors/google/ads"
	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/services"
	"github.com/custodia-labs/adreports/internal/logger"
	"github.com/custodia-labs/adreports/internal/normalisers"
	"github.com/custodia-labs/adreports/internal/postprocessors"
	"github.com/custodia-labs/adreports/internal/postprocessors/coerce"
	"github.com/custodia-labs/adreports/internal/postprocessors/micros"
	"github.com/custodia-labs/adreports/internal/postprocessors/missingfields"
	"github.com/custodia-labs/adreports/internal/postprocessors/resourcenames"
	"github.com/custodia-labs/adreports/internal/tabular"
)

var _ driven.Report = (*Report)(nil)

// Name is the registered report name.
const Name = "shopping"

// Sheet names.
const (
	SheetMerchantData = "Merchant Data"
	SheetTop50        = "Sort Data Top 50"
	SheetWorst50      = "Sort Data Worst 50"
	SheetOutOfStock   = "Out of Stock Data"
)

// OptionDateRange overrides the GAQL date range, LAST_MONTH by default.
const OptionDateRange = "date_range"

// Ads and merchant columns.
const (
	colChannelType = "campaign.advertising_channel_type"
	colCampaignID  = "campaign.id"
	colClicks      = "metrics.clicks"
	colCost        = "metrics.cost_micros"
	colRevenue     = "metrics.conversions_value"
	colImpressions = "metrics.impressions"
	colMerchantID  = "campaign.shopping_setting.merchant_id"
	colItemID      = "segments.product_item_id"

	colProductMerchant = "mCId"
	colProductItem     = "itemId"
	colOfferID         = "offerId"
	colImageLink       = "imageLink"
	colLink            = "link"
	colAvailability    = "availability"
)

// Output column names.
const (
	MerchantCenterID = "Merchant Center Id"
	CampaignID       = "Campaign Id"
	CampaignType     = "Campaign Type"
	ProductID        = "Product Id"
	ProductLink      = "Product Link"
	ImageLink        = "Image Link"
	Clicks           = "Clicks"
	Impressions      = "Impressions"
	Spent            = "Spent"
	Revenue          = "Revenue"
	Status           = "Status"
)

// OutOfStock is the Merchant Center availability of unavailable products.
const OutOfStock = "out of stock"

const rankedRows = 50

var queryFields = []string{
	colChannelType,
	"segments.product_title",
	colCampaignID,
	colClicks,
	colCost,
	colRevenue,
	colImpressions,
	colMerchantID,
	colItemID,
}

// outputColumns maps joined columns to their sheet names, in sheet order.
var outputColumns = []struct{ from, to string }{
	{colMerchantID, MerchantCenterID},
	{colCampaignID, CampaignID},
	{colChannelType, CampaignType},
	{colProductItem, ProductID},
	{colLink, ProductLink},
	{colImageLink, ImageLink},
	{colClicks, Clicks},
	{colImpressions, Impressions},
	{colCost, Spent},
	{colRevenue, Revenue},
	{colAvailability, Status},
}

// ProductLister lists the products of a Merchant Center account.
type ProductLister interface {
	ListProducts(ctx context.Context, merchantID string) ([]domain.Value, error)
}

// Report is the shopping performance report.
type Report struct {
	ads        driven.ReportSource
	products   ProductLister
	flatteners driven.FlattenerRegistry
	policy     tabular.FillPolicy
	downloader *services.TableDownloader
}

// New creates the report. ads must be a Google Ads source.
func New(ads driven.ReportSource, products ProductLister) *Report {
	flatteners := normalisers.NewDefaultRegistry()
	policy := tabular.DefaultFillPolicy()
	return &Report{
		ads:        ads,
		products:   products,
		flatteners: flatteners,
		policy:     policy,
		downloader: services.NewTableDownloader(flatteners, policy),
	}
}

// Name returns the registered report name.
func (r *Report) Name() string {
	return Name
}

// Query returns the GAQL query for a date range such as LAST_MONTH.
func Query(dateRange string) string {
	return ads.BuildQuery(queryFields, "shopping_performance_view",
		[]string{"segments.date DURING " + dateRange}, "", 0)
}

// Run builds the four shopping sheets for one customer.
func (r *Report) Run(ctx context.Context, customer domain.Customer, def domain.ReportDefinition) (*domain.ReportOutput, error) {
	dateRange := def.Options[OptionDateRange]
	if dateRange == "" {
		dateRange = "LAST_MONTH"
	}

	pipeline := postprocessors.NewPipeline(
		missingfields.New(queryFields...),
		coerce.New(),
		micros.New(micros.WithColumns(colCost)),
		resourcenames.New(),
	)
	performance, err := r.downloader.Download(ctx, r.ads, domain.ReportQuery{
		CustomerID: ads.NormalizeCustomerID(customer.ID),
		Query:      Query(dateRange),
	}, pipeline)
	if err != nil {
		return nil, fmt.Errorf("shopping performance: %w", err)
	}
	logger.Info("%s: %d product rows", customer.Label(), performance.Len())

	products, err := r.productTable(ctx, merchantIDs(performance, r.policy.Sentinel))
	if err != nil {
		return nil, err
	}

	joined, err := tabular.LeftJoin(performance, products,
		[]string{colMerchantID, colItemID},
		[]string{colProductMerchant, colProductItem},
		r.policy)
	if err != nil {
		return nil, fmt.Errorf("join products: %w", err)
	}

	data, err := shape(joined)
	if err != nil {
		return nil, err
	}
	return Sheets(data), nil
}

// productTable lists and flattens the products of every merchant.
func (r *Report) productTable(ctx context.Context, merchants []string) (*domain.Table, error) {
	flattener, err := r.flatteners.Get(domain.SourceMerchant)
	if err != nil {
		return nil, err
	}

	acc := tabular.NewAccumulator(r.policy)
	for _, id := range merchants {
		items, err := r.products.ListProducts(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("merchant %s products: %w", id, err)
		}
		var rows []domain.FlatRow
		for _, item := range items {
			rows = rows[:0]
			flattener.Flatten(item, &rows)
			for i := range rows {
				offer, _ := rows[i].Get(colOfferID)
				rows[i].Set(colProductMerchant, domain.String(id))
				rows[i].Set(colProductItem, domain.String(strings.ToLower(offer.Text())))
			}
			acc.Add(rows...)
		}
		logger.Debug("merchant %s: %d products", id, len(items))
	}

	table := acc.Table()
	for _, c := range []string{colProductMerchant, colProductItem, colLink, colImageLink, colAvailability} {
		if !table.HasColumn(c) {
			table.AddColumn(c, r.policy.Fill(c))
		}
	}
	return table, nil
}

// merchantIDs returns the distinct merchant IDs of a performance table.
func merchantIDs(t *domain.Table, sentinel string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range t.Column(colMerchantID) {
		id := v.Text()
		if id == "" || id == "0" || id == sentinel || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// shape selects and renames the sheet columns.
func shape(joined *domain.Table) (*domain.Table, error) {
	from := make([]string, len(outputColumns))
	names := make(map[string]string, len(outputColumns))
	for i, c := range outputColumns {
		from[i] = c.from
		names[c.from] = c.to
	}
	out, err := joined.Select(from...)
	if err != nil {
		return nil, fmt.Errorf("select report columns: %w", err)
	}
	out.RenameColumns(names)
	return out, nil
}

// Sheets derives the four report sheets from the shaped merchant data.
func Sheets(data *domain.Table) *domain.ReportOutput {
	revenue := data.Index(Revenue)
	spent := data.Index(Spent)
	status := data.Index(Status)

	byRevenueDesc := func(a, b []domain.Value) bool {
		return number(a[revenue]) > number(b[revenue])
	}

	top := data.Clone()
	top.SortBy(byRevenueDesc)

	worst := data.Clone()
	worst.SortBy(func(a, b []domain.Value) bool {
		return number(a[spent]) > number(b[spent])
	})
	worst.SortBy(func(a, b []domain.Value) bool {
		return number(a[revenue]) < number(b[revenue])
	})

	outOfStock := data.Filter(func(row []domain.Value) bool {
		return row[status].Text() == OutOfStock
	})
	outOfStock.SortBy(byRevenueDesc)

	return &domain.ReportOutput{Tables: []domain.NamedTable{
		{Name: SheetMerchantData, Table: data},
		{Name: SheetTop50, Table: top.Head(rankedRows)},
		{Name: SheetWorst50, Table: worst.Head(rankedRows)},
		{Name: SheetOutOfStock, Table: outOfStock},
	}}
}

func number(v domain.Value) float64 {
	f, _ := v.Float64()
	return f
}
