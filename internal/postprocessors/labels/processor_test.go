package labels

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

var lookup = map[string]Label{
	"customers/1/labels/10": {ID: "10", Name: "Brand"},
	"customers/1/labels/11": {ID: "11", Name: "Promo"},
}

func newTable(t *testing.T) *domain.Table {
	t.Helper()
	tbl := domain.NewTable("campaign.name", "campaign.labels.0", "campaign.labels.1")
	tbl.Sentinel = "--"
	require.NoError(t, tbl.AppendRow(domain.String("a"), domain.String("customers/1/labels/10"), domain.String("customers/1/labels/11")))
	require.NoError(t, tbl.AppendRow(domain.String("b"), domain.String("customers/1/labels/11"), domain.String("--")))
	require.NoError(t, tbl.AppendRow(domain.String("c"), domain.String("--"), domain.String("--")))
	return tbl
}

func TestProcessor_MergesLabels(t *testing.T) {
	tbl := newTable(t)

	require.NoError(t, New("campaign", WithLookup(lookup)).Process(context.Background(), tbl))

	assert.Equal(t, []string{"campaign.name", IDColumn, NameColumn}, tbl.Columns)
	assert.True(t, tbl.Cell(0, IDColumn).Equal(domain.String("10, 11")))
	assert.True(t, tbl.Cell(0, NameColumn).Equal(domain.String("Brand, Promo")))
	assert.True(t, tbl.Cell(1, NameColumn).Equal(domain.String("Promo")))
	assert.True(t, tbl.Cell(2, NameColumn).Equal(domain.String("--")))
}

func TestProcessor_UnknownResourceUsesID(t *testing.T) {
	tbl := domain.NewTable("ad_group.labels.0")
	require.NoError(t, tbl.AppendRow(domain.String("customers/1/adGroupLabels/5~99")))

	require.NoError(t, New("ad_group").Process(context.Background(), tbl))

	assert.True(t, tbl.Cell(0, IDColumn).Equal(domain.String("99")))
}

// fakeSource returns labels per customer and records the customers asked for.
type fakeSource struct {
	labels map[string]map[string]Label
	asked  []string
	err    error
}

func (f *fakeSource) Lookup(_ context.Context, customerID string) (map[string]Label, error) {
	f.asked = append(f.asked, customerID)
	return f.labels[customerID], f.err
}

func TestProcessor_SourcePerCustomer(t *testing.T) {
	src := &fakeSource{labels: map[string]map[string]Label{
		"1": {
			"customers/1/labels/10": {ResourceName: "customers/1/labels/10", ID: "10", Name: "Brand"},
			"customers/1/labels/11": {ResourceName: "customers/1/labels/11", ID: "11", Name: "Promo"},
		},
	}}
	override := map[string]Label{"customers/1/labels/11": {ID: "11", Name: "Promo (Q4)"}}
	p := New("campaign", WithSource(src), WithLookup(override))
	tbl := newTable(t)

	require.NoError(t, p.Process(domain.WithCustomer(context.Background(), "1"), tbl))

	assert.Equal(t, []string{"1"}, src.asked)
	assert.True(t, tbl.Cell(0, NameColumn).Equal(domain.String("Brand, Promo (Q4)")))
}

func TestProcessor_SourceSkippedWithoutCustomer(t *testing.T) {
	src := &fakeSource{}
	tbl := newTable(t)

	require.NoError(t, New("campaign", WithSource(src)).Process(context.Background(), tbl))

	assert.Empty(t, src.asked)
	assert.True(t, tbl.Cell(0, NameColumn).Equal(domain.String("10, 11")))
}

func TestProcessor_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("quota")}

	err := New("campaign", WithSource(src)).Process(domain.WithCustomer(context.Background(), "7"), newTable(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels of 7")
}

func TestProcessor_Filters(t *testing.T) {
	tests := []struct {
		op    Operator
		names []string
		want  []string
	}{
		{ContainsAll, []string{"Brand", "Promo"}, []string{"a"}},
		{ContainsAny, []string{"Promo"}, []string{"a", "b"}},
		{ContainsNone, []string{"Brand", "Promo"}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			tbl := newTable(t)
			p := New("campaign", WithLookup(lookup), WithFilter(tt.op, tt.names...))

			require.NoError(t, p.Process(context.Background(), tbl))

			var got []string
			for _, v := range tbl.Column("campaign.name") {
				got = append(got, v.Text())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator("contains any")
	require.NoError(t, err)
	assert.Equal(t, ContainsAny, op)

	_, err = ParseOperator("EQUALS")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMatch(t *testing.T) {
	assert.True(t, Match(ContainsAll, []string{"x", "y"}, []string{"x"}))
	assert.False(t, Match(ContainsAll, []string{"x"}, []string{"x", "y"}))
	assert.True(t, Match(ContainsNone, nil, []string{"x"}))
	assert.False(t, Match("BOGUS", []string{"x"}, []string{"x"}))
}
