package resourcenames

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

func newTable(t *testing.T) *domain.Table {
	t.Helper()
	tbl := domain.NewTable("campaign.resource_name", "campaign.name", "ad_group.resource_name", "metrics.clicks")
	require.NoError(t, tbl.AppendRow(
		domain.String("customers/1/campaigns/2"),
		domain.String("Brand"),
		domain.String("customers/1/adGroups/3"),
		domain.Int(4),
	))
	return tbl
}

func TestProcessor_DropsByDefault(t *testing.T) {
	tbl := newTable(t)

	require.NoError(t, New().Process(context.Background(), tbl))

	assert.Equal(t, []string{"campaign.name", "metrics.clicks"}, tbl.Columns)
	assert.True(t, tbl.Cell(0, "metrics.clicks").Equal(domain.Int(4)))
}

func TestProcessor_Keep(t *testing.T) {
	tbl := newTable(t)

	require.NoError(t, New(WithKeep(true)).Process(context.Background(), tbl))

	assert.Len(t, tbl.Columns, 4)
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "resourcenames", New().Name())
}
