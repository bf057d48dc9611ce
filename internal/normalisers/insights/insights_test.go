package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

func flattenJSON(t *testing.T, f *Flattener, doc string) []domain.FlatRow {
	t.Helper()
	record, err := domain.DecodeJSON([]byte(doc))
	require.NoError(t, err)
	var rows []domain.FlatRow
	f.Flatten(record, &rows)
	return rows
}

func TestTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"campaign_name", "Campaign_Name"},
		{"SPEND", "Spend"},
		{"offsite_conversion.fb_pixel", "Offsite_Conversion.Fb_Pixel"},
		{"video_p25_watched_actions", "Video_P25_Watched_Actions"},
		{"3d", "3D"},
		{"", ""},
		{"already Title", "Already Title"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.in), tt.in)
	}
}

func TestFlatten_ScalarsOnly(t *testing.T) {
	rows := flattenJSON(t, New(), `{"campaign_name": "Spring", "impressions": "120", "spend": 12.5, "active": true}`)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, []string{"Campaign_Name", "Impressions", "Spend", "Active"}, row.Keys())
	v, _ := row.Get("Campaign_Name")
	assert.True(t, v.Equal(domain.String("Spring")))
	v, _ = row.Get("Spend")
	assert.True(t, v.Equal(domain.Float(12.5)))
	v, _ = row.Get("Active")
	assert.True(t, v.Equal(domain.Bool(true)))
}

func TestFlatten_ActionTypes(t *testing.T) {
	rows := flattenJSON(t, New(), `{
		"actions": [
			{"action_type": "link_click", "value": "10"},
			{"action_type": "purchase", "value": "2"},
			{"action_type": "add_to_cart", "value": "4"}
		]
	}`)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, []string{"Actions | Link_Click", "Actions | Purchase", "Actions | Add_To_Cart"}, row.Keys())
	v, _ := row.Get("Actions | Purchase")
	assert.True(t, v.Equal(domain.String("2")))
}

func TestFlatten_ValueWithoutDiscriminator(t *testing.T) {
	rows := flattenJSON(t, New(), `{"purchase_roas": [{"value": "3.2"}]}`)

	require.Len(t, rows, 1)
	v, ok := rows[0].Get("Purchase_Roas")
	require.True(t, ok)
	assert.True(t, v.Equal(domain.String("3.2")))
}

func TestFlatten_ListEntriesWithoutValueAreStringified(t *testing.T) {
	rows := flattenJSON(t, New(), `{"targeting": [{"age_min": 18, "geo": {"countries": ["GB"]}}]}`)

	require.Len(t, rows, 1)
	row := rows[0]
	v, _ := row.Get("Targeting | Age_Min")
	assert.True(t, v.Equal(domain.String("18")))
	v, _ = row.Get("Targeting | Geo")
	assert.True(t, v.Equal(domain.String(`{"countries":["GB"]}`)))
}

func TestFlatten_ScalarListLastWins(t *testing.T) {
	rows := flattenJSON(t, New(), `{"tags": ["a", "b", "c"]}`)

	v, _ := rows[0].Get("Tags")
	assert.True(t, v.Equal(domain.String("c")))
}

func TestFlatten_NestedObjectsRecurse(t *testing.T) {
	rows := flattenJSON(t, New(), `{
		"creative": {
			"name": "Hero",
			"asset": {"kind": "image", "size": {"w": 1200}},
			"metrics": [{"action_type": "view", "value": 7}]
		}
	}`)

	row := rows[0]
	assert.Equal(t, []string{
		"Creative | Name",
		"Creative | Asset | Kind",
		"Creative | Asset | Size | W",
		"Creative | Metrics | View",
	}, row.Keys())
	v, _ := row.Get("Creative | Asset | Size | W")
	assert.True(t, v.Equal(domain.Int(1200)))
}

func TestFlatten_NullProducesNoColumn(t *testing.T) {
	rows := flattenJSON(t, New(), `{"a": null, "b": 1}`)

	assert.Equal(t, []string{"B"}, rows[0].Keys())
}

func TestFlatten_CustomDiscriminator(t *testing.T) {
	f := New(WithDiscriminator("metric"), WithValueKey("amount"))
	rows := flattenJSON(t, f, `{"totals": [{"metric": "reach", "amount": 100}]}`)

	v, ok := rows[0].Get("Totals | Reach")
	require.True(t, ok)
	assert.True(t, v.Equal(domain.Int(100)))
}

func TestFlatten_ListRecordAndScalarRecord(t *testing.T) {
	rows := flattenJSON(t, New(), `[{"a": 1}, {"b": 2}, null]`)
	assert.Len(t, rows, 2)

	var scalarRows []domain.FlatRow
	New().Flatten(domain.String("odd"), &scalarRows)
	require.Len(t, scalarRows, 1)
	v, _ := scalarRows[0].Get("Value")
	assert.True(t, v.Equal(domain.String("odd")))
}

func TestFlatten_AppendsToExistingRows(t *testing.T) {
	rows := []domain.FlatRow{domain.Row(domain.F("Existing", domain.Int(1)))}
	record, err := domain.DecodeJSON([]byte(`{"x": 1}`))
	require.NoError(t, err)

	New().Flatten(record, &rows)
	assert.Len(t, rows, 2)
}
