package postprocessors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/postprocessors/labels"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.Empty(t, r.builders)
}

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.TableProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &mockProcessor{name: name}, nil
	})

	assert.True(t, r.Has("test"))
	proc, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())
}

func TestRegistry_BuildUnknown(t *testing.T) {
	_, err := NewRegistry().Build("missing", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegisterDefaults(t *testing.T) {
	r := NewDefaultRegistry()

	assert.Equal(t, []string{"coerce", "labels", "micros", "missingfields", "resourcenames", "roas"}, r.Names())
	for _, name := range []string{"coerce", "micros", "roas", "resourcenames", "missingfields"} {
		proc, err := r.Build(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, proc.Name())
	}
}

func TestBuildLabels_Config(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Build("labels", nil)
	assert.Error(t, err)

	_, err = r.Build("labels", map[string]any{"level": "campaign", "names": []any{"Brand"}, "operator": "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	proc, err := r.Build("labels", map[string]any{
		"level":    "campaign",
		"lookup":   map[string]any{"customers/1/labels/10": "Brand"},
		"names":    []any{"Brand"},
		"operator": "contains any",
	})
	require.NoError(t, err)

	tbl := domain.NewTable("campaign.labels.0")
	require.NoError(t, tbl.AppendRow(domain.String("customers/1/labels/10")))
	require.NoError(t, tbl.AppendRow(domain.String("customers/1/labels/12")))
	require.NoError(t, proc.Process(context.Background(), tbl))

	require.Equal(t, 1, tbl.Len())
	assert.True(t, tbl.Cell(0, "label.id").Equal(domain.String("10")))
	assert.True(t, tbl.Cell(0, "label.name").Equal(domain.String("Brand")))
}

// staticLabels serves the same labels for every customer.
type staticLabels map[string]labels.Label

func (s staticLabels) Lookup(context.Context, string) (map[string]labels.Label, error) {
	return s, nil
}

func TestBuildLabels_WithLabelSource(t *testing.T) {
	src := staticLabels{"customers/1/labels/12": {ResourceName: "customers/1/labels/12", ID: "12", Name: "Clearance"}}
	proc, err := NewDefaultRegistry(WithLabelSource(src)).Build("labels", map[string]any{"level": "campaign"})
	require.NoError(t, err)

	tbl := domain.NewTable("campaign.labels.0")
	require.NoError(t, tbl.AppendRow(domain.String("customers/1/labels/12")))
	require.NoError(t, proc.Process(domain.WithCustomer(context.Background(), "1"), tbl))

	assert.True(t, tbl.Cell(0, "label.name").Equal(domain.String("Clearance")))
}

func TestBuildResourceNames_Keep(t *testing.T) {
	proc, err := NewDefaultRegistry().Build("resourcenames", map[string]any{"keep": true})
	require.NoError(t, err)

	tbl := domain.NewTable("campaign.resource_name")
	require.NoError(t, proc.Process(context.Background(), tbl))
	assert.True(t, tbl.HasColumn("campaign.resource_name"))
}

func TestGetStringsFromConfig(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, getStringsFromConfig(map[string]any{"k": []any{"a", 1, "b"}}, "k"))
	assert.Equal(t, []string{"x"}, getStringsFromConfig(map[string]any{"k": "x"}, "k"))
	assert.Nil(t, getStringsFromConfig(nil, "k"))
}
