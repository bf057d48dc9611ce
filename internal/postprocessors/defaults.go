package postprocessors

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/postprocessors/coerce"
	"github.com/custodia-labs/adreports/internal/postprocessors/labels"
	"github.com/custodia-labs/adreports/internal/postprocessors/micros"
	"github.com/custodia-labs/adreports/internal/postprocessors/missingfields"
	"github.com/custodia-labs/adreports/internal/postprocessors/resourcenames"
	"github.com/custodia-labs/adreports/internal/postprocessors/roas"
)

// DefaultsOption supplies runtime dependencies to the built-in processors.
type DefaultsOption func(*defaults)

type defaults struct {
	labelSource labels.Source
}

// WithLabelSource makes the labels processor read each customer's labels.
func WithLabelSource(src labels.Source) DefaultsOption {
	return func(d *defaults) { d.labelSource = src }
}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry, opts ...DefaultsOption) {
	d := &defaults{}
	for _, opt := range opts {
		opt(d)
	}
	r.Register("coerce", buildCoerce)
	r.Register("micros", buildMicros)
	r.Register("roas", buildROAS)
	r.Register("resourcenames", buildResourceNames)
	r.Register("missingfields", buildMissingFields)
	r.Register("labels", d.buildLabels)
}

// NewDefaultRegistry returns a registry with the built-in processors.
func NewDefaultRegistry(opts ...DefaultsOption) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, opts...)
	return r
}

// buildCoerce supports:
//   - markers ([]string): column-name fragments to coerce (default: metrics, micros)
func buildCoerce(cfg map[string]any) (driven.TableProcessor, error) {
	return coerce.New(coerce.WithMarkers(getStringsFromConfig(cfg, "markers")...)), nil
}

// buildMicros supports:
//   - columns ([]string): columns converted in addition to any "_micros" column
func buildMicros(cfg map[string]any) (driven.TableProcessor, error) {
	return micros.New(micros.WithColumns(getStringsFromConfig(cfg, "columns")...)), nil
}

// buildROAS supports:
//   - revenue (string): revenue column (default: metrics.conversions_value)
//   - cost (string): cost column (default: metrics.cost_micros)
//   - output (string): derived column (default: metrics.roas)
func buildROAS(cfg map[string]any) (driven.TableProcessor, error) {
	return roas.New(
		roas.WithRevenueColumn(getStringFromConfig(cfg, "revenue")),
		roas.WithCostColumn(getStringFromConfig(cfg, "cost")),
		roas.WithOutputColumn(getStringFromConfig(cfg, "output")),
	), nil
}

// buildResourceNames supports:
//   - keep (bool): retain resource-name columns (default: false)
func buildResourceNames(cfg map[string]any) (driven.TableProcessor, error) {
	keep, _ := cfg["keep"].(bool)
	return resourcenames.New(resourcenames.WithKeep(keep)), nil
}

// buildMissingFields supports:
//   - fields ([]string): requested query fields
func buildMissingFields(cfg map[string]any) (driven.TableProcessor, error) {
	return missingfields.New(getStringsFromConfig(cfg, "fields")...), nil
}

// buildLabels supports:
//   - level (string, required): report level such as "campaign"
//   - lookup (map[string]string): label resource name to label name, applied
//     over the labels read from the label source
//   - names ([]string) and operator (string): optional row filter
func (d *defaults) buildLabels(cfg map[string]any) (driven.TableProcessor, error) {
	level := getStringFromConfig(cfg, "level")
	if level == "" {
		return nil, fmt.Errorf("labels: level is required")
	}
	opts := []labels.Option{}
	if d.labelSource != nil {
		opts = append(opts, labels.WithSource(d.labelSource))
	}
	if raw, ok := cfg["lookup"].(map[string]any); ok {
		lookup := make(map[string]labels.Label, len(raw))
		for resource, name := range raw {
			l := labels.Label{ResourceName: resource, Name: fmt.Sprint(name)}
			if i := strings.LastIndexByte(resource, '/'); i >= 0 {
				l.ID = resource[i+1:]
			}
			lookup[resource] = l
		}
		opts = append(opts, labels.WithLookup(lookup))
	}
	if names := getStringsFromConfig(cfg, "names"); len(names) > 0 {
		op, err := labels.ParseOperator(getStringFromConfig(cfg, "operator"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, labels.WithFilter(op, names...))
	}
	return labels.New(level, opts...), nil
}

// getStringFromConfig safely extracts a string from generic config map.
func getStringFromConfig(cfg map[string]any, key string) string {
	v, _ := cfg[key].(string)
	return v
}

// getStringsFromConfig extracts a string list. Handles []string and the
// []any that TOML/JSON parsing produces.
func getStringsFromConfig(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
