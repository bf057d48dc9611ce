package normalisers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/normalisers/analytics"
	"github.com/custodia-labs/adreports/internal/normalisers/insights"
	"github.com/custodia-labs/adreports/internal/normalisers/path"
)

// Ensure Registry implements the interface.
var _ driven.FlattenerRegistry = (*Registry)(nil)

// Registry maps source types to flatteners.
type Registry struct {
	mu         sync.RWMutex
	flatteners map[domain.SourceType]driven.Flattener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		flatteners: make(map[domain.SourceType]driven.Flattener),
	}
}

// NewDefaultRegistry creates a registry with the built-in flatteners registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// RegisterDefaults registers the built-in flatteners for every known source.
func RegisterDefaults(r *Registry) {
	// Ads REST rows are camelCase; column names follow the proto field names.
	r.Register(domain.SourceGoogleAds, path.New(path.WithSnakeCase()))
	r.Register(domain.SourceMerchant, path.New())
	r.Register(domain.SourceFacebook, insights.New())
	r.Register(domain.SourceAnalytics, analytics.New())
}

// Register adds or replaces the flattener for a source type.
func (r *Registry) Register(sourceType domain.SourceType, flattener driven.Flattener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flatteners[sourceType] = flattener
}

// Get returns the flattener for a source type.
func (r *Registry) Get(sourceType domain.SourceType) (driven.Flattener, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flatteners[sourceType]
	if !ok {
		return nil, fmt.Errorf("flattener for %s: %w", sourceType, domain.ErrUnsupportedType)
	}
	return f, nil
}

// SourceTypes returns all registered source types, sorted.
func (r *Registry) SourceTypes() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.SourceType, 0, len(r.flatteners))
	for t := range r.flatteners {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
