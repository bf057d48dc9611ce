// Package reports holds the named reports and the registry the runner
// resolves them from.
package reports

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ReportRegistry = (*Registry)(nil)

// Registry maps report names to reports.
type Registry struct {
	mu      sync.RWMutex
	reports map[string]driven.Report
}

// NewRegistry creates a registry holding the given reports.
func NewRegistry(reports ...driven.Report) *Registry {
	r := &Registry{reports: make(map[string]driven.Report)}
	for _, rep := range reports {
		r.Register(rep)
	}
	return r
}

// Register adds or replaces a report under its name.
func (r *Registry) Register(report driven.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.Name()] = report
}

// Get returns the named report.
func (r *Registry) Get(name string) (driven.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[name]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", name, domain.ErrNotFound)
	}
	return rep, nil
}

// Names returns all registered report names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.reports))
	for name := range r.reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
