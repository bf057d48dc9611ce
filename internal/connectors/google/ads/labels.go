package ads

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
)

var (
	_ driven.LabelService  = (*Labels)(nil)
	_ driving.LabelManager = (*Labels)(nil)
)

var labelFields = []string{"label.resource_name", "label.id", "label.name"}

// Labels reads and creates account labels.
type Labels struct {
	client *Client
	search *Source
}

// NewLabels creates a label service.
func NewLabels(client *Client) *Labels {
	return &Labels{client: client, search: NewSource(client)}
}

// Lookup returns the customer's enabled labels keyed by resource name.
func (l *Labels) Lookup(ctx context.Context, customerID string) (map[string]domain.Label, error) {
	found, err := l.query(ctx, customerID, "")
	if err != nil {
		return nil, err
	}
	lookup := make(map[string]domain.Label, len(found))
	for _, label := range found {
		lookup[label.ResourceName] = label
	}
	return lookup, nil
}

// List returns the customer's enabled labels ordered by name.
func (l *Labels) List(ctx context.Context, customerID string) ([]domain.Label, error) {
	found, err := l.query(ctx, customerID, "")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(found, func(a, b domain.Label) int { return cmp.Compare(a.Name, b.Name) })
	return found, nil
}

// Find returns the enabled label with name.
func (l *Labels) Find(ctx context.Context, customerID, name string) (domain.Label, error) {
	found, err := l.query(ctx, customerID, name)
	if err != nil {
		return domain.Label{}, err
	}
	if len(found) == 0 {
		return domain.Label{}, fmt.Errorf("label %q: %w", name, domain.ErrNotFound)
	}
	return found[0], nil
}

// Ensure returns the enabled label with name, creating it when missing.
func (l *Labels) Ensure(ctx context.Context, customerID, name string) (domain.Label, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Label{}, fmt.Errorf("label name: %w", domain.ErrInvalidInput)
	}
	label, err := l.Find(ctx, customerID, name)
	if err == nil {
		return label, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Label{}, err
	}

	customerID = NormalizeCustomerID(customerID)
	resp, err := l.client.do(ctx,
		l.client.url("customers/"+customerID+"/labels:mutate"),
		map[string]any{"operations": []any{
			map[string]any{"create": map[string]any{"name": name, "status": "ENABLED"}},
		}})
	if err != nil {
		return domain.Label{}, fmt.Errorf("create label %q for %s: %w", name, customerID, err)
	}

	results, _ := resp.Get("results")
	items := results.Items()
	if len(items) == 0 {
		return domain.Label{}, fmt.Errorf("create label %q for %s: no resource name in response", name, customerID)
	}
	resource, _ := items[0].Get("resourceName")
	return domain.Label{
		ResourceName: resource.Text(),
		ID:           lastSegment(resource.Text()),
		Name:         name,
	}, nil
}

func (l *Labels) query(ctx context.Context, customerID, name string) ([]domain.Label, error) {
	where := []string{"label.status = 'ENABLED'"}
	if name != "" {
		where = append([]string{"label.name = " + Quote(name)}, where...)
	}
	rows, err := l.search.Search(ctx, customerID, BuildQuery(labelFields, "label", where, "", 0))
	if err != nil {
		return nil, fmt.Errorf("labels of %s: %w", customerID, err)
	}

	labels := make([]domain.Label, 0, len(rows))
	for _, row := range rows {
		v, _ := row.Get("label")
		resource, _ := v.Get("resourceName")
		id, _ := v.Get("id")
		label, _ := v.Get("name")
		labels = append(labels, domain.Label{
			ResourceName: resource.Text(),
			ID:           id.Text(),
			Name:         label.Text(),
		})
	}
	return labels, nil
}

func lastSegment(resource string) string {
	if i := strings.LastIndexByte(resource, '/'); i >= 0 {
		return resource[i+1:]
	}
	return resource
}
