// Package facets computes per-value counts for filter tabs. The count for a
// value of dimension D is taken under every active filter except the one on D.
package facets

import (
	"context"
	"fmt"

	"backoffice/internal/db"
	"backoffice/internal/domain"
	"backoffice/internal/filter"
)

// Facet holds the counts of one dimension. Counts always carries every
// known value, zero or not.
type Facet struct {
	Dimension string         `json:"dimension"`
	Values    []string       `json:"values"`
	Counts    map[string]int `json:"counts"`
	// All is the count under the other filters only (the "All" tab).
	All int `json:"all"`
}

// Sum adds the per-value counts.
func (f Facet) Sum() int {
	total := 0
	for _, n := range f.Counts {
		total += n
	}
	return total
}

// Counter runs the count queries.
type Counter struct {
	DB db.Querier
}

// Count returns the number of rows of spec's table matching p.
func (c Counter) Count(ctx context.Context, spec *filter.Spec, p filter.Predicate) (int, error) {
	var n int
	query := "SELECT COUNT(*) FROM " + spec.Table + p.Where()
	if err := c.DB.QueryRowContext(ctx, query, p.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", spec.Table, err)
	}
	return n, nil
}

// ComputeFacets counts rows per known value of dimension. The dimension's
// own filter is removed from req before compiling, then each value is ANDed
// back in one at a time.
func (c Counter) ComputeFacets(ctx context.Context, spec *filter.Spec, req filter.Request, dimension filter.FilterField) (Facet, error) {
	values := dimension.Values()
	if len(values) == 0 {
		return Facet{}, domain.ConfigurationError{
			Component: "facets " + spec.Entity,
			Msg:       fmt.Sprintf("dimension %q declares no known values", dimension.Key),
		}
	}
	if dimension.Kind != filter.Exact {
		return Facet{}, domain.ConfigurationError{
			Component: "facets " + spec.Entity,
			Msg:       fmt.Sprintf("dimension %q must be an exact filter", dimension.Key),
		}
	}

	others := req.Without(dimension)
	base, err := filter.Compile(spec, others)
	if err != nil {
		return Facet{}, err
	}

	out := Facet{
		Dimension: dimension.Key,
		Values:    append([]string(nil), values...),
		Counts:    make(map[string]int, len(values)),
	}
	if out.All, err = c.Count(ctx, spec, base); err != nil {
		return Facet{}, err
	}
	for _, v := range values {
		p, err := filter.Compile(spec, others.With(dimension.Key, v))
		if err != nil {
			return Facet{}, err
		}
		n, err := c.Count(ctx, spec, p)
		if err != nil {
			return Facet{}, err
		}
		out.Counts[v] = n
	}
	return out, nil
}
