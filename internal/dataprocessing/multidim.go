package dataprocessing

import (
	"fmt"
	"maps"
	"slices"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// MultiDimensionMembers lists, for every entity of primary, the distinct
// non-null values it spans in secondary. Members spanning more than one
// value are flagged Multi. Results sort by value count then spend, both
// descending.
func MultiDimensionMembers(ds *domain.Dataset, primary, secondary domain.Dimension) ([]domain.MultiDimensionMember, error) {
	if !primary.Valid() {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidParameter, primary)
	}
	if !secondary.Valid() {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidParameter, secondary)
	}

	groups := groupBy(ds, primary,
		func() distinct { return distinct{} },
		func(g *group[distinct], r *domain.Record) {
			if v, ok := secondary.Key(r); ok {
				g.extra.add(v)
			}
		})

	out := make([]domain.MultiDimensionMember, len(groups))
	for i, g := range groups {
		values := slices.Sorted(maps.Keys(g.extra))
		out[i] = domain.MultiDimensionMember{
			Key:        g.key,
			Values:     values,
			Count:      len(values),
			TotalSpend: g.sum.InexactFloat64(),
			Multi:      len(values) > 1,
		}
	}

	slices.SortStableFunc(out, func(a, b domain.MultiDimensionMember) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		switch {
		case a.TotalSpend > b.TotalSpend:
			return -1
		case a.TotalSpend < b.TotalSpend:
			return 1
		}
		return 0
	})
	return out, nil
}

// FilterMulti keeps the members flagged Multi, preserving order
func FilterMulti(members []domain.MultiDimensionMember) []domain.MultiDimensionMember {
	out := make([]domain.MultiDimensionMember, 0, len(members))
	for _, m := range members {
		if m.Multi {
			out = append(out, m)
		}
	}
	return out
}
