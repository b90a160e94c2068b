package dataprocessing

import (
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// RegionOther holds states outside the census regions and rows with no state
const RegionOther = "Other"

// Regions maps census regions to supplier state codes
var Regions = map[string][]string{
	"Northeast": {"CT", "ME", "MA", "NH", "RI", "VT", "NJ", "NY", "PA"},
	"Midwest":   {"IL", "IN", "MI", "OH", "WI", "IA", "KS", "MN", "MO", "NE", "ND", "SD"},
	"South":     {"DE", "FL", "GA", "MD", "NC", "SC", "VA", "WV", "AL", "KY", "MS", "TN", "AR", "LA", "OK", "TX"},
	"West":      {"AZ", "CO", "ID", "MT", "NV", "NM", "UT", "WY", "AK", "CA", "HI", "OR", "WA"},
}

var stateRegion = func() map[string]string {
	m := make(map[string]string)
	for region, states := range Regions {
		for _, s := range states {
			m[s] = region
		}
	}
	return m
}()

// RegionFor returns the census region of a state code
func RegionFor(state string) string {
	if r, ok := stateRegion[state]; ok {
		return r
	}
	return RegionOther
}

// RegionSummaries aggregates every row into its supplier state's region.
// PO Count is the row count. Sorted by spend, largest first.
func RegionSummaries(ds *domain.Dataset) []domain.RegionSummary {
	groups := groupByKey(ds,
		func(r *domain.Record) (string, bool) { return RegionFor(r.SupplierState.String()), true },
		func() distinct { return distinct{} },
		func(g *group[distinct], r *domain.Record) { g.extra.add(r.SupplierName) })
	sortBySumDesc(groups)

	out := make([]domain.RegionSummary, len(groups))
	for i, g := range groups {
		out[i] = domain.RegionSummary{
			Region:              g.key,
			TotalSpend:          g.sum.InexactFloat64(),
			Suppliers:           len(g.extra),
			POCount:             g.count,
			AvgSpendPerSupplier: mean(g.sum, len(g.extra)).InexactFloat64(),
		}
	}
	return out
}
