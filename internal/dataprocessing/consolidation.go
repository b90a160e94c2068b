package dataprocessing

import (
	"github.com/shopspring/decimal"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

var (
	rate10 = decimal.NewFromFloat(0.10)
	rate15 = decimal.NewFromFloat(0.15)
)

// ConsolidationParams are the thresholds for flagging a subcategory
type ConsolidationParams struct {
	MinSuppliers int
	MinSpend     float64
	// CustomRatePct adds a savings column at this percentage when > 0
	CustomRatePct float64
}

type subcategoryStats struct {
	suppliers distinct
	states    distinct
}

// ConsolidationOpportunities lists subcategories with at least MinSuppliers
// distinct suppliers AND at least MinSpend total spend, sorted by spend.
// Savings are estimated at 10%, 15% and the custom rate.
func ConsolidationOpportunities(ds *domain.Dataset, p ConsolidationParams) []domain.ConsolidationOpportunity {
	groups := groupBy(ds, domain.DimensionSubCategory,
		func() subcategoryStats { return subcategoryStats{suppliers: distinct{}, states: distinct{}} },
		func(g *group[subcategoryStats], r *domain.Record) {
			g.extra.suppliers.add(r.SupplierName)
			g.extra.states.addNull(r.SupplierState)
		})

	minSpend := decimal.NewFromFloat(p.MinSpend)
	customRate := decimal.NewFromFloat(p.CustomRatePct).Div(hundred)

	var kept []*group[subcategoryStats]
	for _, g := range groups {
		if len(g.extra.suppliers) >= p.MinSuppliers && g.sum.GreaterThanOrEqual(minSpend) {
			kept = append(kept, g)
		}
	}
	sortBySumDesc(kept)

	out := make([]domain.ConsolidationOpportunity, len(kept))
	for i, g := range kept {
		n := len(g.extra.suppliers)
		opp := domain.ConsolidationOpportunity{
			SubCategory:    g.key,
			Suppliers:      n,
			TotalSpend:     g.sum.InexactFloat64(),
			States:         len(g.extra.states),
			AvgPerSupplier: mean(g.sum, n).InexactFloat64(),
			Savings10Pct:   g.sum.Mul(rate10).InexactFloat64(),
			Savings15Pct:   g.sum.Mul(rate15).InexactFloat64(),
		}
		if p.CustomRatePct > 0 {
			opp.CustomRatePct = p.CustomRatePct
			opp.SavingsCustom = g.sum.Mul(customRate).InexactFloat64()
		}
		out[i] = opp
	}
	return out
}

// SupplierBreakdown lists the suppliers of one subcategory with their spend,
// row count and share of the subcategory total
func SupplierBreakdown(ds *domain.Dataset, subcategory string) []domain.SupplierShare {
	scoped := Filter(ds, domain.FilterSpec{SubCategories: []string{subcategory}})
	total := TotalSpend(scoped)

	groups := groupBy[struct{}](scoped, domain.DimensionSupplier, nil, nil)
	sortBySumDesc(groups)

	out := make([]domain.SupplierShare, len(groups))
	for i, g := range groups {
		out[i] = domain.SupplierShare{
			Supplier:   g.key,
			TotalSpend: g.sum.InexactFloat64(),
			POCount:    g.count,
			PctOfTotal: round2(decimal.NewFromFloat(pct(g.sum, total))),
		}
	}
	return out
}

// OpportunitySavings totals the 10%, 15% and custom-rate savings columns
func OpportunitySavings(opps []domain.ConsolidationOpportunity) (low, high, custom float64) {
	for _, o := range opps {
		low += o.Savings10Pct
		high += o.Savings15Pct
		custom += o.SavingsCustom
	}
	return low, high, custom
}
