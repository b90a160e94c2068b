package dataprocessing

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// StatusClosed is the PO status counted by the closure rate
const StatusClosed = "Closed"

// POMetrics describes line values and PO statuses. TotalPOs counts distinct
// PO numbers and is 0 when the dataset has no PO number column.
func POMetrics(ds *domain.Dataset) domain.POMetrics {
	if ds.IsEmpty() {
		return domain.POMetrics{}
	}

	pos := distinct{}
	values := make([]float64, 0, ds.Len())
	total := decimal.Zero
	statusIndex := map[string]int{}
	var statuses []domain.StatusCount

	for _, r := range ds.All() {
		pos.addNull(r.PONumber)
		total = total.Add(r.Amount)
		values = append(values, r.AmountFloat())
		if !r.POStatus.Valid {
			continue
		}
		i, ok := statusIndex[r.POStatus.Value]
		if !ok {
			i = len(statuses)
			statusIndex[r.POStatus.Value] = i
			statuses = append(statuses, domain.StatusCount{Status: r.POStatus.Value})
		}
		statuses[i].Count++
	}

	slices.SortStableFunc(statuses, func(a, b domain.StatusCount) int {
		return b.Count - a.Count
	})

	m := domain.POMetrics{
		TotalPOs:      len(pos),
		AvgPOValue:    mean(total, ds.Len()).InexactFloat64(),
		MedianPOValue: median(values),
		MaxPOValue:    slices.Max(values),
		MinPOValue:    slices.Min(values),
		StatusCounts:  statuses,
	}

	counted, closed := 0, -1
	for _, s := range statuses {
		counted += s.Count
		if s.Status == StatusClosed {
			closed = s.Count
		}
	}
	if closed >= 0 {
		rate := float64(closed) / float64(counted) * 100
		m.ClosureRate = &rate
	}
	return m
}

type categoryStats struct {
	suppliers distinct
	subcats   distinct
}

// CategoryMetrics returns total, average line value, row count, distinct
// suppliers and distinct subcategories per category, rounded to cents
func CategoryMetrics(ds *domain.Dataset) []domain.CategoryMetric {
	groups := groupBy(ds, domain.DimensionCategory,
		func() categoryStats { return categoryStats{suppliers: distinct{}, subcats: distinct{}} },
		func(g *group[categoryStats], r *domain.Record) {
			g.extra.suppliers.add(r.SupplierName)
			g.extra.subcats.addNull(r.SubCategory)
		})
	sortBySumDesc(groups)

	out := make([]domain.CategoryMetric, len(groups))
	for i, g := range groups {
		out[i] = domain.CategoryMetric{
			Category:         g.key,
			TotalSpend:       round2(g.sum),
			AvgPOValue:       round2(mean(g.sum, g.count)),
			POCount:          g.count,
			SupplierCount:    len(g.extra.suppliers),
			SubCategoryCount: len(g.extra.subcats),
		}
	}
	return out
}

type stateStats struct {
	suppliers distinct
	pos       distinct
}

// GeographicMetrics summarizes spend per supplier state. PO Count is the
// number of distinct PO numbers when the dataset has that column and the
// row count otherwise.
func GeographicMetrics(ds *domain.Dataset) []domain.GeoMetric {
	hasPO := ds != nil && ds.Schema.Has(domain.FieldPONumber)
	groups := groupBy(ds, domain.DimensionSupplierState,
		func() stateStats { return stateStats{suppliers: distinct{}, pos: distinct{}} },
		func(g *group[stateStats], r *domain.Record) {
			g.extra.suppliers.add(r.SupplierName)
			g.extra.pos.addNull(r.PONumber)
		})
	sortBySumDesc(groups)

	total := TotalSpend(ds)
	out := make([]domain.GeoMetric, len(groups))
	for i, g := range groups {
		count := g.count
		if hasPO {
			count = len(g.extra.pos)
		}
		out[i] = domain.GeoMetric{
			State:           g.key,
			TotalSpend:      round2(g.sum),
			UniqueSuppliers: len(g.extra.suppliers),
			POCount:         count,
			PctOfTotal:      round2(decimal.NewFromFloat(pct(g.sum, total))),
		}
	}
	return out
}

// SupplierCountByState counts distinct suppliers per supplier state, largest first
func SupplierCountByState(ds *domain.Dataset) domain.RankedSeries {
	groups := groupBy(ds, domain.DimensionSupplierState,
		func() distinct { return distinct{} },
		func(g *group[distinct], r *domain.Record) { g.extra.add(r.SupplierName) })

	slices.SortStableFunc(groups, func(a, b *group[distinct]) int {
		return len(b.extra) - len(a.extra)
	})

	out := make(domain.RankedSeries, len(groups))
	for i, g := range groups {
		out[i] = domain.RankedEntry{Key: g.key, Amount: float64(len(g.extra))}
	}
	return out
}

// spendBands are right-inclusive upper bounds; the last band is open
var spendBands = []struct {
	label string
	upper float64
}{
	{"<$10K", 10_000},
	{"$10K-$50K", 50_000},
	{"$50K-$100K", 100_000},
	{"$100K-$500K", 500_000},
	{">$500K", 0},
}

// SpendDistribution counts entities per spend band. Totals at or below zero
// fall outside every band. No metrics gives no bands.
func SpendDistribution(metrics []domain.EntityMetrics) []domain.SpendBand {
	if len(metrics) == 0 {
		return nil
	}

	out := make([]domain.SpendBand, len(spendBands))
	for i, b := range spendBands {
		out[i].Label = b.label
	}
	for _, m := range metrics {
		if m.TotalSpend <= 0 {
			continue
		}
		i := len(spendBands) - 1
		for j, b := range spendBands[:len(spendBands)-1] {
			if m.TotalSpend <= b.upper {
				i = j
				break
			}
		}
		out[i].Suppliers++
	}
	return out
}
