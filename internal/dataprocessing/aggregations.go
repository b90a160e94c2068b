package dataprocessing

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

var hundred = decimal.NewFromInt(100)

// group accumulates one key of a group-by. extra carries per-operation state.
type group[T any] struct {
	key   string
	sum   decimal.Decimal
	count int
	extra T
}

// groupBy sums amounts per key of d in first-seen order, skipping rows whose
// key is null. init creates the extra state of a new group; visit, if set,
// is called for every row after it is added.
func groupBy[T any](ds *domain.Dataset, d domain.Dimension, init func() T, visit func(*group[T], *domain.Record)) []*group[T] {
	return groupByKey(ds, d.Key, init, visit)
}

func groupByKey[T any](ds *domain.Dataset, keyOf func(*domain.Record) (string, bool), init func() T, visit func(*group[T], *domain.Record)) []*group[T] {
	index := make(map[string]int)
	var groups []*group[T]

	for _, r := range ds.All() {
		key, ok := keyOf(&r)
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			g := &group[T]{key: key, sum: decimal.Zero}
			if init != nil {
				g.extra = init()
			}
			i = len(groups)
			index[key] = i
			groups = append(groups, g)
		}
		g := groups[i]
		g.sum = g.sum.Add(r.Amount)
		g.count++
		if visit != nil {
			visit(g, &r)
		}
	}
	return groups
}

// sortBySumDesc orders groups by descending sum; equal sums keep first-seen order
func sortBySumDesc[T any](groups []*group[T]) {
	slices.SortStableFunc(groups, func(a, b *group[T]) int {
		return b.sum.Cmp(a.sum)
	})
}

func mean(sum decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}

// pct returns part/total*100, or 0 when total is not positive
func pct(part, total decimal.Decimal) float64 {
	if total.Sign() <= 0 {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// SpendByPeriod sums amounts per period of granularity g, in ascending
// period order. Weeks run Monday to Sunday and are labelled "start/end".
func SpendByPeriod(ds *domain.Dataset, g domain.Granularity) domain.PeriodSeries {
	type bucket struct {
		start time.Time
		sum   decimal.Decimal
	}
	buckets := make(map[string]*bucket)

	for _, r := range ds.All() {
		label := g.PeriodLabel(r.OrderDate)
		b, ok := buckets[label]
		if !ok {
			b = &bucket{start: g.PeriodStart(r.OrderDate), sum: decimal.Zero}
			buckets[label] = b
		}
		b.sum = b.sum.Add(r.Amount)
	}

	series := make(domain.PeriodSeries, 0, len(buckets))
	for label, b := range buckets {
		series = append(series, domain.PeriodPoint{Period: label, Start: b.start, Amount: b.sum.InexactFloat64()})
	}
	slices.SortFunc(series, func(a, b domain.PeriodPoint) int {
		return a.Start.Compare(b.Start)
	})
	return series
}

// SpendByDimension is the full group-by-sum over d in descending order.
// Rows with a null key are excluded, so the total can be below the
// dataset total.
func SpendByDimension(ds *domain.Dataset, d domain.Dimension) domain.RankedSeries {
	groups := groupBy[struct{}](ds, d, nil, nil)
	sortBySumDesc(groups)

	series := make(domain.RankedSeries, len(groups))
	for i, g := range groups {
		series[i] = domain.RankedEntry{Key: g.key, Amount: g.sum.InexactFloat64()}
	}
	return series
}

// TopEntities returns the n largest groups of d by amount, descending, with
// ties in first-seen order
func TopEntities(ds *domain.Dataset, d domain.Dimension, n int) (domain.RankedSeries, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidParameter, n)
	}
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidParameter, d)
	}

	series := SpendByDimension(ds, d)
	if len(series) > n {
		series = series[:n]
	}
	return series, nil
}

// Concentration measures the share of total spend held by the top n
// suppliers. A non-positive total yields zero percentages.
func Concentration(ds *domain.Dataset, n int) (domain.Concentration, error) {
	if n < 1 {
		return domain.Concentration{}, fmt.Errorf("%w: n must be at least 1, got %d", ErrInvalidParameter, n)
	}

	groups := groupBy[struct{}](ds, domain.DimensionSupplier, nil, nil)
	sortBySumDesc(groups)

	top := decimal.Zero
	for i, g := range groups {
		if i == n {
			break
		}
		top = top.Add(g.sum)
	}
	total := TotalSpend(ds)
	remaining := total.Sub(top)

	return domain.Concentration{
		TopN:             n,
		TopNSpend:        top.InexactFloat64(),
		TotalSpend:       total.InexactFloat64(),
		ConcentrationPct: pct(top, total),
		RemainingSpend:   remaining.InexactFloat64(),
		RemainingPct:     pct(remaining, total),
	}, nil
}

// EntityMetrics returns total, average line value, row count and distinct
// category count per entity of d, rounded to cents and sorted by total
func EntityMetrics(ds *domain.Dataset, d domain.Dimension) []domain.EntityMetrics {
	groups := groupBy(ds, d,
		func() distinct { return distinct{} },
		func(g *group[distinct], r *domain.Record) { g.extra.addNull(r.Category) })
	sortBySumDesc(groups)

	out := make([]domain.EntityMetrics, len(groups))
	for i, g := range groups {
		out[i] = domain.EntityMetrics{
			Key:           g.key,
			TotalSpend:    round2(g.sum),
			AvgPOValue:    round2(mean(g.sum, g.count)),
			POCount:       g.count,
			CategoryCount: len(g.extra),
		}
	}
	return out
}
