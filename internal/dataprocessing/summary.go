package dataprocessing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// Summarize computes dataset-level statistics. Distinct counts ignore null
// values; an empty dataset gives a zeroed summary with nil dates.
func Summarize(ds *domain.Dataset) domain.Summary {
	if ds.IsEmpty() {
		return domain.Summary{}
	}

	total := decimal.Zero
	var minDate, maxDate time.Time
	pos, suppliers, states := distinct{}, distinct{}, distinct{}
	cities, cats, subcats := distinct{}, distinct{}, distinct{}

	for i, r := range ds.All() {
		total = total.Add(r.Amount)
		if i == 0 || r.OrderDate.Before(minDate) {
			minDate = r.OrderDate
		}
		if i == 0 || r.OrderDate.After(maxDate) {
			maxDate = r.OrderDate
		}
		pos.addNull(r.PONumber)
		suppliers.add(r.SupplierName)
		states.addNull(r.SupplierState)
		cities.addNull(r.SupplierCity)
		cats.addNull(r.Category)
		subcats.addNull(r.SubCategory)
	}

	return domain.Summary{
		TotalSpend:      total.InexactFloat64(),
		TotalRecords:    ds.Len(),
		UniquePOs:       len(pos),
		UniqueSuppliers: len(suppliers),
		UniqueStates:    len(states),
		UniqueCities:    len(cities),
		DateMin:         &minDate,
		DateMax:         &maxDate,
		Categories:      len(cats),
		SubCategories:   len(subcats),
	}
}

// TotalSpend sums every amount in the dataset, including rows whose
// grouping keys are null
func TotalSpend(ds *domain.Dataset) decimal.Decimal {
	total := decimal.Zero
	for _, r := range ds.All() {
		total = total.Add(r.Amount)
	}
	return total
}

// distinct is a set of non-empty strings
type distinct map[string]struct{}

func (d distinct) add(s string) {
	if s != "" {
		d[s] = struct{}{}
	}
}

func (d distinct) addNull(s domain.NullString) {
	if s.Valid {
		d[s.Value] = struct{}{}
	}
}

func (d distinct) has(s string) bool {
	_, ok := d[s]
	return ok
}
