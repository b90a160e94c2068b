package domain

import "time"

// PeriodPoint is one bucket of a time series
type PeriodPoint struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	Amount float64   `json:"amount"`
}

// PeriodSeries is ordered by ascending period
type PeriodSeries []PeriodPoint

// Values returns the amounts in period order
func (s PeriodSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Amount
	}
	return values
}

// RankedEntry is one group of a group-by-sum
type RankedEntry struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
}

// RankedSeries is ordered by descending amount
type RankedSeries []RankedEntry

// Total sums the amounts
func (s RankedSeries) Total() float64 {
	total := 0.0
	for _, e := range s {
		total += e.Amount
	}
	return total
}

// Keys returns the group keys in rank order
func (s RankedSeries) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// EntityMetrics summarizes one entity of a dimension
type EntityMetrics struct {
	Key           string  `json:"key"`
	TotalSpend    float64 `json:"total_spend"`
	AvgPOValue    float64 `json:"avg_po_value"`
	POCount       int     `json:"po_count"`
	CategoryCount int     `json:"category_count"`
}

// CategoryMetric summarizes one category
type CategoryMetric struct {
	Category         string  `json:"category"`
	TotalSpend       float64 `json:"total_spend"`
	AvgPOValue       float64 `json:"avg_po_value"`
	POCount          int     `json:"po_count"`
	SupplierCount    int     `json:"supplier_count"`
	SubCategoryCount int     `json:"subcategory_count"`
}

// ConsolidationOpportunity is a subcategory served by enough suppliers and
// spend to be worth consolidating
type ConsolidationOpportunity struct {
	SubCategory    string  `json:"subcategory"`
	Suppliers      int     `json:"suppliers"`
	TotalSpend     float64 `json:"total_spend"`
	States         int     `json:"states"`
	AvgPerSupplier float64 `json:"avg_per_supplier"`
	Savings10Pct   float64 `json:"savings_10pct"`
	Savings15Pct   float64 `json:"savings_15pct"`
	CustomRatePct  float64 `json:"custom_rate_pct,omitempty"`
	SavingsCustom  float64 `json:"savings_custom,omitempty"`
}

// Concentration is the share of spend held by the top N suppliers
type Concentration struct {
	TopN             int     `json:"top_n"`
	TopNSpend        float64 `json:"top_n_spend"`
	TotalSpend       float64 `json:"total_spend"`
	ConcentrationPct float64 `json:"concentration_pct"`
	RemainingSpend   float64 `json:"remaining_spend"`
	RemainingPct     float64 `json:"remaining_pct"`
}

// TrendDirection compares the last period with the first
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
)

// TrendStats describes a period series
type TrendStats struct {
	Mean      float64        `json:"average"`
	Median    float64        `json:"median"`
	StdDev    float64        `json:"std_dev"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Trend     TrendDirection `json:"trend"`
	ChangePct float64        `json:"change_pct"`
}

// Summary holds dataset-level statistics
type Summary struct {
	TotalSpend      float64    `json:"total_spend"`
	TotalRecords    int        `json:"total_records"`
	UniquePOs       int        `json:"unique_pos"`
	UniqueSuppliers int        `json:"unique_suppliers"`
	UniqueStates    int        `json:"unique_states"`
	UniqueCities    int        `json:"unique_cities"`
	DateMin         *time.Time `json:"date_min"`
	DateMax         *time.Time `json:"date_max"`
	Categories      int        `json:"categories"`
	SubCategories   int        `json:"subcategories"`
}

// MultiDimensionMember lists the distinct secondary values an entity spans
type MultiDimensionMember struct {
	Key        string   `json:"key"`
	Values     []string `json:"values"`
	Count      int      `json:"count"`
	TotalSpend float64  `json:"total_spend"`
	Multi      bool     `json:"multi"`
}

// StatusCount is the number of rows carrying a PO status
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// POMetrics describes purchase-order values and statuses
type POMetrics struct {
	TotalPOs      int           `json:"total_pos"`
	AvgPOValue    float64       `json:"avg_po_value"`
	MedianPOValue float64       `json:"median_po_value"`
	MaxPOValue    float64       `json:"max_po_value"`
	MinPOValue    float64       `json:"min_po_value"`
	StatusCounts  []StatusCount `json:"po_status,omitempty"`
	ClosureRate   *float64      `json:"closure_rate,omitempty"`
}

// GeoMetric summarizes spend for one supplier state
type GeoMetric struct {
	State           string  `json:"state"`
	TotalSpend      float64 `json:"total_spend"`
	UniqueSuppliers int     `json:"unique_suppliers"`
	POCount         int     `json:"po_count"`
	PctOfTotal      float64 `json:"pct_of_total"`
}

// RegionSummary aggregates supplier states into census regions
type RegionSummary struct {
	Region              string  `json:"region"`
	TotalSpend          float64 `json:"total_spend"`
	Suppliers           int     `json:"suppliers"`
	POCount             int     `json:"po_count"`
	AvgSpendPerSupplier float64 `json:"avg_spend_per_supplier"`
}

// SupplierShare is a supplier's part of a subcategory
type SupplierShare struct {
	Supplier   string  `json:"supplier"`
	TotalSpend float64 `json:"total_spend"`
	POCount    int     `json:"po_count"`
	PctOfTotal float64 `json:"pct_of_total"`
}

// SpendBand counts suppliers whose total falls in a spend range
type SpendBand struct {
	Label     string `json:"label"`
	Suppliers int    `json:"suppliers"`
}
