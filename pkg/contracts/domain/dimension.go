package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidParameter marks a caller contract violation such as n < 1 or an
// unknown dimension. It is never returned for degenerate data.
var ErrInvalidParameter = errors.New("invalid parameter")

// Dimension is a categorical attribute records can be grouped by
type Dimension string

const (
	DimensionSupplier      Dimension = "supplier"
	DimensionSupplierState Dimension = "supplier_state"
	DimensionSupplierCity  Dimension = "supplier_city"
	DimensionShipToState   Dimension = "ship_to_state"
	DimensionCategory      Dimension = "category"
	DimensionSubCategory   Dimension = "subcategory"
	DimensionPOStatus      Dimension = "po_status"
	DimensionPONumber      Dimension = "po_number"
)

// Dimensions lists every supported dimension
var Dimensions = []Dimension{
	DimensionSupplier,
	DimensionSupplierState,
	DimensionSupplierCity,
	DimensionShipToState,
	DimensionCategory,
	DimensionSubCategory,
	DimensionPOStatus,
	DimensionPONumber,
}

var dimensionAliases = map[string]Dimension{
	"state":   DimensionSupplierState,
	"city":    DimensionSupplierCity,
	"status":  DimensionPOStatus,
	"po":      DimensionPONumber,
	"ship_to": DimensionShipToState,
}

// ParseDimension resolves a dimension name or alias
func ParseDimension(s string) (Dimension, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	d := Dimension(name)
	if d.Valid() {
		return d, nil
	}
	if alias, ok := dimensionAliases[name]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: unknown dimension %q", ErrInvalidParameter, s)
}

// Valid reports whether d is a known dimension
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Field returns the semantic column backing the dimension
func (d Dimension) Field() Field {
	switch d {
	case DimensionSupplier:
		return FieldSupplier
	case DimensionSupplierState:
		return FieldSupplierState
	case DimensionSupplierCity:
		return FieldSupplierCity
	case DimensionShipToState:
		return FieldShipToState
	case DimensionCategory:
		return FieldCategory
	case DimensionSubCategory:
		return FieldSubCategory
	case DimensionPOStatus:
		return FieldPOStatus
	case DimensionPONumber:
		return FieldPONumber
	}
	return ""
}

// Key extracts the grouping key. ok is false for null values.
func (d Dimension) Key(r *Record) (string, bool) {
	var v NullString
	switch d {
	case DimensionSupplier:
		v = NewNullString(r.SupplierName)
	case DimensionSupplierState:
		v = r.SupplierState
	case DimensionSupplierCity:
		v = r.SupplierCity
	case DimensionShipToState:
		v = r.ShipToState
	case DimensionCategory:
		v = r.Category
	case DimensionSubCategory:
		v = r.SubCategory
	case DimensionPOStatus:
		v = r.POStatus
	case DimensionPONumber:
		v = r.PONumber
	}
	return v.Value, v.Valid
}

// Granularity selects the period bucket for time series
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// ParseGranularity accepts the long names and the single-letter period codes D/W/M/Q/Y
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily", "d":
		return GranularityDay, nil
	case "week", "weekly", "w":
		return GranularityWeek, nil
	case "month", "monthly", "m", "":
		return GranularityMonth, nil
	case "quarter", "quarterly", "q":
		return GranularityQuarter, nil
	case "year", "yearly", "y":
		return GranularityYear, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidParameter, s)
}

// PeriodStart returns the first day of the period containing t
func (g Granularity) PeriodStart(t time.Time) time.Time {
	t = DateOnly(t)
	switch g {
	case GranularityWeek:
		offset := (int(t.Weekday()) + 6) % 7 // Monday == 0
		return t.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityQuarter:
		first := time.Month((int(t.Month())-1)/3*3 + 1)
		return time.Date(t.Year(), first, 1, 0, 0, 0, 0, time.UTC)
	case GranularityYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// PeriodLabel formats the period containing t. Weeks run Monday to Sunday
// and are labelled "start/end".
func (g Granularity) PeriodLabel(t time.Time) string {
	start := g.PeriodStart(t)
	switch g {
	case GranularityWeek:
		return start.Format(time.DateOnly) + "/" + start.AddDate(0, 0, 6).Format(time.DateOnly)
	case GranularityMonth:
		return start.Format("2006-01")
	case GranularityQuarter:
		return fmt.Sprintf("%dQ%d", start.Year(), (int(start.Month())-1)/3+1)
	case GranularityYear:
		return start.Format("2006")
	}
	return start.Format(time.DateOnly)
}
