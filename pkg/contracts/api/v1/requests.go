// Package api contains the HTTP API contract definitions.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// DateLayout is the layout of every date accepted by the API
const DateLayout = "2006-01-02"

// FilterRequest carries the filter query parameters shared by every analytics endpoint
type FilterRequest struct {
	Start         string   `json:"start,omitempty" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End           string   `json:"end,omitempty" query:"end" validate:"omitempty,datetime=2006-01-02"`
	Categories    []string `json:"categories,omitempty" query:"category" validate:"omitempty,dive,max=256"`
	SubCategories []string `json:"subcategories,omitempty" query:"subcategory" validate:"omitempty,dive,max=256"`
	States        []string `json:"states,omitempty" query:"state" validate:"omitempty,dive,max=64"`
	Cities        []string `json:"cities,omitempty" query:"city" validate:"omitempty,dive,max=256"`
	Suppliers     []string `json:"suppliers,omitempty" query:"supplier" validate:"omitempty,dive,max=256"`
	Statuses      []string `json:"statuses,omitempty" query:"status" validate:"omitempty,dive,max=64"`
}

// ToFilterSpec converts the request into the domain filter
func (f FilterRequest) ToFilterSpec() (domain.FilterSpec, error) {
	spec := domain.FilterSpec{
		Categories:     f.Categories,
		SubCategories:  f.SubCategories,
		SupplierStates: upperAll(f.States),
		SupplierCities: f.Cities,
		Suppliers:      f.Suppliers,
		POStatuses:     f.Statuses,
	}

	if f.Start != "" {
		start, err := time.Parse(DateLayout, f.Start)
		if err != nil {
			return spec, fmt.Errorf("%w: start: %v", domain.ErrInvalidParameter, err)
		}
		spec.Start = &start
	}
	if f.End != "" {
		end, err := time.Parse(DateLayout, f.End)
		if err != nil {
			return spec, fmt.Errorf("%w: end: %v", domain.ErrInvalidParameter, err)
		}
		spec.End = &end
	}

	return spec, nil
}

// supplier states are stored upper-cased
func upperAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}

// ReportRequest builds a report, optionally for export
type ReportRequest struct {
	Type         string        `json:"type" validate:"required,oneof=executive_summary supplier_analysis category_analysis geographic_analysis consolidation custom"`
	Filters      FilterRequest `json:"filters"`
	Columns      []string      `json:"columns,omitempty" validate:"omitempty,dive,report_column"`
	GroupBy      []string      `json:"group_by,omitempty" validate:"omitempty,dive,report_column"`
	MinSuppliers int           `json:"min_suppliers,omitempty" validate:"omitempty,min=1"`
	MinSpend     float64       `json:"min_spend,omitempty" validate:"omitempty,min=0"`
	RatePct      float64       `json:"rate,omitempty" validate:"omitempty,min=0,max=100"`
}

// ReportColumns are the column identifiers accepted by custom reports
var ReportColumns = []string{
	"po_number", "order_date", "supplier", "supplier_state", "supplier_city",
	"ship_to_state", "category", "subcategory", "amount", "po_status",
	"year", "month", "quarter",
}

// IsReportColumn reports whether name is a custom report column
func IsReportColumn(name string) bool {
	for _, c := range ReportColumns {
		if c == name {
			return true
		}
	}
	return false
}
