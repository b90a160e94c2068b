package domain

import (
	"fmt"
	"time"
)

// ReportType selects a canned report
type ReportType string

const (
	ReportExecutiveSummary   ReportType = "executive_summary"
	ReportSupplierAnalysis   ReportType = "supplier_analysis"
	ReportCategoryAnalysis   ReportType = "category_analysis"
	ReportGeographicAnalysis ReportType = "geographic_analysis"
	ReportConsolidation      ReportType = "consolidation"
	ReportCustom             ReportType = "custom"
)

// ReportTypes lists every report type
var ReportTypes = []ReportType{
	ReportExecutiveSummary,
	ReportSupplierAnalysis,
	ReportCategoryAnalysis,
	ReportGeographicAnalysis,
	ReportConsolidation,
	ReportCustom,
}

// ParseReportType validates a report type name
func ParseReportType(s string) (ReportType, error) {
	for _, t := range ReportTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown report type %q", ErrInvalidParameter, s)
}

// Table is a named rectangular result ready for export. Cells hold raw
// values (string, int, float64, time.Time), never pre-formatted numbers.
type Table struct {
	Name    string          `json:"name"`
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// AddRow appends one row
func (t *Table) AddRow(values ...interface{}) {
	t.Rows = append(t.Rows, values)
}

// Report is a set of tables produced for one report request
type Report struct {
	ID          string     `json:"id"`
	Type        ReportType `json:"type"`
	GeneratedAt time.Time  `json:"generated_at"`
	Filters     FilterSpec `json:"filters"`
	Records     int        `json:"records"`
	Tables      []Table    `json:"tables"`
}
