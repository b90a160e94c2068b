package api

import (
	"time"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// SummaryResponse is returned by the summary endpoint
type SummaryResponse struct {
	Summary     domain.Summary    `json:"summary"`
	DateRange   DateRange         `json:"date_range"`
	Display     SummaryDisplay    `json:"display"`
	LoadReport  domain.LoadReport `json:"load_report"`
	Source      string            `json:"source"`
	Fingerprint string            `json:"fingerprint"`
}

// DateRange is the period a filtered view covers. Unset filter bounds fall
// back to the first and last order date in the view.
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// SummaryDisplay holds the headline figures formatted for KPI cards
type SummaryDisplay struct {
	TotalSpend string `json:"total_spend"`
	Records    string `json:"records"`
	Suppliers  string `json:"suppliers"`
	AvgLine    string `json:"avg_line_value"`
}

// PeriodResponse pairs a period series with its trend statistics
type PeriodResponse struct {
	Granularity domain.Granularity  `json:"granularity"`
	Series      domain.PeriodSeries `json:"series"`
	Trend       *domain.TrendStats  `json:"trend,omitempty"`
}

// UploadResponse is returned after a dataset upload. Warning is set when the
// file had a header but no data rows.
type UploadResponse struct {
	Source      string            `json:"source"`
	Fingerprint string            `json:"fingerprint"`
	Summary     domain.Summary    `json:"summary"`
	LoadReport  domain.LoadReport `json:"load_report"`
	Warning     string            `json:"warning,omitempty"`
}
