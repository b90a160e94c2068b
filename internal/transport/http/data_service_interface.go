package http

import (
	"context"
	"io"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// AnalyticsService is the part of services.DataService the handlers use
type AnalyticsService interface {
	Summary(ctx context.Context, filters domain.FilterSpec) (apiv1.SummaryResponse, error)
	SpendByPeriod(ctx context.Context, filters domain.FilterSpec, g domain.Granularity) (apiv1.PeriodResponse, error)
	SpendByDimension(ctx context.Context, filters domain.FilterSpec, d domain.Dimension) (domain.RankedSeries, error)
	TopEntities(ctx context.Context, filters domain.FilterSpec, d domain.Dimension, n int) (domain.RankedSeries, error)
	Concentration(ctx context.Context, filters domain.FilterSpec, n int) (domain.Concentration, error)
	EntityMetrics(ctx context.Context, filters domain.FilterSpec, d domain.Dimension) ([]domain.EntityMetrics, error)
	POMetrics(ctx context.Context, filters domain.FilterSpec) (domain.POMetrics, error)
	CategoryMetrics(ctx context.Context, filters domain.FilterSpec) ([]domain.CategoryMetric, error)
	GeographicMetrics(ctx context.Context, filters domain.FilterSpec) ([]domain.GeoMetric, error)
	RegionSummaries(ctx context.Context, filters domain.FilterSpec) ([]domain.RegionSummary, error)
	Consolidation(ctx context.Context, filters domain.FilterSpec, minSuppliers int, minSpend, ratePct float64) ([]domain.ConsolidationOpportunity, error)
	SupplierBreakdown(ctx context.Context, filters domain.FilterSpec, subcategory string) ([]domain.SupplierShare, error)
	MultiDimension(ctx context.Context, filters domain.FilterSpec, primary, secondary domain.Dimension, onlyMulti bool) ([]domain.MultiDimensionMember, error)
	SearchSuppliers(ctx context.Context, query string) ([]string, error)

	BuildReport(ctx context.Context, opts exporter.ReportOptions) (*domain.Report, error)
	Export(ctx context.Context, opts exporter.ReportOptions, format, table string, w io.Writer) (services.ExportFile, error)
	Replace(ctx context.Context, name string, r io.Reader) (apiv1.UploadResponse, error)
}

var _ AnalyticsService = (*services.DataService)(nil)
