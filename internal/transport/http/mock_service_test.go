package http

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// MockAnalyticsService is a testify mock of AnalyticsService
type MockAnalyticsService struct {
	mock.Mock
}

var _ AnalyticsService = (*MockAnalyticsService)(nil)

func (m *MockAnalyticsService) Summary(ctx context.Context, filters domain.FilterSpec) (apiv1.SummaryResponse, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(apiv1.SummaryResponse), args.Error(1)
}

func (m *MockAnalyticsService) SpendByPeriod(ctx context.Context, filters domain.FilterSpec, g domain.Granularity) (apiv1.PeriodResponse, error) {
	args := m.Called(ctx, filters, g)
	return args.Get(0).(apiv1.PeriodResponse), args.Error(1)
}

func (m *MockAnalyticsService) SpendByDimension(ctx context.Context, filters domain.FilterSpec, d domain.Dimension) (domain.RankedSeries, error) {
	args := m.Called(ctx, filters, d)
	return args.Get(0).(domain.RankedSeries), args.Error(1)
}

func (m *MockAnalyticsService) TopEntities(ctx context.Context, filters domain.FilterSpec, d domain.Dimension, n int) (domain.RankedSeries, error) {
	args := m.Called(ctx, filters, d, n)
	return args.Get(0).(domain.RankedSeries), args.Error(1)
}

func (m *MockAnalyticsService) Concentration(ctx context.Context, filters domain.FilterSpec, n int) (domain.Concentration, error) {
	args := m.Called(ctx, filters, n)
	return args.Get(0).(domain.Concentration), args.Error(1)
}

func (m *MockAnalyticsService) EntityMetrics(ctx context.Context, filters domain.FilterSpec, d domain.Dimension) ([]domain.EntityMetrics, error) {
	args := m.Called(ctx, filters, d)
	return args.Get(0).([]domain.EntityMetrics), args.Error(1)
}

func (m *MockAnalyticsService) POMetrics(ctx context.Context, filters domain.FilterSpec) (domain.POMetrics, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(domain.POMetrics), args.Error(1)
}

func (m *MockAnalyticsService) CategoryMetrics(ctx context.Context, filters domain.FilterSpec) ([]domain.CategoryMetric, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]domain.CategoryMetric), args.Error(1)
}

func (m *MockAnalyticsService) GeographicMetrics(ctx context.Context, filters domain.FilterSpec) ([]domain.GeoMetric, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]domain.GeoMetric), args.Error(1)
}

func (m *MockAnalyticsService) RegionSummaries(ctx context.Context, filters domain.FilterSpec) ([]domain.RegionSummary, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]domain.RegionSummary), args.Error(1)
}

func (m *MockAnalyticsService) Consolidation(ctx context.Context, filters domain.FilterSpec, minSuppliers int, minSpend, ratePct float64) ([]domain.ConsolidationOpportunity, error) {
	args := m.Called(ctx, filters, minSuppliers, minSpend, ratePct)
	return args.Get(0).([]domain.ConsolidationOpportunity), args.Error(1)
}

func (m *MockAnalyticsService) SupplierBreakdown(ctx context.Context, filters domain.FilterSpec, subcategory string) ([]domain.SupplierShare, error) {
	args := m.Called(ctx, filters, subcategory)
	return args.Get(0).([]domain.SupplierShare), args.Error(1)
}

func (m *MockAnalyticsService) MultiDimension(ctx context.Context, filters domain.FilterSpec, primary, secondary domain.Dimension, onlyMulti bool) ([]domain.MultiDimensionMember, error) {
	args := m.Called(ctx, filters, primary, secondary, onlyMulti)
	return args.Get(0).([]domain.MultiDimensionMember), args.Error(1)
}

func (m *MockAnalyticsService) SearchSuppliers(ctx context.Context, query string) ([]string, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAnalyticsService) BuildReport(ctx context.Context, opts exporter.ReportOptions) (*domain.Report, error) {
	args := m.Called(ctx, opts)
	report, _ := args.Get(0).(*domain.Report)
	return report, args.Error(1)
}

func (m *MockAnalyticsService) Export(ctx context.Context, opts exporter.ReportOptions, format, table string, w io.Writer) (services.ExportFile, error) {
	args := m.Called(ctx, opts, format, table, w)
	return args.Get(0).(services.ExportFile), args.Error(1)
}

func (m *MockAnalyticsService) Replace(ctx context.Context, name string, r io.Reader) (apiv1.UploadResponse, error) {
	args := m.Called(ctx, name, r)
	return args.Get(0).(apiv1.UploadResponse), args.Error(1)
}
