package services

import (
	"context"
	"fmt"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/dataprocessing"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

func checkDimension(d domain.Dimension) error {
	if !d.Valid() {
		return fmt.Errorf("%w: unknown dimension %q", domain.ErrInvalidParameter, d)
	}
	return nil
}

func summaryDisplay(s domain.Summary) apiv1.SummaryDisplay {
	avg := 0.0
	if s.TotalRecords > 0 {
		avg = s.TotalSpend / float64(s.TotalRecords)
	}
	return apiv1.SummaryDisplay{
		TotalSpend: exporter.FormatCurrency(s.TotalSpend),
		Records:    exporter.FormatNumber(int64(s.TotalRecords)),
		Suppliers:  exporter.FormatNumber(int64(s.UniqueSuppliers)),
		AvgLine:    exporter.FormatCurrency(avg),
	}
}

// Summary returns dataset statistics for the filtered view together with the
// load report of the active source
func (s *DataService) Summary(ctx context.Context, filters domain.FilterSpec) (apiv1.SummaryResponse, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return apiv1.SummaryResponse{}, err
	}

	summary, err := memoized(ctx, s, "summary", ds, nil, func() (domain.Summary, error) {
		return dataprocessing.Summarize(ds), nil
	})
	if err != nil {
		return apiv1.SummaryResponse{}, err
	}

	start, end := dataprocessing.DateRange(ds, filters)

	return apiv1.SummaryResponse{
		Summary:     summary,
		DateRange:   apiv1.DateRange{Start: start, End: end},
		Display:     summaryDisplay(summary),
		LoadReport:  ds.Report,
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
	}, nil
}

// SpendByPeriod returns the period series and, when it has at least two
// periods, its trend statistics
func (s *DataService) SpendByPeriod(ctx context.Context, filters domain.FilterSpec, g domain.Granularity) (apiv1.PeriodResponse, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return apiv1.PeriodResponse{}, err
	}

	series, err := memoized(ctx, s, "spend_by_period", ds, g, func() (domain.PeriodSeries, error) {
		return dataprocessing.SpendByPeriod(ds, g), nil
	})
	if err != nil {
		return apiv1.PeriodResponse{}, err
	}

	resp := apiv1.PeriodResponse{Granularity: g, Series: series}
	if stats, ok := dataprocessing.TrendStats(series.Values()); ok {
		resp.Trend = &stats
	}
	return resp, nil
}

// SpendByDimension returns the full group-by of a dimension
func (s *DataService) SpendByDimension(ctx context.Context, filters domain.FilterSpec, d domain.Dimension) (domain.RankedSeries, error) {
	if err := checkDimension(d); err != nil {
		return nil, err
	}
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	return memoized(ctx, s, "spend_by_dimension", ds, d, func() (domain.RankedSeries, error) {
		return dataprocessing.SpendByDimension(ds, d), nil
	})
}

// TopEntities returns the n largest groups of a dimension
func (s *DataService) TopEntities(ctx context.Context, filters domain.FilterSpec, d domain.Dimension, n int) (domain.RankedSeries, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	params := map[string]any{"dimension": d, "n": n}
	return memoized(ctx, s, "top_entities", ds, params, func() (domain.RankedSeries, error) {
		return dataprocessing.TopEntities(ds, d, n)
	})
}

// Concentration returns the share of spend held by the top n suppliers
func (s *DataService) Concentration(ctx context.Context, filters domain.FilterSpec, n int) (domain.Concentration, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return domain.Concentration{}, err
	}
	return memoized(ctx, s, "concentration", ds, n, func() (domain.Concentration, error) {
		return dataprocessing.Concentration(ds, n)
	})
}

// EntityMetrics returns spend, PO and category counts per entity
func (s *DataService) EntityMetrics(ctx context.Context, filters domain.FilterSpec, d domain.Dimension) ([]domain.EntityMetrics, error) {
	if err := checkDimension(d); err != nil {
		return nil, err
	}
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	return memoized(ctx, s, "entity_metrics", ds, d, func() ([]domain.EntityMetrics, error) {
		return dataprocessing.EntityMetrics(ds, d), nil
	})
}

// POMetrics returns purchase-order value and status statistics
func (s *DataService) POMetrics(ctx context.Context, filters domain.FilterSpec) (domain.POMetrics, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return domain.POMetrics{}, err
	}
	return memoized(ctx, s, "po_metrics", ds, nil, func() (domain.POMetrics, error) {
		return dataprocessing.POMetrics(ds), nil
	})
}

// CategoryMetrics returns per-category statistics
func (s *DataService) CategoryMetrics(ctx context.Context, filters domain.FilterSpec) ([]domain.CategoryMetric, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	return memoized(ctx, s, "category_metrics", ds, nil, func() ([]domain.CategoryMetric, error) {
		return dataprocessing.CategoryMetrics(ds), nil
	})
}

// GeographicMetrics returns per-state statistics
func (s *DataService) GeographicMetrics(ctx context.Context, filters domain.FilterSpec) ([]domain.GeoMetric, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	return memoized(ctx, s, "geographic_metrics", ds, nil, func() ([]domain.GeoMetric, error) {
		return dataprocessing.GeographicMetrics(ds), nil
	})
}

// RegionSummaries groups supplier states into regions
func (s *DataService) RegionSummaries(ctx context.Context, filters domain.FilterSpec) ([]domain.RegionSummary, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	return memoized(ctx, s, "region_summaries", ds, nil, func() ([]domain.RegionSummary, error) {
		return dataprocessing.RegionSummaries(ds), nil
	})
}

// Consolidation returns consolidation opportunities. Zero thresholds and
// rate fall back to the configured analysis defaults.
func (s *DataService) Consolidation(ctx context.Context, filters domain.FilterSpec, minSuppliers int, minSpend, ratePct float64) ([]domain.ConsolidationOpportunity, error) {
	if minSuppliers < 0 || minSpend < 0 || ratePct < 0 || ratePct > 100 {
		return nil, fmt.Errorf("%w: consolidation thresholds must be non-negative and rate at most 100", domain.ErrInvalidParameter)
	}
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}

	params := s.reports.ConsolidationParams(minSuppliers, minSpend, ratePct)
	return memoized(ctx, s, "consolidation", ds, params, func() ([]domain.ConsolidationOpportunity, error) {
		return dataprocessing.ConsolidationOpportunities(ds, params), nil
	})
}

// SupplierBreakdown returns each supplier's share of a subcategory
func (s *DataService) SupplierBreakdown(ctx context.Context, filters domain.FilterSpec, subcategory string) ([]domain.SupplierShare, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}
	return memoized(ctx, s, "supplier_breakdown", ds, subcategory, func() ([]domain.SupplierShare, error) {
		return dataprocessing.SupplierBreakdown(ds, subcategory), nil
	})
}

// MultiDimension lists the distinct secondary values each primary entity
// spans. With onlyMulti, entities spanning a single value are omitted.
func (s *DataService) MultiDimension(ctx context.Context, filters domain.FilterSpec, primary, secondary domain.Dimension, onlyMulti bool) ([]domain.MultiDimensionMember, error) {
	ds, err := s.view(ctx, filters)
	if err != nil {
		return nil, err
	}

	params := map[string]any{"primary": primary, "secondary": secondary}
	members, err := memoized(ctx, s, "multi_dimension", ds, params, func() ([]domain.MultiDimensionMember, error) {
		return dataprocessing.MultiDimensionMembers(ds, primary, secondary)
	})
	if err != nil {
		return nil, err
	}
	if onlyMulti {
		return dataprocessing.FilterMulti(members), nil
	}
	return members, nil
}

// SearchSuppliers matches supplier names in the unfiltered dataset
func (s *DataService) SearchSuppliers(ctx context.Context, query string) ([]string, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return dataprocessing.SearchSuppliers(ds, query), nil
}
