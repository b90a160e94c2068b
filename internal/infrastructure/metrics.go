package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the instruments recorded by the HTTP layer and the
// dataset service
type PipelineMetrics struct {
	// HTTP
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset loading
	DatasetLoadsTotal   metric.Int64Counter
	DatasetLoadDuration metric.Float64Histogram
	DatasetRowsDropped  metric.Int64Counter
	DatasetRecords      metric.Int64Gauge

	// Aggregations and memoization
	AggregationDuration metric.Float64Histogram
	CacheHits           metric.Int64Counter
	CacheMisses         metric.Int64Counter

	// Exports
	ExportsTotal   metric.Int64Counter
	ExportDuration metric.Float64Histogram
}

// NewPipelineMetrics registers every pipeline instrument on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	add(err)
	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s"))
	add(err)
	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"))
	add(err)

	m.DatasetLoadsTotal, err = meter.Int64Counter("dataset_loads_total",
		metric.WithDescription("Dataset load attempts by source kind and outcome"))
	add(err)
	m.DatasetLoadDuration, err = meter.Float64Histogram("dataset_load_duration_seconds",
		metric.WithDescription("Time spent parsing and cleaning a purchase-order source"), metric.WithUnit("s"))
	add(err)
	m.DatasetRowsDropped, err = meter.Int64Counter("dataset_rows_dropped_total",
		metric.WithDescription("Rows dropped while loading, by reason"))
	add(err)
	m.DatasetRecords, err = meter.Int64Gauge("dataset_records",
		metric.WithDescription("Records in the active dataset"))
	add(err)

	m.AggregationDuration, err = meter.Float64Histogram("aggregation_duration_seconds",
		metric.WithDescription("Aggregation compute time, cache misses only"), metric.WithUnit("s"))
	add(err)
	m.CacheHits, err = meter.Int64Counter("aggregation_cache_hits_total",
		metric.WithDescription("Memoized aggregation results served from cache"))
	add(err)
	m.CacheMisses, err = meter.Int64Counter("aggregation_cache_misses_total",
		metric.WithDescription("Aggregation requests that had to be computed"))
	add(err)

	m.ExportsTotal, err = meter.Int64Counter("exports_total",
		metric.WithDescription("Report exports by format and outcome"))
	add(err)
	m.ExportDuration, err = meter.Float64Histogram("export_duration_seconds",
		metric.WithDescription("Report export generation time"), metric.WithUnit("s"))
	add(err)

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", errors.Join(errs...))
	}
	return m, nil
}

// RecordDatasetLoad records a load attempt. dropped maps drop reasons to counts.
func (m *PipelineMetrics) RecordDatasetLoad(ctx context.Context, kind string, duration time.Duration, records int, dropped map[string]int, err error) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("source.kind", kind),
		attribute.String("status", outcome(err)),
	)
	m.DatasetLoadsTotal.Add(ctx, 1, attrs)
	m.DatasetLoadDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		return
	}
	m.DatasetRecords.Record(ctx, int64(records))
	for reason, n := range dropped {
		if n > 0 {
			m.DatasetRowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
		}
	}
}

// RecordCacheLookup counts a memo hit or miss for an aggregation
func (m *PipelineMetrics) RecordCacheLookup(ctx context.Context, operation string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
	} else {
		m.CacheMisses.Add(ctx, 1, attrs)
	}
}

// RecordAggregation records how long a computed aggregation took
func (m *PipelineMetrics) RecordAggregation(ctx context.Context, operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AggregationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordExport records a report export
func (m *PipelineMetrics) RecordExport(ctx context.Context, format string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("status", outcome(err)),
	)
	m.ExportsTotal.Add(ctx, 1, attrs)
	m.ExportDuration.Record(ctx, duration.Seconds(), attrs)
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
