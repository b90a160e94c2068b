package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/cache"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/dataprocessing"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/events"
)

const (
	warnNoDataRows = "file contains a header but no data rows"
	tracerName     = "github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
)

// DatasetLoader reads purchase-order sources. *dataprocessing.Loader
// satisfies it.
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*domain.Dataset, error)
	LoadReader(ctx context.Context, name string, r io.Reader) (*domain.Dataset, error)
}

// EventPublisher pushes dataset lifecycle events to dashboard clients
type EventPublisher interface {
	PublishDatasetEvent(ctx context.Context, msgType events.MessageType, event events.DatasetEvent)
}

// UploadArchiver keeps a copy of accepted uploads
type UploadArchiver interface {
	Save(name string, data []byte) (string, error)
}

// DataService owns the active dataset and serves memoized analytics over it
type DataService struct {
	loader   DatasetLoader
	memo     *cache.Memo
	reports  *exporter.ReportBuilder
	analysis config.AnalysisConfig
	logger   *slog.Logger

	metrics   *infrastructure.PipelineMetrics
	tracer    trace.Tracer
	publisher EventPublisher
	archiver  UploadArchiver

	mu     sync.RWMutex
	active *domain.Dataset
}

// Option configures optional DataService collaborators
type Option func(*DataService)

// WithMetrics records load, cache and aggregation metrics
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(s *DataService) { s.metrics = m }
}

// WithTracer sets the tracer used for service spans
func WithTracer(t trace.Tracer) Option {
	return func(s *DataService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithEventPublisher broadcasts dataset:loaded and dataset:replaced events
func WithEventPublisher(p EventPublisher) Option {
	return func(s *DataService) { s.publisher = p }
}

// WithUploadArchiver stores a copy of every accepted upload
func WithUploadArchiver(a UploadArchiver) Option {
	return func(s *DataService) { s.archiver = a }
}

// NewDataService creates a data service. memo and reports are required.
func NewDataService(loader DatasetLoader, memo *cache.Memo, reports *exporter.ReportBuilder, analysis config.AnalysisConfig, logger *slog.Logger, opts ...Option) *DataService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &DataService{
		loader:   loader,
		memo:     memo,
		reports:  reports,
		analysis: analysis,
		logger:   infrastructure.WithComponent(logger, "data_service"),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics != nil {
		memo.SetObserver(s.metrics.RecordCacheLookup)
	}

	return s
}

// LoadFile loads the dataset at path and makes it active. A failed load
// leaves the previous dataset in place.
func (s *DataService) LoadFile(ctx context.Context, path string) (*domain.Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.load",
		trace.WithAttributes(attribute.String("source", path)))
	defer span.End()

	start := time.Now()
	ds, err := s.loader.Load(ctx, path)
	s.metrics.RecordDatasetLoad(ctx, "file", time.Since(start), ds.Len(), droppedByReason(ds), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logDataError(ctx, s.logger, "load", "dataset load failed",
			slog.String("source", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.activate(ctx, ds, events.MessageTypeDatasetLoaded)
	return ds, nil
}

// Replace loads an uploaded source and, if it is valid, makes it the active
// dataset.
//
// Sources that fail to parse, or whose data rows were all dropped while
// cleaning, are rejected with an INVALID_UPLOAD error and the active dataset
// is untouched. A source with a header and no data rows is accepted with a
// warning so callers can tell it apart from a failure.
func (s *DataService) Replace(ctx context.Context, name string, r io.Reader) (apiv1.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.replace",
		trace.WithAttributes(attribute.String("source", name)))
	defer span.End()

	data, err := io.ReadAll(r)
	if err != nil {
		return apiv1.UploadResponse{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return apiv1.UploadResponse{}, errors.InvalidUploadError(ErrEmptyUpload)
	}

	start := time.Now()
	ds, err := s.loader.LoadReader(ctx, name, bytes.NewReader(data))
	s.metrics.RecordDatasetLoad(ctx, "upload", time.Since(start), ds.Len(), droppedByReason(ds), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logDataError(ctx, s.logger, "replace", "upload rejected",
			slog.String("source", name),
			slog.String("error", err.Error()))
		return apiv1.UploadResponse{}, errors.InvalidUploadError(err)
	}

	if ds.Report.RowsRead > 0 && ds.Report.RowsKept == 0 {
		err := fmt.Errorf("all %d data rows were dropped while cleaning", ds.Report.RowsRead)
		logDataError(ctx, s.logger, "replace", "upload rejected",
			slog.String("source", name),
			slog.Any("dropped", ds.Report.Dropped))
		return apiv1.UploadResponse{}, errors.InvalidUploadError(err)
	}

	if s.archiver != nil {
		if path, err := s.archiver.Save(name, data); err != nil {
			s.logger.WarnContext(ctx, "failed to archive upload",
				slog.String("source", name),
				slog.String("error", err.Error()))
		} else {
			s.logger.DebugContext(ctx, "upload archived", slog.String("path", path))
		}
	}

	s.activate(ctx, ds, events.MessageTypeDatasetReplaced)

	resp := apiv1.UploadResponse{
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		Summary:     dataprocessing.Summarize(ds),
		LoadReport:  ds.Report,
	}
	if ds.Report.RowsRead == 0 {
		resp.Warning = warnNoDataRows
	}
	return resp, nil
}

// activate publishes ds as the active dataset and drops memoized results of
// the one it replaces
func (s *DataService) activate(ctx context.Context, ds *domain.Dataset, msgType events.MessageType) {
	s.mu.Lock()
	previous := s.active
	s.active = ds
	s.mu.Unlock()

	event := events.DatasetEvent{
		Source:      ds.Source,
		Fingerprint: ds.Fingerprint,
		Records:     ds.Len(),
		DroppedRows: ds.Report.TotalDropped(),
	}

	if previous != nil && previous.Fingerprint != ds.Fingerprint {
		removed := s.memo.InvalidateFingerprint(previous.Fingerprint)
		event.PreviousHash = previous.Fingerprint
		s.logger.InfoContext(ctx, "dataset replaced",
			slog.String("previous_fingerprint", previous.Fingerprint),
			slog.String("fingerprint", ds.Fingerprint),
			slog.Int("cache_entries_dropped", removed))
	}

	s.logger.InfoContext(ctx, "dataset active",
		slog.String("source", ds.Source),
		slog.Int("rows", ds.Len()),
		slog.Int("dropped", ds.Report.TotalDropped()),
		slog.String("kept", keptShare(ds.Report)),
		slog.String("fingerprint", ds.Fingerprint))

	if s.publisher != nil {
		s.publisher.PublishDatasetEvent(ctx, msgType, event)
	}
}

func keptShare(r domain.LoadReport) string {
	if r.RowsRead == 0 {
		return exporter.FormatPercentage(0)
	}
	return exporter.FormatPercentage(float64(r.RowsKept) / float64(r.RowsRead) * 100)
}

// Dataset returns the active dataset or ErrNoData
func (s *DataService) Dataset() (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, ErrNoData
	}
	return s.active, nil
}

// HasData reports whether a dataset has been loaded
func (s *DataService) HasData() bool {
	_, err := s.Dataset()
	return err == nil
}

// CacheStats returns the memo counters
func (s *DataService) CacheStats() cache.Stats {
	return s.memo.Stats()
}

// view returns the active dataset narrowed by spec. Filtered views are
// memoized like any other result.
func (s *DataService) view(ctx context.Context, spec domain.FilterSpec) (*domain.Dataset, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	if spec.IsEmpty() {
		return ds, nil
	}
	return memoized(ctx, s, "filter", ds, spec.Key(), func() (*domain.Dataset, error) {
		return dataprocessing.Filter(ds, spec), nil
	})
}

// memoized runs compute under a span, serving it from the memo when the
// same operation was already computed for ds with equal params
func memoized[T any](ctx context.Context, s *DataService, op string, ds *domain.Dataset, params any, compute func() (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "analytics."+op,
		trace.WithAttributes(
			attribute.String("fingerprint", ds.Fingerprint),
			attribute.Int("records", ds.Len())))
	defer span.End()

	result, err := cache.DoScoped(ctx, s.memo, ds.RootFingerprint(), op, ds.Fingerprint, params, func() (T, error) {
		start := time.Now()
		v, err := compute()
		s.metrics.RecordAggregation(ctx, op, time.Since(start))
		return v, err
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return result, err
}

func droppedByReason(ds *domain.Dataset) map[string]int {
	if ds == nil {
		return nil
	}
	out := make(map[string]int, len(ds.Report.Dropped))
	for reason, n := range ds.Report.Dropped {
		out[string(reason)] = n
	}
	return out
}
