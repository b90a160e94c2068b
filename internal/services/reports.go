package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportFile describes a written export
type ExportFile struct {
	Filename    string
	ContentType string
	Tables      int
}

// BuildReport builds a report over the active dataset
func (s *DataService) BuildReport(ctx context.Context, opts exporter.ReportOptions) (*domain.Report, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "report.build",
		trace.WithAttributes(attribute.String("report.type", string(opts.Type))))
	defer span.End()

	report, err := s.reports.Build(ctx, ds, opts)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	return report, nil
}

// Export builds a report and writes it to w. Workbooks carry every table as
// a sheet; CSV carries the single table selected by table, which may be a
// table name or a zero-based index and defaults to the first table.
func (s *DataService) Export(ctx context.Context, opts exporter.ReportOptions, format, table string, w io.Writer) (ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return ExportFile{}, fmt.Errorf("%w: %w %q", domain.ErrInvalidParameter, ErrUnsupportedFormat, format)
	}

	report, err := s.BuildReport(ctx, opts)
	if err != nil {
		return ExportFile{}, err
	}

	start := time.Now()
	file, err := writeExport(report, format, table, w)
	s.metrics.RecordExport(ctx, format, time.Since(start), err)
	if err != nil {
		logDataError(ctx, s.logger, "export", "export failed",
			slog.String("report_id", report.ID),
			slog.String("format", format),
			slog.String("error", err.Error()))
		return ExportFile{}, err
	}

	s.logger.InfoContext(ctx, "report exported",
		slog.String("report_id", report.ID),
		slog.String("type", string(report.Type)),
		slog.String("format", format),
		slog.Int("tables", file.Tables),
		slog.Duration("duration", time.Since(start)))

	return file, nil
}

func writeExport(report *domain.Report, format, table string, w io.Writer) (ExportFile, error) {
	base := fmt.Sprintf("%s_%s", report.Type, report.GeneratedAt.Format("20060102_150405"))

	if format == FormatXLSX {
		if err := exporter.WriteWorkbook(w, report.Tables); err != nil {
			return ExportFile{}, err
		}
		return ExportFile{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Tables:      len(report.Tables),
		}, nil
	}

	t, err := selectTable(report.Tables, table)
	if err != nil {
		return ExportFile{}, err
	}
	if err := exporter.WriteCSV(w, t, exporter.CSVOptions{BOM: true}); err != nil {
		return ExportFile{}, err
	}
	return ExportFile{
		Filename:    base + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Tables:      1,
	}, nil
}

func selectTable(tables []domain.Table, selector string) (domain.Table, error) {
	if len(tables) == 0 {
		return domain.Table{}, fmt.Errorf("%w: report has no tables", ErrTableNotFound)
	}
	if selector == "" {
		return tables[0], nil
	}
	if i, err := strconv.Atoi(selector); err == nil {
		if i < 0 || i >= len(tables) {
			return domain.Table{}, fmt.Errorf("%w: index %d of %d", ErrTableNotFound, i, len(tables))
		}
		return tables[i], nil
	}
	for _, t := range tables {
		if strings.EqualFold(t.Name, selector) {
			return t, nil
		}
	}
	return domain.Table{}, fmt.Errorf("%w: %q", ErrTableNotFound, selector)
}
