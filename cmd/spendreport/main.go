// Command spendreport builds a spend report from a purchase-order file and
// writes it as CSV or XLSX without starting the dashboard.
//
//	spendreport -input data/PO_Data.csv -report supplier_analysis -format xlsx
//	spendreport -report custom -columns supplier,amount -state TX -output -
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/cache"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/dataprocessing"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/files"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/validation"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts"
	apiv1 "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/api/v1"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// stdoutTarget sends the export to stdout instead of a file
const stdoutTarget = "-"

// listFlag collects a flag that may be repeated or comma separated
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(value string) error {
	*l = append(*l, domain.SplitValues(value)...)
	return nil
}

type options struct {
	input        string
	output       string
	report       string
	format       string
	table        string
	filters      apiv1.FilterRequest
	columns      listFlag
	groupBy      listFlag
	minSuppliers int
	minSpend     float64
	rate         float64
	version      bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Report generation failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var opts options
	var categories, subcategories, states, cities, suppliers, statuses listFlag

	fs := flag.NewFlagSet("spendreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "input", cfg.Data.Path, "purchase-order source (.csv or .xlsx)")
	fs.StringVar(&opts.output, "output", "", "output file, \"-\" for stdout (defaults to the reports directory)")
	fs.StringVar(&opts.report, "report", string(domain.ReportExecutiveSummary), "report type")
	fs.StringVar(&opts.format, "format", services.FormatCSV, "export format (csv or xlsx)")
	fs.StringVar(&opts.table, "table", "", "table name or index for CSV exports")
	fs.StringVar(&opts.filters.Start, "start", "", "first order date (YYYY-MM-DD)")
	fs.StringVar(&opts.filters.End, "end", "", "last order date (YYYY-MM-DD)")
	fs.Var(&categories, "category", "category filter (repeatable)")
	fs.Var(&subcategories, "subcategory", "subcategory filter (repeatable)")
	fs.Var(&states, "state", "supplier state filter (repeatable)")
	fs.Var(&cities, "city", "supplier city filter (repeatable)")
	fs.Var(&suppliers, "supplier", "supplier filter (repeatable)")
	fs.Var(&statuses, "status", "PO status filter (repeatable)")
	fs.Var(&opts.columns, "columns", "custom report columns")
	fs.Var(&opts.groupBy, "group-by", "custom report grouping columns")
	fs.IntVar(&opts.minSuppliers, "min-suppliers", 0, "consolidation: minimum suppliers per subcategory")
	fs.Float64Var(&opts.minSpend, "min-spend", 0, "consolidation: minimum subcategory spend")
	fs.Float64Var(&opts.rate, "rate", 0, "consolidation: assumed savings rate in percent")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	opts.filters.Categories = categories
	opts.filters.SubCategories = subcategories
	opts.filters.States = states
	opts.filters.Cities = cities
	opts.filters.Suppliers = suppliers
	opts.filters.Statuses = statuses
	opts.format = strings.ToLower(opts.format)

	if opts.format != services.FormatCSV && opts.format != services.FormatXLSX {
		return opts, fmt.Errorf("unsupported format %q", opts.format)
	}
	if opts.minSuppliers < 0 || opts.minSpend < 0 || opts.rate < 0 || opts.rate > 100 {
		return opts, fmt.Errorf("consolidation thresholds out of range")
	}
	return opts, nil
}

func (o options) reportOptions() (exporter.ReportOptions, error) {
	reportType, err := domain.ParseReportType(o.report)
	if err != nil {
		return exporter.ReportOptions{}, err
	}
	spec, err := o.filters.ToFilterSpec()
	if err != nil {
		return exporter.ReportOptions{}, err
	}
	return exporter.ReportOptions{
		Type:         reportType,
		Filters:      spec,
		Columns:      o.columns,
		GroupBy:      o.groupBy,
		MinSuppliers: o.minSuppliers,
		MinSpend:     o.minSpend,
		RatePct:      o.rate,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		_, err := fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return err
	}
	reportOpts, err := opts.reportOptions()
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()
	ctx = infrastructure.EnsureTraceID(ctx)

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}

	validator := validation.NewFileValidator(logger)
	input := opts.input
	if !config.FileExists(input) {
		input = paths.ResolveDataPath(input)
	}
	if err := validator.ValidateSource(input); err != nil {
		return err
	}
	if opts.output != "" && opts.output != stdoutTarget {
		if err := validator.ValidateOutputFile(opts.output, opts.format); err != nil {
			return err
		}
	}

	memo := cache.New(cfg.Cache)
	defer memo.Stop()

	svc := services.NewDataService(
		dataprocessing.NewLoader(logger, cfg.Data),
		memo,
		exporter.NewReportBuilder(logger, cfg.Analysis, cfg.Data.MaxExportRows),
		cfg.Analysis,
		logger,
	)

	ds, err := svc.LoadFile(ctx, input)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", ds.Source),
		slog.Int("records", ds.Len()),
		slog.Int("dropped", ds.Report.TotalDropped()))

	var buf bytes.Buffer
	file, err := svc.Export(ctx, reportOpts, opts.format, opts.table, &buf)
	if err != nil {
		return err
	}

	switch opts.output {
	case stdoutTarget:
		_, err = buf.WriteTo(stdout)
		return err
	case "":
		if err := paths.EnsureDirectories(); err != nil {
			return err
		}
		path, err := files.NewManager(paths, logger).SaveReport(file.Filename, buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	default:
		path, err := filepath.Abs(opts.output)
		if err != nil {
			return err
		}
		if filepath.Ext(path) == "" {
			path += "." + opts.format
		}
		if err := files.NewManager(paths, logger).WriteFile(path, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	}
}
