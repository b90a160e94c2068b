// Package exporter turns analytics results into report tables and writes
// them as CSV or Excel workbooks.
//
// ReportBuilder produces a domain.Report, a set of named tables, for one
// of the canned report types or a custom column selection. Cells carry raw
// values; formatting to text happens only when a table is written.
//
// Example usage:
//
//	builder := exporter.NewReportBuilder(logger, cfg.Analysis, cfg.Data.MaxExportRows)
//	report, err := builder.Build(ctx, ds, exporter.ReportOptions{Type: domain.ReportExecutiveSummary})
//
//	// One CSV per table
//	err = exporter.WriteCSV(w, report.Tables[0], exporter.CSVOptions{BOM: true})
//
//	// Or every table in one workbook
//	err = exporter.WriteWorkbook(w, report.Tables)
package exporter
