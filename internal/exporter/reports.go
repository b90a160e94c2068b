package exporter

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/dataprocessing"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// ReportOptions selects and parameterizes a report. Zero consolidation
// thresholds fall back to the configured analysis defaults.
type ReportOptions struct {
	Type         domain.ReportType
	Filters      domain.FilterSpec
	Columns      []string
	GroupBy      []string
	MinSuppliers int
	MinSpend     float64
	RatePct      float64
}

// ReportBuilder assembles report tables from a dataset
type ReportBuilder struct {
	logger   *slog.Logger
	analysis config.AnalysisConfig
	maxRows  int
}

// NewReportBuilder creates a builder. maxRows caps custom detail reports;
// values below 1 use the default export limit.
func NewReportBuilder(logger *slog.Logger, analysis config.AnalysisConfig, maxRows int) *ReportBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRows < 1 {
		maxRows = config.DefaultMaxExportRows
	}
	return &ReportBuilder{
		logger:   logger.With(slog.String("component", "report_builder")),
		analysis: analysis,
		maxRows:  maxRows,
	}
}

type tableFunc func(ctx context.Context, ds *domain.Dataset) ([]domain.Table, error)

// Build filters ds and produces the tables of the requested report. Tables
// that do not depend on each other are built concurrently.
func (b *ReportBuilder) Build(ctx context.Context, ds *domain.Dataset, opts ReportOptions) (*domain.Report, error) {
	funcs, err := b.plan(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	filtered := dataprocessing.Filter(ds, opts.Filters)

	results := make([][]domain.Table, len(funcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range funcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tables, err := fn(gctx, filtered)
			if err != nil {
				return err
			}
			results[i] = tables
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:          uuid.New().String(),
		Type:        opts.Type,
		GeneratedAt: time.Now().UTC(),
		Filters:     opts.Filters,
		Records:     filtered.Len(),
	}
	for _, tables := range results {
		report.Tables = append(report.Tables, tables...)
	}

	b.logger.InfoContext(ctx, "report built",
		slog.String("report_id", report.ID),
		slog.String("type", string(report.Type)),
		slog.Int("records", report.Records),
		slog.Int("tables", len(report.Tables)),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

func (b *ReportBuilder) plan(opts ReportOptions) ([]tableFunc, error) {
	switch opts.Type {
	case domain.ReportExecutiveSummary:
		return []tableFunc{summaryMetricsTable, topSuppliersTable, categoryBreakdownTable}, nil
	case domain.ReportSupplierAnalysis:
		return []tableFunc{supplierTables}, nil
	case domain.ReportCategoryAnalysis:
		return []tableFunc{categoryMetricsTable, subcategoryTables}, nil
	case domain.ReportGeographicAnalysis:
		return []tableFunc{stateSpendTable, suppliersByStateTable, regionsTable}, nil
	case domain.ReportConsolidation:
		return []tableFunc{b.consolidationTable(opts)}, nil
	case domain.ReportCustom:
		fn, err := b.customTable(opts)
		if err != nil {
			return nil, err
		}
		return []tableFunc{fn}, nil
	}
	return nil, fmt.Errorf("%w: unknown report type %q", dataprocessing.ErrInvalidParameter, opts.Type)
}

func one(t domain.Table) ([]domain.Table, error) {
	return []domain.Table{t}, nil
}

func summaryMetricsTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	s := dataprocessing.Summarize(ds)
	po := dataprocessing.POMetrics(ds)

	t := domain.Table{Name: "Summary Metrics", Columns: []string{"Metric", "Value"}}
	t.AddRow("Total Spend", s.TotalSpend)
	t.AddRow("Suppliers", s.UniqueSuppliers)
	t.AddRow("Purchase Orders", s.TotalRecords)
	t.AddRow("Unique PO Numbers", s.UniquePOs)
	t.AddRow("Avg PO Value", po.AvgPOValue)
	t.AddRow("States", s.UniqueStates)
	t.AddRow("Categories", s.Categories)
	t.AddRow("Date From", s.DateMin)
	t.AddRow("Date To", s.DateMax)
	return one(t)
}

func topSuppliersTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	top, err := dataprocessing.TopEntities(ds, domain.DimensionSupplier, 10)
	if err != nil {
		return nil, err
	}
	return one(rankedTable("Top 10 Suppliers", "Supplier", top, dataprocessing.TotalSpend(ds)))
}

func categoryBreakdownTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	spend := dataprocessing.SpendByDimension(ds, domain.DimensionCategory)
	return one(rankedTable("Category Breakdown", "Category", spend, dataprocessing.TotalSpend(ds)))
}

func rankedTable(name, keyColumn string, series domain.RankedSeries, total decimal.Decimal) domain.Table {
	t := domain.Table{Name: name, Columns: []string{keyColumn, "Total Spend", "% of Total"}}
	for _, e := range series {
		share := 0.0
		if total.Sign() > 0 {
			share = decimal.NewFromFloat(e.Amount).Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		t.AddRow(e.Key, e.Amount, share)
	}
	return t
}

func supplierTables(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	metrics := dataprocessing.EntityMetrics(ds, domain.DimensionSupplier)

	perSupplier := domain.Table{
		Name:    "Supplier Metrics",
		Columns: []string{"Supplier", "Total Spend", "Avg PO Value", "PO Count", "Category Count"},
	}
	for _, m := range metrics {
		perSupplier.AddRow(m.Key, m.TotalSpend, m.AvgPOValue, m.POCount, m.CategoryCount)
	}

	bands := domain.Table{Name: "Spend Distribution", Columns: []string{"Spend Range", "Number of Suppliers"}}
	for _, band := range dataprocessing.SpendDistribution(metrics) {
		bands.AddRow(band.Label, band.Suppliers)
	}
	return []domain.Table{perSupplier, bands}, nil
}

func categoryMetricsTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	t := domain.Table{
		Name:    "Category Metrics",
		Columns: []string{"Category", "Total Spend", "Avg PO Value", "PO Count", "Supplier Count", "Subcategory Count"},
	}
	for _, m := range dataprocessing.CategoryMetrics(ds) {
		t.AddRow(m.Category, m.TotalSpend, m.AvgPOValue, m.POCount, m.SupplierCount, m.SubCategoryCount)
	}
	return one(t)
}

// subcategoryTables breaks down the three largest categories
func subcategoryTables(ctx context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	top, err := dataprocessing.TopEntities(ds, domain.DimensionCategory, 3)
	if err != nil {
		return nil, err
	}

	tables := make([]domain.Table, 0, len(top))
	for _, category := range top.Keys() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scoped := dataprocessing.Filter(ds, domain.FilterSpec{Categories: []string{category}})
		t := domain.Table{Name: "Subcategories - " + category, Columns: []string{"Subcategory", "Total Spend"}}
		for _, e := range dataprocessing.SpendByDimension(scoped, domain.DimensionSubCategory) {
			t.AddRow(e.Key, e.Amount)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func stateSpendTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	t := domain.Table{
		Name:    "State Spend",
		Columns: []string{"State", "Total Spend", "Unique Suppliers", "PO Count", "% of Total Spend"},
	}
	for _, m := range dataprocessing.GeographicMetrics(ds) {
		t.AddRow(m.State, m.TotalSpend, m.UniqueSuppliers, m.POCount, m.PctOfTotal)
	}
	return one(t)
}

func suppliersByStateTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	t := domain.Table{Name: "Suppliers by State", Columns: []string{"State", "Supplier Count"}}
	for _, e := range dataprocessing.SupplierCountByState(ds) {
		t.AddRow(e.Key, int(e.Amount))
	}
	return one(t)
}

func regionsTable(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
	t := domain.Table{
		Name:    "Regions",
		Columns: []string{"Region", "Total Spend", "Suppliers", "PO Count", "Avg Spend/Supplier"},
	}
	for _, r := range dataprocessing.RegionSummaries(ds) {
		t.AddRow(r.Region, r.TotalSpend, r.Suppliers, r.POCount, r.AvgSpendPerSupplier)
	}
	return one(t)
}

// ConsolidationParams resolves request thresholds against the configured defaults
func (b *ReportBuilder) ConsolidationParams(minSuppliers int, minSpend, ratePct float64) dataprocessing.ConsolidationParams {
	p := dataprocessing.ConsolidationParams{MinSuppliers: minSuppliers, MinSpend: minSpend, CustomRatePct: ratePct}
	if p.MinSuppliers == 0 {
		p.MinSuppliers = b.analysis.MinSuppliersForConsolidation
	}
	if p.MinSpend == 0 {
		p.MinSpend = b.analysis.MinSpendForConsolidation
	}
	if p.CustomRatePct == 0 {
		p.CustomRatePct = b.analysis.DefaultDiscountPercent
	}
	return p
}

func (b *ReportBuilder) consolidationTable(opts ReportOptions) tableFunc {
	p := b.ConsolidationParams(opts.MinSuppliers, opts.MinSpend, opts.RatePct)

	return func(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
		columns := []string{
			"Subcategory", "Suppliers", "Total Spend", "States", "Avg per Supplier",
			"Potential Savings (10%)", "Potential Savings (15%)",
		}
		if p.CustomRatePct > 0 {
			columns = append(columns, fmt.Sprintf("Potential Savings (%s%%)", formatFloat(p.CustomRatePct)))
		}

		t := domain.Table{Name: "Consolidation Opportunities", Columns: columns}
		opps := dataprocessing.ConsolidationOpportunities(ds, p)
		for _, o := range opps {
			row := []interface{}{o.SubCategory, o.Suppliers, o.TotalSpend, o.States, o.AvgPerSupplier, o.Savings10Pct, o.Savings15Pct}
			if p.CustomRatePct > 0 {
				row = append(row, o.SavingsCustom)
			}
			t.AddRow(row...)
		}

		// Totals row, only the savings columns are summed
		if len(opps) > 0 {
			low, high, custom := dataprocessing.OpportunitySavings(opps)
			row := []interface{}{"Total", nil, nil, nil, nil, low, high}
			if p.CustomRatePct > 0 {
				row = append(row, custom)
			}
			t.AddRow(row...)
		}
		return one(t)
	}
}

// CustomColumns are the columns a custom report may select, in display order
var CustomColumns = []string{
	"po_number", "order_date", "supplier", "supplier_state", "supplier_city",
	"ship_to_state", "category", "subcategory", "amount", "po_status",
	"year", "month", "quarter",
}

// DefaultCustomColumns are used when a custom report selects nothing
var DefaultCustomColumns = []string{"supplier", "category", "amount"}

const amountColumn = "amount"

func columnValue(r *domain.Record, column string) interface{} {
	switch column {
	case "po_number":
		return r.PONumber
	case "order_date":
		return r.OrderDate
	case "supplier":
		return r.SupplierName
	case "supplier_state":
		return r.SupplierState
	case "supplier_city":
		return r.SupplierCity
	case "ship_to_state":
		return r.ShipToState
	case "category":
		return r.Category
	case "subcategory":
		return r.SubCategory
	case amountColumn:
		return r.AmountFloat()
	case "po_status":
		return r.POStatus
	case "year":
		return r.Year
	case "month":
		return r.Month
	case "quarter":
		return r.Quarter
	}
	return nil
}

func (b *ReportBuilder) customTable(opts ReportOptions) (tableFunc, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		columns = DefaultCustomColumns
	}
	for _, c := range columns {
		if !slices.Contains(CustomColumns, c) {
			return nil, fmt.Errorf("%w: unknown report column %q", dataprocessing.ErrInvalidParameter, c)
		}
	}
	for _, c := range opts.GroupBy {
		if c == amountColumn || !slices.Contains(columns, c) {
			return nil, fmt.Errorf("%w: cannot group by %q", dataprocessing.ErrInvalidParameter, c)
		}
	}

	if len(opts.GroupBy) == 0 {
		return func(ctx context.Context, ds *domain.Dataset) ([]domain.Table, error) {
			return one(b.detailTable(ctx, ds, columns))
		}, nil
	}
	return func(_ context.Context, ds *domain.Dataset) ([]domain.Table, error) {
		return one(groupedTable(ds, opts.GroupBy, slices.Contains(columns, amountColumn)))
	}, nil
}

func (b *ReportBuilder) detailTable(ctx context.Context, ds *domain.Dataset, columns []string) domain.Table {
	t := domain.Table{Name: "Custom Report", Columns: slices.Clone(columns)}
	for i, r := range ds.All() {
		if i == b.maxRows {
			b.logger.WarnContext(ctx, "custom report truncated",
				slog.Int("rows", ds.Len()),
				slog.Int("max_rows", b.maxRows))
			break
		}
		row := make([]interface{}, len(columns))
		for j, c := range columns {
			row[j] = columnValue(&r, c)
		}
		t.AddRow(row...)
	}
	return t
}

type customGroup struct {
	values []interface{}
	sum    decimal.Decimal
	count  int
}

// groupedTable groups rows by the given columns, ordered by the typed group
// values column by column. With
// the amount column selected it adds amount_sum, amount_mean and
// amount_count, otherwise a row count.
func groupedTable(ds *domain.Dataset, groupBy []string, withAmount bool) domain.Table {
	index := map[string]*customGroup{}
	var keys []string

	for _, r := range ds.All() {
		values := make([]interface{}, len(groupBy))
		parts := make([]string, len(groupBy))
		for i, c := range groupBy {
			values[i] = columnValue(&r, c)
			parts[i] = formatCell(values[i])
		}
		key := strings.Join(parts, "\x1f")
		g, ok := index[key]
		if !ok {
			g = &customGroup{values: values, sum: decimal.Zero}
			index[key] = g
			keys = append(keys, key)
		}
		g.sum = g.sum.Add(r.Amount)
		g.count++
	}
	slices.SortStableFunc(keys, func(a, b string) int {
		return compareRows(index[a].values, index[b].values)
	})

	columns := slices.Clone(groupBy)
	if withAmount {
		columns = append(columns, amountColumn+"_sum", amountColumn+"_mean", amountColumn+"_count")
	} else {
		columns = append(columns, "count")
	}

	t := domain.Table{Name: "Custom Report", Columns: columns}
	for _, key := range keys {
		g := index[key]
		row := slices.Clone(g.values)
		if withAmount {
			mean := g.sum.Div(decimal.NewFromInt(int64(g.count)))
			row = append(row, g.sum.InexactFloat64(), mean.InexactFloat64(), g.count)
		} else {
			row = append(row, g.count)
		}
		t.AddRow(row...)
	}
	return t
}

func compareRows(a, b []interface{}) int {
	for i := range a {
		if c := compareCells(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// compareCells orders numbers numerically and dates chronologically. Null
// values sort after everything else.
func compareCells(a, b interface{}) int {
	if na, ok := a.(domain.NullString); ok {
		nb, _ := b.(domain.NullString)
		switch {
		case !na.Valid && !nb.Valid:
			return 0
		case !na.Valid:
			return 1
		case !nb.Valid:
			return -1
		}
		return cmp.Compare(na.Value, nb.Value)
	}

	switch x := a.(type) {
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(formatCell(a), formatCell(b))
}
