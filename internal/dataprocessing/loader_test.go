package dataprocessing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/shared/testutil"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

func TestLoader_LoadScenario(t *testing.T) {
	path := testutil.WriteFile(t, "po.csv", testutil.ScenarioCSV)
	loader, handler := newTestLoader(t)

	ds, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, path, ds.Source)
	assert.NotEmpty(t, ds.Fingerprint)
	assert.Equal(t, 6, ds.Report.RowsRead)
	assert.Equal(t, 6, ds.Report.RowsKept)
	assert.Zero(t, ds.Report.TotalDropped())
	assert.False(t, ds.Schema.LegacyLocation)
	assert.True(t, ds.Schema.Has(domain.FieldPONumber))

	first := ds.At(0)
	assert.Equal(t, "Acme", first.SupplierName)
	assert.Equal(t, "200", first.Amount.String())
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), first.OrderDate)
	assert.Equal(t, "TX", first.SupplierState.Value)
	assert.Equal(t, "Austin", first.SupplierCity.Value)
	assert.Equal(t, "CA", first.ShipToState.Value)
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, 1, first.Quarter)
	assert.Equal(t, "2024-01", first.YearMonth)
	assert.Equal(t, "2024Q1", first.YearQuarter)
	assert.Equal(t, "January 2024", first.MonthLabel)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "dataset loaded")
	testutil.AssertLogAttr(t, handler, "rows", int64(6))
}

func TestLoader_DropsInvalidRows(t *testing.T) {
	content := testutil.ScenarioCSV +
		"PO-1007,2024-03-31,Acme,N/A,Hardware,Widgets,Open,CA,Austin,TX\n" +
		"PO-1008,not a date,Acme,10,Hardware,Widgets,Open,CA,Austin,TX\n" +
		"PO-1009,,Acme,,Hardware,Widgets,Open,CA,Austin,TX\n"

	ds := loadCSV(t, content)
	clean := scenario(t)

	assert.Equal(t, clean.Len(), ds.Len())
	assert.Equal(t, Summarize(clean).TotalRecords, Summarize(ds).TotalRecords)
	assert.Equal(t, 9, ds.Report.RowsRead)
	assert.Equal(t, 6, ds.Report.RowsKept)
	assert.Equal(t, 2, ds.Report.Dropped[domain.DropInvalidAmount])
	assert.Equal(t, 1, ds.Report.Dropped[domain.DropInvalidDate])
}

func TestLoader_SingleNonNumericAmount(t *testing.T) {
	withBad := testutil.ScenarioCSV + "PO-1010,2024-03-31,Acme,N/A,Hardware,Widgets,Open,CA,Austin,TX\n"

	assert.Equal(t, Summarize(scenario(t)).TotalRecords, Summarize(loadCSV(t, withBad)).TotalRecords)
	assert.Equal(t, 7, loadCSV(t, withBad).Report.RowsRead)
}

func TestLoader_ByteOrderMark(t *testing.T) {
	ds := loadCSV(t, "\ufeff"+testutil.ScenarioCSV)

	assert.Equal(t, 6, ds.Len())
	assert.True(t, ds.Schema.Has(domain.FieldPONumber))
	assert.Equal(t, "PO-1001", ds.At(0).PONumber.Value)
}

func TestLoader_HeaderWhitespace(t *testing.T) {
	content := " PO Order Date , Line Item Subtotal ,Corcentric Supplier Name\n2024-05-01,\"$1,250.50\",Acme\n"
	ds := loadCSV(t, content)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "1250.5", ds.At(0).Amount.String())
}

func TestLoader_LegacyLocation(t *testing.T) {
	ds := loadCSV(t, testutil.LegacyLocationCSV)
	require.Equal(t, 3, ds.Len())

	assert.True(t, ds.Schema.LegacyLocation)

	tests := []struct {
		supplier  string
		wantCity  domain.NullString
		wantState domain.NullString
	}{
		{"Acme", domain.NewNullString("Austin"), domain.NewNullString("TX")},
		{"Bolt Co", domain.NewNullString("St. Paul"), domain.NewNullString("MN")},
		{"Iron Inc", domain.NullString{}, domain.NullString{}},
	}
	for i, tt := range tests {
		t.Run(tt.supplier, func(t *testing.T) {
			r := ds.At(i)
			assert.Equal(t, tt.supplier, r.SupplierName)
			assert.Equal(t, tt.wantCity, r.SupplierCity)
			assert.Equal(t, tt.wantState, r.SupplierState)
		})
	}
}

func TestLoader_MissingStateColumnsGiveNulls(t *testing.T) {
	content := "PO Order Date,Line Item Subtotal,Corcentric Supplier Name\n2024-05-01,10,Acme\n"
	ds := loadCSV(t, content)

	require.Equal(t, 1, ds.Len())
	assert.False(t, ds.At(0).SupplierState.Valid)
	assert.False(t, ds.At(0).SupplierCity.Valid)
	assert.Empty(t, SpendByDimension(ds, domain.DimensionSupplierState))
	assert.Empty(t, ConsolidationOpportunities(ds, ConsolidationParams{MinSuppliers: 1}))
}

func TestLoader_Failures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantType errors.ErrorType
	}{
		{name: "empty source", content: "", wantType: errors.ErrTypeParsing},
		{name: "missing amount column", content: "PO Order Date,Supplier\n2024-01-01,Acme\n", wantType: errors.ErrTypeValidation},
		{name: "missing date column", content: "Line Item Subtotal\n10\n", wantType: errors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, handler := newTestLoader(t)
			ds, err := loader.LoadReader(context.Background(), "po.csv", strings.NewReader(tt.content))

			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
			require.NotNil(t, ds)
			assert.True(t, ds.IsEmpty())
			testutil.AssertLogContains(t, handler, slog.LevelError, "dataset load failed")
		})
	}
}

func TestLoader_SourceNotFound(t *testing.T) {
	loader, _ := newTestLoader(t)

	ds, err := loader.Load(context.Background(), "/nonexistent/po.csv")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	require.NotNil(t, ds)
	assert.True(t, ds.IsEmpty())
	assert.Equal(t, domain.Summary{}, Summarize(ds))
}

func TestLoader_UnsupportedEncoding(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.Default().Data
	cfg.Encoding = "ebcdic"

	_, err := NewLoader(logger, cfg).LoadReader(context.Background(), "po.csv", strings.NewReader(testutil.ScenarioCSV))
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLoader_Latin1(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.Default().Data
	cfg.Encoding = "latin-1"

	content := []byte("PO Order Date,Line Item Subtotal,Corcentric Supplier Name\n2024-05-01,10,Caf\xe9 Supply\n")
	ds, err := NewLoader(logger, cfg).LoadReader(context.Background(), "po.csv", bytes.NewReader(content))

	require.NoError(t, err)
	assert.Equal(t, "Café Supply", ds.At(0).SupplierName)
}

func TestLoader_Fingerprint(t *testing.T) {
	a := loadCSV(t, testutil.ScenarioCSV)
	b := loadCSV(t, testutil.ScenarioCSV)
	c := loadCSV(t, testutil.ScenarioCSV+"PO-2000,2024-04-01,Acme,1,Hardware,Widgets,Open,CA,Austin,TX\n")

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestLoader_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"VSTX PO #", "PO Order Date", "Corcentric Supplier Name", "Line Item Subtotal", "Category", "SupplierState"},
		{"PO-1", "2024-01-15", "Acme", "200", "Hardware", "tx"},
		{"PO-2", "2024-02-10", "Bolt Co", "300.5", "Hardware", "ny"},
		{"PO-3", "2024-02-11", "Bolt Co", "oops", "Hardware", "ny"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	loader, _ := newTestLoader(t)
	ds, err := loader.LoadReader(context.Background(), "upload.XLSX", &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 1, ds.Report.Dropped[domain.DropInvalidAmount])
	assert.Equal(t, "NY", ds.At(1).SupplierState.Value)
	assert.InDelta(t, 500.5, TotalSpend(ds).InexactFloat64(), 1e-9)
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("data.xlsx"))
	assert.True(t, IsWorkbook("DATA.XLSX"))
	assert.False(t, IsWorkbook("data.csv"))
	assert.False(t, IsWorkbook("xlsx"))
}
