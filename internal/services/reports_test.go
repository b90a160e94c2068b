package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

func TestDataService_BuildReport(t *testing.T) {
	svc, _ := loadedService(t)

	report, err := svc.BuildReport(context.Background(), exporter.ReportOptions{
		Type:    domain.ReportExecutiveSummary,
		Filters: domain.FilterSpec{Categories: []string{"Hardware"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportExecutiveSummary, report.Type)
	assert.Equal(t, 5, report.Records)
	assert.NotEmpty(t, report.ID)
	assert.Len(t, report.Tables, 3)
}

func TestDataService_ExportCSV(t *testing.T) {
	svc, _ := loadedService(t)
	opts := exporter.ReportOptions{Type: domain.ReportGeographicAnalysis}

	tests := []struct {
		name      string
		table     string
		wantFirst string
		wantErr   error
	}{
		{name: "default table", table: "", wantFirst: "State"},
		{name: "by index", table: "2", wantFirst: "Region"},
		{name: "by name", table: "regions", wantFirst: "Region"},
		{name: "index out of range", table: "9", wantErr: ErrTableNotFound},
		{name: "unknown name", table: "nope", wantErr: ErrTableNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			file, err := svc.Export(context.Background(), opts, "csv", tt.table, &buf)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(file.Filename, "geographic_analysis_"))
			assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
			assert.Equal(t, 1, file.Tables)

			body := strings.TrimPrefix(buf.String(), "\ufeff")
			records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
			require.NoError(t, err)
			require.NotEmpty(t, records)
			assert.Equal(t, tt.wantFirst, records[0][0])
		})
	}
}

func TestDataService_ExportWorkbook(t *testing.T) {
	svc, _ := loadedService(t)

	var buf bytes.Buffer
	file, err := svc.Export(context.Background(), exporter.ReportOptions{Type: domain.ReportGeographicAnalysis}, "XLSX", "", &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, file.Tables)
	assert.Contains(t, file.ContentType, "spreadsheetml")

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}

func TestDataService_ExportUnsupportedFormat(t *testing.T) {
	svc, _ := loadedService(t)

	var buf bytes.Buffer
	_, err := svc.Export(context.Background(), exporter.ReportOptions{Type: domain.ReportExecutiveSummary}, "pdf", "", &buf)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.Zero(t, buf.Len())
}

func TestDataService_ExportWithoutData(t *testing.T) {
	svc, _ := newTestService(t)

	var buf bytes.Buffer
	_, err := svc.Export(context.Background(), exporter.ReportOptions{Type: domain.ReportExecutiveSummary}, "csv", "", &buf)
	assert.ErrorIs(t, err, ErrNoData)
}
