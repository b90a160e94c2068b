package exporter

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

func sampleTable() domain.Table {
	t := domain.Table{Name: "Top Suppliers", Columns: []string{"Supplier", "Total Spend", "PO Count", "State"}}
	t.AddRow("Acme", 600.0, 3, domain.NewNullString("TX"))
	t.AddRow("Bolt, Co", 400.25, 2, domain.NullString{})
	return t
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		opts    CSVOptions
		wantBOM bool
	}{
		{name: "without BOM", opts: CSVOptions{}, wantBOM: false},
		{name: "with BOM", opts: CSVOptions{BOM: true}, wantBOM: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, sampleTable(), tt.opts))

			data := buf.Bytes()
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, utf8BOM))
			data = bytes.TrimPrefix(data, utf8BOM)

			assert.Equal(t, [][]string{
				{"Supplier", "Total Spend", "PO Count", "State"},
				{"Acme", "600", "3", "TX"},
				{"Bolt, Co", "400.25", "2", ""},
			}, readCSV(t, data))
		})
	}
}

func TestWriteCSV_ShortRowsArePadded(t *testing.T) {
	table := domain.Table{Name: "x", Columns: []string{"a", "b"}}
	table.AddRow("only")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table, CSVOptions{}))
	assert.Equal(t, [][]string{{"a", "b"}, {"only", ""}}, readCSV(t, buf.Bytes()))
}
