package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures CSV writing behavior
type CSVOptions struct {
	BOM bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes one table: a header row and one line per row with raw values
func WriteCSV(w io.Writer, table domain.Table, opts CSVOptions) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	line := make([]string, len(table.Columns))
	for i, row := range table.Rows {
		for j := range line {
			line[j] = ""
			if j < len(row) {
				line[j] = formatCell(row[j])
			}
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
