package exporter

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// MaxSheetNameLength is Excel's limit on worksheet names
const MaxSheetNameLength = 31

// WriteWorkbook writes every table to its own sheet of one .xlsx workbook.
// Sheet names are sanitized, truncated to 31 characters and de-duplicated.
func WriteWorkbook(w io.Writer, tables []domain.Table) error {
	if len(tables) == 0 {
		return errors.NewExportError("no tables to export", nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	names := SheetNames(tables)
	for i, table := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), names[0]); err != nil {
				return errors.NewExportError("rename sheet", err).WithContext("sheet", names[0])
			}
		} else if _, err := f.NewSheet(names[i]); err != nil {
			return errors.NewExportError("create sheet", err).WithContext("sheet", names[i])
		}

		if err := writeSheet(f, names[i], table); err != nil {
			return errors.NewExportError("write sheet", err).WithContext("sheet", names[i])
		}
	}

	if err := f.Write(w); err != nil {
		return errors.NewExportError("write workbook", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table domain.Table) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = workbookCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// SheetNames returns a valid, unique sheet name for each table
func SheetNames(tables []domain.Table) []string {
	used := make(map[string]bool, len(tables))
	names := make([]string, len(tables))

	for i, t := range tables {
		base := sanitizeSheetName(t.Name)
		if base == "" {
			base = fmt.Sprintf("Sheet%d", i+1)
		}
		name := truncateRunes(base, MaxSheetNameLength)
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncateRunes(base, MaxSheetNameLength-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

var sheetNameReplacer = strings.NewReplacer(
	":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")",
)

func sanitizeSheetName(name string) string {
	name = sheetNameReplacer.Replace(strings.TrimSpace(name))
	return strings.Trim(name, "'")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max]))
}
