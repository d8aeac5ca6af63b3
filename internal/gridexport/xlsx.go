package gridexport

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"tessera/internal/grid"
	"tessera/internal/schema"
)

var cellSheetColumns = []string{
	"Record",
	"Field",
	"Group",
	"Value",
	"Status",
	"Confidence",
	"Manually Verified",
	"Manually Updated",
	"Schema Mismatch",
	"Reasoning",
}

// WriteXLSX writes the session grid as a workbook with two sheets:
// "Grid" is the pivoted view matching the CSV export, "Cells" is the
// long format with per-cell review state, including mismatched cells
// the pivot drops.
func WriteXLSX(w io.Writer, sc *schema.Resolved, cells []grid.GridCell) error {
	f := excelize.NewFile()
	defer f.Close()

	const gridSheet = "Grid"
	if err := f.SetSheetName("Sheet1", gridSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeRows(f, gridSheet, append([][]string{headerFor(sc)}, Pivot(sc, cells)...)); err != nil {
		return err
	}

	const cellSheet = "Cells"
	if _, err := f.NewSheet(cellSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	rows := make([][]string, 0, len(cells)+1)
	rows = append(rows, cellSheetColumns)
	for i := range cells {
		rows = append(rows, cellRow(&cells[i]))
	}
	if err := writeRows(f, cellSheet, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]string) error {
	for r, row := range rows {
		for c, value := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("sheet %s: %w", sheet, err)
			}
			if err := f.SetCellValue(sheet, name, value); err != nil {
				return fmt.Errorf("sheet %s cell %s: %w", sheet, name, err)
			}
		}
	}
	return nil
}

func cellRow(cell *grid.GridCell) []string {
	value := ""
	if cell.ExtractedValue != nil {
		value = *cell.ExtractedValue
	}
	return []string{
		strconv.Itoa(cell.RecordIndex),
		cell.FieldName,
		cell.GroupName,
		value,
		string(cell.ValidationStatus),
		strconv.FormatFloat(cell.ConfidenceScore, 'f', 1, 64),
		formatBool(cell.ManuallyVerified),
		formatBool(cell.ManuallyUpdated),
		formatBool(cell.SchemaMismatch),
		cell.AIReasoning,
	}
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
