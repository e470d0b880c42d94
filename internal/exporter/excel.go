package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"datamod/internal/dataset"
)

// excelSheetName is the name of the single sheet in saved workbooks
const excelSheetName = "Data"

// writeExcel streams t into a single-sheet workbook. Numeric cells are stored
// as numbers, empty cells are left blank.
func writeExcel(out io.Writer, t *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), excelSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(excelSheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, name := range t.Columns {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range t.Rows {
		values := make([]interface{}, len(row))
		for j, c := range row {
			switch {
			case c.IsNum:
				values[j] = c.Num
			case c.IsEmpty():
				values[j] = nil
			default:
				values[j] = c.Text
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.Write(out)
}
