package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SampleHeaders and SampleRows describe a small time series used across tests:
// elapsed seconds plus two numeric measurements and a text label.
var (
	SampleHeaders = []string{"Time", "Seconds", "Value", "Label"}
	SampleRows    = [][]string{
		{"2025-01-01 00:00:00", "10", "1", "a"},
		{"2025-01-01 00:01:00", "20", "2", "b"},
		{"2025-01-01 00:02:00", "30", "3", "c"},
	}
)

// WriteCSVFixture writes headers and rows as a comma separated file in dir
func WriteCSVFixture(t *testing.T, dir, name string, headers []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if headers != nil {
		if err := w.Write(headers); err != nil {
			t.Fatalf("write header: %v", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	return path
}

// WriteDelimitedFixture writes a text file joining each line with sep
func WriteDelimitedFixture(t *testing.T, dir, name, sep string, headers []string, rows [][]string) string {
	t.Helper()

	var b strings.Builder
	if headers != nil {
		b.WriteString(strings.Join(headers, sep))
		b.WriteString("\n")
	}
	for _, row := range rows {
		b.WriteString(strings.Join(row, sep))
		b.WriteString("\n")
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteXLSXFixture builds a single-sheet workbook. Row values keep their Go
// type so numeric cells are stored as numbers.
func WriteXLSXFixture(t *testing.T, dir, name string, headers []string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	line := 1
	if headers != nil {
		cells := make([]interface{}, len(headers))
		for i, h := range headers {
			cells[i] = h
		}
		writeXLSXRow(t, f, sheet, line, cells)
		line++
	}
	for _, row := range rows {
		writeXLSXRow(t, f, sheet, line, row)
		line++
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

func writeXLSXRow(t *testing.T, f *excelize.File, sheet string, line int, values []interface{}) {
	t.Helper()

	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		t.Fatalf("cell name: %v", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		t.Fatalf("set row %d: %v", line, err)
	}
}
