package exporter

import (
	"path/filepath"
	"strconv"
	"strings"

	"datamod/internal/dataset"
)

// formatFloat renders a number with the fewest digits that round-trip
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatCell renders a cell for text output
func formatCell(c dataset.Cell) string {
	if c.IsNum {
		return formatFloat(c.Num)
	}
	return c.Text
}

func tableRecords(t *dataset.Table) [][]string {
	records := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		record := make([]string, len(row))
		for j, c := range row {
			record[j] = formatCell(c)
		}
		records[i] = record
	}
	return records
}

// formatOf returns the lower-case extension of path without the dot
func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// withFormat appends .format to path when it has no extension
func withFormat(path, format string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + "." + format
}
