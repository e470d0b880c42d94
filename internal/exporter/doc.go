// Package exporter writes modified tables and comparison charts to disk.
//
// Tables are saved as Excel workbooks (a single "Data" sheet, numbers stored
// as numbers) or as CSV with an optional UTF-8 BOM so Excel detects the
// encoding. Charts are rendered to PNG and optionally wrapped in a one-page
// PDF.
//
// Every file is written to a temporary sibling and renamed into place, so an
// existing file is only replaced once the new content is complete.
//
// Example usage:
//
//	e := exporter.NewExporter(paths, cfg.Defaults, validator, logger)
//	path, err := e.Save(ctx, "result.xlsx", ds.Modified(), exporter.SaveOptions{})
//
//	spec, _ := analytics.BuildChart(ds.Original(), ds.Modified(), "Value", rows)
//	path, err = e.ExportChart(ctx, "result.png", spec, exporter.ChartOptions{})
package exporter
