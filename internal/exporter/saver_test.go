package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"datamod/internal/analytics"
	"datamod/internal/config"
	apperrors "datamod/internal/errors"
	"datamod/internal/shared/testutil"
	"datamod/internal/validation"
)

func newTestExporter(t *testing.T, defaults config.AppDefaults) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)
	e := NewExporter(&config.Paths{ExportsDir: dir}, defaults, nil, logger)
	e.now = func() time.Time { return time.Date(2025, 11, 27, 14, 30, 0, 0, time.UTC) }
	return e, dir
}

func boolPtr(b bool) *bool { return &b }

func TestExporter_SaveExcel(t *testing.T) {
	e, dir := newTestExporter(t, config.DefaultAppDefaults())

	path, err := e.Save(context.Background(), "result.xlsx", testTable(t), SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{excelSheetName}, f.GetSheetList())
	rows, err := f.GetRows(excelSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Seconds", "Label", "Note"}, rows[0])
	assert.Equal(t, []string{"10", "a", "x"}, rows[1])
	assert.Equal(t, []string{"0.5", "", "y"}, rows[2])

	cellType, err := f.GetCellType(excelSheetName, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
}

func TestExporter_SaveFormatSelection(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		opts     SaveOptions
		defaults func(*config.AppDefaults)
		wantName string
	}{
		{name: "extension wins", path: "out.csv", wantName: "out.csv"},
		{name: "default save format", path: "out", wantName: "out.xlsx"},
		{name: "configured csv default", path: "out", defaults: func(d *config.AppDefaults) { d.DefaultSaveFormat = "csv" }, wantName: "out.csv"},
		{name: "explicit format", path: "out", opts: SaveOptions{Format: "csv"}, wantName: "out.csv"},
		{name: "timestamp option", path: "out.csv", opts: SaveOptions{Timestamp: boolPtr(true)}, wantName: "out_20251127_143000.csv"},
		{name: "timestamp from defaults", path: "out.csv", defaults: func(d *config.AppDefaults) { d.TimestampFilenames = true }, wantName: "out_20251127_143000.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := config.DefaultAppDefaults()
			if tt.defaults != nil {
				tt.defaults(&defaults)
			}
			e, dir := newTestExporter(t, defaults)

			path, err := e.Save(context.Background(), tt.path, testTable(t), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.wantName), path)
			assert.FileExists(t, path)
		})
	}
}

func TestExporter_SaveCSVBOM(t *testing.T) {
	e, _ := newTestExporter(t, config.DefaultAppDefaults())

	path, err := e.Save(context.Background(), "bom.csv", testTable(t), SaveOptions{})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBFSeconds,"), "CSVBOM default is on")

	path, err = e.Save(context.Background(), "plain.csv", testTable(t), SaveOptions{BOM: boolPtr(false)})
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Seconds,"))
}

func TestExporter_SaveOverwritesExisting(t *testing.T) {
	e, dir := newTestExporter(t, config.DefaultAppDefaults())
	target := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0644))

	_, err := e.Save(context.Background(), target, testTable(t), SaveOptions{BOM: boolPtr(false)})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old")
}

func TestExporter_SaveRefusesSourceFile(t *testing.T) {
	e, dir := newTestExporter(t, config.DefaultAppDefaults())
	source := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(source, []byte("v\n1\n2\n"), 0644))
	link := filepath.Join(dir, "link.csv")
	require.NoError(t, os.Symlink(source, link))

	for _, path := range []string{source, "in.csv", link} {
		_, err := e.Save(context.Background(), path, testTable(t), SaveOptions{Source: source})
		require.Error(t, err, path)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport))
		assert.ErrorIs(t, err, ErrSourceOverwrite)
	}

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "v\n1\n2\n", string(data))

	saved, err := e.Save(context.Background(), "out.csv", testTable(t), SaveOptions{Source: source})
	require.NoError(t, err)
	assert.FileExists(t, saved)
}

func TestExporter_SaveErrors(t *testing.T) {
	e, dir := newTestExporter(t, config.DefaultAppDefaults())
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	tests := []struct {
		name     string
		path     string
		opts     SaveOptions
		wantCode string
		wantIs   error
	}{
		{name: "empty path", path: "", wantCode: apperrors.CodeExportFailed, wantIs: ErrNoPath},
		{name: "unsupported extension", path: "out.json", wantCode: apperrors.CodeUnsupportedFormat, wantIs: validation.ErrUnsupportedFormat},
		{name: "format mismatch", path: "out.csv", opts: SaveOptions{Format: "xlsx"}, wantCode: apperrors.CodeUnsupportedFormat, wantIs: validation.ErrUnsupportedFormat},
		{name: "directory not writable", path: filepath.Join(blocker, "sub", "out.csv"), wantCode: apperrors.CodeExportFailed, wantIs: validation.ErrNotWritable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Save(context.Background(), tt.path, testTable(t), tt.opts)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport))
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.True(t, errors.Is(err, tt.wantIs))
		})
	}

	_, err := e.Save(context.Background(), "out.csv", nil, SaveOptions{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeState))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Save(ctx, "out.csv", testTable(t), SaveOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExporter_ExportChart(t *testing.T) {
	spec := analytics.ChartSpec{
		Title:  "Value (rows 1-3)",
		Kind:   analytics.ChartLine,
		XLabel: "Row",
		YLabel: "Value",
		Before: []analytics.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
		After:  []analytics.Point{{X: 1, Y: 60}, {X: 2, Y: 120}, {X: 3, Y: 180}},
	}

	tests := []struct {
		name     string
		path     string
		opts     ChartOptions
		wantName string
		magic    string
	}{
		{name: "png by default", path: "chart", wantName: "chart.png", magic: "\x89PNG"},
		{name: "pdf by extension", path: "chart.pdf", wantName: "chart.pdf", magic: "%PDF"},
		{name: "pdf by option", path: "report", opts: ChartOptions{Format: "pdf"}, wantName: "report.pdf", magic: "%PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, dir := newTestExporter(t, config.DefaultAppDefaults())
			tt.opts.DPI = 72

			path, err := e.ExportChart(context.Background(), tt.path, spec, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.wantName), path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), tt.magic))
		})
	}
}

func TestExporter_ExportChartErrors(t *testing.T) {
	e, dir := newTestExporter(t, config.DefaultAppDefaults())

	_, err := e.ExportChart(context.Background(), "chart.svg", analytics.ChartSpec{}, ChartOptions{})
	assert.True(t, errors.Is(err, validation.ErrUnsupportedFormat))

	_, err = e.ExportChart(context.Background(), "empty.png", analytics.ChartSpec{Kind: analytics.ChartScatter}, ChartOptions{DPI: 72})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyChart))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport))
	assert.NoFileExists(t, filepath.Join(dir, "empty.png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed exports must not leave files behind")
}

func TestClassifyWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "disk full", err: &os.PathError{Op: "write", Path: "x", Err: syscall.ENOSPC}, wantCode: apperrors.CodeDiskFull},
		{name: "permission", err: &os.PathError{Op: "open", Path: "x", Err: os.ErrPermission}, wantCode: apperrors.CodePermissionDenied},
		{name: "other", err: errors.New("boom"), wantCode: apperrors.CodeExportFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyWriteError("out.csv", tt.err)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrTypeExport, appErr.Type)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.True(t, errors.Is(err, tt.err))
		})
	}

	existing := apperrors.NewExportError(apperrors.CodeUnsupportedFormat, "nope", nil)
	assert.Same(t, existing, classifyWriteError("out.csv", existing))
}
