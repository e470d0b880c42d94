package exporter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"datamod/internal/analytics"
	"datamod/internal/config"
	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
	"datamod/internal/validation"
)

var (
	// ErrNoPath is returned when an export is requested without a destination
	ErrNoPath = errors.New("no output path given")
	// ErrSourceOverwrite is returned when a save targets the file the table
	// was loaded from
	ErrSourceOverwrite = errors.New("output path is the loaded source file")
)

// SaveOptions overrides the configured defaults for a single save. Nil
// pointers fall back to the AppDefaults the Exporter was built with.
type SaveOptions struct {
	Format    string `json:"format,omitempty" validate:"omitempty,oneof=xlsx csv"`
	Timestamp *bool  `json:"timestamp,omitempty"`
	BOM       *bool  `json:"bom,omitempty"`
	// Source is the file the table was loaded from. Save never replaces it.
	Source string `json:"-"`
}

// ChartOptions controls a chart export
type ChartOptions struct {
	Format    string `json:"format,omitempty" validate:"omitempty,oneof=png pdf"`
	DPI       int    `json:"dpi,omitempty" validate:"omitempty,min=50,max=1200"`
	Timestamp *bool  `json:"timestamp,omitempty"`
}

// Exporter writes tables and charts to disk
type Exporter struct {
	paths     *config.Paths
	defaults  config.AppDefaults
	validator *validation.FileValidator
	csv       *CSVWriter
	logger    *slog.Logger
	now       func() time.Time
}

// NewExporter creates an exporter. Relative output paths are resolved against
// paths.ExportsDir; paths may be nil.
func NewExporter(paths *config.Paths, defaults config.AppDefaults, validator *validation.FileValidator, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.NewFileValidator(logger, validation.LimitsFromDefaults(defaults))
	}
	return &Exporter{
		paths:     paths,
		defaults:  defaults,
		validator: validator,
		csv:       NewCSVWriter(paths),
		logger:    logger.With("component", "exporter"),
		now:       time.Now,
	}
}

// Save writes t to path and returns the path actually written. The format
// comes from the extension, then opts.Format, then default_save_format.
func (e *Exporter) Save(ctx context.Context, path string, t *dataset.Table, opts SaveOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t == nil {
		return "", apperrors.NewStateError(apperrors.CodeNoDataset, "nothing to save", nil)
	}

	format := opts.Format
	if format == "" {
		format = e.defaults.DefaultSaveFormat
	}
	fullPath, format, err := e.prepare(path, format, config.SupportedSaveFormats, opts.Timestamp)
	if err != nil {
		return "", err
	}
	if opts.Source != "" && samePath(fullPath, opts.Source) {
		return "", apperrors.NewExportError(apperrors.CodeExportFailed,
			"refusing to overwrite the loaded file; choose another output path",
			ErrSourceOverwrite).WithContext("path", fullPath)
	}
	if opts.Format != "" && opts.Format != format {
		return "", apperrors.NewExportError(apperrors.CodeUnsupportedFormat,
			fmt.Sprintf("file extension .%s does not match requested format %s", format, opts.Format),
			validation.ErrUnsupportedFormat).WithContext("path", fullPath)
	}

	bom := e.defaults.CSVBOM
	if opts.BOM != nil {
		bom = *opts.BOM
	}

	start := e.now()
	err = writeAtomic(fullPath, func(out io.Writer) error {
		switch format {
		case "csv":
			return e.csv.Write(out, WriteOptions{
				Headers:   t.Columns,
				Records:   tableRecords(t),
				BOMPrefix: bom,
			})
		default:
			return writeExcel(out, t)
		}
	})
	if err != nil {
		e.logger.Error("Failed to save table",
			slog.String("path", fullPath),
			slog.String("format", format),
			slog.String("error", err.Error()))
		return "", err
	}

	rows, cols := t.Shape()
	e.logger.Info("Table saved",
		slog.String("path", fullPath),
		slog.String("format", format),
		slog.Int("rows", rows),
		slog.Int("columns", cols),
		slog.Duration("duration", time.Since(start)))
	return fullPath, nil
}

// ExportChart renders spec to path as PNG or PDF and returns the path written
func (e *Exporter) ExportChart(ctx context.Context, path string, spec analytics.ChartSpec, opts ChartOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format := opts.Format
	if format == "" {
		format = "png"
	}
	fullPath, format, err := e.prepare(path, format, config.SupportedChartFormats, opts.Timestamp)
	if err != nil {
		return "", err
	}

	dpi := opts.DPI
	if dpi == 0 {
		dpi = e.defaults.ChartDPI
	}

	err = writeAtomic(fullPath, func(out io.Writer) error {
		if format == "pdf" {
			return renderChartPDF(out, spec, dpi)
		}
		return renderChartPNG(out, spec, dpi)
	})
	if err != nil {
		e.logger.Error("Failed to export chart",
			slog.String("path", fullPath),
			slog.String("error", err.Error()))
		return "", err
	}

	e.logger.Info("Chart exported",
		slog.String("path", fullPath),
		slog.String("kind", string(spec.Kind)),
		slog.Int("dpi", dpi))
	return fullPath, nil
}

// prepare resolves path, fills in a missing extension, checks the format and
// output directory and applies the timestamp suffix
func (e *Exporter) prepare(path, fallbackFormat string, allowed []string, timestamp *bool) (string, string, error) {
	if path == "" {
		return "", "", apperrors.NewExportError(apperrors.CodeExportFailed, "output path is empty", ErrNoPath)
	}

	fullPath := withFormat(e.csv.resolvePath(path), fallbackFormat)
	format, err := e.validator.ValidateOutputFormat(fullPath, allowed)
	if err != nil {
		return "", "", err
	}

	stamp := e.defaults.TimestampFilenames
	if timestamp != nil {
		stamp = *timestamp
	}
	if stamp {
		fullPath = config.TimestampedName(fullPath, e.now())
	}

	if err := e.validator.ValidateOutputDirectory(filepath.Dir(fullPath)); err != nil {
		return "", "", err
	}
	return fullPath, format, nil
}

// samePath reports whether a and b name the same file, either lexically or
// through a link to an existing file
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

// writeAtomic writes through a temporary file in the target directory and
// renames it over path, so a failed write never leaves a truncated file
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return classifyWriteError(path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return classifyWriteError(path, err)
	}
	if err = buf.Flush(); err != nil {
		return classifyWriteError(path, err)
	}
	if err = tmp.Sync(); err != nil {
		return classifyWriteError(path, err)
	}
	if err = tmp.Close(); err != nil {
		return classifyWriteError(path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return classifyWriteError(path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return classifyWriteError(path, err)
	}
	return nil
}

// classifyWriteError maps a write failure onto an EXPORT error
func classifyWriteError(path string, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}

	code := apperrors.CodeExportFailed
	switch {
	case errors.Is(err, syscall.ENOSPC):
		code = apperrors.CodeDiskFull
	case errors.Is(err, os.ErrPermission):
		code = apperrors.CodePermissionDenied
	}
	return apperrors.NewExportError(code, fmt.Sprintf("failed to write %s", path), err).
		WithContext("path", path)
}
