package dataprocessing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
	"datamod/internal/validation"
)

var (
	ErrCorruptFile = errors.New("file content could not be parsed")
	ErrNoHeader    = errors.New("file has no header row")
)

// utf8BOM is stripped from the start of CSV and TXT input
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// txtDelimiters are tried in order when sniffing a .txt file
var txtDelimiters = []rune{'\t', ';', ',', '|'}

// ctxCheckInterval is how many rows are read between context checks
const ctxCheckInterval = 1000

// Loader reads tabular files into datasets
type Loader struct {
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewLoader creates a loader that enforces the validator's limits
func NewLoader(validator *validation.FileValidator, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.NewFileValidator(logger, validation.Limits{})
	}
	return &Loader{
		validator: validator,
		logger:    logger.With("component", "loader"),
	}
}

// Load reads the file at path. The first row supplies the column headers;
// blank headers become Column_N and repeated headers get a _2, _3 suffix.
// Cells that parse as finite numbers become numeric, everything else text.
func (l *Loader) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := l.validator.ValidateInputFile(path); err != nil {
		return nil, err
	}

	var (
		raw [][]string
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		raw, err = l.readXLSX(ctx, path)
	case ".xls":
		raw, err = l.readXLS(ctx, path)
	case ".csv":
		raw, err = l.readDelimited(ctx, path, ',')
	case ".txt":
		var delim rune
		delim, err = sniffDelimiter(path)
		if err == nil {
			raw, err = l.readDelimited(ctx, path, delim)
		}
	default:
		return nil, apperrors.NewFileLoadError(apperrors.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported extension %q", ext), validation.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, l.classify(path, err)
	}

	ds, err := l.build(path, raw)
	if err != nil {
		return nil, err
	}

	rows, cols := ds.Shape()
	l.logger.Info("File loaded",
		slog.String("file", path),
		slog.Int("rows", rows),
		slog.Int("columns", cols),
		slog.Duration("duration", time.Since(start)))
	return ds, nil
}

func (l *Loader) build(path string, raw [][]string) (*dataset.Dataset, error) {
	raw = dropEmptyRows(raw)
	if len(raw) == 0 {
		return nil, apperrors.NewFileLoadError(apperrors.CodeEmptyFile,
			fmt.Sprintf("%s contains no data", filepath.Base(path)), ErrNoHeader).WithContext("path", path)
	}

	width := 0
	for _, r := range raw {
		if len(r) > width {
			width = len(r)
		}
	}
	if err := l.validator.ValidateShape(len(raw)-1, width); err != nil {
		return nil, err
	}

	headers := NormalizeHeaders(pad(raw[0], width))
	rows := make([][]dataset.Cell, 0, len(raw)-1)
	for _, r := range raw[1:] {
		r = pad(r, width)
		cells := make([]dataset.Cell, width)
		for i, v := range r {
			cells[i] = dataset.ParseCell(v)
		}
		rows = append(rows, cells)
	}

	ds, err := dataset.New(filepath.Base(path), headers, rows)
	if err != nil {
		return nil, err
	}
	ds.Path = path
	return ds, nil
}

func (l *Loader) readXLSX(ctx context.Context, path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	sheet := sheets[0]
	l.logger.Debug("Reading workbook sheet", slog.String("sheet", sheet), slog.Int("sheets", len(sheets)))

	it, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	defer it.Close()

	var out [][]string
	for it.Next() {
		cols, err := it.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
		out = append(out, cols)
		if err := l.checkProgress(ctx, len(out)); err != nil {
			return nil, err
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return out, nil
}

func (l *Loader) readXLS(ctx context.Context, path string) (out [][]string, err error) {
	// the BIFF reader panics on some malformed records
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrCorruptFile, r)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	if wb.NumSheets() == 0 {
		return nil, nil
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			out = append(out, nil)
			continue
		}
		cols := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cols = append(cols, row.Col(c))
		}
		out = append(out, cols)
		if err := l.checkProgress(ctx, len(out)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// xlsRow returns row i, or nil for a row the sheet holds no records for.
// WorkSheet.Row dereferences missing rows.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func (l *Loader) readDelimited(ctx context.Context, path string, delim rune) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	var out [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
		}
		out = append(out, record)
		if err := l.checkProgress(ctx, len(out)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkProgress aborts on cancellation and as soon as the row limit is passed
func (l *Loader) checkProgress(ctx context.Context, n int) error {
	if limit := l.validator.Limits().MaxRows; limit > 0 && n > limit+1 {
		return l.validator.ValidateShape(n-1, 0)
	}
	if n%ctxCheckInterval == 0 {
		return ctx.Err()
	}
	return nil
}

func (l *Loader) classify(path string, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, os.ErrPermission):
		return apperrors.NewFileLoadError(apperrors.CodePermissionDenied,
			fmt.Sprintf("file %s is not readable", path), errors.Join(validation.ErrPermissionDenied, err)).
			WithContext("path", path)
	case errors.Is(err, os.ErrNotExist):
		return apperrors.NewFileLoadError(apperrors.CodeFileNotFound,
			fmt.Sprintf("file %s does not exist", path), errors.Join(validation.ErrFileNotFound, err)).
			WithContext("path", path)
	}
	l.logger.Warn("File could not be parsed",
		slog.String("file", path),
		slog.String("error", err.Error()))
	return apperrors.NewFileLoadError(apperrors.CodeCorruptFile,
		fmt.Sprintf("%s could not be read: %v", filepath.Base(path), err), err).WithContext("path", path)
}

// sniffDelimiter picks the delimiter that splits the first lines of a text
// file into the same number of fields (at least two). Ties go to the
// earlier candidate; with no match the file is treated as tab separated.
func sniffDelimiter(path string) (rune, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() && len(lines) < 10 {
		line := strings.TrimPrefix(scanner.Text(), string(utf8BOM))
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return SniffDelimiter(lines), nil
}

// SniffDelimiter chooses among tab, semicolon, comma and pipe for lines
func SniffDelimiter(lines []string) rune {
	best, bestCount := '\t', 0
	for _, d := range txtDelimiters {
		count := -1
		for _, line := range lines {
			n := strings.Count(line, string(d))
			if count == -1 {
				count = n
			} else if n != count {
				count = 0
				break
			}
		}
		if count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

// NormalizeHeaders trims headers, names blank ones Column_N (1-based) and
// disambiguates repeats with _2, _3, ...
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	next := make(map[string]int)

	for i, h := range raw {
		base := strings.TrimSpace(h)
		if base == "" {
			base = fmt.Sprintf("Column_%d", i+1)
		}
		name := base
		if used[name] {
			n := next[base]
			if n < 2 {
				n = 2
			}
			for used[fmt.Sprintf("%s_%d", base, n)] {
				n++
			}
			name = fmt.Sprintf("%s_%d", base, n)
			next[base] = n + 1
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func dropEmptyRows(raw [][]string) [][]string {
	out := raw[:0:0]
	for _, r := range raw {
		for _, v := range r {
			if strings.TrimSpace(v) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
