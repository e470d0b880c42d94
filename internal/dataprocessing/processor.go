package dataprocessing

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"datamod/internal/config"
	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
	"datamod/internal/units"
)

var (
	ErrNonNumeric       = errors.New("non-numeric cell in selection")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrOverflow         = errors.New("result out of representable range")
	ErrInvalidFormula   = errors.New("invalid formula")
	ErrInvalidParameter = errors.New("invalid operation parameter")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Processor applies operations to a selection of a table. It holds no
// per-dataset state and is safe for concurrent use.
type Processor struct {
	converter       *units.Converter
	defaultDecimals int
	logger          *slog.Logger
	now             func() time.Time
}

// NewProcessor creates a processor. A nil converter uses the built-in unit table.
func NewProcessor(converter *units.Converter, defaultDecimals int, logger *slog.Logger) *Processor {
	if converter == nil {
		converter = units.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		converter:       converter,
		defaultDecimals: defaultDecimals,
		logger:          logger.With("component", "processor"),
		now:             time.Now,
	}
}

// Apply computes op over the selected cells and returns a new table plus the
// record describing the change. t is never mutated; on error no table is
// returned. Empty cells inside the selection are left as they are.
func Apply(t *dataset.Table, sel dataset.Selection, op Operation) (*dataset.Table, dataset.ModificationRecord, error) {
	return NewProcessor(nil, config.DefaultDecimalPlaces, nil).Apply(t, sel, op)
}

// Apply computes op over the selected cells of t. See the package-level Apply.
func (p *Processor) Apply(t *dataset.Table, sel dataset.Selection, op Operation) (*dataset.Table, dataset.ModificationRecord, error) {
	var record dataset.ModificationRecord

	if err := sel.Validate(t); err != nil {
		return nil, record, err
	}
	if err := op.Validate(); err != nil {
		return nil, record, err
	}

	fn, param, expression, err := p.cellFunc(op)
	if err != nil {
		return nil, record, err
	}

	colIdx := sel.ColumnIndexes(t)

	// Reject the whole operation before touching anything
	for row := sel.Rows.Start; row <= sel.Rows.End; row++ {
		for i, c := range colIdx {
			cell := t.Rows[row][c]
			if !cell.IsNum && !cell.IsEmpty() {
				return nil, record, apperrors.NewAppValidationError(apperrors.CodeNonNumeric,
					fmt.Sprintf("cell %q at row %d, column %q is not numeric", cell.Text, row, sel.Columns[i]),
					ErrNonNumeric).
					WithContext("column", sel.Columns[i]).
					WithContext("row", row)
			}
		}
	}

	out := t.Clone()
	changed := 0
	for i, c := range colIdx {
		colFn := fn
		if op.Kind == OpFilter {
			colFn = filterColumn(t, c, sel.Rows, op)
		}
		for row := sel.Rows.Start; row <= sel.Rows.End; row++ {
			cell := out.Rows[row][c]
			if !cell.IsNum {
				continue
			}
			v, err := colFn(cell.Num, row)
			if err != nil {
				return nil, record, err
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, record, apperrors.NewAppValidationError(apperrors.CodeOverflow,
					fmt.Sprintf("%s on %g at row %d, column %q is out of range", op.Kind, cell.Num, row, sel.Columns[i]),
					ErrOverflow).
					WithContext("column", sel.Columns[i]).
					WithContext("row", row)
			}
			if v != cell.Num {
				changed++
			}
			out.Rows[row][c] = dataset.Number(v)
		}
	}

	record = dataset.ModificationRecord{
		ID:           uuid.New().String(),
		Kind:         string(op.Kind),
		Parameter:    param,
		Expression:   expression,
		Columns:      append([]string(nil), sel.Columns...),
		Rows:         sel.Rows,
		CellsChanged: changed,
		Timestamp:    p.now(),
	}

	p.logger.Debug("Operation applied",
		slog.String("operation", string(op.Kind)),
		slog.String("expression", expression),
		slog.Int("columns", len(colIdx)),
		slog.String("rows", sel.Rows.String()),
		slog.Int("cells_changed", changed))

	return out, record, nil
}

// cellFunc resolves op into a per-cell function, the numeric parameter
// recorded in history and a human-readable expression
func (p *Processor) cellFunc(op Operation) (func(float64, int) (float64, error), float64, string, error) {
	v := op.Param()
	switch op.Kind {
	case OpMultiply:
		return func(x float64, _ int) (float64, error) { return x * v, nil }, v, op.String(), nil
	case OpDivide:
		return func(x float64, _ int) (float64, error) { return x / v, nil }, v, op.String(), nil
	case OpAdd:
		return func(x float64, _ int) (float64, error) { return x + v, nil }, v, op.String(), nil
	case OpSubtract:
		return func(x float64, _ int) (float64, error) { return x - v, nil }, v, op.String(), nil

	case OpFormula:
		formula, err := CompileFormula(op.Formula, v)
		if err != nil {
			return nil, 0, "", err
		}
		return formula.Eval, v, formula.String(), nil

	case OpRound:
		places := p.defaultDecimals
		if op.Decimals != nil {
			places = *op.Decimals
		}
		return func(x float64, _ int) (float64, error) {
			return RoundHalfAwayFromZero(x, places), nil
		}, float64(places), Round(places).String(), nil

	case OpFilter:
		// filters work on whole columns; Apply builds one function per column
		return nil, op.Cutoff, op.String(), nil

	case OpConvert:
		factor, err := p.converter.Factor(op.FromUnit, op.ToUnit)
		if err != nil {
			return nil, 0, "", err
		}
		from, _ := units.Parse(op.FromUnit)
		to, _ := units.Parse(op.ToUnit)
		return func(x float64, _ int) (float64, error) { return x * factor, nil },
			factor, fmt.Sprintf("%s -> %s", from, to), nil
	}
	return nil, 0, "", apperrors.NewAppValidationError(apperrors.CodeInvalidParameter,
		fmt.Sprintf("unknown operation %q", op.Kind), ErrUnknownOperation)
}

// filterColumn filters the numeric cells of column c over rows and returns
// a per-cell lookup of the result. Empty cells are skipped, so the samples
// on either side of a gap are treated as adjacent.
func filterColumn(t *dataset.Table, c int, rows dataset.RowRange, op Operation) func(float64, int) (float64, error) {
	var (
		at []int
		xs []float64
	)
	for row := rows.Start; row <= rows.End; row++ {
		if cell := t.Rows[row][c]; cell.IsNum {
			at = append(at, row)
			xs = append(xs, cell.Num)
		}
	}
	ys := op.filterSeries(xs)
	filtered := make(map[int]float64, len(at))
	for i, row := range at {
		filtered[row] = ys[i]
	}
	return func(_ float64, row int) (float64, error) {
		return filtered[row], nil
	}
}

// RoundHalfAwayFromZero rounds x to places decimal places, with ties moving
// away from zero (2.5 -> 3, -2.5 -> -3)
func RoundHalfAwayFromZero(x float64, places int) float64 {
	v, _ := decimal.NewFromFloat(x).Round(int32(places)).Float64()
	return v
}
