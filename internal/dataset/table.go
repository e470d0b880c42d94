package dataset

import (
	"errors"
	"fmt"

	apperrors "datamod/internal/errors"
)

var (
	ErrShapeMismatch   = errors.New("table shape mismatch")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRaggedRow       = errors.New("row length differs from column count")
)

// Table is a rectangular grid of cells with named columns
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// NewTable builds a table, checking column names are unique and every row
// has one cell per column
func NewTable(columns []string, rows [][]Cell) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, apperrors.NewAppValidationError(apperrors.CodeShapeMismatch,
				fmt.Sprintf("column %q appears more than once", c), ErrDuplicateColumn)
		}
		seen[c] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, apperrors.NewAppValidationError(apperrors.CodeShapeMismatch,
				fmt.Sprintf("row %d has %d cells, expected %d", i, len(row), len(columns)), ErrRaggedRow)
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// Shape returns the row and column counts
func (t *Table) Shape() (rows, cols int) {
	return len(t.Rows), len(t.Columns)
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)

	rows := make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]Cell, len(row))
		copy(rows[i], row)
	}
	return &Table{Columns: columns, Rows: rows}
}

// ColumnIndex returns the position of a named column
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of the named column's cells
func (t *Table) Column(name string) ([]Cell, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, unknownColumn(name)
	}
	cells := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}

// NumericColumn returns the numeric values of a column within rows,
// skipping text and empty cells
func (t *Table) NumericColumn(name string, rows RowRange) ([]float64, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, unknownColumn(name)
	}
	if err := rows.Validate(len(t.Rows)); err != nil {
		return nil, err
	}
	values := make([]float64, 0, rows.Len())
	for r := rows.Start; r <= rows.End; r++ {
		if cell := t.Rows[r][idx]; cell.IsNum {
			values = append(values, cell.Num)
		}
	}
	return values, nil
}

// SameShape reports whether o has the same columns, in order, and row count
func (t *Table) SameShape(o *Table) bool {
	if o == nil || len(t.Rows) != len(o.Rows) || len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both tables have the same shape and cell values
func (t *Table) Equal(o *Table) bool {
	if !t.SameShape(o) {
		return false
	}
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if t.Rows[i][j] != o.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

func unknownColumn(name string) error {
	return apperrors.NewAppValidationError(apperrors.CodeInvalidSelection,
		fmt.Sprintf("column %q does not exist", name), ErrUnknownColumn).
		WithContext("column", name)
}
