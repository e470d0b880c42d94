package dataset

import (
	"fmt"
	"time"

	apperrors "datamod/internal/errors"
)

// Dataset holds a table as loaded and a separately tracked modified copy.
// Both copies always have the same columns and row count.
type Dataset struct {
	Name     string
	Path     string
	LoadedAt time.Time

	original *Table
	modified *Table
}

// New creates a dataset from columns and rows
func New(name string, columns []string, rows [][]Cell) (*Dataset, error) {
	t, err := NewTable(columns, rows)
	if err != nil {
		return nil, err
	}
	return FromTable(name, t), nil
}

// FromTable wraps t as the original table; the modified copy starts as a clone
func FromTable(name string, t *Table) *Dataset {
	return &Dataset{
		Name:     name,
		LoadedAt: time.Now(),
		original: t,
		modified: t.Clone(),
	}
}

// Original returns the table as loaded. Callers must not mutate it.
func (d *Dataset) Original() *Table {
	return d.original
}

// Modified returns the current working table. Callers must not mutate it;
// use ReplaceModified to change it.
func (d *Dataset) Modified() *Table {
	return d.modified
}

// Snapshot returns a deep copy of the modified table
func (d *Dataset) Snapshot() *Table {
	return d.modified.Clone()
}

// ReplaceModified swaps in a new modified table of identical shape
func (d *Dataset) ReplaceModified(t *Table) error {
	if !d.original.SameShape(t) {
		rows, cols := d.original.Shape()
		return apperrors.NewAppValidationError(apperrors.CodeShapeMismatch,
			fmt.Sprintf("replacement table does not match %d rows x %d columns", rows, cols), ErrShapeMismatch)
	}
	d.modified = t
	return nil
}

// Reset discards all modifications
func (d *Dataset) Reset() {
	d.modified = d.original.Clone()
}

// IsModified reports whether any cell differs from the original
func (d *Dataset) IsModified() bool {
	return !d.original.Equal(d.modified)
}

// Shape returns the row and column counts
func (d *Dataset) Shape() (rows, cols int) {
	return d.original.Shape()
}

// Columns lists the column names
func (d *Dataset) Columns() []string {
	return SelectAllColumns(d.original)
}
