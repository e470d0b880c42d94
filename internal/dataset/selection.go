package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "datamod/internal/errors"
)

// ErrInvalidSelection is the cause of every selection validation failure
var ErrInvalidSelection = errors.New("invalid selection")

// RowRange is an inclusive, zero-based row interval
type RowRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows covered
func (r RowRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether row i lies inside the range
func (r RowRange) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

// Validate checks 0 <= Start <= End < rowCount
func (r RowRange) Validate(rowCount int) error {
	if rowCount == 0 {
		return invalidSelection("the table has no rows")
	}
	if r.Start < 0 || r.End >= rowCount || r.Start > r.End {
		return invalidSelection(fmt.Sprintf("row range %d..%d is outside 0..%d", r.Start, r.End, rowCount-1)).
			WithContext("start", r.Start).
			WithContext("end", r.End)
	}
	return nil
}

// String renders the range as "start:end"
func (r RowRange) String() string {
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

// ParseRowRange parses "start:end" as written by String. It checks the
// shape only; bounds against a table are checked by Validate.
func ParseRowRange(s string) (RowRange, error) {
	lo, hi, found := strings.Cut(s, ":")
	if !found {
		return RowRange{}, invalidSelection(fmt.Sprintf("row range %q must look like start:end", s))
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return RowRange{}, invalidSelection(fmt.Sprintf("row range start %q is not an integer", lo))
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return RowRange{}, invalidSelection(fmt.Sprintf("row range end %q is not an integer", hi))
	}
	if start < 0 || end < start {
		return RowRange{}, invalidSelection(fmt.Sprintf("row range %d:%d is reversed or negative", start, end))
	}
	return RowRange{Start: start, End: end}, nil
}

// Selection names the columns and rows an operation applies to
type Selection struct {
	Columns []string `json:"columns"`
	Rows    RowRange `json:"rows"`
}

// SelectAllColumns lists every column of t
func SelectAllColumns(t *Table) []string {
	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)
	return columns
}

// SelectAllRows covers every row of t
func SelectAllRows(t *Table) RowRange {
	return RowRange{Start: 0, End: len(t.Rows) - 1}
}

// SelectAll selects the whole table
func SelectAll(t *Table) Selection {
	return Selection{Columns: SelectAllColumns(t), Rows: SelectAllRows(t)}
}

// Validate checks the selection against t: at least one column, every
// column present, no column twice, and a row range inside the table
func (s Selection) Validate(t *Table) error {
	if len(s.Columns) == 0 {
		return invalidSelection("no columns selected")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if _, ok := t.ColumnIndex(c); !ok {
			return invalidSelection(fmt.Sprintf("column %q does not exist", c)).WithContext("column", c)
		}
		if _, dup := seen[c]; dup {
			return invalidSelection(fmt.Sprintf("column %q selected twice", c)).WithContext("column", c)
		}
		seen[c] = struct{}{}
	}
	return s.Rows.Validate(len(t.Rows))
}

// ColumnIndexes resolves the selected column names against t. The
// selection must have been validated.
func (s Selection) ColumnIndexes(t *Table) []int {
	idx := make([]int, 0, len(s.Columns))
	for _, c := range s.Columns {
		if i, ok := t.ColumnIndex(c); ok {
			idx = append(idx, i)
		}
	}
	return idx
}

func invalidSelection(msg string) *apperrors.AppError {
	return apperrors.NewAppValidationError(apperrors.CodeInvalidSelection, msg, ErrInvalidSelection)
}
