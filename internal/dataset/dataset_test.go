package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "datamod/internal/errors"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		[]string{"Seconds", "Value", "Label"},
		[][]Cell{
			{Number(10), Number(1), Text("a")},
			{Number(20), Number(2), Text("b")},
			{Number(30), Number(3), Text("")},
		},
	)
	require.NoError(t, err)
	return table
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want Cell
	}{
		{"42", Number(42)},
		{" -1.5 ", Number(-1.5)},
		{"1e3", Number(1000)},
		{"", Text("")},
		{"   ", Text("")},
		{"abc", Text("abc")},
		{"1,000", Text("1,000")},
		{"NaN", Text("NaN")},
		{"Inf", Text("Inf")},
		{".5", Number(0.5)},
		{"+3", Number(3)},
		{"2.", Number(2)},
		{"1E-2", Number(0.01)},
		{"0x1p-2", Text("0x1p-2")},
		{"0x_1p0", Text("0x_1p0")},
		{"1_000", Text("1_000")},
		{"1e400", Text("1e400")},
		{"--1", Text("--1")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCell(tt.raw))
		})
	}
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "0.5", Number(0.5).String())
	assert.Equal(t, "60", Number(60).String())
	assert.Equal(t, "100000000000000000000", Number(1e20).String())
	assert.Equal(t, "x", Text("x").String())
	assert.True(t, Text(" ").IsEmpty())
	assert.False(t, Number(0).IsEmpty())
	assert.Equal(t, 2.5, Number(2.5).Value())
	assert.Equal(t, "a", Text("a").Value())
}

func TestNewTable(t *testing.T) {
	_, err := NewTable([]string{"a", "a"}, nil)
	assert.True(t, errors.Is(err, ErrDuplicateColumn))

	_, err = NewTable([]string{"a", "b"}, [][]Cell{{Number(1)}})
	assert.True(t, errors.Is(err, ErrRaggedRow))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	table, err := NewTable([]string{"a"}, [][]Cell{{Number(1)}, {Number(2)}})
	require.NoError(t, err)
	rows, cols := table.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)
}

func TestTableClone(t *testing.T) {
	table := sampleTable(t)
	clone := table.Clone()

	require.True(t, table.Equal(clone))
	clone.Rows[0][0] = Number(99)
	clone.Columns[0] = "Renamed"

	assert.Equal(t, Number(10), table.Rows[0][0])
	assert.Equal(t, "Seconds", table.Columns[0])
	assert.False(t, table.Equal(clone))
}

func TestTableColumns(t *testing.T) {
	table := sampleTable(t)

	cells, err := table.Column("Label")
	require.NoError(t, err)
	assert.Equal(t, []Cell{Text("a"), Text("b"), Text("")}, cells)

	_, err = table.Column("Missing")
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	values, err := table.NumericColumn("Seconds", RowRange{Start: 1, End: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 30}, values)

	values, err = table.NumericColumn("Label", SelectAllRows(table))
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = table.NumericColumn("Seconds", RowRange{Start: 0, End: 3})
	assert.True(t, errors.Is(err, ErrInvalidSelection))
}

func TestSelectionValidate(t *testing.T) {
	table := sampleTable(t)

	tests := []struct {
		name    string
		sel     Selection
		wantErr bool
	}{
		{"whole table", SelectAll(table), false},
		{"single cell", Selection{Columns: []string{"Value"}, Rows: RowRange{Start: 2, End: 2}}, false},
		{"no columns", Selection{Rows: RowRange{Start: 0, End: 0}}, true},
		{"unknown column", Selection{Columns: []string{"Nope"}, Rows: RowRange{Start: 0, End: 0}}, true},
		{"duplicate column", Selection{Columns: []string{"Value", "Value"}, Rows: RowRange{Start: 0, End: 0}}, true},
		{"start after end", Selection{Columns: []string{"Value"}, Rows: RowRange{Start: 2, End: 1}}, true},
		{"negative start", Selection{Columns: []string{"Value"}, Rows: RowRange{Start: -1, End: 1}}, true},
		{"end past last row", Selection{Columns: []string{"Value"}, Rows: RowRange{Start: 0, End: 3}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate(table)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidSelection))
				appErr, ok := apperrors.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperrors.CodeInvalidSelection, appErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectionOnEmptyTable(t *testing.T) {
	table, err := NewTable([]string{"a"}, nil)
	require.NoError(t, err)

	err = SelectAll(table).Validate(table)
	assert.True(t, errors.Is(err, ErrInvalidSelection))
}

func TestRowRange(t *testing.T) {
	r := RowRange{Start: 1, End: 3}
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(4))
	assert.Equal(t, "1:3", r.String())
	assert.Equal(t, 0, RowRange{Start: 2, End: 1}.Len())
}

func TestColumnIndexes(t *testing.T) {
	table := sampleTable(t)
	sel := Selection{Columns: []string{"Label", "Seconds"}, Rows: SelectAllRows(table)}
	assert.Equal(t, []int{2, 0}, sel.ColumnIndexes(table))
}

func TestDatasetLifecycle(t *testing.T) {
	ds, err := New("sample.csv", []string{"x"}, [][]Cell{{Number(1)}, {Number(2)}})
	require.NoError(t, err)
	assert.False(t, ds.IsModified())
	assert.Equal(t, []string{"x"}, ds.Columns())

	next := ds.Snapshot()
	next.Rows[0][0] = Number(60)
	require.NoError(t, ds.ReplaceModified(next))

	assert.True(t, ds.IsModified())
	assert.Equal(t, Number(1), ds.Original().Rows[0][0])
	assert.Equal(t, Number(60), ds.Modified().Rows[0][0])

	ds.Reset()
	assert.False(t, ds.IsModified())
	assert.NotSame(t, ds.Original(), ds.Modified())
}

func TestDatasetReplaceModifiedShapeCheck(t *testing.T) {
	ds, err := New("s", []string{"x", "y"}, [][]Cell{{Number(1), Number(2)}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		table *Table
	}{
		{"nil", nil},
		{"extra row", &Table{Columns: []string{"x", "y"}, Rows: [][]Cell{{Number(1), Number(2)}, {Number(3), Number(4)}}}},
		{"renamed column", &Table{Columns: []string{"x", "z"}, Rows: [][]Cell{{Number(1), Number(2)}}}},
		{"missing column", &Table{Columns: []string{"x"}, Rows: [][]Cell{{Number(1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ds.ReplaceModified(tt.table)
			assert.True(t, errors.Is(err, ErrShapeMismatch))
			assert.Equal(t, Number(1), ds.Modified().Rows[0][0])
		})
	}
}

func TestParseRowRange(t *testing.T) {
	tests := []struct {
		in      string
		want    RowRange
		wantErr bool
	}{
		{in: "0:1", want: RowRange{Start: 0, End: 1}},
		{in: " 2 : 2 ", want: RowRange{Start: 2, End: 2}},
		{in: "5", wantErr: true},
		{in: "a:2", wantErr: true},
		{in: "1:b", wantErr: true},
		{in: "3:1", wantErr: true},
		{in: "-1:2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRowRange(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidSelection))
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, must(ParseRowRange(got.String())))
		})
	}
}

func must(r RowRange, err error) RowRange {
	if err != nil {
		panic(err)
	}
	return r
}
