package analytics

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"datamod/internal/dataset"
)

// ChartKind is the kind of comparison chart drawn for a column
type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
)

var (
	timeHeaderTokens = []string{"time", "date", "timestamp", "datetime"}
	timeHeaderHangul = []string{"시간", "일자", "날짜"}

	timeLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02",
		"15:04:05",
	}
)

// IsTimeHeader reports whether a column name reads like a time axis
func IsTimeHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, h := range timeHeaderHangul {
		if strings.Contains(lower, h) {
			return true
		}
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, tok := range tokens {
		for _, h := range timeHeaderTokens {
			if tok == h {
				return true
			}
		}
	}
	return false
}

// ParseTimestamp tries the supported timestamp layouts in order
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// IsTimeIndexed reports whether a column is a time axis: either its header
// says so or every non-empty cell is a timestamp
func IsTimeIndexed(name string, cells []dataset.Cell) bool {
	if IsTimeHeader(name) {
		return true
	}
	seen := 0
	for _, c := range cells {
		if c.IsEmpty() {
			continue
		}
		if c.IsNum {
			return false
		}
		if _, ok := ParseTimestamp(c.Text); !ok {
			return false
		}
		seen++
	}
	return seen > 0
}

// ChooseChartKind picks line for time-indexed columns, bar for categorical
// (non-numeric) ones and scatter otherwise
func ChooseChartKind(name string, cells []dataset.Cell) ChartKind {
	if IsTimeIndexed(name, cells) {
		return ChartLine
	}
	for _, c := range cells {
		if !c.IsNum && !c.IsEmpty() {
			return ChartBar
		}
	}
	return ChartScatter
}

// Point is one plotted value
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChartSpec is everything needed to render a before/after comparison chart.
// Line and scatter charts use Before/After; bar charts use Categories with
// the per-category counts.
type ChartSpec struct {
	Title  string    `json:"title"`
	Kind   ChartKind `json:"kind"`
	XLabel string    `json:"x_label"`
	YLabel string    `json:"y_label"`
	// TimeAxis marks X values as Unix seconds
	TimeAxis bool `json:"time_axis"`

	Before []Point `json:"before,omitempty"`
	After  []Point `json:"after,omitempty"`

	Categories   []string  `json:"categories,omitempty"`
	BeforeCounts []float64 `json:"before_counts,omitempty"`
	AfterCounts  []float64 `json:"after_counts,omitempty"`

	Comparison Comparison `json:"comparison"`
}

// BuildChart prepares a comparison of column over rows between the original
// and modified tables. When the plotted column is numeric and the table has
// another time-indexed column, that column becomes the X axis of a line
// chart; otherwise X is the row index.
func BuildChart(before, after *dataset.Table, column string, rows dataset.RowRange) (ChartSpec, error) {
	sel := dataset.Selection{Columns: []string{column}, Rows: rows}
	if err := sel.Validate(after); err != nil {
		return ChartSpec{}, err
	}
	if !before.SameShape(after) {
		return ChartSpec{}, fmt.Errorf("compare %s: %w", column, dataset.ErrShapeMismatch)
	}

	col, _ := after.ColumnIndex(column)
	beforeCells := slice(before, col, rows)
	afterCells := slice(after, col, rows)

	spec := ChartSpec{
		Title:  fmt.Sprintf("%s (rows %d-%d)", column, rows.Start+1, rows.End+1),
		Kind:   ChooseChartKind(column, afterCells),
		XLabel: "Row",
		YLabel: column,
	}

	bv, _ := before.NumericColumn(column, rows)
	av, _ := after.NumericColumn(column, rows)
	spec.Comparison = Compare(bv, av)
	spec.Comparison.Column = column

	if spec.Kind == ChartBar {
		spec.Categories, spec.BeforeCounts, spec.AfterCounts = countCategories(beforeCells, afterCells)
		spec.XLabel = column
		spec.YLabel = "Count"
		return spec, nil
	}

	axis := -1
	if spec.Kind == ChartScatter {
		axis = findTimeAxis(after, col)
		if axis >= 0 {
			spec.Kind = ChartLine
			spec.XLabel = after.Columns[axis]
		}
	}

	for r := rows.Start; r <= rows.End; r++ {
		x, isTime, ok := xValue(after, axis, r)
		if !ok {
			continue
		}
		spec.TimeAxis = spec.TimeAxis || isTime
		if c := before.Rows[r][col]; c.IsNum {
			spec.Before = append(spec.Before, Point{X: x, Y: c.Num})
		}
		if c := after.Rows[r][col]; c.IsNum {
			spec.After = append(spec.After, Point{X: x, Y: c.Num})
		}
	}
	return spec, nil
}

func slice(t *dataset.Table, col int, rows dataset.RowRange) []dataset.Cell {
	out := make([]dataset.Cell, 0, rows.Len())
	for r := rows.Start; r <= rows.End; r++ {
		out = append(out, t.Rows[r][col])
	}
	return out
}

// findTimeAxis returns the first time-indexed column other than skip, or -1
func findTimeAxis(t *dataset.Table, skip int) int {
	for i, name := range t.Columns {
		if i == skip {
			continue
		}
		cells, _ := t.Column(name)
		if IsTimeIndexed(name, cells) {
			return i
		}
	}
	return -1
}

func xValue(t *dataset.Table, axis, row int) (x float64, isTime, ok bool) {
	if axis < 0 {
		return float64(row), false, true
	}
	c := t.Rows[row][axis]
	if c.IsNum {
		return c.Num, false, true
	}
	if ts, ok := ParseTimestamp(c.Text); ok {
		return float64(ts.Unix()), true, true
	}
	return 0, false, false
}

// countCategories tallies text values in order of first appearance
func countCategories(before, after []dataset.Cell) ([]string, []float64, []float64) {
	index := make(map[string]int)
	var names []string
	for _, cells := range [][]dataset.Cell{before, after} {
		for _, c := range cells {
			if c.IsEmpty() {
				continue
			}
			if _, ok := index[c.String()]; !ok {
				index[c.String()] = len(names)
				names = append(names, c.String())
			}
		}
	}

	tally := func(cells []dataset.Cell) []float64 {
		counts := make([]float64, len(names))
		for _, c := range cells {
			if !c.IsEmpty() {
				counts[index[c.String()]]++
			}
		}
		return counts
	}
	return names, tally(before), tally(after)
}
