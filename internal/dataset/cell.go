package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalNumber matches plain decimal notation with an optional exponent.
// Hex floats and digit separators stay text.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Cell is a single table value: a finite number or text. Empty cells are
// text "".
type Cell struct {
	Num   float64 `json:"num,omitempty"`
	Text  string  `json:"text,omitempty"`
	IsNum bool    `json:"is_num"`
}

// Number creates a numeric cell
func Number(v float64) Cell {
	return Cell{Num: v, IsNum: true}
}

// Text creates a text cell
func Text(s string) Cell {
	return Cell{Text: s}
}

// ParseCell classifies a raw value read from a file. Surrounding whitespace
// is ignored. Only decimal notation is numeric.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Text("")
	}
	if !decimalNumber.MatchString(s) {
		return Text(raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return Text(raw)
	}
	return Number(v)
}

// IsEmpty reports whether the cell holds no value
func (c Cell) IsEmpty() bool {
	return !c.IsNum && strings.TrimSpace(c.Text) == ""
}

// String renders the cell for text output. Numbers use the shortest
// representation that round-trips, without exponent notation.
func (c Cell) String() string {
	if c.IsNum {
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	}
	return c.Text
}

// Value returns the cell as a float64 or a string, for writers that keep
// native types.
func (c Cell) Value() interface{} {
	if c.IsNum {
		return c.Num
	}
	return c.Text
}
