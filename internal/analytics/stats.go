// Package analytics computes summary statistics for a column before and after
// modification and prepares the data for a comparison chart.
package analytics

import "math"

// Stats summarizes a set of numeric values. StdDev is the population
// standard deviation.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Compute returns the statistics of values. Empty input yields the zero Stats.
func Compute(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{Count: len(values), Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		d := v - s.Mean
		sumSq += d * d
	}
	s.StdDev = math.Sqrt(sumSq / float64(len(values)))
	return s
}

// Comparison holds before and after statistics for one column
type Comparison struct {
	Column string `json:"column,omitempty"`
	Before Stats  `json:"before"`
	After  Stats  `json:"after"`

	// MeanDelta is After.Mean - Before.Mean
	MeanDelta float64 `json:"mean_delta"`
	// MaxAbsDelta and Changed are element-wise and only set when both
	// inputs have the same length
	MaxAbsDelta float64 `json:"max_abs_delta"`
	Changed     int     `json:"changed"`
}

// Compare computes statistics for before and after and their differences
func Compare(before, after []float64) Comparison {
	c := Comparison{
		Before: Compute(before),
		After:  Compute(after),
	}
	c.MeanDelta = c.After.Mean - c.Before.Mean

	if len(before) != len(after) {
		return c
	}
	for i := range before {
		d := math.Abs(after[i] - before[i])
		if d > c.MaxAbsDelta {
			c.MaxAbsDelta = d
		}
		if after[i] != before[i] {
			c.Changed++
		}
	}
	return c
}
