package dataprocessing

import (
	"fmt"
	"math"
	"strings"
)

// FilterType selects the frequency response of a filter operation
type FilterType string

const (
	FilterLowPass  FilterType = "lowpass"
	FilterHighPass FilterType = "highpass"
	FilterBandPass FilterType = "bandpass"
	FilterBandStop FilterType = "bandstop"
)

// ParseFilterType resolves a filter name. The short forms lpf, hpf, bpf and
// bsf are accepted.
func ParseFilterType(s string) (FilterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lowpass", "low-pass", "lpf":
		return FilterLowPass, nil
	case "highpass", "high-pass", "hpf":
		return FilterHighPass, nil
	case "bandpass", "band-pass", "bpf":
		return FilterBandPass, nil
	case "bandstop", "band-stop", "bsf", "notch":
		return FilterBandStop, nil
	}
	return "", invalidParameter(fmt.Sprintf("unknown filter %q", s))
}

// IsBand reports whether the filter needs both a low and a high cutoff
func (f FilterType) IsBand() bool {
	return f == FilterBandPass || f == FilterBandStop
}

// validateFilter checks the filter parameters of o against the Nyquist limit
func (o Operation) validateFilter() error {
	ft, err := ParseFilterType(o.Filter)
	if err != nil {
		return err
	}
	if !(o.SampleRate > 0) || math.IsInf(o.SampleRate, 0) {
		return invalidParameter("filter needs a positive sample rate in Hz")
	}
	nyquist := o.SampleRate / 2
	if !(o.Cutoff > 0) || o.Cutoff >= nyquist {
		return invalidParameter(fmt.Sprintf("cutoff must be above 0 and below %g Hz", nyquist))
	}
	if ft.IsBand() && (!(o.CutoffHigh > o.Cutoff) || o.CutoffHigh >= nyquist) {
		return invalidParameter(fmt.Sprintf("%s needs a high cutoff between %g and %g Hz", ft, o.Cutoff, nyquist))
	}
	return nil
}

// filterSeries runs the filter of o over xs, which holds the samples of one
// column in row order. The result has the same length.
func (o Operation) filterSeries(xs []float64) []float64 {
	ft, _ := ParseFilterType(o.Filter)
	switch ft {
	case FilterHighPass:
		return highPass(xs, o.Cutoff, o.SampleRate)
	case FilterBandPass:
		return bandPass(xs, o.Cutoff, o.CutoffHigh, o.SampleRate)
	case FilterBandStop:
		return subtract(xs, bandPass(xs, o.Cutoff, o.CutoffHigh, o.SampleRate))
	default:
		return lowPass(xs, o.Cutoff, o.SampleRate)
	}
}

// lowPass is a first-order RC low-pass filter seeded with the first sample,
// so a constant series passes through unchanged
func lowPass(xs []float64, cutoff, rate float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	dt := 1 / rate
	rc := 1 / (2 * math.Pi * cutoff)
	alpha := dt / (rc + dt)

	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = out[i-1] + alpha*(xs[i]-out[i-1])
	}
	return out
}

func highPass(xs []float64, cutoff, rate float64) []float64 {
	return subtract(xs, lowPass(xs, cutoff, rate))
}

func bandPass(xs []float64, low, high, rate float64) []float64 {
	return lowPass(highPass(xs, low, rate), high, rate)
}

func subtract(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
