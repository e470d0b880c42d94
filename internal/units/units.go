// Package units converts time values between seconds, minutes, hours and days.
//
// The factor table is declared, not derived: every (from, to) pair has its own
// entry, so a conversion is a single multiplication.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"datamod/internal/config"
	apperrors "datamod/internal/errors"
)

// Unit is a canonical time unit name
type Unit string

const (
	Second Unit = "second"
	Minute Unit = "minute"
	Hour   Unit = "hour"
	Day    Unit = "day"
)

var (
	ErrUnsupportedUnit    = errors.New("unsupported unit")
	ErrInvalidFactorTable = errors.New("invalid unit factor table")
)

// all lists the supported units in canonical order
var all = []Unit{Second, Minute, Hour, Day}

var aliases = map[string]Unit{
	"s": Second, "sec": Second, "secs": Second, "second": Second, "seconds": Second, "초": Second,
	"m": Minute, "min": Minute, "mins": Minute, "minute": Minute, "minutes": Minute, "분": Minute,
	"h": Hour, "hr": Hour, "hrs": Hour, "hour": Hour, "hours": Hour, "시간": Hour,
	"d": Day, "day": Day, "days": Day, "일": Day,
}

var builtin = map[Unit]map[Unit]float64{
	Second: {Second: 1, Minute: 1.0 / 60, Hour: 1.0 / 3600, Day: 1.0 / 86400},
	Minute: {Second: 60, Minute: 1, Hour: 1.0 / 60, Day: 1.0 / 1440},
	Hour:   {Second: 3600, Minute: 60, Hour: 1, Day: 1.0 / 24},
	Day:    {Second: 86400, Minute: 1440, Hour: 24, Day: 1},
}

// Units lists the supported units in canonical order
func Units() []Unit {
	out := make([]Unit, len(all))
	copy(out, all)
	return out
}

// Parse resolves a unit name or alias, case-insensitively
func Parse(name string) (Unit, error) {
	if u, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return u, nil
	}
	return "", apperrors.NewAppValidationError(apperrors.CodeUnsupportedUnit,
		fmt.Sprintf("unit %q is not one of second, minute, hour, day", name), ErrUnsupportedUnit).
		WithContext("unit", name)
}

// Converter multiplies values by a factor looked up in its table
type Converter struct {
	factors map[Unit]map[Unit]float64
}

// Default returns a converter over the built-in factor table
func Default() *Converter {
	return &Converter{factors: builtin}
}

// NewConverter builds a converter from a factor document. All twelve
// directed pairs between distinct units must be present, positive and
// finite; identity factors are always 1.
func NewConverter(doc config.UnitFactors) (*Converter, error) {
	factors := make(map[Unit]map[Unit]float64, len(all))
	for _, from := range all {
		factors[from] = map[Unit]float64{from: 1}
		row := doc[string(from)]
		for _, to := range all {
			if from == to {
				continue
			}
			f, ok := row[string(to)]
			if !ok {
				return nil, apperrors.NewConfigError(
					fmt.Sprintf("missing factor %s -> %s", from, to), ErrInvalidFactorTable)
			}
			if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, apperrors.NewConfigError(
					fmt.Sprintf("factor %s -> %s must be positive and finite, got %v", from, to, f), ErrInvalidFactorTable)
			}
			factors[from][to] = f
		}
	}
	return &Converter{factors: factors}, nil
}

// Load reads the factor document at path. A missing document yields the
// built-in table.
func Load(path string) (*Converter, error) {
	doc, err := config.LoadUnitFactors(path)
	if err != nil {
		return nil, apperrors.NewConfigError("cannot read unit factors", err)
	}
	if doc == nil {
		return Default(), nil
	}
	return NewConverter(doc)
}

// Factor returns the multiplier converting from into to
func (c *Converter) Factor(from, to string) (float64, error) {
	f, t, err := parsePair(from, to)
	if err != nil {
		return 0, err
	}
	return c.factors[f][t], nil
}

// Convert returns value expressed in unit to
func (c *Converter) Convert(value float64, from, to string) (float64, error) {
	factor, err := c.Factor(from, to)
	if err != nil {
		return 0, err
	}
	return value * factor, nil
}

// Table returns a copy of the full factor table keyed by unit name
func (c *Converter) Table() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(c.factors))
	for from, row := range c.factors {
		out[string(from)] = make(map[string]float64, len(row))
		for to, f := range row {
			out[string(from)][string(to)] = f
		}
	}
	return out
}

// Convert converts with the built-in table
func Convert(value float64, from, to string) (float64, error) {
	return Default().Convert(value, from, to)
}

func parsePair(from, to string) (Unit, Unit, error) {
	f, err := Parse(from)
	if err != nil {
		return "", "", err
	}
	t, err := Parse(to)
	if err != nil {
		return "", "", err
	}
	return f, t, nil
}
