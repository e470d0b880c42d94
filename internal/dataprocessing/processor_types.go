package dataprocessing

import (
	"fmt"
	"math"
	"strings"

	"datamod/internal/config"
	apperrors "datamod/internal/errors"
)

// OperationKind identifies a transformation applied to selected cells
type OperationKind string

const (
	OpMultiply OperationKind = "multiply"
	OpDivide   OperationKind = "divide"
	OpAdd      OperationKind = "add"
	OpSubtract OperationKind = "subtract"
	OpFormula  OperationKind = "formula"
	OpRound    OperationKind = "round"
	OpConvert  OperationKind = "convert"
	OpFilter   OperationKind = "filter"
)

// Kinds lists every operation kind in display order
func Kinds() []OperationKind {
	return []OperationKind{OpMultiply, OpDivide, OpAdd, OpSubtract, OpFormula, OpRound, OpConvert, OpFilter}
}

// ParseKind resolves an operation name, accepting the arithmetic symbols as
// shorthands
func ParseKind(s string) (OperationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiply", "*", "x", "mul":
		return OpMultiply, nil
	case "divide", "/", "div":
		return OpDivide, nil
	case "add", "+":
		return OpAdd, nil
	case "subtract", "-", "sub":
		return OpSubtract, nil
	case "formula", "expr", "custom":
		return OpFormula, nil
	case "round":
		return OpRound, nil
	case "convert", "unit":
		return OpConvert, nil
	case "filter":
		return OpFilter, nil
	}
	return "", apperrors.NewAppValidationError(apperrors.CodeInvalidParameter,
		fmt.Sprintf("unknown operation %q", s), ErrUnknownOperation).WithContext("operation", s)
}

// Operation describes one transformation. Only the fields relevant to Kind
// are read: Value for arithmetic, Formula (and optionally Value as p) for
// formula, Decimals for round, FromUnit/ToUnit for convert and the filter
// fields for filter. Value is a
// pointer so an omitted operand is rejected instead of read as zero.
type Operation struct {
	Kind     OperationKind `json:"kind" validate:"required,oneof=multiply divide add subtract formula round convert filter"`
	Value    *float64      `json:"value,omitempty"`
	Formula  string        `json:"formula,omitempty" validate:"required_if=Kind formula,max=512"`
	Decimals *int          `json:"decimals,omitempty" validate:"omitempty,gte=0,lte=15"`
	FromUnit string        `json:"from_unit,omitempty" validate:"required_if=Kind convert"`
	ToUnit   string        `json:"to_unit,omitempty" validate:"required_if=Kind convert"`

	// Filter is lowpass, highpass, bandpass or bandstop. Cutoff is the corner
	// frequency in Hz, CutoffHigh the upper corner of a band, and SampleRate
	// the row rate of the data in Hz.
	Filter     string  `json:"filter,omitempty" validate:"required_if=Kind filter"`
	Cutoff     float64 `json:"cutoff,omitempty" validate:"required_if=Kind filter"`
	CutoffHigh float64 `json:"cutoff_high,omitempty"`
	SampleRate float64 `json:"sample_rate,omitempty" validate:"required_if=Kind filter"`
}

// Multiply returns a multiply operation
func Multiply(v float64) Operation { return Operation{Kind: OpMultiply, Value: &v} }

// Divide returns a divide operation
func Divide(v float64) Operation { return Operation{Kind: OpDivide, Value: &v} }

// Add returns an add operation
func Add(v float64) Operation { return Operation{Kind: OpAdd, Value: &v} }

// Subtract returns a subtract operation
func Subtract(v float64) Operation { return Operation{Kind: OpSubtract, Value: &v} }

// Formula returns a formula operation with p bound to param
func Formula(expression string, param float64) Operation {
	return Operation{Kind: OpFormula, Formula: expression, Value: &param}
}

// Round returns a round operation to the given number of decimal places
func Round(decimals int) Operation { return Operation{Kind: OpRound, Decimals: &decimals} }

// Convert returns a unit conversion operation
func Convert(from, to string) Operation {
	return Operation{Kind: OpConvert, FromUnit: from, ToUnit: to}
}

// Filter returns a low- or high-pass filter operation over rows sampled at rate Hz
func Filter(ft FilterType, cutoff, rate float64) Operation {
	return Operation{Kind: OpFilter, Filter: string(ft), Cutoff: cutoff, SampleRate: rate}
}

// BandFilter returns a band-pass or band-stop filter between low and high Hz
func BandFilter(ft FilterType, low, high, rate float64) Operation {
	return Operation{Kind: OpFilter, Filter: string(ft), Cutoff: low, CutoffHigh: high, SampleRate: rate}
}

// Param returns the numeric operand, zero when none was given
func (o Operation) Param() float64 {
	if o.Value == nil {
		return 0
	}
	return *o.Value
}

// Validate checks the parameters that do not depend on the data
func (o Operation) Validate() error {
	switch o.Kind {
	case OpMultiply, OpDivide, OpAdd, OpSubtract:
		if o.Value == nil {
			return invalidParameter(fmt.Sprintf("%s needs a value", o.Kind))
		}
		if math.IsNaN(*o.Value) || math.IsInf(*o.Value, 0) {
			return invalidParameter(fmt.Sprintf("%s needs a finite value", o.Kind))
		}
		if o.Kind == OpDivide && *o.Value == 0 {
			return apperrors.NewAppValidationError(apperrors.CodeDivisionByZero,
				"cannot divide by zero", ErrDivisionByZero)
		}
	case OpFormula:
		if strings.TrimSpace(o.Formula) == "" {
			return apperrors.NewAppValidationError(apperrors.CodeInvalidFormula,
				"formula is empty", ErrInvalidFormula)
		}
	case OpRound:
		if o.Decimals != nil && (*o.Decimals < 0 || *o.Decimals > config.MaxDecimalPlaces) {
			return invalidParameter(fmt.Sprintf("decimal places must be between 0 and %d", config.MaxDecimalPlaces))
		}
	case OpConvert:
		if o.FromUnit == "" || o.ToUnit == "" {
			return invalidParameter("convert needs both from and to units")
		}
	case OpFilter:
		return o.validateFilter()
	default:
		return apperrors.NewAppValidationError(apperrors.CodeInvalidParameter,
			fmt.Sprintf("unknown operation %q", o.Kind), ErrUnknownOperation)
	}
	return nil
}

// String renders the operation the way it appears in history listings
func (o Operation) String() string {
	switch o.Kind {
	case OpMultiply:
		return fmt.Sprintf("x * %g", o.Param())
	case OpDivide:
		return fmt.Sprintf("x / %g", o.Param())
	case OpAdd:
		return fmt.Sprintf("x + %g", o.Param())
	case OpSubtract:
		return fmt.Sprintf("x - %g", o.Param())
	case OpFormula:
		return o.Formula
	case OpRound:
		if o.Decimals == nil {
			return "round(x)"
		}
		return fmt.Sprintf("round(x, %d)", *o.Decimals)
	case OpConvert:
		return fmt.Sprintf("%s -> %s", o.FromUnit, o.ToUnit)
	case OpFilter:
		name := o.Filter
		ft, err := ParseFilterType(o.Filter)
		if err == nil {
			name = string(ft)
		}
		if ft.IsBand() {
			return fmt.Sprintf("%s(x, %g-%g Hz @ %g Hz)", name, o.Cutoff, o.CutoffHigh, o.SampleRate)
		}
		return fmt.Sprintf("%s(x, %g Hz @ %g Hz)", name, o.Cutoff, o.SampleRate)
	}
	return string(o.Kind)
}

func invalidParameter(msg string) *apperrors.AppError {
	return apperrors.NewAppValidationError(apperrors.CodeInvalidParameter, msg, ErrInvalidParameter)
}
