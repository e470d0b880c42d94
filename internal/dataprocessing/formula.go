package dataprocessing

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	apperrors "datamod/internal/errors"
)

// CompiledFormula is an expression over the cell value x, the parameter p and
// the zero-based row index row. It is compiled once and evaluated per cell.
type CompiledFormula struct {
	source  string
	program *vm.Program
	param   float64
}

// formulaEnv declares the only identifiers a formula may reference besides
// the built-in and registered functions
func formulaEnv(x, p float64, row int) map[string]interface{} {
	return map[string]interface{}{
		"x":   x,
		"p":   p,
		"row": row,
	}
}

// CompileFormula parses and type-checks expression
func CompileFormula(expression string, param float64) (*CompiledFormula, error) {
	opts := []expr.Option{
		expr.Env(formulaEnv(0, 0, 0)),
		unaryFunc("sqrt", math.Sqrt),
		unaryFunc("log", math.Log),
		unaryFunc("exp", math.Exp),
		expr.Function("pow", func(params ...interface{}) (interface{}, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("pow expects 2 arguments, got %d", len(params))
			}
			base, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			exp, err := toFloat(params[1])
			if err != nil {
				return nil, err
			}
			return math.Pow(base, exp), nil
		}),
	}

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, apperrors.NewAppValidationError(apperrors.CodeInvalidFormula,
			fmt.Sprintf("invalid formula %q: %v", expression, err), ErrInvalidFormula).
			WithContext("formula", expression)
	}
	return &CompiledFormula{source: expression, program: program, param: param}, nil
}

// Eval evaluates the formula for one cell
func (f *CompiledFormula) Eval(x float64, row int) (float64, error) {
	out, err := expr.Run(f.program, formulaEnv(x, f.param, row))
	if err != nil {
		return 0, apperrors.NewAppValidationError(apperrors.CodeInvalidFormula,
			fmt.Sprintf("formula %q failed at row %d: %v", f.source, row, err), ErrInvalidFormula).
			WithContext("formula", f.source).
			WithContext("row", row)
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, apperrors.NewAppValidationError(apperrors.CodeInvalidFormula,
			fmt.Sprintf("formula %q must produce a number, got %T", f.source, out), ErrInvalidFormula).
			WithContext("formula", f.source)
	}
	return v, nil
}

// String returns the source expression
func (f *CompiledFormula) String() string {
	return f.source
}

func unaryFunc(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...interface{}) (interface{}, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
		}
		v, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	})
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
