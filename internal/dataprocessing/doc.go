// Package dataprocessing loads tabular files and applies value transformations
// to a selection of cells.
//
// # Architecture
//
// The package is organized into two main components:
//
// 1. Loader: reads .xlsx, .xls, .csv and .txt files into a dataset.Dataset
// 2. Processor: applies an Operation to a dataset.Selection of a table
//
// # Usage
//
// Loading a file:
//
//	loader := dataprocessing.NewLoader(validator, logger)
//	ds, err := loader.Load(ctx, "measurements.xlsx")
//
// Applying an operation:
//
//	sel := dataset.Selection{Columns: []string{"Seconds"}, Rows: dataset.RowRange{Start: 0, End: 9}}
//	next, record, err := dataprocessing.Apply(ds.Modified(), sel, dataprocessing.Multiply(60))
//
// Apply never mutates its input. The caller decides whether to commit the
// returned table (see services.SessionService) or only display it.
//
// # Operations
//
//	multiply, divide, add, subtract   x op value
//	round                             half away from zero, 0 to 15 places
//	convert                           x * factor[from][to] (package units)
//	formula                           expression over x, p and row
//
// Formulas are compiled once with expr-lang/expr. Besides the expr built-ins
// (abs, min, max, floor, ceil, round) they may call sqrt, pow, log and exp.
//
// # Error Handling
//
// All failures are *errors.AppError values wrapping a package sentinel, so
// callers can match them with errors.Is:
//
//   - ErrNonNumeric carries the offending column and row in its context
//   - ErrDivisionByZero, ErrOverflow and ErrInvalidFormula are validation errors
//   - loader errors are FILE_LOAD errors wrapping validation.Err* or ErrCorruptFile
package dataprocessing
