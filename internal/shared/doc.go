// Package shared holds helpers used across the datamod codebase that do not
// belong to any single domain package.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on log output
//	- file fixtures (CSV, delimited text, xlsx) for loader and service tests
//
// Example usage:
//
//	func TestLoad(t *testing.T) {
//	    path := testutil.WriteCSVFixture(t, t.TempDir(), "in.csv",
//	        testutil.SampleHeaders, testutil.SampleRows)
//	    ...
//	}
//
// testutil must not import domain packages, so every package can use it from
// its tests without import cycles.
package shared
