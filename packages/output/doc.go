// Package output provides formatters for displaying smoke run results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output with a latency line
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration, one testsuite per target
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate results before output.
package output
