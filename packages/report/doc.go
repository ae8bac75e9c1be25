// Package report records per-case diagnostics: the request as a curl
// command and the response body.
//
// Sinks:
//   - DirSink writes allure-compatible result and attachment files
//   - MemorySink keeps reports for tests and in-process inspection
//   - NopSink drops everything
package report
