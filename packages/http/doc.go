// Package http provides the HTTP client used to run smoke test cases.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts and redirect handling
//   - Default headers applied to every request
//   - Query parameter encoding and JSON request bodies
//   - Fully buffered responses with timing
//   - Rendering of requests as curl commands for diagnostics
package http
