// Package runner executes smoke cases and collects their results.
//
// Each case sends exactly one request and evaluates every expectation
// against the response; there are no retries. Cases run sequentially in
// the order given, optionally filtered by name pattern or tag, paced by a
// token-bucket limiter, and stopped early on the first failure when Bail
// is set.
//
// For every case that builds a request the runner records a Curl
// attachment, plus a "Response Json" (pretty-printed) or "Response" (raw)
// attachment once a response arrives, and hands them to the configured
// report.Sink.
package runner
