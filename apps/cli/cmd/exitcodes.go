package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/runner"
)

// Exit codes for the smokecheck CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed
	ExitTestFailure = 1

	// ExitParseError indicates a case file could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates every failed case was a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries a process exit code out of a command. Err may be nil
// when the formatter already reported the outcome.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// errNoCasesMatched is reported when the filters left nothing to send.
var errNoCasesMatched = errors.New("no cases matched the --name/--tags filters")

// exitCodeFor maps a finished run to an exit code. Only a run that sent at
// least one request and saw every assertion pass succeeds.
func exitCodeFor(result *runner.RunResult) int {
	if result.Cancelled() {
		return ExitTestFailure
	}
	if result.Passed+result.Failed == 0 {
		return ExitUsageError
	}
	if result.Failed == 0 {
		return ExitSuccess
	}
	if result.Broken() == result.Failed {
		return ExitNetworkError
	}
	return ExitTestFailure
}
