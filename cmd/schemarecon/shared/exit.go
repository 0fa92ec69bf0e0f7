package shared

import (
	"errors"

	"github.com/optyshop/schemarecon"
)

const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

// ExitError carries the process exit status for an error returned by a
// command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ConfigError marks err as a configuration or connection problem.
func ConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitConfig, Err: err}
}

// Failed marks err as a failed reconciliation or an unsatisfied verification.
func Failed(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitFailed, Err: err}
}

// ExitCode maps an error returned by a command to the process exit status:
//
//   - 0 when err is nil
//   - the code of an [ExitError]
//   - 2 for connection failures reported by the reconciler
//   - 1 otherwise
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if schemarecon.KindOf(err) == schemarecon.ConnectionError {
		return ExitConfig
	}
	return ExitFailed
}
