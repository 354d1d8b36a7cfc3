package pipeline

import (
	"errors"
	"fmt"
)

// RunStatus summarizes how a batch ended. Its value is the process exit code.
type RunStatus int

const (
	RunComplete       RunStatus = 0
	RunPartial        RunStatus = 2 // some documents were skipped
	RunBudgetExceeded RunStatus = 3
	RunNoValidInput   RunStatus = 4
)

func (s RunStatus) String() string {
	switch s {
	case RunComplete:
		return "complete"
	case RunPartial:
		return "partial"
	case RunBudgetExceeded:
		return "budget_exceeded"
	case RunNoValidInput:
		return "no_valid_input"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ExitCode is the process exit code for the status.
func (s RunStatus) ExitCode() int { return int(s) }

func runStatus(valid, skipped int, budgetExceeded bool) RunStatus {
	switch {
	case budgetExceeded:
		return RunBudgetExceeded
	case valid == 0:
		return RunNoValidInput
	case skipped > 0:
		return RunPartial
	default:
		return RunComplete
	}
}

// ExitError reports a run that finished with a non-zero status. Results were still written.
type ExitError struct {
	Status RunStatus
	Msg    string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Msg)
}

func exitError(s RunStatus, msg string) error {
	if s == RunComplete {
		return nil
	}
	return &ExitError{Status: s, Msg: msg}
}

// ExitCode maps an error from a run to a process exit code: 0 for nil, the run status for
// *ExitError, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Status.ExitCode()
	}
	return 1
}

// Worst returns the more severe of two statuses.
func Worst(a, b RunStatus) RunStatus {
	rank := func(s RunStatus) int {
		switch s {
		case RunBudgetExceeded:
			return 3
		case RunNoValidInput:
			return 2
		case RunPartial:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
