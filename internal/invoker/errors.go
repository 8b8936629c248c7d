// SPDX-License-Identifier: MPL-2.0

package invoker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fnndsc/justci/pkg/types"
)

var (
	// ErrInvalidRequest is the sentinel error wrapped by InvalidRequestError.
	ErrInvalidRequest = errors.New("invalid invocation request")
	// ErrPreferenceFailed marks a failure of the engine-preference step.
	ErrPreferenceFailed = errors.New("container engine preference failed")
	// ErrAncillaryExhausted marks ancillary start-up that failed on every attempt.
	ErrAncillaryExhausted = errors.New("ancillary services failed to start")
	// ErrTaskFailed marks a non-zero exit of the requested task.
	ErrTaskFailed = errors.New("task failed")
	// ErrInterrupted marks a run stopped by context cancellation.
	ErrInterrupted = errors.New("invocation interrupted")
)

type (
	// InvalidRequestError is returned when a Request has invalid fields.
	// It wraps ErrInvalidRequest for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidRequestError struct {
		FieldErrors []error
	}

	// StepError reports the step that decided the run's failing exit code.
	StepError struct {
		Step     StepKind
		Args     []string
		ExitCode types.ExitCode
		// Err is set when the step could not be run at all, or, for
		// ancillary start-up, carries the retry exhaustion error.
		Err error
	}

	// exitStatusError reports a child that ran and exited non-zero.
	exitStatusError struct {
		code types.ExitCode
	}
)

// Error implements the error interface for InvalidRequestError.
func (e *InvalidRequestError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid invocation request: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidRequest and the field errors for errors.Is/As.
func (e *InvalidRequestError) Unwrap() []error {
	return append([]error{ErrInvalidRequest}, e.FieldErrors...)
}

// Error implements the error interface for StepError.
func (e *StepError) Error() string {
	label := string(e.Step)
	if len(e.Args) > 0 {
		label = fmt.Sprintf("%s (%s)", e.Step, strings.Join(e.Args, " "))
	}
	if e.Err != nil {
		return fmt.Sprintf("step %s failed with exit code %d: %v", label, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("step %s failed with exit code %d", label, e.ExitCode)
}

// Unwrap returns the step's sentinel error and the underlying cause, if any.
func (e *StepError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := e.Step.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
