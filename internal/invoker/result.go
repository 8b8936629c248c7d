// SPDX-License-Identifier: MPL-2.0

package invoker

import (
	"time"

	"github.com/fnndsc/justci/pkg/types"
)

type (
	// StepRecord is one task-runner invocation made during a run.
	StepRecord struct {
		Kind     StepKind
		Args     []string
		Attempt  int
		ExitCode types.ExitCode
		Duration time.Duration
		// Err holds the launch error when the child could not be run.
		Err string
	}

	// Result is the outcome of Invoker.Run.
	Result struct {
		// ExitCode is the status the calling process should terminate with.
		ExitCode types.ExitCode
		// Steps lists every invocation in the order it was made.
		Steps []StepRecord
	}
)

// Invocations returns the argument lists of every step, in order.
func (r *Result) Invocations() [][]string {
	out := make([][]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Args
	}
	return out
}

// Attempts returns how many times a step kind was invoked.
func (r *Result) Attempts(kind StepKind) int {
	n := 0
	for _, s := range r.Steps {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Duration returns the summed wall-clock time of all steps.
func (r *Result) Duration() time.Duration {
	var d time.Duration
	for _, s := range r.Steps {
		d += s.Duration
	}
	return d
}
