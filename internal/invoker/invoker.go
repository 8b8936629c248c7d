// SPDX-License-Identifier: MPL-2.0

package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fnndsc/justci/internal/retry"
	"github.com/fnndsc/justci/internal/runner"
	"github.com/fnndsc/justci/pkg/types"
)

const (
	// StepPrefer applies the container engine preference.
	StepPrefer StepKind = "prefer"
	// StepAncillary starts the ancillary services.
	StepAncillary StepKind = "start-ancillary"
	// StepTask runs the requested task.
	StepTask StepKind = "task"
	// StepLogs dumps service logs after a failed task.
	StepLogs StepKind = "logs"

	// DefaultAttempts is the ancillary start-up bound used when none is configured.
	DefaultAttempts = 5

	// exitInterrupted is what a shell reports for a run stopped by SIGINT.
	exitInterrupted = types.ExitSignalBase + 2
)

type (
	// StepKind identifies one of the fixed steps of an invocation.
	StepKind string

	// Recipes names the task-runner recipes behind the fixed steps.
	Recipes struct {
		Prefer         string
		StartAncillary string
		Logs           string
	}

	// Options are the configuration-level differences between CI setups.
	Options struct {
		// Attempts bounds ancillary start-up. Zero skips the step; one runs it
		// once without retrying.
		Attempts int
		// Backoff is the wait before the first retry; it doubles per retry.
		Backoff time.Duration
		// WarnOnRetry emits a warning annotation for every failed attempt.
		WarnOnRetry bool
		// DumpLogs runs the logs recipe after a failed task.
		DumpLogs bool
		Recipes  Recipes
	}

	// Request carries the two values read from the CI environment, plus
	// optional extra arguments for the task.
	Request struct {
		Engine  types.EngineName
		Command types.TaskName
		Args    []string
	}

	// Annotator surfaces progress and failures in the CI platform's UI.
	Annotator interface {
		Warning(msg string)
		Error(msg string)
		Group(title string)
		EndGroup()
	}

	// Recorder observes step outcomes, e.g. for metrics.
	Recorder interface {
		ObserveStep(step string, code types.ExitCode, d time.Duration)
		SetExitCode(code types.ExitCode)
	}

	// Option configures an Invoker.
	Option func(*Invoker)

	// Invoker runs the fixed step sequence against a Runner.
	Invoker struct {
		runner    runner.Runner
		annotator Annotator
		recorder  Recorder
		opts      Options
		now       func() time.Time
	}

	nopAnnotator struct{}
	nopRecorder  struct{}
)

func (nopAnnotator) Warning(string) {}
func (nopAnnotator) Error(string)   {}
func (nopAnnotator) Group(string)   {}
func (nopAnnotator) EndGroup()      {}

func (nopRecorder) ObserveStep(string, types.ExitCode, time.Duration) {}
func (nopRecorder) SetExitCode(types.ExitCode)                        {}

func (k StepKind) sentinel() error {
	switch k {
	case StepPrefer:
		return ErrPreferenceFailed
	case StepAncillary:
		return ErrAncillaryExhausted
	case StepTask:
		return ErrTaskFailed
	default:
		return nil
	}
}

// DefaultRecipes returns the recipe names the surrounding justfile defines.
func DefaultRecipes() Recipes {
	return Recipes{
		Prefer:         "prefer",
		StartAncillary: "start-ancillary",
		Logs:           "logs",
	}
}

// DefaultOptions returns the strictest observed variant: five attempts with a
// warning per failure, and a log dump on task failure.
func DefaultOptions() Options {
	return Options{
		Attempts:    DefaultAttempts,
		WarnOnRetry: true,
		DumpLogs:    true,
		Recipes:     DefaultRecipes(),
	}
}

// Validate returns an error if the request is missing the engine or command.
func (r Request) Validate() error {
	var errs []error
	if err := r.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Command.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidRequestError{FieldErrors: errs}
	}
	return nil
}

// WithAnnotator sets where warnings and errors are surfaced.
func WithAnnotator(a Annotator) Option {
	return func(inv *Invoker) {
		if a != nil {
			inv.annotator = a
		}
	}
}

// WithRecorder sets the step observer.
func WithRecorder(rec Recorder) Option {
	return func(inv *Invoker) {
		if rec != nil {
			inv.recorder = rec
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(inv *Invoker) { inv.now = now }
}

// New creates an Invoker. Empty recipe names fall back to DefaultRecipes.
func New(r runner.Runner, opts Options, options ...Option) *Invoker {
	defaults := DefaultRecipes()
	if opts.Recipes.Prefer == "" {
		opts.Recipes.Prefer = defaults.Prefer
	}
	if opts.Recipes.StartAncillary == "" {
		opts.Recipes.StartAncillary = defaults.StartAncillary
	}
	if opts.Recipes.Logs == "" {
		opts.Recipes.Logs = defaults.Logs
	}

	inv := &Invoker{
		runner:    r,
		annotator: nopAnnotator{},
		recorder:  nopRecorder{},
		opts:      opts,
		now:       time.Now,
	}
	for _, o := range options {
		o(inv)
	}
	return inv
}

// Options returns the options the Invoker runs with.
func (inv *Invoker) Options() Options { return inv.opts }

// Run executes the step sequence for req. The returned Result is never nil
// and its ExitCode is always the status the process should exit with; the
// error, when set, is a *StepError (or *InvalidRequestError) explaining it.
func (inv *Invoker) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}
	defer func() { inv.recorder.SetExitCode(res.ExitCode) }()

	if err := req.Validate(); err != nil {
		res.ExitCode = types.ExitFailure
		return res, err
	}

	// Preference failures are fatal: no retry and no log dump.
	preferArgs := []string{inv.opts.Recipes.Prefer, req.Engine.String()}
	code, err := inv.step(ctx, res, StepPrefer, 1, preferArgs)
	if err != nil || !code.IsSuccess() {
		res.ExitCode = code
		if ctx.Err() != nil {
			return inv.interrupted(ctx, res, StepPrefer, preferArgs)
		}
		return res, &StepError{Step: StepPrefer, Args: preferArgs, ExitCode: code, Err: err}
	}

	if inv.opts.Attempts > 0 {
		if stepErr := inv.startAncillary(ctx, res); stepErr != nil {
			if ctx.Err() != nil {
				return inv.interrupted(ctx, res, StepAncillary, stepErr.Args)
			}
			res.ExitCode = types.ExitFailure
			return res, stepErr
		}
	}

	taskArgs := append([]string{req.Command.String()}, req.Args...)
	code, err = inv.step(ctx, res, StepTask, 1, taskArgs)
	res.ExitCode = code
	if err == nil && code.IsSuccess() {
		return res, nil
	}
	if ctx.Err() != nil {
		return inv.interrupted(ctx, res, StepTask, taskArgs)
	}

	inv.annotator.Error(fmt.Sprintf("Task %q failed with exit code %d.", req.Command, code))
	if inv.opts.DumpLogs {
		inv.dumpLogs(ctx, res)
	}
	return res, &StepError{Step: StepTask, Args: taskArgs, ExitCode: code, Err: err}
}

// startAncillary retries the start-ancillary recipe up to the configured bound.
func (inv *Invoker) startAncillary(ctx context.Context, res *Result) *StepError {
	args := []string{inv.opts.Recipes.StartAncillary}
	policy := retry.Policy{
		MaxAttempts: inv.opts.Attempts,
		BaseBackoff: inv.opts.Backoff,
		Notify: func(attempt int, err error) {
			slog.Debug("ancillary start-up attempt failed", "attempt", attempt, "error", err)
			if inv.opts.WarnOnRetry {
				inv.annotator.Warning(fmt.Sprintf("Ancillary services failed to start. Attempt=%d", attempt))
			}
		},
	}

	err := retry.Do(ctx, policy, func(attempt int) error {
		code, err := inv.step(ctx, res, StepAncillary, attempt, args)
		if err != nil {
			return err
		}
		if !code.IsSuccess() {
			return &exitStatusError{code: code}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if ctx.Err() == nil {
		inv.annotator.Error("Failed to start ancillary services.")
	}
	return &StepError{Step: StepAncillary, Args: args, ExitCode: types.ExitFailure, Err: err}
}

// dumpLogs runs the logs recipe. Its outcome is logged and otherwise ignored.
func (inv *Invoker) dumpLogs(ctx context.Context, res *Result) {
	args := []string{inv.opts.Recipes.Logs}
	inv.annotator.Group("Logs: " + inv.opts.Recipes.Logs)
	code, err := inv.step(ctx, res, StepLogs, 1, args)
	inv.annotator.EndGroup()

	if err != nil || !code.IsSuccess() {
		slog.Warn("log dump failed", "exitCode", int(code), "error", err)
	}
}

// step runs one invocation and records it.
func (inv *Invoker) step(ctx context.Context, res *Result, kind StepKind, attempt int, args []string) (types.ExitCode, error) {
	start := inv.now()
	code, err := inv.runner.Run(ctx, args...)
	if err != nil && code.IsSuccess() {
		code = types.ExitFailure
	}
	elapsed := inv.now().Sub(start)

	rec := StepRecord{
		Kind:     kind,
		Args:     append([]string(nil), args...),
		Attempt:  attempt,
		ExitCode: code,
		Duration: elapsed,
	}
	if err != nil {
		rec.Err = err.Error()
	}
	res.Steps = append(res.Steps, rec)
	inv.recorder.ObserveStep(string(kind), code, elapsed)

	return code, err
}

func (inv *Invoker) interrupted(ctx context.Context, res *Result, kind StepKind, args []string) (*Result, error) {
	res.ExitCode = exitInterrupted
	return res, &StepError{
		Step:     kind,
		Args:     args,
		ExitCode: exitInterrupted,
		Err:      errors.Join(ErrInterrupted, ctx.Err()),
	}
}
