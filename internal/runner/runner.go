// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fnndsc/justci/pkg/types"

	"mvdan.cc/sh/v3/syntax"
)

// DefaultBinary is the task runner executable looked up on PATH.
const DefaultBinary = "just"

type (
	// Runner executes one task-runner invocation and waits for it to finish.
	//
	// A non-zero exit status is not an error: the returned error is only set
	// when the child could not be run at all, in which case the exit code is
	// the status a shell would report for the same failure.
	Runner interface {
		Run(ctx context.Context, args ...string) (types.ExitCode, error)
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures a JustRunner.
	Option func(*JustRunner)

	// JustRunner runs the task runner binary as a child process.
	JustRunner struct {
		binary      string
		workDir     string
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
		trace       io.Writer
		execCommand ExecCommandFunc
	}
)

// WithBinary overrides the task runner executable. Empty keeps the default.
func WithBinary(binary string) Option {
	return func(r *JustRunner) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// WithWorkDir runs every child in dir instead of the current directory.
func WithWorkDir(dir string) Option {
	return func(r *JustRunner) { r.workDir = dir }
}

// WithStdio replaces the inherited standard streams.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *JustRunner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithTrace sets where trace lines are written. Nil disables tracing.
func WithTrace(w io.Writer) Option {
	return func(r *JustRunner) { r.trace = w }
}

// WithExecCommand replaces exec.CommandContext, for tests.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *JustRunner) { r.execCommand = fn }
}

// New creates a JustRunner with inherited stdio and tracing to stderr.
func New(opts ...Option) *JustRunner {
	r := &JustRunner{
		binary:      DefaultBinary,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		trace:       os.Stderr,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the configured task runner executable.
func (r *JustRunner) Binary() string { return r.binary }

// WorkDir returns the directory children run in ("" means the current one).
func (r *JustRunner) WorkDir() string { return r.workDir }

// Run starts the task runner with args, waits for it, and returns its exit status.
func (r *JustRunner) Run(ctx context.Context, args ...string) (types.ExitCode, error) {
	if r.trace != nil {
		fmt.Fprintln(r.trace, TraceLine(r.binary, args...))
	}

	cmd := r.execCommand(ctx, r.binary, args...)
	cmd.Dir = r.workDir
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	err := cmd.Run()
	code, runErr := exitStatus(err)
	slog.Debug("task runner finished", "binary", r.binary, "args", args, "exitCode", int(code))
	if runErr != nil {
		return code, fmt.Errorf("run %s: %w", r.binary, runErr)
	}
	return code, nil
}

// TraceLine renders an invocation the way `set -x` would, with each word
// quoted so the line can be pasted back into a shell.
func TraceLine(binary string, args ...string) string {
	words := make([]string, 0, len(args)+1)
	for _, w := range append([]string{binary}, args...) {
		words = append(words, quoteWord(w))
	}
	return "+ " + strings.Join(words, " ")
}

func quoteWord(w string) string {
	quoted, err := syntax.Quote(w, syntax.LangBash)
	if err != nil {
		return strconv.Quote(w)
	}
	return quoted
}
