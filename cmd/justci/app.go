// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/fnndsc/justci/internal/config"
	"github.com/fnndsc/justci/internal/runner"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer; every Cobra handler receives an App reference.
	App struct {
		Config      ConfigProvider
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
		getenv      func(string) string
		execCommand runner.ExecCommandFunc
		issueStyle  string
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		// Getenv looks up CI environment variables other than configuration
		// (GITHUB_ACTIONS, GITHUB_STEP_SUMMARY).
		Getenv func(string) string
		// ExecCommand replaces exec.CommandContext for the task runner.
		ExecCommand runner.ExecCommandFunc
		// IssueStyle is the glamour style for verbose help pages ("dark" by default).
		IssueStyle string
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.IssueStyle == "" {
		deps.IssueStyle = "dark"
	}

	return &App{
		Config:      deps.Config,
		stdin:       deps.Stdin,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		getenv:      deps.Getenv,
		execCommand: deps.ExecCommand,
		issueStyle:  deps.IssueStyle,
	}
}
