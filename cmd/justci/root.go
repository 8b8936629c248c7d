// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for justci.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fnndsc/justci/internal/config"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	verbose    bool
	logLevel   string
}

// newRootCommand builds the command tree. A bare `justci` behaves like
// `justci run`, so an action step can run from its inputs alone.
func newRootCommand(app *App) *cobra.Command {
	rf := &rootFlags{}
	run := &runFlags{}

	root := &cobra.Command{
		Use:   "justci [command] [-- args...]",
		Short: "Run a just recipe in CI with retried ancillary services",
		Long: TitleStyle.Render("justci") + SubtitleStyle.Render(" - Run a just recipe in CI with retried ancillary services") + `

justci selects a container engine, brings up ancillary services with a
bounded retry, runs the requested recipe and, when it fails, dumps the
service logs. The process exits with the recipe's own exit code.

Inside a GitHub Action the engine and command come from the action
inputs (INPUT_ENGINE, INPUT_COMMAND), and failures are reported as
workflow annotations.

A recipe named like a subcommand (run, config, help, completion) must be
given through 'justci run <name>'; on the bare command it selects the
subcommand instead.

` + SubtitleStyle.Render("Examples:") + `
  justci                          Run INPUT_COMMAND with INPUT_ENGINE
  justci run --engine docker test Run 'just test' with docker preferred
  justci run test -- -v ./...     Pass extra arguments to the recipe
  justci config show              Show the effective configuration`,
		Args: validateRunArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvocation(cmd, app, rf, run, args)
		},
	}

	root.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&rf.configPath, "config", "", "config file (default is ./"+config.ConfigFileName+")")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "", "diagnostic log level: debug, info, warn or error")
	bindRunFlags(root.Flags(), run)

	root.AddCommand(newRunCommand(app, rf))
	root.AddCommand(newConfigCommand(app, rf))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with the process arguments and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Run())
}

// Run runs the CLI with the process arguments and returns the exit status.
func Run() int {
	app := NewApp(Dependencies{})
	return execute(context.Background(), app, os.Args[1:])
}

// execute runs the command tree through fang and maps the outcome to an
// exit status. A task's own non-zero status is passed through unchanged.
func execute(ctx context.Context, app *App, args []string) int {
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	verbose := func() bool {
		v, _ := root.PersistentFlags().GetBool("verbose")
		return v
	}

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(newErrorHandler(verbose, app.issueStyle)),
	)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	return 1
}
