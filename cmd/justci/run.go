// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/fnndsc/justci/internal/annotate"
	"github.com/fnndsc/justci/internal/config"
	"github.com/fnndsc/justci/internal/invoker"
	"github.com/fnndsc/justci/internal/issue"
	"github.com/fnndsc/justci/internal/metrics"
	"github.com/fnndsc/justci/internal/runner"
	"github.com/fnndsc/justci/internal/summary"
	"github.com/fnndsc/justci/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlags override the loaded configuration when set on the command line.
type runFlags struct {
	engine      string
	attempts    int
	backoff     time.Duration
	noWarn      bool
	noLogs      bool
	workdir     string
	binary      string
	annotations string
	metricsFile string
	summary     bool
}

// newRunCommand creates the `justci run` command.
func newRunCommand(app *App, rf *rootFlags) *cobra.Command {
	flags := &runFlags{}
	runCmd := &cobra.Command{
		Use:   "run [command] [-- args...]",
		Short: "Prefer an engine, start ancillary services and run a recipe",
		Long: `Run the fixed CI sequence:

  just <prefer> <engine>
  just <start-ancillary>     (retried, see --attempts and --backoff)
  just <command> [args...]
  just <logs>                (only when the command fails)

The command defaults to INPUT_COMMAND / JUSTCI_COMMAND and the engine to
INPUT_ENGINE / JUSTCI_ENGINE. justci exits with the command's exit code.`,
		Args: validateRunArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvocation(cmd, app, rf, flags, args)
		},
	}
	bindRunFlags(runCmd.Flags(), flags)
	return runCmd
}

func bindRunFlags(fs *pflag.FlagSet, f *runFlags) {
	fs.StringVar(&f.engine, "engine", "", "container engine handed to the prefer recipe (env INPUT_ENGINE)")
	fs.IntVar(&f.attempts, "attempts", invoker.DefaultAttempts, "ancillary start-up attempts; 0 skips the step")
	fs.DurationVar(&f.backoff, "backoff", 0, "wait before the first ancillary retry, doubled for each further retry")
	fs.BoolVar(&f.noWarn, "no-warn", false, "do not annotate failed ancillary attempts")
	fs.BoolVar(&f.noLogs, "no-logs", false, "do not dump service logs when the command fails")
	fs.StringVar(&f.workdir, "workdir", "", "directory to run just in")
	fs.StringVar(&f.binary, "just", "", "task runner executable (default \"just\")")
	fs.StringVar(&f.annotations, "annotations", "", "annotation format: auto, github or plain")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	fs.BoolVar(&f.summary, "summary", false, "publish a markdown summary of the run")
}

// apply copies every flag the user set onto cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("engine") {
		cfg.Engine = types.EngineName(f.engine)
	}
	if fs.Changed("attempts") {
		cfg.Ancillary.Attempts = f.attempts
	}
	if fs.Changed("backoff") {
		cfg.Ancillary.Backoff = f.backoff
	}
	if fs.Changed("no-warn") {
		cfg.Ancillary.Warn = !f.noWarn
	}
	if fs.Changed("no-logs") {
		cfg.Logs.Enabled = !f.noLogs
	}
	if fs.Changed("workdir") {
		cfg.Runner.WorkDir = f.workdir
	}
	if fs.Changed("just") {
		cfg.Runner.Binary = f.binary
	}
	if fs.Changed("annotations") {
		cfg.Annotations.Mode = annotate.Mode(f.annotations)
	}
	if fs.Changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
	if fs.Changed("summary") {
		cfg.Summary.Enabled = f.summary
	}
}

// validateRunArgs accepts at most one positional command; everything after
// "--" goes to the recipe.
func validateRunArgs(cmd *cobra.Command, args []string) error {
	if command, _ := splitArgs(cmd.ArgsLenAtDash(), args); len(command) > 1 {
		return fmt.Errorf("accepts at most one command, received %d (%v); pass recipe arguments after --", len(command), command)
	}
	return nil
}

// splitArgs separates the positional command from the recipe arguments.
// dash is cobra's ArgsLenAtDash: -1 when no "--" was given.
func splitArgs(dash int, args []string) (command, rest []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

func runInvocation(cmd *cobra.Command, app *App, rf *rootFlags, flags *runFlags, args []string) error {
	ctx := cmd.Context()
	configureLogging(app.stderr, config.LogLevelInfo, rf.verbose)

	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: rf.configPath})
	if err != nil {
		return &ExitError{Code: types.ExitFailure, Err: err}
	}

	command, taskArgs := splitArgs(cmd.ArgsLenAtDash(), args)
	if len(command) == 1 {
		cfg.Command = types.TaskName(command[0])
	}
	flags.apply(cmd.Flags(), cfg)
	if rf.logLevel != "" {
		cfg.Log.Level = config.LogLevel(rf.logLevel)
	}

	if err := cfg.Validate(); err != nil {
		return &ExitError{
			Code: types.ExitFailure,
			Err: issue.NewErrorContext().
				WithOperation("validate invocation").
				WithSuggestion("Set the engine with --engine or INPUT_ENGINE").
				WithSuggestion("Set the command as an argument or with INPUT_COMMAND").
				WithIssue(issue.MissingInputId).
				Wrap(err).
				BuildError(),
		}
	}
	configureLogging(app.stderr, cfg.Log.Level, rf.verbose)

	mode := cfg.Annotations.Mode.Resolve(app.getenv)
	runnerOpts := []runner.Option{
		runner.WithBinary(cfg.Runner.Binary),
		runner.WithWorkDir(cfg.Runner.WorkDir),
		runner.WithStdio(app.stdin, app.stdout, app.stderr),
		runner.WithTrace(app.stderr),
	}
	if app.execCommand != nil {
		runnerOpts = append(runnerOpts, runner.WithExecCommand(app.execCommand))
	}

	collector := metrics.NewCollector()
	inv := invoker.New(
		runner.New(runnerOpts...),
		invokerOptions(cfg),
		invoker.WithAnnotator(annotate.New(app.stdout, mode)),
		invoker.WithRecorder(collector),
	)

	slog.Debug("starting invocation",
		"engine", cfg.Engine.String(),
		"command", cfg.Command.String(),
		"args", taskArgs,
		"attempts", cfg.Ancillary.Attempts,
		"annotations", string(mode),
		"config", cfg.Source,
	)

	res, runErr := inv.Run(ctx, invoker.Request{
		Engine:  cfg.Engine,
		Command: cfg.Command,
		Args:    taskArgs,
	})
	publishReports(app, cfg, res, collector)

	if runErr != nil {
		return classifyRunError(res.ExitCode, runErr)
	}
	return nil
}

func invokerOptions(cfg *config.Config) invoker.Options {
	return invoker.Options{
		Attempts:    cfg.Ancillary.Attempts,
		Backoff:     cfg.Ancillary.Backoff,
		WarnOnRetry: cfg.Ancillary.Warn,
		DumpLogs:    cfg.Logs.Enabled,
		Recipes: invoker.Recipes{
			Prefer:         cfg.Recipes.Prefer,
			StartAncillary: cfg.Recipes.StartAncillary,
			Logs:           cfg.Recipes.Logs,
		},
	}
}

// publishReports writes the optional metrics file and job summary. Failures
// are logged; they never change the exit status.
func publishReports(app *App, cfg *config.Config, res *invoker.Result, collector *metrics.Collector) {
	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("could not write metrics", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	if cfg.Summary.Enabled {
		doc := summary.Markdown(cfg.Engine.String(), cfg.Command.String(), res)
		if err := summary.Publish(app.getenv, app.stderr, doc, "notty"); err != nil {
			slog.Warn("could not publish job summary", "error", err)
		}
	}
}

// classifyRunError attaches user guidance to invocation failures. Failures the
// invoker already annotated are marked as reported.
func classifyRunError(code types.ExitCode, err error) error {
	var stepErr *invoker.StepError
	resource := ""
	if errors.As(err, &stepErr) {
		resource = strings.Join(stepErr.Args, " ")
	}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		err = issue.NewErrorContext().
			WithOperation("start the task runner").
			WithSuggestion("Install just on the runner, or pass its path with --just").
			WithIssue(issue.RunnerNotFoundId).
			Wrap(err).
			BuildError()
	case errors.Is(err, invoker.ErrInterrupted):
		err = issue.NewErrorContext().
			WithOperation("finish the invocation").
			WithResource(resource).
			WithIssue(issue.InterruptedId).
			Wrap(err).
			BuildError()
	case errors.Is(err, invoker.ErrPreferenceFailed):
		err = issue.NewErrorContext().
			WithOperation("apply the container engine preference").
			WithResource(resource).
			WithSuggestion("Check that the engine is installed and running").
			WithIssue(issue.PreferenceFailedId).
			Wrap(err).
			BuildError()
	case errors.Is(err, invoker.ErrAncillaryExhausted):
		err = issue.NewErrorContext().
			WithOperation("start ancillary services").
			WithResource(resource).
			WithIssue(issue.AncillaryExhaustedId).
			Wrap(err).
			BuildError()
		return &ExitError{Code: code, Err: err, Reported: true}
	case errors.Is(err, invoker.ErrTaskFailed):
		err = issue.NewErrorContext().
			WithOperation("run the task").
			WithResource(resource).
			WithIssue(issue.TaskFailedId).
			Wrap(err).
			BuildError()
		return &ExitError{Code: code, Err: err, Reported: true}
	}
	return &ExitError{Code: code, Err: err}
}
