// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fnndsc/justci/internal/annotate"
	"github.com/fnndsc/justci/internal/config"
	"github.com/fnndsc/justci/internal/invoker"
	"github.com/fnndsc/justci/internal/issue"
	"github.com/fnndsc/justci/internal/runner"

	"github.com/spf13/cobra"
)

type stubConfig struct {
	cfg *config.Config
	err error
}

func (s stubConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := *s.cfg
	return &c, nil
}

// helperExec runs TestHelperProcess in place of the task runner. codes maps
// recipe names to the exit code the fake should return, e.g. "test=3,logs=1".
func helperExec(codes string) runner.ExecCommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "JUSTCI_HELPER_CODES="+codes)
		return cmd
	}
}

// TestHelperProcess is not a real test; it stands in for the task runner.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(0)
	}
	fmt.Printf("ran %s\n", strings.Join(args[1:], " "))

	for _, kv := range strings.Split(os.Getenv("JUSTCI_HELPER_CODES"), ",") {
		recipe, code, ok := strings.Cut(kv, "=")
		if ok && recipe == args[1] {
			n, _ := strconv.Atoi(code)
			os.Exit(n)
		}
	}
	os.Exit(0)
}

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Engine = "docker"
	cfg.Command = "test"
	cfg.Annotations.Mode = annotate.ModePlain
	return cfg
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, deps Dependencies, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	deps.Stdin = strings.NewReader("")
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	deps.IssueStyle = "notty"
	if deps.Getenv == nil {
		deps.Getenv = func(string) string { return "" }
	}
	code := execute(context.Background(), NewApp(deps), args)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestExecute_Success(t *testing.T) {
	res := runCLI(t, Dependencies{
		Config:      stubConfig{cfg: baseConfig()},
		ExecCommand: helperExec(""),
	})

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	for _, want := range []string{"ran prefer docker\nran start-ancillary\nran test\n"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if !strings.Contains(res.stderr, "+ just prefer docker") {
		t.Errorf("stderr missing trace line:\n%s", res.stderr)
	}
}

func TestExecute_TaskFailure(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPage bool
	}{
		{name: "quiet", args: []string{"run"}},
		{name: "verbose", args: []string{"run", "-v"}, wantPage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, Dependencies{
				Config:      stubConfig{cfg: baseConfig()},
				ExecCommand: helperExec("test=137"),
			}, tt.args...)

			if res.code != 137 {
				t.Fatalf("exit code = %d, want 137", res.code)
			}
			if !strings.Contains(res.stdout, `error: Task "test" failed with exit code 137.`) {
				t.Errorf("stdout missing error annotation:\n%s", res.stdout)
			}
			if !strings.Contains(res.stdout, "ran logs") {
				t.Errorf("logs recipe did not run:\n%s", res.stdout)
			}
			if strings.Contains(res.stderr, "Error:") {
				t.Errorf("annotated failure should not be printed again:\n%s", res.stderr)
			}
			if got := strings.Contains(res.stderr, "Task failed!"); got != tt.wantPage {
				t.Errorf("help page shown = %v, want %v; stderr:\n%s", got, tt.wantPage, res.stderr)
			}
		})
	}
}

func TestExecute_AncillaryExhausted(t *testing.T) {
	res := runCLI(t, Dependencies{
		Config:      stubConfig{cfg: baseConfig()},
		ExecCommand: helperExec("start-ancillary=1"),
		Getenv: func(key string) string {
			if key == annotate.GitHubActionsEnv {
				return "true"
			}
			return ""
		},
	}, "run", "--attempts", "2", "--annotations", "auto")

	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	for _, want := range []string{
		"::warning::Ancillary services failed to start. Attempt=1\n",
		"::warning::Ancillary services failed to start. Attempt=2\n",
		"::error::Failed to start ancillary services.\n",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "ran test") {
		t.Errorf("task should not run:\n%s", res.stdout)
	}
}

func TestExecute_AncillaryExhaustedVerboseShowsHelp(t *testing.T) {
	res := runCLI(t, Dependencies{
		Config:      stubConfig{cfg: baseConfig()},
		ExecCommand: helperExec("start-ancillary=1"),
	}, "run", "--attempts", "1", "--verbose")

	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "Ancillary services failed to start!") {
		t.Errorf("stderr missing the ancillary help page:\n%s", res.stderr)
	}
	if strings.Contains(res.stderr, "Error:") {
		t.Errorf("annotated failure should not be printed again:\n%s", res.stderr)
	}
}

func TestExecute_PreferenceFailure(t *testing.T) {
	res := runCLI(t, Dependencies{
		Config:      stubConfig{cfg: baseConfig()},
		ExecCommand: helperExec("prefer=3"),
	}, "run", "--engine", "nerdctl")

	if res.code != 3 {
		t.Fatalf("exit code = %d, want 3", res.code)
	}
	if !strings.Contains(res.stdout, "ran prefer nerdctl") {
		t.Errorf("engine flag not applied:\n%s", res.stdout)
	}
	if !strings.Contains(res.stderr, "apply the container engine preference: prefer nerdctl") {
		t.Errorf("stderr missing actionable error:\n%s", res.stderr)
	}
}

func TestExecute_PositionalCommandAndArgs(t *testing.T) {
	res := runCLI(t, Dependencies{
		Config:      stubConfig{cfg: baseConfig()},
		ExecCommand: helperExec(""),
	}, "run", "--attempts", "0", "lint", "--", "-v", "a b")

	if res.code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "ran lint -v a b") {
		t.Errorf("stdout = %q, want the task with its arguments", res.stdout)
	}
	if strings.Contains(res.stdout, "start-ancillary") {
		t.Errorf("--attempts 0 should skip ancillary start-up:\n%s", res.stdout)
	}
}

func TestExecute_TooManyCommands(t *testing.T) {
	res := runCLI(t, Dependencies{Config: stubConfig{cfg: baseConfig()}}, "run", "test", "lint")
	if res.code != 1 {
		t.Errorf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "at most one command") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestExecute_MissingInputs(t *testing.T) {
	cfg := baseConfig()
	cfg.Engine = ""
	cfg.Command = ""

	res := runCLI(t, Dependencies{Config: stubConfig{cfg: cfg}, ExecCommand: helperExec("")})
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "failed to validate invocation") {
		t.Errorf("stderr = %q", res.stderr)
	}
	if res.stdout != "" {
		t.Errorf("nothing should run, stdout = %q", res.stdout)
	}
}

func TestExecute_ConfigLoadFailure(t *testing.T) {
	loadErr := issue.NewErrorContext().
		WithOperation("load configuration").
		WithSuggestion("Check that the file contains valid CUE syntax").
		Wrap(errors.New("justci.cue: retries: field not allowed")).
		BuildError()

	res := runCLI(t, Dependencies{Config: stubConfig{err: loadErr}}, "config", "show")
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, "retries: field not allowed") || !strings.Contains(res.stderr, "• Check that the file") {
		t.Errorf("stderr = %q", res.stderr)
	}
}

func TestExecute_MetricsAndSummary(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "justci.prom")
	summaryPath := filepath.Join(dir, "summary.md")

	res := runCLI(t, Dependencies{
		Config:      stubConfig{cfg: baseConfig()},
		ExecCommand: helperExec("test=2"),
		Getenv: func(key string) string {
			if key == "GITHUB_STEP_SUMMARY" {
				return summaryPath
			}
			return ""
		},
	}, "run", "--metrics-file", metricsPath, "--summary")

	if res.code != 2 {
		t.Fatalf("exit code = %d, want 2", res.code)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{
		"justci_exit_code 2",
		`justci_step_attempts_total{outcome="failure",step="task"} 1`,
		`justci_step_attempts_total{outcome="success",step="logs"} 1`,
	} {
		if !strings.Contains(string(prom), want) {
			t.Errorf("metrics missing %q:\n%s", want, prom)
		}
	}

	md, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	if !strings.Contains(string(md), "❌ failed (exit code 2)") {
		t.Errorf("summary = %q", md)
	}
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dash        int
		args        []string
		wantCommand []string
		wantRest    []string
	}{
		{-1, nil, nil, nil},
		{-1, []string{"test"}, []string{"test"}, nil},
		{1, []string{"test", "-v"}, []string{"test"}, []string{"-v"}},
		{0, []string{"-v", "x"}, []string{}, []string{"-v", "x"}},
	}
	for _, tt := range tests {
		command, rest := splitArgs(tt.dash, tt.args)
		if !slices.Equal(command, tt.wantCommand) || !slices.Equal(rest, tt.wantRest) {
			t.Errorf("splitArgs(%d, %v) = %v, %v; want %v, %v", tt.dash, tt.args, command, rest, tt.wantCommand, tt.wantRest)
		}
	}
}

func TestRunFlags_ApplyOnlyChanged(t *testing.T) {
	t.Parallel()

	f := &runFlags{}
	c := &cobra.Command{Use: "run"}
	bindRunFlags(c.Flags(), f)
	if err := c.ParseFlags([]string{"--no-logs", "--backoff", "2s", "--annotations", "github"}); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig()
	cfg.Ancillary.Attempts = 9
	f.apply(c.Flags(), cfg)

	if cfg.Logs.Enabled {
		t.Error("--no-logs should disable the log dump")
	}
	if cfg.Ancillary.Backoff != 2*time.Second {
		t.Errorf("Backoff = %s, want 2s", cfg.Ancillary.Backoff)
	}
	if cfg.Annotations.Mode != annotate.ModeGitHub {
		t.Errorf("Mode = %q, want github", cfg.Annotations.Mode)
	}
	if cfg.Ancillary.Attempts != 9 {
		t.Errorf("Attempts = %d, unset flag must not override config", cfg.Ancillary.Attempts)
	}
	if !cfg.Ancillary.Warn {
		t.Error("unset --no-warn must not override config")
	}
}

func TestClassifyRunError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		wantReported bool
		wantIssue    issue.Id
	}{
		{
			name:      "runner missing",
			err:       &invoker.StepError{Step: invoker.StepPrefer, ExitCode: 127, Err: fmt.Errorf("run just: %w", exec.ErrNotFound)},
			wantIssue: issue.RunnerNotFoundId,
		},
		{
			name:      "preference",
			err:       &invoker.StepError{Step: invoker.StepPrefer, Args: []string{"prefer", "docker"}, ExitCode: 3},
			wantIssue: issue.PreferenceFailedId,
		},
		{
			name:      "interrupted",
			err:       &invoker.StepError{Step: invoker.StepTask, ExitCode: 130, Err: errors.Join(invoker.ErrInterrupted, context.Canceled)},
			wantIssue: issue.InterruptedId,
		},
		{
			name:         "ancillary",
			err:          &invoker.StepError{Step: invoker.StepAncillary, ExitCode: 1},
			wantReported: true,
			wantIssue:    issue.AncillaryExhaustedId,
		},
		{
			name:         "task",
			err:          &invoker.StepError{Step: invoker.StepTask, ExitCode: 4},
			wantReported: true,
			wantIssue:    issue.TaskFailedId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := classifyRunError(42, tt.err)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("classifyRunError() = %T, want *ExitError", err)
			}
			if exitErr.Code != 42 {
				t.Errorf("Code = %d, want 42", exitErr.Code)
			}
			if exitErr.Reported != tt.wantReported {
				t.Errorf("Reported = %v, want %v", exitErr.Reported, tt.wantReported)
			}
			if tt.wantIssue != 0 {
				if got := issue.IssueOf(err); got == nil || got.Id() != tt.wantIssue {
					t.Errorf("IssueOf() = %v, want issue %d", got, tt.wantIssue)
				}
			}
		})
	}
}
