// SPDX-License-Identifier: MPL-2.0

// Package summary renders an invocation result as a markdown job summary.
package summary

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fnndsc/justci/internal/invoker"
	"github.com/fnndsc/justci/pkg/types"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// StepSummaryEnv names the file GitHub Actions renders as the job summary.
const StepSummaryEnv = "GITHUB_STEP_SUMMARY"

// Markdown returns the summary document for a run of command on engine.
func Markdown(engine, command string, res *invoker.Result) string {
	var b strings.Builder

	status := "✅ passed"
	if !res.ExitCode.IsSuccess() {
		status = fmt.Sprintf("❌ failed (exit code %d)", res.ExitCode)
		if res.ExitCode.IsSignal() {
			status = fmt.Sprintf("❌ failed (exit code %d, signal %d)", res.ExitCode, res.ExitCode-types.ExitSignalBase)
		}
	}
	fmt.Fprintf(&b, "### justci: `%s` on `%s` %s\n\n", command, engine, status)

	b.WriteString("| # | Step | Command | Attempt | Exit | Duration |\n")
	b.WriteString("|---|------|---------|---------|------|----------|\n")
	for i, s := range res.Steps {
		fmt.Fprintf(&b, "| %d | %s | `%s` | %d | %d | %s |\n",
			i+1, s.Kind, escapeCell(strings.Join(s.Args, " ")), s.Attempt, s.ExitCode, s.Duration.Round(time.Millisecond))
	}

	// Point at the step that decided the outcome.
	if idx := slices.IndexFunc(res.Steps, func(s invoker.StepRecord) bool {
		return s.Kind != invoker.StepLogs && s.Kind != invoker.StepAncillary && !s.ExitCode.IsSuccess()
	}); idx >= 0 && res.Steps[idx].Err != "" {
		fmt.Fprintf(&b, "\n> %s\n", escapeCell(res.Steps[idx].Err))
	}
	return b.String()
}

// Append adds doc to the job summary file. It reports false when the
// environment has no summary file.
func Append(getenv func(string) string, doc string) (bool, error) {
	path := getenv(StepSummaryEnv)
	if path == "" {
		return false, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open job summary: %w", err)
	}
	if _, err := io.WriteString(f, doc+"\n"); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write job summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close job summary: %w", err)
	}
	return true, nil
}

// Render formats doc for a terminal with the given glamour style
// ("dark", "light", "notty", ...).
func Render(doc, style string) (string, error) {
	out, err := glamour.Render(doc, style)
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return out, nil
}

// Publish appends doc to the job summary when one is available and
// otherwise writes a rendered copy to w.
func Publish(getenv func(string) string, w io.Writer, doc, style string) error {
	written, err := Append(getenv, doc)
	if err != nil || written {
		return err
	}
	out, err := Render(doc, style)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
