// SPDX-License-Identifier: MPL-2.0

package summary

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fnndsc/justci/internal/invoker"
	"github.com/fnndsc/justci/pkg/types"
)

func failedResult() *invoker.Result {
	return &invoker.Result{
		ExitCode: 137,
		Steps: []invoker.StepRecord{
			{Kind: invoker.StepPrefer, Args: []string{"prefer", "docker"}, Attempt: 1, Duration: time.Second},
			{Kind: invoker.StepAncillary, Args: []string{"start-ancillary"}, Attempt: 1, ExitCode: 1},
			{Kind: invoker.StepAncillary, Args: []string{"start-ancillary"}, Attempt: 2},
			{Kind: invoker.StepTask, Args: []string{"test", "a|b"}, Attempt: 1, ExitCode: 137},
			{Kind: invoker.StepLogs, Args: []string{"logs"}, Attempt: 1, ExitCode: 1},
		},
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	doc := Markdown("docker", "test", failedResult())

	for _, want := range []string{
		"### justci: `test` on `docker` ❌ failed (exit code 137, signal 9)",
		"| # | Step | Command | Attempt | Exit | Duration |",
		"| 1 | prefer | `prefer docker` | 1 | 0 | 1s |",
		"| 3 | start-ancillary | `start-ancillary` | 2 | 0 | 0s |",
		"| 4 | task | `test a\\|b` | 1 | 137 | 0s |",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("Markdown() missing %q\n%s", want, doc)
		}
	}
	if got := strings.Count(doc, "\n| "); got != 6 {
		t.Errorf("table rows = %d, want header plus 5 steps", got)
	}
}

func TestMarkdown_Passed(t *testing.T) {
	t.Parallel()

	doc := Markdown("podman", "build", &invoker.Result{ExitCode: types.ExitSuccess})
	if !strings.Contains(doc, "`build` on `podman` ✅ passed") {
		t.Errorf("Markdown() heading = %q", strings.SplitN(doc, "\n", 2)[0])
	}
}

func TestMarkdown_LaunchError(t *testing.T) {
	t.Parallel()

	res := &invoker.Result{
		ExitCode: types.ExitCommandNotFound,
		Steps: []invoker.StepRecord{
			{Kind: invoker.StepPrefer, Args: []string{"prefer", "docker"}, Attempt: 1, ExitCode: 127, Err: "run just: not found"},
		},
	}
	if doc := Markdown("docker", "test", res); !strings.Contains(doc, "> run just: not found") {
		t.Errorf("Markdown() missing launch error:\n%s", doc)
	}
}

func TestAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "summary.md")
	if err := os.WriteFile(path, []byte("existing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	getenv := func(key string) string {
		if key == StepSummaryEnv {
			return path
		}
		return ""
	}

	written, err := Append(getenv, "new")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !written {
		t.Error("Append() = false, want true")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "existing\nnew\n" {
		t.Errorf("summary file = %q", got)
	}
}

func TestAppend_NoSummaryFile(t *testing.T) {
	t.Parallel()

	written, err := Append(func(string) string { return "" }, "doc")
	if err != nil || written {
		t.Errorf("Append() = %v, %v; want false, nil", written, err)
	}
}

func TestPublish_RendersWithoutSummaryFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	doc := Markdown("docker", "test", failedResult())
	if err := Publish(func(string) string { return "" }, &buf, doc, "notty"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !strings.Contains(buf.String(), "start-ancillary") {
		t.Errorf("rendered output missing step names:\n%s", buf.String())
	}
}
