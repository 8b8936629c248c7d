// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	// The exec helper process must not go through testscript's setup.
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		os.Exit(m.Run())
	}

	testscript.Main(m, map[string]func(){
		"justci": func() { os.Exit(Run()) },
		"just":   fakeJust,
	})
}

// TestScripts runs the CLI scripts in testdata/script against the real binary
// entry point, with a fake `just` on PATH.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("FAKE_JUST_STATE", env.WorkDir)
			return nil
		},
	})
}

// fakeJust records every invocation in $FAKE_JUST_STATE/just.calls and exits
// with a status chosen through the environment:
//
//	FAKE_JUST_<RECIPE>=<code>          always exit with code
//	FAKE_JUST_<RECIPE>_FAILURES=<n>    exit 1 on the first n calls
//
// <RECIPE> is the recipe name upper-cased with '-' replaced by '_'.
func fakeJust() {
	args := os.Args[1:]
	state := os.Getenv("FAKE_JUST_STATE")
	line := strings.Join(args, " ")

	if err := appendLine(filepath.Join(state, "just.calls"), line); err != nil {
		fmt.Fprintln(os.Stderr, "fake just:", err)
		os.Exit(2)
	}
	fmt.Println("just " + line)
	if len(args) == 0 {
		os.Exit(0)
	}

	recipe := args[0]
	key := "FAKE_JUST_" + strings.ToUpper(strings.ReplaceAll(recipe, "-", "_"))

	if n, err := strconv.Atoi(os.Getenv(key + "_FAILURES")); err == nil {
		counter := filepath.Join(state, recipe+".count")
		calls := 0
		if data, err := os.ReadFile(counter); err == nil {
			calls, _ = strconv.Atoi(strings.TrimSpace(string(data)))
		}
		calls++
		_ = os.WriteFile(counter, []byte(strconv.Itoa(calls)), 0o644)
		if calls <= n {
			os.Exit(1)
		}
	}
	if code, err := strconv.Atoi(os.Getenv(key)); err == nil {
		os.Exit(code)
	}
	os.Exit(0)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
