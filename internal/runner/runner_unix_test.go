// SPDX-License-Identifier: MPL-2.0

//go:build unix

package runner

import (
	"bytes"
	"context"
	"syscall"
	"testing"
)

func selfKill() {
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGKILL)
	select {}
}

func TestJustRunner_SignalledChildReportsShellStatus(t *testing.T) {
	t.Parallel()

	helper := &helperProcess{extraEnv: []string{"GO_HELPER_SELF_KILL=1"}}
	r := New(
		WithExecCommand(helper.commandFunc()),
		WithStdio(nil, &bytes.Buffer{}, &bytes.Buffer{}),
		WithTrace(nil),
	)
	code, err := r.Run(context.Background(), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 137 {
		t.Errorf("exit code = %d, want 137 for SIGKILL", code)
	}
}
