// SPDX-License-Identifier: MPL-2.0

//go:build unix

package runner

import (
	"os"
	"syscall"

	"github.com/fnndsc/justci/pkg/types"
)

func signalExitCode(state *os.ProcessState) (types.ExitCode, bool) {
	if state == nil {
		return 0, false
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return types.ExitCodeFromSignal(int(ws.Signal())), true
}
