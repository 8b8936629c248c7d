// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package runner

import (
	"os"

	"github.com/fnndsc/justci/pkg/types"
)

// signalExitCode is a no-op where processes are not terminated by POSIX signals.
func signalExitCode(*os.ProcessState) (types.ExitCode, bool) { return 0, false }
