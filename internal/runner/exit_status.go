// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"os/exec"

	"github.com/fnndsc/justci/pkg/types"
)

// exitStatus maps the error from exec.Cmd.Run to the status a POSIX shell
// would report. The returned error is nil whenever the child actually ran,
// whatever its status.
func exitStatus(err error) (types.ExitCode, error) {
	if err == nil {
		return types.ExitSuccess, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := signalExitCode(exitErr.ProcessState); ok {
			return code, nil
		}
		code := types.ExitCode(exitErr.ExitCode())
		if validateErr := code.Validate(); validateErr != nil {
			return types.ExitFailure, validateErr
		}
		return code, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return types.ExitCommandNotFound, err
	}

	// Permission denied, bad working directory and similar start failures.
	return types.ExitFailure, err
}
