// SPDX-License-Identifier: MPL-2.0

// Package invoker drives one CI invocation of the task runner:
//
//	prefer <engine> -> start-ancillary (bounded retry) -> <command> -> logs (on failure)
//
// Steps run strictly in sequence; each is a blocking child process. The
// result's exit code is the one the calling process should terminate with:
// 0 on success, 1 when ancillary start-up is exhausted, and otherwise the
// exact status of the failing step. The log-dump step is best effort and
// never changes that status.
package invoker
