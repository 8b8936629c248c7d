// SPDX-License-Identifier: MPL-2.0

// Package runner invokes the external task runner (`just` by default) with a
// structured argument list and reports the child's exit status.
//
// Arguments are never interpolated into a shell script: every value is passed
// to the child as its own argv entry. Child output is inherited from the
// parent, and a `set -x` style trace line is written before each invocation.
package runner
