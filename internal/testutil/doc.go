// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Helpers cover environment variable management (MustSetenv, MustSetenvs,
// MustUnsetenv) and filesystem setup (MustChdir, MustMkdirAll, MustWriteFile).
// Tests that touch the process environment or working directory must not
// call t.Parallel().
package testutil
