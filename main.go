// SPDX-License-Identifier: MPL-2.0

// Command justci runs a just recipe in CI: it applies a container engine
// preference, starts ancillary services with a bounded retry, runs the recipe
// and dumps service logs when it fails.
package main

import cmd "github.com/fnndsc/justci/cmd/justci"

func main() {
	cmd.Execute()
}
