// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package runner

import "os"

func selfKill() { os.Exit(137) }
