// SPDX-License-Identifier: MPL-2.0

// Package config handles justci configuration using Viper with CUE as the file format.
//
// Settings are layered: built-in defaults, then a justci.cue file (from the
// working directory or an explicit path), then environment variables. CI
// action inputs (INPUT_ENGINE, INPUT_COMMAND, ...) take precedence over their
// JUSTCI_* equivalents. Command-line flags are applied by the caller on top of
// the loaded Config.
//
// Config files are validated against an embedded CUE schema (config_schema.cue)
// before being merged, so unknown keys and mistyped values are rejected with
// the offending path in the message.
package config
