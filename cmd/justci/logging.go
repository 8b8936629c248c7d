// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/fnndsc/justci/internal/config"

	"github.com/charmbracelet/log"
)

// newLogger returns an slog.Logger backed by a charmbracelet/log handler.
// verbose forces debug level regardless of level.
func newLogger(w io.Writer, level config.LogLevel, verbose bool) *slog.Logger {
	lvl, err := log.ParseLevel(level.String())
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  lvl,
	})
	return slog.New(handler)
}

// configureLogging installs the process-wide logger.
func configureLogging(w io.Writer, level config.LogLevel, verbose bool) {
	slog.SetDefault(newLogger(w, level, verbose))
}
