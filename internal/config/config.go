// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fnndsc/justci/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "justci"
	// ConfigFileName is the name of the config file looked up in the base directory.
	ConfigFileName = "justci.cue"
	// ActionInputPrefix is the prefix CI action runners give input variables.
	ActionInputPrefix = "INPUT_"
	// EnvPrefix is the prefix of justci's own environment variables.
	EnvPrefix = "JUSTCI_"

	// maxConfigFileSize bounds how much of a config file is read.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// envBindings maps config keys to the action input name (without prefix) that
// may also set them. Keys without an input name are only read from JUSTCI_*.
var envBindings = []struct {
	key   string
	input string
}{
	{"engine", "ENGINE"},
	{"command", "COMMAND"},
	{"runner.binary", ""},
	{"runner.workdir", "WORKDIR"},
	{"ancillary.attempts", "ATTEMPTS"},
	{"ancillary.backoff", "BACKOFF"},
	{"ancillary.warn", "WARN"},
	{"logs.enabled", "DUMP_LOGS"},
	{"recipes.prefer", ""},
	{"recipes.start_ancillary", ""},
	{"recipes.logs", ""},
	{"annotations.mode", ""},
	{"log.level", ""},
	{"metrics.textfile", ""},
	{"summary.enabled", "SUMMARY"},
}

// EnvNames returns the environment variables read for key, highest
// precedence first.
func EnvNames(key string) []string {
	for _, b := range envBindings {
		if b.key != key {
			continue
		}
		own := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if b.input == "" {
			return []string{own}
		}
		return []string{ActionInputPrefix + b.input, own}
	}
	return nil
}

// loadWithOptions performs option-driven config loading.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	for _, b := range envBindings {
		if err := v.BindEnv(append([]string{b.key}, EnvNames(b.key)...)...); err != nil {
			return nil, fmt.Errorf("bind environment for %s: %w", b.key, err)
		}
	}

	path, explicit := resolvePath(opts)
	switch {
	case explicit && !fileExists(path):
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Check that the file exists and is readable").
			WithSuggestion("Use 'justci config show' to see the effective configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	case fileExists(path):
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'justci config dump' to print a valid configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	default:
		// No config file: defaults and environment only.
		path = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse configuration").
			WithResource(path).
			WithSuggestion("Durations use Go syntax, e.g. \"500ms\" or \"2s\"").
			WithSuggestion("Booleans must be true or false, counts whole numbers").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	cfg.Source = path

	if err := cfg.ValidateSettings(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Run 'justci config show' to see where each value comes from").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("engine", d.Engine.String())
	v.SetDefault("command", d.Command.String())
	v.SetDefault("runner.binary", d.Runner.Binary)
	v.SetDefault("runner.workdir", d.Runner.WorkDir)
	v.SetDefault("ancillary.attempts", d.Ancillary.Attempts)
	v.SetDefault("ancillary.backoff", d.Ancillary.Backoff)
	v.SetDefault("ancillary.warn", d.Ancillary.Warn)
	v.SetDefault("logs.enabled", d.Logs.Enabled)
	v.SetDefault("recipes.prefer", d.Recipes.Prefer)
	v.SetDefault("recipes.start_ancillary", d.Recipes.StartAncillary)
	v.SetDefault("recipes.logs", d.Recipes.Logs)
	v.SetDefault("annotations.mode", string(d.Annotations.Mode))
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("summary.enabled", d.Summary.Enabled)
}

// resolvePath returns the config file to read and whether it was requested
// explicitly. Without an explicit path, ConfigFileName in BaseDir is used.
func resolvePath(opts LoadOptions) (string, bool) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, true
	}
	return filepath.Join(opts.BaseDir, ConfigFileName), false
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a config file that loads back to the same values.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// justci configuration\n\n")

	if cfg.Engine != "" {
		fmt.Fprintf(&sb, "engine: %q\n", cfg.Engine)
	}
	if cfg.Command != "" {
		fmt.Fprintf(&sb, "command: %q\n", cfg.Command)
	}

	sb.WriteString("\nrunner: {\n")
	fmt.Fprintf(&sb, "\tbinary: %q\n", cfg.Runner.Binary)
	if cfg.Runner.WorkDir != "" {
		fmt.Fprintf(&sb, "\tworkdir: %q\n", cfg.Runner.WorkDir)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nancillary: {\n")
	fmt.Fprintf(&sb, "\tattempts: %d\n", cfg.Ancillary.Attempts)
	fmt.Fprintf(&sb, "\tbackoff: %q\n", cfg.Ancillary.Backoff.String())
	fmt.Fprintf(&sb, "\twarn: %v\n", cfg.Ancillary.Warn)
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nlogs: enabled: %v\n", cfg.Logs.Enabled)

	sb.WriteString("\nrecipes: {\n")
	fmt.Fprintf(&sb, "\tprefer: %q\n", cfg.Recipes.Prefer)
	fmt.Fprintf(&sb, "\tstart_ancillary: %q\n", cfg.Recipes.StartAncillary)
	fmt.Fprintf(&sb, "\tlogs: %q\n", cfg.Recipes.Logs)
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nannotations: mode: %q\n", cfg.Annotations.Mode)
	fmt.Fprintf(&sb, "log: level: %q\n", cfg.Log.Level)
	if cfg.Metrics.Textfile != "" {
		fmt.Fprintf(&sb, "metrics: textfile: %q\n", cfg.Metrics.Textfile)
	}
	fmt.Fprintf(&sb, "summary: enabled: %v\n", cfg.Summary.Enabled)

	return sb.String()
}
