// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fnndsc/justci/internal/annotate"
	"github.com/fnndsc/justci/pkg/types"
)

const (
	// LogLevelDebug enables debug diagnostics.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default diagnostic level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn only reports warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError only reports errors.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidAttempts is returned when the ancillary attempt bound is negative.
	ErrInvalidAttempts = errors.New("invalid ancillary attempts")
	// ErrInvalidBackoff is returned when the ancillary backoff is negative.
	ErrInvalidBackoff = errors.New("invalid ancillary backoff")
	// ErrInvalidRecipe is returned when a recipe name is blank.
	ErrInvalidRecipe = errors.New("invalid recipe name")
	// ErrInvalidBinary is returned when the runner binary is blank.
	ErrInvalidBinary = errors.New("invalid runner binary")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of diagnostic logs written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the justci configuration.
	Config struct {
		// Engine is the container engine preference (INPUT_ENGINE).
		Engine types.EngineName `json:"engine" mapstructure:"engine"`
		// Command is the recipe to run (INPUT_COMMAND).
		Command types.TaskName `json:"command" mapstructure:"command"`
		// Runner configures the task runner process.
		Runner RunnerConfig `json:"runner" mapstructure:"runner"`
		// Ancillary configures ancillary service start-up.
		Ancillary AncillaryConfig `json:"ancillary" mapstructure:"ancillary"`
		// Logs configures the log dump on task failure.
		Logs LogsConfig `json:"logs" mapstructure:"logs"`
		// Recipes overrides the fixed recipe names.
		Recipes RecipesConfig `json:"recipes" mapstructure:"recipes"`
		// Annotations selects how warnings and errors are surfaced.
		Annotations AnnotationsConfig `json:"annotations" mapstructure:"annotations"`
		// Log configures diagnostic logging.
		Log LogConfig `json:"log" mapstructure:"log"`
		// Metrics configures the Prometheus textfile output.
		Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
		// Summary configures the job summary.
		Summary SummaryConfig `json:"summary" mapstructure:"summary"`

		// Source is the config file the values were read from, if any.
		Source string `json:"-" mapstructure:"-"`
	}

	// RunnerConfig configures the task runner process.
	RunnerConfig struct {
		Binary  string `json:"binary" mapstructure:"binary"`
		WorkDir string `json:"workdir" mapstructure:"workdir"`
	}

	// AncillaryConfig configures the bounded ancillary start-up retry.
	AncillaryConfig struct {
		// Attempts is the total number of start-up attempts; 0 skips the step.
		Attempts int `json:"attempts" mapstructure:"attempts"`
		// Backoff is the wait before the first retry. It doubles per retry.
		Backoff time.Duration `json:"backoff" mapstructure:"backoff"`
		// Warn emits a warning annotation for each failed attempt.
		Warn bool `json:"warn" mapstructure:"warn"`
	}

	// LogsConfig configures the log dump.
	LogsConfig struct {
		Enabled bool `json:"enabled" mapstructure:"enabled"`
	}

	// RecipesConfig names the recipes behind the fixed steps.
	RecipesConfig struct {
		Prefer         string `json:"prefer" mapstructure:"prefer"`
		StartAncillary string `json:"start_ancillary" mapstructure:"start_ancillary"`
		Logs           string `json:"logs" mapstructure:"logs"`
	}

	// AnnotationsConfig selects the annotation format.
	AnnotationsConfig struct {
		Mode annotate.Mode `json:"mode" mapstructure:"mode"`
	}

	// LogConfig configures diagnostic logging.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// MetricsConfig configures metrics output.
	MetricsConfig struct {
		Textfile string `json:"textfile" mapstructure:"textfile"`
	}

	// SummaryConfig configures the job summary.
	SummaryConfig struct {
		Enabled bool `json:"enabled" mapstructure:"enabled"`
	}
)

// DefaultConfig returns the built-in defaults. Engine and Command have no
// default and must come from the environment, the config file, or flags.
func DefaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{Binary: "just"},
		Ancillary: AncillaryConfig{
			Attempts: 5,
			Warn:     true,
		},
		Logs: LogsConfig{Enabled: true},
		Recipes: RecipesConfig{
			Prefer:         "prefer",
			StartAncillary: "start-ancillary",
			Logs:           "logs",
		},
		Annotations: AnnotationsConfig{Mode: annotate.ModeAuto},
		Log:         LogConfig{Level: LogLevelInfo},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate returns nil if the LogLevel is one of the recognized levels,
// or an error wrapping ErrInvalidLogLevel otherwise.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate checks every field, including the required engine and command.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Command.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.settingsErrors()...)
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// ValidateSettings checks every field except engine and command, which are
// only needed to run.
func (c *Config) ValidateSettings() error {
	if errs := c.settingsErrors(); len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func (c *Config) settingsErrors() []error {
	var errs []error
	if strings.TrimSpace(c.Runner.Binary) == "" {
		errs = append(errs, fmt.Errorf("%w: runner.binary must not be empty", ErrInvalidBinary))
	}
	if c.Ancillary.Attempts < 0 {
		errs = append(errs, fmt.Errorf("%w: must be >= 0 (got %d)", ErrInvalidAttempts, c.Ancillary.Attempts))
	}
	if c.Ancillary.Backoff < 0 {
		errs = append(errs, fmt.Errorf("%w: must not be negative (got %s)", ErrInvalidBackoff, c.Ancillary.Backoff))
	}
	for _, recipe := range [...]struct{ key, name string }{
		{"recipes.prefer", c.Recipes.Prefer},
		{"recipes.start_ancillary", c.Recipes.StartAncillary},
		{"recipes.logs", c.Recipes.Logs},
	} {
		if strings.TrimSpace(recipe.name) == "" {
			errs = append(errs, fmt.Errorf("%w: %s must not be empty", ErrInvalidRecipe, recipe.key))
		}
	}
	if err := c.Annotations.Mode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is/As.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
