// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fnndsc/justci/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `justci config` command tree.
func newConfigCommand(app *App, rf *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect justci configuration",
		Long: `Inspect justci configuration.

Values are layered, later sources winning:
  1. built-in defaults
  2. ./` + config.ConfigFileName + ` (or the file given with --config)
  3. JUSTCI_* environment variables
  4. action inputs (INPUT_ENGINE, INPUT_COMMAND, ...)
  5. command-line flags of 'justci run'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, rf, cmd.OutOrStdout())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rf)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rf)
			if err != nil {
				return err
			}
			if cfg.Source == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(none, using defaults)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Source)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.ConfigFileName + " in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd.OutOrStdout())
		},
	})

	return cfgCmd
}

func loadConfig(ctx context.Context, app *App, rf *rootFlags) (*config.Config, error) {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: rf.configPath})
	if err != nil {
		return nil, &ExitError{Code: 1, Err: err}
	}
	return cfg, nil
}

func showConfig(ctx context.Context, app *App, rf *rootFlags, w io.Writer) error {
	cfg, err := loadConfig(ctx, app, rf)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	unset := SubtitleStyle.Render("(unset)")

	value := func(v any) string {
		s := fmt.Sprint(v)
		if s == "" {
			return unset
		}
		return valueStyle.Render(s)
	}
	line := func(key string, v any) {
		fmt.Fprintf(w, "  %s: %s", keyStyle.Render(key), value(v))
		if env := config.EnvNames(key); len(env) > 0 {
			fmt.Fprintf(w, " %s", VerboseStyle.Render("("+strings.Join(env, ", ")+")"))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Source != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	line("engine", cfg.Engine)
	line("command", cfg.Command)
	line("runner.binary", cfg.Runner.Binary)
	line("runner.workdir", cfg.Runner.WorkDir)
	line("ancillary.attempts", cfg.Ancillary.Attempts)
	line("ancillary.backoff", cfg.Ancillary.Backoff)
	line("ancillary.warn", cfg.Ancillary.Warn)
	line("logs.enabled", cfg.Logs.Enabled)
	line("recipes.prefer", cfg.Recipes.Prefer)
	line("recipes.start_ancillary", cfg.Recipes.StartAncillary)
	line("recipes.logs", cfg.Recipes.Logs)
	line("annotations.mode", cfg.Annotations.Mode)
	line("log.level", cfg.Log.Level)
	line("metrics.textfile", cfg.Metrics.Textfile)
	line("summary.enabled", cfg.Summary.Enabled)

	return nil
}

func initConfig(w io.Writer) error {
	path := config.ConfigFileName
	if _, err := os.Stat(path); err == nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("%s already exists", path)}
	}

	if err := os.WriteFile(path, []byte(config.GenerateCUE(config.DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(w, "%s Created %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
