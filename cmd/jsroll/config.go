// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsroll/jsroll/internal/config"
)

const (
	dumpFormatCUE  = "cue"
	dumpFormatTOML = "toml"
)

// newConfigCommand creates the `jsroll config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage jsroll configuration",
		Long: `Manage jsroll configuration.

Configuration is read from the first of:
  - the file given with --config
  - jsroll.cue in the working directory
  - config.cue in the user config directory (see 'jsroll config path')

Every value can be overridden with a JSROLL_ environment variable, e.g.
JSROLL_BUILD_DIR=dist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var dumpFormat string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpConfig(cmd.Context(), app, strings.ToLower(dumpFormat))
		},
	}
	dumpCmd.Flags().StringVar(&dumpFormat, "format", dumpFormatCUE, "output format: cue, toml")
	cfgCmd.AddCommand(dumpCmd)

	var (
		force bool
		user  bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to ./jsroll.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, user, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&user, "user", false, "write the user config file instead of the project file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, opts, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	resolved, err := config.ResolvePath(opts)
	if err != nil {
		return err
	}

	w := app.stdout
	key := PathStyle.Render
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if resolved == "" {
		resolved = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(w, "%s: %s\n\n", key("Config file"), resolved)

	fmt.Fprintf(w, "%s: %s\n", key("source_dir"), cfg.SourceDir)
	fmt.Fprintf(w, "%s: %s\n", key("build_dir"), cfg.BuildDir)
	fmt.Fprintf(w, "%s: %s\n", key("extension"), cfg.Extension)

	fmt.Fprintf(w, "\n%s:\n", key("entries"))
	if len(cfg.Entries) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, e := range cfg.Entries {
		fmt.Fprintf(w, "  - %s -> %s\n", e.Root, e.Output)
	}
	fmt.Fprintf(w, "\n%s: %s -> %s\n", key("workers"), cfg.Workers.Dir, cfg.Workers.OutputDir)

	fmt.Fprintf(w, "\n%s:\n", key("assets"))
	if len(cfg.Assets) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, a := range cfg.Assets {
		suffix := ""
		if a.Optional {
			suffix = SubtitleStyle.Render(" (optional)")
		}
		fmt.Fprintf(w, "  - %s -> %s%s\n", a.From, a.To, suffix)
	}

	fmt.Fprintf(w, "\n%s:\n", key("compiler"))
	fmt.Fprintf(w, "  jar: %s\n", cfg.Compiler.Jar)
	fmt.Fprintf(w, "  java: %s\n", cfg.Compiler.Java)
	fmt.Fprintf(w, "  level: %s\n", cfg.Compiler.Level)
	fmt.Fprintf(w, "  warning_level: %s\n", cfg.Compiler.WarningLevel)
	fmt.Fprintf(w, "  syntax_check: %v\n", cfg.Compiler.SyntaxCheck)

	fmt.Fprintf(w, "\n%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", cfg.UI.ColorScheme)
	fmt.Fprintf(w, "  verbose: %v\n", cfg.UI.Verbose)
	return nil
}

func dumpConfig(ctx context.Context, app *App, format string) error {
	if format != dumpFormatCUE && format != dumpFormatTOML {
		return fmt.Errorf("unknown config format %q (want %s or %s)", format, dumpFormatCUE, dumpFormatTOML)
	}
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	if format == dumpFormatTOML {
		out, err := config.GenerateTOML(cfg)
		if err != nil {
			return err
		}
		_, err = app.stdout.Write(out)
		return err
	}
	_, err = io.WriteString(app.stdout, config.GenerateCUE(cfg))
	return err
}

func initConfig(app *App, user, force bool) error {
	path, err := initPath(app, user)
	if err != nil {
		return err
	}
	if err := config.WriteFile(path, config.DefaultConfig(), force); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", checkMark, PathStyle.Render(path))
	return nil
}

func initPath(app *App, user bool) (string, error) {
	if !user {
		opts, err := app.loadOptions()
		if err != nil {
			return "", err
		}
		return filepath.Join(opts.WorkDir, config.ProjectFileName), nil
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt), nil
}

func showConfigPath(app *App) error {
	opts, err := app.loadOptions()
	if err != nil {
		return err
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	resolved, err := config.ResolvePath(opts)
	if err != nil {
		return err
	}
	if resolved == "" {
		resolved = "(none, using defaults)"
	}

	fmt.Fprintf(app.stdout, "Project file: %s\n", filepath.Join(opts.WorkDir, config.ProjectFileName))
	fmt.Fprintf(app.stdout, "User config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	fmt.Fprintf(app.stdout, "In use: %s\n", resolved)
	return nil
}
