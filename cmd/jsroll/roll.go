// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsroll/jsroll/internal/compiler"
	"github.com/jsroll/jsroll/internal/pipeline"
)

// buildFlags are shared by every command that runs a build.
type buildFlags struct {
	level       string
	syntaxCheck bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.level, "compilation-level", "c", "",
		"compression level: "+strings.Join(compiler.LevelNames(), ", ")+" (default from config)")
	cmd.Flags().BoolVarP(&f.syntaxCheck, "syntax-check", "s", false, "syntax-check every file with the compiler while resolving")
}

// options starts from the configured build options and applies the flags
// that were set. An unknown level is passed through so the build warns and
// falls back to the default.
func (f *buildFlags) options(cmd *cobra.Command, prj *project) pipeline.BuildOptions {
	opts, _ := pipeline.DefaultBuildOptions(prj.cfg)
	if cmd.Flags().Changed("compilation-level") {
		level, err := compiler.ParseLevel(f.level)
		if err != nil {
			level = compiler.Level(f.level)
		}
		opts.Level = level
	}
	if f.syntaxCheck {
		opts.SyntaxCheck = true
	}
	return opts
}

func newRollCommand(app *App) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:     "roll",
		Aliases: []string{"build"},
		Short:   "Build every bundle into build_dir",
		Long: `Build every bundle into build_dir.

The build directory is removed and recreated, assets are copied, and every
entry and worker file is resolved and compressed into its output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			report, err := prj.pipeline.Build(prj.ctx, flags.options(cmd, prj))
			if err != nil {
				return err
			}
			app.printBuildReport(prj, report)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *App) printBuildReport(prj *project, report *pipeline.BuildReport) {
	files := 0
	for _, b := range report.Bundles {
		files += b.Files
	}
	fmt.Fprintf(a.stdout, "%s Rolled %d bundle(s) from %d file(s) into %s\n",
		checkMark, len(report.Bundles), files, PathStyle.Render(prj.cfg.BuildDir))
}

func newWatchCommand(app *App) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a source file changes",
		Long: `Build, then rebuild whenever a source file changes.

Changes are collected for watch.debounce before a rebuild starts. The build
and docs output directories are never watched. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			return prj.pipeline.Watch(prj.ctx, flags.options(cmd, prj), app.stdout)
		},
	}
	flags.register(cmd)
	return cmd
}

func newPackageCommand(app *App) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build and archive build_dir as a .tar.gz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			archive, _, err := prj.pipeline.Package(prj.ctx, flags.options(cmd, prj))
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Packaged %s\n", checkMark, PathStyle.Render(archive))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
