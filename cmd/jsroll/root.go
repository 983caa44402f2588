// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

// NewRootCommand builds the jsroll command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "jsroll",
		Short: "Roll //#require'd JavaScript into bundles",
		Long: TitleStyle.Render("jsroll") + SubtitleStyle.Render(" - Roll //#require'd JavaScript into bundles") + `

jsroll follows //#require "path" directives from each entry file and
inlines every dependency exactly once, before the code that needs it.
The bundles are compressed with the Closure Compiler and written to the
build directory together with the static assets.

` + SubtitleStyle.Render("Examples:") + `
  jsroll roll                     Build every bundle into build_dir
  jsroll roll -c NONE             Build without compression
  jsroll list --format tags       Print <script> tags for development
  jsroll graph --format svg -o deps.svg
  jsroll watch                    Rebuild on every change`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default ./jsroll.cue, then the user config directory)")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newRollCommand(app),
		newBundleCommand(app),
		newListCommand(app),
		newGraphCommand(app),
		newWatchCommand(app),
		newPackageCommand(app),
		newTestsCommand(app),
		newDocsCommand(app),
		newConfigCommand(app),
	)
	classifyErrors(root)
	return root
}

// classifyErrors routes the error of every RunE in the tree through
// classifyError.
func classifyErrors(c *cobra.Command) {
	if run := c.RunE; run != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			return classifyError(run(cmd, args))
		}
	}
	for _, sub := range c.Commands() {
		classifyErrors(sub)
	}
}

// Execute runs jsroll with the process arguments and exits. It is called by
// main.main.
func Execute() {
	os.Exit(Run(context.Background(), NewApp(Dependencies{}), os.Args[1:]))
}

// Run executes the command tree with args and returns the process exit code.
func Run(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(Version),
		fang.WithCommit(Commit),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.errorHandler),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitFailure
}
