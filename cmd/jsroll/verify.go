// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "Syntax-check the test files with the compiler",
		Long: `Syntax-check the test files with the compiler.

All files matching tests.pattern under tests.dir are checked in a single
compiler run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			n, err := prj.pipeline.VerifyTests(prj.ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				fmt.Fprintf(app.stdout, "%s %d test file(s) passed the syntax check\n", checkMark, n)
			}
			return nil
		},
	}
}

func newDocsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Generate API documentation with the configured tool",
		Long: `Generate API documentation with the configured tool.

docs.output_dir is removed first. docs.command runs as a shell script with
the output directory in $JSROLL_DOCS_OUT and the source files directly inside
each of docs.dirs as its arguments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			out, err := prj.pipeline.Docs(prj.ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Documentation written to %s\n", checkMark, PathStyle.Render(out))
			return nil
		},
	}
}
