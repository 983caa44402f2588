// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsroll/jsroll/pkg/emit"
)

// errNoEntries is returned by commands that default to the first entry when
// none is configured.
var errNoEntries = errors.New("no entries configured; pass a root file")

func newBundleCommand(app *App) *cobra.Command {
	var (
		output      string
		syntaxCheck bool
	)
	cmd := &cobra.Command{
		Use:   "bundle <root>",
		Short: "Resolve one root file into a single uncompressed bundle",
		Long: `Resolve one root file into a single uncompressed bundle.

The root is relative to source_dir. Without -o the bundle is written to
standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			r, err := prj.pipeline.Resolver(syntaxCheck || prj.cfg.Compiler.SyntaxCheck)
			if err != nil {
				return err
			}

			if output == "" {
				text, err := r.Bundle(prj.ctx, args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(app.stdout, text)
				return err
			}
			step := newProgress(loggerFromContext(prj.ctx))
			if err := emit.WriteBundle(prj.ctx, r, args[0], output); err != nil {
				return err
			}
			step.done("Wrote " + output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the bundle to this file instead of standard output")
	cmd.Flags().BoolVarP(&syntaxCheck, "syntax-check", "s", false, "syntax-check every file with the compiler while resolving")
	return cmd
}

func newListCommand(app *App) *cobra.Command {
	var (
		format string
		base   string
	)
	cmd := &cobra.Command{
		Use:   "list [root]",
		Short: "Print the files of a bundle in load order",
		Long: `Print the files of a bundle in load order.

Every file appears after the files it requires, so the "tags" format can be
pasted into an HTML page to load the sources unbundled during development.
Without a root the first configured entry is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := emit.Format(strings.ToLower(format))
			if ok, errs := f.IsValid(); !ok {
				return errs[0]
			}

			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			root, err := listRoot(prj, args)
			if err != nil {
				return err
			}
			r, err := prj.pipeline.Resolver(false)
			if err != nil {
				return err
			}
			refs, err := emit.ListReferences(prj.ctx, r, root)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("base") {
				base = prj.pipeline.Dir()
			}
			return emit.WriteReferences(app.stdout, refs, f, base)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(emit.FormatScriptTags), "output format: "+strings.Join(emit.FormatNames(), ", "))
	cmd.Flags().StringVar(&base, "base", "", "print paths relative to this directory (default the working directory)")
	return cmd
}

func listRoot(prj *project, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	entries, err := prj.pipeline.Entries()
	if err != nil {
		return "", fmt.Errorf("list entries: %w", err)
	}
	if len(entries) == 0 {
		return "", errNoEntries
	}
	return entries[0].Root, nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
