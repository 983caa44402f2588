// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsroll/jsroll/internal/depgraph"
)

const (
	graphFormatDOT = "dot"
	graphFormatSVG = "svg"
)

func newGraphCommand(app *App) *cobra.Command {
	var (
		format  string
		output  string
		entries bool
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Draw the require graph of the whole source tree",
		Long: `Draw the require graph of the whole source tree.

Every source file under source_dir is scanned, not only the files reachable
from an entry. Files nothing requires are drawn bold; requires of missing
files are drawn dashed. The graph is written even when it contains a cycle,
and the cycle is reported afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(format)
			if format != graphFormatDOT && format != graphFormatSVG {
				return fmt.Errorf("unknown graph format %q (want %s or %s)", format, graphFormatDOT, graphFormatSVG)
			}

			prj, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			logger := loggerFromContext(prj.ctx)
			r, err := prj.pipeline.Resolver(false)
			if err != nil {
				return err
			}

			step := newProgress(logger)
			g, err := depgraph.Build(prj.ctx, r.Scanner())
			if err != nil {
				return err
			}
			step.done(fmt.Sprintf("Scanned %d file(s)", len(g.Nodes())))
			for _, m := range g.Missing() {
				logger.Warn("Missing dependency", "file", m.From, "line", m.Line, "require", m.Reference)
			}

			if entries {
				for _, e := range g.Entries() {
					fmt.Fprintln(app.stdout, e)
				}
				return nil
			}

			data := []byte(depgraph.ToDOT(g))
			if format == graphFormatSVG {
				if data, err = depgraph.RenderSVG(prj.ctx, string(data)); err != nil {
					return err
				}
			}
			if err := writeOutput(app.stdout, output, data); err != nil {
				return err
			}

			order, err := g.TopologicalSort()
			if err != nil {
				return err
			}
			logger.Debug("Load order", "files", order)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", graphFormatDOT, "output format: dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph to this file instead of standard output")
	cmd.Flags().BoolVar(&entries, "entries", false, "only print the files no other file requires")
	return cmd
}
