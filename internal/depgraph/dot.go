// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT renders the graph in Graphviz DOT format. Edges point from a file to
// the file it requires; entries are drawn bold and missing requires dashed.
func ToDOT(g *Graph) string {
	entries := make(map[string]bool)
	for _, e := range g.Entries() {
		entries[e] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		if entries[n] {
			fmt.Fprintf(&buf, "  %q [penwidth=2];\n", n)
			continue
		}
		fmt.Fprintf(&buf, "  %q;\n", n)
	}

	if missing := g.Missing(); len(missing) > 0 {
		buf.WriteString("\n")
		for _, m := range missing {
			fmt.Fprintf(&buf, "  %q [style=\"rounded,dashed\", fontcolor=red];\n", m.Reference)
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=red];\n", m.From, m.Reference)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
