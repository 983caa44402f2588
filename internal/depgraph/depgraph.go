// SPDX-License-Identifier: MPL-2.0

// Package depgraph builds the whole-tree require graph of a source directory.
// Unlike the resolver, which walks lazily from one root, it scans every source
// file up front so the full graph can be sorted, checked for cycles and
// exported.
package depgraph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jsroll/jsroll/pkg/directive"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the files that could not be ordered: the cycle members
		// and anything that requires them.
		Cycle []string
	}

	// Edge is one require: From requires To.
	Edge struct {
		From string
		To   string
	}

	// MissingRef is a require whose target does not exist.
	MissingRef struct {
		From      string
		Reference string
		Line      int
	}

	// Graph is the require graph of a source tree. Nodes are root-relative
	// slash paths. Sorting treats an edge From -> To as "To must come
	// before From".
	Graph struct {
		requires map[string][]string
		nodes    []string
		nodeSet  map[string]bool
		edges    []Edge
		missing  []MissingRef
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		requires: make(map[string][]string),
		nodeSet:  make(map[string]bool),
	}
}

// Build scans every source file under the scanner root and records its
// requires. Directory requires are skipped; requires of missing files are
// kept aside and reported by Missing.
func Build(ctx context.Context, s *directive.Scanner) (*Graph, error) {
	files, err := s.ScanTree(ctx)
	if err != nil {
		return nil, err
	}

	g := New()
	for _, path := range slices.Sorted(maps.Keys(files)) {
		from := s.Rel(path)
		g.AddNode(from)
		for _, occ := range files[path] {
			if occ.Ref.IsDir {
				continue
			}
			if _, ok := files[occ.Ref.Path]; !ok {
				g.missing = append(g.missing, MissingRef{From: from, Reference: occ.Ref.Raw, Line: occ.Line})
				continue
			}
			g.AddEdge(from, s.Rel(occ.Ref.Path))
		}
	}
	return g, nil
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from requires to. Both nodes are implicitly added.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.requires[from] = append(g.requires[from], to)
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.nodes) }

// Edges returns all requires in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Missing returns the requires whose targets were not found.
func (g *Graph) Missing() []MissingRef { return slices.Clone(g.missing) }

// Entries returns the files no other file requires, in insertion order.
// These are the candidate roots of a build.
func (g *Graph) Entries() []string {
	required := make(map[string]bool, len(g.nodes))
	for _, e := range g.edges {
		required[e.To] = true
	}
	var out []string
	for _, n := range g.nodes {
		if !required[n] {
			out = append(out, n)
		}
	}
	return out
}

// TopologicalSort returns every node with its requirements first, using
// Kahn's algorithm. Returns CycleError if the graph contains a cycle.
// Nodes at the same level appear in insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// pending counts the unresolved requires of each node; dependents is the
	// reverse adjacency used to release nodes once a requirement is placed.
	pending := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		pending[node] = len(g.requires[node])
		for _, req := range g.requires[node] {
			dependents[req] = append(dependents[req], node)
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if pending[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dep := range dependents[node] {
			pending[dep]--
			if pending[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if pending[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
