// SPDX-License-Identifier: MPL-2.0

// Package bundler resolves //#require directives from a root file into either
// one substituted bundle or the ordered list of files the bundle is made of.
//
// Resolution is a depth-first walk. Each required file's text replaces the
// directive line that required it; a file already emitted earlier in the walk
// is replaced by empty text, so every file is included at most once and every
// dependency precedes its dependents. Cycles are reported as errors.
package bundler

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jsroll/jsroll/pkg/directive"
)

const (
	// ModeBundle retains the substituted text of the root file.
	ModeBundle Mode = iota
	// ModeList retains only the resolution order.
	ModeList
)

type (
	// Mode selects what a resolution retains.
	Mode int

	// Validator checks source files for syntax errors before they are
	// accepted into a bundle. Validate returns false when any file is
	// malformed; a non-nil error means the check itself could not run.
	Validator interface {
		Validate(ctx context.Context, paths []string) (bool, error)
	}

	// ValidatorFunc adapts a function to the Validator interface.
	ValidatorFunc func(ctx context.Context, paths []string) (bool, error)

	// SourceFile is a loaded file with its outgoing references.
	SourceFile struct {
		Path     string
		Text     string
		Requires []directive.Occurrence
	}

	// Result is the outcome of one top-level resolution.
	Result struct {
		// Root is the normalized path of the root file.
		Root string
		// Text is the substituted root text. Empty in ModeList.
		Text string
		// Order lists every reachable file once, dependencies first.
		Order []string
	}

	// Resolver resolves roots against a directive scanner. It holds only
	// configuration; every Resolve call gets its own traversal state, so one
	// Resolver may serve concurrent resolutions.
	Resolver struct {
		scanner   *directive.Scanner
		validator Validator
		logger    *log.Logger
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// traversal is the state of a single top-level resolution.
	traversal struct {
		r          *Resolver
		ctx        context.Context
		keepText   bool
		visited    map[string]struct{}
		inProgress map[string]int
		stack      []string
		order      []string
	}
)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, paths []string) (bool, error) {
	return f(ctx, paths)
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBundle:
		return "bundle"
	case ModeList:
		return "list"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// WithValidator enables a per-file syntax check during traversal.
func WithValidator(v Validator) Option {
	return func(r *Resolver) { r.validator = v }
}

// WithLogger sets the logger used for debug tracing of the walk.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver reading files through scanner.
func New(scanner *directive.Scanner, opts ...Option) *Resolver {
	r := &Resolver{
		scanner: scanner,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scanner returns the directive scanner the resolver reads through.
func (r *Resolver) Scanner() *directive.Scanner { return r.scanner }

// Resolve walks the dependency graph from root. root may be absolute or
// relative to the scanner root. Any error aborts the whole resolution and no
// partial result is returned.
func (r *Resolver) Resolve(ctx context.Context, root string, mode Mode) (*Result, error) {
	rootPath := r.scanner.Path(root)
	if !isFile(rootPath) {
		return nil, &MissingDependencyError{Reference: root, Path: rootPath}
	}

	t := &traversal{
		r:          r,
		ctx:        ctx,
		keepText:   mode == ModeBundle,
		visited:    make(map[string]struct{}),
		inProgress: make(map[string]int),
	}

	text, err := t.visit(rootPath)
	if err != nil {
		return nil, err
	}

	res := &Result{Root: rootPath, Order: t.order}
	if t.keepText {
		res.Text = text
	}
	r.logger.Debug("resolved", "root", r.scanner.Rel(rootPath), "mode", mode, "files", len(t.order))
	return res, nil
}

// Bundle returns the fully substituted text of root.
func (r *Resolver) Bundle(ctx context.Context, root string) (string, error) {
	res, err := r.Resolve(ctx, root, ModeBundle)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// List returns the files reachable from root in dependency order.
func (r *Resolver) List(ctx context.Context, root string) ([]string, error) {
	res, err := r.Resolve(ctx, root, ModeList)
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

// Load reads a source file and its directives.
func (r *Resolver) Load(path string) (*SourceFile, error) {
	text, occs, err := r.scanner.Scan(path)
	if err != nil {
		return nil, err
	}
	return &SourceFile{Path: path, Text: text, Requires: occs}, nil
}

// visit returns the substituted text of path, or "" when path was already
// emitted or is not a source file.
func (t *traversal) visit(path string) (string, error) {
	if _, done := t.visited[path]; done {
		return "", nil
	}
	if !t.r.scanner.IsSource(path) {
		t.r.logger.Debug("skipping non-source reference", "path", t.r.scanner.Rel(path))
		return "", nil
	}
	if idx, busy := t.inProgress[path]; busy {
		cycle := make([]string, 0, len(t.stack)-idx+1)
		for _, p := range t.stack[idx:] {
			cycle = append(cycle, t.r.scanner.Rel(p))
		}
		cycle = append(cycle, t.r.scanner.Rel(path))
		return "", &CyclicDependencyError{Cycle: cycle}
	}
	if err := t.ctx.Err(); err != nil {
		return "", err
	}

	t.inProgress[path] = len(t.stack)
	t.stack = append(t.stack, path)

	if t.r.validator != nil {
		ok, err := t.r.validator.Validate(t.ctx, []string{path})
		if err != nil {
			return "", fmt.Errorf("syntax check %s: %w", path, err)
		}
		if !ok {
			return "", &SyntaxError{Path: path}
		}
	}

	src, err := t.r.Load(path)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if t.keepText {
		out.Grow(len(src.Text))
	}
	prev := 0
	for _, occ := range src.Requires {
		if !exists(occ.Ref) {
			return "", &MissingDependencyError{
				Requirer:  path,
				Reference: occ.Ref.Raw,
				Path:      occ.Ref.Path,
				Line:      occ.Line,
			}
		}
		sub, err := t.require(occ.Ref)
		if err != nil {
			return "", err
		}
		if t.keepText {
			out.WriteString(src.Text[prev:occ.Start])
			out.WriteString(sub)
		}
		prev = occ.End
	}
	if t.keepText {
		out.WriteString(src.Text[prev:])
	}

	t.stack = t.stack[:len(t.stack)-1]
	delete(t.inProgress, path)
	t.visited[path] = struct{}{}
	t.order = append(t.order, path)
	t.r.logger.Debug("resolved file", "path", t.r.scanner.Rel(path), "requires", len(src.Requires))

	return out.String(), nil
}

// require substitutes one directive. Directory references are accepted but
// produce no text and no order entry, whatever their name ends with.
func (t *traversal) require(ref directive.Reference) (string, error) {
	if !ref.IsDir {
		return t.visit(ref.Path)
	}
	if _, err := directive.Expand(ref); err != nil {
		t.r.logger.Debug("skipping directory reference", "path", t.r.scanner.Rel(ref.Path), "err", err)
	}
	return "", nil
}

// exists reports whether a reference names an existing file or directory.
func exists(ref directive.Reference) bool {
	if ref.IsDir {
		return true
	}
	return isFile(ref.Path)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
