// SPDX-License-Identifier: MPL-2.0

// Package directive finds //#require directives in JavaScript sources and
// resolves the references they declare to file-system paths.
//
// Two equivalent forms are recognized, one per line, anchored at the start of
// the line:
//
//	//#require "path/to/file"
//	//#require <path/to/file>
//
// The scanner performs no recursion and does not check that referenced files
// exist; that is the job of the bundler.
package directive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultExtension is the canonical source extension appended to references
// that do not already carry it.
const DefaultExtension = ".js"

// ErrDirectoryExpansionUnsupported is returned by Expand for directory
// references. Requiring every source file in a directory is not implemented.
var ErrDirectoryExpansionUnsupported = errors.New("directory requires are not expanded")

// requirePattern matches a directive line. The delimiter classes accept either
// quote or angle bracket at either end and the capture is taken verbatim.
// A trailing \r is tolerated so CRLF sources still match.
var requirePattern = regexp.MustCompile(`(?m)^//#require ["<](.+)[">]\r?$`)

type (
	// Reference is a declared dependency resolved against the scan root.
	Reference struct {
		// Raw is the string captured from the directive.
		Raw string
		// Path is the resolved, cleaned path.
		Path string
		// IsDir reports whether Path named an existing directory at resolve time.
		IsDir bool
	}

	// Occurrence is one directive line found in a source file.
	Occurrence struct {
		// Start and End delimit the directive line in the file text, excluding
		// the line terminator.
		Start, End int
		// Line is the 1-based line number of the directive.
		Line int
		// Ref is the resolved reference declared by the directive.
		Ref Reference
	}

	// Scanner extracts directive occurrences relative to a root directory.
	Scanner struct {
		root string
		ext  string
	}

	// Option configures a Scanner.
	Option func(*Scanner)
)

// WithExtension overrides the source extension (default ".js").
func WithExtension(ext string) Option {
	return func(s *Scanner) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// NewScanner creates a Scanner rooted at root. The root is made absolute so
// every resolved path is normalized the same way regardless of the caller's
// working directory.
func NewScanner(root string, opts ...Option) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("directive: resolve root %q: %w", root, err)
	}
	s := &Scanner{root: abs, ext: DefaultExtension}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string { return s.root }

// Extension returns the recognized source extension.
func (s *Scanner) Extension() string { return s.ext }

// IsSource reports whether path carries the recognized source extension.
func (s *Scanner) IsSource(path string) bool {
	return strings.HasSuffix(path, s.ext)
}

// Resolve turns a raw reference into a path. The raw string is joined to the
// root; unless the result is an existing directory or already ends with the
// source extension, the extension is appended.
func (s *Scanner) Resolve(raw string) Reference {
	p := filepath.Join(s.root, filepath.FromSlash(raw))
	ref := Reference{Raw: raw, Path: p}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		ref.IsDir = true
		return ref
	}
	if !s.IsSource(p) {
		ref.Path = p + s.ext
	}
	return ref
}

// Path returns the normalized absolute path for a root-relative name. Entry
// points are named this way (e.g. "Application.js", "workers/indexer.js").
func (s *Scanner) Path(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Rel returns path relative to the root with forward slashes, falling back to
// the path itself when it lies outside the root.
func (s *Scanner) Rel(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Parse extracts the directive occurrences of already-loaded text in source
// order.
func (s *Scanner) Parse(text string) []Occurrence {
	matches := requirePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]Occurrence, 0, len(matches))
	line, lineAt := 1, 0
	for _, m := range matches {
		start, end := m[0], m[1]
		line += strings.Count(text[lineAt:start], "\n")
		lineAt = start

		if strings.HasSuffix(text[start:end], "\r") {
			end--
		}
		raw := text[m[2]:m[3]]
		out = append(out, Occurrence{
			Start: start,
			End:   end,
			Line:  line,
			Ref:   s.Resolve(raw),
		})
	}
	return out
}

// Scan reads the file at path and returns its directive occurrences together
// with the raw text.
func (s *Scanner) Scan(path string) (string, []Occurrence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("directive: read %s: %w", path, err)
	}
	text := string(data)
	return text, s.Parse(text), nil
}

// ScanTree walks the root and scans every source file. It is an eager form of
// Scan; the per-file results are identical.
func (s *Scanner) ScanTree(ctx context.Context) (map[string][]Occurrence, error) {
	files := make(map[string][]Occurrence)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !s.IsSource(path) {
			return nil
		}
		_, occs, err := s.Scan(path)
		if err != nil {
			return err
		}
		files[path] = occs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("directive: scan tree %s: %w", s.root, err)
	}
	return files, nil
}

// Expand returns the source files a reference stands for. File references
// expand to themselves; directory references are not supported yet.
func Expand(ref Reference) ([]string, error) {
	if ref.IsDir {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryExpansionUnsupported, ref.Path)
	}
	return []string{ref.Path}, nil
}
