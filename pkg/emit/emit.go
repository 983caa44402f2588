// SPDX-License-Identifier: MPL-2.0

// Package emit turns resolutions into output: a single bundle file, or an
// ordered list of references for loading files one by one.
package emit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jsroll/jsroll/pkg/bundler"
)

const (
	// FormatScriptTags renders one <script> tag per file.
	FormatScriptTags Format = "tags"
	// FormatPaths renders one path per line.
	FormatPaths Format = "paths"
	// FormatJSON renders a JSON array of paths.
	FormatJSON Format = "json"
	// FormatYAML renders a YAML sequence of paths.
	FormatYAML Format = "yaml"
)

// ErrInvalidFormat is returned when a Format value is not recognized.
var ErrInvalidFormat = errors.New("invalid reference format")

var scriptTag = template.Must(template.New("script").Parse(
	`<script src="{{.}}" type="text/javascript" charset="utf-8"></script>` + "\n"))

type (
	// Format selects how a reference list is rendered.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	// It wraps ErrInvalidFormat for errors.Is() compatibility.
	InvalidFormatError struct {
		Value Format
	}
)

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid reference format %q (valid: %s)", e.Value, strings.Join(FormatNames(), ", "))
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// FormatNames lists the accepted format names.
func FormatNames() []string {
	return []string{string(FormatScriptTags), string(FormatPaths), string(FormatJSON), string(FormatYAML)}
}

// IsValid returns whether the Format is one of the defined formats.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatScriptTags, FormatPaths, FormatJSON, FormatYAML:
		return true, nil
	default:
		return false, []error{&InvalidFormatError{Value: f}}
	}
}

// WriteBundle resolves root in bundle mode and writes the text verbatim to
// dest, replacing any existing content. Nothing is written when resolution
// fails. The file is written next to dest and renamed into place.
func WriteBundle(ctx context.Context, r *bundler.Resolver, root, dest string) error {
	_, err := WriteResult(ctx, r, root, dest)
	return err
}

// WriteResult is WriteBundle returning the resolution, for callers that
// report the files a bundle covers.
func WriteResult(ctx context.Context, r *bundler.Resolver, root, dest string) (_ *bundler.Result, err error) {
	res, err := r.Resolve(ctx, root, bundler.ModeBundle)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp bundle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) // Best-effort cleanup on error path
		}
	}()

	if _, err = io.WriteString(tmp, res.Text); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write bundle: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, fmt.Errorf("chmod bundle: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("move bundle into place: %w", err)
	}
	return res, nil
}

// ListReferences resolves root in list mode.
func ListReferences(ctx context.Context, r *bundler.Resolver, root string) ([]string, error) {
	return r.List(ctx, root)
}

// WriteReferences renders refs to w in the requested format. When base is
// non-empty every path is made relative to it and uses forward slashes, which
// is what a browser needs when the files are served from base.
func WriteReferences(w io.Writer, refs []string, f Format, base string) error {
	if ok, errs := f.IsValid(); !ok {
		return errs[0]
	}

	paths := make([]string, len(refs))
	for i, ref := range refs {
		paths[i] = refPath(ref, base)
	}

	switch f {
	case FormatScriptTags:
		for _, p := range paths {
			if err := scriptTag.Execute(w, p); err != nil {
				return fmt.Errorf("render script tag: %w", err)
			}
		}
	case FormatPaths:
		for _, p := range paths {
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(paths); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(paths); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	}
	return nil
}

func refPath(ref, base string) string {
	if base == "" {
		return ref
	}
	rel, err := filepath.Rel(base, ref)
	if err != nil {
		return ref
	}
	return filepath.ToSlash(rel)
}
