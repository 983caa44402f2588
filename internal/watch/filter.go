// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnores are never watched: VCS metadata, package caches, editor
// swap files and OS metadata.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.#*",
	"**/.DS_Store",
}

// filter decides which project-relative paths trigger a rebuild.
type filter struct {
	include []string
	exclude []string
	dirs    []string
}

// newFilter validates every glob up front so a typo fails at startup
// instead of never matching. Each excluded directory also excludes
// everything below it.
func newFilter(patterns, ignore, excludeDirs []string) (*filter, error) {
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(ignore, "ignore"); err != nil {
		return nil, err
	}

	f := &filter{
		include: slices.Clone(patterns),
		exclude: slices.Concat(defaultIgnores, ignore),
	}
	for _, dir := range excludeDirs {
		dir = strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")
		if dir == "" || dir == "." || strings.HasPrefix(dir, "../") {
			continue
		}
		f.dirs = append(f.dirs, dir)
	}
	return f, nil
}

// excluded reports whether rel matches an ignore pattern or lies in an
// excluded directory.
func (f *filter) excluded(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, dir := range f.dirs {
		if normalized == dir || strings.HasPrefix(normalized, dir+"/") {
			return true
		}
	}
	return matchAny(f.exclude, normalized)
}

// included reports whether rel should trigger a rebuild. No patterns means
// every non-excluded path does.
func (f *filter) included(rel string) bool {
	if f.excluded(rel) {
		return false
	}
	return len(f.include) == 0 || matchAny(f.include, filepath.ToSlash(rel))
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
