// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// TestFiles returns the test files selected by tests.dir and tests.pattern,
// sorted.
func (p *Pipeline) TestFiles() ([]string, error) {
	dir := p.path(p.cfg.Tests.Dir)
	pattern := p.cfg.Tests.Pattern
	if pattern == "" {
		pattern = "*.js"
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("tests pattern %q: %w", pattern, err)
	}
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	slices.Sort(files)
	return files, nil
}

// VerifyTests syntax-checks every test file in a single compiler run and
// returns how many files were checked.
func (p *Pipeline) VerifyTests(ctx context.Context) (int, error) {
	files, err := p.TestFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		p.logger.Warn("No test files found", "dir", p.path(p.cfg.Tests.Dir))
		return 0, nil
	}
	ok, err := p.compiler.Validate(ctx, files)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &TestsRejectedError{Dir: p.cfg.Tests.Dir, Files: len(files)}
	}
	return len(files), nil
}
