// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// docsPrelude exposes the output directory to the configured command and
// leaves only the source files as positional parameters.
const docsPrelude = "JSROLL_DOCS_OUT=\"$1\"; export JSROLL_DOCS_OUT; shift\n"

// ErrDocsFailed is returned when the documentation command exits non-zero.
var ErrDocsFailed = errors.New("documentation command failed")

// DocFiles lists the source files directly inside each docs directory.
func (p *Pipeline) DocFiles() ([]string, error) {
	ext := p.cfg.Extension
	if ext == "" {
		ext = ".js"
	}
	var files []string
	for _, d := range p.cfg.Docs.Dirs {
		dir := p.path(d)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read docs directory: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ext {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	return files, nil
}

// Docs removes the docs output directory and runs the configured command
// over DocFiles.
func (p *Pipeline) Docs(ctx context.Context) (string, error) {
	if p.cfg.Docs.Command == "" {
		return "", errors.New("docs.command is not configured")
	}
	out := p.path(p.cfg.Docs.OutputDir)
	if within(out, p.dir) || within(out, p.SourceDir()) {
		return "", &UnsafeBuildDirError{BuildDir: out, Contains: p.SourceDir()}
	}
	if err := os.RemoveAll(out); err != nil {
		return "", fmt.Errorf("clean docs directory: %w", err)
	}

	files, err := p.DocFiles()
	if err != nil {
		return "", err
	}
	p.logger.Debug("Generating docs", "files", len(files), "out", out)

	code, err := p.runner.Run(ctx, docsPrelude+p.cfg.Docs.Command, append([]string{out}, files...)...)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("%w (exit code %d)", ErrDocsFailed, code)
	}
	return out, nil
}
