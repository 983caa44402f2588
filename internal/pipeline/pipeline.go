// SPDX-License-Identifier: MPL-2.0

// Package pipeline builds a project: it copies assets, resolves every entry
// and worker bundle, compresses the bundles and, on request, packages the
// build directory, checks test files and generates documentation.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jsroll/jsroll/internal/compiler"
	"github.com/jsroll/jsroll/internal/config"
)

var (
	// ErrUnsafeBuildDir is returned when the build directory would remove
	// the project or its sources when cleaned.
	ErrUnsafeBuildDir = errors.New("unsafe build directory")

	// ErrTestsRejected is returned when the compiler rejects a test file.
	ErrTestsRejected = errors.New("test files failed the syntax check")
)

type (
	// Pipeline runs build steps for the project in one directory.
	Pipeline struct {
		dir      string
		cfg      *config.Config
		runner   compiler.Runner
		compiler *compiler.Compiler
		logger   *log.Logger
		stdout   io.Writer
		stderr   io.Writer
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)

	// UnsafeBuildDirError names a build directory that contains the project
	// or its sources.
	UnsafeBuildDirError struct {
		BuildDir string
		Contains string
	}

	// TestsRejectedError reports a failed syntax check over test files.
	TestsRejectedError struct {
		Dir   string
		Files int
	}
)

// WithRunner replaces the shell runner used for the compiler and the docs
// command.
func WithRunner(r compiler.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOutput sets where external tools write. Nil discards.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// New creates a Pipeline for the project rooted at dir.
func New(dir string, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	p := &Pipeline{
		dir:    abs,
		cfg:    cfg,
		logger: log.New(io.Discard),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = &compiler.ShellRunner{Dir: abs, Stdout: p.stdout, Stderr: p.stderr}
	}
	jar := cfg.Compiler.Jar
	if jar == "" {
		jar = compiler.DefaultJar
	}
	p.compiler = compiler.New(p.runner,
		compiler.WithJava(cfg.Compiler.Java),
		compiler.WithJar(p.path(jar)),
		compiler.WithWarningLevel(cfg.Compiler.WarningLevel),
		compiler.WithLogger(p.logger),
	)
	return p, nil
}

// Dir returns the absolute project directory.
func (p *Pipeline) Dir() string { return p.dir }

// Config returns the configuration the pipeline was created with.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Compiler returns the compiler the pipeline compresses and checks with.
func (p *Pipeline) Compiler() *compiler.Compiler { return p.compiler }

// path resolves a project-relative path.
func (p *Pipeline) path(name string) string {
	if name == "" {
		return p.dir
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(p.dir, filepath.FromSlash(name))
}

// BuildDir returns the absolute build directory.
func (p *Pipeline) BuildDir() string { return p.path(p.cfg.BuildDir) }

// SourceDir returns the absolute source directory.
func (p *Pipeline) SourceDir() string { return p.path(p.cfg.SourceDir) }

// checkBuildDir refuses build directories whose removal would take the
// project or its sources with it.
func (p *Pipeline) checkBuildDir(buildDir string) error {
	for _, protected := range []string{p.dir, p.SourceDir()} {
		if within(buildDir, protected) {
			return &UnsafeBuildDirError{BuildDir: buildDir, Contains: protected}
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Error implements the error interface.
func (e *UnsafeBuildDirError) Error() string {
	return fmt.Sprintf("build directory %s contains %s and cannot be cleaned", e.BuildDir, e.Contains)
}

// Unwrap returns ErrUnsafeBuildDir for errors.Is() compatibility.
func (e *UnsafeBuildDirError) Unwrap() error { return ErrUnsafeBuildDir }

// Error implements the error interface.
func (e *TestsRejectedError) Error() string {
	return fmt.Sprintf("%d test file(s) in %s failed the syntax check", e.Files, e.Dir)
}

// Unwrap returns ErrTestsRejected for errors.Is() compatibility.
func (e *TestsRejectedError) Unwrap() error { return ErrTestsRejected }
