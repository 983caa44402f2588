// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jsroll/jsroll/internal/compiler"
	"github.com/jsroll/jsroll/internal/config"
	"github.com/jsroll/jsroll/pkg/bundler"
	"github.com/jsroll/jsroll/pkg/directive"
	"github.com/jsroll/jsroll/pkg/emit"
)

type (
	// BuildOptions override the configured compiler settings for one build.
	BuildOptions struct {
		Level       compiler.Level
		SyntaxCheck bool
	}

	// BundleReport describes one written bundle.
	BundleReport struct {
		Root    string
		Output  string
		Files   int
		Elapsed time.Duration
	}

	// BuildReport summarizes a build.
	BuildReport struct {
		Assets  int
		Bundles []BundleReport
		Elapsed time.Duration
	}
)

// DefaultBuildOptions returns the build options the configuration asks for.
// An unknown level yields the default level together with the parse error.
func DefaultBuildOptions(cfg *config.Config) (BuildOptions, error) {
	level, err := compiler.ParseLevel(string(cfg.Compiler.Level))
	return BuildOptions{Level: level, SyntaxCheck: cfg.Compiler.SyntaxCheck}, err
}

// Resolver returns a resolver over the configured source directory. The
// compiler syntax-checks every visited file when syntaxCheck is set.
func (p *Pipeline) Resolver(syntaxCheck bool) (*bundler.Resolver, error) {
	scanner, err := directive.NewScanner(p.SourceDir(), directive.WithExtension(p.cfg.Extension))
	if err != nil {
		return nil, err
	}
	opts := []bundler.Option{bundler.WithLogger(p.logger)}
	if syntaxCheck {
		opts = append(opts, bundler.WithValidator(p.compiler))
	}
	return bundler.New(scanner, opts...), nil
}

// Build cleans the build directory, copies assets and writes every entry
// and worker bundle through the compiler. The first failure stops the build.
func (p *Pipeline) Build(ctx context.Context, opts BuildOptions) (*BuildReport, error) {
	start := time.Now()

	level := opts.Level
	if ok, errs := level.IsValid(); !ok {
		p.logger.Warn("Falling back to default compilation level", "err", errs[0], "level", compiler.DefaultLevel)
		level = compiler.DefaultLevel
	}

	buildDir := p.BuildDir()
	if err := p.checkBuildDir(buildDir); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(buildDir); err != nil {
		return nil, fmt.Errorf("clean build directory: %w", err)
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build directory: %w", err)
	}

	report := &BuildReport{}
	n, err := p.copyAssets(ctx, buildDir)
	if err != nil {
		return nil, err
	}
	report.Assets = n

	p.logger.Info("Calculating dependencies...")
	r, err := p.Resolver(opts.SyntaxCheck)
	if err != nil {
		return nil, err
	}
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		br, err := p.makeBundle(ctx, r, e, buildDir, level)
		if err != nil {
			return nil, err
		}
		report.Bundles = append(report.Bundles, *br)
		p.logger.Infof("Built %s (%s)", br.Output, br.Elapsed.Round(time.Millisecond))
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// Entries returns the configured entries followed by one entry per source
// file directly inside the workers directory. A missing workers directory
// contributes nothing.
func (p *Pipeline) Entries() ([]config.EntryConfig, error) {
	entries := append([]config.EntryConfig(nil), p.cfg.Entries...)

	w := p.cfg.Workers
	if w.Dir == "" {
		return entries, nil
	}
	dir := filepath.Join(p.SourceDir(), filepath.FromSlash(w.Dir))
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		p.logger.Debug("No workers directory", "dir", dir)
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workers directory: %w", err)
	}

	ext := p.cfg.Extension
	if ext == "" {
		ext = directive.DefaultExtension
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ext {
			continue
		}
		entries = append(entries, config.EntryConfig{
			Root:   path.Join(filepath.ToSlash(w.Dir), f.Name()),
			Output: path.Join(filepath.ToSlash(w.OutputDir), f.Name()),
		})
	}
	return entries, nil
}

// makeBundle writes one entry's bundle to a temporary directory and compiles
// it into its output.
func (p *Pipeline) makeBundle(ctx context.Context, r *bundler.Resolver, e config.EntryConfig, buildDir string, level compiler.Level) (*BundleReport, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "jsroll-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("create temp bundle dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }() // Best-effort cleanup

	tmpName := filepath.Join(tmpDir, path.Base(e.Output))
	res, err := emit.WriteResult(ctx, r, e.Root, tmpName)
	if err != nil {
		return nil, err
	}

	output := filepath.Join(buildDir, filepath.FromSlash(e.Output))
	p.logger.Debug("Compressing", "output", output, "level", level)
	if err := p.compiler.Compile(ctx, []string{tmpName}, output, level); err != nil {
		return nil, err
	}

	return &BundleReport{
		Root:    e.Root,
		Output:  e.Output,
		Files:   len(res.Order),
		Elapsed: time.Since(start),
	}, nil
}
