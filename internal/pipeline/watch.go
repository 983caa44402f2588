// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jsroll/jsroll/internal/watch"
)

// Watch builds once, then rebuilds whenever a watched file changes until ctx
// is cancelled. Failed builds are logged and do not stop the loop.
func (p *Pipeline) Watch(ctx context.Context, opts BuildOptions, stdout io.Writer) error {
	debounce, err := p.cfg.Watch.DebounceDuration()
	if err != nil {
		return err
	}

	rebuild := func(ctx context.Context, changed []string) error {
		for _, c := range changed {
			p.logger.Info("Changed", "path", c)
		}
		if _, err := p.Build(ctx, opts); err != nil {
			return err
		}
		p.logger.Info("Watching for changes...")
		return nil
	}

	w, err := watch.New(watch.Options{
		Root:        p.dir,
		Patterns:    p.cfg.Watch.Patterns,
		Ignore:      p.cfg.Watch.Ignore,
		ExcludeDirs: p.generatedDirs(),
		Debounce:    debounce,
		ClearScreen: p.cfg.Watch.ClearScreen,
		Rebuild:     rebuild,
		Logger:      p.logger,
		Stdout:      stdout,
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	if _, err := p.Build(ctx, opts); err != nil {
		p.logger.Error("Build failed", "err", err)
	}
	p.logger.Info("Watching for changes...", "dir", w.Root())
	return w.Run(ctx)
}

// generatedDirs lists the project-relative directories jsroll writes to.
func (p *Pipeline) generatedDirs() []string {
	var dirs []string
	for _, abs := range []string{p.BuildDir(), p.path(p.cfg.Docs.OutputDir)} {
		if rel, err := filepath.Rel(p.dir, abs); err == nil {
			dirs = append(dirs, rel)
		}
	}
	return dirs
}
