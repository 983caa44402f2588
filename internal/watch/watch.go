// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds a project when its sources change.
//
// Directories under Root are registered with fsnotify; events for paths that
// match the watch patterns are collected until the debounce window closes,
// then Rebuild runs once with the whole set. A change that arrives while a
// rebuild is still running is kept and retried after the next window. Run
// does not return before a running rebuild has finished.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// RebuildFunc receives the changed paths, relative to Root and sorted.
	RebuildFunc func(ctx context.Context, changed []string) error

	// Options configures a Watcher.
	Options struct {
		// Root is the project directory. Empty means the working directory.
		Root string
		// Patterns are doublestar globs relative to Root. Empty matches all.
		Patterns []string
		// Ignore globs are added to DefaultIgnores.
		Ignore []string
		// ExcludeDirs are skipped entirely, e.g. the build directory, so a
		// rebuild does not trigger itself.
		ExcludeDirs []string
		Debounce    time.Duration
		// ClearScreen writes an ANSI clear sequence to Stdout before each
		// rebuild.
		ClearScreen bool
		Rebuild     RebuildFunc
		Logger      *log.Logger
		Stdout      io.Writer
	}

	// Watcher runs Rebuild after debounced filesystem changes.
	Watcher struct {
		opts     Options
		root     string
		filter   *filter
		fsw      *fsnotify.Watcher
		log      *log.Logger
		stdout   io.Writer
		debounce time.Duration
		started  atomic.Bool
	}

	// batch accumulates changed paths between rebuilds.
	batch struct {
		mu      sync.Mutex
		pending map[string]struct{}
		timer   *time.Timer
		closed  bool
		running sync.WaitGroup
	}
)

// New validates the patterns and registers every non-excluded directory
// under Root.
func New(opts Options) (*Watcher, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	f, err := newFilter(opts.Patterns, opts.Ignore, opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		opts:     opts,
		root:     root,
		filter:   f,
		fsw:      fsw,
		log:      opts.Logger,
		stdout:   opts.Stdout,
		debounce: opts.Debounce,
	}
	if w.log == nil {
		w.log = log.New(io.Discard)
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string { return w.root }

// Run processes events until ctx is cancelled, which yields nil once any
// rebuild in progress has returned. Resource exhaustion in the underlying
// watcher is returned as an error; other watcher errors are logged.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	b := &batch{pending: make(map[string]struct{})}
	var busy atomic.Bool

	var fire func()
	fire = func() {
		if !b.begin() {
			return
		}
		defer b.running.Done()
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			w.log.Warn("Rebuild still running, change queued")
			b.schedule(w.debounce, fire)
			return
		}
		defer busy.Store(false)

		changed := b.drain()
		if len(changed) == 0 {
			return
		}
		if w.opts.ClearScreen {
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}
		w.log.Debug("Change detected", "paths", changed)
		if w.opts.Rebuild == nil {
			return
		}
		if err := w.opts.Rebuild(ctx, changed); err != nil {
			w.log.Error("Rebuild failed", "err", err)
		}
	}

	defer func() {
		b.stop()
		if err := w.fsw.Close(); err != nil {
			w.log.Warn("Closing watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.addNewDir(evt.Name, rel)
			}
			if !w.filter.included(rel) {
				continue
			}
			b.add(filepath.ToSlash(rel), w.debounce, fire)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isResourceExhausted(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.log.Warn("Watcher error", "err", err)
		}
	}
}

// addTree registers dir and its subdirectories. Unreadable directories are
// logged and skipped.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("Skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if rel != "." && (w.filter.excluded(rel) || w.filter.excluded(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", dir, err)
	}
	return nil
}

// addNewDir extends the watch to a directory created after startup.
func (w *Watcher) addNewDir(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if w.filter.excluded(rel) || w.filter.excluded(rel+"/") {
		return
	}
	if err := w.addTree(path); err != nil {
		w.log.Warn("Watching new directory", "path", path, "err", err)
	}
}

func (b *batch) add(rel string, after time.Duration, fire func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[rel] = struct{}{}
	b.resetLocked(after, fire)
}

func (b *batch) schedule(after time.Duration, fire func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked(after, fire)
}

func (b *batch) resetLocked(after time.Duration, fire func()) {
	if b.closed {
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(after, fire)
		return
	}
	b.timer.Reset(after)
}

func (b *batch) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	return changed
}

// begin registers a rebuild unless the batch was stopped.
func (b *batch) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.running.Add(1)
	return true
}

// stop cancels the pending timer and waits for a rebuild already in flight.
func (b *batch) stop() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()
	b.running.Wait()
}
