// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jsroll/jsroll/internal/testutil"
)

// startWatcher runs w in the background and returns a stop function that
// cancels it and reports Run's result.
func startWatcher(t *testing.T, w *Watcher) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Give the event loop a moment to start before touching files.
	time.Sleep(50 * time.Millisecond)
	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
			return nil
		}
	}
}

func TestWatcher_DebouncesIntoOneRebuild(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(root, "src"), 0o755)

	var (
		mu      sync.Mutex
		calls   int
		changed []string
	)
	done := make(chan struct{}, 1)

	w, err := New(Options{
		Root:     root,
		Patterns: []string{"src/**/*.js"},
		Debounce: 100 * time.Millisecond,
		Rebuild: func(_ context.Context, paths []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			changed = append(changed, paths...)
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	for _, name := range []string{"a.js", "b.js", "c.js", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(root, "src", name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}
	time.Sleep(250 * time.Millisecond)

	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 rebuild, got %d", calls)
	}
	for _, want := range []string{"src/a.js", "src/b.js", "src/c.js"} {
		if !slices.Contains(changed, want) {
			t.Errorf("expected %q in %v", want, changed)
		}
	}
	if slices.Contains(changed, "src/notes.txt") {
		t.Errorf("non-matching file reported: %v", changed)
	}
}

func TestWatcher_ExcludedDirDoesNotTrigger(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(root, "build", "js"), 0o755)

	fired := make(chan []string, 4)
	w, err := New(Options{
		Root:        root,
		ExcludeDirs: []string{"build"},
		Debounce:    50 * time.Millisecond,
		Rebuild: func(_ context.Context, paths []string) error {
			fired <- paths
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(root, "build", "js", "app.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-fired:
		t.Errorf("unexpected rebuild for %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fired := make(chan []string, 4)
	w, err := New(Options{
		Root:     root,
		Patterns: []string{"**/*.js"},
		Debounce: 50 * time.Millisecond,
		Rebuild: func(_ context.Context, paths []string) error {
			fired <- paths
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer func() { _ = stop() }()

	testutil.MustMkdirAll(t, filepath.Join(root, "libs"), 0o755)
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "libs", "util.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case paths := <-fired:
			if slices.Contains(paths, "libs/util.js") {
				return
			}
		case <-deadline:
			t.Fatal("no rebuild for file in new directory")
		}
	}
}

func TestWatcher_SkipIfBusy(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var (
		running  atomic.Int32
		overlaps atomic.Int32
		calls    atomic.Int32
	)
	release := make(chan struct{})
	first := make(chan struct{})
	var logBuf syncBuffer

	w, err := New(Options{
		Root:     root,
		Debounce: 30 * time.Millisecond,
		Logger:   newTestLogger(&logBuf),
		Rebuild: func(_ context.Context, _ []string) error {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			defer running.Add(-1)
			if calls.Add(1) == 1 {
				close(first)
				<-release
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(root, "a.js"), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first rebuild never started")
	}

	// Changes while the first rebuild blocks must be retried, not dropped.
	if err := os.WriteFile(filepath.Join(root, "b.js"), []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if calls.Load() < 2 {
		t.Errorf("queued change was dropped: %d rebuilds", calls.Load())
	}
	if overlaps.Load() != 0 {
		t.Errorf("rebuilds overlapped %d times", overlaps.Load())
	}
}

func TestWatcher_RunWaitsForRunningRebuild(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	started := make(chan struct{})
	var (
		once     sync.Once
		finished atomic.Bool
	)

	w, err := New(Options{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Logger:   newTestLogger(io.Discard),
		Rebuild: func(ctx context.Context, _ []string) error {
			once.Do(func() { close(started) })
			<-ctx.Done()
			time.Sleep(100 * time.Millisecond)
			finished.Store(true)
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(root, "a.js"), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild never started")
	}

	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !finished.Load() {
		t.Error("Run returned while a rebuild was still running")
	}
}

func TestWatcher_RebuildErrorIsLogged(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var logBuf syncBuffer
	done := make(chan struct{}, 1)

	w, err := New(Options{
		Root:     root,
		Debounce: 30 * time.Millisecond,
		Logger:   newTestLogger(&logBuf),
		Rebuild: func(context.Context, []string) error {
			defer func() { done <- struct{}{} }()
			return errors.New("missing dependency")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(root, "a.js"), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild never ran")
	}
	time.Sleep(20 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run() must keep going after a failed rebuild, got %v", err)
	}
	if !strings.Contains(logBuf.String(), "missing dependency") {
		t.Errorf("expected rebuild error in log, got %q", logBuf.String())
	}
}

func TestWatcher_ClearScreen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var out syncBuffer
	done := make(chan struct{}, 1)

	w, err := New(Options{
		Root:        root,
		Debounce:    30 * time.Millisecond,
		ClearScreen: true,
		Stdout:      &out,
		Rebuild: func(context.Context, []string) error {
			done <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer func() { _ = stop() }()

	if err := os.WriteFile(filepath.Join(root, "a.js"), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild never ran")
	}
	if !strings.Contains(out.String(), "\033[2J\033[H") {
		t.Errorf("expected clear sequence, got %q", out.String())
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	defer func() { _ = stop() }()

	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Root: t.TempDir(), Patterns: []string{"[bad"}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
