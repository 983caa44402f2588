// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jsroll/jsroll/internal/config"
)

// ErrAssetNotFound is returned when a required asset rule matches nothing.
var ErrAssetNotFound = errors.New("asset not found")

// AssetNotFoundError names a required asset rule that matched nothing.
type AssetNotFoundError struct {
	From string
}

// Error implements the error interface.
func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("asset %s not found", e.From)
}

// Unwrap returns ErrAssetNotFound for errors.Is() compatibility.
func (e *AssetNotFoundError) Unwrap() error { return ErrAssetNotFound }

// copyAssets applies every asset rule and returns the number of files copied.
func (p *Pipeline) copyAssets(ctx context.Context, buildDir string) (int, error) {
	total := 0
	for _, rule := range p.cfg.Assets {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.copyAsset(rule, buildDir)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// copyAsset copies one rule. A literal From is copied to To as a file or a
// whole tree; a glob copies each matching file to To, keeping its path below
// the glob's static prefix.
func (p *Pipeline) copyAsset(rule config.AssetRule, buildDir string) (int, error) {
	from := filepath.ToSlash(filepath.Clean(rule.From))
	dest := filepath.Join(buildDir, filepath.FromSlash(rule.To))

	if !strings.ContainsAny(from, "*?[{") {
		src := p.path(from)
		info, err := os.Stat(src)
		if errors.Is(err, fs.ErrNotExist) {
			return 0, p.missingAsset(rule)
		}
		if err != nil {
			return 0, fmt.Errorf("stat asset: %w", err)
		}
		if info.IsDir() {
			return copyTree(src, dest)
		}
		return 1, copyFile(src, dest, info.Mode().Perm())
	}

	base, pattern := doublestar.SplitPattern(from)
	baseDir := p.path(base)
	matches, err := doublestar.Glob(os.DirFS(baseDir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("asset pattern %q: %w", rule.From, err)
	}
	if len(matches) == 0 {
		return 0, p.missingAsset(rule)
	}
	for _, m := range matches {
		src := filepath.Join(baseDir, filepath.FromSlash(m))
		info, err := os.Stat(src)
		if err != nil {
			return 0, fmt.Errorf("stat asset: %w", err)
		}
		if err := copyFile(src, filepath.Join(dest, filepath.FromSlash(m)), info.Mode().Perm()); err != nil {
			return 0, err
		}
	}
	return len(matches), nil
}

func (p *Pipeline) missingAsset(rule config.AssetRule) error {
	if rule.Optional {
		p.logger.Warn("Skipping missing asset", "from", rule.From)
		return nil
	}
	return &AssetNotFoundError{From: rule.From}
}

func copyTree(src, dest string) (int, error) {
	n := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		n++
		return copyFile(path, target, info.Mode().Perm())
	})
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", src, err)
	}
	return n, nil
}

func copyFile(src, dest string, perm fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create asset directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open asset: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close asset: %w", closeErr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy asset %s: %w", src, err)
	}
	return nil
}
