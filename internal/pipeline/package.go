// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// ArchivePath returns where Package writes: package.output, or the build
// directory with a .tar.gz suffix.
func (p *Pipeline) ArchivePath() string {
	if p.cfg.Package.Output != "" {
		return p.path(p.cfg.Package.Output)
	}
	return p.BuildDir() + ".tar.gz"
}

// Package builds the project and archives the build directory. Archive
// entries are rooted at the build directory's base name.
func (p *Pipeline) Package(ctx context.Context, opts BuildOptions) (string, *BuildReport, error) {
	report, err := p.Build(ctx, opts)
	if err != nil {
		return "", nil, err
	}
	archive := p.ArchivePath()
	if within(p.BuildDir(), archive) {
		return "", nil, fmt.Errorf("package output %s must not be inside the build directory", archive)
	}
	if err := writeArchive(ctx, p.BuildDir(), archive); err != nil {
		return "", nil, err
	}
	p.logger.Info("Packaged", "archive", archive)
	return archive, report, nil
}

// writeArchive writes a gzip-compressed tarball of dir to archivePath.
func writeArchive(ctx context.Context, dir, archivePath string) (err error) {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(archivePath) // Best-effort cleanup on error path
		}
	}()

	gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	rootName := filepath.Base(dir)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", rel, err)
		}
		hdr.Name = filepath.ToSlash(filepath.Join(rootName, rel))
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header: %w", err)
		}
		if info.IsDir() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		if _, err := io.Copy(tw, src); err != nil {
			return fmt.Errorf("write %s to archive: %w", rel, err)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("archive %s: %w", dir, walkErr)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return nil
}
