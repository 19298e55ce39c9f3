// Package archive assembles the finished install tree into a distributable
// archive: tar.xz on posix platforms, zip on windows. The archive's single
// top-level directory is named from the version string so extracted releases
// can sit side by side.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/vk/mcuforge/internal/ctxlog"
)

// Platform selects the archive format.
type Platform int

const (
	Posix Platform = iota
	Windows
)

// TopDir returns the archive's internal top-level directory name for a
// version. A pure function of the version string.
func TopDir(version string) string {
	return "mcuforge-" + version
}

// Create walks installRoot and serializes it beneath TopDir(version) into an
// archive under distDir, returning the archive path. Packaging is
// all-or-nothing: any unreadable file fails the whole operation and the
// partial archive is removed.
func Create(ctx context.Context, installRoot, version string, platform Platform, distDir string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return "", fmt.Errorf("creating dist directory: %w", err)
	}

	var archivePath string
	var build func(out *os.File) error
	switch platform {
	case Windows:
		archivePath = filepath.Join(distDir, TopDir(version)+".zip")
		build = func(out *os.File) error { return writeZip(out, installRoot, version) }
	default:
		archivePath = filepath.Join(distDir, TopDir(version)+".tar.xz")
		build = func(out *os.File) error { return writeTarXZ(out, installRoot, version) }
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}

	if err := build(out); err != nil {
		out.Close()
		os.Remove(archivePath)
		return "", fmt.Errorf("packaging %s: %w", installRoot, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("finishing archive: %w", err)
	}

	logger.Info("Archive created.", "path", archivePath)
	return archivePath, nil
}

// walk visits every regular file and directory under installRoot in the
// deterministic lexical order of filepath.WalkDir, handing each entry's
// archive-internal name to fn.
func walk(installRoot, version string, fn func(name string, info fs.FileInfo, path string) error) error {
	return filepath.WalkDir(installRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(installRoot, path)
		if err != nil {
			return err
		}
		name := TopDir(version)
		if rel != "." {
			name = name + "/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() && !info.Mode().IsRegular() {
			return nil
		}
		return fn(name, info, path)
	})
}

func writeTarXZ(out io.Writer, installRoot, version string) error {
	xzw, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xzw)

	err = walk(installRoot, version, func(name string, info fs.FileInfo, path string) error {
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
			return tw.WriteHeader(hdr)
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return xzw.Close()
}

func writeZip(out io.Writer, installRoot, version string) error {
	zw := zip.NewWriter(out)

	err := walk(installRoot, version, func(name string, info fs.FileInfo, path string) error {
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Directory entries keep empty directories in the archive, same
			// as the tar path.
			hdr.Name = name + "/"
			hdr.Method = zip.Store
			_, err := zw.CreateHeader(hdr)
			return err
		}
		hdr.Name = name
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return err
	}
	return zw.Close()
}
