package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestTopDir(t *testing.T) {
	assert.Equal(t, "mcuforge-0.2.0", TopDir("0.2.0"))
	assert.Equal(t, "mcuforge-1.0.0-rc1", TopDir("1.0.0-rc1"))
}

func makeInstallTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cortex-m", "lib", "v7em", "nofp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cortex-m", "lib", "v7em", "nofp", "libc.a"),
		[]byte("!<arch>\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("toolchain\n"), 0o644))
	// Empty directories must survive packaging in both formats.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cortex-m", "include"), 0o755))
	return root
}

func TestCreate(t *testing.T) {
	t.Run("posix produces a readable tar.xz under the versioned top dir", func(t *testing.T) {
		root := makeInstallTree(t)
		distDir := t.TempDir()

		path, err := Create(context.Background(), root, "0.2.0", Posix, distDir)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(path, "mcuforge-0.2.0.tar.xz"), path)

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		xzr, err := xz.NewReader(f)
		require.NoError(t, err)
		tr := tar.NewReader(xzr)

		var names []string
		contents := map[string]string{}
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			names = append(names, hdr.Name)
			if hdr.Typeflag == tar.TypeReg {
				data, err := io.ReadAll(tr)
				require.NoError(t, err)
				contents[hdr.Name] = string(data)
			}
		}

		for _, name := range names {
			assert.True(t, strings.HasPrefix(name, "mcuforge-0.2.0/") || name == "mcuforge-0.2.0/",
				"entry %q escapes the top dir", name)
		}
		assert.Equal(t, "!<arch>\n", contents["mcuforge-0.2.0/cortex-m/lib/v7em/nofp/libc.a"])
		assert.Equal(t, "toolchain\n", contents["mcuforge-0.2.0/README"])
		assert.Contains(t, names, "mcuforge-0.2.0/cortex-m/include/")
	})

	t.Run("windows produces a readable zip", func(t *testing.T) {
		root := makeInstallTree(t)
		distDir := t.TempDir()

		path, err := Create(context.Background(), root, "0.2.0", Windows, distDir)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(path, "mcuforge-0.2.0.zip"), path)

		zr, err := zip.OpenReader(path)
		require.NoError(t, err)
		defer zr.Close()

		byName := map[string]*zip.File{}
		for _, f := range zr.File {
			assert.True(t, strings.HasPrefix(f.Name, "mcuforge-0.2.0/"), f.Name)
			byName[f.Name] = f
		}

		dir, ok := byName["mcuforge-0.2.0/cortex-m/include/"]
		require.True(t, ok, "empty directory entry must be archived")
		assert.True(t, dir.Mode().IsDir())

		entry, ok := byName["mcuforge-0.2.0/README"]
		require.True(t, ok)
		rc, err := entry.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "toolchain\n", string(data))
	})

	t.Run("missing install root removes the partial archive", func(t *testing.T) {
		distDir := t.TempDir()
		_, err := Create(context.Background(), filepath.Join(t.TempDir(), "missing"), "0.2.0", Posix, distDir)
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(distDir, "mcuforge-0.2.0.tar.xz"))
	})

	t.Run("repeat packaging overwrites the previous archive", func(t *testing.T) {
		root := makeInstallTree(t)
		distDir := t.TempDir()

		first, err := Create(context.Background(), root, "0.2.0", Posix, distDir)
		require.NoError(t, err)
		second, err := Create(context.Background(), root, "0.2.0", Posix, distDir)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
