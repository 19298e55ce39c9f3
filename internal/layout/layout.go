// Package layout fixes the on-disk directory scheme shared by every build
// step: where sources are cloned, where out-of-tree builds happen, and where
// finished artifacts are installed.
package layout

import (
	"path/filepath"

	"github.com/vk/mcuforge/internal/variant"
)

// Layout derives every working path from a single root directory. All
// methods are pure; nothing here touches the file system.
type Layout struct {
	// Root is the working root, typically "./mcuforge".
	Root string
}

// New returns a Layout rooted at the given directory.
func New(root string) Layout {
	return Layout{Root: root}
}

// BuildRoot is the parent of all out-of-tree build directories.
func (l Layout) BuildRoot() string { return filepath.Join(l.Root, "build") }

// InstallRoot is the parent of all installed artifacts, partitioned per
// architecture family below it.
func (l Layout) InstallRoot() string { return filepath.Join(l.Root, "install") }

// DistDir holds finished release archives.
func (l Layout) DistDir() string { return filepath.Join(l.Root, "dist") }

// SourceDir is where the named external repository is cloned.
func (l Layout) SourceDir(name string) string { return filepath.Join(l.Root, name) }

// HostBuildDir is the build directory for the host LLVM toolchain.
func (l Layout) HostBuildDir() string { return filepath.Join(l.BuildRoot(), "llvm") }

// StageBinDir returns the directory holding the clang binaries used to build
// the target libraries. A two-stage bootstrap keeps its final compiler in the
// stage2 build tree, which the runtimes' CMake caches expect to reference
// rather than the install prefix.
func (l Layout) StageBinDir(singleStage bool) string {
	if singleStage {
		return l.HostBuildDir()
	}
	return filepath.Join(l.HostBuildDir(), "tools", "clang", "stage2-bins")
}

// LibBuildDir is the per-variant build directory for the named library, e.g.
// build/musl/cortex-m/v7em/nofp.
func (l Layout) LibBuildDir(lib string, v variant.Variant) string {
	return filepath.Join(l.BuildRoot(), lib, v.Arch, filepath.FromSlash(v.Suffix()))
}

// LibInstallPrefix is the install prefix shared by all variants of one
// architecture family, e.g. install/cortex-m.
func (l Layout) LibInstallPrefix(v variant.Variant) string {
	return filepath.Join(l.InstallRoot(), v.Arch)
}

// LibDir is the variant-exclusive library directory under the install
// prefix, e.g. install/cortex-m/lib/v7em/nofp. Concurrent variant builds
// never write into each other's LibDir.
func (l Layout) LibDir(v variant.Variant) string {
	return filepath.Join(l.LibInstallPrefix(v), "lib", filepath.FromSlash(v.Suffix()))
}

// DeviceFilesDir holds artifacts generated from the device metadata pack.
func (l Layout) DeviceFilesDir() string {
	return filepath.Join(l.InstallRoot(), "device-files")
}

// VendorIncludeDir is the destination for third-party device headers such as
// the CMSIS core includes.
func (l Layout) VendorIncludeDir() string {
	return filepath.Join(l.InstallRoot(), "cortex-m", "include", "cmsis")
}
