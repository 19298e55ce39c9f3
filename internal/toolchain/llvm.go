// Package toolchain builds the host LLVM/Clang toolchain, either as a plain
// single-stage build or as the two-stage bootstrap used for releases: a
// first, throwaway compiler that then builds the distributed one.
package toolchain

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/vk/mcuforge/internal/fsutil"
	"github.com/vk/mcuforge/internal/layout"
	"github.com/vk/mcuforge/internal/runner"
)

// Options selects how the host toolchain is built.
type Options struct {
	// BuildType is the CMake build type for the final compiler.
	BuildType string
	// SingleStage skips the bootstrap and builds the compiler once.
	SingleStage bool
	// EnableLTO turns on link-time optimization for the final compiler.
	EnableLTO bool
	// WithDocs additionally builds the toolchain documentation.
	WithDocs bool
	// Jobs and LinkJobs bound compile and link parallelism.
	Jobs     int
	LinkJobs int
	// CacheDir holds the CMake cache files driving the staged builds.
	CacheDir string
}

// Builder runs the host toolchain build steps against a layout.
type Builder struct {
	run  runner.Runner
	lay  layout.Layout
	opts Options
}

// NewBuilder returns a Builder. The runner carries the global job budget.
func NewBuilder(run runner.Runner, lay layout.Layout, opts Options) *Builder {
	return &Builder{run: run, lay: lay, opts: opts}
}

// BuildHost performs the stage-1 (and, unless single-stage, stage-2) build
// of the host compiler: generate, build, install. The build directory is
// remade first so the host compiler always builds clean.
func (b *Builder) BuildHost(ctx context.Context) ([]string, error) {
	buildDir := b.lay.HostBuildDir()
	if err := fsutil.RemakeDir(buildDir); err != nil {
		return nil, err
	}

	for _, cmd := range b.HostCommands() {
		if _, err := b.run.Run(ctx, cmd); err != nil {
			return nil, err
		}
	}

	mode := "two-stage bootstrap"
	if b.opts.SingleStage {
		mode = "single stage"
	}
	return []string{fmt.Sprintf("host toolchain built (%s, %s)", mode, b.opts.BuildType)}, nil
}

// HostCommands synthesizes the generate/build/install invocations for the
// host compiler. Pure; tests inspect the result directly.
func (b *Builder) HostCommands() []runner.Command {
	buildDir := b.lay.HostBuildDir()
	srcDir := filepath.Join(b.lay.SourceDir("llvm"), "llvm")

	var gen, build, install runner.Command
	if b.opts.SingleStage {
		gen = runner.Command{
			Args: []string{
				"cmake", "-G", "Ninja",
				"-DCMAKE_INSTALL_PREFIX=" + b.lay.InstallRoot(),
				"-DCMAKE_BUILD_TYPE=" + b.opts.BuildType,
				"-DLLVM_ENABLE_LTO=" + cmakeBool(b.opts.EnableLTO),
				"-DLLVM_BUILD_DOCS=" + cmakeBool(b.opts.WithDocs),
				"-DLLVM_PARALLEL_LINK_JOBS=" + strconv.Itoa(b.opts.LinkJobs),
				"-DLLVM_OPTIMIZED_TABLEGEN=ON",
				"-DLLVM_USE_SPLIT_DWARF=ON",
				"-DLLVM_TARGETS_TO_BUILD=ARM;Mips",
				"-DLLVM_ENABLE_PROJECTS=clang;clang-tools-extra;lld;lldb;polly",
				srcDir,
			},
			Dir:   buildDir,
			Label: "Generate LLVM build script",
		}
		build = runner.Command{
			Args:  []string{"cmake", "--build", ".", "-j", strconv.Itoa(b.opts.Jobs)},
			Dir:   buildDir,
			Jobs:  b.opts.Jobs,
			Label: "Build LLVM",
		}
		install = runner.Command{
			Args:  []string{"cmake", "--build", ".", "--target", "install"},
			Dir:   buildDir,
			Label: "Install LLVM",
		}
	} else {
		// The stage1 cache file already chains to the stage2 file;
		// BOOTSTRAP_-prefixed definitions pass through to the stage2 build.
		cachePath := filepath.Join(b.opts.CacheDir, "mcuforge-llvm-stage1.cmake")
		gen = runner.Command{
			Args: []string{
				"cmake", "-G", "Ninja",
				"-DCMAKE_INSTALL_PREFIX=" + b.lay.InstallRoot(),
				"-DBOOTSTRAP_CMAKE_BUILD_TYPE=" + b.opts.BuildType,
				"-DBOOTSTRAP_LLVM_ENABLE_LTO=" + cmakeBool(b.opts.EnableLTO),
				"-DBOOTSTRAP_LLVM_BUILD_DOCS=" + cmakeBool(b.opts.WithDocs),
				"-DBOOTSTRAP_LLVM_PARALLEL_LINK_JOBS=" + strconv.Itoa(b.opts.LinkJobs),
				"-C", cachePath,
				srcDir,
			},
			Dir:   buildDir,
			Label: "Generate LLVM build script",
		}
		build = runner.Command{
			Args:  []string{"cmake", "--build", ".", "-j", strconv.Itoa(b.opts.Jobs), "--target", "stage2-distribution"},
			Dir:   buildDir,
			Jobs:  b.opts.Jobs,
			Label: "Build LLVM",
		}
		install = runner.Command{
			Args:  []string{"cmake", "--build", ".", "--target", "stage2-install-distribution"},
			Dir:   buildDir,
			Label: "Install LLVM",
		}
	}
	return []runner.Command{gen, build, install}
}

// StageRoot returns the absolute path of the build tree holding the clang
// used for target library builds. The runtimes' CMake caches reference this
// tree directly because it carries cache state the install prefix does not.
func (b *Builder) StageRoot() string {
	dir := b.lay.StageBinDir(b.opts.SingleStage)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// BinTool returns the absolute path of a tool in the stage bin directory
// used to build the target libraries, e.g. BinTool("clang").
func (b *Builder) BinTool(name string) string {
	return filepath.Join(b.StageRoot(), "bin", name)
}

func cmakeBool(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
