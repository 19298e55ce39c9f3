package libbuild

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/mcuforge/internal/fsutil"
	"github.com/vk/mcuforge/internal/layout"
	"github.com/vk/mcuforge/internal/runner"
	"github.com/vk/mcuforge/internal/toolchain"
	"github.com/vk/mcuforge/internal/variant"
)

// RuntimesStep builds the LLVM runtimes (libc++, libc++abi, libunwind,
// compiler-rt) for each variant. It runs after musl because the runtimes
// link against the C library headers and archives.
type RuntimesStep struct {
	lay      layout.Layout
	tools    *toolchain.Builder
	cacheDir string
	jobs     int
}

// NewRuntimesStep wires the step to the layout, the host toolchain, and the
// CMake cache directory.
func NewRuntimesStep(lay layout.Layout, tools *toolchain.Builder, cacheDir string, jobs int) *RuntimesStep {
	if jobs < 1 {
		jobs = 1
	}
	return &RuntimesStep{lay: lay, tools: tools, cacheDir: cacheDir, jobs: jobs}
}

func (s *RuntimesStep) Name() string { return "build-runtimes" }

// OutputPath is the installed static libc++ for the variant.
func (s *RuntimesStep) OutputPath(v variant.Variant) string {
	return filepath.Join(s.lay.LibDir(v), "libc++.a")
}

// Prepare remakes the variant's build directory.
func (s *RuntimesStep) Prepare(v variant.Variant) error {
	return fsutil.RemakeDir(s.lay.LibBuildDir("runtimes", v))
}

// Commands synthesizes the CMake generate / build / install sequence. The
// per-variant configuration flows through MCUFORGE_* cache definitions read
// by the target-runtimes cache file.
func (s *RuntimesStep) Commands(v variant.Variant) ([]runner.Command, error) {
	buildDir := s.lay.LibBuildDir("runtimes", v)
	srcDir := filepath.Join(s.lay.SourceDir("llvm"), "runtimes")
	cachePath := filepath.Join(s.cacheDir, "mcuforge-target-runtimes.cmake")

	// The runtimes' CMake scripts detect the Arm subarch from the triple
	// rather than from a separate -march option.
	triple := v.Triple()
	if v.Arch != variant.ArchMips32 {
		triple = v.March() + "-none-eabi"
	}

	sysroot := s.tools.StageRoot()

	info := v.ID()
	return []runner.Command{
		{
			Args: []string{
				"cmake", "-G", "Ninja",
				"-DCMAKE_INSTALL_PREFIX=" + s.lay.LibInstallPrefix(v),
				"-DMCUFORGE_LIBDIR_SUFFIX=" + v.Suffix(),
				"-DMCUFORGE_TARGET_TRIPLE=" + triple,
				"-DMCUFORGE_RUNTIME_FLAGS=" + strings.Join(v.Options(), ";"),
				"-DMCUFORGE_SYSROOT=" + sysroot,
				"-C", cachePath,
				srcDir,
			},
			Dir:   buildDir,
			Label: fmt.Sprintf("Generate runtimes build script (%s)", info),
		},
		{
			Args:  []string{"cmake", "--build", ".", "-j", strconv.Itoa(s.jobs)},
			Dir:   buildDir,
			Jobs:  s.jobs,
			Label: fmt.Sprintf("Build runtimes (%s)", info),
		},
		{
			Args:  []string{"cmake", "--build", ".", "--target", "install"},
			Dir:   buildDir,
			Label: fmt.Sprintf("Install runtimes (%s)", info),
		},
	}, nil
}
