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

// MuslStep builds the musl C library for each variant. musl is one library,
// but for compatibility with other C libraries it also installs empty
// libm, libpthread, and friends. It must run after the host toolchain build
// because the freshly built clang compiles it.
type MuslStep struct {
	lay   layout.Layout
	tools *toolchain.Builder
	jobs  int
}

// NewMuslStep wires the step to the layout and the host toolchain.
func NewMuslStep(lay layout.Layout, tools *toolchain.Builder, jobs int) *MuslStep {
	if jobs < 1 {
		jobs = 1
	}
	return &MuslStep{lay: lay, tools: tools, jobs: jobs}
}

func (s *MuslStep) Name() string { return "build-musl" }

// OutputPath is the installed static libc for the variant.
func (s *MuslStep) OutputPath(v variant.Variant) string {
	return filepath.Join(s.lay.LibDir(v), "libc.a")
}

// Prepare remakes the variant's build directory so configure always starts
// clean.
func (s *MuslStep) Prepare(v variant.Variant) error {
	return fsutil.RemakeDir(s.lay.LibBuildDir("musl", v))
}

// Commands synthesizes the configure / clean / build / install sequence.
// The toolchain binaries and target flags are passed through the
// environment, which is how musl's configure expects them.
func (s *MuslStep) Commands(v variant.Variant) ([]runner.Command, error) {
	buildDir := s.lay.LibBuildDir("musl", v)
	srcDir := s.lay.SourceDir("musl")
	prefix := s.lay.LibInstallPrefix(v)

	env := map[string]string{
		"CC":     s.tools.BinTool("clang"),
		"AR":     s.tools.BinTool("llvm-ar"),
		"RANLIB": s.tools.BinTool("llvm-ranlib"),
		// -gline-tables-only keeps the libraries debuggable without the
		// full DWARF weight.
		"CFLAGS": strings.Join(v.Options(), " ") + " -gline-tables-only",
	}

	info := v.ID()
	return []runner.Command{
		{
			Args: []string{
				filepath.Join(srcDir, "configure"),
				"--prefix=" + prefix,
				"--libdir=" + s.lay.LibDir(v),
				"--disable-shared",
				"--disable-wrapper",
				"--disable-optimize",
				"--disable-debug",
				"--target=" + v.Triple(),
			},
			Dir:   buildDir,
			Env:   env,
			Label: fmt.Sprintf("Configure musl (%s)", info),
		},
		{
			Args:  []string{"make", "clean"},
			Dir:   buildDir,
			Env:   env,
			Label: fmt.Sprintf("Clean musl (%s)", info),
		},
		{
			Args:  []string{"make", "-j" + strconv.Itoa(s.jobs)},
			Dir:   buildDir,
			Env:   env,
			Jobs:  s.jobs,
			Label: fmt.Sprintf("Build musl (%s)", info),
		},
		{
			// Parallel installs race on the shared include directory.
			Args:  []string{"make", "-j1", "install"},
			Dir:   buildDir,
			Env:   env,
			Label: fmt.Sprintf("Install musl (%s)", info),
		},
	}, nil
}
