package libbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/mcuforge/internal/fsutil"
	"github.com/vk/mcuforge/internal/layout"
	"github.com/vk/mcuforge/internal/runner"
	"github.com/vk/mcuforge/internal/toolchain"
	"github.com/vk/mcuforge/internal/variant"
)

// StartupStep compiles the generated per-device startup stubs into objects
// for each variant. It runs after the device file generator has emitted the
// stubs and after the host toolchain exists to compile them.
type StartupStep struct {
	lay   layout.Layout
	tools *toolchain.Builder
	// stubDir holds the generated *_startup.c sources.
	stubDir string
}

// NewStartupStep wires the step to the layout, toolchain, and generated
// stub directory.
func NewStartupStep(lay layout.Layout, tools *toolchain.Builder, stubDir string) *StartupStep {
	return &StartupStep{lay: lay, tools: tools, stubDir: stubDir}
}

func (s *StartupStep) Name() string { return "build-startup-code" }

// OutputPath is the variant's startup object directory.
func (s *StartupStep) OutputPath(v variant.Variant) string {
	return filepath.Join(s.lay.LibDir(v), "startup")
}

// Prepare creates the variant's startup output directory.
func (s *StartupStep) Prepare(v variant.Variant) error {
	return os.MkdirAll(s.OutputPath(v), 0o755)
}

// Commands compiles every generated startup stub with the variant's flags.
// The stub set is discovered from the generator's output directory, so this
// depends on generate-device-files having run.
func (s *StartupStep) Commands(v variant.Variant) ([]runner.Command, error) {
	if !fsutil.Exists(s.stubDir) {
		return nil, fmt.Errorf("startup stub directory %s does not exist; run generate-device-files first", s.stubDir)
	}

	stubs, err := fsutil.FindFilesByExtension(s.stubDir, "_startup.c")
	if err != nil {
		return nil, fmt.Errorf("scanning startup stubs: %w", err)
	}
	if len(stubs) == 0 {
		return nil, fmt.Errorf("no startup stubs found under %s", s.stubDir)
	}

	clang := s.tools.BinTool("clang")
	var cmds []runner.Command
	for _, stub := range stubs {
		object := strings.TrimSuffix(filepath.Base(stub), ".c") + ".o"
		args := []string{clang}
		args = append(args, v.Options()...)
		args = append(args, "-c", stub, "-o", filepath.Join(s.OutputPath(v), object))

		cmds = append(cmds, runner.Command{
			Args:  args,
			Label: fmt.Sprintf("Compile %s (%s)", filepath.Base(stub), v.ID()),
		})
	}
	return cmds, nil
}
