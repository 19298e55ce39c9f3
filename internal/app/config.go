package app

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/vk/mcuforge/internal/fsutil"
)

// BuildTypes lists the accepted CMake build types for the host toolchain.
var BuildTypes = []string{"Release", "Debug", "RelWithDebInfo", "MinSizeRel"}

// RepoOverride carries a profile's clone-source override for one repo.
type RepoOverride struct {
	URL    string
	Branch string
}

// Config holds everything one build run needs. It is assembled once at the
// boundary (flags merged with the optional profile), validated by NewConfig,
// and immutable afterwards; no component reads ambient globals.
type Config struct {
	// Steps is the requested step subset. NewConfig expands "all" and then
	// normalizes the list to its transitive prerequisite closure, so Steps
	// always names exactly what the run will execute.
	Steps []string

	// PacksDir locates the device metadata pack; required when
	// generate-device-files is selected.
	PacksDir string

	BuildType   string
	LLVMBranch  string
	CMSISBranch string

	FullClone    bool
	CloneAll     bool
	SkipExisting bool
	SingleStage  bool
	EnableLTO    bool
	WithDocs     bool

	// Jobs and LinkJobs bound compile and link parallelism. Zero means one
	// per processor; values above the processor count are clamped to it.
	Jobs     int
	LinkJobs int

	// OutDir is the working root holding sources, build, install, and dist.
	OutDir string
	// CacheDir holds the CMake cache files shipped with the repository.
	CacheDir string
	// PkgVersion names the packaged release.
	PkgVersion string

	// Variants optionally restricts the catalog to the listed IDs.
	Variants []string
	// RepoOverrides maps repo names to profile-supplied clone overrides.
	RepoOverrides map[string]RepoOverride

	LogLevel   string
	LogFormat  string
	StatusPort int
}

// NewConfig validates and normalizes a Config. All configuration errors are
// caught here, before any external process runs.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Steps) == 0 {
		cfg.Steps = []string{"all"}
	}
	expanded, err := expandSteps(cfg.Steps)
	if err != nil {
		return nil, err
	}
	// Validate against everything the request pulls in transitively, not just
	// the names the user typed: a step reached only through prerequisite
	// edges still needs its inputs provisioned before anything runs.
	cfg.Steps = expandPrereqs(expanded)

	if cfg.BuildType == "" {
		cfg.BuildType = "Release"
	}
	if !validBuildType(cfg.BuildType) {
		return nil, fmt.Errorf("invalid build type %q; must be one of %v", cfg.BuildType, BuildTypes)
	}

	maxJobs := runtime.NumCPU()
	cfg.Jobs = clampJobs(cfg.Jobs, maxJobs)
	cfg.LinkJobs = clampJobs(cfg.LinkJobs, maxJobs)

	if cfg.OutDir == "" {
		cfg.OutDir = "mcuforge"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "cmake/caches"
	}
	if cfg.PkgVersion == "" {
		cfg.PkgVersion = Version
	}

	if hasStep(cfg.Steps, StepGenerateDeviceFiles) {
		if cfg.PacksDir == "" {
			return nil, errors.New("the generate-device-files step requires -packs-dir")
		}
		if !fsutil.Exists(cfg.PacksDir) {
			return nil, fmt.Errorf("packs directory %s does not exist", cfg.PacksDir)
		}
	}

	return &cfg, nil
}

// expandSteps validates the requested names against the declarations and
// expands the "all" alias. Every listed name is checked before the alias
// takes effect, so "all,bogus" is still rejected.
func expandSteps(requested []string) ([]string, error) {
	all := false
	var out []string
	seen := make(map[string]bool)
	for _, name := range requested {
		if name == "all" {
			all = true
			continue
		}
		if !knownStep(name) {
			return nil, fmt.Errorf("unknown step %q; valid steps: %v", name, StepNames)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if all {
		return append([]string(nil), StepNames...), nil
	}
	return out, nil
}

// expandPrereqs returns the transitive prerequisite closure of the given
// steps, in declaration order. Declaration order respects every edge, so the
// result is also a valid execution order.
func expandPrereqs(steps []string) []string {
	need := make(map[string]bool)
	var add func(name string)
	add = func(name string) {
		if need[name] {
			return
		}
		need[name] = true
		for _, req := range stepRequires[name] {
			add(req)
		}
	}
	for _, s := range steps {
		add(s)
	}

	var out []string
	for _, n := range StepNames {
		if need[n] {
			out = append(out, n)
		}
	}
	return out
}

func validBuildType(t string) bool {
	for _, bt := range BuildTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// clampJobs applies the parallelism policy: default to one job per
// processor, never exceed the processor count even when asked to.
func clampJobs(jobs, maxJobs int) int {
	if jobs < 1 || jobs > maxJobs {
		return maxJobs
	}
	return jobs
}

func hasStep(steps []string, name string) bool {
	for _, s := range steps {
		if s == name {
			return true
		}
	}
	return false
}
