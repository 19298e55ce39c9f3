// Package source acquires the external source trees the build consumes. The
// only transport is a git clone; command assembly is pure so tests can check
// the exact invocation without a git binary present.
package source

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/vk/mcuforge/internal/ctxlog"
	"github.com/vk/mcuforge/internal/fsutil"
	"github.com/vk/mcuforge/internal/layout"
	"github.com/vk/mcuforge/internal/runner"
)

// Well-known repository names. Profile overrides are keyed on these.
const (
	RepoLLVM  = "llvm"
	RepoMusl  = "musl"
	RepoCMSIS = "cmsis"
)

// Default clone sources. The musl clone is a fork carrying the Cortex-M
// modifications the upstream tree does not have yet.
const (
	llvmURL     = "https://github.com/llvm/llvm-project.git"
	llvmBranch  = "llvmorg-19.1.5"
	muslURL     = "https://github.com/jdeguire/musl.git"
	muslBranch  = "arm_cortex_m"
	cmsisURL    = "https://github.com/ARM-software/CMSIS_6.git"
	cmsisBranch = "v6.1.0"
)

// Repo describes one clonable source tree.
type Repo struct {
	Name   string
	URL    string
	Branch string
	// Dest is the checkout directory, derived from the layout.
	Dest string
}

// Options adjusts how clones are performed.
type Options struct {
	// FullClone fetches the entire history instead of --depth=1.
	FullClone bool
	// SkipExisting treats an already-present checkout as done.
	SkipExisting bool
}

// DefaultRepos returns the full repository set wired to the given layout.
// Branch overrides for llvm and cmsis come from configuration.
func DefaultRepos(lay layout.Layout, llvmRef, cmsisRef string) []Repo {
	if llvmRef == "" {
		llvmRef = llvmBranch
	}
	if cmsisRef == "" {
		cmsisRef = cmsisBranch
	}
	return []Repo{
		{Name: RepoLLVM, URL: llvmURL, Branch: llvmRef, Dest: lay.SourceDir(RepoLLVM)},
		{Name: RepoMusl, URL: muslURL, Branch: muslBranch, Dest: lay.SourceDir(RepoMusl)},
		{Name: RepoCMSIS, URL: cmsisURL, Branch: cmsisRef, Dest: lay.SourceDir(RepoCMSIS)},
	}
}

// CloneCommand synthesizes the git invocation for one repo. Windows
// checkouts disable autocrlf so that configure scripts and linker script
// templates keep their original line endings.
func CloneCommand(r Repo, opts Options) runner.Command {
	args := []string{"git", "clone"}
	if !opts.FullClone {
		args = append(args, "--depth=1")
	}
	if r.Branch != "" {
		args = append(args, "-b", r.Branch)
	}
	if runtime.GOOS == "windows" {
		args = append(args, "--config", "core.autocrlf=false")
	}
	args = append(args, r.URL, r.Dest)

	return runner.Command{
		Args:  args,
		Label: "Clone " + r.URL,
	}
}

// Acquire clones every repo in the set, honoring skip-existing semantics.
// The returned detail lines record one outcome per repo for the run report.
func Acquire(ctx context.Context, run runner.Runner, repos []Repo, opts Options) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var detail []string

	for _, r := range repos {
		if opts.SkipExisting && fsutil.Exists(r.Dest) {
			logger.Info("Checkout already exists, skipping clone.", "repo", r.Name, "dest", r.Dest)
			detail = append(detail, fmt.Sprintf("%-20s skipped (checkout exists)", r.Name))
			continue
		}

		_, err := run.Run(ctx, CloneCommand(r, opts))
		if err != nil {
			// git refuses to clone into a non-empty directory; with
			// skip-existing that is the resume case, not a failure.
			var procErr *runner.ProcessError
			if opts.SkipExisting && errors.As(err, &procErr) && strings.Contains(procErr.Output, "already exists") {
				detail = append(detail, fmt.Sprintf("%-20s skipped (checkout exists)", r.Name))
				continue
			}
			detail = append(detail, fmt.Sprintf("%-20s failed", r.Name))
			return detail, fmt.Errorf("cloning %s: %w", r.Name, err)
		}
		detail = append(detail, fmt.Sprintf("%-20s cloned", r.Name))
	}
	return detail, nil
}

// Needed filters the repo set down to what the planned steps actually
// consume. Callers pass the fully resolved step list, prerequisites
// included, so a transitively planned step still gets its sources. cloneAll
// overrides the filter, matching the flag of the same name.
func Needed(repos []Repo, plannedSteps []string, cloneAll bool) []Repo {
	if cloneAll {
		return repos
	}

	want := make(map[string]bool)
	for _, step := range plannedSteps {
		switch step {
		case "build-stage1", "build-runtimes", "build-startup-code":
			want[RepoLLVM] = true
		case "build-musl":
			want[RepoLLVM] = true
			want[RepoMusl] = true
		case "copy-device-vendor-files":
			want[RepoCMSIS] = true
		}
	}

	var out []Repo
	for _, r := range repos {
		if want[r.Name] {
			out = append(out, r)
		}
	}
	return out
}
