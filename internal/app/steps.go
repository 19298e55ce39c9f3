package app

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/vk/mcuforge/internal/archive"
	"github.com/vk/mcuforge/internal/devfiles"
	"github.com/vk/mcuforge/internal/libbuild"
	"github.com/vk/mcuforge/internal/runner"
	"github.com/vk/mcuforge/internal/source"
	"github.com/vk/mcuforge/internal/stepgraph"
	"github.com/vk/mcuforge/internal/toolchain"
)

// Step names. These are the units selectable with -steps; every ordering
// rule between them is an explicit prerequisite edge in buildSteps, never a
// comment.
const (
	StepAcquireSources      = "acquire-sources"
	StepBuildStage1         = "build-stage1"
	StepBuildMusl           = "build-musl"
	StepBuildRuntimes       = "build-runtimes"
	StepGenerateDeviceFiles = "generate-device-files"
	StepCopyDeviceVendor    = "copy-device-vendor-files"
	StepBuildStartupCode    = "build-startup-code"
	StepPackage             = "package"
)

// StepNames lists every step in declaration order, which is also the
// tie-break order of the execution plan.
var StepNames = []string{
	StepAcquireSources,
	StepBuildStage1,
	StepBuildMusl,
	StepBuildRuntimes,
	StepGenerateDeviceFiles,
	StepCopyDeviceVendor,
	StepBuildStartupCode,
	StepPackage,
}

// stepRequires declares the prerequisite edges. buildSteps and the
// configuration-time closure in expandPrereqs both read this one table, so
// validation and execution can never disagree about what a request pulls in.
var stepRequires = map[string][]string{
	StepAcquireSources:      nil,
	StepBuildStage1:         {StepAcquireSources},
	StepBuildMusl:           {StepBuildStage1},
	StepBuildRuntimes:       {StepBuildMusl},
	StepGenerateDeviceFiles: {StepAcquireSources},
	StepCopyDeviceVendor:    {StepAcquireSources},
	StepBuildStartupCode:    {StepBuildStage1, StepGenerateDeviceFiles},
	StepPackage:             {StepBuildRuntimes, StepCopyDeviceVendor, StepBuildStartupCode},
}

func knownStep(name string) bool {
	for _, n := range StepNames {
		if n == name {
			return true
		}
	}
	return false
}

// buildSteps declares the step graph for this run, binding each step's
// action to the configuration, layout, and runner.
func (a *App) buildSteps(run runner.Runner) ([]*stepgraph.Step, error) {
	cfg := a.config
	lay := a.layout

	tools := toolchain.NewBuilder(run, lay, toolchain.Options{
		BuildType:   cfg.BuildType,
		SingleStage: cfg.SingleStage,
		EnableLTO:   cfg.EnableLTO,
		WithDocs:    cfg.WithDocs,
		Jobs:        cfg.Jobs,
		LinkJobs:    cfg.LinkJobs,
		CacheDir:    cfg.CacheDir,
	})
	driver := libbuild.NewDriver(run, a.catalog, cfg.Jobs, cfg.SkipExisting)
	stubDir := filepath.Join(lay.DeviceFilesDir(), devfiles.StubDirName)

	varianted := func(step libbuild.VariantedStep) stepgraph.Action {
		return func(ctx context.Context) ([]string, error) {
			report, err := driver.Build(ctx, step)
			if report == nil {
				return nil, err
			}
			return report.Detail(), err
		}
	}

	return []*stepgraph.Step{
		{
			Name: StepAcquireSources,
			Run: func(ctx context.Context) ([]string, error) {
				repos := source.DefaultRepos(lay, cfg.LLVMBranch, cfg.CMSISBranch)
				repos = a.applyRepoOverrides(repos)
				repos = source.Needed(repos, cfg.Steps, cfg.CloneAll)
				return source.Acquire(ctx, run, repos, source.Options{
					FullClone:    cfg.FullClone,
					SkipExisting: cfg.SkipExisting,
				})
			},
		},
		{
			Name:     StepBuildStage1,
			Requires: stepRequires[StepBuildStage1],
			Run: func(ctx context.Context) ([]string, error) {
				return tools.BuildHost(ctx)
			},
		},
		{
			Name:     StepBuildMusl,
			Requires: stepRequires[StepBuildMusl],
			Run:      varianted(libbuild.NewMuslStep(lay, tools, cfg.Jobs)),
		},
		{
			Name:     StepBuildRuntimes,
			Requires: stepRequires[StepBuildRuntimes],
			Run:      varianted(libbuild.NewRuntimesStep(lay, tools, cfg.CacheDir, cfg.Jobs)),
		},
		{
			Name:     StepGenerateDeviceFiles,
			Requires: stepRequires[StepGenerateDeviceFiles],
			Run: func(ctx context.Context) ([]string, error) {
				return a.generateDeviceFiles(ctx)
			},
		},
		{
			Name:     StepCopyDeviceVendor,
			Requires: stepRequires[StepCopyDeviceVendor],
			Run: func(ctx context.Context) ([]string, error) {
				return devfiles.CopyVendorFiles(ctx, lay)
			},
		},
		{
			Name:     StepBuildStartupCode,
			Requires: stepRequires[StepBuildStartupCode],
			Run:      varianted(libbuild.NewStartupStep(lay, tools, stubDir)),
		},
		{
			Name:     StepPackage,
			Requires: stepRequires[StepPackage],
			Run: func(ctx context.Context) ([]string, error) {
				platform := archive.Posix
				if runtime.GOOS == "windows" {
					platform = archive.Windows
				}
				path, err := archive.Create(ctx, lay.InstallRoot(), cfg.PkgVersion, platform, lay.DistDir())
				if err != nil {
					return nil, err
				}
				return []string{"archive: " + path}, nil
			},
		},
	}, nil
}

func (a *App) applyRepoOverrides(repos []source.Repo) []source.Repo {
	if len(a.config.RepoOverrides) == 0 {
		return repos
	}
	out := make([]source.Repo, len(repos))
	copy(out, repos)
	for i, r := range out {
		if o, ok := a.config.RepoOverrides[r.Name]; ok {
			if o.URL != "" {
				out[i].URL = o.URL
			}
			if o.Branch != "" {
				out[i].Branch = o.Branch
			}
		}
	}
	return out
}

// generateDeviceFiles loads the metadata pack and runs the generator. The
// step fails when any record does, but only after the whole batch has been
// processed, so the report carries the complete partition.
func (a *App) generateDeviceFiles(ctx context.Context) ([]string, error) {
	records, bad, err := devfiles.LoadRecords(a.config.PacksDir)
	if err != nil {
		return nil, err
	}

	result, err := devfiles.Generate(ctx, records, a.layout.DeviceFilesDir())
	if err != nil {
		return nil, err
	}
	result.Failures = append(bad, result.Failures...)

	detail := result.Detail()
	if result.Failed() {
		return detail, fmt.Errorf("%d of %d device records failed",
			len(result.Failures), len(records)+len(bad))
	}
	return detail, nil
}
