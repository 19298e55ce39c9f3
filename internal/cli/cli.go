package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/mcuforge/internal/app"
	"github.com/vk/mcuforge/internal/profile"
	"github.com/vk/mcuforge/internal/source"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments into a validated app.Config. The
// boolean result indicates the program should exit cleanly (help or
// version); validation failures come back as an ExitError with code 2.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("mcuforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
mcuforge - build a Clang cross toolchain for Cortex-M microcontrollers.

Usage:
  mcuforge [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	stepsFlag := flagSet.String("steps", "all", "Comma-separated build steps to perform, or 'all'.")
	packsDirFlag := flagSet.String("packs-dir", "", "Directory holding device metadata records.")
	buildTypeFlag := flagSet.String("build-type", "Release", "CMake build type for the host toolchain.")
	llvmBranchFlag := flagSet.String("llvm-branch", "", "Git ref to clone for LLVM (default: pinned release).")
	cmsisBranchFlag := flagSet.String("cmsis-branch", "", "Git ref to clone for CMSIS (default: pinned release).")
	fullCloneFlag := flagSet.Bool("full-clone", false, "Clone full git history instead of a shallow clone.")
	cloneAllFlag := flagSet.Bool("clone-all", false, "Clone every repo even when its step is not selected.")
	skipExistingFlag := flagSet.Bool("skip-existing", false, "Skip clones and variant builds whose output already exists.")
	singleStageFlag := flagSet.Bool("single-stage", false, "Build the host compiler in a single stage instead of a two-stage bootstrap.")
	enableLTOFlag := flagSet.Bool("enable-lto", false, "Enable link-time optimization for the host compiler.")
	withDocsFlag := flagSet.Bool("with-docs", false, "Also build the toolchain documentation.")
	jobsFlag := flagSet.Int("jobs", 0, "Compile job count. 0 means one per processor; capped at the processor count.")
	linkJobsFlag := flagSet.Int("link-jobs", 0, "Link job count. 0 means one per processor; capped at the processor count.")
	profileFlag := flagSet.String("profile", "", "Path to an HCL build profile.")
	outDirFlag := flagSet.String("out-dir", "mcuforge", "Working root for sources, builds, and artifacts.")
	pkgVersionFlag := flagSet.String("pkg-version", "", "Version string for the packaged archive.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *versionFlag {
		fmt.Fprintf(output, "mcuforge %s (%s)\n", app.Version, app.ProjectURL)
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := app.Config{
		Steps:        splitSteps(*stepsFlag),
		PacksDir:     *packsDirFlag,
		BuildType:    *buildTypeFlag,
		LLVMBranch:   *llvmBranchFlag,
		CMSISBranch:  *cmsisBranchFlag,
		FullClone:    *fullCloneFlag,
		CloneAll:     *cloneAllFlag,
		SkipExisting: *skipExistingFlag,
		SingleStage:  *singleStageFlag,
		EnableLTO:    *enableLTOFlag,
		WithDocs:     *withDocsFlag,
		Jobs:         *jobsFlag,
		LinkJobs:     *linkJobsFlag,
		OutDir:       *outDirFlag,
		PkgVersion:   *pkgVersionFlag,
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		StatusPort:   *statusPortFlag,
	}

	if *profileFlag != "" {
		if err := applyProfile(&cfg, *profileFlag); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return validated, false, nil
}

// applyProfile merges profile values beneath the flags: a flag the user set
// explicitly always wins over the profile.
func applyProfile(cfg *app.Config, path string) error {
	p, err := profile.Load(path)
	if err != nil {
		return err
	}

	if cfg.Jobs == 0 && p.Jobs != nil {
		cfg.Jobs = *p.Jobs
	}
	if cfg.LinkJobs == 0 && p.LinkJobs != nil {
		cfg.LinkJobs = *p.LinkJobs
	}
	cfg.Variants = p.Variants

	overrides := make(map[string]app.RepoOverride)
	for _, r := range p.Repos {
		switch r.Name {
		case source.RepoLLVM, source.RepoMusl, source.RepoCMSIS:
			overrides[r.Name] = app.RepoOverride{URL: r.URL, Branch: r.Branch}
		default:
			return fmt.Errorf("profile %s: unknown repo %q", path, r.Name)
		}
	}
	if len(overrides) > 0 {
		cfg.RepoOverrides = overrides
	}

	// Branch overrides for llvm and cmsis also travel through the dedicated
	// config fields when not already set by flags.
	if cfg.LLVMBranch == "" {
		if o, ok := overrides[source.RepoLLVM]; ok {
			cfg.LLVMBranch = o.Branch
		}
	}
	if cfg.CMSISBranch == "" {
		if o, ok := overrides[source.RepoCMSIS]; ok {
			cfg.CMSISBranch = o.Branch
		}
	}
	return nil
}

func splitSteps(raw string) []string {
	var steps []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(strings.ToLower(s))
		if s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}
