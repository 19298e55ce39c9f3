// Package runner executes external tools on behalf of the build steps. All
// process construction in the repository goes through the Command type so
// argument assembly stays a pure function that tests can inspect without
// spawning anything.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	// Args is the full command line; Args[0] is the executable.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds environment overrides applied on top of the inherited
	// environment.
	Env map[string]string
	// Jobs is the parallelism this invocation consumes from the global job
	// budget. Values below one count as one; values above the budget are
	// clamped to it.
	Jobs int
	// Label is a short human-readable description shown in logs and carried
	// into failure reports, e.g. "Build musl (cortex-m/v7em/nofp)".
	Label string
}

// Result carries the observable outcome of one finished invocation.
type Result struct {
	ExitCode int
	// Output is the combined stdout and stderr of the process.
	Output   string
	Duration time.Duration
}

// Runner runs commands. The process-spawning implementation is ExecRunner;
// tests substitute a Recorder.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ProcessError reports an external tool that exited non-zero. It carries the
// tail of the captured output so the operator can see what went wrong
// without digging through build logs.
type ProcessError struct {
	Label    string
	Args     []string
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	label := e.Label
	if label == "" {
		label = strings.Join(e.Args, " ")
	}
	return fmt.Sprintf("%s: exited with status %d", label, e.ExitCode)
}

// outputTail bounds how much captured output a ProcessError retains.
const outputTail = 8 * 1024

func tail(s string) string {
	if len(s) <= outputTail {
		return s
	}
	return s[len(s)-outputTail:]
}
