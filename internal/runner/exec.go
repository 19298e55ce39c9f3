package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vk/mcuforge/internal/ctxlog"
)

// ExecRunner runs commands with os/exec while holding a weighted semaphore
// sized to the configured job budget. The budget is shared by every caller,
// so concurrent variant builds can never exceed the configured aggregate
// parallelism no matter how many goroutines dispatch work.
type ExecRunner struct {
	budget *semaphore.Weighted
	max    int64
}

// NewExecRunner returns a runner whose aggregate parallelism is capped at
// maxJobs. Values below one fall back to the processor count.
func NewExecRunner(maxJobs int) *ExecRunner {
	if maxJobs < 1 {
		maxJobs = runtime.NumCPU()
	}
	return &ExecRunner{
		budget: semaphore.NewWeighted(int64(maxJobs)),
		max:    int64(maxJobs),
	}
}

// Run executes the command, blocking until enough of the job budget is free,
// and returns its captured output, exit status, and wall-clock duration. A
// non-zero exit comes back as a *ProcessError alongside the result.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	weight := int64(cmd.Jobs)
	if weight < 1 {
		weight = 1
	}
	if weight > r.max {
		weight = r.max
	}

	if err := r.budget.Acquire(ctx, weight); err != nil {
		return Result{}, fmt.Errorf("acquiring job budget: %w", err)
	}
	defer r.budget.Release(weight)

	logger := ctxlog.FromContext(ctx)
	logger.Info("Running external command.", "label", cmd.Label, "args", cmd.Args, "dir", cmd.Dir)

	proc := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	proc.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		proc.Env = os.Environ()
		for k, v := range cmd.Env {
			proc.Env = append(proc.Env, k+"="+v)
		}
	}

	var buf bytes.Buffer
	proc.Stdout = &buf
	proc.Stderr = &buf

	start := time.Now()
	err := proc.Run()
	res := Result{
		Output:   buf.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			logger.Error("Command failed.", "label", cmd.Label, "exit_code", res.ExitCode, "duration", res.Duration)
			return res, &ProcessError{
				Label:    cmd.Label,
				Args:     cmd.Args,
				ExitCode: res.ExitCode,
				Output:   tail(res.Output),
			}
		}
		// The tool could not be started at all (missing binary, bad dir).
		return res, fmt.Errorf("starting %q: %w", cmd.Args[0], err)
	}

	logger.Info("Command finished.", "label", cmd.Label, "duration", res.Duration)
	return res, nil
}
