// Package libbuild builds the target runtime libraries once per variant in
// the catalog: the C library, the LLVM runtimes, and the startup objects.
// One Driver fans a varianted step out over the catalog, bounded by the
// runner's global job budget, and folds every variant's outcome into a
// single step result.
package libbuild

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vk/mcuforge/internal/ctxlog"
	"github.com/vk/mcuforge/internal/fsutil"
	"github.com/vk/mcuforge/internal/runner"
	"github.com/vk/mcuforge/internal/variant"
)

// State is the terminal state of one variant within a step.
type State string

const (
	Succeeded State = "succeeded"
	Skipped   State = "skipped"
	Failed    State = "failed"
)

// Outcome records one variant's result.
type Outcome struct {
	Variant  variant.Variant
	State    State
	Err      error
	Duration time.Duration
}

// Report aggregates every variant's outcome for one step. It always covers
// the full catalog, so a failure report enumerates exactly which
// configurations need attention.
type Report struct {
	Step     string
	Outcomes []Outcome
}

// Failed reports whether any variant failed.
func (r *Report) Failed() bool {
	for _, o := range r.Outcomes {
		if o.State == Failed {
			return true
		}
	}
	return false
}

// FailedIDs returns the IDs of failed variants in catalog order.
func (r *Report) FailedIDs() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.State == Failed {
			ids = append(ids, o.Variant.ID())
		}
	}
	return ids
}

// Detail renders one line per variant for the run report.
func (r *Report) Detail() []string {
	lines := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		line := fmt.Sprintf("%-40s %s", o.Variant.ID(), o.State)
		if o.Duration > 0 {
			line += fmt.Sprintf(" (%s)", o.Duration.Round(time.Millisecond))
		}
		if o.Err != nil {
			line += ": " + o.Err.Error()
		}
		lines[i] = line
	}
	return lines
}

// VariantedStep is a build step that runs once per variant. Prepare and
// Commands are invoked per variant; Commands must be pure given the layout
// and variant so tests can verify synthesized invocations.
type VariantedStep interface {
	// Name identifies the step in labels and reports.
	Name() string
	// OutputPath is the path probed by skip-existing: when it exists the
	// variant is recorded as skipped instead of rebuilt.
	OutputPath(v variant.Variant) string
	// Prepare sets up the variant's private build directory.
	Prepare(v variant.Variant) error
	// Commands returns the ordered invocations for one variant.
	Commands(v variant.Variant) ([]runner.Command, error)
}

// Driver fans varianted steps out over a catalog.
type Driver struct {
	run runner.Runner
	cat *variant.Catalog
	// workers bounds how many variants are in flight at once. The runner's
	// job budget is the real parallelism cap; this only limits goroutines.
	workers int
	// skipExisting enables the output-path probe.
	skipExisting bool
}

// NewDriver returns a Driver over the given catalog.
func NewDriver(run runner.Runner, cat *variant.Catalog, workers int, skipExisting bool) *Driver {
	if workers < 1 {
		workers = 1
	}
	return &Driver{run: run, cat: cat, workers: workers, skipExisting: skipExisting}
}

// Build executes the step for every variant in the catalog. Independent
// variants run concurrently; a failing variant never aborts siblings already
// in flight, so partially-written shared directories cannot be corrupted by
// a teardown race. The step as a whole fails if any variant failed, and the
// returned report always carries the complete partition.
func (d *Driver) Build(ctx context.Context, step VariantedStep) (*Report, error) {
	variants := d.cat.Variants()
	report := &Report{
		Step:     step.Name(),
		Outcomes: make([]Outcome, len(variants)),
	}

	type job struct {
		idx int
		v   variant.Variant
	}
	jobs := make(chan job)

	workers := d.workers
	if workers > len(variants) {
		workers = len(variants)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcome := d.buildVariant(ctx, step, j.v)
				mu.Lock()
				report.Outcomes[j.idx] = outcome
				mu.Unlock()
			}
		}()
	}

	for i, v := range variants {
		jobs <- job{idx: i, v: v}
	}
	close(jobs)
	wg.Wait()

	if report.Failed() {
		return report, fmt.Errorf("%s failed for variants: %s",
			step.Name(), strings.Join(report.FailedIDs(), ", "))
	}
	return report, nil
}

func (d *Driver) buildVariant(ctx context.Context, step VariantedStep, v variant.Variant) Outcome {
	logger := ctxlog.FromContext(ctx).With("step", step.Name(), "variant", v.ID())
	vctx := ctxlog.WithLogger(ctx, logger)

	if d.skipExisting && fsutil.Exists(step.OutputPath(v)) {
		logger.Info("Output already exists, skipping variant.", "output", step.OutputPath(v))
		return Outcome{Variant: v, State: Skipped}
	}

	start := time.Now()
	if err := step.Prepare(v); err != nil {
		return Outcome{Variant: v, State: Failed, Err: err, Duration: time.Since(start)}
	}

	cmds, err := step.Commands(v)
	if err != nil {
		return Outcome{Variant: v, State: Failed, Err: err, Duration: time.Since(start)}
	}

	for _, cmd := range cmds {
		if _, err := d.run.Run(vctx, cmd); err != nil {
			return Outcome{Variant: v, State: Failed, Err: err, Duration: time.Since(start)}
		}
	}

	logger.Info("Variant finished.", "duration", time.Since(start))
	return Outcome{Variant: v, State: Succeeded, Duration: time.Since(start)}
}
