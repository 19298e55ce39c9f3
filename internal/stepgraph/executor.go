package stepgraph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vk/mcuforge/internal/ctxlog"
)

// State describes where a step is in its lifecycle.
type State string

const (
	// Pending steps are in the plan but have not started.
	Pending State = "pending"
	// Running marks the step currently executing. Steps run strictly in
	// plan order, so at most one step is ever Running.
	Running State = "running"
	// Succeeded steps finished without error.
	Succeeded State = "succeeded"
	// Failed steps returned an error; everything downstream is blocked.
	Failed State = "failed"
	// Blocked steps were never dispatched because an earlier step failed.
	Blocked State = "blocked"
)

// Status is the run-time execution record of one planned step.
type Status struct {
	Name     string        `json:"name"`
	State    State         `json:"state"`
	Detail   []string      `json:"detail,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Executor drives a plan to completion, one step at a time, recording every
// step's outcome. It is safe to snapshot from other goroutines while a run
// is in progress, which the status HTTP endpoint relies on.
type Executor struct {
	mu       sync.Mutex
	statuses []Status
}

// NewExecutor prepares an executor for the given plan with every step
// pending.
func NewExecutor(plan Plan) *Executor {
	e := &Executor{statuses: make([]Status, len(plan))}
	for i, s := range plan {
		e.statuses[i] = Status{Name: s.Name, State: Pending}
	}
	return e
}

// Snapshot returns a copy of the current per-step statuses in plan order.
func (e *Executor) Snapshot() []Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Status, len(e.statuses))
	copy(out, e.statuses)
	return out
}

func (e *Executor) set(i int, update func(*Status)) {
	e.mu.Lock()
	update(&e.statuses[i])
	e.mu.Unlock()
}

// Run executes the plan in order. A later step never starts before every
// prerequisite has completed successfully; on the first failure the
// remaining steps are marked blocked and the run stops. The returned
// statuses always cover the whole plan so a complete end-of-run report can
// be produced even after a failure.
func (e *Executor) Run(ctx context.Context, plan Plan) ([]Status, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Executing plan.", "steps", plan.Names())

	var failed *Status
	for i, step := range plan {
		if failed != nil {
			e.set(i, func(st *Status) { st.State = Blocked })
			continue
		}

		stepCtx := ctxlog.With(ctx, "step", step.Name)
		e.set(i, func(st *Status) { st.State = Running })
		start := time.Now()

		var detail []string
		var err error
		if step.Run != nil {
			detail, err = step.Run(stepCtx)
		}
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("Step failed.", "step", step.Name, "error", err, "duration", elapsed)
			e.set(i, func(st *Status) {
				st.State = Failed
				st.Detail = detail
				st.Err = err
				st.Duration = elapsed
			})
			e.mu.Lock()
			failed = &e.statuses[i]
			e.mu.Unlock()
			continue
		}

		logger.Info("Step succeeded.", "step", step.Name, "duration", elapsed)
		e.set(i, func(st *Status) {
			st.State = Succeeded
			st.Detail = detail
			st.Duration = elapsed
		})
	}

	statuses := e.Snapshot()
	if failed != nil {
		return statuses, fmt.Errorf("step %q failed: %w", failed.Name, failed.Err)
	}
	return statuses, nil
}

// Summarize renders the statuses as the human-readable per-step report
// printed at the end of a run.
func Summarize(statuses []Status) string {
	var b strings.Builder
	b.WriteString("Build summary:\n")
	for _, st := range statuses {
		fmt.Fprintf(&b, "  %-26s %s", st.Name, st.State)
		if st.Duration > 0 {
			fmt.Fprintf(&b, " (%s)", st.Duration.Round(time.Millisecond))
		}
		b.WriteByte('\n')
		for _, line := range st.Detail {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		if st.Err != nil {
			fmt.Fprintf(&b, "    error: %v\n", st.Err)
		}
	}
	return b.String()
}
