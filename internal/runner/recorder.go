package runner

import (
	"context"
	"sync"
	"time"
)

// Recorder is a Runner for tests. It records every command it is asked to
// run and returns scripted results instead of spawning processes.
type Recorder struct {
	mu       sync.Mutex
	commands []Command

	// FailLabels maps command labels to the output the scripted failure
	// should carry. Any command whose label appears here fails with exit
	// status 1.
	FailLabels map[string]string
	// OnRun, when set, is called for every command after recording.
	OnRun func(cmd Command)
}

// Run records the command and returns a scripted result.
func (r *Recorder) Run(_ context.Context, cmd Command) (Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if r.OnRun != nil {
		r.OnRun(cmd)
	}

	if output, ok := r.FailLabels[cmd.Label]; ok {
		return Result{ExitCode: 1, Output: output, Duration: time.Millisecond},
			&ProcessError{Label: cmd.Label, Args: cmd.Args, ExitCode: 1, Output: output}
	}
	return Result{Duration: time.Millisecond}, nil
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Labels returns the labels of recorded commands in dispatch order.
func (r *Recorder) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]string, len(r.commands))
	for i, c := range r.commands {
		labels[i] = c.Label
	}
	return labels
}
