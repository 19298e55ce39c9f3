// Package stepgraph models the build as a set of named steps with explicit
// prerequisite edges. It resolves a requested subset into an ordered,
// deduplicated execution plan and drives that plan to completion while
// recording per-step status for the end-of-run report.
package stepgraph

import (
	"context"
	"fmt"
)

// Action is the executable body of a step. The returned detail lines are
// carried into the run report; varianted steps use them to enumerate every
// variant's individual outcome.
type Action func(ctx context.Context) (detail []string, err error)

// Step is a named unit of orchestrated work.
type Step struct {
	// Name identifies the step on the command line and in reports.
	Name string
	// Requires lists the names of steps that must complete successfully
	// before this one starts.
	Requires []string
	// Run performs the work. Nil actions complete immediately; they exist
	// only in tests.
	Run Action
}

// UnknownStepError is the configuration error for a step name that was
// never declared.
type UnknownStepError struct {
	Name string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.Name)
}

// Graph holds the static step declarations. Construction validates the
// declarations: duplicate names, edges to undeclared steps, and prerequisite
// cycles are all programming-time configuration errors surfaced before any
// step can run.
type Graph struct {
	steps  []*Step
	byName map[string]*Step
}

// NewGraph validates the declared steps and returns the graph.
func NewGraph(steps []*Step) (*Graph, error) {
	g := &Graph{byName: make(map[string]*Step, len(steps))}
	for _, s := range steps {
		if _, dup := g.byName[s.Name]; dup {
			return nil, fmt.Errorf("step %q declared twice", s.Name)
		}
		g.byName[s.Name] = s
		g.steps = append(g.steps, s)
	}

	for _, s := range steps {
		for _, req := range s.Requires {
			if req == s.Name {
				return nil, fmt.Errorf("step %q requires itself", s.Name)
			}
			if _, ok := g.byName[req]; !ok {
				return nil, fmt.Errorf("step %q requires undeclared step %q", s.Name, req)
			}
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Names returns every declared step name in declaration order.
func (g *Graph) Names() []string {
	names := make([]string, len(g.steps))
	for i, s := range g.steps {
		names[i] = s.Name
	}
	return names
}

// Has reports whether the named step is declared.
func (g *Graph) Has(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// detectCycles runs a depth-first search over the prerequisite edges with
// the classic three-state marking: nodes are unvisited, on the current
// recursion stack, or fully explored.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(s *Step) error
	visit = func(s *Step) error {
		if permanent[s.Name] {
			return nil
		}
		if temporary[s.Name] {
			return fmt.Errorf("prerequisite cycle involving step %q", s.Name)
		}
		temporary[s.Name] = true
		for _, req := range s.Requires {
			if err := visit(g.byName[req]); err != nil {
				return err
			}
		}
		delete(temporary, s.Name)
		permanent[s.Name] = true
		return nil
	}

	for _, s := range g.steps {
		if err := visit(s); err != nil {
			return err
		}
	}
	return nil
}
