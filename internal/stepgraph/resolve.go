package stepgraph

// Plan is an ordered, duplicate-free sequence of steps in which every step's
// prerequisites appear before it.
type Plan []*Step

// Names returns the plan's step names in execution order.
func (p Plan) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name
	}
	return names
}

// Resolve expands the requested step names through their transitive
// prerequisites into an execution plan. The ordering is deterministic for a
// fixed request: steps are visited in declaration order, so repeated runs
// with identical inputs produce identical plans. A step requested both
// directly and as a prerequisite appears exactly once, at the earliest
// position its prerequisites allow.
func (g *Graph) Resolve(requested []string) (Plan, error) {
	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		if !g.Has(name) {
			return nil, &UnknownStepError{Name: name}
		}
		want[name] = true
	}

	var plan Plan
	placed := make(map[string]bool)

	var place func(s *Step)
	place = func(s *Step) {
		if placed[s.Name] {
			return
		}
		placed[s.Name] = true
		for _, req := range s.Requires {
			place(g.byName[req])
		}
		plan = append(plan, s)
	}

	// Walk the declarations, not the request, so the request's own order
	// cannot perturb the plan.
	for _, s := range g.steps {
		if want[s.Name] {
			place(s)
		}
	}
	return plan, nil
}
