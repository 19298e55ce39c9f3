// Package profile loads the optional HCL build profile. A profile lets an
// operator pin repository refs, bound the job budgets, and restrict the
// variant set without retyping flags on every invocation; command-line flags
// still win over profile values.
package profile

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Repo overrides the clone source for one named repository.
type Repo struct {
	Name   string `hcl:"name,label"`
	URL    string `hcl:"url,optional"`
	Branch string `hcl:"branch,optional"`
}

// Profile is the decoded form of a build profile file.
//
//	jobs      = num_cpus
//	link_jobs = 2
//	variants  = ["cortex-m/v7em/nofp"]
//
//	repo "llvm" {
//	  branch = "llvmorg-19.1.5"
//	}
type Profile struct {
	Jobs     *int     `hcl:"jobs,optional"`
	LinkJobs *int     `hcl:"link_jobs,optional"`
	Variants []string `hcl:"variants,optional"`
	Repos    []Repo   `hcl:"repo,block"`
}

// Load parses and decodes the profile at path. Expressions may reference
// the builtin values exposed by evalContext, currently just num_cpus.
func Load(path string) (*Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing profile %s: %w", path, diags)
	}

	var p Profile
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &p); diags.HasErrors() {
		return nil, fmt.Errorf("decoding profile %s: %w", path, diags)
	}

	seen := make(map[string]bool)
	for _, r := range p.Repos {
		if seen[r.Name] {
			return nil, fmt.Errorf("profile %s: repo %q declared twice", path, r.Name)
		}
		seen[r.Name] = true
	}
	return &p, nil
}

// RepoOverride returns the override block for the named repo, if any.
func (p *Profile) RepoOverride(name string) (Repo, bool) {
	for _, r := range p.Repos {
		if r.Name == name {
			return r, true
		}
	}
	return Repo{}, false
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"num_cpus": cty.NumberIntVal(int64(runtime.NumCPU())),
		},
	}
}
