// logicbits/pkg/rules/policy.go

package rules

import (
	"errors"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
)

// Policy is a named single-term rule expressed with predicate names.
type Policy struct {
	Name string   `json:"name" yaml:"name"`
	All  []string `json:"all,omitempty" yaml:"all,omitempty"`
	None []string `json:"none,omitempty" yaml:"none,omitempty"`
}

// CompilePolicy resolves p's names through space and builds its term. When
// any name is unknown the error is a *predicate.NameResolutionError listing
// all of them, in order of first appearance.
func CompilePolicy(space *predicate.Space, p Policy) (Term, error) {
	req, forb, err := resolve(space, p.Name, p.All, p.None)
	if err != nil {
		return Term{}, err
	}
	return NewTerm(space.Width(), req, forb)
}

// CompilePolicies compiles each policy into a one-term rule. Policies that
// fail are skipped and reported together in the returned error, so callers may
// run with the policies that did compile.
func CompilePolicies(space *predicate.Space, policies []Policy) ([]Rule, error) {
	out := make([]Rule, 0, len(policies))
	var errs []error
	for _, p := range policies {
		t, err := CompilePolicy(space, p)
		if err != nil {
			logging.Logger.Warn().Err(err).Str("policy", p.Name).Msg("Skipping policy")
			errs = append(errs, err)
			continue
		}
		out = append(out, Rule{Name: p.Name, Terms: []Term{t}})
	}
	return out, errors.Join(errs...)
}

func resolve(space *predicate.Space, context string, all, none []string) ([]int, []int, error) {
	var missing []string
	seen := make(map[string]bool)
	lookup := func(names []string) []int {
		idx := make([]int, 0, len(names))
		dup := make(map[int]bool, len(names))
		for _, n := range names {
			i, ok := space.Lookup(n)
			if !ok {
				if !seen[n] {
					seen[n] = true
					missing = append(missing, n)
				}
				continue
			}
			if dup[i] {
				continue
			}
			dup[i] = true
			idx = append(idx, i)
		}
		return idx
	}
	req := lookup(all)
	forb := lookup(none)
	if len(missing) > 0 {
		return nil, nil, &predicate.NameResolutionError{Context: context, Names: missing}
	}
	return req, forb, nil
}
