// logicbits/pkg/rules/document.go

package rules

import (
	"errors"
	"fmt"
	"os"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
)

// Document is the on-disk form of a rule set. Policies are appended after
// Rules as one-term rules.
type Document struct {
	Rules    []RuleDef `json:"rules,omitempty" yaml:"rules,omitempty"`
	Policies []Policy  `json:"policies,omitempty" yaml:"policies,omitempty"`
}

type RuleDef struct {
	Name  string    `json:"name" yaml:"name"`
	Terms []TermDef `json:"terms" yaml:"terms"`
}

// TermDef lists the predicates that must all be true and those that must all
// be false.
type TermDef struct {
	All  []string `json:"all,omitempty" yaml:"all,omitempty"`
	None []string `json:"none,omitempty" yaml:"none,omitempty"`
}

// ParseDocument decodes and validates a rule document without resolving names.
func ParseDocument(data []byte, format string) (*Document, error) {
	var doc Document
	if err := predicate.Decode(data, format, &doc); err != nil {
		logging.Logger.Error().Err(err).Msg("Failed to unmarshal rule document")
		return nil, logging.NewError(logging.ErrorTypeParse, "invalid rule document", err, map[string]interface{}{"format": format})
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks document structure: at least one rule or policy, unique
// non-empty names and at least one term per rule.
func (d *Document) Validate() error {
	if len(d.Rules) == 0 && len(d.Policies) == 0 {
		return logging.NewError(logging.ErrorTypeParse, "invalid rule document", errors.New("missing rules field"), nil)
	}
	names := make(map[string]bool, len(d.Rules)+len(d.Policies))
	check := func(kind, name string, terms int) error {
		if name == "" {
			return fmt.Errorf("%s name is required", kind)
		}
		if names[name] {
			return fmt.Errorf("duplicate %s name", kind)
		}
		names[name] = true
		if terms == 0 {
			return errors.New("at least one term is required")
		}
		return nil
	}
	for i, r := range d.Rules {
		if err := check("rule", r.Name, len(r.Terms)); err != nil {
			logging.Logger.Error().Err(err).Str("rule", r.Name).Msg("Invalid rule")
			return logging.NewError(logging.ErrorTypeParse, fmt.Sprintf("invalid rule '%s'", r.Name), err,
				map[string]interface{}{"rule_index": i})
		}
	}
	for i, p := range d.Policies {
		if err := check("policy", p.Name, 1); err != nil {
			logging.Logger.Error().Err(err).Str("policy", p.Name).Msg("Invalid policy")
			return logging.NewError(logging.ErrorTypeParse, fmt.Sprintf("invalid policy '%s'", p.Name), err,
				map[string]interface{}{"policy_index": i})
		}
	}
	return nil
}

// Compile resolves every name through space and builds the rule set. All
// unresolved names of a rule are reported together; compilation stops at the
// first rule that fails.
func (d *Document) Compile(space *predicate.Space) (*RuleSet, error) {
	compiled := make([]Rule, 0, len(d.Rules)+len(d.Policies))
	for _, r := range d.Rules {
		rule := Rule{Name: r.Name, Terms: make([]Term, 0, len(r.Terms))}
		var missing []string
		for j, td := range r.Terms {
			req, forb, err := resolve(space, r.Name, td.All, td.None)
			if err != nil {
				var nre *predicate.NameResolutionError
				if errors.As(err, &nre) {
					missing = appendUnique(missing, nre.Names...)
					continue
				}
				return nil, err
			}
			t, err := NewTerm(space.Width(), req, forb)
			if err != nil {
				return nil, fmt.Errorf("rule '%s' term %d: %w", r.Name, j, err)
			}
			rule.Terms = append(rule.Terms, t)
		}
		if len(missing) > 0 {
			return nil, logging.NewError(logging.ErrorTypeResolve, "unresolved predicates",
				&predicate.NameResolutionError{Context: r.Name, Names: missing},
				map[string]interface{}{"rule": r.Name})
		}
		compiled = append(compiled, rule)
	}
	for _, p := range d.Policies {
		t, err := CompilePolicy(space, p)
		if err != nil {
			return nil, logging.NewError(logging.ErrorTypeResolve, "unresolved predicates", err,
				map[string]interface{}{"policy": p.Name})
		}
		compiled = append(compiled, Rule{Name: p.Name, Terms: []Term{t}})
	}
	return NewRuleSet(space.Width(), compiled...)
}

// Parse decodes, validates and compiles a rule document.
func Parse(data []byte, format string, space *predicate.Space) (*RuleSet, error) {
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return doc.Compile(space)
}

// Load reads the rule document at path; the format follows the extension.
func Load(path string, space *predicate.Space) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "failed to read rules file", err, map[string]interface{}{"path": path})
	}
	return Parse(data, predicate.FormatFromPath(path), space)
}

// FromRuleSet renders rs back into a document using space's names.
func FromRuleSet(rs *RuleSet, space *predicate.Space) *Document {
	doc := &Document{Rules: make([]RuleDef, 0, rs.Len())}
	names := func(idx []int) []string {
		if len(idx) == 0 {
			return nil
		}
		out := make([]string, len(idx))
		for i, n := range idx {
			out[i] = space.Name(n)
		}
		return out
	}
	for _, r := range rs.Rules() {
		def := RuleDef{Name: r.Name, Terms: make([]TermDef, len(r.Terms))}
		for j, t := range r.Terms {
			def.Terms[j] = TermDef{All: names(t.Required), None: names(t.Forbidden)}
		}
		doc.Rules = append(doc.Rules, def)
	}
	return doc
}

func appendUnique(dst []string, names ...string) []string {
outer:
	for _, n := range names {
		for _, d := range dst {
			if d == n {
				continue outer
			}
		}
		dst = append(dst, n)
	}
	return dst
}
