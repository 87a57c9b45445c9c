// logicbits/pkg/rules/ruleset.go

package rules

import (
	"encoding/binary"
	"fmt"

	"rgehrsitz/logicbits/pkg/logging"

	"github.com/zeebo/xxh3"
)

// Rule is a disjunction of terms. A rule with no terms never matches.
type Rule struct {
	Name  string
	Terms []Term
}

// RuleSet is a conjunction of rules over a fixed bitset width.
type RuleSet struct {
	width int
	rules []Rule
}

// TermRef locates a term inside a RuleSet.
type TermRef struct {
	Rule int
	Term int
}

// NewRuleSet copies rules into an immutable set. Every term must have been
// built for width. Degenerate terms and empty rules are accepted and logged at
// warn level.
func NewRuleSet(width int, rules ...Rule) (*RuleSet, error) {
	if width <= 0 {
		return nil, logging.NewError(logging.ErrorTypeCompile, "invalid rule set",
			fmt.Errorf("width %d must be positive", width), nil)
	}

	rs := &RuleSet{width: width, rules: make([]Rule, len(rules))}
	for i, r := range rules {
		terms := make([]Term, len(r.Terms))
		for j, t := range r.Terms {
			if t.RequiredMask.Width() != width || t.ForbiddenMask.Width() != width {
				return nil, logging.NewError(logging.ErrorTypeCompile, "invalid rule set",
					fmt.Errorf("term built for width %d, rule set width is %d", t.RequiredMask.Width(), width),
					map[string]interface{}{"rule": r.Name, "term": j})
			}
			terms[j] = Term{
				Required:      append([]int(nil), t.Required...),
				Forbidden:     append([]int(nil), t.Forbidden...),
				RequiredMask:  t.RequiredMask.Clone(),
				ForbiddenMask: t.ForbiddenMask.Clone(),
			}
		}
		rs.rules[i] = Rule{Name: r.Name, Terms: terms}
	}

	for _, ref := range rs.Degenerate() {
		logging.Logger.Warn().
			Str("rule", rs.rules[ref.Rule].Name).
			Int("rule_index", ref.Rule).
			Int("term_index", ref.Term).
			Msg("Term requires and forbids the same predicate and can never match")
	}
	for i, r := range rs.rules {
		if len(r.Terms) == 0 {
			logging.Logger.Warn().Str("rule", r.Name).Int("rule_index", i).Msg("Rule has no terms and can never match")
		}
	}

	logging.Logger.Debug().Int("width", width).Int("rules", len(rs.rules)).Msg("Rule set built")
	return rs, nil
}

// Rules returns the rules in evaluation order. The slice is shared and must
// not be modified.
func (rs *RuleSet) Rules() []Rule { return rs.rules }

// Width is the bitset width every term was built for.
func (rs *RuleSet) Width() int { return rs.width }

// Len is the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Terms is the total number of terms across all rules.
func (rs *RuleSet) Terms() int {
	n := 0
	for _, r := range rs.rules {
		n += len(r.Terms)
	}
	return n
}

// Degenerate lists every term whose required and forbidden masks overlap.
func (rs *RuleSet) Degenerate() []TermRef {
	var refs []TermRef
	for i := range rs.rules {
		for j := range rs.rules[i].Terms {
			if rs.rules[i].Terms[j].Degenerate() {
				refs = append(refs, TermRef{Rule: i, Term: j})
			}
		}
	}
	return refs
}

// Fingerprint hashes the width, rule names and term masks. Two rule sets with
// the same fingerprint evaluate identically.
func (rs *RuleSet) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	putInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	putInt(rs.width)
	putInt(len(rs.rules))
	for _, r := range rs.rules {
		putInt(len(r.Name))
		h.WriteString(r.Name)
		putInt(len(r.Terms))
		for i := range r.Terms {
			writeTerm(h, &r.Terms[i])
		}
	}
	return h.Sum64()
}

func writeTerm(h *xxh3.Hasher, t *Term) {
	var buf [8]byte
	for _, w := range t.RequiredMask.Words() {
		binary.LittleEndian.PutUint64(buf[:], w)
		h.Write(buf[:])
	}
	for _, w := range t.ForbiddenMask.Words() {
		binary.LittleEndian.PutUint64(buf[:], w)
		h.Write(buf[:])
	}
}

func termKey(t *Term) uint64 {
	h := xxh3.New()
	writeTerm(h, t)
	return h.Sum64()
}

// Optimize returns a rule set in which each rule keeps only the first of any
// terms with identical masks, and the number of terms removed. Rule order and
// truth values are unchanged.
func Optimize(rs *RuleSet) (*RuleSet, int) {
	removed := 0
	out := make([]Rule, len(rs.rules))
	for i, r := range rs.rules {
		seen := make(map[uint64][]int, len(r.Terms))
		terms := make([]Term, 0, len(r.Terms))
	next:
		for j := range r.Terms {
			t := &r.Terms[j]
			key := termKey(t)
			for _, k := range seen[key] {
				if terms[k].RequiredMask.Equal(t.RequiredMask) && terms[k].ForbiddenMask.Equal(t.ForbiddenMask) {
					removed++
					continue next
				}
			}
			seen[key] = append(seen[key], len(terms))
			terms = append(terms, *t)
		}
		out[i] = Rule{Name: r.Name, Terms: terms}
	}
	if removed > 0 {
		logging.Logger.Debug().Int("removed", removed).Msg("Removed duplicate terms")
	}
	return &RuleSet{width: rs.width, rules: out}, removed
}
