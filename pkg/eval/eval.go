// logicbits/pkg/eval/eval.go

// Package eval decides whether an event satisfies a rule set.
//
// Naive walks each term's index lists against a boolean row and is the
// reference behaviour. Mask tests each term with two word-wise mask
// comparisons against an encoded state and is the production path. For any
// rule set rs and row, Naive(rs, row) == Mask(rs, bitset.Encode(row)).
//
// Both evaluators stop at the first rule with no matching term and, inside a
// rule, at the first matching term. Neither allocates or takes locks, so a
// frozen RuleSet can be evaluated from any number of goroutines.
package eval

import (
	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/rules"
)

// MatchTermRow reports whether t matches row. Indices past the end of row
// read as false.
func MatchTermRow(t *rules.Term, row []bool) bool {
	for _, i := range t.Required {
		if i >= len(row) || !row[i] {
			return false
		}
	}
	for _, i := range t.Forbidden {
		if i < len(row) && row[i] {
			return false
		}
	}
	return true
}

// MatchTermState reports whether (state & req) == req and (state & forb) == 0.
func MatchTermState(t *rules.Term, state bitset.Set) bool {
	return state.ContainsAll(t.RequiredMask) && !state.Intersects(t.ForbiddenMask)
}

// Naive evaluates rs against a boolean row, one index at a time.
func Naive(rs *rules.RuleSet, row []bool) bool {
	rl := rs.Rules()
	for r := range rl {
		terms := rl[r].Terms
		matched := false
		for t := range terms {
			if MatchTermRow(&terms[t], row) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Mask evaluates rs against an encoded state.
func Mask(rs *rules.RuleSet, state bitset.Set) bool {
	rl := rs.Rules()
	if state.Kind() == bitset.Word {
		return maskWord(rl, state)
	}
	for r := range rl {
		terms := rl[r].Terms
		matched := false
		for t := range terms {
			if MatchTermState(&terms[t], state) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// maskWord is Mask specialised to single-word states. Terms wider than one
// word fall back to the general test.
func maskWord(rl []rules.Rule, state bitset.Set) bool {
	s := state.Word(0)
	for r := range rl {
		terms := rl[r].Terms
		matched := false
		for t := range terms {
			term := &terms[t]
			if term.RequiredMask.Kind() != bitset.Word || term.ForbiddenMask.Kind() != bitset.Word {
				if MatchTermState(term, state) {
					matched = true
					break
				}
				continue
			}
			req := term.RequiredMask.Word(0)
			if s&req == req && s&term.ForbiddenMask.Word(0) == 0 {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Walk runs the shared evaluation driver with a caller-supplied term test.
// match is called once per term visited, in evaluation order, so callers can
// observe short-circuiting.
func Walk(rs *rules.RuleSet, match func(ruleIdx, termIdx int, t *rules.Term) bool) bool {
	rl := rs.Rules()
	for r := range rl {
		terms := rl[r].Terms
		matched := false
		for t := range terms {
			if match(r, t, &terms[t]) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// FirstFailing returns the index of the first rule with no matching term for
// state, or -1 if the rule set is satisfied.
func FirstFailing(rs *rules.RuleSet, state bitset.Set) int {
	rl := rs.Rules()
	for r := range rl {
		if !ruleMatches(&rl[r], state) {
			return r
		}
	}
	return -1
}

func ruleMatches(r *rules.Rule, state bitset.Set) bool {
	for i := range r.Terms {
		if MatchTermState(&r.Terms[i], state) {
			return true
		}
	}
	return false
}

// Count returns how many states satisfy rs.
func Count(rs *rules.RuleSet, states []bitset.Set) int {
	n := 0
	for i := range states {
		if Mask(rs, states[i]) {
			n++
		}
	}
	return n
}

// CountRows is Count for the element-wise evaluator.
func CountRows(rs *rules.RuleSet, rows [][]bool) int {
	n := 0
	for i := range rows {
		if Naive(rs, rows[i]) {
			n++
		}
	}
	return n
}
