// logicbits/pkg/rules/term.go

// Package rules holds the rule model shared by both evaluators: terms carry
// their predicates as ordered index lists and as bitset masks, computed once
// at construction. A RuleSet is immutable after NewRuleSet returns.
package rules

import (
	"errors"
	"fmt"

	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/logging"
)

var (
	ErrIndexOutOfRange = errors.New("predicate index out of range")
	ErrDuplicateIndex  = errors.New("duplicate predicate index")
)

// Term is a conjunction: every Required predicate true and no Forbidden
// predicate true. The index lists and the masks describe the same sets.
type Term struct {
	Required  []int
	Forbidden []int

	RequiredMask  bitset.Set
	ForbiddenMask bitset.Set
}

// NewTerm validates both index lists against width and builds the masks.
func NewTerm(width int, required, forbidden []int) (Term, error) {
	reqMask, err := buildMask(width, "required", required)
	if err != nil {
		return Term{}, err
	}
	forbMask, err := buildMask(width, "forbidden", forbidden)
	if err != nil {
		return Term{}, err
	}
	return Term{
		Required:      append([]int(nil), required...),
		Forbidden:     append([]int(nil), forbidden...),
		RequiredMask:  reqMask,
		ForbiddenMask: forbMask,
	}, nil
}

// MustTerm is NewTerm for statically known inputs; it panics on error.
func MustTerm(width int, required, forbidden []int) Term {
	t, err := NewTerm(width, required, forbidden)
	if err != nil {
		panic(err)
	}
	return t
}

func buildMask(width int, list string, indices []int) (bitset.Set, error) {
	if width <= 0 {
		return bitset.Set{}, logging.NewError(logging.ErrorTypeCompile, "invalid term",
			fmt.Errorf("width %d must be positive", width), nil)
	}
	m := bitset.New(width)
	for _, i := range indices {
		if i < 0 || i >= width {
			return bitset.Set{}, logging.NewError(logging.ErrorTypeCompile, "invalid term",
				fmt.Errorf("%w: %s index %d not in [0, %d)", ErrIndexOutOfRange, list, i, width),
				map[string]interface{}{"list": list, "index": i, "width": width})
		}
		if m.Test(i) {
			return bitset.Set{}, logging.NewError(logging.ErrorTypeCompile, "invalid term",
				fmt.Errorf("%w: %s index %d", ErrDuplicateIndex, list, i),
				map[string]interface{}{"list": list, "index": i})
		}
		m.Add(i)
	}
	return m, nil
}

// Degenerate reports whether some predicate is both required and forbidden.
// Such a term can never match.
func (t *Term) Degenerate() bool {
	return t.RequiredMask.Intersects(t.ForbiddenMask)
}

// Width is the bitset width the term was built for.
func (t *Term) Width() int {
	return t.RequiredMask.Width()
}
