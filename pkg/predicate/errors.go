// logicbits/pkg/predicate/errors.go

package predicate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrWidthExceeded = errors.New("predicate count exceeds bitset width")
	ErrInvalidWidth  = errors.New("bitset width must be positive")
	ErrDuplicateName = errors.New("duplicate predicate name")
	ErrEmptyName     = errors.New("predicate name must not be empty")
)

// NameResolutionError lists every predicate name that could not be resolved
// while compiling Context (a policy or rule name).
type NameResolutionError struct {
	Context string
	Names   []string
}

func (e *NameResolutionError) Error() string {
	noun := "predicate"
	if len(e.Names) != 1 {
		noun = "predicates"
	}
	if e.Context == "" {
		return fmt.Sprintf("unknown %s: %s", noun, strings.Join(e.Names, ", "))
	}
	return fmt.Sprintf("unknown %s in %s: %s", noun, e.Context, strings.Join(e.Names, ", "))
}
