// logicbits/pkg/bitset/bitset.go

// Package bitset implements the fixed-width predicate state used by the mask
// evaluator.
//
// A Set holds its first 64 bits inline in a single word and keeps any further
// bits in an overflow slice. For the common case of at most 64 predicates the
// overflow slice is nil, so containment tests compile down to one AND and one
// compare per mask with no allocation and no loop. Wider schemas pay one extra
// word operation per additional 64 predicates.
//
// Sets are built once (by Encode, New+Add, or a predicate space) and are then
// treated as immutable. Copying a Set by value shares its overflow words; use
// Clone for an independent copy.
package bitset

import (
	"fmt"
	"math/bits"
	"strings"
)

// WordBits is the number of predicate bits per machine word.
const WordBits = 64

// Kind tags which representation a Set uses.
type Kind uint8

const (
	// Word is a single-word set (width <= 64).
	Word Kind = iota
	// Multi is a multi-word set (width > 64).
	Multi
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Multi:
		return "multi"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Set is a fixed-width bitset. The zero value is an empty single-word set of
// width 0.
type Set struct {
	lo    uint64   // bits [0, 64)
	hi    []uint64 // bits [64, width), nil for single-word sets
	width int
}

// WordsFor returns the number of 64-bit words needed to hold width bits.
func WordsFor(width int) int {
	if width <= 0 {
		return 1
	}
	return (width + WordBits - 1) / WordBits
}

// New returns an empty set able to hold width bits.
func New(width int) Set {
	s := Set{width: width}
	if n := WordsFor(width); n > 1 {
		s.hi = make([]uint64, n-1)
	}
	return s
}

// FromWords builds a set of the given width from little-endian words (word 0
// holds bits 0..63). Bits at or above width are cleared.
func FromWords(width int, words ...uint64) Set {
	s := New(width)
	for i, w := range words {
		if i >= WordsFor(width) {
			break
		}
		if i == 0 {
			s.lo = w
		} else {
			s.hi[i-1] = w
		}
	}
	s.clearTail()
	return s
}

// clearTail zeroes every bit at or above the set's width.
func (s *Set) clearTail() {
	if s.width <= 0 {
		s.lo = 0
		return
	}
	last := WordsFor(s.width) - 1
	rem := uint(s.width % WordBits)
	if rem == 0 {
		return
	}
	mask := uint64(1)<<rem - 1
	if last == 0 {
		s.lo &= mask
	} else {
		s.hi[last-1] &= mask
	}
}

// Width returns the number of significant bits.
func (s Set) Width() int {
	return s.width
}

// Kind reports whether s is a single-word or multi-word set.
func (s Set) Kind() Kind {
	if len(s.hi) == 0 {
		return Word
	}
	return Multi
}

// NumWords returns the number of 64-bit words backing s.
func (s Set) NumWords() int {
	return 1 + len(s.hi)
}

// Word returns word i of s, or 0 when i is past the last word.
func (s Set) Word(i int) uint64 {
	if i == 0 {
		return s.lo
	}
	if i > 0 && i-1 < len(s.hi) {
		return s.hi[i-1]
	}
	return 0
}

// Words returns a copy of the backing words, word 0 first.
func (s Set) Words() []uint64 {
	out := make([]uint64, 0, s.NumWords())
	out = append(out, s.lo)
	return append(out, s.hi...)
}

// Clone returns a copy of s that shares no storage with it.
func (s Set) Clone() Set {
	c := s
	if s.hi != nil {
		c.hi = append([]uint64(nil), s.hi...)
	}
	return c
}

// Add sets bit i. It panics if i is outside [0, width); callers validate
// indices at construction time.
func (s *Set) Add(i int) {
	if i < 0 || i >= s.width {
		panic(fmt.Sprintf("bitset.Add: index %d out of range [0, %d)", i, s.width))
	}
	if i < WordBits {
		s.lo |= 1 << uint(i)
		return
	}
	s.hi[i/WordBits-1] |= 1 << uint(i%WordBits)
}

// Test reports whether bit i is set. Indices outside [0, width) report false.
func (s Set) Test(i int) bool {
	if i < 0 || i >= s.width {
		return false
	}
	if i < WordBits {
		return s.lo&(1<<uint(i)) != 0
	}
	return s.hi[i/WordBits-1]&(1<<uint(i%WordBits)) != 0
}

// ContainsAll reports whether every bit of m is also set in s, i.e.
// (s & m) == m word by word. Words missing from s count as zero.
func (s Set) ContainsAll(m Set) bool {
	if s.lo&m.lo != m.lo {
		return false
	}
	for i, w := range m.hi {
		var sw uint64
		if i < len(s.hi) {
			sw = s.hi[i]
		}
		if sw&w != w {
			return false
		}
	}
	return true
}

// Intersects reports whether s and m share any set bit, i.e. (s & m) != 0.
func (s Set) Intersects(m Set) bool {
	if s.lo&m.lo != 0 {
		return true
	}
	n := min(len(s.hi), len(m.hi))
	for i := 0; i < n; i++ {
		if s.hi[i]&m.hi[i] != 0 {
			return true
		}
	}
	return false
}

// And returns s & m with the width of s.
func (s Set) And(m Set) Set {
	out := New(s.width)
	out.lo = s.lo & m.lo
	for i := range out.hi {
		if i < len(s.hi) && i < len(m.hi) {
			out.hi[i] = s.hi[i] & m.hi[i]
		}
	}
	return out
}

// Or returns s | m with the width of s. Bits of m beyond that width are dropped.
func (s Set) Or(m Set) Set {
	out := New(s.width)
	out.lo = s.lo | m.lo
	for i := range out.hi {
		if i < len(s.hi) {
			out.hi[i] = s.hi[i]
		}
		if i < len(m.hi) {
			out.hi[i] |= m.hi[i]
		}
	}
	out.clearTail()
	return out
}

// IsZero reports whether no bit is set.
func (s Set) IsZero() bool {
	if s.lo != 0 {
		return false
	}
	for _, w := range s.hi {
		if w != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether s and m have the same width and bits.
func (s Set) Equal(m Set) bool {
	if s.width != m.width || s.lo != m.lo || len(s.hi) != len(m.hi) {
		return false
	}
	for i := range s.hi {
		if s.hi[i] != m.hi[i] {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (s Set) Count() int {
	n := bits.OnesCount64(s.lo)
	for _, w := range s.hi {
		n += bits.OnesCount64(w)
	}
	return n
}

// Indices returns the set bit positions in ascending order.
func (s Set) Indices() []int {
	out := make([]int, 0, s.Count())
	for wi := 0; wi < s.NumWords(); wi++ {
		w := s.Word(wi)
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi*WordBits+b)
			w &= w - 1
		}
	}
	return out
}

// String renders the set as a binary string of exactly width digits, most
// significant bit first, so bits 0 and 2 of a width-4 set print as "0101".
func (s Set) String() string {
	if s.width <= 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(s.width)
	for i := s.width - 1; i >= 0; i-- {
		if s.Test(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
