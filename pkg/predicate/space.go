// logicbits/pkg/predicate/space.go

// Package predicate assigns dense bit indices to named predicates and turns
// records into the boolean rows and bitsets the evaluators consume.
//
// A Space is produced once by a Builder and is read-only afterwards, so it can
// be shared by any number of goroutines. Registration order is index order.
package predicate

import (
	"fmt"
	"strconv"

	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/logging"
)

// DefaultWidth is the bitset width used when none is configured.
const DefaultWidth = bitset.WordBits

// Record is one decoded event: field name to value, as produced by
// encoding/json or yaml.v3.
type Record map[string]interface{}

// Deriver computes a predicate's truth value from a record. Derivers must be
// pure; a nil Deriver always yields false.
type Deriver func(Record) bool

type Builder struct {
	width    int
	names    []string
	index    map[string]int
	derivers []Deriver
	err      error
}

func NewBuilder(width int) *Builder {
	return &Builder{
		width: width,
		index: make(map[string]int),
	}
}

// Register appends a predicate and assigns it the next free index. The first
// registration error is kept and returned by Build.
func (b *Builder) Register(name string, d Deriver) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = logging.NewError(logging.ErrorTypeConfig, "invalid predicate", ErrEmptyName, map[string]interface{}{"index": len(b.names)})
		return b
	}
	if _, exists := b.index[name]; exists {
		b.err = logging.NewError(logging.ErrorTypeConfig, "invalid predicate", ErrDuplicateName, map[string]interface{}{"predicate": name})
		return b
	}
	b.index[name] = len(b.names)
	b.names = append(b.names, name)
	b.derivers = append(b.derivers, d)
	return b
}

// RegisterThresholds registers prefix+N for each threshold N, each true when
// field is at least N.
func (b *Builder) RegisterThresholds(prefix, field string, thresholds ...float64) *Builder {
	for _, t := range thresholds {
		b.Register(prefix+strconv.FormatFloat(t, 'f', -1, 64), AtLeast(field, t))
	}
	return b
}

// Build freezes the registered predicates. It fails with a CONFIG error if
// the width is not positive or fewer bits than predicates are available.
func (b *Builder) Build() (*Space, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.width <= 0 {
		return nil, logging.NewError(logging.ErrorTypeConfig, "invalid predicate space", ErrInvalidWidth,
			map[string]interface{}{"width": b.width})
	}
	if len(b.names) > b.width {
		return nil, logging.NewError(logging.ErrorTypeConfig, "invalid predicate space",
			fmt.Errorf("%w: %d > %d", ErrWidthExceeded, len(b.names), b.width),
			map[string]interface{}{"width": b.width, "predicates": len(b.names)})
	}

	s := &Space{
		width:    b.width,
		names:    append([]string(nil), b.names...),
		index:    make(map[string]int, len(b.names)),
		derivers: append([]Deriver(nil), b.derivers...),
		masks:    make([]bitset.Set, len(b.names)),
	}
	for i, name := range s.names {
		s.index[name] = i
		m := bitset.New(s.width)
		m.Add(i)
		s.masks[i] = m
	}

	logging.Logger.Debug().
		Int("width", s.width).
		Int("predicates", len(s.names)).
		Str("kind", bitset.New(s.width).Kind().String()).
		Msg("Predicate space built")
	return s, nil
}

// Space is a frozen name to index mapping plus the derivers that extract
// each predicate from a record.
type Space struct {
	width    int
	names    []string
	index    map[string]int
	derivers []Deriver
	masks    []bitset.Set
}

// Lookup returns the index of name.
func (s *Space) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Index is Lookup with a NameResolutionError for unknown names.
func (s *Space) Index(name string) (int, error) {
	if i, ok := s.index[name]; ok {
		return i, nil
	}
	return -1, &NameResolutionError{Names: []string{name}}
}

// Mask returns the single-bit mask for name.
func (s *Space) Mask(name string) (bitset.Set, error) {
	i, err := s.Index(name)
	if err != nil {
		return bitset.Set{}, err
	}
	return s.masks[i], nil
}

// Width is the configured bitset width.
func (s *Space) Width() int { return s.width }

// Len is the number of registered predicates.
func (s *Space) Len() int { return len(s.names) }

// Names returns predicate names in index order.
func (s *Space) Names() []string {
	return append([]string(nil), s.names...)
}

// Name returns the name at index i, or "" when i is out of range.
func (s *Space) Name(i int) string {
	if i < 0 || i >= len(s.names) {
		return ""
	}
	return s.names[i]
}

// Extract evaluates every deriver against rec and returns the row in index
// order.
func (s *Space) Extract(rec Record) []bool {
	row := make([]bool, len(s.names))
	for i, d := range s.derivers {
		if d != nil {
			row[i] = d(rec)
		}
	}
	return row
}

// Encode derives rec directly into a bitset of the space's width.
func (s *Space) Encode(rec Record) bitset.Set {
	state := bitset.New(s.width)
	for i, d := range s.derivers {
		if d != nil && d(rec) {
			state.Add(i)
		}
	}
	return state
}

// EncodeRow packs a row produced outside the space (for instance by a
// generator) into a bitset of the space's width.
func (s *Space) EncodeRow(row []bool) (bitset.Set, error) {
	if len(row) != len(s.names) {
		return bitset.Set{}, logging.NewError(logging.ErrorTypeRuntime, "row length does not match predicate space", nil,
			map[string]interface{}{"row": len(row), "predicates": len(s.names)})
	}
	return bitset.EncodeWidth(row, s.width), nil
}
