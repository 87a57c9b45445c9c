// logicbits/pkg/bitset/encode.go

package bitset

// Encode converts a per-event row of predicate values into a Set of width
// len(row): bit i is set iff row[i] is true and every higher bit is zero.
func Encode(row []bool) Set {
	s := New(len(row))
	n := len(row)
	if n > WordBits {
		n = WordBits
	}
	var lo uint64
	for i := 0; i < n; i++ {
		if row[i] {
			lo |= 1 << uint(i)
		}
	}
	s.lo = lo
	for i := WordBits; i < len(row); i++ {
		if row[i] {
			s.hi[i/WordBits-1] |= 1 << uint(i%WordBits)
		}
	}
	return s
}

// EncodeWidth is Encode with an explicit width, for callers whose rows are
// shorter than the rule set's configured width. It panics if the row does not
// fit; widths are validated when the predicate space is built.
func EncodeWidth(row []bool, width int) Set {
	if len(row) > width {
		panic("bitset.EncodeWidth: row longer than width")
	}
	s := New(width)
	for i, v := range row {
		if v {
			s.Add(i)
		}
	}
	return s
}

// Decode is the inverse of Encode: it returns the first n bits of s as a row.
func Decode(s Set, n int) []bool {
	row := make([]bool, n)
	for i := range row {
		row[i] = s.Test(i)
	}
	return row
}
