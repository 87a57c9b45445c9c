// logicbits/pkg/bitset/bitset_test.go

package bitset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(0xB17B17))
	for _, n := range []int{0, 1, 4, 31, 32, 63, 64, 65, 100, 128, 200} {
		for trial := 0; trial < 50; trial++ {
			row := make([]bool, n)
			for i := range row {
				row[i] = rng.Intn(2) == 1
			}
			s := Encode(row)
			require.Equal(t, n, s.Width())
			for i := 0; i < n; i++ {
				require.Equal(t, row[i], s.Test(i), "n=%d bit %d", n, i)
			}
			assert.Equal(t, row, Decode(s, n))
		}
	}
}

func TestEncodeHighBitsZero(t *testing.T) {
	row := []bool{true, true, true}
	s := Encode(row)
	assert.Equal(t, uint64(0b111), s.Word(0))
	assert.False(t, s.Test(3))
	assert.False(t, s.Test(63))
	assert.Equal(t, 3, s.Count())
}

func TestEncodeConcreteScenario(t *testing.T) {
	s := Encode([]bool{true, true, false, false})
	assert.Equal(t, "0011", s.String())
	assert.Equal(t, Word, s.Kind())

	s = Encode([]bool{true, false, true, false})
	assert.Equal(t, "0101", s.String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, Word, New(64).Kind())
	assert.Equal(t, Multi, New(65).Kind())
	assert.Equal(t, 2, New(128).NumWords())
	assert.Equal(t, 3, New(129).NumWords())
	assert.Equal(t, "multi", Multi.String())
}

func TestAddAndTest(t *testing.T) {
	s := New(130)
	for _, i := range []int{0, 63, 64, 127, 128, 129} {
		s.Add(i)
	}
	assert.Equal(t, []int{0, 63, 64, 127, 128, 129}, s.Indices())
	assert.True(t, s.Test(129))
	assert.False(t, s.Test(130))
	assert.False(t, s.Test(-1))
	assert.Panics(t, func() { s.Add(130) })
}

func TestContainsAll(t *testing.T) {
	tests := []struct {
		name  string
		state Set
		mask  Set
		want  bool
	}{
		{"empty mask", FromWords(64, 0), FromWords(64, 0), true},
		{"subset", FromWords(64, 0b1011), FromWords(64, 0b0011), true},
		{"missing bit", FromWords(64, 0b1001), FromWords(64, 0b0011), false},
		{"multi subset", FromWords(128, 1, 1<<5), FromWords(128, 0, 1<<5), true},
		{"multi missing", FromWords(128, 1, 0), FromWords(128, 0, 1<<5), false},
		{"short state", FromWords(64, 1), FromWords(128, 1, 1), false},
		{"short state zero mask word", FromWords(64, 1), FromWords(128, 1, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.ContainsAll(tt.mask))
		})
	}
}

func TestIntersects(t *testing.T) {
	assert.False(t, FromWords(64, 0b0101).Intersects(FromWords(64, 0b1010)))
	assert.True(t, FromWords(64, 0b0101).Intersects(FromWords(64, 0b0100)))
	assert.True(t, FromWords(192, 0, 0, 1).Intersects(FromWords(192, 0, 0, 3)))
	assert.False(t, FromWords(64, 1).Intersects(FromWords(192, 0, 0, 3)))
}

func TestAndOrEqual(t *testing.T) {
	a := FromWords(128, 0b1100, 0b1)
	b := FromWords(128, 0b1010, 0b11)
	assert.Equal(t, []uint64{0b1000, 0b1}, a.And(b).Words())
	assert.Equal(t, []uint64{0b1110, 0b11}, a.Or(b).Words())
	assert.True(t, a.Equal(FromWords(128, 0b1100, 0b1)))
	assert.False(t, a.Equal(FromWords(64, 0b1100)))
	assert.True(t, New(70).IsZero())
	assert.False(t, a.IsZero())
}

func TestFromWordsClearsTail(t *testing.T) {
	s := FromWords(4, 0xFF)
	assert.Equal(t, uint64(0xF), s.Word(0))
	s = FromWords(70, ^uint64(0), ^uint64(0))
	assert.Equal(t, 70, s.Count())
}

func TestCloneSharesNoStorage(t *testing.T) {
	s := New(128)
	s.Add(70)
	c := s.Clone()
	c.Add(100)
	assert.Equal(t, []int{70}, s.Indices())
	assert.Equal(t, []int{70, 100}, c.Indices())

	w := FromWords(4, 0b0101)
	wc := w.Clone()
	wc.Add(1)
	assert.Equal(t, "0101", w.String())
	assert.True(t, w.Clone().Equal(w))
}

func TestEncodeWidth(t *testing.T) {
	s := EncodeWidth([]bool{false, true}, 64)
	assert.Equal(t, 64, s.Width())
	assert.True(t, s.Test(1))
	assert.Panics(t, func() { EncodeWidth(make([]bool, 3), 2) })
}
