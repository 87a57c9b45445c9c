// logicbits/pkg/eval/eval_benchmark_test.go

package eval

import (
	"math/rand"
	"testing"

	"rgehrsitz/logicbits/pkg/bitset"
)

func benchCorpus(b *testing.B, width, n int) ([][]bool, []bitset.Set) {
	rng := rand.New(rand.NewSource(0xB17B17))
	rows := make([][]bool, 1024)
	states := make([]bitset.Set, len(rows))
	for i := range rows {
		rows[i] = randomRow(rng, n, 0.6)
		states[i] = bitset.EncodeWidth(rows[i], width)
	}
	return rows, states
}

func BenchmarkNaive(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	rs := randomRuleSet(b, rng, 64, 32, 64)
	rows, _ := benchCorpus(b, 64, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Naive(rs, rows[i%len(rows)])
	}
}

func BenchmarkMask(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	rs := randomRuleSet(b, rng, 64, 32, 64)
	_, states := benchCorpus(b, 64, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Mask(rs, states[i%len(states)])
	}
}

func BenchmarkMaskMultiWord(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	rs := randomRuleSet(b, rng, 192, 192, 64)
	_, states := benchCorpus(b, 192, 192)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Mask(rs, states[i%len(states)])
	}
}

func BenchmarkEncode(b *testing.B) {
	rows, _ := benchCorpus(b, 64, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bitset.Encode(rows[i%len(rows)])
	}
}
