// logicbits/pkg/harness/differential.go

package harness

import (
	"context"

	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/eval"
	"rgehrsitz/logicbits/pkg/rules"

	"golang.org/x/sync/errgroup"
)

// Mismatch is an event on which the two evaluators disagreed.
type Mismatch struct {
	Event int    `json:"event"`
	Naive bool   `json:"naive"`
	Mask  bool   `json:"mask"`
	State string `json:"state"`
}

// EncodeAll packs every row into a bitset of the given width.
func EncodeAll(rows [][]bool, width int) []bitset.Set {
	states := make([]bitset.Set, len(rows))
	for i, row := range rows {
		states[i] = bitset.EncodeWidth(row, width)
	}
	return states
}

// Differential evaluates every row with both evaluators and returns each
// event where they disagree. An empty result means the corpus agrees.
func Differential(rs *rules.RuleSet, rows [][]bool, states []bitset.Set) []Mismatch {
	var out []Mismatch
	for i := range rows {
		n := eval.Naive(rs, rows[i])
		m := eval.Mask(rs, states[i])
		if n != m {
			out = append(out, Mismatch{Event: i, Naive: n, Mask: m, State: states[i].String()})
		}
	}
	return out
}

// checkEvery is how many events a worker evaluates between context checks.
const checkEvery = 4096

// CountParallel splits states into one contiguous chunk per worker and sums
// the per-chunk match counts. Workers share rs read-only and write only their
// own slot, so no locking is involved.
func CountParallel(ctx context.Context, rs *rules.RuleSet, states []bitset.Set, workers int) (int, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(states) {
		workers = max(len(states), 1)
	}
	chunk := (len(states) + workers - 1) / workers
	partial := make([]int, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := min(lo+chunk, len(states))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			n := 0
			for i := lo; i < hi; i++ {
				if (i-lo)%checkEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if eval.Mask(rs, states[i]) {
					n++
				}
			}
			partial[w] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range partial {
		total += n
	}
	return total, nil
}
