// logicbits/pkg/harness/run.go

package harness

import (
	"context"
	"fmt"
	"io"
	"time"

	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/eval"
	"rgehrsitz/logicbits/pkg/logging"
)

// Progress receives the number of events finished by each phase. It is
// satisfied by *progressbar.ProgressBar.
type Progress interface {
	Add(int) error
}

// Phases is how many times Run reports cfg.Events to a Progress.
const Phases = 3

// Sample is one event evaluated by both evaluators before timing starts.
type Sample struct {
	Event int  `json:"event"`
	Naive bool `json:"naive"`
	Mask  bool `json:"mask"`
}

// Report is the outcome of a harness run.
type Report struct {
	Predicates  int    `json:"predicates"`
	Rules       int    `json:"rules"`
	Terms       int    `json:"terms"`
	Events      int    `json:"events"`
	Workers     int    `json:"workers"`
	Fingerprint uint64 `json:"fingerprint"`

	Samples []Sample `json:"samples"`

	EncodeTime time.Duration `json:"encode_ns"`
	NaiveTime  time.Duration `json:"naive_ns"`
	MaskTime   time.Duration `json:"mask_ns"`

	NaiveMatches    int `json:"naive_matches"`
	MaskMatches     int `json:"mask_matches"`
	ParallelMatches int `json:"parallel_matches"`

	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Run generates a corpus from cfg, times encoding and both evaluators over it,
// cross-checks every event and repeats the mask pass across cfg.Workers
// goroutines. progress may be nil.
func Run(ctx context.Context, cfg Config, progress Progress) (*Report, error) {
	corpus, err := Generate(cfg)
	if err != nil {
		return nil, err
	}
	rs := corpus.Rules
	rows := corpus.Rows
	advance := func() {
		if progress != nil {
			_ = progress.Add(len(rows))
		}
	}

	report := &Report{
		Predicates:  cfg.Predicates,
		Rules:       rs.Len(),
		Terms:       rs.Terms(),
		Events:      len(rows),
		Workers:     cfg.workers(),
		Fingerprint: rs.Fingerprint(),
	}

	start := time.Now()
	states := make([]bitset.Set, len(rows))
	for i, row := range rows {
		states[i] = bitset.EncodeWidth(row, cfg.Width)
	}
	report.EncodeTime = time.Since(start)
	advance()

	for i := 0; i < cfg.Samples && i < len(rows); i++ {
		report.Samples = append(report.Samples, Sample{
			Event: i,
			Naive: eval.Naive(rs, rows[i]),
			Mask:  eval.Mask(rs, states[i]),
		})
	}

	start = time.Now()
	report.NaiveMatches = eval.CountRows(rs, rows)
	report.NaiveTime = time.Since(start)
	advance()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	report.MaskMatches = eval.Count(rs, states)
	report.MaskTime = time.Since(start)
	advance()

	report.ParallelMatches, err = CountParallel(ctx, rs, states, cfg.workers())
	if err != nil {
		return nil, err
	}
	report.Mismatches = Differential(rs, rows, states)

	logging.Logger.Info().
		Int("events", report.Events).
		Int("naive_matches", report.NaiveMatches).
		Int("mask_matches", report.MaskMatches).
		Int("mismatches", len(report.Mismatches)).
		Dur("naive", report.NaiveTime).
		Dur("mask", report.MaskTime).
		Msg("Harness run complete")
	return report, nil
}

// Agree reports whether every check agreed: sample pairs, match counts and
// the per-event differential.
func (r *Report) Agree() bool {
	for _, s := range r.Samples {
		if s.Naive != s.Mask {
			return false
		}
	}
	return len(r.Mismatches) == 0 &&
		r.NaiveMatches == r.MaskMatches &&
		r.MaskMatches == r.ParallelMatches
}

// Speedup is naive time over mask time, or 0 when the mask time is zero.
func (r *Report) Speedup() float64 {
	if r.MaskTime <= 0 {
		return 0
	}
	return r.NaiveTime.Seconds() / r.MaskTime.Seconds()
}

func (r *Report) perEvent(d time.Duration) float64 {
	if r.Events == 0 {
		return 0
	}
	return 1e6 * d.Seconds() / float64(r.Events)
}

// Render writes the human-readable report.
func (r *Report) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, s := range r.Samples {
		ew.printf("sample %d: naive=%t mask=%t equal? %t\n", s.Event, s.Naive, s.Mask, s.Naive == s.Mask)
	}
	ew.printf("\n")
	ew.printf("speedup (mask vs naive): %.1fx\n", r.Speedup())
	ew.printf("amortized cost per event: encode=%.3f µs, mask_eval=%.3f µs, naive=%.3f µs\n",
		r.perEvent(r.EncodeTime), r.perEvent(r.MaskTime), r.perEvent(r.NaiveTime))
	ew.printf("events matched: naive=%d  mask=%d  parallel=%d  equal? %t\n",
		r.NaiveMatches, r.MaskMatches, r.ParallelMatches, r.Agree())
	ew.printf("mismatches: %d\n", len(r.Mismatches))
	for _, m := range r.Mismatches {
		ew.printf("  event %d: naive=%t mask=%t state=%s\n", m.Event, m.Naive, m.Mask, m.State)
	}
	ew.printf("timings over %d events, %d rules (%d terms), %d predicates, %d workers:\n",
		r.Events, r.Rules, r.Terms, r.Predicates, r.Workers)
	ew.printf("  encode (prep once)   : %v\n", r.EncodeTime)
	ew.printf("  naive eval (booleans): %v\n", r.NaiveTime)
	ew.printf("  mask  eval (bitwise) : %v\n", r.MaskTime)
	ew.printf("rule set fingerprint: %016x\n", r.Fingerprint)
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
