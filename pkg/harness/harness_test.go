// logicbits/pkg/harness/harness_test.go

package harness

import (
	"bytes"
	"context"
	"testing"
	"time"

	"rgehrsitz/logicbits/pkg/eval"
	"rgehrsitz/logicbits/pkg/logging"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Events = 2000
	cfg.Rules = 16
	cfg.Workers = 4
	return cfg
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := smallConfig()
	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Rules.Fingerprint(), b.Rules.Fingerprint())
	assert.Equal(t, a.Rows, b.Rows)

	cfg.Seed++
	c, err := Generate(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Rules.Fingerprint(), c.Rules.Fingerprint())
}

func TestGenerateShape(t *testing.T) {
	cfg := smallConfig()
	corpus, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.Predicates, corpus.Space.Len())
	assert.Equal(t, "P00", corpus.Space.Name(0))
	assert.Len(t, corpus.Rows, cfg.Events)
	require.Equal(t, cfg.Rules, corpus.Rules.Len())

	for _, r := range corpus.Rules.Rules() {
		assert.GreaterOrEqual(t, len(r.Terms), cfg.MinTerms)
		assert.LessOrEqual(t, len(r.Terms), cfg.MaxTerms)
		for i := range r.Terms {
			term := &r.Terms[i]
			assert.GreaterOrEqual(t, len(term.Required), cfg.MinRequired)
			assert.LessOrEqual(t, len(term.Required), cfg.MaxRequired)
			assert.LessOrEqual(t, len(term.Forbidden), cfg.MaxForbidden)
			assert.False(t, term.Degenerate(), "forbidden must be disjoint from required")
			for _, idx := range append(append([]int(nil), term.Required...), term.Forbidden...) {
				assert.Less(t, idx, cfg.Predicates)
			}
		}
	}
}

func TestGenerateRowBias(t *testing.T) {
	cfg := smallConfig()
	cfg.Events = 20000
	corpus, err := Generate(cfg)
	require.NoError(t, err)

	first, last := 0, 0
	for _, row := range corpus.Rows {
		if row[0] {
			first++
		}
		if row[cfg.Predicates-1] {
			last++
		}
	}
	assert.InDelta(t, TrueProbability(0, cfg.Predicates), float64(first)/float64(cfg.Events), 0.02)
	assert.InDelta(t, TrueProbability(cfg.Predicates-1, cfg.Predicates), float64(last)/float64(cfg.Events), 0.02)
}

func TestTrueProbability(t *testing.T) {
	assert.InDelta(t, 0.10, TrueProbability(0, 32), 1e-9)
	assert.InDelta(t, 0.275, TrueProbability(16, 32), 1e-9)
	assert.Less(t, TrueProbability(31, 32), 0.45)
}

func TestSampleDistinct(t *testing.T) {
	faker := gofakeit.New(1)
	for trial := 0; trial < 200; trial++ {
		req := sampleDistinct(faker, 8, 5, nil)
		forb := sampleDistinct(faker, 8, 5, req)
		assert.Len(t, req, 5)
		assert.Len(t, forb, 3)

		seen := map[int]bool{}
		for _, i := range append(append([]int(nil), req...), forb...) {
			assert.False(t, seen[i])
			seen[i] = true
		}
	}
	assert.Nil(t, sampleDistinct(faker, 8, 0, nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"too many predicates", func(c *Config) { c.Predicates = 65 }},
		{"no predicates", func(c *Config) { c.Predicates = 0 }},
		{"no terms", func(c *Config) { c.MinTerms = 0 }},
		{"inverted terms", func(c *Config) { c.MinTerms, c.MaxTerms = 4, 2 }},
		{"required exceeds predicates", func(c *Config) { c.Predicates, c.MaxRequired = 4, 6 }},
		{"negative forbidden", func(c *Config) { c.MinForbidden = -1 }},
		{"negative events", func(c *Config) { c.Events = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, logging.IsType(err, logging.ErrorTypeConfig))
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestDifferentialAgrees(t *testing.T) {
	cfg := smallConfig()
	corpus, err := Generate(cfg)
	require.NoError(t, err)

	states := EncodeAll(corpus.Rows, cfg.Width)
	assert.Empty(t, Differential(corpus.Rules, corpus.Rows, states))
}

func TestDifferentialReportsMismatch(t *testing.T) {
	cfg := smallConfig()
	cfg.MinRequired, cfg.MaxRequired = 1, 1
	cfg.MinTerms, cfg.MaxTerms = 1, 1
	cfg.Rules = 1
	corpus, err := Generate(cfg)
	require.NoError(t, err)

	rows := [][]bool{make([]bool, cfg.Predicates)}
	req := corpus.Rules.Rules()[0].Terms[0].Required[0]
	rows[0][req] = true
	// A state that disagrees with its row: the required bit is missing.
	states := EncodeAll([][]bool{make([]bool, cfg.Predicates)}, cfg.Width)

	mm := Differential(corpus.Rules, rows, states)
	require.Len(t, mm, 1)
	assert.True(t, mm[0].Naive)
	assert.False(t, mm[0].Mask)
	assert.Equal(t, 0, mm[0].Event)
}

func TestCountParallel(t *testing.T) {
	cfg := smallConfig()
	corpus, err := Generate(cfg)
	require.NoError(t, err)
	states := EncodeAll(corpus.Rows, cfg.Width)
	want := eval.Count(corpus.Rules, states)

	for _, workers := range []int{0, 1, 3, 8, 5000} {
		got, err := CountParallel(context.Background(), corpus.Rules, states, workers)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", workers)
	}

	got, err := CountParallel(context.Background(), corpus.Rules, nil, 4)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCountParallelCancelled(t *testing.T) {
	cfg := smallConfig()
	corpus, err := Generate(cfg)
	require.NoError(t, err)
	states := EncodeAll(corpus.Rows, cfg.Width)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CountParallel(ctx, corpus.Rules, states, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingProgress struct{ n int }

func (c *countingProgress) Add(n int) error {
	c.n += n
	return nil
}

func TestRun(t *testing.T) {
	cfg := smallConfig()
	progress := &countingProgress{}
	report, err := Run(context.Background(), cfg, progress)
	require.NoError(t, err)

	assert.True(t, report.Agree())
	assert.Empty(t, report.Mismatches)
	assert.Len(t, report.Samples, cfg.Samples)
	assert.Equal(t, report.NaiveMatches, report.MaskMatches)
	assert.Equal(t, report.MaskMatches, report.ParallelMatches)
	assert.Equal(t, cfg.Events, report.Events)
	assert.Equal(t, Phases*cfg.Events, progress.n)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf))
	assert.Contains(t, buf.String(), "equal? true")
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Width = -1
	_, err := Run(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestReportRenderGolden(t *testing.T) {
	tests := []struct {
		name   string
		report Report
	}{
		{
			name: "report_agree",
			report: Report{
				Predicates:      4,
				Rules:           2,
				Terms:           3,
				Events:          1000,
				Workers:         2,
				Fingerprint:     0xdeadbeef,
				Samples:         []Sample{{Event: 0, Naive: true, Mask: true}, {Event: 1}},
				EncodeTime:      2 * time.Millisecond,
				NaiveTime:       40 * time.Millisecond,
				MaskTime:        10 * time.Millisecond,
				NaiveMatches:    12,
				MaskMatches:     12,
				ParallelMatches: 12,
			},
		},
		{
			name: "report_mismatch",
			report: Report{
				Predicates:   4,
				Rules:        1,
				Terms:        1,
				Events:       8,
				Workers:      1,
				NaiveMatches: 1,
				Mismatches:   []Mismatch{{Event: 7, Naive: true, Mask: false, State: "0101"}},
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.report.Render(&buf))
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestSpeedup(t *testing.T) {
	r := Report{NaiveTime: 30 * time.Millisecond, MaskTime: 10 * time.Millisecond}
	assert.InDelta(t, 3.0, r.Speedup(), 1e-9)
	assert.Zero(t, (&Report{NaiveTime: time.Second}).Speedup())
}
