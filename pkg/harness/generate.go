// logicbits/pkg/harness/generate.go

package harness

import (
	"fmt"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/rules"

	"github.com/brianvoe/gofakeit/v7"
)

// Corpus is a generated rule set plus the predicate rows it is evaluated on.
type Corpus struct {
	Space *predicate.Space
	Rules *rules.RuleSet
	Rows  [][]bool
}

// Generate builds a corpus from cfg. The same config and seed always yield
// the same corpus.
func Generate(cfg Config) (*Corpus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	faker := gofakeit.New(cfg.Seed)

	space, err := PredicateSpace(cfg.Predicates, cfg.Width)
	if err != nil {
		return nil, err
	}
	rs, err := GenerateRules(faker, cfg)
	if err != nil {
		return nil, err
	}

	rows := make([][]bool, cfg.Events)
	for i := range rows {
		rows[i] = RandomRow(faker, cfg.Predicates)
	}

	logging.Logger.Debug().
		Int("predicates", cfg.Predicates).
		Int("rules", rs.Len()).
		Int("terms", rs.Terms()).
		Int("events", len(rows)).
		Uint64("seed", cfg.Seed).
		Msg("Generated corpus")
	return &Corpus{Space: space, Rules: rs, Rows: rows}, nil
}

// PredicateSpace registers n externally supplied predicates P00, P01, ...
func PredicateSpace(n, width int) (*predicate.Space, error) {
	b := predicate.NewBuilder(width)
	for i := 0; i < n; i++ {
		b.Register(fmt.Sprintf("P%02d", i), nil)
	}
	return b.Build()
}

// GenerateRules draws cfg.Rules rules. Each term's forbidden predicates are
// disjoint from its required ones; when too few predicates remain the
// forbidden list is shorter than drawn.
func GenerateRules(faker *gofakeit.Faker, cfg Config) (*rules.RuleSet, error) {
	rl := make([]rules.Rule, cfg.Rules)
	for r := range rl {
		terms := make([]rules.Term, faker.IntRange(cfg.MinTerms, cfg.MaxTerms))
		for i := range terms {
			kReq := faker.IntRange(cfg.MinRequired, cfg.MaxRequired)
			kForb := faker.IntRange(cfg.MinForbidden, cfg.MaxForbidden)
			req := sampleDistinct(faker, cfg.Predicates, kReq, nil)
			forb := sampleDistinct(faker, cfg.Predicates, kForb, req)
			t, err := rules.NewTerm(cfg.Width, req, forb)
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		rl[r] = rules.Rule{Name: fmt.Sprintf("rule-%d", r+1), Terms: terms}
	}
	return rules.NewRuleSet(cfg.Width, rl...)
}

// sampleDistinct picks up to k distinct values from [0, n) minus exclude with
// a partial Fisher-Yates shuffle.
func sampleDistinct(faker *gofakeit.Faker, n, k int, exclude []int) []int {
	if k <= 0 {
		return nil
	}
	skip := make(map[int]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	pool := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !skip[i] {
			pool = append(pool, i)
		}
	}
	if k > len(pool) {
		k = len(pool)
	}
	for i := 0; i < k; i++ {
		j := faker.IntRange(i, len(pool)-1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// TrueProbability is the chance predicate i of n is true in a generated row.
// Early predicates are rare (10%) and later ones common (up to 45%).
func TrueProbability(i, n int) float64 {
	return 0.10 + float64(i)/float64(n)*0.35
}

// RandomRow draws one row of n predicate values.
func RandomRow(faker *gofakeit.Faker, n int) []bool {
	row := make([]bool, n)
	for i := range row {
		row[i] = faker.Float64Range(0, 1) < TrueProbability(i, n)
	}
	return row
}
