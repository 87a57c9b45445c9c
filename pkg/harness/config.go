// logicbits/pkg/harness/config.go

// Package harness generates reproducible rule sets and event corpora, checks
// that the element-wise and mask evaluators agree on them, and times both.
// It sits outside the evaluation core and only uses its public API.
package harness

import (
	"fmt"
	"runtime"

	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/logging"
)

// DefaultSeed makes runs reproducible unless a seed is given.
const DefaultSeed uint64 = 0xB17B17

type Config struct {
	Predicates int `json:"predicates" yaml:"predicates"`
	Rules      int `json:"rules" yaml:"rules"`

	MinTerms     int `json:"min_terms" yaml:"min_terms"`
	MaxTerms     int `json:"max_terms" yaml:"max_terms"`
	MinRequired  int `json:"min_required" yaml:"min_required"`
	MaxRequired  int `json:"max_required" yaml:"max_required"`
	MinForbidden int `json:"min_forbidden" yaml:"min_forbidden"`
	MaxForbidden int `json:"max_forbidden" yaml:"max_forbidden"`

	Events  int    `json:"events" yaml:"events"`
	Seed    uint64 `json:"seed" yaml:"seed"`
	Width   int    `json:"width" yaml:"width"`
	Workers int    `json:"workers" yaml:"workers"`
	Samples int    `json:"samples" yaml:"samples"`
}

func DefaultConfig() Config {
	return Config{
		Predicates:   32,
		Rules:        64,
		MinTerms:     2,
		MaxTerms:     4,
		MinRequired:  3,
		MaxRequired:  6,
		MinForbidden: 0,
		MaxForbidden: 2,
		Events:       100_000,
		Seed:         DefaultSeed,
		Width:        bitset.WordBits,
		Workers:      runtime.GOMAXPROCS(0),
		Samples:      5,
	}
}

// Validate rejects configurations the generator cannot honour.
func (c Config) Validate() error {
	check := func(ok bool, format string, args ...interface{}) error {
		if ok {
			return nil
		}
		return logging.NewError(logging.ErrorTypeConfig, "invalid harness configuration", fmt.Errorf(format, args...), nil)
	}
	for _, err := range []error{
		check(c.Width > 0, "width %d must be positive", c.Width),
		check(c.Predicates > 0, "predicates %d must be positive", c.Predicates),
		check(c.Predicates <= c.Width, "predicates %d exceed width %d", c.Predicates, c.Width),
		check(c.Rules >= 0, "rules %d must not be negative", c.Rules),
		check(c.Events >= 0, "events %d must not be negative", c.Events),
		check(c.Samples >= 0, "samples %d must not be negative", c.Samples),
		check(0 < c.MinTerms && c.MinTerms <= c.MaxTerms, "term range [%d, %d] is invalid", c.MinTerms, c.MaxTerms),
		check(0 <= c.MinRequired && c.MinRequired <= c.MaxRequired, "required range [%d, %d] is invalid", c.MinRequired, c.MaxRequired),
		check(c.MaxRequired <= c.Predicates, "max required %d exceeds predicates %d", c.MaxRequired, c.Predicates),
		check(0 <= c.MinForbidden && c.MinForbidden <= c.MaxForbidden, "forbidden range [%d, %d] is invalid", c.MinForbidden, c.MaxForbidden),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}
