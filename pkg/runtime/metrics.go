// logicbits/pkg/runtime/metrics.go

package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultLabel   = "result"
	ResultMatched = "matched"
	ResultFailed  = "rejected"
	ResultError   = "error"
	RuleLabel     = "rule"
)

// Metrics are the engine's prometheus collectors. Each Engine owns its own
// set so tests and multiple engines do not collide in the default registry.
type Metrics struct {
	Events      *prometheus.CounterVec
	FailedRules *prometheus.CounterVec
	Latency     prometheus.Histogram
	Rules       prometheus.Gauge
	Predicates  prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logicbits_events_total",
				Help: "Events evaluated, by result",
			},
			[]string{ResultLabel},
		),
		FailedRules: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logicbits_rule_failures_total",
				Help: "Rejected events, by the first rule that failed",
			},
			[]string{RuleLabel},
		),
		Latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "logicbits_evaluation_seconds",
				Help:    "Time to encode and evaluate one event",
				Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
			},
		),
		Rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "logicbits_rules",
				Help: "Rules in the loaded rule set",
			},
		),
		Predicates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "logicbits_predicates",
				Help: "Predicates in the loaded schema",
			},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Events, m.FailedRules, m.Latency, m.Rules, m.Predicates} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
