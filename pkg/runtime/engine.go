// logicbits/pkg/runtime/engine.go

// Package runtime evaluates live event records against a loaded rule set,
// publishes verdicts and serves a small stats dashboard.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"rgehrsitz/logicbits/pkg/eval"
	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/rules"
	"rgehrsitz/logicbits/pkg/store"

	"github.com/redis/go-redis/v9"
)

// Verdict is the outcome of evaluating one record.
type Verdict struct {
	Matched         bool        `json:"matched"`
	State           string      `json:"state"`
	FailedRule      string      `json:"failed_rule,omitempty"`
	FailedRuleIndex int         `json:"failed_rule_index"`
	Record          interface{} `json:"record,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Stats is a snapshot of the engine's counters.
type Stats struct {
	EventsProcessed int64     `json:"events_processed"`
	EventsMatched   int64     `json:"events_matched"`
	EventsRejected  int64     `json:"events_rejected"`
	DecodeErrors    int64     `json:"decode_errors"`
	PublishErrors   int64     `json:"publish_errors"`
	LastEventTime   time.Time `json:"last_event_time"`
	Rules           int       `json:"rules"`
	Predicates      int       `json:"predicates"`
	Fingerprint     string    `json:"fingerprint"`
}

type Engine struct {
	space          *predicate.Space
	rules          *rules.RuleSet
	store          store.Store
	verdictChannel string
	metrics        *Metrics
	includeRecord  bool
	fingerprint    string

	processed     atomic.Int64
	matched       atomic.Int64
	decodeErrors  atomic.Int64
	publishErrors atomic.Int64

	mu       sync.Mutex
	lastTime time.Time
}

type Option func(*Engine)

// WithStore publishes every verdict to channel and keeps counters in s.
func WithStore(s store.Store, channel string) Option {
	return func(e *Engine) {
		e.store = s
		e.verdictChannel = channel
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecordEcho copies the input record into published verdicts.
func WithRecordEcho() Option {
	return func(e *Engine) { e.includeRecord = true }
}

// NewEngine pairs a predicate space with a rule set built for the same width.
func NewEngine(space *predicate.Space, rs *rules.RuleSet, opts ...Option) (*Engine, error) {
	if space.Width() != rs.Width() {
		return nil, logging.NewError(logging.ErrorTypeConfig, "rule set does not match predicate space",
			fmt.Errorf("width %d != %d", rs.Width(), space.Width()), nil)
	}
	e := &Engine{
		space:       space,
		rules:       rs,
		fingerprint: strconv.FormatUint(rs.Fingerprint(), 16),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.metrics.Rules.Set(float64(rs.Len()))
		e.metrics.Predicates.Set(float64(space.Len()))
	}
	logging.Logger.Info().
		Int("predicates", space.Len()).
		Int("rules", rs.Len()).
		Int("terms", rs.Terms()).
		Str("fingerprint", e.fingerprint).
		Msg("Engine ready")
	return e, nil
}

// Evaluate encodes rec and runs the mask evaluator. It is safe for concurrent
// use and does not touch the engine's counters.
func (e *Engine) Evaluate(rec predicate.Record) Verdict {
	state := e.space.Encode(rec)
	v := Verdict{
		Matched:         eval.Mask(e.rules, state),
		State:           state.String(),
		FailedRuleIndex: -1,
		Timestamp:       time.Now(),
	}
	if !v.Matched {
		v.FailedRuleIndex = eval.FirstFailing(e.rules, state)
		if v.FailedRuleIndex >= 0 {
			v.FailedRule = e.rules.Rules()[v.FailedRuleIndex].Name
		}
	}
	return v
}

// ProcessMessage decodes a JSON record, evaluates it, updates counters and,
// when a store is configured, publishes the verdict.
func (e *Engine) ProcessMessage(ctx context.Context, payload []byte) (Verdict, error) {
	start := time.Now()

	var rec predicate.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		e.decodeErrors.Add(1)
		if e.metrics != nil {
			e.metrics.Events.WithLabelValues(ResultError).Inc()
		}
		return Verdict{}, logging.NewError(logging.ErrorTypeRuntime, "invalid event payload", err,
			map[string]interface{}{"payload": string(payload)})
	}

	v := e.Evaluate(rec)
	if e.includeRecord {
		v.Record = rec
	}
	e.record(v, time.Since(start))

	if e.store != nil {
		if err := e.publish(ctx, v); err != nil {
			e.publishErrors.Add(1)
			return v, err
		}
	}
	return v, nil
}

func (e *Engine) record(v Verdict, took time.Duration) {
	e.processed.Add(1)
	if v.Matched {
		e.matched.Add(1)
	}
	e.mu.Lock()
	e.lastTime = v.Timestamp
	e.mu.Unlock()

	if e.metrics == nil {
		return
	}
	e.metrics.Latency.Observe(took.Seconds())
	if v.Matched {
		e.metrics.Events.WithLabelValues(ResultMatched).Inc()
	} else {
		e.metrics.Events.WithLabelValues(ResultFailed).Inc()
		if v.FailedRule != "" {
			e.metrics.FailedRules.WithLabelValues(v.FailedRule).Inc()
		}
	}
}

func (e *Engine) publish(ctx context.Context, v Verdict) error {
	if e.verdictChannel != "" {
		if err := e.store.PublishVerdict(ctx, e.verdictChannel, v); err != nil {
			return err
		}
	}
	counter := ResultFailed
	if v.Matched {
		counter = ResultMatched
	}
	if err := e.store.IncrCounter(ctx, "events", 1); err != nil {
		return err
	}
	return e.store.IncrCounter(ctx, counter, 1)
}

// Run processes messages until ctx is done or msgs is closed. Bad messages
// are logged and skipped.
func (e *Engine) Run(ctx context.Context, msgs <-chan *redis.Message) error {
	logging.Logger.Info().Msg("Engine loop started")
	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info().Msg("Engine loop stopped")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				logging.Logger.Info().Msg("Message channel closed")
				return nil
			}
			v, err := e.ProcessMessage(ctx, []byte(msg.Payload))
			if err != nil {
				logging.LogError(logging.Logger, err)
				continue
			}
			logging.Logger.Debug().
				Str("channel", msg.Channel).
				Bool("matched", v.Matched).
				Str("state", v.State).
				Str("failed_rule", v.FailedRule).
				Msg("Evaluated event")
		}
	}
}

// GetStats returns a snapshot of the engine's counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	last := e.lastTime
	e.mu.Unlock()
	processed := e.processed.Load()
	matched := e.matched.Load()
	return Stats{
		EventsProcessed: processed,
		EventsMatched:   matched,
		EventsRejected:  processed - matched,
		DecodeErrors:    e.decodeErrors.Load(),
		PublishErrors:   e.publishErrors.Load(),
		LastEventTime:   last,
		Rules:           e.rules.Len(),
		Predicates:      e.space.Len(),
		Fingerprint:     e.fingerprint,
	}
}
