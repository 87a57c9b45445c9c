// logicbits/pkg/e2e_test.go
package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rgehrsitz/logicbits/pkg/bitset"
	"rgehrsitz/logicbits/pkg/eval"
	"rgehrsitz/logicbits/pkg/harness"
	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/rules"
	"rgehrsitz/logicbits/pkg/runtime"
	"rgehrsitz/logicbits/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaYAML = `
width: 128
predicates:
  - name: DINER_ACME
    kind: equals
    field: diner
    value: ACME
  - name: BIG_GROUP
    kind: flag
    field: big_group
  - name: NO_SERVE
    kind: zero
    field: serve_count
  - kind: thresholds
    prefix: LRGNSS_ORDER_
    field: order_size
    thresholds: [100, 200, 600]
  - name: HOT_PATIO
    kind: script
    script: "heat >= 200 && area == 'patio'"
    fields: [heat, area]
`

const rulesJSON = `{
  "rules": [
    {"name": "customer", "terms": [
      {"all": ["DINER_ACME"]},
      {"all": ["BIG_GROUP"], "none": ["NO_SERVE"]}
    ]},
    {"name": "order_size", "terms": [
      {"all": ["LRGNSS_ORDER_100"], "none": ["LRGNSS_ORDER_600"]}
    ]}
  ],
  "policies": [
    {"name": "not_hot_patio", "none": ["HOT_PATIO"]}
  ]
}`

func compile(t *testing.T) (*predicate.Space, *rules.RuleSet) {
	t.Helper()
	space, err := predicate.ParseSchema([]byte(schemaYAML), "yaml")
	require.NoError(t, err)
	rs, err := rules.Parse([]byte(rulesJSON), "json", space)
	require.NoError(t, err)
	return space, rs
}

func TestEndToEnd(t *testing.T) {
	space, rs := compile(t)
	assert.Equal(t, 128, space.Width())
	assert.Equal(t, bitset.Multi, bitset.New(space.Width()).Kind())
	assert.Equal(t, 3, rs.Len())

	tests := []struct {
		name    string
		record  predicate.Record
		matched bool
	}{
		{"acme medium order", predicate.Record{"diner": "ACME", "order_size": 150}, true},
		{"served big group", predicate.Record{"big_group": true, "serve_count": 3, "order_size": 300, "heat": 250, "area": "bar"}, true},
		{"unserved big group", predicate.Record{"big_group": true, "serve_count": 0, "order_size": 300}, false},
		{"order too large", predicate.Record{"diner": "ACME", "order_size": 900}, false},
		{"hot patio", predicate.Record{"diner": "ACME", "order_size": 150, "heat": 250, "area": "patio"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := space.Extract(tt.record)
			state, err := space.EncodeRow(row)
			require.NoError(t, err)
			assert.True(t, state.Equal(space.Encode(tt.record)))

			assert.Equal(t, tt.matched, eval.Naive(rs, row))
			assert.Equal(t, tt.matched, eval.Mask(rs, state))
		})
	}
}

func TestEndToEndThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisStore, err := store.NewRedisStore(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	defer redisStore.Close()

	space, rs := compile(t)
	engine, err := runtime.NewEngine(space, rs, runtime.WithStore(redisStore, "verdicts"))
	require.NoError(t, err)

	events, err := redisStore.Subscribe(ctx, "events")
	require.NoError(t, err)
	defer events.Close()
	verdicts, err := redisStore.Subscribe(ctx, "verdicts")
	require.NoError(t, err)
	defer verdicts.Close()

	go engine.Run(ctx, events.Channel())

	records := []map[string]interface{}{
		{"diner": "ACME", "order_size": 150},
		{"diner": "ACME", "order_size": 900},
	}
	for _, rec := range records {
		require.NoError(t, redisStore.PublishRecord(ctx, "events", rec))
	}

	var got []runtime.Verdict
	for range records {
		select {
		case msg := <-verdicts.Channel():
			var v runtime.Verdict
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &v))
			got = append(got, v)
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for verdict")
		}
	}
	require.Len(t, got, 2)
	assert.True(t, got[0].Matched)
	assert.False(t, got[1].Matched)
	assert.Equal(t, "order_size", got[1].FailedRule)
	assert.Len(t, got[1].State, 128)

	counters, err := redisStore.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters["events"])
	assert.Equal(t, int64(1), counters[runtime.ResultMatched])
	assert.Equal(t, int64(1), counters[runtime.ResultFailed])
}

func TestGeneratedCorpusRoundTripsThroughDocument(t *testing.T) {
	cfg := harness.DefaultConfig()
	cfg.Events = 5000
	cfg.Rules = 16
	corpus, err := harness.Generate(cfg)
	require.NoError(t, err)

	// Rendering the generated rule set and compiling it again must not change
	// evaluation.
	doc := rules.FromRuleSet(corpus.Rules, corpus.Space)
	rs, err := doc.Compile(corpus.Space)
	require.NoError(t, err)
	assert.Equal(t, corpus.Rules.Fingerprint(), rs.Fingerprint())

	states := harness.EncodeAll(corpus.Rows, cfg.Width)
	assert.Empty(t, harness.Differential(rs, corpus.Rows, states))
	assert.Equal(t, eval.Count(corpus.Rules, states), eval.CountRows(rs, corpus.Rows))
}
