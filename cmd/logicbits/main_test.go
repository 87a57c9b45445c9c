// logicbits/cmd/logicbits/main_test.go

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/logicbits/pkg/harness"
	"rgehrsitz/logicbits/pkg/logging"
)

const schemaYAML = `
predicates:
  - name: DINER_ACME
    kind: equals
    field: diner
    value: ACME
  - name: BIG_GROUP
    kind: flag
    field: big_group
  - kind: thresholds
    prefix: HEAT_
    field: heat
    thresholds: [100, 600]
`

const rulesYAML = `
rules:
  - name: acme
    terms:
      - all: [DINER_ACME]
      - all: [DINER_ACME]
  - name: warm
    terms:
      - all: [HEAT_100]
        none: [HEAT_600]
  - name: impossible
    terms:
      - all: [BIG_GROUP]
        none: [BIG_GROUP]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "predicates", "schema.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestPredicates(t *testing.T) {
	schema := writeFile(t, "schema.yaml", schemaYAML)

	out, err := execute(t, "predicates", schema)
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")
	assert.Contains(t, out, "0      DINER_ACME")
	assert.Contains(t, out, "3      HEAT_600")

	out, err = execute(t, "--format", "json", "predicates", schema)
	require.NoError(t, err)
	var entries []PredicateEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "HEAT_100", entries[2].Name)
	assert.Equal(t, 2, entries[2].Index)
}

func TestPredicatesMissingFile(t *testing.T) {
	_, err := execute(t, "predicates", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, logging.IsType(err, logging.ErrorTypeConfig))
}

func TestCheck(t *testing.T) {
	schema := writeFile(t, "schema.yaml", schemaYAML)
	ruleFile := writeFile(t, "rules.yaml", rulesYAML)
	records := writeFile(t, "records.json", `[
		{"diner": "ACME", "heat": 150},
		{"diner": "ACME", "heat": 700, "big_group": true}
	]`)

	out, err := execute(t, "check", "--schema", schema, "--rules", ruleFile, "--records", records)
	require.NoError(t, err)
	assert.Contains(t, out, "predicates: 4 (width 64)")
	assert.Contains(t, out, "rules: 3 (4 terms)")
	assert.Contains(t, out, "never matches: impossible term 0")
	assert.Contains(t, out, "record 0: state=")
	assert.Contains(t, out, "naive=false mask=false failed=impossible")
	assert.Contains(t, out, "failed=warm")
}

func TestCheckOptimizeJSON(t *testing.T) {
	schema := writeFile(t, "schema.yaml", schemaYAML)
	ruleFile := writeFile(t, "rules.yaml", rulesYAML)

	out, err := execute(t, "--format", "json", "check", "--schema", schema, "--rules", ruleFile, "--optimize")
	require.NoError(t, err)

	var result CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 3, result.Terms)
	assert.Len(t, result.Fingerprint, 16)
	assert.Equal(t, []string{"impossible term 0"}, result.Degenerate)
}

func TestCheckEmit(t *testing.T) {
	schema := writeFile(t, "schema.yaml", schemaYAML)
	ruleFile := writeFile(t, "rules.yaml", rulesYAML)

	out, err := execute(t, "check", "--schema", schema, "--rules", ruleFile, "--emit")
	require.NoError(t, err)
	assert.Contains(t, out, "- name: warm")
	assert.Contains(t, out, "none:")
}

func TestCheckEmitJSON(t *testing.T) {
	schema := writeFile(t, "schema.yaml", schemaYAML)
	ruleFile := writeFile(t, "rules.yaml", rulesYAML)

	out, err := execute(t, "--format", "json", "check", "--schema", schema, "--rules", ruleFile, "--emit")
	require.NoError(t, err)

	var result CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Document)
	require.Len(t, result.Document.Rules, 3)
	assert.Equal(t, "warm", result.Document.Rules[1].Name)
	assert.Equal(t, []string{"HEAT_600"}, result.Document.Rules[1].Terms[0].None)

	out, err = execute(t, "--format", "json", "check", "--schema", schema, "--rules", ruleFile)
	require.NoError(t, err)
	assert.NotContains(t, out, `"document"`)
}

func TestCheckUnknownPredicate(t *testing.T) {
	schema := writeFile(t, "schema.yaml", schemaYAML)
	ruleFile := writeFile(t, "rules.yaml", `
rules:
  - name: r
    terms:
      - all: [NOPE]
`)
	_, err := execute(t, "check", "--schema", schema, "--rules", ruleFile)
	assert.True(t, logging.IsType(err, logging.ErrorTypeResolve))
	assert.Contains(t, err.Error(), "NOPE")
}

func TestCheckRequiresFlags(t *testing.T) {
	_, err := execute(t, "check")
	assert.Error(t, err)
}

func TestBench(t *testing.T) {
	out, err := execute(t, "bench", "--events", "2000", "--rules", "8", "--workers", "2", "--samples", "3", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "sample 0:")
	assert.Contains(t, out, "speedup (mask vs naive):")
	assert.Contains(t, out, "mismatches: 0")
	assert.Contains(t, out, "timings over 2000 events, 8 rules")
}

func TestBenchProgressGoesToStderr(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"bench", "--events", "500", "--rules", "4", "--samples", "0"})

	require.NoError(t, cmd.Execute())
	assert.NotContains(t, out.String(), "evaluating")
	assert.Contains(t, out.String(), "events matched:")
}

func TestBenchJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "bench", "--events", "1000", "--rules", "4", "--seed", "7")
	require.NoError(t, err)

	var report harness.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1000, report.Events)
	assert.Equal(t, 4, report.Rules)
	assert.True(t, report.Agree())
}

func TestBenchInvalidConfig(t *testing.T) {
	_, err := execute(t, "bench", "--predicates", "100", "--no-progress")
	assert.True(t, logging.IsType(err, logging.ErrorTypeConfig))
}
