// logicbits/cmd/logicbits/check.go

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rgehrsitz/logicbits/pkg/eval"
	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/rules"
)

type checkOptions struct {
	schema   string
	rules    string
	records  string
	optimize bool
	emit     bool
}

// CheckResult is the json output of the check command.
type CheckResult struct {
	Predicates  int             `json:"predicates"`
	Width       int             `json:"width"`
	Rules       int             `json:"rules"`
	Terms       int             `json:"terms"`
	Fingerprint string          `json:"fingerprint"`
	Degenerate  []string        `json:"degenerate,omitempty"`
	Removed     int             `json:"duplicates_removed"`
	Records     []RecordVerdict `json:"records,omitempty"`
	Document    *rules.Document `json:"document,omitempty"`
}

// RecordVerdict is one record from --records evaluated by both evaluators.
type RecordVerdict struct {
	Index      int    `json:"index"`
	State      string `json:"state"`
	Naive      bool   `json:"naive"`
	Mask       bool   `json:"mask"`
	FailedRule string `json:"failed_rule,omitempty"`
}

func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a schema and rule file",
		Long: `Load a predicate schema and a rule document, resolve every name and
report the compiled rule set. Terms that require and forbid the same predicate
are listed. With --records, each record in a JSON array is evaluated by both
evaluators.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.schema, "schema", "", "predicate schema file (json or yaml)")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "rule document file (json or yaml)")
	cmd.Flags().StringVar(&opts.records, "records", "", "JSON array of records to evaluate")
	cmd.Flags().BoolVar(&opts.optimize, "optimize", false, "drop duplicate terms before reporting")
	cmd.Flags().BoolVar(&opts.emit, "emit", false, "print the compiled rule document (yaml, or a document field with --format json)")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("rules")

	return cmd
}

func runCheck(rootOpts *RootOptions, opts *checkOptions, cmd *cobra.Command) error {
	space, err := predicate.LoadSchema(opts.schema)
	if err != nil {
		return err
	}
	rs, err := rules.Load(opts.rules, space)
	if err != nil {
		return err
	}

	result := CheckResult{Predicates: space.Len(), Width: space.Width()}
	if opts.optimize {
		rs, result.Removed = rules.Optimize(rs)
	}
	result.Rules = rs.Len()
	result.Terms = rs.Terms()
	result.Fingerprint = fmt.Sprintf("%016x", rs.Fingerprint())
	for _, ref := range rs.Degenerate() {
		result.Degenerate = append(result.Degenerate,
			fmt.Sprintf("%s term %d", rs.Rules()[ref.Rule].Name, ref.Term))
	}

	if opts.records != "" {
		result.Records, err = evaluateRecords(opts.records, space, rs)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		if opts.emit {
			result.Document = rules.FromRuleSet(rs, space)
		}
		return writeJSON(out, result)
	}
	if err := renderCheck(out, result); err != nil {
		return err
	}
	if opts.emit {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rules.FromRuleSet(rs, space)); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}

func evaluateRecords(path string, space *predicate.Space, rs *rules.RuleSet) ([]RecordVerdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "failed to read records file", err, map[string]interface{}{"path": path})
	}
	var records []predicate.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, logging.NewError(logging.ErrorTypeParse, "invalid records file", err, map[string]interface{}{"path": path})
	}

	verdicts := make([]RecordVerdict, len(records))
	for i, rec := range records {
		row := space.Extract(rec)
		state, err := space.EncodeRow(row)
		if err != nil {
			return nil, err
		}
		v := RecordVerdict{
			Index: i,
			State: state.String(),
			Naive: eval.Naive(rs, row),
			Mask:  eval.Mask(rs, state),
		}
		if idx := eval.FirstFailing(rs, state); idx >= 0 {
			v.FailedRule = rs.Rules()[idx].Name
		}
		verdicts[i] = v
	}
	return verdicts, nil
}

func renderCheck(w io.Writer, r CheckResult) error {
	lines := []string{
		fmt.Sprintf("predicates: %d (width %d)", r.Predicates, r.Width),
		fmt.Sprintf("rules: %d (%d terms)", r.Rules, r.Terms),
		fmt.Sprintf("fingerprint: %s", r.Fingerprint),
	}
	if r.Removed > 0 {
		lines = append(lines, fmt.Sprintf("duplicate terms removed: %d", r.Removed))
	}
	for _, d := range r.Degenerate {
		lines = append(lines, "never matches: "+d)
	}
	for _, v := range r.Records {
		line := fmt.Sprintf("record %d: state=%s naive=%t mask=%t", v.Index, v.State, v.Naive, v.Mask)
		if v.FailedRule != "" {
			line += " failed=" + v.FailedRule
		}
		lines = append(lines, line)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
