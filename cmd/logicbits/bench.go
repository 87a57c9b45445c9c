// logicbits/cmd/logicbits/bench.go

package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"rgehrsitz/logicbits/pkg/harness"
	"rgehrsitz/logicbits/pkg/logging"
)

type benchOptions struct {
	config     harness.Config
	noProgress bool
	strict     bool
}

// NewBenchCommand runs the differential harness.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &benchOptions{config: harness.DefaultConfig()}
	cfg := &opts.config

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Generate a random corpus and compare the naive and mask evaluators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(rootOpts, opts, cmd)
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Predicates, "predicates", cfg.Predicates, "number of predicates")
	f.IntVar(&cfg.Rules, "rules", cfg.Rules, "number of rules")
	f.IntVar(&cfg.MinTerms, "min-terms", cfg.MinTerms, "minimum terms per rule")
	f.IntVar(&cfg.MaxTerms, "max-terms", cfg.MaxTerms, "maximum terms per rule")
	f.IntVar(&cfg.MinRequired, "min-required", cfg.MinRequired, "minimum required predicates per term")
	f.IntVar(&cfg.MaxRequired, "max-required", cfg.MaxRequired, "maximum required predicates per term")
	f.IntVar(&cfg.MinForbidden, "min-forbidden", cfg.MinForbidden, "minimum forbidden predicates per term")
	f.IntVar(&cfg.MaxForbidden, "max-forbidden", cfg.MaxForbidden, "maximum forbidden predicates per term")
	f.IntVar(&cfg.Events, "events", cfg.Events, "number of events")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.IntVar(&cfg.Width, "width", cfg.Width, "bitset width in bits")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "goroutines for the parallel pass")
	f.IntVar(&cfg.Samples, "samples", cfg.Samples, "events printed before timing")
	f.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	f.BoolVar(&opts.strict, "strict", true, "fail when the evaluators disagree")

	return cmd
}

func runBench(rootOpts *RootOptions, opts *benchOptions, cmd *cobra.Command) error {
	var progress harness.Progress
	if !opts.noProgress && rootOpts.Format == "text" {
		bar := progressbar.NewOptions(harness.Phases*opts.config.Events,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("evaluating"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		progress = bar
	}

	report, err := harness.Run(cmd.Context(), opts.config, progress)
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else if err := report.Render(cmd.OutOrStdout()); err != nil {
		return err
	}

	if opts.strict && !report.Agree() {
		return logging.NewError(logging.ErrorTypeRuntime, "evaluators disagree",
			fmt.Errorf("%d mismatching events", len(report.Mismatches)), nil)
	}
	return nil
}
