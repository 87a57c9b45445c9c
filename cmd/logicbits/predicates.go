// logicbits/cmd/logicbits/predicates.go

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rgehrsitz/logicbits/pkg/predicate"
)

// PredicateEntry is one row of the predicates listing.
type PredicateEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Mask  string `json:"mask"`
}

func NewPredicatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predicates <schema-file>",
		Short: "List the predicates of a schema with their bit indices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space, err := predicate.LoadSchema(args[0])
			if err != nil {
				return err
			}

			entries := make([]PredicateEntry, space.Len())
			for i, name := range space.Names() {
				mask, err := space.Mask(name)
				if err != nil {
					return err
				}
				entries[i] = PredicateEntry{Index: i, Name: name, Mask: fmt.Sprintf("%#x", mask.Words())}
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tNAME")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\n", e.Index, e.Name)
			}
			return tw.Flush()
		},
	}
}
