package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/lint"
)

func newOrderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "order DOCUMENT",
		Short: "Print the execution order of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := opts.load(cmd); err != nil {
				return err
			}

			_, g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			order, err := graph.DependencyOrder(g)
			if errors.Is(err, graph.ErrCycle) {
				for _, c := range lint.Cycles(g) {
					names := make([]string, len(c.Nodes))

					for i, n := range c.Nodes {
						names[i] = n.InstanceName()
					}

					fmt.Fprintf(cmd.OutOrStdout(), "cycle: %s\n", strings.Join(names, ", "))
				}

				return err
			}

			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNODE\tCLASS\tID")

			for i, n := range order {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, n.InstanceName(), n.Class().Name, n.ID())
			}

			return tw.Flush()
		},
	}
}
