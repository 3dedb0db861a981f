package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/lint"
	"github.com/cwbudde/algo-opgraph/internal/mermaid"
)

func newGraphCmd(opts *options) *cobra.Command {
	var overlay bool
	cmd := &cobra.Command{
		Use:   "graph DOCUMENT",
		Short: "Export a graph as a Mermaid flowchart",
		Long: `Prints a Mermaid flowchart (flowchart LR) of the document's graph.
With --overlay, cycle members and nodes with lint findings are highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := opts.load(cmd); err != nil {
				return err
			}

			_, g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			var ov *mermaid.Overlay

			if overlay {
				ov = lintOverlay(g)
			}

			fmt.Fprint(cmd.OutOrStdout(), mermaid.Generate(g, ov))

			return nil
		},
	}
	cmd.Flags().BoolVar(&overlay, "overlay", false, "highlight cycles and nodes with lint findings")

	return cmd
}

func lintOverlay(g *graph.Graph) *mermaid.Overlay {
	ov := &mermaid.Overlay{}

	for _, c := range lint.Cycles(g) {
		ov.Cycle = append(ov.Cycle, graph.NodeIDs(c.Nodes)...)
	}

	errs := &graph.BuildErrors{}
	lint.New(lint.WithChecks(lint.AllChecks &^ lint.CheckCycles)).Validate(g, errs)

	for _, e := range errs.All() {
		ov.Failed = append(ov.Failed, e.Nodes...)
	}

	return ov
}
