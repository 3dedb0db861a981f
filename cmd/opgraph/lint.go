package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-opgraph/engine/builder"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/lint"
)

func newLintCmd(opts *options) *cobra.Command {
	var (
		checks []string
		build  bool
	)
	cmd := &cobra.Command{
		Use:   "lint DOCUMENT...",
		Short: "Validate graph documents",
		Long: `Runs the graph checks on every document and reports all findings.
With --build the graph is also compiled so factory failures show up.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mask, err := parseChecks(checks)
			if err != nil {
				return err
			}

			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			types := data.NewBuiltinRegistry()
			linter := lint.New(lint.WithChecks(mask), lint.WithTypes(types))
			b := builder.New(builder.WithLogger(logger))

			failed := 0

			for _, path := range args {
				errs := &graph.BuildErrors{}

				_, g, err := loadGraph(path)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)

					failed++

					continue
				}

				ok := linter.Validate(g, errs)
				if ok && build {
					_, res := b.Build(builder.BuildParams{Graph: g, Settings: cfg.Settings(), Types: types})
					errs.Append(&res.Errors)

					ok = res.OK()
				}

				if ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)

					continue
				}

				failed++

				for _, e := range errs.All() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, e)
				}
			}

			if failed > 0 {
				return fmt.Errorf("lint: %d of %d documents failed", failed, len(args))
			}

			return nil
		},
	}
	cmd.Flags().StringSliceVar(&checks, "check", []string{"all"},
		"checks to run: all, edge-data-types, vertices, duplicate-inputs, cycles, data-types")
	cmd.Flags().BoolVar(&build, "build", false, "also build the graph")

	return cmd
}

func parseChecks(names []string) (lint.Check, error) {
	var mask lint.Check

	for _, name := range names {
		c, ok := lint.ParseCheck(strings.TrimSpace(name))
		if !ok {
			return 0, fmt.Errorf("lint: unknown check %q", name)
		}

		mask |= c
	}

	return mask, nil
}
