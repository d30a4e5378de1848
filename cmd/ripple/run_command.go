package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripple/internal/pipeline"
	"ripple/internal/results"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the pipeline over the configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.runLogger()
			if err != nil {
				return err
			}

			runner, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			outcome, runErr := runner.Run(cmd.Context())
			if outcome != nil {
				printSummary(cmd, outcome)
			}
			return runErr
		},
	}
}

func printSummary(cmd *cobra.Command, outcome *pipeline.Outcome) {
	rows := [][]string{}
	order := []results.Status{
		results.StatusPredicted,
		results.StatusPreprocessed,
		results.StatusSkipped,
		results.StatusFailed,
		results.StatusPending,
	}
	for _, status := range order {
		if count := outcome.Summary[status]; count > 0 {
			rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
		}
	}
	cmd.Println("run " + outcome.RunID)
	cmd.Println(renderTable([]string{"STATUS", "COUNT"}, rows, []columnAlignment{alignLeft, alignRight}))
}
