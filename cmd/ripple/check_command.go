package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripple/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks against the configured services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.consoleLogger()
			if err != nil {
				return err
			}

			report := preflight.Run(cmd.Context(), cfg, logger)

			rows := make([][]string, 0, len(report.Checks))
			for _, check := range report.Checks {
				status := "ok"
				if !check.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{check.Name, status, check.Detail})
			}
			cmd.Println(renderTable([]string{"CHECK", "STATUS", "DETAIL"}, rows, nil))

			if !report.Passed() {
				return fmt.Errorf("preflight failed")
			}
			return nil
		},
	}
}
