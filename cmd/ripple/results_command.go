package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ripple/internal/results"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect and export pipeline results",
	}
	cmd.AddCommand(newResultsListCommand(ctx))
	cmd.AddCommand(newResultsExportCommand(ctx))
	return cmd
}

func withStore(ctx *commandContext, fn func(*results.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := results.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// latestRunID resolves an explicit run ID or falls back to the most recent
// run.
func latestRunID(cmd *cobra.Command, store *results.Store, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	runs, err := store.ListRuns(cmd.Context(), 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded yet")
	}
	return runs[0].ID, nil
}

func newResultsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *results.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					summary, err := store.Summary(cmd.Context(), run.ID)
					if err != nil {
						return err
					}
					finished := "running"
					if run.FinishedAt != nil {
						finished = run.FinishedAt.Format(time.RFC3339)
					}
					rows = append(rows, []string{
						run.ID,
						run.Pipeline,
						run.StartedAt.Format(time.RFC3339),
						finished,
						strconv.Itoa(summary[results.StatusPredicted]),
						strconv.Itoa(summary[results.StatusSkipped]),
						strconv.Itoa(summary[results.StatusFailed]),
					})
				}
				headers := []string{"RUN", "PIPELINE", "STARTED", "FINISHED", "PREDICTED", "SKIPPED", "FAILED"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
				cmd.Println(renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newResultsExportCommand(ctx *commandContext) *cobra.Command {
	var (
		runID  string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a run's predictions as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *results.Store) error {
				id, err := latestRunID(cmd, store, runID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if output != "" {
					file, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create output file: %w", err)
					}
					defer file.Close()
					out = file
				}

				exportFormat := format
				if exportFormat == "" {
					exportFormat = ctx.configValue().Output.Format
				}
				switch exportFormat {
				case "csv":
					return store.ExportCSV(cmd.Context(), out, id)
				case "json":
					return store.ExportJSON(cmd.Context(), out, id)
				default:
					return fmt.Errorf("unknown export format %q", exportFormat)
				}
			})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (defaults to the most recent run)")
	cmd.Flags().StringVar(&format, "format", "", "Export format: csv or json (defaults to output.format)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	return cmd
}
