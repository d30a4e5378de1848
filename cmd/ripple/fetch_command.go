package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripple/internal/butler"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		tract    int
		patch    int
		band     string
		visit    int64
		detector int
	)

	cmd := &cobra.Command{
		Use:   "fetch <deep_coadd|object_catalog|calexp>",
		Short: "Fetch a single dataset for debugging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.consoleLogger()
			if err != nil {
				return err
			}

			var req butler.Request
			switch args[0] {
			case string(butler.KindDeepCoadd):
				req = butler.DeepCoadd(tract, patch, band)
			case string(butler.KindObjectCatalog):
				req = butler.ObjectCatalog(tract, patch, band)
			case string(butler.KindCalExp):
				req = butler.CalExp(visit, detector)
			default:
				return fmt.Errorf("unknown dataset type %q", args[0])
			}

			access, err := butler.NewAccessConfig(cfg.Data, cfg.Fetch)
			if err != nil {
				return err
			}
			client, err := butler.NewClient(access,
				butler.WithPolicy(butler.PolicyFromConfig(cfg.Fetch)),
				butler.WithLogger(logger))
			if err != nil {
				return err
			}

			result, err := client.Fetch(cmd.Context(), req)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"request", req.String()},
				{"band", result.Band},
			}
			if len(result.Pixels) > 0 {
				rows = append(rows,
					[]string{"shape", fmt.Sprintf("%v", result.Shape)},
					[]string{"pixels", fmt.Sprintf("%d", result.PixelCount())})
			}
			if result.BBox != nil {
				rows = append(rows, []string{"bbox", fmt.Sprintf("%dx%d at (%d, %d)",
					result.BBox.Width, result.BBox.Height, result.BBox.X0, result.BBox.Y0)})
			}
			if len(result.Rows) > 0 {
				rows = append(rows, []string{"catalog rows", fmt.Sprintf("%d", len(result.Rows))})
			}
			cmd.Println(renderTable([]string{"FIELD", "VALUE"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVar(&tract, "tract", 0, "Tract number")
	cmd.Flags().IntVar(&patch, "patch", 0, "Patch number")
	cmd.Flags().StringVar(&band, "band", "", "Filter band (u, g, r, i, z, y)")
	cmd.Flags().Int64Var(&visit, "visit", 0, "Visit number (calexp)")
	cmd.Flags().IntVar(&detector, "detector", 0, "Detector number (calexp)")
	return cmd
}
