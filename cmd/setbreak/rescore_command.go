package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"setbreak/internal/config"
	"setbreak/internal/pipeline"
	"setbreak/internal/store"
)

func newRescoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Recompute jam scores from stored features with the current weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				summary, err := pipeline.Rescore(cmd.Context(), cfg, st, logger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Rescored %s tracks (%s changed)\n", formatCount(summary.Runs), formatCount(summary.Changed))
				if summary.Runs > 0 {
					fmt.Fprintln(out, "Calibration was reset; run `setbreak calibrate` to re-apply it")
				}
				return nil
			})
		},
	}
}
