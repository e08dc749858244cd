package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"setbreak/internal/calibrate"
	"setbreak/internal/config"
	"setbreak/internal/scoring"
	"setbreak/internal/store"
)

func newCalibrateCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		reset  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Remove recording-loudness bias from the jam scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun && reset {
				return fmt.Errorf("--dry-run and --reset cannot be combined")
			}
			return ctx.withWriter(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				eng := calibrate.New(cfg, st, logger)
				if reset {
					n, err := eng.Reset(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Restored raw scores for %s tracks\n", formatCount(int(n)))
					return nil
				}

				res, err := eng.Run(cmd.Context(), dryRun)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, calibrationView(res))
				}
				renderCalibration(cmd, res)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the fitted adjustment without writing scores")
	cmd.Flags().BoolVar(&reset, "reset", false, "Restore every score to its uncalibrated value")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type calibrationJSON struct {
	ID          string             `json:"id,omitempty"`
	DryRun      bool               `json:"dry_run"`
	Baseline    *float64           `json:"baseline_lufs"`
	Tracks      int                `json:"tracks"`
	Points      int                `json:"points"`
	Adjusted    int                `json:"adjusted"`
	ShowMedians map[string]float64 `json:"show_medians"`
	Slopes      map[string]float64 `json:"slopes"`
}

func calibrationView(res calibrate.Result) calibrationJSON {
	return calibrationJSON{
		ID:          res.ID,
		DryRun:      res.DryRun,
		Baseline:    res.Baseline,
		Tracks:      res.Tracks,
		Points:      res.Points,
		Adjusted:    res.Adjusted,
		ShowMedians: res.ShowMedians,
		Slopes:      res.SlopeMap(),
	}
}

func renderCalibration(cmd *cobra.Command, res calibrate.Result) {
	out := cmd.OutOrStdout()
	if res.Baseline == nil {
		fmt.Fprintln(out, "No loudness data with show dates; scores left unchanged")
		return
	}
	title := "Calibration"
	if res.DryRun {
		title = "Calibration (dry run)"
	}
	fmt.Fprintln(out, renderPairs(title, [][2]string{
		{"Baseline", formatOptional(res.Baseline, "LUFS")},
		{"Shows", strconv.Itoa(res.Shows())},
		{"Tracks", formatCount(res.Tracks)},
		{"Adjusted", formatCount(res.Adjusted)},
	}))

	rows := make([][]string, 0, scoring.Count)
	for i, name := range scoring.Names {
		rows = append(rows, []string{name, strconv.FormatFloat(res.Slopes[i], 'f', 3, 64), yesNo(res.Applied[i])})
	}
	fmt.Fprintln(out, renderTable("Slopes (points per LU)", []string{"Score", "Slope", "Applied"}, rows,
		[]columnAlignment{alignLeft, alignRight}))

	shows := make([]string, 0, len(res.ShowMedians))
	for show := range res.ShowMedians {
		shows = append(shows, show)
	}
	sort.Strings(shows)
	showRows := make([][]string, 0, len(shows))
	for _, show := range shows {
		median := res.ShowMedians[show]
		showRows = append(showRows, []string{show, formatOptional(&median, "LUFS")})
	}
	fmt.Fprintln(out, renderTable("Show loudness", []string{"Show", "Median"}, showRows,
		[]columnAlignment{alignLeft, alignRight}))
}
