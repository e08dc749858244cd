package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"setbreak/internal/config"
	"setbreak/internal/decode"
	"setbreak/internal/engine"
	"setbreak/internal/pipeline"
	"setbreak/internal/preflight"
	"setbreak/internal/store"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		workers       int
		force         bool
		filter        string
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Extract features and jam scores for pending tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWriter(func(cfg *config.Config, st *store.Store, logger *slog.Logger) error {
				if !skipPreflight {
					if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
						return fmt.Errorf("preflight failed: %s", preflight.Summary(failed))
					}
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				orch := pipeline.New(cfg, st, decode.New(cfg, logger), engine.New(cfg), logger,
					pipeline.WithProgress(pipeline.NewProgress(cmd.ErrOrStderr(), logger)))
				summary, err := orch.Run(runCtx, pipeline.Options{Force: force, Filter: filter, Workers: workers})
				renderAnalyzeSummary(cmd, summary)
				if err != nil {
					return err
				}
				if summary.Aborted {
					fmt.Fprintln(cmd.OutOrStdout(), "Interrupted; committed chunks are kept and the next run resumes from there")
					return runCtx.Err()
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Worker count (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-analyze tracks that already have results")
	cmd.Flags().StringVar(&filter, "filter", "", "Only analyze paths containing this text")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and dependency checks")
	return cmd
}

func renderAnalyzeSummary(cmd *cobra.Command, s pipeline.Summary) {
	out := cmd.OutOrStdout()
	if s.Pending == 0 && !s.Aborted {
		fmt.Fprintln(out, "No pending tracks")
		return
	}
	fmt.Fprintln(out, renderPairs("Analysis", [][2]string{
		{"Run", s.RunID},
		{"Pending", formatCount(s.Pending)},
		{"Workers", strconv.Itoa(s.Workers)},
		{"Chunks committed", strconv.Itoa(s.Chunks)},
		{"Analyzed", formatCount(s.Analyzed)},
		{"Garbage", formatCount(s.Garbage)},
		{"Failed", formatCount(s.Failed)},
		{"Not started", formatCount(s.Skipped)},
		{"Elapsed", s.Elapsed.Round(1e6).String()},
	}))
	if len(s.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		reason := ""
		if f.Err != nil {
			reason = f.Err.Error()
		}
		rows = append(rows, []string{strconv.FormatInt(f.TrackID, 10), f.Stage, f.Kind, f.Path, reason})
	}
	fmt.Fprintln(out, renderTable("Failures", []string{"Track", "Stage", "Kind", "Path", "Error"}, rows,
		[]columnAlignment{alignRight}))
}
