package pipeline

import (
	"context"
	"log/slog"

	"setbreak/internal/config"
	"setbreak/internal/logging"
	"setbreak/internal/scoring"
	"setbreak/internal/store"
)

// RescoreStore is the persistence surface Rescore needs.
type RescoreStore interface {
	AllAnalysisRuns(ctx context.Context, includeGarbage bool, fn func(store.AnalysisRun) error) error
	ReplaceRawScores(ctx context.Context, deltas []store.ScoreDelta) error
}

// RescoreSummary reports a rescore.
type RescoreSummary struct {
	Runs int
	// Changed counts runs whose raw scores moved.
	Changed int
}

// Rescore recomputes raw scores from the stored feature records with the
// current scoring weights. Effective scores are reset to the new raw values,
// so any calibration must be run again.
func Rescore(ctx context.Context, cfg *config.Config, st RescoreStore, logger *slog.Logger) (RescoreSummary, error) {
	logger = logging.NewComponentLogger(logger, "rescore")
	scorer := scoring.New(cfg.Scoring)

	var (
		summary RescoreSummary
		deltas  []store.ScoreDelta
	)
	// Collected first: the iterator holds the connection until it returns.
	err := st.AllAnalysisRuns(ctx, true, func(run store.AnalysisRun) error {
		scores := scorer.Score(run.Record)
		if scores != run.Raw {
			summary.Changed++
		}
		deltas = append(deltas, store.ScoreDelta{TrackID: run.TrackID, Scores: scores})
		return nil
	})
	if err != nil {
		return summary, err
	}
	summary.Runs = len(deltas)
	if len(deltas) == 0 {
		return summary, nil
	}
	if err := st.ReplaceRawScores(ctx, deltas); err != nil {
		return summary, err
	}
	logger.Info("rescore completed",
		logging.Int("runs", summary.Runs),
		logging.Int("changed", summary.Changed),
		logging.String(logging.FieldEventType, "rescore_completed"),
	)
	return summary, nil
}
