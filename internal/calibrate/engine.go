package calibrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"setbreak/internal/config"
	"setbreak/internal/logging"
	"setbreak/internal/scoring"
	"setbreak/internal/store"
)

// Store is the persistence surface calibration needs.
type Store interface {
	CalibrationRows(ctx context.Context) ([]store.CalibrationRow, error)
	UpdateScores(ctx context.Context, deltas []store.ScoreDelta) error
	ResetScores(ctx context.Context) (int64, error)
	RecordCalibration(ctx context.Context, rec store.CalibrationRecord) error
}

// Engine plans and applies calibration against a store.
type Engine struct {
	store  Store
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a calibration engine from the [calibration] section.
func New(cfg *config.Config, st Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		opts:   OptionsFromConfig(cfg.Calibration),
		logger: logging.NewComponentLogger(logger, "calibrate"),
		now:    time.Now,
	}
}

// Run fits the slopes over the stored non-garbage runs and, unless dryRun is
// set, writes the adjusted effective scores and records the calibration.
func (e *Engine) Run(ctx context.Context, dryRun bool) (Result, error) {
	rows, err := e.store.CalibrationRows(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Plan(rows, e.opts)
	res.DryRun = dryRun

	attrs := []logging.Attr{
		logging.Int("tracks", res.Tracks),
		logging.Int("shows", res.Shows()),
		logging.Int("points", res.Points),
		logging.Int("adjusted", res.Adjusted),
	}
	if res.Baseline != nil {
		attrs = append(attrs, logging.Float64("baseline_lufs", *res.Baseline))
	}
	for i, name := range scoring.Names {
		if res.Applied[i] {
			attrs = append(attrs, logging.Float64("slope_"+name, res.Slopes[i]))
		}
	}

	if len(rows) == 0 {
		logging.WarnWithContext(e.logger, "no calibration data", "calibration_empty",
			logging.String(logging.FieldErrorHint, "analyze tracks with parsed show dates first"),
			logging.String(logging.FieldImpact, "scores left uncalibrated"),
		)
		return res, nil
	}
	if dryRun {
		e.logger.Info("calibration planned (dry run)", logging.Args(append(attrs, logging.String(logging.FieldEventType, "calibration_planned"))...)...)
		return res, nil
	}

	if err := e.store.UpdateScores(ctx, res.Deltas); err != nil {
		return res, err
	}
	res.ID = uuid.NewString()
	if err := e.store.RecordCalibration(ctx, store.CalibrationRecord{
		ID:            res.ID,
		CreatedAt:     e.now(),
		BaselineLUFS:  res.Baseline,
		ShowCount:     res.Shows(),
		TrackCount:    res.Tracks,
		AdjustedCount: res.Adjusted,
		Slopes:        res.SlopeMap(),
	}); err != nil {
		return res, err
	}
	e.logger.Info("calibration applied", logging.Args(append(attrs,
		logging.String(logging.FieldEventType, "calibration_applied"),
		logging.String(logging.FieldRunID, res.ID),
	)...)...)
	return res, nil
}

// Reset restores every effective score to its raw value and records the
// reset. It returns the number of runs touched.
func (e *Engine) Reset(ctx context.Context) (int64, error) {
	n, err := e.store.ResetScores(ctx)
	if err != nil {
		return 0, err
	}
	id := uuid.NewString()
	if err := e.store.RecordCalibration(ctx, store.CalibrationRecord{
		ID:         id,
		CreatedAt:  e.now(),
		TrackCount: int(n),
		Reset:      true,
	}); err != nil {
		return n, err
	}
	e.logger.Info("calibration reset",
		logging.String(logging.FieldEventType, "calibration_reset"),
		logging.String(logging.FieldRunID, id),
		logging.Int64("runs", n),
	)
	return n, nil
}
