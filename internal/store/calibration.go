package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CalibrationRows returns the calibration view of every non-garbage run whose
// track belongs to a show.
func (s *Store) CalibrationRows(ctx context.Context) ([]CalibrationRow, error) {
	var rows []CalibrationRow
	err := s.AllAnalysisRuns(ctx, false, func(run AnalysisRun) error {
		show := run.ShowKey()
		if show == "" {
			return nil
		}
		rows = append(rows, CalibrationRow{
			TrackID: run.TrackID,
			Show:    show,
			LUFS:    run.Record.LUFSIntegrated,
			Raw:     run.Raw,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordCalibration appends a calibration run to the history.
func (s *Store) RecordCalibration(ctx context.Context, rec CalibrationRecord) error {
	slopes := rec.Slopes
	if slopes == nil {
		slopes = map[string]float64{}
	}
	payload, err := json.Marshal(slopes)
	if err != nil {
		return storageErr("record calibration", fmt.Errorf("encode slopes: %w", err))
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var baseline sql.NullFloat64
	if rec.BaselineLUFS != nil {
		baseline = sql.NullFloat64{Float64: *rec.BaselineLUFS, Valid: true}
	}
	_, err = s.execWithRetry(ctx, "record calibration",
		`INSERT INTO calibration_runs (id, created_at, baseline_lufs, show_count, track_count, adjusted_count, slopes_json, reset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, formatTime(createdAt), baseline, rec.ShowCount, rec.TrackCount, rec.AdjustedCount, string(payload), rec.Reset,
	)
	return err
}

// LatestCalibration returns the most recent calibration run, or nil when
// calibration has never been applied.
func (s *Store) LatestCalibration(ctx context.Context) (*CalibrationRecord, error) {
	var (
		rec       CalibrationRecord
		createdAt string
		baseline  sql.NullFloat64
		slopes    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, baseline_lufs, show_count, track_count, adjusted_count, slopes_json, reset
		FROM calibration_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&rec.ID, &createdAt, &baseline, &rec.ShowCount, &rec.TrackCount, &rec.AdjustedCount, &slopes, &rec.Reset)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("latest calibration", err)
	}
	rec.CreatedAt = parseTimeString(createdAt)
	if baseline.Valid {
		v := baseline.Float64
		rec.BaselineLUFS = &v
	}
	if err := json.Unmarshal([]byte(slopes), &rec.Slopes); err != nil {
		return nil, storageErr("latest calibration", fmt.Errorf("decode slopes: %w", err))
	}
	return &rec, nil
}
