package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"setbreak/internal/audio"
	"setbreak/internal/engine"
	"setbreak/internal/features"
	"setbreak/internal/scoring"
	"setbreak/internal/services"
)

// runColumns is the analysis_runs column order used for inserts and reads.
var runColumns = sync.OnceValue(func() []string {
	cols := []string{"track_id", "run_id", "quality", "analyzed_at"}
	cols = append(cols, features.Columns()...)
	cols = append(cols, scoreColumns("raw_")...)
	cols = append(cols, scoreColumns("")...)
	return cols
})

var insertRunQuery = sync.OnceValue(func() string {
	cols := runColumns()
	return fmt.Sprintf("INSERT INTO analysis_runs (%s) VALUES (%s)",
		strings.Join(cols, ", "), makePlaceholders(len(cols)))
})

var selectRunQuery = sync.OnceValue(func() string {
	cols := runColumns()
	qualified := make([]string, len(cols))
	for i, c := range cols {
		qualified[i] = "a." + c
	}
	return "SELECT " + strings.Join(qualified, ", ") + ", t.band, t.show_date FROM analysis_runs a JOIN tracks t ON t.id = a.track_id"
})

// CommitChunk persists a chunk of analysis results in one transaction. Each
// run replaces the track's previous row and detail rows. Either every run is
// stored or none is.
func (s *Store) CommitChunk(ctx context.Context, runs []AnalysisRun) error {
	if len(runs) == 0 {
		return nil
	}
	return s.inTx(ctx, "commit chunk", func(tx *sql.Tx) error {
		insert, err := tx.PrepareContext(ctx, insertRunQuery())
		if err != nil {
			return fmt.Errorf("prepare run insert: %w", err)
		}
		defer insert.Close()

		for i := range runs {
			run := &runs[i]
			if err := deleteAnalysis(ctx, tx, run.TrackID); err != nil {
				return err
			}
			analyzedAt := run.AnalyzedAt
			if analyzedAt.IsZero() {
				analyzedAt = time.Now()
			}
			args := make([]any, 0, len(runColumns()))
			args = append(args, run.TrackID, run.RunID, string(run.Quality), formatTime(analyzedAt))
			args = append(args, run.Record.Values()...)
			args = append(args, scoreValues(run.Raw)...)
			args = append(args, scoreValues(run.Scores)...)
			if _, err := insert.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert run for track %d: %w", run.TrackID, err)
			}
			if err := insertDetails(ctx, tx, run.TrackID, run.Details); err != nil {
				return fmt.Errorf("insert details for track %d: %w", run.TrackID, err)
			}
		}
		return nil
	})
}

func insertDetails(ctx context.Context, tx *sql.Tx, trackID int64, d features.Details) error {
	for i, c := range d.Chords {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO track_chords (track_id, seq, label, start_time, duration, confidence) VALUES (?, ?, ?, ?, ?, ?)",
			trackID, i, c.Label, c.Start, c.Duration, c.Confidence,
		); err != nil {
			return err
		}
	}
	for i, seg := range d.Segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO track_segments (track_id, seq, label, start_time, end_time, energy, spectral_centroid, zcr, dynamic_range)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trackID, i, seg.Label, seg.Start, seg.End, seg.Energy, seg.Centroid, seg.ZCR, seg.DynamicRange,
		); err != nil {
			return err
		}
	}
	for i, p := range d.Tension {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO track_tension_points (track_id, seq, time, tension, change_type) VALUES (?, ?, ?, ?, ?)",
			trackID, i, p.Time, p.Value, p.Change,
		); err != nil {
			return err
		}
	}
	for i, tr := range d.Transitions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO track_transitions (track_id, seq, time, kind, strength, duration) VALUES (?, ?, ?, ?, ?, ?)",
			trackID, i, tr.Time, tr.Kind, tr.Strength, tr.Duration,
		); err != nil {
			return err
		}
	}
	return nil
}

func scanRun(scanner rowScanner) (AnalysisRun, error) {
	var (
		run            AnalysisRun
		quality, at    string
		raw, eff       [scoring.Count]float64
		band, showDate sql.NullString
	)
	targets := make([]any, 0, len(runColumns())+2)
	targets = append(targets, &run.TrackID, &run.RunID, &quality, &at)
	targets = append(targets, run.Record.ScanTargets()...)
	targets = append(targets, scoreTargets(&raw)...)
	targets = append(targets, scoreTargets(&eff)...)
	targets = append(targets, &band, &showDate)
	if err := scanner.Scan(targets...); err != nil {
		return AnalysisRun{}, err
	}
	run.Quality = audio.Quality(quality)
	run.AnalyzedAt = parseTimeString(at)
	fillScores(&run.Raw, &raw)
	fillScores(&run.Scores, &eff)
	run.Band = band.String
	run.ShowDate = showDate.String
	return run, nil
}

// AnalysisByTrack returns the stored analysis for a track including its
// detail rows. A track without analysis yields services.ErrNotFound.
func (s *Store) AnalysisByTrack(ctx context.Context, trackID int64) (*AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx, selectRunQuery()+" WHERE a.track_id = ?", trackID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "analysis", fmt.Sprintf("no analysis for track %d", trackID), nil)
	}
	if err != nil {
		return nil, storageErr("analysis", err)
	}
	if run.Details, err = s.details(ctx, trackID); err != nil {
		return nil, storageErr("analysis details", err)
	}
	return &run, nil
}

func (s *Store) details(ctx context.Context, trackID int64) (features.Details, error) {
	var d features.Details
	err := queryEach(ctx, s.db,
		"SELECT label, start_time, duration, confidence FROM track_chords WHERE track_id = ? ORDER BY seq",
		[]any{trackID}, func(r rowScanner) error {
			var c engine.Chord
			var conf sql.NullFloat64
			if err := r.Scan(&c.Label, &c.Start, &c.Duration, &conf); err != nil {
				return err
			}
			c.Confidence = conf.Float64
			d.Chords = append(d.Chords, c)
			return nil
		})
	if err != nil {
		return d, err
	}
	err = queryEach(ctx, s.db,
		`SELECT label, start_time, end_time, energy, spectral_centroid, zcr, dynamic_range
		FROM track_segments WHERE track_id = ? ORDER BY seq`,
		[]any{trackID}, func(r rowScanner) error {
			var seg engine.Segment
			var energy, centroid, zcr, dr sql.NullFloat64
			if err := r.Scan(&seg.Label, &seg.Start, &seg.End, &energy, &centroid, &zcr, &dr); err != nil {
				return err
			}
			seg.Energy, seg.Centroid, seg.ZCR, seg.DynamicRange = energy.Float64, centroid.Float64, zcr.Float64, dr.Float64
			d.Segments = append(d.Segments, seg)
			return nil
		})
	if err != nil {
		return d, err
	}
	err = queryEach(ctx, s.db,
		"SELECT time, tension, change_type FROM track_tension_points WHERE track_id = ? ORDER BY seq",
		[]any{trackID}, func(r rowScanner) error {
			var p engine.TensionPoint
			if err := r.Scan(&p.Time, &p.Value, &p.Change); err != nil {
				return err
			}
			d.Tension = append(d.Tension, p)
			return nil
		})
	if err != nil {
		return d, err
	}
	err = queryEach(ctx, s.db,
		"SELECT time, kind, strength, duration FROM track_transitions WHERE track_id = ? ORDER BY seq",
		[]any{trackID}, func(r rowScanner) error {
			var tr engine.Transition
			var strength, duration sql.NullFloat64
			if err := r.Scan(&tr.Time, &tr.Kind, &strength, &duration); err != nil {
				return err
			}
			tr.Strength, tr.Duration = strength.Float64, duration.Float64
			d.Transitions = append(d.Transitions, tr)
			return nil
		})
	return d, err
}

func queryEach(ctx context.Context, db *sql.DB, query string, args []any, fn func(rowScanner) error) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// AllAnalysisRuns streams every stored run, without detail rows, to fn in
// track id order. Garbage-quality runs are skipped unless includeGarbage is
// set. fn must not call back into the Store; the read holds the connection.
// Returning an error from fn stops the iteration and returns that error.
func (s *Store) AllAnalysisRuns(ctx context.Context, includeGarbage bool, fn func(AnalysisRun) error) error {
	query := selectRunQuery()
	var args []any
	if !includeGarbage {
		query += " WHERE a.quality != ?"
		args = append(args, string(audio.QualityGarbage))
	}
	query += " ORDER BY a.track_id"

	var fnErr error
	err := queryEach(ctx, s.db, query, args, func(r rowScanner) error {
		run, err := scanRun(r)
		if err != nil {
			return err
		}
		if err := fn(run); err != nil {
			fnErr = err
			return err
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	return storageErr("all analysis runs", err)
}
