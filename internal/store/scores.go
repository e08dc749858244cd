package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"setbreak/internal/scoring"
)

// UpdateScores overwrites the effective scores of each delta's track in one
// transaction. Raw scores and features are untouched.
func (s *Store) UpdateScores(ctx context.Context, deltas []ScoreDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	query := "UPDATE analysis_runs SET " + assignments(scoreColumns("")) + " WHERE track_id = ?"
	return s.inTx(ctx, "update scores", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare score update: %w", err)
		}
		defer stmt.Close()
		for _, d := range deltas {
			args := append(scoreValues(d.Scores.Clamp()), d.TrackID)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("update scores for track %d: %w", d.TrackID, err)
			}
		}
		return nil
	})
}

// ReplaceRawScores stores freshly computed formula scores, used by rescore.
// Both the raw and the effective columns are set, so any calibration must be
// run again afterwards.
func (s *Store) ReplaceRawScores(ctx context.Context, deltas []ScoreDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	cols := append(scoreColumns("raw_"), scoreColumns("")...)
	query := "UPDATE analysis_runs SET " + assignments(cols) + " WHERE track_id = ?"
	return s.inTx(ctx, "replace raw scores", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare raw score update: %w", err)
		}
		defer stmt.Close()
		for _, d := range deltas {
			scores := d.Scores.Clamp()
			args := append(scoreValues(scores), scoreValues(scores)...)
			args = append(args, d.TrackID)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("replace scores for track %d: %w", d.TrackID, err)
			}
		}
		return nil
	})
}

// ResetScores discards calibration by copying raw scores over the effective
// ones. It returns the number of rows touched.
func (s *Store) ResetScores(ctx context.Context) (int64, error) {
	parts := make([]string, scoring.Count)
	for i, name := range scoring.Names {
		parts[i] = fmt.Sprintf("%s_score = raw_%s_score", name, name)
	}
	res, err := s.execWithRetry(ctx, "reset scores", "UPDATE analysis_runs SET "+strings.Join(parts, ", "))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return n, storageErr("reset scores", err)
}

