package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"setbreak/internal/audio"
	"setbreak/internal/scoring"
	"setbreak/internal/services"
)

// Stats summarizes catalog and analysis coverage.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByQuality: make(map[audio.Quality]int)}

	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(DISTINCT CASE WHEN show_date IS NOT NULL THEN COALESCE(band, '') || '|' || show_date END),
			COUNT(DISTINCT band),
			SUM(size_bytes)
		FROM tracks`,
	).Scan(&stats.Tracks, &stats.Shows, &stats.Bands, &total)
	if err != nil {
		return Stats{}, storageErr("stats", err)
	}
	stats.TotalBytes = total.Int64

	err = queryEach(ctx, s.db, "SELECT quality, COUNT(*) FROM analysis_runs GROUP BY quality", nil, func(r rowScanner) error {
		var (
			quality string
			n       int
		)
		if err := r.Scan(&quality, &n); err != nil {
			return err
		}
		stats.ByQuality[audio.Quality(quality)] = n
		stats.Analyzed += n
		return nil
	})
	if err != nil {
		return Stats{}, storageErr("stats", err)
	}
	stats.Pending = stats.Tracks - stats.Analyzed

	avgCols := make([]string, scoring.Count)
	for i, col := range scoreColumns("") {
		avgCols[i] = "COALESCE(AVG(" + col + "), 0)"
	}
	var (
		avg  [scoring.Count]float64
		last sql.NullString
	)
	targets := append(scoreTargets(&avg), &last)
	err = s.db.QueryRowContext(ctx,
		"SELECT "+strings.Join(avgCols, ", ")+", MAX(analyzed_at) FROM analysis_runs WHERE quality != ?",
		string(audio.QualityGarbage),
	).Scan(targets...)
	if err != nil {
		return Stats{}, storageErr("stats", err)
	}
	fillScores(&stats.Averages, &avg)
	if last.Valid {
		t := parseTimeString(last.String)
		stats.LastRunAt = &t
	}

	if stats.Calibration, err = s.LatestCalibration(ctx); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// TopTracks ranks non-garbage tracks by the effective score at scoreIndex of
// scoring.Names. A non-empty band restricts the ranking to that band.
func (s *Store) TopTracks(ctx context.Context, scoreIndex, limit int, band string) ([]TopTrack, error) {
	if scoreIndex < 0 || scoreIndex >= scoring.Count {
		return nil, services.Wrap(services.ErrValidation, "store", "top tracks", fmt.Sprintf("score index %d out of range", scoreIndex), nil)
	}
	if limit <= 0 {
		limit = 10
	}
	cols := scoreColumns("")
	query := fmt.Sprintf(`SELECT t.id, t.path, t.title, t.band, t.show_date, a.duration, %s
		FROM analysis_runs a JOIN tracks t ON t.id = a.track_id
		WHERE a.quality != ?`, "a."+strings.Join(cols, ", a."))
	args := []any{string(audio.QualityGarbage)}
	if band = strings.TrimSpace(band); band != "" {
		query += " AND lower(t.band) = lower(?)"
		args = append(args, band)
	}
	query += fmt.Sprintf(" ORDER BY a.%s DESC, t.id LIMIT ?", cols[scoreIndex])
	args = append(args, limit)

	var out []TopTrack
	err := queryEach(ctx, s.db, query, args, func(r rowScanner) error {
		var (
			top                   TopTrack
			title, bandName, date sql.NullString
			scores                [scoring.Count]float64
		)
		targets := []any{&top.TrackID, &top.Path, &title, &bandName, &date, &top.Duration}
		targets = append(targets, scoreTargets(&scores)...)
		if err := r.Scan(targets...); err != nil {
			return err
		}
		top.Title, top.Band, top.ShowDate = title.String, bandName.String, date.String
		fillScores(&top.Scores, &scores)
		top.Score = top.Scores.At(scoreIndex)
		out = append(out, top)
		return nil
	})
	if err != nil {
		return nil, storageErr("top tracks", err)
	}
	return out, nil
}
