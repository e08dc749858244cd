package store

import (
	"database/sql"
	"strings"
	"time"

	"setbreak/internal/scoring"
)

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullableInt(value int) sql.NullInt64 {
	if value <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(value), Valid: true}
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

// scoreColumns returns the score column names with the given prefix
// ("" for effective, "raw_" for raw scores).
func scoreColumns(prefix string) []string {
	cols := make([]string, scoring.Count)
	for i, name := range scoring.Names {
		cols[i] = prefix + name + "_score"
	}
	return cols
}

func scoreValues(s scoring.JamScores) []any {
	out := make([]any, scoring.Count)
	for i := range scoring.Count {
		out[i] = s.At(i)
	}
	return out
}

func scoreTargets(buf *[scoring.Count]float64) []any {
	out := make([]any, scoring.Count)
	for i := range scoring.Count {
		out[i] = &buf[i]
	}
	return out
}

func fillScores(s *scoring.JamScores, buf *[scoring.Count]float64) {
	for i := range scoring.Count {
		s.Set(i, buf[i])
	}
}

// assignments renders "a = ?, b = ?" for cols.
func assignments(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " = ?"
	}
	return strings.Join(parts, ", ")
}
