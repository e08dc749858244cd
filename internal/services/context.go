package services

import "context"

type contextKey string

const (
	trackIDKey contextKey = "track_id"
	stageKey   contextKey = "stage"
	runIDKey   contextKey = "run_id"
)

// WithTrackID annotates context with the catalog track identifier.
func WithTrackID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, trackIDKey, id)
}

// TrackIDFromContext extracts the catalog track identifier if present.
func TrackIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(trackIDKey).(int64)
	return id, ok
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with an analysis or calibration run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
