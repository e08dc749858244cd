package pipeline_test

import (
	"context"
	"testing"
	"time"

	"setbreak/internal/audio"
	"setbreak/internal/features"
	"setbreak/internal/logging"
	"setbreak/internal/pipeline"
	"setbreak/internal/scoring"
	"setbreak/internal/store"
	"setbreak/internal/testsupport"
)

func TestRescoreRecomputesRawScores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lufs := -14.0
	duration := 300.0
	rms := 0.2
	rec := features.Record{LUFSIntegrated: &lufs, Duration: &duration, RMSLevel: &rms}

	ok := testsupport.NewTrack(t, st, "/music/a.flac", "Phish", "1997-11-22")
	bad := testsupport.NewTrack(t, st, "/music/b.flac", "Phish", "1997-11-22")
	stale := scoring.JamScores{Energy: 99, Valence: 1}
	now := time.Now()
	if err := st.CommitChunk(ctx, []store.AnalysisRun{
		{TrackID: ok, RunID: "r", Quality: audio.QualityOK, AnalyzedAt: now, Record: rec, Raw: stale, Scores: stale},
		{TrackID: bad, RunID: "r", Quality: audio.QualityGarbage, AnalyzedAt: now, Record: rec, Raw: stale, Scores: stale},
	}); err != nil {
		t.Fatalf("CommitChunk returned error: %v", err)
	}

	summary, err := pipeline.Rescore(ctx, cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Rescore returned error: %v", err)
	}
	if summary.Runs != 2 || summary.Changed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	want := scoring.New(cfg.Scoring).Score(rec)
	for _, id := range []int64{ok, bad} {
		run, err := st.AnalysisByTrack(ctx, id)
		if err != nil {
			t.Fatalf("AnalysisByTrack returned error: %v", err)
		}
		if run.Raw != want || run.Scores != want {
			t.Fatalf("track %d: raw %+v effective %+v, want %+v", id, run.Raw, run.Scores, want)
		}
	}

	again, err := pipeline.Rescore(ctx, cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("second Rescore returned error: %v", err)
	}
	if again.Changed != 0 {
		t.Fatalf("rescore should be stable, changed %d", again.Changed)
	}
}
