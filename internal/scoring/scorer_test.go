package scoring

import (
	"math"
	"reflect"
	"testing"

	"setbreak/internal/config"
	"setbreak/internal/features"
)

func f(v float64) *float64 { return &v }
func n(v int64) *int64     { return &v }

func newScorer() *Scorer {
	return New(config.Default().Scoring)
}

// typicalRecord resembles a ten minute soundboard jam.
func typicalRecord() features.Record {
	key := "E minor"
	return features.Record{
		Duration:             f(600),
		RMSLevel:             f(0.1),
		LUFSIntegrated:       f(-38),
		SubBandBassMean:      f(0.1),
		SubBandBassStd:       f(0.06),
		SpectralCentroidMean: f(3500),
		SpectralCentroidStd:  f(900),
		SpectralFluxMean:     f(20),
		SpectralFluxStd:      f(14),
		SpectralFlatnessStd:  f(0.09),
		DynamicRange:         f(14),
		LoudnessRange:        f(10),
		OnsetCount:           n(4800),
		BeatCount:            n(1300),
		RepetitionSimilarity: f(0.9),
		ChordCount:           n(18),
		TransitionCount:      n(12),
		PitchStability:       f(0.65),
		PitchConfidenceMean:  f(0.55),
		ModeClarity:          f(0.12),
		CrestFactor:          f(9.5),
		EnergyVariance:       f(0.002),
		EnergyLevel:          f(0.1),
		PeakEnergy:           f(0.2),
		TempoBPM:             f(118),
		HarmonicComplexity:   f(0.6),
		EstimatedKey:         &key,
	}
}

func TestScoreAllAbsentIsZero(t *testing.T) {
	got := newScorer().Score(features.Record{})
	if got != (JamScores{}) {
		t.Fatalf("expected all-zero scores for an empty record, got %+v", got)
	}
}

func TestScoreIsDeterministicAndBounded(t *testing.T) {
	s := newScorer()
	rec := typicalRecord()
	first := s.Score(rec)
	if !reflect.DeepEqual(first, s.Score(rec)) {
		t.Fatal("expected identical scores for identical records")
	}
	for i := range Count {
		v := first.At(i)
		if v <= 0 || v >= 100 || math.IsNaN(v) {
			t.Fatalf("expected %s strictly inside (0,100) for a typical jam, got %f", Names[i], v)
		}
	}

	extremes := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1e9, 1e9, 0}
	for _, x := range extremes {
		big := n(0)
		if !math.IsNaN(x) {
			big = n(int64(math.Min(math.Max(x, -1e9), 1e9)))
		}
		rec := features.Record{
			Duration: f(x), RMSLevel: f(x), LUFSIntegrated: f(x), SubBandBassMean: f(x),
			SubBandBassStd: f(x), SpectralCentroidMean: f(x), SpectralCentroidStd: f(x),
			SpectralFluxMean: f(x), SpectralFluxStd: f(x), SpectralFlatnessStd: f(x),
			DynamicRange: f(x), LoudnessRange: f(x), OnsetCount: big, BeatCount: big,
			RepetitionSimilarity: f(x), ChordCount: big, TransitionCount: big,
			PitchStability: f(x), PitchConfidenceMean: f(x), ModeClarity: f(x),
			CrestFactor: f(x), EnergyVariance: f(x), EnergyLevel: f(x), PeakEnergy: f(x),
			TempoBPM: f(x), HarmonicComplexity: f(x),
		}
		got := s.Score(rec)
		for i := range Count {
			if v := got.At(i); math.IsNaN(v) || v < 0 || v > 100 {
				t.Fatalf("input %v: %s out of bounds: %f", x, Names[i], v)
			}
		}
	}
}

func TestScoreMonotonicity(t *testing.T) {
	s := newScorer()
	tests := []struct {
		name       string
		score      int
		set        func(*features.Record, float64)
		increasing bool
	}{
		{"energy/rms", 0, func(r *features.Record, v float64) { r.RMSLevel = f(v) }, true},
		{"energy/lufs", 0, func(r *features.Record, v float64) { r.LUFSIntegrated = f(-70 + v*100) }, true},
		{"intensity/flux_std", 1, func(r *features.Record, v float64) { r.SpectralFluxStd = f(v * 100) }, true},
		{"intensity/loudness_range", 1, func(r *features.Record, v float64) { r.LoudnessRange = f(v * 40) }, true},
		{"improvisation/repetition", 3, func(r *features.Record, v float64) { r.RepetitionSimilarity = f(0.5 + v/2) }, false},
		{"build_quality/crest", 5, func(r *features.Record, v float64) { r.CrestFactor = f(v * 40) }, true},
		{"exploratory/pitch_confidence", 6, func(r *features.Record, v float64) { r.PitchConfidenceMean = f(v) }, false},
		{"transcendence/rms", 7, func(r *features.Record, v float64) { r.RMSLevel = f(v) }, true},
		{"valence/tempo", 8, func(r *features.Record, v float64) { r.TempoBPM = f(40 + v*200) }, true},
		{"arousal/lufs", 9, func(r *features.Record, v float64) { r.LUFSIntegrated = f(-70 + v*100) }, true},
	}
	for _, tc := range tests {
		prev := math.NaN()
		for step := range 41 {
			rec := typicalRecord()
			tc.set(&rec, float64(step)/40)
			got := s.Score(rec).At(tc.score)
			if !math.IsNaN(prev) {
				if tc.increasing && got < prev-1e-9 {
					t.Fatalf("%s: score fell from %f to %f at step %d", tc.name, prev, got, step)
				}
				if !tc.increasing && got > prev+1e-9 {
					t.Fatalf("%s: score rose from %f to %f at step %d", tc.name, prev, got, step)
				}
			}
			prev = got
		}
	}
}

func TestLongFormGuard(t *testing.T) {
	s := newScorer()
	rec := typicalRecord()
	rec.Duration = f(45)
	got := s.Score(rec)
	if got.BuildQuality != 0 || got.Transcendence != 0 {
		t.Fatalf("expected long-form scores to be zero below 60s, got %+v", got)
	}
	if got.Energy == 0 {
		t.Fatal("expected other scores to be unaffected by the guard")
	}
	rec.Duration = nil
	if got := s.Score(rec); got.BuildQuality != 0 || got.Transcendence != 0 {
		t.Fatal("expected long-form scores to be zero for unknown duration")
	}
}

func TestScorerUsesConfiguredWeights(t *testing.T) {
	cfg := config.Default().Scoring
	cfg.Weights.Energy = config.EnergyWeights{RMS: 100}
	s := New(cfg)
	rec := features.Record{RMSLevel: f(0.09)}
	if got := s.Score(rec).Energy; math.Abs(got-50) > 1e-9 {
		t.Fatalf("expected half the rms budget, got %f", got)
	}
}

func TestJamScoresAccessors(t *testing.T) {
	var s JamScores
	for i := range Count {
		s.Set(i, float64(i*20-10))
	}
	if s.Energy != -10 || s.Arousal != 170 || s.At(5) != 90 {
		t.Fatalf("unexpected indexed values %+v", s)
	}
	c := s.Clamp()
	if c.Energy != 0 || c.Arousal != 100 || c.BuildQuality != 90 {
		t.Fatalf("unexpected clamped values %+v", c)
	}
	s.Set(2, math.NaN())
	if s.Clamp().Groove != 0 {
		t.Fatal("expected NaN to clamp to zero")
	}
	for _, name := range []string{"build_quality", "build-quality", "buildquality"} {
		if i, ok := Index(name); !ok || i != 5 {
			t.Fatalf("Index(%q) = %d, %v", name, i, ok)
		}
	}
	if _, ok := Index("vibe"); ok {
		t.Fatal("expected unknown score name to be rejected")
	}
}
