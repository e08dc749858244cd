package features_test

import (
	"context"
	"math"
	"reflect"
	"testing"

	"setbreak/internal/audio"
	"setbreak/internal/engine"
	"setbreak/internal/features"
	"setbreak/internal/testsupport"
)

func TestColumnsAreUniqueAndComplete(t *testing.T) {
	cols := features.Columns()
	if len(cols) != 185 {
		t.Fatalf("expected 185 feature columns, got %d", len(cols))
	}
	seen := map[string]bool{}
	for _, c := range cols {
		if seen[c] {
			t.Fatalf("duplicate column %q", c)
		}
		seen[c] = true
	}
	var rec features.Record
	if len(rec.Values()) != len(cols) || len(rec.ScanTargets()) != len(cols) {
		t.Fatal("expected values and scan targets to follow the column list")
	}
}

func TestRecordValuesAndScanTargets(t *testing.T) {
	var rec features.Record
	lufs := -23.5
	key := "A minor"
	rec.LUFSIntegrated = &lufs
	rec.EstimatedKey = &key

	cols := features.Columns()
	values := rec.Values()
	for i, c := range cols {
		switch c {
		case "lufs_integrated":
			if values[i] != -23.5 {
				t.Fatalf("expected lufs value, got %v", values[i])
			}
		case "estimated_key":
			if values[i] != "A minor" {
				t.Fatalf("expected key value, got %v", values[i])
			}
		default:
			if values[i] != nil {
				t.Fatalf("expected nil for absent column %s, got %v", c, values[i])
			}
		}
	}
	if rec.Present() != 2 {
		t.Fatalf("expected 2 present fields, got %d", rec.Present())
	}

	targets := rec.ScanTargets()
	for i, c := range cols {
		if c == "rms_level" {
			target, ok := targets[i].(**float64)
			if !ok {
				t.Fatalf("expected **float64 scan target, got %T", targets[i])
			}
			v := 0.25
			*target = &v
		}
	}
	if rec.RMSLevel == nil || *rec.RMSLevel != 0.25 {
		t.Fatal("expected scan target to write through to the record")
	}
}

func TestAggregateEmptyInputIsAllAbsent(t *testing.T) {
	rec, details := features.Aggregate(&engine.RawFeatures{})
	if rec.Present() != 0 {
		t.Fatalf("expected no fields for empty input, got %d", rec.Present())
	}
	if len(details.Chords)+len(details.Segments)+len(details.Tension)+len(details.Transitions) != 0 {
		t.Fatalf("expected empty details, got %+v", details)
	}
	rec, _ = features.Aggregate(nil)
	if rec.Present() != 0 {
		t.Fatal("expected no fields for nil input")
	}
}

func TestAggregateSignal(t *testing.T) {
	sig := testsupport.DefaultSignal()
	buf := &audio.Buffer{SampleRate: sig.SampleRate, Channels: 1, Samples: sig.Render()}
	raw, err := engine.NewWithOptions(engine.Options{FrameSize: 1024, HopSize: 256}).NewSession().Analyze(context.Background(), buf)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	rec, details := features.Aggregate(raw)
	again, _ := features.Aggregate(raw)
	if !reflect.DeepEqual(rec, again) {
		t.Fatal("expected aggregation to be deterministic")
	}

	for name, field := range map[string]*float64{
		"duration":              rec.Duration,
		"rms_level":             rec.RMSLevel,
		"lufs_integrated":       rec.LUFSIntegrated,
		"spectral_centroid_std": rec.SpectralCentroidStd,
		"spectral_flux_std":     rec.SpectralFluxStd,
		"sub_band_bass_mean":    rec.SubBandBassMean,
		"tempo_bpm":             rec.TempoBPM,
		"pitch_stability":       rec.PitchStability,
		"crest_factor":          rec.CrestFactor,
		"energy_level":          rec.EnergyLevel,
		"mode_clarity":          rec.ModeClarity,
		"harmonic_complexity":   rec.HarmonicComplexity,
		"repetition_similarity": rec.RepetitionSimilarity,
		"mfcc_flux_mean":        rec.MFCCFluxMean,
		"chroma_flux":           rec.ChromaFlux,
	} {
		if field == nil {
			t.Fatalf("expected %s to be present", name)
		}
	}
	if rec.OnsetCount == nil || *rec.OnsetCount == 0 {
		t.Fatal("expected onsets")
	}
	if rec.EstimatedKey == nil || rec.ChromaVector == nil {
		t.Fatal("expected key and chroma vector")
	}
	if rec.SegmentCount == nil || int(*rec.SegmentCount) != len(details.Segments) {
		t.Fatalf("expected segment count to match details, got %v vs %d", rec.SegmentCount, len(details.Segments))
	}

	for i, v := range rec.Values() {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			t.Fatalf("column %s is not finite", features.Columns()[i])
		}
	}
}
