package scoring

import (
	"math"
	"strings"

	"setbreak/internal/config"
	"setbreak/internal/features"
)

// Scorer computes jam scores with a fixed set of weights.
type Scorer struct {
	weights     config.Weights
	minLongForm float64
}

// New builds a scorer from the [scoring] section.
func New(cfg config.Scoring) *Scorer {
	return &Scorer{weights: cfg.Weights, minLongForm: cfg.MinLongFormSeconds}
}

// Score is pure: the same record always yields the same scores.
func (s *Scorer) Score(rec features.Record) JamScores {
	energy := s.energy(&rec)
	groove := s.groove(&rec)
	out := JamScores{
		Energy:        energy,
		Intensity:     s.intensity(&rec),
		Groove:        groove,
		Improvisation: s.improvisation(&rec),
		Tightness:     s.tightness(&rec),
		BuildQuality:  s.buildQuality(&rec),
		Exploratory:   s.exploratory(&rec),
		Transcendence: s.transcendence(&rec, groove, energy),
		Valence:       s.valence(&rec),
		Arousal:       s.arousal(&rec),
	}
	return out.Clamp()
}

// sat clamps to [0,1]; NaN saturates to 0.
func sat(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// part is points * sat(transform(v)), or 0 when v is absent.
func part(points float64, v *float64, transform func(float64) float64) float64 {
	if v == nil {
		return 0
	}
	return points * sat(transform(*v))
}

func countValue(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// ratio returns num/den when both are present and den exceeds floor.
func ratio(num, den *float64, floor float64) *float64 {
	if num == nil || den == nil || *den <= floor {
		return nil
	}
	r := *num / *den
	return &r
}

func perMinute(n *int64, duration *float64) *float64 {
	if n == nil || duration == nil || *duration <= 0 {
		return nil
	}
	r := float64(*n) / (*duration / 60)
	return &r
}

func (s *Scorer) longForm(rec *features.Record) bool {
	return rec.Duration != nil && *rec.Duration >= s.minLongForm
}

func (s *Scorer) energy(rec *features.Record) float64 {
	w := s.weights.Energy
	return part(w.RMS, rec.RMSLevel, func(v float64) float64 { return v / 0.18 }) +
		part(w.Loudness, rec.LUFSIntegrated, func(v float64) float64 { return (v + 55) / 22 }) +
		part(w.Bass, rec.SubBandBassMean, func(v float64) float64 { return v / 0.15 }) +
		part(w.Centroid, rec.SpectralCentroidMean, func(v float64) float64 { return (v - 2000) / 6000 })
}

func (s *Scorer) intensity(rec *features.Record) float64 {
	w := s.weights.Intensity
	return part(w.FluxVariation, rec.SpectralFluxStd, func(v float64) float64 { return v / 50 }) +
		part(w.DynamicRange, rec.DynamicRange, func(v float64) float64 { return v / 30 }) +
		part(w.LoudnessRange, rec.LoudnessRange, func(v float64) float64 { return v / 20 })
}

// onsetSweetSpot peaks between 7 and 9 onsets per second.
func onsetSweetSpot(rate float64) float64 {
	switch {
	case rate < 5:
		return rate / 5
	case rate < 7:
		return 0.6 + 0.4*(rate-5)/2
	case rate <= 9:
		return 1
	case rate <= 11:
		return 1 - 0.4*(rate-9)/2
	default:
		return 0.6 - (rate-11)/5
	}
}

func (s *Scorer) groove(rec *features.Record) float64 {
	if rec.OnsetCount == nil || *rec.OnsetCount < 1 {
		return 0
	}
	w := s.weights.Groove
	fluxCV := ratio(rec.SpectralFluxStd, rec.SpectralFluxMean, 0.5)
	bassCV := ratio(rec.SubBandBassStd, rec.SubBandBassMean, 0.01)
	return part(w.OnsetRate, ratio(countValue(rec.OnsetCount), rec.Duration, 0), onsetSweetSpot) +
		part(w.FluxSteadiness, fluxCV, func(v float64) float64 { return 1 - v }) +
		part(w.BassSteadiness, bassCV, func(v float64) float64 { return 1 - 0.7*v }) +
		part(w.RhythmicPattern, rec.RepetitionSimilarity, func(v float64) float64 { return (v - 0.85) / 0.15 })
}

func (s *Scorer) improvisation(rec *features.Record) float64 {
	w := s.weights.Improvisation
	return part(w.NonRepetition, rec.RepetitionSimilarity, func(v float64) float64 { return 1 - (v-0.75)/0.25 }) +
		part(w.HarmonicVariety, countValue(rec.ChordCount), func(v float64) float64 { return (v - 3) / 18 }) +
		part(w.TimbralMotion, rec.SpectralCentroidStd, func(v float64) float64 { return (v - 400) / 2500 }) +
		part(w.Transitions, countValue(rec.TransitionCount), func(v float64) float64 { return v / 30 })
}

// beatStrength rewards beat/onset ratios between 0.1 and 0.8.
func beatStrength(r float64) float64 {
	r = sat(r)
	switch {
	case r < 0.1:
		return r * 5
	case r <= 0.8:
		return 1
	default:
		return 0.8 + 0.2*(1-r)/0.2
	}
}

func (s *Scorer) tightness(rec *features.Record) float64 {
	w := s.weights.Tightness
	fluxCV := ratio(rec.SpectralFluxStd, rec.SpectralFluxMean, 0.5)
	beatRatio := ratio(countValue(rec.BeatCount), countValue(rec.OnsetCount), 0)
	return part(w.PitchStability, rec.PitchStability, func(v float64) float64 { return v }) +
		part(w.FluxSteadiness, fluxCV, func(v float64) float64 { return 1 - (v-0.3)/1.2 }) +
		part(w.BeatAlignment, beatRatio, beatStrength) +
		part(w.TimbralFocus, rec.SpectralFlatnessStd, func(v float64) float64 { return 1 - (v-0.04)/0.22 })
}

func (s *Scorer) buildQuality(rec *features.Record) float64 {
	if !s.longForm(rec) {
		return 0
	}
	w := s.weights.BuildQuality
	return part(w.Crest, rec.CrestFactor, func(v float64) float64 { return (v - 3) / 25 }) +
		part(w.LoudnessRange, rec.LoudnessRange, func(v float64) float64 { return (v - 1) / 20 }) +
		part(w.EnergyVariance, rec.EnergyVariance, func(v float64) float64 { return v / 0.01 }) +
		part(w.TransitionRate, perMinute(rec.TransitionCount, rec.Duration), func(v float64) float64 { return v / 5 })
}

func (s *Scorer) exploratory(rec *features.Record) float64 {
	w := s.weights.Exploratory
	return part(w.TimbralSpread, rec.SpectralFlatnessStd, func(v float64) float64 { return (v - 0.04) / 0.22 }) +
		part(w.PitchAmbiguity, rec.PitchConfidenceMean, func(v float64) float64 { return 1 - v }) +
		part(w.TransitionRate, perMinute(rec.TransitionCount, rec.Duration), func(v float64) float64 { return v / 5 }) +
		part(w.ModalAmbiguity, rec.ModeClarity, func(v float64) float64 { return 1 - (v-0.05)/0.20 })
}

func (s *Scorer) transcendence(rec *features.Record, groove, energy float64) float64 {
	if !s.longForm(rec) {
		return 0
	}
	w := s.weights.Transcendence
	synergy := math.Sqrt(sat(groove/100) * sat(energy/100))
	return part(w.Peak, ratio(rec.PeakEnergy, rec.EnergyLevel, 0.001), func(v float64) float64 { return (v - 1.05) / 0.8 }) +
		part(w.Crest, rec.CrestFactor, func(v float64) float64 { return (v - 3) / 25 }) +
		w.GrooveEnergy*synergy +
		part(w.SpectralMotion, rec.SpectralFluxMean, func(v float64) float64 { return v / 50 })
}

func tempoNorm(v float64) float64 { return (v - 60) / 120 }

func (s *Scorer) valence(rec *features.Record) float64 {
	w := s.weights.Valence
	mode := 0.0
	if rec.EstimatedKey != nil && strings.HasSuffix(*rec.EstimatedKey, "major") {
		mode = 1
	}
	return w.Mode*mode +
		part(w.Tempo, rec.TempoBPM, tempoNorm) +
		part(w.Brightness, rec.SpectralCentroidMean, func(v float64) float64 { return (v - 500) / 4500 }) +
		part(w.Simplicity, rec.HarmonicComplexity, func(v float64) float64 { return 1 - v })
}

func (s *Scorer) arousal(rec *features.Record) float64 {
	w := s.weights.Arousal
	return part(w.Energy, rec.EnergyLevel, func(v float64) float64 { return v }) +
		part(w.Tempo, rec.TempoBPM, tempoNorm) +
		part(w.Flux, rec.SpectralFluxMean, func(v float64) float64 { return v / 50 }) +
		part(w.Loudness, rec.LUFSIntegrated, func(v float64) float64 { return (v + 40) / 40 })
}
