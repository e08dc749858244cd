package config

// Weights holds the point budget of every score component. A component
// contributes weight * saturation, where saturation is in [0,1].
type Weights struct {
	Energy        EnergyWeights        `toml:"energy"`
	Intensity     IntensityWeights     `toml:"intensity"`
	Groove        GrooveWeights        `toml:"groove"`
	Improvisation ImprovisationWeights `toml:"improvisation"`
	Tightness     TightnessWeights     `toml:"tightness"`
	BuildQuality  BuildQualityWeights  `toml:"build_quality"`
	Exploratory   ExploratoryWeights   `toml:"exploratory"`
	Transcendence TranscendenceWeights `toml:"transcendence"`
	Valence       ValenceWeights       `toml:"valence"`
	Arousal       ArousalWeights       `toml:"arousal"`
}

type EnergyWeights struct {
	RMS      float64 `toml:"rms"`
	Loudness float64 `toml:"loudness"`
	Bass     float64 `toml:"bass"`
	Centroid float64 `toml:"centroid"`
}

type IntensityWeights struct {
	FluxVariation float64 `toml:"flux_variation"`
	DynamicRange  float64 `toml:"dynamic_range"`
	LoudnessRange float64 `toml:"loudness_range"`
}

type GrooveWeights struct {
	OnsetRate       float64 `toml:"onset_rate"`
	FluxSteadiness  float64 `toml:"flux_steadiness"`
	BassSteadiness  float64 `toml:"bass_steadiness"`
	RhythmicPattern float64 `toml:"rhythmic_pattern"`
}

type ImprovisationWeights struct {
	NonRepetition   float64 `toml:"non_repetition"`
	HarmonicVariety float64 `toml:"harmonic_variety"`
	TimbralMotion   float64 `toml:"timbral_motion"`
	Transitions     float64 `toml:"transitions"`
}

type TightnessWeights struct {
	PitchStability float64 `toml:"pitch_stability"`
	FluxSteadiness float64 `toml:"flux_steadiness"`
	BeatAlignment  float64 `toml:"beat_alignment"`
	TimbralFocus   float64 `toml:"timbral_focus"`
}

type BuildQualityWeights struct {
	Crest          float64 `toml:"crest"`
	LoudnessRange  float64 `toml:"loudness_range"`
	EnergyVariance float64 `toml:"energy_variance"`
	TransitionRate float64 `toml:"transition_rate"`
}

type ExploratoryWeights struct {
	TimbralSpread  float64 `toml:"timbral_spread"`
	PitchAmbiguity float64 `toml:"pitch_ambiguity"`
	TransitionRate float64 `toml:"transition_rate"`
	ModalAmbiguity float64 `toml:"modal_ambiguity"`
}

type TranscendenceWeights struct {
	Peak           float64 `toml:"peak"`
	Crest          float64 `toml:"crest"`
	GrooveEnergy   float64 `toml:"groove_energy"`
	SpectralMotion float64 `toml:"spectral_motion"`
}

type ValenceWeights struct {
	Mode       float64 `toml:"mode"`
	Tempo      float64 `toml:"tempo"`
	Brightness float64 `toml:"brightness"`
	Simplicity float64 `toml:"simplicity"`
}

type ArousalWeights struct {
	Energy   float64 `toml:"energy"`
	Tempo    float64 `toml:"tempo"`
	Flux     float64 `toml:"flux"`
	Loudness float64 `toml:"loudness"`
}

// each returns every component weight with its dotted key.
func (w Weights) each() []weightEntry {
	return []weightEntry{
		{"energy.rms", w.Energy.RMS},
		{"energy.loudness", w.Energy.Loudness},
		{"energy.bass", w.Energy.Bass},
		{"energy.centroid", w.Energy.Centroid},
		{"intensity.flux_variation", w.Intensity.FluxVariation},
		{"intensity.dynamic_range", w.Intensity.DynamicRange},
		{"intensity.loudness_range", w.Intensity.LoudnessRange},
		{"groove.onset_rate", w.Groove.OnsetRate},
		{"groove.flux_steadiness", w.Groove.FluxSteadiness},
		{"groove.bass_steadiness", w.Groove.BassSteadiness},
		{"groove.rhythmic_pattern", w.Groove.RhythmicPattern},
		{"improvisation.non_repetition", w.Improvisation.NonRepetition},
		{"improvisation.harmonic_variety", w.Improvisation.HarmonicVariety},
		{"improvisation.timbral_motion", w.Improvisation.TimbralMotion},
		{"improvisation.transitions", w.Improvisation.Transitions},
		{"tightness.pitch_stability", w.Tightness.PitchStability},
		{"tightness.flux_steadiness", w.Tightness.FluxSteadiness},
		{"tightness.beat_alignment", w.Tightness.BeatAlignment},
		{"tightness.timbral_focus", w.Tightness.TimbralFocus},
		{"build_quality.crest", w.BuildQuality.Crest},
		{"build_quality.loudness_range", w.BuildQuality.LoudnessRange},
		{"build_quality.energy_variance", w.BuildQuality.EnergyVariance},
		{"build_quality.transition_rate", w.BuildQuality.TransitionRate},
		{"exploratory.timbral_spread", w.Exploratory.TimbralSpread},
		{"exploratory.pitch_ambiguity", w.Exploratory.PitchAmbiguity},
		{"exploratory.transition_rate", w.Exploratory.TransitionRate},
		{"exploratory.modal_ambiguity", w.Exploratory.ModalAmbiguity},
		{"transcendence.peak", w.Transcendence.Peak},
		{"transcendence.crest", w.Transcendence.Crest},
		{"transcendence.groove_energy", w.Transcendence.GrooveEnergy},
		{"transcendence.spectral_motion", w.Transcendence.SpectralMotion},
		{"valence.mode", w.Valence.Mode},
		{"valence.tempo", w.Valence.Tempo},
		{"valence.brightness", w.Valence.Brightness},
		{"valence.simplicity", w.Valence.Simplicity},
		{"arousal.energy", w.Arousal.Energy},
		{"arousal.tempo", w.Arousal.Tempo},
		{"arousal.flux", w.Arousal.Flux},
		{"arousal.loudness", w.Arousal.Loudness},
	}
}

type weightEntry struct {
	key   string
	value float64
}
