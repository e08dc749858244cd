package config

const (
	defaultDatabasePath         = "~/.local/share/setbreak/setbreak.db"
	defaultLogDir               = "~/.local/share/setbreak/logs"
	defaultLibraryDir           = "~/music/live"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultChunkMultiplier      = 2
	defaultFFmpegPath           = "ffmpeg"
	defaultFFmpegTimeoutSeconds = 600
	defaultBitstreamWindow      = 4096
	defaultBitstreamHotLevel    = 0.9
	defaultBitstreamHotFraction = 0.25
	defaultSuspectHotFraction   = 0.05
	defaultSuspectClipRatio     = 0.01
	defaultSilencePeak          = 1e-4
	defaultMinLongFormSeconds   = 60
	defaultCalibrationMinPoints = 3
	defaultCalibrationMinSlope  = 0.1
	defaultFrameSize            = 2048
	defaultHopSize              = 1024
)

// DefaultWeights returns the tuned point budgets for every score component.
// Each score's budgets sum to 100.
func DefaultWeights() Weights {
	return Weights{
		Energy: EnergyWeights{
			RMS:      30,
			Loudness: 30,
			Bass:     20,
			Centroid: 20,
		},
		Intensity: IntensityWeights{
			FluxVariation: 40,
			DynamicRange:  30,
			LoudnessRange: 30,
		},
		Groove: GrooveWeights{
			OnsetRate:       20,
			FluxSteadiness:  30,
			BassSteadiness:  25,
			RhythmicPattern: 25,
		},
		Improvisation: ImprovisationWeights{
			NonRepetition:   25,
			HarmonicVariety: 25,
			TimbralMotion:   25,
			Transitions:     25,
		},
		Tightness: TightnessWeights{
			PitchStability: 25,
			FluxSteadiness: 25,
			BeatAlignment:  25,
			TimbralFocus:   25,
		},
		BuildQuality: BuildQualityWeights{
			Crest:          30,
			LoudnessRange:  25,
			EnergyVariance: 20,
			TransitionRate: 25,
		},
		Exploratory: ExploratoryWeights{
			TimbralSpread:  25,
			PitchAmbiguity: 25,
			TransitionRate: 25,
			ModalAmbiguity: 25,
		},
		Transcendence: TranscendenceWeights{
			Peak:           25,
			Crest:          25,
			GrooveEnergy:   30,
			SpectralMotion: 20,
		},
		Valence: ValenceWeights{
			Mode:       30,
			Tempo:      25,
			Brightness: 25,
			Simplicity: 20,
		},
		Arousal: ArousalWeights{
			Energy:   30,
			Tempo:    25,
			Flux:     20,
			Loudness: 25,
		},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Database:   defaultDatabasePath,
			LogDir:     defaultLogDir,
			LibraryDir: defaultLibraryDir,
		},
		Analysis: Analysis{
			ChunkMultiplier:      defaultChunkMultiplier,
			FFmpegPath:           defaultFFmpegPath,
			FFmpegTimeoutSeconds: defaultFFmpegTimeoutSeconds,
			FrameSize:            defaultFrameSize,
			HopSize:              defaultHopSize,
		},
		Quality: Quality{
			BitstreamWindow:      defaultBitstreamWindow,
			HotLevel:             defaultBitstreamHotLevel,
			BitstreamHotFraction: defaultBitstreamHotFraction,
			SuspectHotFraction:   defaultSuspectHotFraction,
			SuspectClipRatio:     defaultSuspectClipRatio,
			SilencePeak:          defaultSilencePeak,
		},
		Scoring: Scoring{
			MinLongFormSeconds: defaultMinLongFormSeconds,
			Weights:            DefaultWeights(),
		},
		Calibration: Calibration{
			MinPoints: defaultCalibrationMinPoints,
			MinSlope:  defaultCalibrationMinSlope,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
