package features

import (
	"reflect"
	"sync"
)

// Record is the flat per-track feature row. Every field is optional: a nil
// pointer means the value could not be computed and is stored as NULL.
// Column names come from the col tag.
type Record struct {
	// Signal
	Duration       *float64 `col:"duration"`
	SampleRate     *int64   `col:"sample_rate"`
	Channels       *int64   `col:"channels"`
	PeakAmplitude  *float64 `col:"peak_amplitude"`
	RMSLevel       *float64 `col:"rms_level"`
	DCOffset       *float64 `col:"dc_offset"`
	DynamicRange   *float64 `col:"dynamic_range"`
	CrestFactor    *float64 `col:"crest_factor"`
	EnergyLevel    *float64 `col:"energy_level"`
	PeakEnergy     *float64 `col:"peak_energy"`
	EnergyVariance *float64 `col:"energy_variance"`
	FrameRMSP10    *float64 `col:"frame_rms_p10"`
	FrameRMSP50    *float64 `col:"frame_rms_p50"`
	FrameRMSP90    *float64 `col:"frame_rms_p90"`

	// Recording quality
	SNRDB                 *float64 `col:"snr_db"`
	ClippingRatio         *float64 `col:"clipping_ratio"`
	NoiseFloorDB          *float64 `col:"noise_floor_db"`
	RecordingQualityScore *float64 `col:"recording_quality_score"`

	// Loudness
	LUFSIntegrated        *float64 `col:"lufs_integrated"`
	LoudnessRange         *float64 `col:"loudness_range"`
	SamplePeakDBFS        *float64 `col:"sample_peak_dbfs"`
	PeakLoudness          *float64 `col:"peak_loudness"`
	ShortTermMaxLUFS      *float64 `col:"short_term_max_lufs"`
	LoudnessStd           *float64 `col:"loudness_std"`
	LoudnessBuildupSlope  *float64 `col:"loudness_buildup_slope"`
	LoudnessDynamicSpread *float64 `col:"loudness_dynamic_spread"`
	PeakEnergyTime        *float64 `col:"peak_energy_time"`

	// Spectral shape
	SpectralCentroidMean  *float64 `col:"spectral_centroid_mean"`
	SpectralCentroidStd   *float64 `col:"spectral_centroid_std"`
	SpectralFluxMean      *float64 `col:"spectral_flux_mean"`
	SpectralFluxStd       *float64 `col:"spectral_flux_std"`
	SpectralRolloffMean   *float64 `col:"spectral_rolloff_mean"`
	SpectralRolloffStd    *float64 `col:"spectral_rolloff_std"`
	SpectralFlatnessMean  *float64 `col:"spectral_flatness_mean"`
	SpectralFlatnessStd   *float64 `col:"spectral_flatness_std"`
	SpectralBandwidthMean *float64 `col:"spectral_bandwidth_mean"`
	SpectralBandwidthStd  *float64 `col:"spectral_bandwidth_std"`
	ZCRMean               *float64 `col:"zcr_mean"`
	ZCRStd                *float64 `col:"zcr_std"`
	SpectralCentroidP10   *float64 `col:"spectral_centroid_p10"`
	SpectralCentroidP90   *float64 `col:"spectral_centroid_p90"`
	SpectralFluxP90       *float64 `col:"spectral_flux_p90"`

	// Spectral dynamics
	SpectralFluxSkewness     *float64 `col:"spectral_flux_skewness"`
	SpectralFluxKurtosis     *float64 `col:"spectral_flux_kurtosis"`
	SpectralFluxSlope        *float64 `col:"spectral_flux_slope"`
	SpectralCentroidSkewness *float64 `col:"spectral_centroid_skewness"`
	SpectralCentroidKurtosis *float64 `col:"spectral_centroid_kurtosis"`
	SpectralCentroidSlope    *float64 `col:"spectral_centroid_slope"`
	SpectralBandwidthSlope   *float64 `col:"spectral_bandwidth_slope"`
	SpectralRolloffSlope     *float64 `col:"spectral_rolloff_slope"`
	SpectralFlatnessSlope    *float64 `col:"spectral_flatness_slope"`
	EnergyBuildupRatio       *float64 `col:"energy_buildup_ratio"`

	// Sub-bands
	SubBandBassMean      *float64 `col:"sub_band_bass_mean"`
	SubBandBassStd       *float64 `col:"sub_band_bass_std"`
	SubBandBassSlope     *float64 `col:"sub_band_bass_slope"`
	SubBandMidMean       *float64 `col:"sub_band_mid_mean"`
	SubBandMidStd        *float64 `col:"sub_band_mid_std"`
	SubBandMidSlope      *float64 `col:"sub_band_mid_slope"`
	SubBandHighMean      *float64 `col:"sub_band_high_mean"`
	SubBandHighStd       *float64 `col:"sub_band_high_std"`
	SubBandHighSlope     *float64 `col:"sub_band_high_slope"`
	SubBandPresenceMean  *float64 `col:"sub_band_presence_mean"`
	SubBandPresenceStd   *float64 `col:"sub_band_presence_std"`
	SubBandPresenceSlope *float64 `col:"sub_band_presence_slope"`
	BassTrebleRatioMean  *float64 `col:"bass_treble_ratio_mean"`
	BassTrebleRatioStd   *float64 `col:"bass_treble_ratio_std"`
	SubBandFlux          *float64 `col:"sub_band_flux"`

	// Timbre
	MFCC0Mean    *float64 `col:"mfcc_0_mean"`
	MFCC0Std     *float64 `col:"mfcc_0_std"`
	MFCC1Mean    *float64 `col:"mfcc_1_mean"`
	MFCC1Std     *float64 `col:"mfcc_1_std"`
	MFCC2Mean    *float64 `col:"mfcc_2_mean"`
	MFCC2Std     *float64 `col:"mfcc_2_std"`
	MFCC3Mean    *float64 `col:"mfcc_3_mean"`
	MFCC3Std     *float64 `col:"mfcc_3_std"`
	MFCC4Mean    *float64 `col:"mfcc_4_mean"`
	MFCC4Std     *float64 `col:"mfcc_4_std"`
	MFCC5Mean    *float64 `col:"mfcc_5_mean"`
	MFCC5Std     *float64 `col:"mfcc_5_std"`
	MFCC6Mean    *float64 `col:"mfcc_6_mean"`
	MFCC6Std     *float64 `col:"mfcc_6_std"`
	MFCC7Mean    *float64 `col:"mfcc_7_mean"`
	MFCC7Std     *float64 `col:"mfcc_7_std"`
	MFCC8Mean    *float64 `col:"mfcc_8_mean"`
	MFCC8Std     *float64 `col:"mfcc_8_std"`
	MFCC9Mean    *float64 `col:"mfcc_9_mean"`
	MFCC9Std     *float64 `col:"mfcc_9_std"`
	MFCC10Mean   *float64 `col:"mfcc_10_mean"`
	MFCC10Std    *float64 `col:"mfcc_10_std"`
	MFCC11Mean   *float64 `col:"mfcc_11_mean"`
	MFCC11Std    *float64 `col:"mfcc_11_std"`
	MFCC12Mean   *float64 `col:"mfcc_12_mean"`
	MFCC12Std    *float64 `col:"mfcc_12_std"`
	MFCCFluxMean *float64 `col:"mfcc_flux_mean"`
	MFCCVector   *string  `col:"mfcc_vector"`

	// Spectral contrast
	SpectralContrast0Mean *float64 `col:"spectral_contrast_0_mean"`
	SpectralContrast1Mean *float64 `col:"spectral_contrast_1_mean"`
	SpectralContrast2Mean *float64 `col:"spectral_contrast_2_mean"`
	SpectralContrast3Mean *float64 `col:"spectral_contrast_3_mean"`
	SpectralContrast4Mean *float64 `col:"spectral_contrast_4_mean"`
	SpectralContrast5Mean *float64 `col:"spectral_contrast_5_mean"`
	SpectralContrast6Mean *float64 `col:"spectral_contrast_6_mean"`
	SpectralContrastMean  *float64 `col:"spectral_contrast_mean"`
	SpectralContrastFlux  *float64 `col:"spectral_contrast_flux"`
	ContrastVector        *string  `col:"contrast_vector"`

	// Chroma
	ChromaCMean      *float64 `col:"chroma_c_mean"`
	ChromaCSharpMean *float64 `col:"chroma_cs_mean"`
	ChromaDMean      *float64 `col:"chroma_d_mean"`
	ChromaDSharpMean *float64 `col:"chroma_ds_mean"`
	ChromaEMean      *float64 `col:"chroma_e_mean"`
	ChromaFMean      *float64 `col:"chroma_f_mean"`
	ChromaFSharpMean *float64 `col:"chroma_fs_mean"`
	ChromaGMean      *float64 `col:"chroma_g_mean"`
	ChromaGSharpMean *float64 `col:"chroma_gs_mean"`
	ChromaAMean      *float64 `col:"chroma_a_mean"`
	ChromaASharpMean *float64 `col:"chroma_as_mean"`
	ChromaBMean      *float64 `col:"chroma_b_mean"`
	ChromaFlux       *float64 `col:"chroma_flux"`
	ChromaEntropy    *float64 `col:"chroma_entropy"`
	ChromaVector     *string  `col:"chroma_vector"`

	// Tonal centroid
	Tonnetz0Mean  *float64 `col:"tonnetz_0_mean"`
	Tonnetz1Mean  *float64 `col:"tonnetz_1_mean"`
	Tonnetz2Mean  *float64 `col:"tonnetz_2_mean"`
	Tonnetz3Mean  *float64 `col:"tonnetz_3_mean"`
	Tonnetz4Mean  *float64 `col:"tonnetz_4_mean"`
	Tonnetz5Mean  *float64 `col:"tonnetz_5_mean"`
	TonnetzFlux   *float64 `col:"tonnetz_flux"`
	TonnetzVector *string  `col:"tonnetz_vector"`

	// Rhythm
	TempoBPM             *float64 `col:"tempo_bpm"`
	TempoConfidence      *float64 `col:"tempo_confidence"`
	BeatCount            *int64   `col:"beat_count"`
	OnsetCount           *int64   `col:"onset_count"`
	OnsetRate            *float64 `col:"onset_rate"`
	OnsetDensityStd      *float64 `col:"onset_density_std"`
	OnsetIntervalEntropy *float64 `col:"onset_interval_entropy"`
	BeatRegularity       *float64 `col:"beat_regularity"`
	OnsetStrengthMean    *float64 `col:"onset_strength_mean"`
	OnsetStrengthStd     *float64 `col:"onset_strength_std"`
	BeatOnsetAlignment   *float64 `col:"beat_onset_alignment"`

	// Pitch
	MeanPitch           *float64 `col:"mean_pitch"`
	PitchRangeLow       *float64 `col:"pitch_range_low"`
	PitchRangeHigh      *float64 `col:"pitch_range_high"`
	PitchStability      *float64 `col:"pitch_stability"`
	DominantPitch       *float64 `col:"dominant_pitch"`
	PitchConfidenceMean *float64 `col:"pitch_confidence_mean"`
	PitchContourStd     *float64 `col:"pitch_contour_std"`
	PitchClarityMean    *float64 `col:"pitch_clarity_mean"`
	PitchedFrameRatio   *float64 `col:"pitched_frame_ratio"`
	PitchSlope          *float64 `col:"pitch_slope"`

	// Harmony
	EstimatedKey         *string  `col:"estimated_key"`
	KeyConfidence        *float64 `col:"key_confidence"`
	ModeClarity          *float64 `col:"mode_clarity"`
	KeyAlternativesCount *int64   `col:"key_alternatives_count"`
	Tonality             *float64 `col:"tonality"`
	HarmonicComplexity   *float64 `col:"harmonic_complexity"`
	ChordCount           *int64   `col:"chord_count"`
	ChordEventCount      *int64   `col:"chord_event_count"`
	ChordChangeRate      *float64 `col:"chord_change_rate"`
	ChordConfidenceMean  *float64 `col:"chord_confidence_mean"`
	DominantChordRatio   *float64 `col:"dominant_chord_ratio"`

	// Structure
	SegmentCount           *int64   `col:"segment_count"`
	SegmentDurationMean    *float64 `col:"segment_duration_mean"`
	SegmentDurationStd     *float64 `col:"segment_duration_std"`
	StructuralDiversity    *float64 `col:"structural_diversity"`
	TransitionCount        *int64   `col:"transition_count"`
	TransitionRate         *float64 `col:"transition_rate"`
	TransitionStrengthMean *float64 `col:"transition_strength_mean"`
	LiftCount              *int64   `col:"lift_count"`
	DropCount              *int64   `col:"drop_count"`
	SoloSectionCount       *int64   `col:"solo_section_count"`
	SoloSectionRatio       *float64 `col:"solo_section_ratio"`
	IntenseRatio           *float64 `col:"intense_ratio"`

	// Energy profile
	EnergyShape           *string  `col:"energy_shape"`
	EnergyPeakCount       *int64   `col:"energy_peak_count"`
	EnergyValleyDepthMean *float64 `col:"energy_valley_depth_mean"`
	TensionBuildCount     *int64   `col:"tension_build_count"`
	TensionReleaseCount   *int64   `col:"tension_release_count"`
	PeakTension           *float64 `col:"peak_tension"`
	TensionRange          *float64 `col:"tension_range"`
	TensionMean           *float64 `col:"tension_mean"`

	// Repetition
	RepetitionCount      *int64   `col:"repetition_count"`
	RepetitionSimilarity *float64 `col:"repetition_similarity"`

	// Correlations
	SpectralLoudnessCorrelation *float64 `col:"spectral_loudness_correlation"`
	BassFluxCorrelation         *float64 `col:"bass_flux_correlation"`
	CentroidFluxCorrelation     *float64 `col:"centroid_flux_correlation"`
}

type column struct {
	name  string
	index int
}

var recordColumns = sync.OnceValue(func() []column {
	t := reflect.TypeFor[Record]()
	cols := make([]column, 0, t.NumField())
	for i := range t.NumField() {
		if name := t.Field(i).Tag.Get("col"); name != "" {
			cols = append(cols, column{name: name, index: i})
		}
	}
	return cols
})

// Columns returns the column names in declaration order.
func Columns() []string {
	cols := recordColumns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// Values returns the field values in Columns order; absent fields are nil.
func (r *Record) Values() []any {
	v := reflect.ValueOf(r).Elem()
	cols := recordColumns()
	out := make([]any, len(cols))
	for i, c := range cols {
		f := v.Field(c.index)
		if f.IsNil() {
			continue
		}
		out[i] = f.Elem().Interface()
	}
	return out
}

// ScanTargets returns pointers to the fields in Columns order, suitable for
// sql.Rows.Scan.
func (r *Record) ScanTargets() []any {
	v := reflect.ValueOf(r).Elem()
	cols := recordColumns()
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = v.Field(c.index).Addr().Interface()
	}
	return out
}

// Present counts the fields that hold a value.
func (r *Record) Present() int {
	v := reflect.ValueOf(r).Elem()
	n := 0
	for _, c := range recordColumns() {
		if !v.Field(c.index).IsNil() {
			n++
		}
	}
	return n
}
