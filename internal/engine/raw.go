package engine

// Mode is a key's tonality.
type Mode string

const (
	ModeMajor Mode = "major"
	ModeMinor Mode = "minor"
)

// RawFeatures is the unreduced output of one analysis pass. Per-frame series
// share FrameRate; band matrices are band-major (outer index = band, inner
// index = frame). Optional results are nil pointers.
type RawFeatures struct {
	SampleRate int
	Channels   int
	Duration   float64
	FrameRate  float64

	Peak          float64
	RMS           float64
	DCOffset      float64
	ClippingRatio float64
	NoiseFloorDB  float64
	SNRDB         float64

	FrameRMS  []float64
	ZCR       []float64
	Centroid  []float64
	Bandwidth []float64
	Rolloff   []float64
	Flatness  []float64
	Flux      []float64

	Bass     []float64
	Mid      []float64
	High     []float64
	Presence []float64

	MFCC     [][]float64
	Contrast [][]float64
	Chroma   [][]float64
	Tonnetz  [][]float64

	Loudness *Loudness

	Onsets          []float64
	Tempo           *Tempo
	Beats           []float64
	Pitch           []PitchFrame
	Key             *Key
	Chords          []Chord
	Segments        []Segment
	Transitions     []Transition
	Tension         []TensionPoint
	Repetition      *Repetition
	ShortTermRMS    []float64
	ShortTermPeriod float64
}

// Loudness holds BS.1770 style measurements in LUFS / LU / dBFS.
type Loudness struct {
	Integrated   float64
	Range        float64
	MomentaryMax float64
	ShortTermMax float64
	SamplePeakDB float64
	// ShortTerm is the ungated 3 s loudness sampled once per second.
	ShortTerm []float64
}

// Tempo is the dominant periodicity of the onset envelope.
type Tempo struct {
	BPM        float64
	Confidence float64
}

// PitchFrame is the fundamental estimate of one frame; Hz is zero when the
// frame is unpitched.
type PitchFrame struct {
	Hz         float64
	Confidence float64
}

// Key is the best matching key profile.
type Key struct {
	Tonic      int
	Mode       Mode
	Confidence float64
	// Clarity is the correlation margin between the best major and best minor key.
	Clarity float64
	// Alternatives counts other keys within 0.05 correlation of the best.
	Alternatives int
}

// Chord is a run of windows matching the same triad.
type Chord struct {
	Start      float64
	Duration   float64
	Label      string
	Confidence float64
}

// Segment is a structural section between novelty boundaries.
type Segment struct {
	Start        float64
	End          float64
	Energy       float64
	Centroid     float64
	ZCR          float64
	DynamicRange float64
	Label        string
}

// Transition is a segment boundary.
type Transition struct {
	Time     float64
	Kind     string
	Strength float64
	Duration float64
}

// TensionPoint marks the end of a sustained energy build or release.
type TensionPoint struct {
	Time   float64
	Value  float64
	Change string
}

// Repetition summarizes how often harmonic material recurs.
type Repetition struct {
	Similarity float64
	Count      int
}

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// KeyName renders a key such as "F# minor".
func KeyName(k *Key) string {
	if k == nil {
		return ""
	}
	return pitchClassNames[((k.Tonic%12)+12)%12] + " " + string(k.Mode)
}
