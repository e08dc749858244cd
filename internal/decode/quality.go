package decode

import (
	"fmt"
	"math"

	"setbreak/internal/audio"
	"setbreak/internal/config"
)

const clipLevel = 0.999

// Thresholds configures the detectors.
type Thresholds struct {
	Window               int
	HotLevel             float64
	BitstreamHotFraction float64
	SuspectHotFraction   float64
	SuspectClipRatio     float64
	SilencePeak          float64
}

// ThresholdsFromConfig copies the [quality] section.
func ThresholdsFromConfig(q config.Quality) Thresholds {
	return Thresholds{
		Window:               q.BitstreamWindow,
		HotLevel:             q.HotLevel,
		BitstreamHotFraction: q.BitstreamHotFraction,
		SuspectHotFraction:   q.SuspectHotFraction,
		SuspectClipRatio:     q.SuspectClipRatio,
		SilencePeak:          q.SilencePeak,
	}
}

// HotFraction returns the share of the first window samples whose magnitude
// exceeds level. A non-positive window covers the whole slice.
func HotFraction(samples []float64, window int, level float64) float64 {
	if window <= 0 || window > len(samples) {
		window = len(samples)
	}
	if window == 0 {
		return 0
	}
	hot := 0
	for _, s := range samples[:window] {
		if math.Abs(s) > level {
			hot++
		}
	}
	return float64(hot) / float64(window)
}

// DetectBitstream fails when the head of the buffer looks like compressed
// data read as PCM: real recordings almost never keep a quarter of their
// opening samples near full scale.
func DetectBitstream(buf *audio.Buffer, th Thresholds) error {
	fraction := HotFraction(buf.Samples, th.Window, th.HotLevel)
	if fraction > th.BitstreamHotFraction {
		return &Error{
			Kind:   KindBitstreamMisclassified,
			Detail: fmt.Sprintf("%.0f%% of the first %d samples exceed %.2f", fraction*100, min(th.Window, len(buf.Samples)), th.HotLevel),
		}
	}
	return nil
}

// Assess classifies a buffer that passed DetectBitstream.
func Assess(buf *audio.Buffer, th Thresholds) audio.Quality {
	if buf.Peak() < th.SilencePeak {
		return audio.QualityGarbage
	}
	if HotFraction(buf.Samples, 0, th.HotLevel) > th.BitstreamHotFraction {
		return audio.QualityGarbage
	}
	if HotFraction(buf.Samples, 0, clipLevel) > th.SuspectClipRatio {
		return audio.QualitySuspect
	}
	if HotFraction(buf.Samples, th.Window, th.HotLevel) > th.SuspectHotFraction {
		return audio.QualitySuspect
	}
	return audio.QualityOK
}
