package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	minBPM         = 60.0
	maxBPM         = 200.0
	onsetGapSec    = 0.05
	onsetWindowSec = 0.5
	onsetRatio     = 1.5
)

func detectRhythm(raw *RawFeatures) {
	raw.Onsets = detectOnsets(raw.Flux, raw.FrameRate)
	raw.Tempo = estimateTempo(raw.Flux, raw.FrameRate)
	if raw.Tempo != nil {
		raw.Beats = beatGrid(raw.Flux, raw.FrameRate, raw.Tempo.BPM)
	}
}

// detectOnsets peak-picks the flux envelope against a moving average.
func detectOnsets(flux []float64, frameRate float64) []float64 {
	if len(flux) < 3 || frameRate <= 0 {
		return nil
	}
	floor := stat.Mean(flux, nil) * 0.1
	half := max(1, int(onsetWindowSec*frameRate/2))
	gap := max(1, int(math.Ceil(onsetGapSec*frameRate)))
	var onsets []float64
	last := -gap
	for i := 1; i < len(flux)-1; i++ {
		if flux[i] <= flux[i-1] || flux[i] < flux[i+1] || flux[i] <= floor {
			continue
		}
		lo, hi := max(0, i-half), min(len(flux), i+half+1)
		local := stat.Mean(flux[lo:hi], nil)
		if flux[i] < local*onsetRatio || i-last < gap {
			continue
		}
		onsets = append(onsets, float64(i)/frameRate)
		last = i
	}
	return onsets
}

// estimateTempo autocorrelates the mean-removed flux envelope over lags
// covering 60-200 BPM.
func estimateTempo(flux []float64, frameRate float64) *Tempo {
	if frameRate <= 0 {
		return nil
	}
	minLag := max(1, int(math.Floor(60*frameRate/maxBPM)))
	maxLag := int(math.Ceil(60 * frameRate / minBPM))
	if len(flux) < 2*maxLag+2 {
		return nil
	}
	mean := stat.Mean(flux, nil)
	centered := make([]float64, len(flux))
	for i, v := range flux {
		centered[i] = v - mean
	}
	ac := func(lag int) float64 {
		var sum float64
		for i := lag; i < len(centered); i++ {
			sum += centered[i] * centered[i-lag]
		}
		return sum / float64(len(centered)-lag)
	}
	zero := ac(0)
	if zero < 1e-12 {
		return nil
	}
	scores := make([]float64, maxLag+2)
	best, bestWeighted := minLag, math.Inf(-1)
	for lag := minLag; lag <= maxLag+1; lag++ {
		scores[lag] = ac(lag)
		if lag > maxLag {
			continue
		}
		if w := scores[lag] * tempoPrior(60*frameRate/float64(lag)); w > bestWeighted {
			best, bestWeighted = lag, w
		}
	}
	if scores[best] <= 0 {
		return nil
	}
	refined := float64(best)
	if best > minLag && best < maxLag {
		a, b, c := scores[best-1], scores[best], scores[best+1]
		if denom := a - 2*b + c; denom != 0 {
			refined += math.Max(-0.5, math.Min(0.5, 0.5*(a-c)/denom))
		}
	}
	bpm := 60 * frameRate / refined
	bpm = math.Max(minBPM, math.Min(maxBPM, bpm))
	return &Tempo{BPM: bpm, Confidence: math.Min(scores[best]/zero, 1)}
}

// tempoPrior is a log-normal weight centred on 120 BPM with a one octave
// spread; it resolves half/double tempo ambiguity toward moderate tempi.
func tempoPrior(bpm float64) float64 {
	octaves := math.Log2(bpm / 120)
	return math.Exp(-0.5 * octaves * octaves)
}

// beatGrid places beats on the tempo period at the phase that collects the
// most flux.
func beatGrid(flux []float64, frameRate, bpm float64) []float64 {
	period := 60 * frameRate / bpm
	if period < 1 {
		return nil
	}
	bestPhase, bestScore := 0, -1.0
	for phase := 0; phase < int(math.Ceil(period)); phase++ {
		var score float64
		for pos := float64(phase); int(math.Round(pos)) < len(flux); pos += period {
			score += flux[int(math.Round(pos))]
		}
		if score > bestScore {
			bestPhase, bestScore = phase, score
		}
	}
	var beats []float64
	for pos := float64(bestPhase); int(math.Round(pos)) < len(flux); pos += period {
		beats = append(beats, math.Round(pos)/frameRate)
	}
	return beats
}
