package engine

import (
	"context"
	"math"
	"math/cmplx"
	"slices"

	"github.com/mjibson/go-dsp/fft"

	"setbreak/internal/services"
)

const (
	melFilters   = 26
	mfccCount    = 13
	chromaLowHz  = 55.0
	chromaHighHz = 5000.0
	rolloffShare = 0.85
	fluxScale    = 100.0
	// contrast keeps this share of each band's bins as peak and valley
	contrastQuantile = 0.02
)

// Octave band edges for spectral contrast; the last band runs to Nyquist.
var contrastEdges = []float64{0, 200, 400, 800, 1600, 3200, 6400}

// Sub-band boundaries in Hz; presence runs to Nyquist.
const (
	bassLowHz      = 20.0
	bassHighHz     = 250.0
	midHighHz      = 2000.0
	highHighHz     = 6000.0
	pitchLowHz     = 50.0
	pitchHighHz    = 2000.0
	pitchThreshold = 0.2
)

type melWeight struct {
	bin    int
	weight float64
}

// spectral runs the STFT and fills every per-frame series.
func (s *session) spectral(ctx context.Context, mono []float64, sampleRate int, raw *RawFeatures) error {
	n := s.opts.FrameSize
	hop := s.opts.HopSize
	if len(mono) < n {
		padded := make([]float64, n)
		copy(padded, mono)
		mono = padded
	}
	frames := 1 + (len(mono)-n)/hop
	s.prepareBanks(sampleRate)

	raw.FrameRMS = make([]float64, frames)
	raw.ZCR = make([]float64, frames)
	raw.Centroid = make([]float64, frames)
	raw.Bandwidth = make([]float64, frames)
	raw.Rolloff = make([]float64, frames)
	raw.Flatness = make([]float64, frames)
	raw.Flux = make([]float64, frames)
	raw.Bass = make([]float64, frames)
	raw.Mid = make([]float64, frames)
	raw.High = make([]float64, frames)
	raw.Presence = make([]float64, frames)
	raw.MFCC = bandMatrix(mfccCount, frames)
	raw.Contrast = bandMatrix(len(contrastEdges), frames)
	raw.Chroma = bandMatrix(12, frames)
	raw.Tonnetz = bandMatrix(6, frames)
	raw.Pitch = make([]PitchFrame, frames)

	binHz := float64(sampleRate) / float64(n)
	norm := 0.0
	for _, w := range s.window {
		norm += w
	}
	norm = 2 / norm

	power := make([]float64, len(s.mags))
	mel := make([]float64, melFilters)
	chroma := make([]float64, 12)
	scratch := make([]float64, 0, len(s.mags))
	clear(s.prevMags)

	for i := range frames {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return services.Wrap(services.ErrEngine, "analyze", "stft", "cancelled", err)
			}
		}
		start := i * hop
		copy(s.frame, mono[start:start+n])
		raw.FrameRMS[i], raw.ZCR[i] = frameEnergy(s.frame)
		for j, v := range s.frame {
			s.windowed[j] = v * s.window[j]
		}
		spectrum := fft.FFTReal(s.windowed)
		for k := range s.mags {
			s.mags[k] = cmplx.Abs(spectrum[k]) * norm
			power[k] = s.mags[k] * s.mags[k]
		}

		centroid, bandwidth := spectralShape(s.mags, binHz)
		raw.Centroid[i] = centroid
		raw.Bandwidth[i] = bandwidth
		raw.Rolloff[i] = rolloff(power, binHz)
		raw.Flatness[i] = flatness(power)
		if i > 0 {
			raw.Flux[i] = positiveFlux(s.mags, s.prevMags)
		}
		copy(s.prevMags, s.mags)

		bass, mid, high, presence := subBands(power, binHz)
		raw.Bass[i], raw.Mid[i], raw.High[i], raw.Presence[i] = bass, mid, high, presence

		s.applyMel(power, mel)
		for c, v := range mfcc(mel) {
			raw.MFCC[c][i] = v
		}
		for b, v := range contrast(s.mags, binHz, scratch) {
			raw.Contrast[b][i] = v
		}
		s.applyChroma(power, chroma)
		for pc, v := range chroma {
			raw.Chroma[pc][i] = v
		}
		for d, v := range tonnetz(chroma) {
			raw.Tonnetz[d][i] = v
		}
		raw.Pitch[i] = estimatePitch(power, binHz)
	}
	return nil
}

func bandMatrix(bands, frames int) [][]float64 {
	out := make([][]float64, bands)
	for b := range out {
		out[b] = make([]float64, frames)
	}
	return out
}

func frameEnergy(frame []float64) (rms, zcr float64) {
	var sumSq float64
	crossings := 0
	for j, v := range frame {
		sumSq += v * v
		if j > 0 && (v >= 0) != (frame[j-1] >= 0) {
			crossings++
		}
	}
	rms = math.Sqrt(sumSq / float64(len(frame)))
	if len(frame) > 1 {
		zcr = float64(crossings) / float64(len(frame)-1)
	}
	return rms, zcr
}

func spectralShape(mags []float64, binHz float64) (centroid, bandwidth float64) {
	var weighted, total float64
	for k, m := range mags {
		weighted += float64(k) * binHz * m
		total += m
	}
	if total < 1e-12 {
		return 0, 0
	}
	centroid = weighted / total
	var spread float64
	for k, m := range mags {
		d := float64(k)*binHz - centroid
		spread += m * d * d
	}
	return centroid, math.Sqrt(spread / total)
}

func rolloff(power []float64, binHz float64) float64 {
	var total float64
	for _, p := range power {
		total += p
	}
	if total < 1e-20 {
		return 0
	}
	target := total * rolloffShare
	var acc float64
	for k, p := range power {
		acc += p
		if acc >= target {
			return float64(k) * binHz
		}
	}
	return float64(len(power)-1) * binHz
}

func flatness(power []float64) float64 {
	const eps = 1e-20
	var logSum, sum float64
	count := 0
	for _, p := range power[1:] {
		logSum += math.Log(p + eps)
		sum += p + eps
		count++
	}
	if count == 0 || sum < 1e-18 {
		return 0
	}
	geo := math.Exp(logSum / float64(count))
	return math.Min(geo/(sum/float64(count)), 1)
}

func positiveFlux(mags, prev []float64) float64 {
	var flux float64
	for k, m := range mags {
		if d := m - prev[k]; d > 0 {
			flux += d
		}
	}
	return flux * fluxScale
}

func subBands(power []float64, binHz float64) (bass, mid, high, presence float64) {
	var total float64
	for k, p := range power {
		f := float64(k) * binHz
		if f < bassLowHz {
			continue
		}
		total += p
		switch {
		case f < bassHighHz:
			bass += p
		case f < midHighHz:
			mid += p
		case f < highHighHz:
			high += p
		default:
			presence += p
		}
	}
	if total < 1e-20 {
		return 0, 0, 0, 0
	}
	return bass / total, mid / total, high / total, presence / total
}

// prepareBanks rebuilds the mel and chroma maps when the sample rate changes.
func (s *session) prepareBanks(sampleRate int) {
	if s.bankRate == sampleRate && s.melBank != nil {
		return
	}
	s.bankRate = sampleRate
	bins := len(s.mags)
	binHz := float64(sampleRate) / float64(s.opts.FrameSize)

	hzToMel := func(f float64) float64 { return 2595 * math.Log10(1+f/700) }
	melToHz := func(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }
	top := hzToMel(float64(sampleRate) / 2)
	centers := make([]float64, melFilters+2)
	for i := range centers {
		centers[i] = melToHz(top * float64(i) / float64(melFilters+1))
	}
	s.melBank = make([][]melWeight, melFilters)
	for m := range melFilters {
		lo, mid, hi := centers[m], centers[m+1], centers[m+2]
		var weights []melWeight
		for k := range bins {
			f := float64(k) * binHz
			var w float64
			switch {
			case f > lo && f <= mid && mid > lo:
				w = (f - lo) / (mid - lo)
			case f > mid && f < hi && hi > mid:
				w = (hi - f) / (hi - mid)
			}
			if w > 0 {
				weights = append(weights, melWeight{bin: k, weight: w})
			}
		}
		s.melBank[m] = weights
	}

	s.chromaMap = make([]int, bins)
	for k := range bins {
		f := float64(k) * binHz
		if f < chromaLowHz || f > chromaHighHz {
			s.chromaMap[k] = -1
			continue
		}
		// A4 = 440 Hz is pitch class 9
		semis := int(math.Round(12 * math.Log2(f/440)))
		s.chromaMap[k] = ((semis+9)%12 + 12) % 12
	}
}

func (s *session) applyMel(power, out []float64) {
	for m, weights := range s.melBank {
		var e float64
		for _, w := range weights {
			e += power[w.bin] * w.weight
		}
		out[m] = e
	}
}

func (s *session) applyChroma(power, out []float64) {
	clear(out)
	for k, pc := range s.chromaMap {
		if pc >= 0 {
			out[pc] += power[k]
		}
	}
	peak := slices.Max(out)
	if peak < 1e-20 {
		clear(out)
		return
	}
	for pc := range out {
		out[pc] /= peak
	}
}

func mfcc(mel []float64) []float64 {
	logMel := make([]float64, len(mel))
	for m, e := range mel {
		logMel[m] = math.Log(math.Max(e, 1e-10))
	}
	coeffs := make([]float64, mfccCount)
	scale := math.Sqrt(2 / float64(len(mel)))
	for c := range coeffs {
		var sum float64
		for m, v := range logMel {
			sum += v * math.Cos(math.Pi*float64(c)*(float64(m)+0.5)/float64(len(mel)))
		}
		coeffs[c] = sum * scale
	}
	coeffs[0] /= math.Sqrt2
	return coeffs
}

func contrast(mags []float64, binHz float64, scratch []float64) []float64 {
	out := make([]float64, len(contrastEdges))
	for b, lo := range contrastEdges {
		hi := math.Inf(1)
		if b+1 < len(contrastEdges) {
			hi = contrastEdges[b+1]
		}
		scratch = scratch[:0]
		for k, m := range mags {
			f := float64(k) * binHz
			if f >= lo && f < hi {
				scratch = append(scratch, m*m)
			}
		}
		if len(scratch) == 0 {
			continue
		}
		slices.Sort(scratch)
		take := max(1, int(math.Round(float64(len(scratch))*contrastQuantile)))
		var valley, peak float64
		for j := range take {
			valley += scratch[j]
			peak += scratch[len(scratch)-1-j]
		}
		valley /= float64(take)
		peak /= float64(take)
		out[b] = 10*math.Log10(peak+1e-12) - 10*math.Log10(valley+1e-12)
	}
	return out
}

// tonnetz projects a chroma vector onto the six tonal centroid dimensions:
// fifths, minor thirds and major thirds as sin/cos pairs.
func tonnetz(chroma []float64) []float64 {
	out := make([]float64, 6)
	var total float64
	for _, v := range chroma {
		total += v
	}
	if total < 1e-12 {
		return out
	}
	radii := [3]float64{1, 1, 0.5}
	angles := [3]float64{7 * math.Pi / 6, 3 * math.Pi / 2, 2 * math.Pi / 3}
	for pc, v := range chroma {
		w := v / total
		for d := range 3 {
			a := float64(pc) * angles[d]
			out[2*d] += w * radii[d] * math.Sin(a)
			out[2*d+1] += w * radii[d] * math.Cos(a)
		}
	}
	return out
}

// estimatePitch picks the strongest spectral peak between 50 Hz and 2 kHz and
// scores how much of the frame's energy sits on it and its first harmonics.
func estimatePitch(power []float64, binHz float64) PitchFrame {
	lo := max(1, int(math.Ceil(pitchLowHz/binHz)))
	hi := min(len(power)-2, int(pitchHighHz/binHz))
	if hi <= lo {
		return PitchFrame{}
	}
	best := lo
	for k := lo + 1; k <= hi; k++ {
		if power[k] > power[best] {
			best = k
		}
	}
	var total float64
	for _, p := range power[1:] {
		total += p
	}
	if total < 1e-20 {
		return PitchFrame{}
	}
	var harmonic float64
	for h := 1; h <= 3; h++ {
		center := best * h
		for k := center - 1; k <= center+1; k++ {
			if k > 0 && k < len(power) {
				harmonic += power[k]
			}
		}
	}
	confidence := math.Min(harmonic/total, 1)
	if confidence < pitchThreshold {
		return PitchFrame{Confidence: confidence}
	}
	// parabolic interpolation on log power
	a := math.Log(power[best-1] + 1e-20)
	b := math.Log(power[best] + 1e-20)
	c := math.Log(power[best+1] + 1e-20)
	offset := 0.0
	if denom := a - 2*b + c; denom != 0 {
		offset = math.Max(-0.5, math.Min(0.5, 0.5*(a-c)/denom))
	}
	return PitchFrame{Hz: (float64(best) + offset) * binHz, Confidence: confidence}
}
