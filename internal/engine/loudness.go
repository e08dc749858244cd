package engine

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"setbreak/internal/audio"
)

const (
	absoluteGateLUFS = -70.0
	integratedGateLU = -10.0
	rangeGateLU      = -20.0
	subBlockSeconds  = 0.1
	momentaryBlocks  = 4  // 400 ms
	shortTermBlocks  = 30 // 3 s
	shortTermStep    = 10 // 1 s
)

type biquad struct {
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// kWeighting returns the two-stage BS.1770 pre-filter for a sample rate.
func kWeighting(sampleRate int) (shelf, highpass biquad) {
	fs := float64(sampleRate)

	f0 := 1681.974450955533
	gain := 3.999843853973347
	q := 0.7071752369554196
	k := math.Tan(math.Pi * f0 / fs)
	vh := math.Pow(10, gain/20)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1 + k/q + k*k
	shelf = biquad{
		b0: (vh + vb*k/q + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/q + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}

	f0 = 38.13547087602444
	q = 0.5003270373238773
	k = math.Tan(math.Pi * f0 / fs)
	a0 = 1 + k/q + k*k
	highpass = biquad{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
	return shelf, highpass
}

func energyToLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return math.Inf(-1)
	}
	return -0.691 + 10*math.Log10(meanSquare)
}

// measureLoudness returns nil for buffers shorter than one momentary block
// and for digital silence.
func measureLoudness(buf *audio.Buffer) *Loudness {
	subLen := int(float64(buf.SampleRate) * subBlockSeconds)
	frames := buf.Frames()
	if subLen == 0 || frames < subLen*momentaryBlocks {
		return nil
	}
	peak := buf.Peak()
	if peak < 1e-9 {
		return nil
	}

	// sum of K-weighted squares per 100 ms sub-block, summed over channels
	subs := make([]float64, frames/subLen)
	for c := range buf.Channels {
		shelf, hp := kWeighting(buf.SampleRate)
		for i := range len(subs) * subLen {
			y := hp.process(shelf.process(buf.Samples[i*buf.Channels+c]))
			subs[i/subLen] += y * y
		}
	}

	window := func(start, blocks int) float64 {
		var sum float64
		for _, v := range subs[start : start+blocks] {
			sum += v
		}
		return sum / float64(blocks*subLen)
	}

	out := &Loudness{
		SamplePeakDB: toDB(peak),
		MomentaryMax: math.Inf(-1),
		ShortTermMax: math.Inf(-1),
	}

	var momentary []float64
	for start := 0; start+momentaryBlocks <= len(subs); start++ {
		e := window(start, momentaryBlocks)
		momentary = append(momentary, e)
		out.MomentaryMax = math.Max(out.MomentaryMax, energyToLUFS(e))
	}
	integrated, ok := gatedMean(momentary, integratedGateLU)
	if !ok {
		return nil
	}
	out.Integrated = integrated

	var shortTerm []float64
	for start := 0; start+shortTermBlocks <= len(subs); start += shortTermStep {
		e := window(start, shortTermBlocks)
		shortTerm = append(shortTerm, e)
		l := energyToLUFS(e)
		out.ShortTermMax = math.Max(out.ShortTermMax, l)
		out.ShortTerm = append(out.ShortTerm, math.Max(l, absoluteGateLUFS))
	}
	if len(shortTerm) == 0 {
		out.ShortTermMax = out.MomentaryMax
	}
	out.Range = loudnessRange(shortTerm)
	out.MomentaryMax = math.Max(out.MomentaryMax, absoluteGateLUFS)
	out.ShortTermMax = math.Max(out.ShortTermMax, absoluteGateLUFS)
	return out
}

// gatedMean applies the absolute gate and then a relative gate offset LU
// below the absolute-gated mean.
func gatedMean(energies []float64, offset float64) (float64, bool) {
	var sum float64
	var kept []float64
	for _, e := range energies {
		if energyToLUFS(e) > absoluteGateLUFS {
			kept = append(kept, e)
			sum += e
		}
	}
	if len(kept) == 0 {
		return 0, false
	}
	relative := energyToLUFS(sum/float64(len(kept))) + offset
	sum = 0
	count := 0
	for _, e := range kept {
		if energyToLUFS(e) > relative {
			sum += e
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return energyToLUFS(sum / float64(count)), true
}

func loudnessRange(shortTerm []float64) float64 {
	var sum float64
	var kept []float64
	for _, e := range shortTerm {
		if energyToLUFS(e) > absoluteGateLUFS {
			kept = append(kept, e)
			sum += e
		}
	}
	if len(kept) < 2 {
		return 0
	}
	relative := energyToLUFS(sum/float64(len(kept))) + rangeGateLU
	var levels []float64
	for _, e := range kept {
		if l := energyToLUFS(e); l > relative {
			levels = append(levels, l)
		}
	}
	if len(levels) < 2 {
		return 0
	}
	slices.Sort(levels)
	return stat.Quantile(0.95, stat.LinInterp, levels, nil) - stat.Quantile(0.10, stat.LinInterp, levels, nil)
}
