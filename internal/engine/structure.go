package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	noveltyHalfWindow = 4 // seconds each side
	minSegmentSec     = 8.0
	tensionSmoothing  = 5 // seconds
	tensionThreshold  = 3.0
	repetitionMinLag  = 4 // seconds
	repetitionMatch   = 0.9
	transitionLevelDB = 3.0
)

// Segment energy labels.
const (
	LabelQuiet    = "quiet"
	LabelModerate = "moderate"
	LabelIntense  = "intense"
)

// Transition kinds.
const (
	TransitionLift  = "lift"
	TransitionDrop  = "drop"
	TransitionShift = "shift"
)

// Tension changes.
const (
	TensionBuild   = "build"
	TensionRelease = "release"
)

// shortTermEnergy is the RMS of consecutive one-second windows.
func shortTermEnergy(mono []float64, sampleRate int, raw *RawFeatures) {
	raw.ShortTermPeriod = 1
	window := sampleRate
	for start := 0; start+window <= len(mono); start += window {
		var sumSq float64
		for _, v := range mono[start : start+window] {
			sumSq += v * v
		}
		raw.ShortTermRMS = append(raw.ShortTermRMS, math.Sqrt(sumSq/float64(window)))
	}
}

// perSecond averages a frame series over one-second windows.
func perSecond(series []float64, frameRate float64, seconds int) []float64 {
	out := make([]float64, seconds)
	for sec := range seconds {
		from := int(float64(sec) * frameRate)
		to := min(len(series), int(float64(sec+1)*frameRate))
		if to > from {
			out[sec] = stat.Mean(series[from:to], nil)
		}
	}
	return out
}

func zscore(values []float64) []float64 {
	mean, std := stat.PopMeanStdDev(values, nil)
	out := make([]float64, len(values))
	if std < 1e-12 {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// novelty compares the mean of the feature vectors before and after each
// second.
func novelty(features [][]float64, seconds int) []float64 {
	out := make([]float64, seconds)
	for t := noveltyHalfWindow; t+noveltyHalfWindow <= seconds; t++ {
		var score float64
		for _, f := range features {
			before := stat.Mean(f[t-noveltyHalfWindow:t], nil)
			after := stat.Mean(f[t:t+noveltyHalfWindow], nil)
			score += math.Abs(after - before)
		}
		out[t] = score
	}
	return out
}

func detectStructure(raw *RawFeatures) {
	seconds := len(raw.ShortTermRMS)
	if seconds == 0 || raw.FrameRate <= 0 {
		return
	}
	levels := make([]float64, seconds)
	for i, v := range raw.ShortTermRMS {
		levels[i] = toDB(v)
	}
	features := [][]float64{
		zscore(levels),
		zscore(perSecond(raw.Centroid, raw.FrameRate, seconds)),
		zscore(perSecond(raw.Flatness, raw.FrameRate, seconds)),
	}
	curve := novelty(features, seconds)
	boundaries := pickBoundaries(curve, raw.Duration)

	edges := append([]float64{0}, boundaries...)
	edges = append(edges, raw.Duration)
	trackEnergy := raw.RMS
	for i := 0; i+1 < len(edges); i++ {
		raw.Segments = append(raw.Segments, describeSegment(raw, edges[i], edges[i+1], trackEnergy))
	}

	peakNovelty := 0.0
	for _, v := range curve {
		peakNovelty = math.Max(peakNovelty, v)
	}
	for i, at := range boundaries {
		before, after := raw.Segments[i], raw.Segments[i+1]
		delta := toDB(after.Energy) - toDB(before.Energy)
		kind := TransitionShift
		switch {
		case delta >= transitionLevelDB:
			kind = TransitionLift
		case delta <= -transitionLevelDB:
			kind = TransitionDrop
		}
		sec := min(seconds-1, int(at))
		strength := 0.0
		if peakNovelty > 0 {
			strength = curve[sec] / peakNovelty
		}
		raw.Transitions = append(raw.Transitions, Transition{
			Time:     at,
			Kind:     kind,
			Strength: strength,
			Duration: peakWidth(curve, sec),
		})
	}
}

// pickBoundaries keeps novelty maxima above mean+std that leave at least
// minSegmentSec on each side.
func pickBoundaries(curve []float64, duration float64) []float64 {
	if len(curve) < 3 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(curve, nil)
	threshold := mean + std
	var out []float64
	last := 0.0
	for t := 1; t+1 < len(curve); t++ {
		v := curve[t]
		if v <= threshold || v < curve[t-1] || v < curve[t+1] {
			continue
		}
		at := float64(t)
		if at-last < minSegmentSec || duration-at < minSegmentSec {
			continue
		}
		out = append(out, at)
		last = at
	}
	return out
}

func peakWidth(curve []float64, at int) float64 {
	half := curve[at] / 2
	lo, hi := at, at
	for lo > 0 && curve[lo-1] >= half {
		lo--
	}
	for hi+1 < len(curve) && curve[hi+1] >= half {
		hi++
	}
	return float64(hi - lo + 1)
}

func describeSegment(raw *RawFeatures, start, end, trackEnergy float64) Segment {
	from := int(start * raw.FrameRate)
	to := min(len(raw.FrameRMS), int(end*raw.FrameRate))
	seg := Segment{Start: start, End: end, Label: LabelModerate}
	if to <= from {
		return seg
	}
	seg.Energy = stat.Mean(raw.FrameRMS[from:to], nil)
	seg.Centroid = stat.Mean(raw.Centroid[from:to], nil)
	seg.ZCR = stat.Mean(raw.ZCR[from:to], nil)
	lo, hi := math.Inf(1), 0.0
	for _, v := range raw.FrameRMS[from:to] {
		hi = math.Max(hi, v)
		if v > 1e-6 {
			lo = math.Min(lo, v)
		}
	}
	if hi > 0 && !math.IsInf(lo, 1) {
		seg.DynamicRange = toDB(hi) - toDB(lo)
	}
	switch {
	case seg.Energy < 0.7*trackEnergy:
		seg.Label = LabelQuiet
	case seg.Energy > 1.3*trackEnergy:
		seg.Label = LabelIntense
	}
	return seg
}

// detectTension zigzags over the smoothed short-term level and records each
// turning point that follows a move of at least tensionThreshold dB.
func detectTension(raw *RawFeatures) {
	n := len(raw.ShortTermRMS)
	if n < 2 {
		return
	}
	levels := make([]float64, n)
	for i, v := range raw.ShortTermRMS {
		levels[i] = toDB(v)
	}
	smooth := make([]float64, n)
	for i := range levels {
		lo, hi := max(0, i-tensionSmoothing/2), min(n, i+tensionSmoothing/2+1)
		smooth[i] = stat.Mean(levels[lo:hi], nil)
	}

	emit := func(idx int, change string) {
		value := smooth[idx]
		raw.Tension = append(raw.Tension, TensionPoint{
			Time:   float64(idx) * raw.ShortTermPeriod,
			Value:  value,
			Change: change,
		})
	}

	trend, extreme, lo, hi := 0, 0, 0, 0
	for i := 1; i < n; i++ {
		v := smooth[i]
		switch trend {
		case 0:
			if v < smooth[lo] {
				lo = i
			}
			if v > smooth[hi] {
				hi = i
			}
			if v-smooth[lo] >= tensionThreshold {
				trend, extreme = 1, i
			} else if smooth[hi]-v >= tensionThreshold {
				trend, extreme = -1, i
			}
		case 1:
			if v > smooth[extreme] {
				extreme = i
			} else if smooth[extreme]-v >= tensionThreshold {
				emit(extreme, TensionBuild)
				trend, extreme = -1, i
			}
		case -1:
			if v < smooth[extreme] {
				extreme = i
			} else if v-smooth[extreme] >= tensionThreshold {
				emit(extreme, TensionRelease)
				trend, extreme = 1, i
			}
		}
	}
	switch trend {
	case 1:
		emit(extreme, TensionBuild)
	case -1:
		emit(extreme, TensionRelease)
	}
}

// measureRepetition compares one-second chroma vectors at least
// repetitionMinLag apart.
func measureRepetition(raw *RawFeatures) {
	if len(raw.Chroma) != 12 || raw.FrameRate <= 0 {
		return
	}
	seconds := int(raw.Duration)
	if seconds <= repetitionMinLag {
		return
	}
	windows := make([][]float64, seconds)
	for sec := range seconds {
		from := int(float64(sec) * raw.FrameRate)
		to := min(len(raw.Chroma[0]), int(float64(sec+1)*raw.FrameRate))
		windows[sec] = meanChroma(raw.Chroma, from, to)
	}
	var total float64
	count := 0
	for i := range windows {
		best := 0.0
		for j := range windows {
			if abs(i-j) < repetitionMinLag {
				continue
			}
			best = math.Max(best, cosine(windows[i], windows[j]))
		}
		total += best
		if best >= repetitionMatch {
			count++
		}
	}
	raw.Repetition = &Repetition{Similarity: total / float64(seconds), Count: count}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
