package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Krumhansl-Kessler probe tone profiles, tonic first.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

const (
	keyAlternativeMargin = 0.05
	chordWindowSec       = 1.0
	chordMinMatch        = 0.5
)

func meanChroma(chroma [][]float64, from, to int) []float64 {
	out := make([]float64, len(chroma))
	if to <= from {
		return out
	}
	for pc, series := range chroma {
		var sum float64
		for _, v := range series[from:to] {
			sum += v
		}
		out[pc] = sum / float64(to-from)
	}
	return out
}

func rotate(profile []float64, tonic int) []float64 {
	out := make([]float64, 12)
	for pc := range 12 {
		out[(pc+tonic)%12] = profile[pc]
	}
	return out
}

func estimateKey(raw *RawFeatures) {
	if len(raw.Chroma) != 12 || len(raw.Chroma[0]) == 0 {
		return
	}
	avg := meanChroma(raw.Chroma, 0, len(raw.Chroma[0]))
	if stat.Variance(avg, nil) < 1e-12 {
		return
	}
	type candidate struct {
		tonic int
		mode  Mode
		r     float64
	}
	candidates := make([]candidate, 0, 24)
	for tonic := range 12 {
		candidates = append(candidates,
			candidate{tonic, ModeMajor, stat.Correlation(avg, rotate(majorProfile, tonic), nil)},
			candidate{tonic, ModeMinor, stat.Correlation(avg, rotate(minorProfile, tonic), nil)},
		)
	}
	best := candidates[0]
	bestMajor, bestMinor := math.Inf(-1), math.Inf(-1)
	for _, c := range candidates {
		if c.r > best.r {
			best = c
		}
		if c.mode == ModeMajor {
			bestMajor = math.Max(bestMajor, c.r)
		} else {
			bestMinor = math.Max(bestMinor, c.r)
		}
	}
	if math.IsNaN(best.r) {
		return
	}
	alternatives := 0
	for _, c := range candidates {
		if c != best && c.r >= best.r-keyAlternativeMargin {
			alternatives++
		}
	}
	raw.Key = &Key{
		Tonic:        best.tonic,
		Mode:         best.mode,
		Confidence:   math.Max(best.r, 0),
		Clarity:      math.Abs(bestMajor - bestMinor),
		Alternatives: alternatives,
	}
}

type chordTemplate struct {
	label string
	notes [12]float64
}

var chordTemplates = func() []chordTemplate {
	out := make([]chordTemplate, 0, 24)
	for root := range 12 {
		var major, minor [12]float64
		major[root], major[(root+4)%12], major[(root+7)%12] = 1, 1, 1
		minor[root], minor[(root+3)%12], minor[(root+7)%12] = 1, 1, 1
		out = append(out,
			chordTemplate{label: pitchClassNames[root], notes: major},
			chordTemplate{label: pitchClassNames[root] + "m", notes: minor},
		)
	}
	return out
}()

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na < 1e-20 || nb < 1e-20 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

// detectChords matches one-second chroma averages against major and minor
// triads and merges consecutive identical matches.
func detectChords(raw *RawFeatures) {
	if len(raw.Chroma) != 12 || raw.FrameRate <= 0 {
		return
	}
	frames := len(raw.Chroma[0])
	step := max(1, int(math.Round(chordWindowSec*raw.FrameRate)))
	var chords []Chord
	var matches int
	for from := 0; from < frames; from += step {
		to := min(frames, from+step)
		avg := meanChroma(raw.Chroma, from, to)
		label, score := "", 0.0
		for _, tpl := range chordTemplates {
			if s := cosine(avg, tpl.notes[:]); s > score {
				label, score = tpl.label, s
			}
		}
		start := float64(from) / raw.FrameRate
		length := float64(to-from) / raw.FrameRate
		if score < chordMinMatch {
			matches = 0
			chords = append(chords, Chord{Start: start, Duration: length, Label: ""})
			continue
		}
		last := len(chords) - 1
		if last >= 0 && chords[last].Label == label {
			chords[last].Duration += length
			chords[last].Confidence = (chords[last].Confidence*float64(matches) + score) / float64(matches+1)
			matches++
			continue
		}
		matches = 1
		chords = append(chords, Chord{Start: start, Duration: length, Label: label, Confidence: score})
	}
	raw.Chords = chords[:0]
	for _, c := range chords {
		if c.Label != "" {
			raw.Chords = append(raw.Chords, c)
		}
	}
}
