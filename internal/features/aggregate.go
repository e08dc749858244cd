package features

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"setbreak/internal/engine"
)

const (
	onsetDensityWindow   = 10.0 // seconds
	minOnsetDensitySpan  = 20.0
	onsetIntervalBins    = 20
	onsetIntervalMaxSec  = 0.5
	beatAlignmentSec     = 0.07
	confidentPitch       = 0.5
	soloMinSeconds       = 20.0
	minEnergyShapePoints = 6
	minPeakTimePoints    = 10
)

// Energy shapes.
const (
	ShapeBuilding = "building"
	ShapeFading   = "fading"
	ShapeArc      = "arc"
	ShapeValley   = "valley"
	ShapeFlat     = "flat"
)

// Aggregate reduces raw engine output to a Record and its Details. It is pure:
// the same input always yields the same output.
func Aggregate(raw *engine.RawFeatures) (Record, Details) {
	var rec Record
	if raw == nil {
		return rec, Details{}
	}
	signal(&rec, raw)
	loudness(&rec, raw)
	spectralShape(&rec, raw)
	subBands(&rec, raw)
	timbre(&rec, raw)
	rhythm(&rec, raw)
	pitch(&rec, raw)
	harmony(&rec, raw)
	structure(&rec, raw)
	energyProfile(&rec, raw)
	correlations(&rec, raw)

	details := Details{
		Chords:      slices.Clone(raw.Chords),
		Segments:    slices.Clone(raw.Segments),
		Tension:     slices.Clone(raw.Tension),
		Transitions: slices.Clone(raw.Transitions),
	}
	return rec, details
}

func signal(rec *Record, raw *engine.RawFeatures) {
	if raw.Duration > 0 {
		rec.Duration = finite(raw.Duration)
	}
	if raw.SampleRate > 0 {
		rec.SampleRate = count(raw.SampleRate)
	}
	if raw.Channels > 0 {
		rec.Channels = count(raw.Channels)
	}
	if len(raw.FrameRMS) == 0 {
		return
	}
	rec.PeakAmplitude = finite(raw.Peak)
	rec.RMSLevel = finite(raw.RMS)
	rec.DCOffset = finite(raw.DCOffset)
	if raw.RMS > 1e-10 {
		rec.CrestFactor = finite(raw.Peak / raw.RMS)
	}
	if len(raw.FrameRMS) >= 2 {
		levels := make([]float64, len(raw.FrameRMS))
		for i, v := range raw.FrameRMS {
			levels[i] = toDB(v)
		}
		hi, lo := quantile(levels, 0.95), quantile(levels, 0.10)
		if hi != nil && lo != nil {
			rec.DynamicRange = finite(*hi - *lo)
		}
	}
	rec.FrameRMSP10 = quantile(raw.FrameRMS, 0.10)
	rec.FrameRMSP50 = quantile(raw.FrameRMS, 0.50)
	rec.FrameRMSP90 = quantile(raw.FrameRMS, 0.90)

	rec.SNRDB = finite(raw.SNRDB)
	rec.NoiseFloorDB = finite(raw.NoiseFloorDB)
	rec.ClippingRatio = finite(raw.ClippingRatio)
	snr := math.Max(0, math.Min(1, raw.SNRDB/40))
	rec.RecordingQualityScore = finite(snr * (1 - math.Min(1, raw.ClippingRatio*100)))
}

func loudness(rec *Record, raw *engine.RawFeatures) {
	l := raw.Loudness
	if l == nil {
		return
	}
	rec.LUFSIntegrated = finite(l.Integrated)
	rec.LoudnessRange = finite(l.Range)
	rec.SamplePeakDBFS = finite(l.SamplePeakDB)
	rec.PeakLoudness = finite(l.MomentaryMax)
	rec.ShortTermMaxLUFS = finite(l.ShortTermMax)
	_, rec.LoudnessStd = meanStd(l.ShortTerm)
	rec.LoudnessBuildupSlope = slope(l.ShortTerm)
	if len(l.ShortTerm) >= 2 {
		rec.LoudnessDynamicSpread = finite(slices.Max(l.ShortTerm) - slices.Min(l.ShortTerm))
	}
	rec.PeakEnergyTime = peakTime(l.ShortTerm)
}

// peakTime returns the normalised position of the loudest region, found with
// a window of about 5% of the series.
func peakTime(values []float64) *float64 {
	if len(values) < minPeakTimePoints {
		return nil
	}
	win := max(3, len(values)/20)
	best, bestSum := 0, math.Inf(-1)
	for i := 0; i+win <= len(values); i++ {
		var sum float64
		for _, v := range values[i : i+win] {
			sum += v
		}
		if sum > bestSum {
			best, bestSum = i+win/2, sum
		}
	}
	return finite(float64(best) / float64(len(values)))
}

func spectralShape(rec *Record, raw *engine.RawFeatures) {
	rec.SpectralCentroidMean, rec.SpectralCentroidStd = meanStd(raw.Centroid)
	rec.SpectralFluxMean, rec.SpectralFluxStd = meanStd(raw.Flux)
	rec.SpectralRolloffMean, rec.SpectralRolloffStd = meanStd(raw.Rolloff)
	rec.SpectralFlatnessMean, rec.SpectralFlatnessStd = meanStd(raw.Flatness)
	rec.SpectralBandwidthMean, rec.SpectralBandwidthStd = meanStd(raw.Bandwidth)
	rec.ZCRMean, rec.ZCRStd = meanStd(raw.ZCR)
	rec.SpectralCentroidP10 = quantile(raw.Centroid, 0.10)
	rec.SpectralCentroidP90 = quantile(raw.Centroid, 0.90)
	rec.SpectralFluxP90 = quantile(raw.Flux, 0.90)

	rec.SpectralFluxSkewness = skewness(raw.Flux)
	rec.SpectralFluxKurtosis = kurtosis(raw.Flux)
	rec.SpectralFluxSlope = slope(raw.Flux)
	rec.SpectralCentroidSkewness = skewness(raw.Centroid)
	rec.SpectralCentroidKurtosis = kurtosis(raw.Centroid)
	rec.SpectralCentroidSlope = slope(raw.Centroid)
	rec.SpectralBandwidthSlope = slope(raw.Bandwidth)
	rec.SpectralRolloffSlope = slope(raw.Rolloff)
	rec.SpectralFlatnessSlope = slope(raw.Flatness)
	rec.EnergyBuildupRatio = buildupRatio(raw.Flux)
	if rec.SpectralFlatnessMean != nil {
		rec.Tonality = finite(1 - *rec.SpectralFlatnessMean)
	}
}

// buildupRatio compares the mean of the last third of a series with the
// first third, capped at 10.
func buildupRatio(values []float64) *float64 {
	if len(values) < 6 {
		return nil
	}
	third := len(values) / 3
	first := stat.Mean(values[:third], nil)
	last := stat.Mean(values[len(values)-third:], nil)
	if first < 1e-10 {
		if last > 1e-10 {
			return finite(10)
		}
		return finite(1)
	}
	return finite(math.Min(last/first, 10))
}

func subBands(rec *Record, raw *engine.RawFeatures) {
	rec.SubBandBassMean, rec.SubBandBassStd = meanStd(raw.Bass)
	rec.SubBandMidMean, rec.SubBandMidStd = meanStd(raw.Mid)
	rec.SubBandHighMean, rec.SubBandHighStd = meanStd(raw.High)
	rec.SubBandPresenceMean, rec.SubBandPresenceStd = meanStd(raw.Presence)
	rec.SubBandBassSlope = slope(raw.Bass)
	rec.SubBandMidSlope = slope(raw.Mid)
	rec.SubBandHighSlope = slope(raw.High)
	rec.SubBandPresenceSlope = slope(raw.Presence)

	n := min(len(raw.Bass), len(raw.High), len(raw.Presence))
	if n > 0 {
		ratios := make([]float64, n)
		for i := range n {
			treble := raw.High[i] + raw.Presence[i]
			ratios[i] = 1
			if treble > 1e-10 {
				ratios[i] = raw.Bass[i] / treble
			}
		}
		rec.BassTrebleRatioMean, rec.BassTrebleRatioStd = meanStd(ratios)
	}
	if len(raw.Bass) > 0 {
		rec.SubBandFlux = CrossBandFlux([][]float64{raw.Bass, raw.Mid, raw.High, raw.Presence})
	}
}

func timbre(rec *Record, raw *engine.RawFeatures) {
	means, stds := BandMeans(raw.MFCC), BandStds(raw.MFCC)
	mfccMeans := []**float64{
		&rec.MFCC0Mean, &rec.MFCC1Mean, &rec.MFCC2Mean, &rec.MFCC3Mean, &rec.MFCC4Mean,
		&rec.MFCC5Mean, &rec.MFCC6Mean, &rec.MFCC7Mean, &rec.MFCC8Mean, &rec.MFCC9Mean,
		&rec.MFCC10Mean, &rec.MFCC11Mean, &rec.MFCC12Mean,
	}
	mfccStds := []**float64{
		&rec.MFCC0Std, &rec.MFCC1Std, &rec.MFCC2Std, &rec.MFCC3Std, &rec.MFCC4Std,
		&rec.MFCC5Std, &rec.MFCC6Std, &rec.MFCC7Std, &rec.MFCC8Std, &rec.MFCC9Std,
		&rec.MFCC10Std, &rec.MFCC11Std, &rec.MFCC12Std,
	}
	for i := range mfccMeans {
		*mfccMeans[i] = at(means, i)
		*mfccStds[i] = at(stds, i)
	}
	rec.MFCCFluxMean = CrossBandFlux(raw.MFCC)
	rec.MFCCVector = vector(means)

	contrast := BandMeans(raw.Contrast)
	contrastMeans := []**float64{
		&rec.SpectralContrast0Mean, &rec.SpectralContrast1Mean, &rec.SpectralContrast2Mean,
		&rec.SpectralContrast3Mean, &rec.SpectralContrast4Mean, &rec.SpectralContrast5Mean,
		&rec.SpectralContrast6Mean,
	}
	for i, field := range contrastMeans {
		*field = at(contrast, i)
	}
	rec.SpectralContrastMean = mean(contrast)
	rec.SpectralContrastFlux = CrossBandFlux(raw.Contrast)
	rec.ContrastVector = vector(contrast)

	chroma := BandMeans(raw.Chroma)
	chromaMeans := []**float64{
		&rec.ChromaCMean, &rec.ChromaCSharpMean, &rec.ChromaDMean, &rec.ChromaDSharpMean,
		&rec.ChromaEMean, &rec.ChromaFMean, &rec.ChromaFSharpMean, &rec.ChromaGMean,
		&rec.ChromaGSharpMean, &rec.ChromaAMean, &rec.ChromaASharpMean, &rec.ChromaBMean,
	}
	for i, field := range chromaMeans {
		*field = at(chroma, i)
	}
	rec.ChromaFlux = CrossBandFlux(raw.Chroma)
	rec.ChromaVector = vector(chroma)
	rec.HarmonicComplexity = entropy(chroma)
	if len(raw.Chroma) == 12 && len(raw.Chroma[0]) > 0 {
		var frameEntropies []float64
		frame := make([]float64, 12)
		for f := range raw.Chroma[0] {
			for pc := range 12 {
				frame[pc] = raw.Chroma[pc][f]
			}
			if h := entropy(frame); h != nil {
				frameEntropies = append(frameEntropies, *h)
			}
		}
		rec.ChromaEntropy = mean(frameEntropies)
	}

	tonnetz := BandMeans(raw.Tonnetz)
	tonnetzMeans := []**float64{
		&rec.Tonnetz0Mean, &rec.Tonnetz1Mean, &rec.Tonnetz2Mean,
		&rec.Tonnetz3Mean, &rec.Tonnetz4Mean, &rec.Tonnetz5Mean,
	}
	for i, field := range tonnetzMeans {
		*field = at(tonnetz, i)
	}
	rec.TonnetzFlux = CrossBandFlux(raw.Tonnetz)
	rec.TonnetzVector = vector(tonnetz)
}

func rhythm(rec *Record, raw *engine.RawFeatures) {
	if len(raw.Flux) == 0 {
		return
	}
	rec.OnsetCount = count(len(raw.Onsets))
	if raw.Duration > 0 {
		rec.OnsetRate = finite(float64(len(raw.Onsets)) / raw.Duration)
	}
	if raw.Tempo != nil {
		rec.TempoBPM = finite(raw.Tempo.BPM)
		rec.TempoConfidence = finite(raw.Tempo.Confidence)
		rec.BeatCount = count(len(raw.Beats))
		rec.BeatOnsetAlignment = beatAlignment(raw.Beats, raw.Onsets)
	}
	rec.OnsetDensityStd = onsetDensityStd(raw.Onsets, raw.Duration)
	rec.OnsetIntervalEntropy = onsetIntervalEntropy(raw.Onsets)
	rec.BeatRegularity = intervalCV(raw.Onsets)

	if raw.FrameRate > 0 && len(raw.Onsets) > 0 {
		strengths := make([]float64, 0, len(raw.Onsets))
		for _, t := range raw.Onsets {
			idx := int(math.Round(t * raw.FrameRate))
			if idx >= 0 && idx < len(raw.Flux) {
				strengths = append(strengths, raw.Flux[idx])
			}
		}
		rec.OnsetStrengthMean, rec.OnsetStrengthStd = meanStd(strengths)
	}
}

// onsetDensityStd is the deviation of onset counts over ten second windows.
func onsetDensityStd(onsets []float64, duration float64) *float64 {
	if len(onsets) == 0 || duration < minOnsetDensitySpan {
		return nil
	}
	windows := int(math.Ceil(duration / onsetDensityWindow))
	counts := make([]float64, windows)
	for _, t := range onsets {
		counts[min(windows-1, int(t/onsetDensityWindow))]++
	}
	_, std := meanStd(counts)
	return std
}

// onsetIntervalEntropy bins inter-onset intervals up to 500 ms and returns
// their normalised entropy: low for regular rhythm, high for free time.
func onsetIntervalEntropy(onsets []float64) *float64 {
	if len(onsets) < 10 {
		return nil
	}
	bins := make([]float64, onsetIntervalBins)
	width := onsetIntervalMaxSec / onsetIntervalBins
	n := 0
	for i := 1; i < len(onsets); i++ {
		ioi := onsets[i] - onsets[i-1]
		if ioi <= 0.01 || ioi >= 5 {
			continue
		}
		bins[min(onsetIntervalBins-1, int(ioi/width))]++
		n++
	}
	if n < 5 {
		return nil
	}
	return entropy(bins)
}

// intervalCV is the coefficient of variation of the gaps between events.
func intervalCV(times []float64) *float64 {
	if len(times) < 4 {
		return nil
	}
	gaps := make([]float64, len(times)-1)
	for i := range gaps {
		gaps[i] = times[i+1] - times[i]
	}
	m, s := stat.PopMeanStdDev(gaps, nil)
	if m < 1e-10 {
		return nil
	}
	return finite(s / m)
}

func beatAlignment(beats, onsets []float64) *float64 {
	if len(beats) == 0 {
		return nil
	}
	aligned := 0
	for _, b := range beats {
		i, _ := slices.BinarySearch(onsets, b)
		for _, j := range []int{i - 1, i} {
			if j >= 0 && j < len(onsets) && math.Abs(onsets[j]-b) <= beatAlignmentSec {
				aligned++
				break
			}
		}
	}
	return finite(float64(aligned) / float64(len(beats)))
}

func pitch(rec *Record, raw *engine.RawFeatures) {
	if len(raw.Pitch) == 0 {
		return
	}
	var confidences, pitched, pitchedConf, contour []float64
	for _, p := range raw.Pitch {
		confidences = append(confidences, p.Confidence)
		if p.Hz <= 0 {
			continue
		}
		pitched = append(pitched, p.Hz)
		pitchedConf = append(pitchedConf, p.Confidence)
		if p.Confidence > confidentPitch && p.Hz > 50 && p.Hz < 4000 {
			contour = append(contour, p.Hz)
		}
	}
	rec.PitchConfidenceMean = mean(confidences)
	rec.PitchedFrameRatio = finite(float64(len(pitched)) / float64(len(raw.Pitch)))
	if len(pitched) == 0 {
		return
	}
	rec.MeanPitch = mean(pitched)
	rec.PitchRangeLow = quantile(pitched, 0.05)
	rec.PitchRangeHigh = quantile(pitched, 0.95)
	rec.DominantPitch = quantile(pitched, 0.5)
	rec.PitchClarityMean = mean(pitchedConf)
	rec.PitchSlope = slope(pitched)
	if len(contour) >= 10 {
		_, rec.PitchContourStd = meanStd(contour)
	}

	// share of consecutive pitched frames that stay within a semitone
	stable, pairs := 0, 0
	for i := 1; i < len(raw.Pitch); i++ {
		a, b := raw.Pitch[i-1].Hz, raw.Pitch[i].Hz
		if a <= 0 || b <= 0 {
			continue
		}
		pairs++
		if math.Abs(12*math.Log2(b/a)) < 1 {
			stable++
		}
	}
	if pairs >= 2 {
		rec.PitchStability = finite(float64(stable) / float64(pairs))
	}
}

func harmony(rec *Record, raw *engine.RawFeatures) {
	if k := raw.Key; k != nil {
		rec.EstimatedKey = text(engine.KeyName(k))
		rec.KeyConfidence = finite(k.Confidence)
		rec.ModeClarity = finite(k.Clarity)
		rec.KeyAlternativesCount = count(k.Alternatives)
	}
	if len(raw.Chroma) == 0 || len(raw.Chroma[0]) == 0 {
		return
	}
	chords := raw.Chords
	rec.ChordEventCount = count(len(chords))
	unique := map[string]float64{}
	var confidences []float64
	var total float64
	changes := 0
	for i, c := range chords {
		unique[c.Label] += c.Duration
		total += c.Duration
		confidences = append(confidences, c.Confidence)
		if i > 0 && chords[i-1].Label != c.Label {
			changes++
		}
	}
	rec.ChordCount = count(len(unique))
	if raw.Duration > 0 {
		rec.ChordChangeRate = finite(float64(changes) / (raw.Duration / 60))
	}
	rec.ChordConfidenceMean = mean(confidences)
	if total > 0 {
		var longest float64
		for _, d := range unique {
			longest = math.Max(longest, d)
		}
		rec.DominantChordRatio = finite(longest / total)
	}
}

func structure(rec *Record, raw *engine.RawFeatures) {
	if len(raw.Segments) > 0 {
		rec.SegmentCount = count(len(raw.Segments))
		durations := make([]float64, len(raw.Segments))
		var solo, intense float64
		soloCount := 0
		for i, s := range raw.Segments {
			durations[i] = s.End - s.Start
			if s.Label == engine.LabelIntense {
				intense += durations[i]
				if durations[i] >= soloMinSeconds {
					soloCount++
					solo += durations[i]
				}
			}
		}
		rec.SegmentDurationMean, rec.SegmentDurationStd = meanStd(durations)
		rec.StructuralDiversity = StructuralDiversity(raw.Segments)
		rec.SoloSectionCount = count(soloCount)
		if raw.Duration > 0 {
			rec.SoloSectionRatio = finite(solo / raw.Duration)
			rec.IntenseRatio = finite(intense / raw.Duration)
		}
	}
	if len(raw.ShortTermRMS) == 0 {
		return
	}
	rec.TransitionCount = count(len(raw.Transitions))
	if raw.Duration > 0 {
		rec.TransitionRate = finite(float64(len(raw.Transitions)) / (raw.Duration / 60))
	}
	lifts, drops := 0, 0
	strengths := make([]float64, 0, len(raw.Transitions))
	for _, t := range raw.Transitions {
		strengths = append(strengths, t.Strength)
		switch t.Kind {
		case engine.TransitionLift:
			lifts++
		case engine.TransitionDrop:
			drops++
		}
	}
	rec.LiftCount = count(lifts)
	rec.DropCount = count(drops)
	rec.TransitionStrengthMean = mean(strengths)

	builds, releases := 0, 0
	values := make([]float64, 0, len(raw.Tension))
	for _, p := range raw.Tension {
		values = append(values, p.Value)
		switch p.Change {
		case engine.TensionBuild:
			builds++
		case engine.TensionRelease:
			releases++
		}
	}
	rec.TensionBuildCount = count(builds)
	rec.TensionReleaseCount = count(releases)
	if len(values) > 0 {
		rec.PeakTension = finite(slices.Max(values))
		rec.TensionRange = finite(slices.Max(values) - slices.Min(values))
		rec.TensionMean = mean(values)
	}

	if r := raw.Repetition; r != nil {
		rec.RepetitionCount = count(r.Count)
		rec.RepetitionSimilarity = finite(r.Similarity)
	}
}

func energyProfile(rec *Record, raw *engine.RawFeatures) {
	series := raw.ShortTermRMS
	if len(series) == 0 {
		return
	}
	rec.EnergyLevel = mean(series)
	rec.PeakEnergy = finite(slices.Max(series))
	rec.EnergyVariance = variance(series)
	rec.EnergyShape = energyShape(series)
	if len(series) < 3 {
		return
	}

	smooth := make([]float64, len(series))
	for i := range series {
		lo, hi := max(0, i-1), min(len(series), i+2)
		smooth[i] = stat.Mean(series[lo:hi], nil)
	}
	avg := stat.Mean(smooth, nil)
	var peaks, valleys []float64
	for i := 1; i+1 < len(smooth); i++ {
		v := smooth[i]
		switch {
		case v > smooth[i-1] && v >= smooth[i+1] && v > avg:
			peaks = append(peaks, v)
		case v < smooth[i-1] && v <= smooth[i+1] && v < avg:
			valleys = append(valleys, v)
		}
	}
	rec.EnergyPeakCount = count(len(peaks))
	if len(peaks) > 0 && len(valleys) > 0 {
		if meanPeak := stat.Mean(peaks, nil); meanPeak > 1e-10 {
			rec.EnergyValleyDepthMean = finite(stat.Mean(valleys, nil) / meanPeak)
		}
	}
}

// energyShape classifies the short-term energy envelope by comparing the
// means of its thirds.
func energyShape(series []float64) *string {
	if len(series) < minEnergyShapePoints {
		return nil
	}
	third := len(series) / 3
	first := stat.Mean(series[:third], nil)
	middle := stat.Mean(series[third:len(series)-third], nil)
	last := stat.Mean(series[len(series)-third:], nil)
	shape := ShapeFlat
	switch {
	case middle > 1.15*first && middle > 1.15*last:
		shape = ShapeArc
	case middle*1.15 < first && middle*1.15 < last:
		shape = ShapeValley
	case last > 1.25*first:
		shape = ShapeBuilding
	case first > 1.25*last:
		shape = ShapeFading
	}
	return text(shape)
}

func correlations(rec *Record, raw *engine.RawFeatures) {
	if raw.Loudness != nil {
		rec.SpectralLoudnessCorrelation = correlation(perSecond(raw.Centroid, raw.FrameRate), raw.Loudness.ShortTerm)
	}
	rec.BassFluxCorrelation = correlation(raw.Bass, raw.Flux)
	rec.CentroidFluxCorrelation = correlation(raw.Centroid, raw.Flux)
}
