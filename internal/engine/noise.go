package engine

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// noiseStats estimates the noise floor as the 10th percentile of frame
// levels; SNR is the overall RMS above that floor.
func noiseStats(raw *RawFeatures) {
	if len(raw.FrameRMS) == 0 {
		return
	}
	levels := make([]float64, len(raw.FrameRMS))
	for i, v := range raw.FrameRMS {
		levels[i] = toDB(v)
	}
	slices.Sort(levels)
	raw.NoiseFloorDB = stat.Quantile(0.10, stat.LinInterp, levels, nil)
	raw.SNRDB = toDB(raw.RMS) - raw.NoiseFloorDB
}
