package calibrate

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"setbreak/internal/config"
	"setbreak/internal/scoring"
	"setbreak/internal/store"
)

// minVariance is the smallest spread of show loudness that yields a slope.
const minVariance = 1e-12

// Options are the regression guards.
type Options struct {
	// MinPoints is the fewest (loudness, score) pairs needed to fit a slope.
	MinPoints int
	// MinSlope is the smallest absolute slope, in points per LU, applied.
	MinSlope float64
}

// OptionsFromConfig maps the [calibration] section.
func OptionsFromConfig(c config.Calibration) Options {
	return Options{MinPoints: c.MinPoints, MinSlope: c.MinSlope}
}

// Result describes a calibration plan and, after Run, what was written.
type Result struct {
	// ID identifies the recorded calibration run; empty for dry runs.
	ID string
	// Baseline is the median of show medians; nil without loudness data.
	Baseline *float64
	// ShowMedians maps show key to the median integrated loudness.
	ShowMedians map[string]float64
	Tracks      int
	Points      int
	Slopes      [scoring.Count]float64
	Applied     [scoring.Count]bool
	Deltas      []store.ScoreDelta
	// Adjusted counts tracks whose effective scores differ from raw.
	Adjusted int
	DryRun   bool
}

// Shows returns the number of shows with loudness data.
func (r Result) Shows() int {
	return len(r.ShowMedians)
}

// SlopeMap returns the fitted slopes keyed by score name.
func (r Result) SlopeMap() map[string]float64 {
	out := make(map[string]float64, scoring.Count)
	for i, name := range scoring.Names {
		out[name] = r.Slopes[i]
	}
	return out
}

// Plan computes the adjusted effective scores for rows without touching
// storage. Every row gets a delta; rows whose show has no loudness data keep
// their raw scores.
func Plan(rows []store.CalibrationRow, opts Options) Result {
	res := Result{Tracks: len(rows), ShowMedians: map[string]float64{}}
	if len(rows) == 0 {
		return res
	}

	byShow := map[string][]float64{}
	for _, row := range rows {
		if row.LUFS == nil || math.IsNaN(*row.LUFS) || math.IsInf(*row.LUFS, 0) {
			continue
		}
		byShow[row.Show] = append(byShow[row.Show], *row.LUFS)
	}
	medians := make([]float64, 0, len(byShow))
	for show, values := range byShow {
		m := median(values)
		res.ShowMedians[show] = m
		medians = append(medians, m)
	}

	var baseline float64
	if len(medians) > 0 {
		baseline = median(medians)
		res.Baseline = &baseline
	}

	x := make([]float64, 0, len(rows))
	for _, row := range rows {
		if m, ok := res.ShowMedians[row.Show]; ok {
			x = append(x, m)
		}
	}
	res.Points = len(x)

	enough := len(x) >= max(opts.MinPoints, 2) && len(medians) >= 2
	for i := range scoring.Count {
		if !enough {
			continue
		}
		y := make([]float64, 0, len(x))
		for _, row := range rows {
			if _, ok := res.ShowMedians[row.Show]; ok {
				y = append(y, row.Raw.At(i))
			}
		}
		res.Slopes[i] = olsSlope(x, y)
		res.Applied[i] = math.Abs(res.Slopes[i]) >= opts.MinSlope && res.Slopes[i] != 0
	}

	res.Deltas = make([]store.ScoreDelta, 0, len(rows))
	for _, row := range rows {
		adjusted := row.Raw.Clamp()
		if m, ok := res.ShowMedians[row.Show]; ok {
			shift := m - baseline
			for i := range scoring.Count {
				if res.Applied[i] {
					adjusted.Set(i, row.Raw.At(i)-res.Slopes[i]*shift)
				}
			}
			adjusted = adjusted.Clamp()
		}
		if adjusted != row.Raw {
			res.Adjusted++
		}
		res.Deltas = append(res.Deltas, store.ScoreDelta{TrackID: row.TrackID, Scores: adjusted})
	}
	return res
}

// olsSlope fits y = a + b*x and returns b, or 0 when x has no spread.
func olsSlope(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	mean := stat.Mean(x, nil)
	var ss float64
	for _, v := range x {
		ss += (v - mean) * (v - mean)
	}
	if ss < minVariance {
		return 0
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
