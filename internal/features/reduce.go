package features

import (
	"encoding/json"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"setbreak/internal/engine"
)

const (
	minMomentPoints      = 4
	minCorrelationPoints = 10
	varianceEpsilon      = 1e-12
)

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func count(n int) *int64 {
	v := int64(n)
	return &v
}

func text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	return finite(stat.Mean(xs, nil))
}

// meanStd returns the mean and population standard deviation; the deviation
// needs at least two points.
func meanStd(xs []float64) (*float64, *float64) {
	if len(xs) == 0 {
		return nil, nil
	}
	m, s := stat.PopMeanStdDev(xs, nil)
	if len(xs) < 2 {
		return finite(m), nil
	}
	return finite(m), finite(s)
}

// slope is the OLS slope of xs against its index.
func slope(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	idx := make([]float64, len(xs))
	for i := range idx {
		idx[i] = float64(i)
	}
	_, beta := stat.LinearRegression(idx, xs, nil, false)
	return finite(beta)
}

func skewness(xs []float64) *float64 {
	if len(xs) < minMomentPoints || stat.Variance(xs, nil) < varianceEpsilon {
		return nil
	}
	return finite(stat.Skew(xs, nil))
}

func kurtosis(xs []float64) *float64 {
	if len(xs) < minMomentPoints || stat.Variance(xs, nil) < varianceEpsilon {
		return nil
	}
	return finite(stat.ExKurtosis(xs, nil))
}

// correlation is Pearson's r over the common prefix of a and b.
func correlation(a, b []float64) *float64 {
	n := min(len(a), len(b))
	if n < minCorrelationPoints {
		return nil
	}
	a, b = a[:n], b[:n]
	if stat.Variance(a, nil) < varianceEpsilon || stat.Variance(b, nil) < varianceEpsilon {
		return nil
	}
	return finite(stat.Correlation(a, b, nil))
}

func quantile(xs []float64, q float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	return finite(stat.Quantile(q, stat.LinInterp, sorted, nil))
}

func variance(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	_, s := stat.PopMeanStdDev(xs, nil)
	return finite(s * s)
}

// BandMeans returns the per-band mean of a band-major matrix. It returns nil
// when the matrix holds no frames.
func BandMeans(m [][]float64) []float64 {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil
	}
	out := make([]float64, len(m))
	for b, series := range m {
		if len(series) > 0 {
			out[b] = stat.Mean(series, nil)
		}
	}
	return out
}

// BandStds returns the per-band population standard deviation of a
// band-major matrix, or nil with fewer than two frames.
func BandStds(m [][]float64) []float64 {
	if len(m) == 0 || len(m[0]) < 2 {
		return nil
	}
	out := make([]float64, len(m))
	for b, series := range m {
		_, out[b] = stat.PopMeanStdDev(series, nil)
	}
	return out
}

// CrossBandFlux is the mean Euclidean distance between consecutive frames of
// a band-major matrix, taken across all bands.
func CrossBandFlux(m [][]float64) *float64 {
	if len(m) == 0 {
		return nil
	}
	frames := len(m[0])
	for _, series := range m[1:] {
		frames = min(frames, len(series))
	}
	if frames < 2 {
		return nil
	}
	var total float64
	for f := 1; f < frames; f++ {
		var sq float64
		for _, series := range m {
			d := series[f] - series[f-1]
			sq += d * d
		}
		total += math.Sqrt(sq)
	}
	return finite(total / float64(frames-1))
}

// StructuralDiversity is the mean pairwise Euclidean distance between
// segments described by energy, centroid, zero-crossing rate and dynamic
// range, each min-max normalised within the track. Constant dimensions
// normalise to zero. Fewer than two segments yields nil.
func StructuralDiversity(segments []engine.Segment) *float64 {
	if len(segments) < 2 {
		return nil
	}
	dims := make([][]float64, 4)
	for _, s := range segments {
		dims[0] = append(dims[0], s.Energy)
		dims[1] = append(dims[1], s.Centroid)
		dims[2] = append(dims[2], s.ZCR)
		dims[3] = append(dims[3], s.DynamicRange)
	}
	for _, d := range dims {
		lo, hi := slices.Min(d), slices.Max(d)
		span := hi - lo
		for i := range d {
			if span < varianceEpsilon {
				d[i] = 0
			} else {
				d[i] = (d[i] - lo) / span
			}
		}
	}
	var total float64
	pairs := 0
	for i := range segments {
		for j := i + 1; j < len(segments); j++ {
			var sq float64
			for _, d := range dims {
				diff := d[i] - d[j]
				sq += diff * diff
			}
			total += math.Sqrt(sq)
			pairs++
		}
	}
	return finite(total / float64(pairs))
}

// entropy is the Shannon entropy of a non-negative vector normalised by
// log(len), in [0,1]. Nil when the vector sums to zero.
func entropy(xs []float64) *float64 {
	var sum float64
	for _, v := range xs {
		sum += max(v, 0)
	}
	if sum < varianceEpsilon || len(xs) < 2 {
		return nil
	}
	var h float64
	for _, v := range xs {
		if p := max(v, 0) / sum; p > 0 {
			h -= p * math.Log(p)
		}
	}
	return finite(h / math.Log(float64(len(xs))))
}

func vector(values []float64) *string {
	if len(values) == 0 {
		return nil
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func at(values []float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return finite(values[i])
}

func toDB(amplitude float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, 1e-10))
}

// perSecond averages a frame series over consecutive one-second windows.
func perSecond(series []float64, frameRate float64) []float64 {
	if frameRate <= 0 || len(series) == 0 {
		return nil
	}
	seconds := int(float64(len(series)) / frameRate)
	out := make([]float64, 0, seconds)
	for sec := range seconds {
		from := int(float64(sec) * frameRate)
		to := min(len(series), int(float64(sec+1)*frameRate))
		if to > from {
			out = append(out, stat.Mean(series[from:to], nil))
		}
	}
	return out
}
