// Package calibrate removes recording-loudness bias from the stored jam scores.
//
// Louder tapes tend to score higher on loudness-driven scores regardless of
// the performance. For each score an OLS slope of raw score against the
// median integrated loudness of the track's show is fitted over all
// non-garbage tracks; every track is then shifted by
// slope * (showMedian - baseline), where the baseline is the median of the
// show medians, and clamped to [0,100].
//
// Adjustments are always derived from the raw formula scores and written to
// the effective score columns only, so running calibration twice gives the
// same result as running it once.
package calibrate
