package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateCalibration(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.Database == "" {
		return errors.New("paths.database must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.FrameSize < 256 || c.Analysis.FrameSize&(c.Analysis.FrameSize-1) != 0 {
		return errors.New("analysis.frame_size must be a power of two of at least 256")
	}
	if c.Analysis.HopSize <= 0 || c.Analysis.HopSize > c.Analysis.FrameSize {
		return errors.New("analysis.hop_size must be positive and no larger than analysis.frame_size")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if c.Quality.BitstreamWindow <= 0 {
		return errors.New("quality.bitstream_window must be positive")
	}
	for _, entry := range []struct {
		key   string
		value float64
	}{
		{"quality.hot_level", c.Quality.HotLevel},
		{"quality.bitstream_hot_fraction", c.Quality.BitstreamHotFraction},
		{"quality.suspect_hot_fraction", c.Quality.SuspectHotFraction},
		{"quality.suspect_clip_ratio", c.Quality.SuspectClipRatio},
	} {
		if entry.value <= 0 || entry.value > 1 {
			return fmt.Errorf("%s must be in (0, 1]", entry.key)
		}
	}
	if c.Quality.SilencePeak < 0 {
		return errors.New("quality.silence_peak must not be negative")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.MinLongFormSeconds < 0 {
		return errors.New("scoring.min_long_form_seconds must not be negative")
	}
	for _, entry := range c.Scoring.Weights.each() {
		if entry.value < 0 || math.IsNaN(entry.value) || math.IsInf(entry.value, 0) {
			return fmt.Errorf("scoring.weights.%s must be a finite non-negative number", entry.key)
		}
	}
	return nil
}

func (c *Config) validateCalibration() error {
	if c.Calibration.MinPoints < 2 {
		return errors.New("calibration.min_points must be at least 2")
	}
	if c.Calibration.MinSlope < 0 {
		return errors.New("calibration.min_slope must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
