package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	Database   string `toml:"database"`
	LogDir     string `toml:"log_dir"`
	TempDir    string `toml:"temp_dir"`
	LibraryDir string `toml:"library_dir"`
}

// Analysis contains settings for the decode and feature extraction pipeline.
type Analysis struct {
	// Workers is the size of the worker pool. Zero means one per CPU.
	Workers int `toml:"workers"`
	// ChunkMultiplier sets the chunk size as Workers * ChunkMultiplier.
	ChunkMultiplier      int    `toml:"chunk_multiplier"`
	FFmpegPath           string `toml:"ffmpeg_path"`
	FFmpegTimeoutSeconds int    `toml:"ffmpeg_timeout_seconds"`
	FrameSize            int    `toml:"frame_size"`
	HopSize              int    `toml:"hop_size"`
}

// Quality contains the thresholds used to flag bad decodes.
type Quality struct {
	BitstreamWindow      int     `toml:"bitstream_window"`
	HotLevel             float64 `toml:"hot_level"`
	BitstreamHotFraction float64 `toml:"bitstream_hot_fraction"`
	SuspectHotFraction   float64 `toml:"suspect_hot_fraction"`
	SuspectClipRatio     float64 `toml:"suspect_clip_ratio"`
	SilencePeak          float64 `toml:"silence_peak"`
}

// Scoring contains the jam score weights and guards.
type Scoring struct {
	MinLongFormSeconds float64 `toml:"min_long_form_seconds"`
	Weights            Weights `toml:"weights"`
}

// Calibration contains the loudness calibration guards.
type Calibration struct {
	// MinPoints is the fewest tracks with loudness data needed to fit a slope.
	MinPoints int `toml:"min_points"`
	// MinSlope is the smallest absolute slope (points per LU) worth correcting.
	MinSlope float64 `toml:"min_slope"`
}

// Band maps a canonical band name to the abbreviations used in taper filenames.
type Band struct {
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for setbreak.
//
// Configuration sections by subsystem:
//   - Paths: database, log, temp and library locations
//   - Analysis: worker pool sizing, ffmpeg fallback, STFT framing
//   - Quality: bitstream and clipping detector thresholds
//   - Scoring: per-component point budgets
//   - Calibration: loudness regression guards
//   - Bands: filename prefix registry used by the catalog
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Analysis    Analysis    `toml:"analysis"`
	Quality     Quality     `toml:"quality"`
	Scoring     Scoring     `toml:"scoring"`
	Calibration Calibration `toml:"calibration"`
	Bands       []Band      `toml:"bands"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/setbreak/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("setbreak.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the database, log and temp directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{filepath.Dir(c.Paths.Database), c.Paths.LogDir, c.Paths.TempDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WorkerCount returns the effective worker pool size.
func (c *Config) WorkerCount() int {
	if c.Analysis.Workers > 0 {
		return c.Analysis.Workers
	}
	return runtime.NumCPU()
}

// ChunkSize returns the number of tracks committed per transaction for the
// given worker count.
func (c *Config) ChunkSize(workers int) int {
	if workers <= 0 {
		workers = c.WorkerCount()
	}
	return workers * c.Analysis.ChunkMultiplier
}

// FFprobeBinary returns the ffprobe executable name used for status checks.
func (c *Config) FFprobeBinary() string {
	dir := filepath.Dir(c.Analysis.FFmpegPath)
	if dir == "." {
		return "ffprobe"
	}
	return filepath.Join(dir, "ffprobe")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
