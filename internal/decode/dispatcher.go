package decode

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"setbreak/internal/audio"
	"setbreak/internal/config"
	"setbreak/internal/logging"
)

// Dispatcher selects a decoder per file and runs the quality detectors.
// It is safe for concurrent use.
type Dispatcher struct {
	ffmpeg     string
	tempDir    string
	timeout    time.Duration
	thresholds Thresholds
	decoders   map[Format]decodeFunc
	logger     *slog.Logger
}

// New constructs a dispatcher from the [analysis], [paths] and [quality] sections.
func New(cfg *config.Config, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		ffmpeg:     cfg.Analysis.FFmpegPath,
		tempDir:    cfg.Paths.TempDir,
		timeout:    time.Duration(cfg.Analysis.FFmpegTimeoutSeconds) * time.Second,
		thresholds: ThresholdsFromConfig(cfg.Quality),
		logger:     logging.NewComponentLogger(logger, "decode"),
	}
	if d.tempDir == "" {
		d.tempDir = os.TempDir()
	}
	d.decoders = map[Format]decodeFunc{
		FormatWAV:     decodeWAV,
		FormatFLAC:    decodeFLAC,
		FormatMP3:     decodeMP3,
		FormatAIFF:    d.decodeExternal,
		FormatSHN:     d.decodeExternal,
		FormatOGG:     d.decodeExternal,
		FormatOpus:    d.decodeExternal,
		FormatAPE:     d.decodeExternal,
		FormatWavPack: d.decodeExternal,
		FormatM4A:     d.decodeExternal,
		FormatAAC:     d.decodeExternal,
		FormatDSF:     d.decodeExternal,
		FormatDFF:     d.decodeExternal,
	}
	return d
}

// Decode reads path into a normalized buffer and classifies its quality.
// Failures are *Error values; a cancelled context is returned unwrapped.
func (d *Dispatcher) Decode(ctx context.Context, path string) (*audio.Buffer, audio.Quality, error) {
	format := FormatFromPath(path)
	decode, ok := d.decoders[format]
	if !ok {
		d.logger.Debug("unrecognized extension, using ffmpeg", logging.String("path", path))
		decode = d.decodeExternal
	}

	buf, err := decode(ctx, path)
	if errors.Is(err, errNeedsExternal) {
		d.logger.Debug("native decoder declined, using ffmpeg", logging.String("path", path))
		buf, err = d.decodeExternal(ctx, path)
	}
	if err != nil {
		return nil, "", err
	}

	buf.Samples, buf.Channels = audio.Downmix(buf.Samples, buf.Channels)
	if err := buf.Validate(); err != nil {
		return nil, "", corrupt(path, err)
	}
	if err := DetectBitstream(buf, d.thresholds); err != nil {
		var decodeErr *Error
		if errors.As(err, &decodeErr) {
			decodeErr.Path = path
		}
		return nil, "", err
	}

	quality := Assess(buf, d.thresholds)
	d.logger.Debug("decoded",
		logging.String("path", path),
		logging.String("format", string(format)),
		logging.Int("sample_rate", buf.SampleRate),
		logging.Int("channels", buf.Channels),
		logging.Float64("duration_seconds", buf.Duration()),
		logging.String("quality", string(quality)),
	)
	return buf, quality, nil
}
