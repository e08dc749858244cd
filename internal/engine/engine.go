package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"

	"setbreak/internal/audio"
	"setbreak/internal/config"
	"setbreak/internal/services"
)

// Analyzer extracts raw features from one buffer at a time. Implementations
// keep scratch state and are not safe for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, buf *audio.Buffer) (*RawFeatures, error)
}

// Options controls STFT framing.
type Options struct {
	FrameSize int
	HopSize   int
}

// Engine is the in-process DSP analyzer. It is a factory for per-worker
// sessions.
type Engine struct {
	opts Options
}

// New constructs an engine from the [analysis] section.
func New(cfg *config.Config) *Engine {
	return NewWithOptions(Options{FrameSize: cfg.Analysis.FrameSize, HopSize: cfg.Analysis.HopSize})
}

// NewWithOptions constructs an engine with explicit framing.
func NewWithOptions(opts Options) *Engine {
	if opts.FrameSize <= 0 {
		opts.FrameSize = 2048
	}
	if opts.HopSize <= 0 || opts.HopSize > opts.FrameSize {
		opts.HopSize = opts.FrameSize / 2
	}
	return &Engine{opts: opts}
}

// NewSession returns an analyzer owning its own scratch buffers. Each worker
// should hold exactly one session for its lifetime.
func (e *Engine) NewSession() Analyzer {
	return &session{
		opts:     e.opts,
		window:   window.Hann(e.opts.FrameSize),
		frame:    make([]float64, e.opts.FrameSize),
		windowed: make([]float64, e.opts.FrameSize),
		mags:     make([]float64, e.opts.FrameSize/2+1),
		prevMags: make([]float64, e.opts.FrameSize/2+1),
	}
}

type session struct {
	opts     Options
	window   []float64
	frame    []float64
	windowed []float64
	mags     []float64
	prevMags []float64

	// caches valid for bankRate
	bankRate  int
	melBank   [][]melWeight
	chromaMap []int
}

func (s *session) Analyze(ctx context.Context, buf *audio.Buffer) (raw *RawFeatures, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = services.Wrap(services.ErrEngine, "analyze", "dsp", fmt.Sprint(r), nil)
		}
	}()
	if err := buf.Validate(); err != nil {
		return nil, services.Wrap(services.ErrEngine, "analyze", "validate", "", err)
	}

	mono := buf.Mono()
	raw = &RawFeatures{
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		Duration:   buf.Duration(),
		FrameRate:  float64(buf.SampleRate) / float64(s.opts.HopSize),
	}
	timeDomainStats(mono, raw)
	raw.Loudness = measureLoudness(buf)

	if err := s.spectral(ctx, mono, buf.SampleRate, raw); err != nil {
		return nil, err
	}
	noiseStats(raw)
	detectRhythm(raw)
	estimateKey(raw)
	detectChords(raw)
	shortTermEnergy(mono, buf.SampleRate, raw)
	detectStructure(raw)
	detectTension(raw)
	measureRepetition(raw)
	return raw, nil
}

func timeDomainStats(mono []float64, raw *RawFeatures) {
	var sum, sumSq, peak float64
	clipped := 0
	for _, v := range mono {
		sum += v
		sumSq += v * v
		a := math.Abs(v)
		if a > peak {
			peak = a
		}
		if a >= 0.999 {
			clipped++
		}
	}
	n := float64(len(mono))
	raw.Peak = peak
	raw.RMS = math.Sqrt(sumSq / n)
	raw.DCOffset = sum / n
	raw.ClippingRatio = float64(clipped) / n
}

func toDB(amplitude float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, 1e-10))
}
