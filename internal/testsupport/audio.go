package testsupport

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Signal describes a synthetic test recording: a few harmonic partials with a
// pulsing envelope plus seeded noise, so that the analysis engine sees onsets,
// a pitch and a non-trivial spectrum.
type Signal struct {
	SampleRate int
	Seconds    float64
	// Gain scales the whole signal; +6 dB is Gain*2.
	Gain float64
	// Fundamental in Hz.
	Fundamental float64
	// Pulse rate in beats per second; zero disables the envelope.
	PulseHz float64
	Noise   float64
	Seed    uint64
}

// DefaultSignal returns a 30 second, 8 kHz recording at moderate level.
func DefaultSignal() Signal {
	return Signal{SampleRate: 8000, Seconds: 30, Gain: 0.2, Fundamental: 220, PulseHz: 2, Noise: 0.02, Seed: 1}
}

// Render produces mono samples for the signal.
func (s Signal) Render() []float64 {
	n := int(float64(s.SampleRate) * s.Seconds)
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range n {
		t := float64(i) / float64(s.SampleRate)
		env := 1.0
		if s.PulseHz > 0 {
			phase := math.Mod(t*s.PulseHz, 1)
			env = 0.3 + 0.7*math.Exp(-6*phase)
		}
		v := math.Sin(2*math.Pi*s.Fundamental*t) +
			0.5*math.Sin(2*math.Pi*2*s.Fundamental*t) +
			0.25*math.Sin(2*math.Pi*3*s.Fundamental*t) +
			0.4*math.Sin(2*math.Pi*0.5*s.Fundamental*t)
		v = v/2.15*env + s.Noise*(rng.Float64()*2-1)
		out[i] = s.Gain * v
	}
	return out
}

// WriteWAV writes interleaved float samples as integer PCM.
func WriteWAV(t testing.TB, path string, sampleRate, channels, bitDepth int, samples []float64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	full := float64(int64(1)<<(bitDepth-1)) - 1
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * full))
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalize %s: %v", path, err)
	}
}

// WriteSignal renders s and writes it as a 16-bit mono WAV.
func WriteSignal(t testing.TB, path string, s Signal) {
	t.Helper()
	WriteWAV(t, path, s.SampleRate, 1, 16, s.Render())
}
