// Package audio holds the decoded sample buffer shared by the decoder and the
// analysis engine.
package audio

import (
	"errors"
	"math"
)

// Buffer is a decoded track. Samples are interleaved by channel and nominally
// within [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Validate checks the buffer invariants.
func (b *Buffer) Validate() error {
	switch {
	case b == nil:
		return errors.New("audio buffer is nil")
	case b.SampleRate <= 0:
		return errors.New("audio buffer sample rate must be positive")
	case b.Channels != 1 && b.Channels != 2:
		return errors.New("audio buffer must be mono or stereo")
	case len(b.Samples) == 0:
		return errors.New("audio buffer is empty")
	case len(b.Samples)%b.Channels != 0:
		return errors.New("audio buffer sample count is not a multiple of the channel count")
	}
	return nil
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playing time in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Mono returns a channel average. A mono buffer's samples are returned as is.
func (b *Buffer) Mono() []float64 {
	if b.Channels == 1 {
		return b.Samples
	}
	frames := b.Frames()
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range b.Channels {
			sum += b.Samples[i*b.Channels+c]
		}
		out[i] = sum / float64(b.Channels)
	}
	return out
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Downmix folds interleaved samples with more than two channels into stereo
// by averaging odd and even channels. Mono and stereo input is returned as is.
func Downmix(samples []float64, channels int) ([]float64, int) {
	if channels <= 2 {
		return samples, channels
	}
	frames := len(samples) / channels
	out := make([]float64, frames*2)
	for i := range frames {
		var left, right float64
		var nl, nr int
		for c := range channels {
			v := samples[i*channels+c]
			if c%2 == 0 {
				left += v
				nl++
			} else {
				right += v
				nr++
			}
		}
		out[i*2] = left / float64(nl)
		out[i*2+1] = right / float64(nr)
	}
	return out, 2
}
