package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"

	"setbreak/internal/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	// frames decoded between cancellation checks
	cancelCheckInterval = 256
)

// errNeedsExternal makes the dispatcher retry through ffmpeg, for example for
// floating-point WAV files.
var errNeedsExternal = errors.New("encoding not handled natively")

type decodeFunc func(ctx context.Context, path string) (*audio.Buffer, error)

func intScale(bits int) (float64, error) {
	if bits < 8 || bits > 32 {
		return 0, fmt.Errorf("unsupported bit depth %d", bits)
	}
	return 1 / float64(int64(1)<<(bits-1)), nil
}

func decodeWAV(_ context.Context, path string) (*audio.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, corrupt(path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, corrupt(path, errors.New("invalid wav header"))
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, errNeedsExternal
	}
	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, corrupt(path, err)
	}
	if pcm == nil || pcm.Format == nil || len(pcm.Data) == 0 {
		return nil, corrupt(path, errors.New("no audio frames"))
	}

	bits := int(decoder.BitDepth)
	scale, err := intScale(bits)
	if err != nil {
		return nil, errNeedsExternal
	}
	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		if bits == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = float64(v) * scale
	}
	return &audio.Buffer{SampleRate: pcm.Format.SampleRate, Channels: pcm.Format.NumChannels, Samples: samples}, nil
}

func decodeFLAC(ctx context.Context, path string) (*audio.Buffer, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, corrupt(path, err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	scale, err := intScale(int(stream.Info.BitsPerSample))
	if err != nil {
		return nil, corrupt(path, err)
	}
	samples := make([]float64, 0, int(stream.Info.NSamples)*channels)
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, corrupt(path, err)
		}
		if len(frame.Subframes) < channels {
			return nil, corrupt(path, fmt.Errorf("frame %d has %d subframes, want %d", n, len(frame.Subframes), channels))
		}
		length := len(frame.Subframes[0].Samples)
		for i := range length {
			for c := range channels {
				samples = append(samples, float64(frame.Subframes[c].Samples[i])*scale)
			}
		}
	}
	return &audio.Buffer{SampleRate: int(stream.Info.SampleRate), Channels: channels, Samples: samples}, nil
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(ctx context.Context, path string) (*audio.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, corrupt(path, err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, corrupt(path, err)
	}

	const scale = 1.0 / 32768
	samples := make([]float64, 0, int(max(decoder.Length()/2, 0)))
	chunk := make([]byte, 64*1024)
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		read, err := io.ReadFull(decoder, chunk)
		for i := 0; i+1 < read; i += 2 {
			samples = append(samples, float64(int16(binary.LittleEndian.Uint16(chunk[i:])))*scale)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, corrupt(path, err)
		}
	}
	if len(samples)%2 != 0 {
		samples = samples[:len(samples)-1]
	}
	return &audio.Buffer{SampleRate: decoder.SampleRate(), Channels: 2, Samples: samples}, nil
}
