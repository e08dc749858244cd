package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds the "-version" probe.
const versionTimeout = 5 * time.Second

// AudioRequirements lists the binaries used to decode formats that have no
// native decoder. Neither is needed for WAV, FLAC or MP3 libraries.
func AudioRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Decodes SHN, APE, OGG, M4A, AIFF, DSD and other non-native formats",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Inspects streams when ffmpeg decoding fails",
			Optional:    true,
		},
	}
}

// WithVersions fills Detail with the first line of "<binary> -version" for
// every available status. Probe failures are recorded, not returned.
func WithVersions(ctx context.Context, statuses []Status) []Status {
	out := make([]Status, len(statuses))
	for i, status := range statuses {
		if status.Available && status.Detail == "" {
			status.Detail = probeVersion(ctx, status.Command)
		}
		out[i] = status
	}
	return out
}

func probeVersion(ctx context.Context, binary string) string {
	probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(probeCtx, binary, "-version").Output()
	if err != nil {
		return "version unknown"
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	if scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return "version unknown"
}
