package decode

import (
	"path/filepath"
	"strings"
)

// Format identifies a container/codec by file extension.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatMP3     Format = "mp3"
	FormatAIFF    Format = "aiff"
	FormatSHN     Format = "shn"
	FormatOGG     Format = "ogg"
	FormatOpus    Format = "opus"
	FormatAPE     Format = "ape"
	FormatWavPack Format = "wv"
	FormatM4A     Format = "m4a"
	FormatAAC     Format = "aac"
	FormatDSF     Format = "dsf"
	FormatDFF     Format = "dff"
)

var extensionFormats = map[string]Format{
	".wav":  FormatWAV,
	".flac": FormatFLAC,
	".mp3":  FormatMP3,
	".aif":  FormatAIFF,
	".aiff": FormatAIFF,
	".shn":  FormatSHN,
	".ogg":  FormatOGG,
	".opus": FormatOpus,
	".ape":  FormatAPE,
	".wv":   FormatWavPack,
	".m4a":  FormatM4A,
	".aac":  FormatAAC,
	".dsf":  FormatDSF,
	".dff":  FormatDFF,
}

// FormatFromPath maps a file extension (case-insensitive) to a Format.
func FormatFromPath(path string) Format {
	return extensionFormats[strings.ToLower(filepath.Ext(path))]
}

// IsSupported reports whether path has a catalogued audio extension.
func IsSupported(path string) bool {
	return FormatFromPath(path) != FormatUnknown
}

// Native reports whether the format is decoded in-process.
func (f Format) Native() bool {
	switch f {
	case FormatWAV, FormatFLAC, FormatMP3:
		return true
	default:
		return false
	}
}
