// Package decode turns audio files into normalized sample buffers.
//
// A closed table maps each known Format to a decoder: WAV, FLAC and MP3 are
// decoded in-process, every other catalogued format is converted to a
// temporary WAV by ffmpeg first. Every decoded buffer passes the bitstream
// misclassification detector and a quality assessment before it is handed to
// the analysis engine.
package decode
