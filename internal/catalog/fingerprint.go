package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OneOfOne/xxhash"
)

// fingerprintPrefix bounds how much of a file is hashed.
const fingerprintPrefix = 1 << 20

// Fingerprint hashes the first MiB of a file together with its size. It
// detects re-encodes and replaced transfers without reading whole lossless
// files.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	h := xxhash.New64()
	if _, err := io.CopyN(h, f, fingerprintPrefix); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], uint64(info.Size()))
	_, _ = h.Write(size[:])
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
