package decode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"setbreak/internal/audio"
)

var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
	tempCounter    atomic.Uint64
)

// tempWAVPath names a conversion target unique within this process (counter)
// and across concurrent processes (pid).
func tempWAVPath(dir string) string {
	n := tempCounter.Add(1)
	return filepath.Join(dir, fmt.Sprintf("setbreak-%d-%d.wav", os.Getpid(), n))
}

func (d *Dispatcher) decodeExternal(ctx context.Context, path string) (*audio.Buffer, error) {
	binary, err := lookPath(d.ffmpeg)
	if err != nil {
		return nil, &Error{Kind: KindExternalToolFailure, Path: path, Code: -1, Detail: fmt.Sprintf("%s not found", d.ffmpeg), Err: err}
	}

	tmp := tempWAVPath(d.tempDir)
	defer os.Remove(tmp)

	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", path,
		"-vn",
		"-sn",
		"-dn",
		"-c:a", "pcm_s24le",
		"-f", "wav",
		tmp,
	}
	cmd := commandContext(runCtx, binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		detail := strings.TrimSpace(string(output))
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s", d.timeout)
		} else if noAudioStream(detail) {
			return nil, &Error{Kind: KindUnsupportedFormat, Path: path, Code: code, Detail: detail, Err: err}
		}
		return nil, &Error{Kind: KindExternalToolFailure, Path: path, Code: code, Detail: detail, Err: err}
	}

	buf, err := decodeWAV(ctx, tmp)
	if err != nil {
		var decodeErr *Error
		if errors.As(err, &decodeErr) {
			decodeErr.Path = path
			decodeErr.Detail = "ffmpeg output unreadable"
			return nil, decodeErr
		}
		return nil, corrupt(path, err)
	}
	return buf, nil
}

// noAudioStream reports whether ffmpeg found nothing it could decode as audio.
func noAudioStream(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "does not contain any stream") ||
		strings.Contains(lower, "matches no streams")
}
