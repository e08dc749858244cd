package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLine = 1 << 20

// Last returns up to limit of the most recent matching entries and the offset
// after the last complete line, which Follow takes as its starting point. A
// missing file yields no entries. A limit of zero or less returns every match.
func Last(path string, limit int, filter Filter) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var (
		ring  []Entry
		start int
	)
	offset, err := scan(file, func(e Entry) {
		if !filter.Match(e) {
			return
		}
		if limit <= 0 || len(ring) < limit {
			ring = append(ring, e)
			return
		}
		ring[start] = e
		start = (start + 1) % limit
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]Entry, 0, len(ring))
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out, offset, nil
}

// Follow polls path from offset and hands each new matching entry to fn
// until ctx is done. A truncated file is read again from the start.
func Follow(ctx context.Context, path string, offset int64, filter Filter, poll time.Duration, fn func(Entry)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, fn)
		if err != nil {
			return err
		}
		offset = next
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, fn func(Entry)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scan(file, func(e Entry) {
		if filter.Match(e) {
			fn(e)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scan parses complete lines and returns the number of bytes consumed. A
// trailing line without a newline is left for the next read.
func scan(r io.Reader, fn func(Entry)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLine {
			continue
		}
		if e, ok := Parse(line); ok {
			fn(e)
		}
	}
}
