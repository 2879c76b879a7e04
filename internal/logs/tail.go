package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	backScanChunk = 32 * 1024
	pollInterval  = 250 * time.Millisecond
)

// TailOptions controls a single Tail call. A negative Offset reads the last
// Limit lines; Follow waits up to Wait for new lines when none are available.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads complete lines from path. A trailing line without a newline is
// left for the next call so half-written JSON records are never returned. A
// missing file yields no lines and a zero offset; an offset past the end of
// the file (truncation) restarts from the beginning.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	start := opts.Offset
	switch {
	case start < 0:
		start, err = lastLinesStart(file, info.Size(), opts.Limit)
		if err != nil {
			return TailResult{}, err
		}
	case start > info.Size():
		start = 0
	}

	result, err := readComplete(file, start)
	if err != nil || len(result.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return result, err
	}
	return waitForLines(ctx, file, result.Offset, opts.Wait)
}

// lastLinesStart returns the offset of the first of the last limit complete
// lines, scanning backwards in chunks. limit <= 0 means "from the end".
func lastLinesStart(file *os.File, size int64, limit int) (int64, error) {
	if limit <= 0 {
		return size, nil
	}
	buf := make([]byte, backScanChunk)
	newlines := 0
	for end := size; end > 0; {
		begin := max(end-backScanChunk, 0)
		chunk := buf[:end-begin]
		if _, err := file.ReadAt(chunk, begin); err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read log file: %w", err)
		}
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i] != '\n' {
				continue
			}
			// The first newline seen ends the last complete line.
			newlines++
			if newlines == limit+1 {
				return begin + int64(i) + 1, nil
			}
		}
		end = begin
	}
	return 0, nil
}

func readComplete(file *os.File, start int64) (TailResult, error) {
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return TailResult{Offset: start}, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReader(file)
	result := TailResult{Offset: start}
	for {
		raw, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("read log file: %w", err)
		}
		result.Offset += int64(len(raw))
		line := strings.TrimRight(string(bytes.TrimSuffix(raw, []byte{'\n'})), "\r")
		result.Lines = append(result.Lines, line)
	}
}

func waitForLines(ctx context.Context, file *os.File, offset int64, wait time.Duration) (TailResult, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-timer.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
		}
		result, err := readComplete(file, offset)
		if err != nil || len(result.Lines) > 0 {
			return result, err
		}
	}
}
