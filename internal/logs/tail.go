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

const pollInterval = 250 * time.Millisecond

// TailOptions controls a Tail call. A negative Offset returns the last Limit
// matching records; otherwise records after Offset are returned.
type TailOptions struct {
	Offset int64
	Limit  int
	// Follow waits up to Wait for new records when none are available.
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// TailResult carries the matching records and the offset to resume from.
type TailResult struct {
	Records []Record
	Offset  int64
}

// Tail reads records from the JSON log at path. A missing file yields no
// records and offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	start := opts.Offset
	if start > info.Size() {
		// Truncated or rotated since the caller's last read.
		start = 0
	}
	if start < 0 {
		start = 0
	}

	records, offset, err := readFrom(path, start, opts.Filter)
	if err != nil {
		return TailResult{}, err
	}
	if opts.Offset < 0 && opts.Limit > 0 && len(records) > opts.Limit {
		records = records[len(records)-opts.Limit:]
	}
	if opts.Offset < 0 && opts.Limit <= 0 {
		records = nil
	}
	result := TailResult{Records: records, Offset: offset}
	if len(records) > 0 || !opts.Follow || opts.Wait <= 0 {
		return result, nil
	}
	return waitForRecords(ctx, path, offset, opts)
}

func readFrom(path string, offset int64, filter Filter) ([]Record, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var records []Record
	pos := offset
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// A partial final line is left for the next read.
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		if r, ok := ParseRecord(line); ok && filter.Match(r) {
			records = append(records, r)
		}
	}
	return records, pos, nil
}

func waitForRecords(ctx context.Context, path string, offset int64, opts TailOptions) (TailResult, error) {
	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
		records, next, err := readFrom(path, result.Offset, opts.Filter)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(records) > 0 {
			result.Records = records
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
	}
}
