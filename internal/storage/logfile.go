// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/hydrolog/internal/codec"
	"github.com/tomtom215/hydrolog/internal/models"
)

const (
	logFileName  = "observations.log"
	metaFileName = "meta.json"

	logFileMode  = 0o644
	metaFileMode = 0o644
)

// appendLine appends one record line with the full atomicity sequence:
// open, write, fsync, close. A power loss mid-sequence corrupts at most
// this line, and only as a missing trailing newline.
func appendLine(path, line string) (int, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
	if err != nil {
		return 0, fmt.Errorf("open log: %w", err)
	}

	n, err := f.WriteString(line + "\n")
	if err != nil {
		f.Close()
		return n, fmt.Errorf("append record: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return n, fmt.Errorf("sync log: %w", err)
	}

	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close log: %w", err)
	}

	return n, nil
}

// ensureLogFile creates the log with its header line if it does not exist.
func ensureLogFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat log: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, logFileMode)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create log: %w", err)
	}

	if _, err := f.WriteString(codec.Header() + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write log header: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync log header: %w", err)
	}
	return f.Close()
}

// isDataLine reports whether a newline-stripped line holds a record.
func isDataLine(line string) bool {
	return line != "" && !codec.IsComment(line)
}

// countDataLines counts complete record lines. A final line without a
// trailing newline is a torn write and is not counted.
func countDataLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var count uint64
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			// Torn tail, if any, stays uncounted
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("scan log: %w", err)
		}
		if isDataLine(strings.TrimSuffix(line, "\n")) {
			count++
		}
	}
}

// scanRecords implements the ReadRecords contract over a log file:
// seek to sinceOffset, skip skipCount decoded records, decode up to
// maxCount, report undecodable lines through onDecodeError and keep
// going. Returns the byte offset after the last line consumed.
func scanRecords(path string, sinceOffset int64, maxCount, skipCount int, onDecodeError func(err error)) ([]models.Observation, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sinceOffset, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if sinceOffset > 0 {
		if _, err := f.Seek(sinceOffset, io.SeekStart); err != nil {
			return nil, sinceOffset, fmt.Errorf("seek log: %w", err)
		}
	}

	var (
		out     []models.Observation
		pos     = sinceOffset
		skipped int
	)

	r := bufio.NewReader(f)
	for maxCount > 0 {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			// A partial read here is a torn final line; never decoded
			break
		}
		if err != nil {
			return out, pos, fmt.Errorf("scan log: %w", err)
		}

		pos += int64(len(line))
		trimmed := strings.TrimSuffix(line, "\n")
		if !isDataLine(trimmed) {
			continue
		}

		o, derr := codec.Decode(trimmed)
		if derr != nil {
			if onDecodeError != nil {
				onDecodeError(derr)
			}
			continue
		}

		if skipped < skipCount {
			skipped++
			continue
		}

		out = append(out, o)
		if len(out) >= maxCount {
			break
		}
	}

	return out, pos, nil
}

// readDataLines returns every complete record line as raw text, header
// and comments excluded. Used by eviction, which must preserve lines it
// cannot decode rather than silently dropping data.
func readDataLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, fmt.Errorf("scan log: %w", err)
		}
		trimmed := strings.TrimSuffix(line, "\n")
		if isDataLine(trimmed) {
			lines = append(lines, trimmed)
		}
	}
}

// atomicWriteFile replaces path via a temp file in the same directory,
// fsync, then rename, so readers see either the old content or the new,
// never a partial write.
func atomicWriteFile(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// fileSize returns the log file size, zero if absent.
func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
