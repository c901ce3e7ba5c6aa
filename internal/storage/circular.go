// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomtom215/hydrolog/internal/codec"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

const backendCircular = "circular"

// CircularOptions configures OpenCircular.
type CircularOptions struct {
	// Dir is the directory holding the log and metadata files.
	Dir string

	// Capacity is the record count the log is trimmed back to.
	Capacity int

	// TrimSlack is how many records past capacity may accumulate before
	// a trim rewrites the file.
	TrimSlack int

	// FlushThreshold is the dirty-counter value that triggers a
	// metadata flush.
	FlushThreshold int
}

// CircularStore is the capacity-bounded observation log on internal
// flash. It is the authoritative holder of the upload cursor.
type CircularStore struct {
	mu           sync.Mutex
	dir          string
	logPath      string
	meta         *metaStore
	capacity     uint64
	slack        uint64
	decodeErrors uint64
	closed       bool
}

// OpenCircular opens or creates the circular store and reconciles its
// metadata against the log file.
func OpenCircular(opts CircularOptions) (*CircularStore, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("circular store: directory is required")
	}
	if opts.Capacity < 1 {
		return nil, fmt.Errorf("circular store: capacity must be positive, got %d", opts.Capacity)
	}
	if opts.TrimSlack < 0 {
		opts.TrimSlack = 0
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create circular store directory: %w", err)
	}

	logPath := filepath.Join(opts.Dir, logFileName)
	if err := ensureLogFile(logPath); err != nil {
		return nil, fmt.Errorf("circular store: %w", err)
	}

	meta, err := openMetaStore(filepath.Join(opts.Dir, metaFileName), backendCircular, opts.FlushThreshold)
	if err != nil {
		return nil, fmt.Errorf("circular store: %w", err)
	}

	c := &CircularStore{
		dir:      opts.Dir,
		logPath:  logPath,
		meta:     meta,
		capacity: uint64(opts.Capacity),
		slack:    uint64(opts.TrimSlack),
	}

	if err := c.recover(); err != nil {
		return nil, fmt.Errorf("circular store: %w", err)
	}

	metrics.SetLiveRecords(backendCircular, c.meta.meta.LiveCount)
	logging.Info().
		Str("dir", opts.Dir).
		Uint64("capacity", c.capacity).
		Uint64("trim_slack", c.slack).
		Uint64("total_written", c.meta.meta.TotalWritten).
		Uint64("uploaded", c.meta.meta.Uploaded).
		Uint64("live", c.meta.meta.LiveCount).
		Msg("Circular store opened")

	return c, nil
}

// recover reconciles the persisted counters with the log file. Records
// appended after the last metadata flush appear as extra data lines;
// a torn final line is not counted. The cursor is never adjusted here
// because cursor advances always force a flush.
func (c *CircularStore) recover() error {
	lines, err := countDataLines(c.logPath)
	if err != nil {
		return fmt.Errorf("recovery scan: %w", err)
	}

	m := &c.meta.meta
	switch {
	case lines > m.LiveCount:
		delta := lines - m.LiveCount
		m.TotalWritten += delta
		m.LiveCount = lines
		logging.Info().
			Uint64("unflushed_tail", delta).
			Uint64("total_written", m.TotalWritten).
			Msg("Circular store recovered records written after last metadata flush")
		if err := c.meta.flush("recovery"); err != nil {
			return err
		}

	case lines < m.LiveCount:
		// Log shrank outside our control; trust the file
		logging.Warn().
			Uint64("expected", m.LiveCount).
			Uint64("found", lines).
			Msg("Circular store log shorter than metadata, reconciling")
		m.LiveCount = lines
		if m.TotalWritten > 0 && m.TotalWritten < m.Uploaded {
			m.Uploaded = m.TotalWritten
		}
		if err := c.meta.flush("recovery"); err != nil {
			return err
		}
	}

	if c.meta.meta.LiveCount > c.capacity+c.slack {
		return c.trimLocked()
	}
	return nil
}

// Write appends one observation and maintains the counters, evicting
// when the log has grown past capacity plus slack.
func (c *CircularStore) Write(o *models.Observation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}

	start := time.Now()
	if _, err := appendLine(c.logPath, codec.Encode(o)); err != nil {
		metrics.RecordStorageWrite(backendCircular, false, time.Since(start))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	c.meta.meta.TotalWritten++
	c.meta.meta.LiveCount++
	metrics.RecordStorageWrite(backendCircular, true, time.Since(start))
	metrics.SetLiveRecords(backendCircular, c.meta.meta.LiveCount)

	if c.meta.meta.LiveCount > c.capacity+c.slack {
		return c.trimLocked()
	}
	return c.meta.markDirty()
}

// trimLocked rewrites the log keeping only the newest capacity records.
// Eviction shifts the counter coordinate system: total written and the
// cursor both drop by the evicted count, the cursor clamping at zero.
// Caller holds the mutex.
func (c *CircularStore) trimLocked() error {
	lines, err := readDataLines(c.logPath)
	if err != nil {
		return fmt.Errorf("trim scan: %w", err)
	}

	live := uint64(len(lines))
	if live <= c.capacity {
		if c.meta.meta.LiveCount != live {
			c.meta.meta.LiveCount = live
			return c.meta.flush("trim")
		}
		return nil
	}

	evicted := live - c.capacity
	keep := lines[evicted:]

	var buf bytes.Buffer
	buf.WriteString(codec.Header() + "\n")
	for _, line := range keep {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := atomicWriteFile(c.logPath, buf.Bytes(), logFileMode); err != nil {
		return fmt.Errorf("trim rewrite: %w", err)
	}

	m := &c.meta.meta
	if m.TotalWritten >= evicted {
		m.TotalWritten -= evicted
	} else {
		m.TotalWritten = uint64(len(keep))
	}
	if m.Uploaded >= evicted {
		m.Uploaded -= evicted
	} else {
		m.Uploaded = 0
	}
	m.LiveCount = uint64(len(keep))

	metrics.RecordEviction(evicted)
	metrics.SetLiveRecords(backendCircular, m.LiveCount)
	logging.Info().
		Uint64("evicted", evicted).
		Uint64("live", m.LiveCount).
		Uint64("uploaded", m.Uploaded).
		Msg("Circular store trimmed to capacity")

	return c.meta.flush("trim")
}

// TrimToCapacity trims the log to capacity immediately, regardless of
// slack.
func (c *CircularStore) TrimToCapacity() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}
	return c.trimLocked()
}

// ReadRecords scans decoded records per the Backend contract.
func (c *CircularStore) ReadRecords(sinceOffset int64, maxCount, skipCount int) ([]models.Observation, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, sinceOffset, ErrStoreClosed
	}

	return scanRecords(c.logPath, sinceOffset, maxCount, skipCount, func(err error) {
		c.decodeErrors++
		metrics.RecordDecodeError(backendCircular)
		logging.Debug().Err(err).Msg("Circular store skipped undecodable line")
	})
}

// Uploaded returns the upload cursor.
func (c *CircularStore) Uploaded() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta.meta.Uploaded
}

// PendingCount returns total written minus uploaded, saturating at zero.
func (c *CircularStore) PendingCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pendingOf(&c.meta.meta)
}

// AdvanceCursor moves the upload cursor forward and forces a metadata
// flush so the cursor on disk is never stale.
func (c *CircularStore) AdvanceCursor(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}

	m := &c.meta.meta
	m.Uploaded += n
	if m.Uploaded > m.TotalWritten {
		m.Uploaded = m.TotalWritten
	}
	return c.meta.flush("cursor")
}

// AddBytesUploaded grows the lifetime wire-bytes counter, batched like
// record writes.
func (c *CircularStore) AddBytesUploaded(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}

	c.meta.meta.BytesUploaded += n
	return c.meta.markDirty()
}

// Clear truncates the log back to its header and zeroes the metadata.
func (c *CircularStore) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}

	if err := atomicWriteFile(c.logPath, []byte(codec.Header()+"\n"), logFileMode); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}

	c.meta.meta = Metadata{Schema: metadataSchema}
	metrics.SetLiveRecords(backendCircular, 0)
	logging.Info().Msg("Circular store cleared")
	return c.meta.flush("clear")
}

// Flush forces a metadata flush.
func (c *CircularStore) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}
	return c.meta.flush("shutdown")
}

// Close flushes metadata and marks the store closed.
func (c *CircularStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	err := c.meta.flush("shutdown")
	c.closed = true
	return err
}

// Stats returns a snapshot of the backend counters.
func (c *CircularStore) Stats() models.BackendStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := &c.meta.meta
	return models.BackendStats{
		Name:          backendCircular,
		Mounted:       true,
		TotalWritten:  m.TotalWritten,
		Uploaded:      m.Uploaded,
		BytesUploaded: m.BytesUploaded,
		LiveCount:     m.LiveCount,
		Capacity:      c.capacity,
		DecodeErrors:  c.decodeErrors,
		SizeBytes:     fileSize(c.logPath),
	}
}

// Mounted always reports true once the store opened; internal flash does
// not come and go.
func (c *CircularStore) Mounted() bool {
	return true
}

// Name identifies the backend.
func (c *CircularStore) Name() string {
	return backendCircular
}

// pendingOf computes pending records from one metadata snapshot,
// saturating at zero.
func pendingOf(m *Metadata) uint64 {
	if m.TotalWritten <= m.Uploaded {
		return 0
	}
	return m.TotalWritten - m.Uploaded
}
