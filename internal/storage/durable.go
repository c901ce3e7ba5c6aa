// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
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

const backendDurable = "durable"

// DurableOptions configures OpenDurable.
type DurableOptions struct {
	// Dir is the directory on removable media holding the log and
	// metadata files.
	Dir string

	// FlushThreshold is the dirty-counter value that triggers a
	// metadata flush.
	FlushThreshold int
}

// DurableStore is the unbounded append-only archive on removable media.
// Same codec and atomicity contract as the circular store, no eviction.
// The card can be absent at boot or pulled while running; every
// operation except Mounted returns ErrNotMounted while it is out, and
// the store re-probes on the next call.
type DurableStore struct {
	mu           sync.Mutex
	dir          string
	logPath      string
	meta         *metaStore
	mounted      bool
	decodeErrors uint64
	closed       bool
}

// OpenDurable opens the durable store. An unmounted directory is not an
// error; the store opens degraded and probes again on use.
func OpenDurable(opts DurableOptions) (*DurableStore, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("durable store: directory is required")
	}

	d := &DurableStore{
		dir:     opts.Dir,
		logPath: filepath.Join(opts.Dir, logFileName),
	}

	if err := d.mount(opts.FlushThreshold); err != nil {
		logging.Warn().
			Err(err).
			Str("dir", opts.Dir).
			Msg("Durable store unavailable, opening degraded")
		// Keep the threshold for a later remount attempt
		d.meta = &metaStore{
			path:      filepath.Join(opts.Dir, metaFileName),
			backend:   backendDurable,
			threshold: normalizeThreshold(opts.FlushThreshold),
			meta:      Metadata{Schema: metadataSchema},
		}
		return d, nil
	}

	logging.Info().
		Str("dir", opts.Dir).
		Uint64("total_written", d.meta.meta.TotalWritten).
		Uint64("live", d.meta.meta.LiveCount).
		Msg("Durable store opened")
	return d, nil
}

func normalizeThreshold(t int) int {
	if t < 1 {
		return 1
	}
	return t
}

// mount probes the directory, loads metadata, and reconciles against the
// log file. Caller holds the mutex (or the store is not yet shared).
func (d *DurableStore) mount(threshold int) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.mounted = false
		return fmt.Errorf("%w: %v", ErrNotMounted, err)
	}
	if err := ensureLogFile(d.logPath); err != nil {
		d.mounted = false
		return fmt.Errorf("%w: %v", ErrNotMounted, err)
	}

	meta, err := openMetaStore(filepath.Join(d.dir, metaFileName), backendDurable, threshold)
	if err != nil {
		d.mounted = false
		return fmt.Errorf("%w: %v", ErrNotMounted, err)
	}
	d.meta = meta

	lines, err := countDataLines(d.logPath)
	if err != nil {
		d.mounted = false
		return fmt.Errorf("%w: %v", ErrNotMounted, err)
	}

	m := &d.meta.meta
	if lines > m.LiveCount {
		delta := lines - m.LiveCount
		m.TotalWritten += delta
		m.LiveCount = lines
		logging.Info().
			Uint64("unflushed_tail", delta).
			Msg("Durable store recovered records written after last metadata flush")
		if err := d.meta.flush("recovery"); err != nil {
			d.mounted = false
			return fmt.Errorf("%w: %v", ErrNotMounted, err)
		}
	} else if lines < m.LiveCount {
		logging.Warn().
			Uint64("expected", m.LiveCount).
			Uint64("found", lines).
			Msg("Durable store log shorter than metadata, reconciling")
		m.LiveCount = lines
		if err := d.meta.flush("recovery"); err != nil {
			d.mounted = false
			return fmt.Errorf("%w: %v", ErrNotMounted, err)
		}
	}

	d.mounted = true
	metrics.SetLiveRecords(backendDurable, m.LiveCount)
	return nil
}

// remountLocked retries the mount probe after a failure. Caller holds
// the mutex.
func (d *DurableStore) remountLocked() bool {
	if d.mounted {
		return true
	}
	if err := d.mount(d.meta.threshold); err != nil {
		return false
	}
	logging.Info().Str("dir", d.dir).Msg("Durable store remounted")
	return true
}

// Write appends one observation, per the Backend contract.
func (d *DurableStore) Write(o *models.Observation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrStoreClosed
	}
	if !d.remountLocked() {
		return ErrNotMounted
	}

	start := time.Now()
	if _, err := appendLine(d.logPath, codec.Encode(o)); err != nil {
		// A failed append on removable media usually means the card
		// was pulled; re-probe on the next operation.
		d.mounted = false
		metrics.RecordStorageWrite(backendDurable, false, time.Since(start))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	d.meta.meta.TotalWritten++
	d.meta.meta.LiveCount++
	metrics.RecordStorageWrite(backendDurable, true, time.Since(start))
	metrics.SetLiveRecords(backendDurable, d.meta.meta.LiveCount)

	return d.meta.markDirty()
}

// ReadRecords scans decoded records per the Backend contract.
func (d *DurableStore) ReadRecords(sinceOffset int64, maxCount, skipCount int) ([]models.Observation, int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, sinceOffset, ErrStoreClosed
	}
	if !d.remountLocked() {
		return nil, sinceOffset, ErrNotMounted
	}

	return scanRecords(d.logPath, sinceOffset, maxCount, skipCount, func(err error) {
		d.decodeErrors++
		metrics.RecordDecodeError(backendDurable)
		logging.Debug().Err(err).Msg("Durable store skipped undecodable line")
	})
}

// Uploaded returns this backend's own cursor. Present for the Backend
// contract; the facade treats the circular backend's cursor as
// authoritative.
func (d *DurableStore) Uploaded() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta.meta.Uploaded
}

// PendingCount returns total written minus uploaded, saturating at zero.
func (d *DurableStore) PendingCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return pendingOf(&d.meta.meta)
}

// AdvanceCursor moves the cursor forward with a forced flush.
func (d *DurableStore) AdvanceCursor(n uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrStoreClosed
	}
	if !d.remountLocked() {
		return ErrNotMounted
	}

	m := &d.meta.meta
	m.Uploaded += n
	if m.Uploaded > m.TotalWritten {
		m.Uploaded = m.TotalWritten
	}
	return d.meta.flush("cursor")
}

// AddBytesUploaded grows the lifetime wire-bytes counter.
func (d *DurableStore) AddBytesUploaded(n uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrStoreClosed
	}
	if !d.mounted {
		return ErrNotMounted
	}

	d.meta.meta.BytesUploaded += n
	return d.meta.markDirty()
}

// Clear truncates the log back to its header and zeroes the metadata.
func (d *DurableStore) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrStoreClosed
	}
	if !d.remountLocked() {
		return ErrNotMounted
	}

	if err := atomicWriteFile(d.logPath, []byte(codec.Header()+"\n"), logFileMode); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}

	d.meta.meta = Metadata{Schema: metadataSchema}
	metrics.SetLiveRecords(backendDurable, 0)
	logging.Info().Msg("Durable store cleared")
	return d.meta.flush("clear")
}

// Flush forces a metadata flush.
func (d *DurableStore) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrStoreClosed
	}
	if !d.mounted {
		return ErrNotMounted
	}
	return d.meta.flush("shutdown")
}

// Close flushes metadata if mounted and marks the store closed.
func (d *DurableStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if !d.mounted {
		return nil
	}
	return d.meta.flush("shutdown")
}

// Stats returns a snapshot of the backend counters.
func (d *DurableStore) Stats() models.BackendStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	m := &d.meta.meta
	return models.BackendStats{
		Name:          backendDurable,
		Mounted:       d.mounted,
		TotalWritten:  m.TotalWritten,
		Uploaded:      m.Uploaded,
		BytesUploaded: m.BytesUploaded,
		LiveCount:     m.LiveCount,
		DecodeErrors:  d.decodeErrors,
		SizeBytes:     fileSize(d.logPath),
	}
}

// Mounted reports whether the backing directory answered the last probe.
func (d *DurableStore) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted && !d.closed
}

// Name identifies the backend.
func (d *DurableStore) Name() string {
	return backendDurable
}
