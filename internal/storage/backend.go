// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"errors"

	"github.com/tomtom215/hydrolog/internal/models"
)

// Sentinel errors. Callers branch with errors.Is; the concrete cause is
// wrapped alongside.
var (
	// ErrNotMounted means the backend's backing directory is absent or
	// unwritable. Expected for the durable backend when the card is out.
	ErrNotMounted = errors.New("storage backend not mounted")

	// ErrWriteFailed wraps an OS-level append failure.
	ErrWriteFailed = errors.New("storage write failed")

	// ErrStoreClosed means the store was already closed.
	ErrStoreClosed = errors.New("storage backend closed")

	// ErrFull is reserved for a future hard quota on the durable store.
	ErrFull = errors.New("storage backend full")
)

// Backend is one observation log with its own metadata counters. Two
// implementations exist: CircularStore (bounded, internal flash) and
// DurableStore (unbounded, removable media).
type Backend interface {
	// Write appends one observation. The append is atomic with respect
	// to power loss: open, write, fsync, close.
	Write(o *models.Observation) error

	// ReadRecords scans from byte offset sinceOffset (0 = start), skips
	// skipCount decoded records, and returns up to maxCount records plus
	// the byte offset after the last line consumed. Undecodable lines
	// are skipped and count toward neither skip nor max.
	ReadRecords(sinceOffset int64, maxCount, skipCount int) ([]models.Observation, int64, error)

	// Uploaded returns the upload-progress cursor, a record count.
	Uploaded() uint64

	// PendingCount returns total written minus uploaded, saturating at
	// zero.
	PendingCount() uint64

	// AdvanceCursor adds n to the cursor, clamped to total written, and
	// forces a metadata flush.
	AdvanceCursor(n uint64) error

	// AddBytesUploaded grows the lifetime wire-bytes counter. Batched
	// like writes.
	AddBytesUploaded(n uint64) error

	// Clear truncates the log back to its header and zeroes the
	// metadata with a forced flush.
	Clear() error

	// Flush forces a metadata flush regardless of the dirty counter.
	Flush() error

	// Close flushes metadata and marks the store closed.
	Close() error

	// Stats returns a snapshot of the backend's counters.
	Stats() models.BackendStats

	// Mounted reports whether the backing directory is usable.
	Mounted() bool

	// Name identifies the backend in logs, metrics, and stats.
	Name() string
}
