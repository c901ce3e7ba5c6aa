// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"errors"
	"fmt"

	"github.com/tomtom215/hydrolog/internal/health"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Facade fans writes out to both backends and presents one upload
// cursor to the scheduler.
//
// Writes go to both backends independently; one acceptance is enough.
// Reads prefer the durable backend when its card is in, but the skip
// count is always the circular backend's cursor, so the two logs must
// stay record-count-aligned. When one write fails and the other
// succeeds they diverge, and the cursor can advance past what the
// failed backend holds. Known, documented, and left as is: the
// circular backend is the single source of cursor truth.
type Facade struct {
	circular *CircularStore
	durable  *DurableStore
	reporter health.Reporter
}

// NewFacade combines the two backends. durable may be nil when no
// removable media path is configured; reporter may be nil.
func NewFacade(circular *CircularStore, durable *DurableStore, reporter health.Reporter) (*Facade, error) {
	if circular == nil {
		return nil, fmt.Errorf("storage facade: circular backend is required")
	}
	if reporter == nil {
		reporter = health.NopReporter{}
	}
	return &Facade{circular: circular, durable: durable, reporter: reporter}, nil
}

// Write stores one observation in both backends. It succeeds when at
// least one backend accepted the record; each failure raises a storage
// health event but never blocks the other backend.
func (f *Facade) Write(o *models.Observation) error {
	var firstErr error

	if err := f.circular.Write(o); err != nil {
		firstErr = err
		f.reporter.ReportStorageError("storage.circular", err)
		logging.Error().Err(err).Msg("Circular backend rejected write")
	}

	if f.durable != nil {
		if err := f.durable.Write(o); err != nil {
			// The card being out is the durable backend's normal
			// degraded state, not worth an error-level line each write
			if errors.Is(err, ErrNotMounted) {
				logging.Debug().Err(err).Msg("Durable backend unmounted, write skipped")
			} else {
				logging.Error().Err(err).Msg("Durable backend rejected write")
			}
			f.reporter.ReportStorageError("storage.durable", err)
			if firstErr != nil {
				return fmt.Errorf("both backends rejected write: %w", firstErr)
			}
		} else if firstErr != nil {
			// Durable took it; degrade without failing the write
			firstErr = nil
		}
	} else if firstErr != nil {
		return firstErr
	}

	metrics.SetPendingRecords(f.circular.PendingCount())
	return firstErr
}

// ReadPending returns up to maxCount records not yet confirmed
// uploaded. The durable backend serves the read when mounted, the
// circular backend otherwise; either way the skip count is the
// circular backend's cursor.
func (f *Facade) ReadPending(maxCount int) ([]models.Observation, error) {
	skip := int(f.circular.Uploaded())

	var (
		records []models.Observation
		err     error
	)
	if f.durable != nil && f.durable.Mounted() {
		records, _, err = f.durable.ReadRecords(0, maxCount, skip)
		if err == nil {
			return records, nil
		}
		logging.Warn().Err(err).Msg("Durable read failed, falling back to circular")
	}

	records, _, err = f.circular.ReadRecords(0, maxCount, skip)
	if err != nil {
		return nil, fmt.Errorf("read pending: %w", err)
	}
	return records, nil
}

// RecentRecords returns the newest maxCount records from the healthiest
// backend, oldest first. Serves the admin API; upload batching goes
// through ReadPending.
func (f *Facade) RecentRecords(maxCount int) ([]models.Observation, error) {
	var live uint64
	src := Backend(f.circular)
	if f.durable != nil && f.durable.Mounted() {
		src = f.durable
	}

	live = src.Stats().LiveCount
	skip := 0
	if uint64(maxCount) < live {
		skip = int(live - uint64(maxCount))
	}

	records, _, err := src.ReadRecords(0, maxCount, skip)
	if err != nil {
		return nil, fmt.Errorf("read recent: %w", err)
	}
	return records, nil
}

// AdvanceUploadCursor marks n more records confirmed uploaded. Only the
// circular backend's cursor moves, and the flush is forced so the
// on-disk cursor is never stale.
func (f *Facade) AdvanceUploadCursor(n uint64) error {
	if err := f.circular.AdvanceCursor(n); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	metrics.SetPendingRecords(f.circular.PendingCount())
	return nil
}

// AddBytesUploaded grows the lifetime confirmed-bytes counter, batched
// like record writes.
func (f *Facade) AddBytesUploaded(n uint64) error {
	return f.circular.AddBytesUploaded(n)
}

// PendingCount returns records awaiting upload, from the circular
// backend's counters.
func (f *Facade) PendingCount() uint64 {
	return f.circular.PendingCount()
}

// BytesUploaded returns the lifetime confirmed wire bytes.
func (f *Facade) BytesUploaded() uint64 {
	return f.circular.Stats().BytesUploaded
}

// Stats aggregates both backends plus the cursor-derived pending count.
func (f *Facade) Stats() models.StorageStats {
	s := models.StorageStats{
		Circular: f.circular.Stats(),
		Pending:  f.circular.PendingCount(),
	}
	if f.durable != nil {
		s.Durable = f.durable.Stats()
	} else {
		s.Durable = models.BackendStats{Name: backendDurable, Mounted: false}
	}
	return s
}

// Flush forces both backends' metadata to disk. The shutdown path.
func (f *Facade) Flush() error {
	var firstErr error
	if err := f.circular.Flush(); err != nil {
		firstErr = err
	}
	if f.durable != nil {
		if err := f.durable.Flush(); err != nil && !errors.Is(err, ErrNotMounted) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes and closes both backends.
func (f *Facade) Close() error {
	var firstErr error
	if err := f.circular.Close(); err != nil {
		firstErr = err
	}
	if f.durable != nil {
		if err := f.durable.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
