// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
)

// metadataSchema versions the metadata file format.
const metadataSchema = 1

// Metadata is the per-backend counter file. All counters share the log's
// coordinate system: eviction shifts total_written and uploaded down
// together, so uploaded ≤ total_written holds at all times.
type Metadata struct {
	Schema        int    `json:"schema"`
	TotalWritten  uint64 `json:"total_written"`
	Uploaded      uint64 `json:"uploaded"`
	BytesUploaded uint64 `json:"bytes_uploaded"`

	// LiveCount is the data-line count at the last flush. Recovery
	// compares it against the actual file to find the tail written
	// after the last flush.
	LiveCount uint64 `json:"live_count"`
}

// metaStore owns one metadata file and its write batching. Not
// self-locking; the owning backend's mutex serializes access.
type metaStore struct {
	path      string
	backend   string
	threshold int
	dirty     int
	meta      Metadata
}

// openMetaStore loads the metadata file, starting from zeros when the
// file is absent or unreadable. A corrupt file is logged and discarded;
// recovery against the log rebuilds what it can.
func openMetaStore(path, backend string, threshold int) (*metaStore, error) {
	if threshold < 1 {
		threshold = 1
	}

	m := &metaStore{
		path:      path,
		backend:   backend,
		threshold: threshold,
		meta:      Metadata{Schema: metadataSchema},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var loaded Metadata
	if err := json.Unmarshal(data, &loaded); err != nil {
		logging.Warn().
			Err(err).
			Str("backend", backend).
			Str("path", path).
			Msg("Metadata file corrupt, starting from zero counters")
		return m, nil
	}

	loaded.Schema = metadataSchema
	if loaded.Uploaded > loaded.TotalWritten {
		logging.Warn().
			Str("backend", backend).
			Uint64("uploaded", loaded.Uploaded).
			Uint64("total_written", loaded.TotalWritten).
			Msg("Metadata cursor exceeds total written, clamping")
		loaded.Uploaded = loaded.TotalWritten
	}

	m.meta = loaded
	return m, nil
}

// markDirty counts one counter change and flushes when the batch
// threshold is reached.
func (m *metaStore) markDirty() error {
	m.dirty++
	if m.dirty >= m.threshold {
		return m.flush("threshold")
	}
	return nil
}

// flush rewrites the metadata file atomically and resets the dirty
// counter. reason labels the flush metric: threshold, cursor, trim,
// clear, recovery, or shutdown.
func (m *metaStore) flush(reason string) error {
	data, err := json.Marshal(&m.meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := atomicWriteFile(m.path, data, metaFileMode); err != nil {
		return fmt.Errorf("persist metadata: %w", err)
	}

	m.dirty = 0
	metrics.RecordMetaFlush(m.backend, reason)
	return nil
}
