// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package models

// BackendStats describes one storage backend's durable counters and
// current occupancy.
type BackendStats struct {
	Name          string `json:"name"`    // 'circular' or 'durable'
	Mounted       bool   `json:"mounted"` // backing directory present and writable
	TotalWritten  uint64 `json:"total_written"`
	Uploaded      uint64 `json:"uploaded"`       // upload cursor, record count
	BytesUploaded uint64 `json:"bytes_uploaded"` // lifetime confirmed wire bytes
	LiveCount     uint64 `json:"live_count"`     // records currently in the log file
	Capacity      uint64 `json:"capacity,omitempty"`
	DecodeErrors  uint64 `json:"decode_errors"` // lines skipped during reads
	SizeBytes     int64  `json:"size_bytes"`    // log file size on disk
}

// StorageStats aggregates both backends plus the facade-level pending count.
type StorageStats struct {
	Circular BackendStats `json:"circular"`
	Durable  BackendStats `json:"durable"`
	Pending  uint64       `json:"pending"` // records awaiting upload
}
