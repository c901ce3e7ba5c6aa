// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package models

import "time"

// UploadStatus is the terminal status of one upload cycle.
type UploadStatus string

const (
	UploadSuccess UploadStatus = "success"
	UploadNoLink  UploadStatus = "no_link"  // connectivity down, nothing attempted
	UploadNoTime  UploadStatus = "no_time"  // absolute time never synced
	UploadNoData  UploadStatus = "no_data"  // nothing pending
	UploadAPIFail UploadStatus = "api_error"
)

// UploadAttempt is one diagnostic entry in the scheduler's bounded
// attempt history. Attempts are recorded only for cycles that reached
// the transmit phase; precondition bailouts (no link, no time, no data)
// are visible through status counters instead.
type UploadAttempt struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Success     bool          `json:"success"`
	RecordsRead int           `json:"records_read"` // batch size pulled from storage
	RecordsSent int           `json:"records_sent"` // after the payload fix filter
	WireBytes   int           `json:"wire_bytes"`   // payload size on the wire
	Status      UploadStatus  `json:"status"`
	Error       string        `json:"error,omitempty"`
}

// DeviceInfo identifies this buoy to the telemetry endpoint.
type DeviceInfo struct {
	ID       string `json:"id"`       // stable device identifier
	Name     string `json:"name"`     // operator-assigned label
	Firmware string `json:"firmware"` // running software version
}

// UploadPayload is the JSON document POSTed to the telemetry endpoint.
// Delivery is at-least-once: a payload whose acknowledgment is lost is
// retransmitted whole, and the endpoint deduplicates on (device id,
// record timestamps).
type UploadPayload struct {
	Device  DeviceInfo    `json:"device"`
	SentAt  time.Time     `json:"sent_at"`
	Records []Observation `json:"records"`
}
