// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package uploader drains pending observations to the telemetry
// endpoint.
//
// The Scheduler is a non-blocking state machine: each Process call
// either decides it is not yet time and returns immediately, or runs
// one full cycle — link check, time sync, batch read, transmit, cursor
// advance. The cursor moves only after the endpoint acknowledges the
// batch, so a cycle cut short anywhere retransmits the same batch next
// time; delivery is at-least-once by construction.
//
// Cycle timing uses the device's wrapping 32-bit millisecond tick with
// wraparound-correct subtraction. Consecutive endpoint failures stretch
// the interval along a fixed backoff table; precondition bailouts (no
// link, no time, nothing pending) retry at the normal interval.
package uploader

import (
	"errors"

	"github.com/tomtom215/hydrolog/internal/models"
)

// Cycle outcomes as errors, for errors.Is branching in the runner and
// tests. None are fatal and none clear pending data.
var (
	// ErrNoLink means connectivity was down; nothing was attempted.
	ErrNoLink = errors.New("uploader: no link")

	// ErrNoTime means absolute time has never been synced and the sync
	// attempt failed. Storage is untouched.
	ErrNoTime = errors.New("uploader: absolute time unknown")

	// ErrNoData means nothing is pending.
	ErrNoData = errors.New("uploader: no pending records")

	// ErrAPI wraps an endpoint or transport failure.
	ErrAPI = errors.New("uploader: endpoint error")
)

// Outcome is the result of one Process call.
type Outcome string

const (
	// OutcomeWaiting means the interval has not elapsed; no cycle ran.
	OutcomeWaiting Outcome = "waiting"

	OutcomeSuccess Outcome = "success"
	OutcomeNoLink  Outcome = "no_link"
	OutcomeNoTime  Outcome = "no_time"
	OutcomeNoData  Outcome = "no_data"
	OutcomeAPIFail Outcome = "api_error"
)

// status maps an outcome to the diagnostic upload status.
func (o Outcome) status() models.UploadStatus {
	switch o {
	case OutcomeSuccess:
		return models.UploadSuccess
	case OutcomeNoLink:
		return models.UploadNoLink
	case OutcomeNoTime:
		return models.UploadNoTime
	case OutcomeNoData:
		return models.UploadNoData
	default:
		return models.UploadAPIFail
	}
}

// LinkState reports uplink connectivity. On buoy hardware this is the
// modem driver; tests and bench deployments use StaticLink.
type LinkState interface {
	Up() bool
}

// StaticLink is a LinkState pinned to one value.
type StaticLink bool

// Up reports the pinned state.
func (s StaticLink) Up() bool {
	return bool(s)
}
