// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package health persists fault reports across reboots.
//
// The storage facade and the upload scheduler report failures here;
// the monitor stores them in BadgerDB with a TTL and keeps lifetime
// per-kind counters that outlive the events. Reporting never feeds
// back into retry logic: the core retries on its own schedule and the
// monitor is a witness, not a participant.
package health

import (
	"github.com/tomtom215/hydrolog/internal/models"
)

// Reporter receives typed fault reports from the core. Implementations
// must not block the caller for longer than a local DB write.
type Reporter interface {
	// ReportStorageError records a backend write or read failure.
	ReportStorageError(component string, err error)

	// ReportNetworkError records an upload or time-sync failure.
	ReportNetworkError(component string, err error)
}

// Source exposes the persisted health record for the admin API.
type Source interface {
	// Recent returns up to n most recent events, newest first.
	Recent(n int) ([]models.HealthEvent, error)

	// Counters returns the lifetime per-kind fault totals.
	Counters() (models.HealthCounters, error)
}

// NopReporter discards reports. Used in tests and when the health
// store is disabled.
type NopReporter struct{}

// ReportStorageError discards the report.
func (NopReporter) ReportStorageError(string, error) {}

// ReportNetworkError discards the report.
func (NopReporter) ReportNetworkError(string, error) {}
