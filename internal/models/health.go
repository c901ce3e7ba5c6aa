// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthKind classifies a health event by the subsystem that raised it.
type HealthKind string

const (
	HealthStorage HealthKind = "storage"
	HealthNetwork HealthKind = "network"
)

// HealthEvent is one persisted fault report. Events survive reboots so an
// operator recovering a drifting buoy can see what went wrong weeks ago.
type HealthEvent struct {
	ID        uuid.UUID  `json:"id"`
	At        time.Time  `json:"at"`
	Kind      HealthKind `json:"kind"`
	Component string     `json:"component"` // e.g. 'storage.durable', 'uploader.client'
	Message   string     `json:"message"`
}

// HealthCounters are lifetime per-kind fault totals, persisted
// independently of the event TTL.
type HealthCounters struct {
	Storage uint64 `json:"storage"`
	Network uint64 `json:"network"`
}
