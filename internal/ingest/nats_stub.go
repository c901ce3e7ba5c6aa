// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

//go:build !nats

package ingest

import (
	"fmt"

	"github.com/tomtom215/hydrolog/internal/config"
)

// NewNATSBus is a stub without the nats build tag. Build with
// -tags=nats to run the JetStream ingest transport.
func NewNATSBus(_ config.NATSConfig) (*Bus, error) {
	return nil, fmt.Errorf("nats ingest transport not compiled in, rebuild with -tags=nats")
}
