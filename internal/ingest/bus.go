// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package ingest

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// busBufferSize bounds in-flight observations on the in-process
// transport. A full buffer blocks the producer, which is correct:
// sampling must not outrun the flash.
const busBufferSize = 256

// NewGoChannelBus builds the default in-process transport.
func NewGoChannelBus() *Bus {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: busBufferSize,
		// The recorder is the only subscriber; nothing persists here.
		// Durability is the storage layer's job, not the bus's.
		Persistent: false,
	}, newWMLogger())

	return &Bus{
		publisher:  ps,
		subscriber: ps,
		closeFn:    ps.Close,
	}
}
