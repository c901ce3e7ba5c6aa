// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package ingest

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Store is the slice of the storage facade the recorder writes through.
type Store interface {
	Write(o *models.Observation) error
}

// Broadcaster fans accepted observations out to live admin clients.
type Broadcaster interface {
	BroadcastObservation(o models.Observation)
}

// Recorder is the single storage writer: it subscribes to the
// observation topic and funnels every record through the facade. All
// messages are acked, stored or not — an unstorable observation must
// not wedge the pipeline, and a write failure is already reported
// through health events by the facade.
type Recorder struct {
	bus       *Bus
	store     Store
	broadcast Broadcaster
}

// NewRecorder builds the recorder. broadcast may be nil.
func NewRecorder(bus *Bus, store Store, broadcast Broadcaster) *Recorder {
	return &Recorder{bus: bus, store: store, broadcast: broadcast}
}

// Serve implements suture.Service: consume until the context ends.
func (r *Recorder) Serve(ctx context.Context) error {
	msgs, err := r.bus.Subscriber().Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	logging.Info().Str("topic", Topic).Msg("Recorder consuming observations")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			r.handle(msg)
		}
	}
}

func (r *Recorder) handle(msg *message.Message) {
	defer msg.Ack()

	var o models.Observation
	if err := json.Unmarshal(msg.Payload, &o); err != nil {
		metrics.RecordIngestDropped("decode")
		logging.Warn().
			Err(err).
			Str("message_id", msg.UUID).
			Msg("Dropping undecodable observation message")
		return
	}

	if err := r.store.Write(&o); err != nil {
		metrics.RecordIngestDropped("write")
		logging.Error().
			Err(err).
			Str("sensor", o.SensorType).
			Msg("Observation lost, no backend accepted it")
		return
	}

	metrics.RecordIngestStored()
	if r.broadcast != nil {
		r.broadcast.BroadcastObservation(o)
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *Recorder) String() string {
	return "recorder"
}
