// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package ingest moves observations from producers to storage.
//
// Producers publish observations onto a Watermill bus; one Recorder
// goroutine subscribes and owns every storage write, preserving the
// single-writer discipline the backends assume. The default transport
// is an in-process Go channel. Builds tagged `nats` can instead run
// NATS JetStream (optionally embedded), which lets sensor acquisition
// run as separate pods publishing straight to the stream.
package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Topic carries every observation, regardless of transport.
const Topic = "observations"

// Publisher is the producer-facing interface: one fully-populated
// observation per sampling cycle, unavailable fields left nil.
type Publisher interface {
	Publish(ctx context.Context, o models.Observation) error
}

// Bus is one transport: a paired Watermill publisher and subscriber
// plus its teardown.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	closeFn    func() error
}

// Subscriber exposes the raw Watermill subscriber for the Recorder.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Publish implements Publisher: marshal, wrap, send.
func (b *Bus) Publish(_ context.Context, o models.Observation) error {
	payload, err := json.Marshal(&o)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish observation: %w", err)
	}
	return nil
}

// Close tears the transport down.
func (b *Bus) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// wmLogger bridges Watermill's logging into zerolog at debug level;
// transport internals are noise next to the daemon's own events.
type wmLogger struct {
	log zerolog.Logger
}

func newWMLogger() wmLogger {
	return wmLogger{log: logging.With().Str("component", "watermill").Logger()}
}

func (l wmLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), fields).Msg(msg)
}

func (l wmLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), fields).Msg(msg)
}

func (l wmLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), fields).Msg(msg)
}

func (l wmLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), fields).Msg(msg)
}

func (l wmLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return wmLogger{log: ctx.Logger()}
}

func (l wmLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// recordPublished tags the metric for a producer source.
func recordPublished(source string) {
	metrics.RecordIngestPublished(source)
}
