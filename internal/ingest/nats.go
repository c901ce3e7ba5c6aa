// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

//go:build nats

package ingest

import (
	"fmt"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/hydrolog/internal/config"
	"github.com/tomtom215/hydrolog/internal/logging"
)

// NewNATSBus builds the JetStream transport, optionally starting an
// embedded nats-server first. External sensor pods publish to the same
// stream; the recorder's durable consumer survives daemon restarts
// without losing observations queued while it was down.
func NewNATSBus(cfg config.NATSConfig) (*Bus, error) {
	url := cfg.URL
	var embedded *server.Server

	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		embedded = ns
		url = ns.ClientURL()
	}

	logger := newWMLogger()

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create ingest publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.DurableName,
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create ingest subscriber: %w", err)
	}

	logging.Info().
		Str("url", url).
		Bool("embedded", cfg.EmbeddedServer).
		Msg("NATS ingest transport ready")

	return &Bus{
		publisher:  pub,
		subscriber: sub,
		closeFn: func() error {
			pubErr := pub.Close()
			subErr := sub.Close()
			shutdownEmbedded(embedded)
			if pubErr != nil {
				return pubErr
			}
			return subErr
		},
	}, nil
}

func startEmbeddedServer(cfg config.NATSConfig) (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: "hydrolog-ingest",
		Host:       "127.0.0.1",
		Port:       -1, // random free port; pods discover via ClientURL
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready within timeout")
	}
	return ns, nil
}

func shutdownEmbedded(ns *server.Server) {
	if ns == nil {
		return
	}
	ns.Shutdown()
	ns.WaitForShutdown()
}
