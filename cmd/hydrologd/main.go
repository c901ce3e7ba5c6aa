// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package main is the entry point for the hydrolog daemon.
//
// Hydrolog is the data-durability core of an unattended environmental
// logging buoy: sensor observations flow over an in-process bus into
// two append-only log stores (a capacity-bounded circular log on
// internal flash and an unbounded durable log on removable storage),
// and an upload scheduler drains the pending window to a telemetry
// endpoint with at-least-once delivery.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layering of defaults, YAML, environment
//  2. Health monitor: BadgerDB fault-event store (optional)
//  3. Storage: circular store, durable store, facade
//  4. Ingest: Watermill bus, recorder, optional simulator
//  5. Uploader: HTTP client, scheduler, runner (optional)
//  6. Admin API: Chi server with the live WebSocket stream
//  7. Supervision: suture tree runs everything until SIGINT/SIGTERM
//
// # Build Tags
//
//	go build -tags "nats" ./cmd/hydrologd  # NATS JetStream ingest
//
// # Signal Handling
//
// On SIGINT or SIGTERM the tree shuts down gracefully, then storage
// metadata is force-flushed so the upload cursor survives the reboot.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/hydrolog/internal/api"
	"github.com/tomtom215/hydrolog/internal/config"
	"github.com/tomtom215/hydrolog/internal/devclock"
	"github.com/tomtom215/hydrolog/internal/health"
	"github.com/tomtom215/hydrolog/internal/ingest"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/models"
	"github.com/tomtom215/hydrolog/internal/storage"
	"github.com/tomtom215/hydrolog/internal/supervisor"
	"github.com/tomtom215/hydrolog/internal/uploader"
	ws "github.com/tomtom215/hydrolog/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("device_id", cfg.Device.ID).
		Str("circular_path", cfg.Storage.CircularPath).
		Str("durable_path", cfg.Storage.DurablePath).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting hydrolog")

	device := models.DeviceInfo{
		ID:       cfg.Device.ID,
		Name:     cfg.Device.Name,
		Firmware: cfg.Device.Firmware,
	}
	clock := devclock.NewSystemClock()

	// Health monitor first so storage can report faults from the start.
	var (
		monitor      *health.Monitor
		reporter     health.Reporter = health.NopReporter{}
		healthSource health.Source
	)
	if cfg.Health.Enabled {
		monitor, err = health.NewMonitor(health.Config{
			Path:       cfg.Health.Path,
			EventTTL:   cfg.Health.EventTTL,
			GCInterval: cfg.Health.GCInterval,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open health monitor")
		}
		defer func() {
			if err := monitor.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing health monitor")
			}
		}()
		reporter = monitor
		healthSource = monitor
	}

	circular, err := storage.OpenCircular(storage.CircularOptions{
		Dir:            cfg.Storage.CircularPath,
		Capacity:       cfg.Storage.CircularCapacity,
		TrimSlack:      cfg.Storage.TrimSlack,
		FlushThreshold: cfg.Storage.MetaFlushThreshold,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open circular store")
	}

	// The durable store opens degraded when the card is absent and
	// remounts on its own; only an empty path disables it entirely.
	var durable *storage.DurableStore
	if cfg.Storage.DurablePath != "" {
		durable, err = storage.OpenDurable(storage.DurableOptions{
			Dir:            cfg.Storage.DurablePath,
			FlushThreshold: cfg.Storage.MetaFlushThreshold,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open durable store")
		}
	}

	facade, err := storage.NewFacade(circular, durable, reporter)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build storage facade")
	}
	defer func() {
		if err := facade.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	// Ingest transport: in-process channel by default, JetStream when
	// enabled (requires the nats build tag).
	var bus *ingest.Bus
	if cfg.Ingest.NATS.Enabled {
		bus, err = ingest.NewNATSBus(cfg.Ingest.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start NATS ingest transport")
		}
	} else {
		bus = ingest.NewGoChannelBus()
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ingest bus")
		}
	}()

	hub := ws.NewHub()
	recorder := ingest.NewRecorder(bus, facade, hub)

	// Uploader is optional: a pure logger deployment runs without an
	// uplink and drains the durable log by card swap.
	var (
		scheduler *uploader.Scheduler
		runner    *uploader.Runner
		apiUp     api.Uploader
	)
	if cfg.Uploader.Enabled {
		client, err := uploader.NewClient(uploader.ClientConfig{
			Endpoint:  cfg.Uploader.Endpoint,
			AuthToken: cfg.Uploader.AuthToken,
			Timeout:   cfg.Uploader.Timeout,
			RateLimit: cfg.Uploader.RateLimit,
			RateBurst: cfg.Uploader.RateBurst,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to build upload client")
		}

		scheduler = uploader.NewScheduler(uploader.SchedulerConfig{
			Device:    device,
			Interval:  cfg.Uploader.Interval,
			BatchSize: cfg.Uploader.BatchSize,
		}, facade, client, clock, nil, reporter)
		runner = uploader.NewRunner(scheduler, cfg.Uploader.Tick)
		apiUp = scheduler
	}

	server, err := api.NewServer(device, facade, apiUp, clock, healthSource, hub, cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build admin API")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if monitor != nil {
		tree.AddDataService(health.NewGCService(monitor))
	}

	tree.AddIngestService(recorder)
	if cfg.Ingest.SimulatorEnabled {
		tree.AddIngestService(ingest.NewSimulator(bus, clock, cfg.Ingest.SimulatorInterval, time.Now().UnixNano()))
		logging.Info().
			Dur("interval", cfg.Ingest.SimulatorInterval).
			Msg("Observation simulator enabled")
	}
	if runner != nil {
		tree.AddIngestService(runner)
	}

	tree.AddAPIService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("Supervision tree starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervision tree exited")
	}

	// Deferred closes flush metadata; log the shutdown before they run.
	logging.Info().Msg("Hydrolog stopped")
}
