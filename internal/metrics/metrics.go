// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package metrics defines the Prometheus instrumentation for the daemon:
// storage durability, upload scheduling, observation ingest, the admin
// API, and the health monitor. Exposition is on GET /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Storage Metrics
// =============================================================================

var (
	// StorageWritesTotal counts record writes per backend.
	StorageWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_writes_total",
			Help: "Total record write attempts per storage backend",
		},
		[]string{"backend", "success"},
	)

	// StorageWriteDuration observes the full open-append-fsync-close cycle.
	StorageWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_write_duration_seconds",
			Help:    "Duration of one atomic record append, including fsync",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"backend"},
	)

	// StorageRecordsPending tracks records awaiting upload.
	StorageRecordsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storage_records_pending",
			Help: "Records written but not yet confirmed uploaded",
		},
	)

	// StorageLiveRecords tracks records currently present per backend.
	StorageLiveRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storage_live_records",
			Help: "Records currently present in the log file",
		},
		[]string{"backend"},
	)

	// StorageRecordsEvicted counts records dropped by circular trims.
	StorageRecordsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_records_evicted_total",
			Help: "Records evicted by circular buffer trims",
		},
	)

	// StorageMetaFlushes counts metadata file rewrites, the flash wear
	// the batching exists to contain.
	StorageMetaFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_meta_flushes_total",
			Help: "Metadata file rewrites per backend and trigger",
		},
		[]string{"backend", "reason"}, // "threshold", "forced"
	)

	// StorageDecodeErrors counts undecodable lines skipped during reads.
	StorageDecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_decode_errors_total",
			Help: "Log lines skipped because they failed to decode",
		},
		[]string{"backend"},
	)
)

// RecordStorageWrite records one write attempt and its duration.
func RecordStorageWrite(backend string, success bool, duration time.Duration) {
	StorageWritesTotal.WithLabelValues(backend, strconv.FormatBool(success)).Inc()
	if success {
		StorageWriteDuration.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

// SetPendingRecords updates the facade-level pending gauge.
func SetPendingRecords(n uint64) {
	StorageRecordsPending.Set(float64(n))
}

// SetLiveRecords updates a backend's occupancy gauge.
func SetLiveRecords(backend string, n uint64) {
	StorageLiveRecords.WithLabelValues(backend).Set(float64(n))
}

// RecordEviction records a circular trim that dropped n records.
func RecordEviction(n uint64) {
	StorageRecordsEvicted.Add(float64(n))
}

// RecordMetaFlush records one metadata rewrite.
func RecordMetaFlush(backend, reason string) {
	StorageMetaFlushes.WithLabelValues(backend, reason).Inc()
}

// RecordDecodeError records a skipped undecodable line.
func RecordDecodeError(backend string) {
	StorageDecodeErrors.WithLabelValues(backend).Inc()
}

// =============================================================================
// Upload Scheduler Metrics
// =============================================================================

var (
	// UploadCyclesTotal counts completed scheduler cycles by outcome.
	UploadCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_cycles_total",
			Help: "Completed upload cycles by terminal outcome",
		},
		[]string{"outcome"},
	)

	// UploadDuration observes transmit-phase duration.
	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upload_duration_seconds",
			Help:    "Duration of the transmit phase of an upload cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// UploadRecordsConfirmed counts records confirmed by the endpoint.
	UploadRecordsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_records_confirmed_total",
			Help: "Records whose upload the endpoint acknowledged",
		},
	)

	// UploadWireBytes counts payload bytes confirmed transmitted.
	UploadWireBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_wire_bytes_total",
			Help: "Payload bytes confirmed transmitted",
		},
	)

	// UploadRetryLevel tracks the current backoff table index.
	UploadRetryLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upload_retry_level",
			Help: "Current backoff level, 0 when the last upload succeeded",
		},
	)

	// TimeSyncsTotal counts absolute-time sync attempts.
	TimeSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "time_syncs_total",
			Help: "Absolute time sync attempts against the endpoint",
		},
		[]string{"success"},
	)

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_circuit_breaker_transitions_total",
			Help: "Upload circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)
)

// RecordUploadCycle records a cycle outcome; transmit duration is observed
// only for cycles that reached the wire.
func RecordUploadCycle(outcome string, transmitted bool, duration time.Duration) {
	UploadCyclesTotal.WithLabelValues(outcome).Inc()
	if transmitted {
		UploadDuration.Observe(duration.Seconds())
	}
}

// RecordUploadConfirmed records endpoint-acknowledged records and bytes.
func RecordUploadConfirmed(records int, wireBytes int) {
	UploadRecordsConfirmed.Add(float64(records))
	UploadWireBytes.Add(float64(wireBytes))
}

// SetRetryLevel updates the backoff level gauge.
func SetRetryLevel(level int) {
	UploadRetryLevel.Set(float64(level))
}

// RecordTimeSync records one clock sync attempt.
func RecordTimeSync(success bool) {
	TimeSyncsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(from, to string) {
	CircuitBreakerTransitions.WithLabelValues(from, to).Inc()
}

// =============================================================================
// Ingest Metrics
// =============================================================================

var (
	// IngestPublished counts observations published to the bus per source.
	IngestPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_published_total",
			Help: "Observations published to the ingest bus",
		},
		[]string{"source"}, // "simulator", "nats", "api"
	)

	// IngestStored counts observations the recorder persisted.
	IngestStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_stored_total",
			Help: "Observations persisted by the recorder",
		},
	)

	// IngestDropped counts observations discarded before storage.
	IngestDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_dropped_total",
			Help: "Observations dropped before reaching storage",
		},
		[]string{"reason"}, // "decode", "write"
	)
)

// RecordIngestPublished records one observation entering the bus.
func RecordIngestPublished(source string) {
	IngestPublished.WithLabelValues(source).Inc()
}

// RecordIngestStored records one observation persisted by the recorder.
func RecordIngestStored() {
	IngestStored.Inc()
}

// RecordIngestDropped records one observation discarded before storage.
func RecordIngestDropped(reason string) {
	IngestDropped.WithLabelValues(reason).Inc()
}

// =============================================================================
// Admin API and WebSocket Metrics
// =============================================================================

var (
	// HTTPRequestsTotal counts admin API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Admin API requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes admin API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Admin API request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// WSConnectionsActive tracks connected live-stream clients.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Connected live observation stream clients",
		},
	)

	// WSMessagesSent counts broadcast live-stream messages.
	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Observation messages broadcast to live-stream clients",
		},
	)

	// AuthFailuresTotal counts rejected admin API credentials.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Admin API authentication failures",
		},
		[]string{"mode"}, // "token", "jwt"
	)
)

// RecordHTTPRequest records one served admin API request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// WSConnect increments the live-stream connection gauge.
func WSConnect() {
	WSConnectionsActive.Inc()
}

// WSDisconnect decrements the live-stream connection gauge.
func WSDisconnect() {
	WSConnectionsActive.Dec()
}

// RecordWSMessage records one broadcast live-stream message.
func RecordWSMessage() {
	WSMessagesSent.Inc()
}

// RecordAuthFailure records one rejected credential.
func RecordAuthFailure(mode string) {
	AuthFailuresTotal.WithLabelValues(mode).Inc()
}

// =============================================================================
// Health Monitor Metrics
// =============================================================================

var (
	// HealthEventsTotal counts persisted health events per kind.
	HealthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_events_total",
			Help: "Persisted health events",
		},
		[]string{"kind"}, // "storage", "network"
	)

	// HealthGCRuns counts Badger value-log GC cycles.
	HealthGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_badger_gc_runs_total",
			Help: "Badger value-log garbage collection attempts",
		},
		[]string{"result"}, // "reclaimed", "noop", "error"
	)
)

// RecordHealthEvent records one persisted health event.
func RecordHealthEvent(kind string) {
	HealthEventsTotal.WithLabelValues(kind).Inc()
}

// RecordHealthGC records one Badger GC cycle.
func RecordHealthGC(result string) {
	HealthGCRuns.WithLabelValues(result).Inc()
}
