// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package uploader

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/hydrolog/internal/devclock"
	"github.com/tomtom215/hydrolog/internal/health"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// backoffTable is the interval schedule after consecutive endpoint
// failures, clamped at the last entry. Precondition bailouts do not
// advance it.
var backoffTable = []time.Duration{
	1 * time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

// Storage is the slice of the storage facade the scheduler drives.
type Storage interface {
	ReadPending(maxCount int) ([]models.Observation, error)
	AdvanceUploadCursor(n uint64) error
	AddBytesUploaded(n uint64) error
	PendingCount() uint64
	BytesUploaded() uint64
}

// SchedulerConfig configures the upload state machine.
type SchedulerConfig struct {
	// Device identifies this buoy in every payload.
	Device models.DeviceInfo

	// Interval between cycles under normal conditions.
	Interval time.Duration

	// BatchSize caps records pulled per cycle.
	BatchSize int
}

// Scheduler decides when a cycle is due and runs it. All mutation
// happens inside Process, which exactly one runner goroutine calls;
// the mutex exists so the admin API can read status and request a
// force upload concurrently.
type Scheduler struct {
	cfg      SchedulerConfig
	storage  Storage
	client   Transport
	clock    devclock.Clock
	link     LinkState
	reporter health.Reporter

	mu          sync.Mutex
	lastTick    uint32
	retryCount  int
	force       bool
	lastOutcome Outcome
	lastCycleAt time.Time
	ring        attemptRing
}

// NewScheduler builds the scheduler. The first cycle becomes due one
// interval after construction; ForceUpload short-circuits the wait.
func NewScheduler(cfg SchedulerConfig, storage Storage, client Transport, clock devclock.Clock, link LinkState, reporter health.Reporter) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if link == nil {
		link = StaticLink(true)
	}
	if reporter == nil {
		reporter = health.NopReporter{}
	}

	return &Scheduler{
		cfg:      cfg,
		storage:  storage,
		client:   client,
		clock:    clock,
		link:     link,
		reporter: reporter,
		lastTick: clock.Millis(),
	}
}

// Process runs at most one upload cycle. It returns OutcomeWaiting
// without touching anything when the current interval has not elapsed
// and no force request is queued.
func (s *Scheduler) Process(ctx context.Context) Outcome {
	s.mu.Lock()

	now := s.clock.Millis()
	interval := s.currentIntervalLocked()
	forced := s.force

	// Rollover-safe elapsed check. An absolute-deadline comparison
	// computed near the 2^32 boundary can wrap and freeze the scheduler
	// for the counter's full range; elapsed arithmetic cannot.
	if !forced && time.Duration(devclock.Elapsed(now, s.lastTick))*time.Millisecond < interval {
		s.mu.Unlock()
		return OutcomeWaiting
	}

	s.force = false
	s.lastTick = now
	s.mu.Unlock()

	outcome := s.runCycle(ctx, forced)

	s.mu.Lock()
	s.lastOutcome = outcome
	if t, ok := s.clock.Now(); ok {
		s.lastCycleAt = t
	}
	s.mu.Unlock()

	return outcome
}

// runCycle executes one cycle's phases: link, time, query, transmit.
func (s *Scheduler) runCycle(ctx context.Context, forced bool) Outcome {
	if !s.link.Up() {
		metrics.RecordUploadCycle(string(OutcomeNoLink), false, 0)
		logging.Debug().Msg("Upload cycle skipped, link down")
		return OutcomeNoLink
	}

	if outcome := s.syncTime(ctx); outcome != OutcomeSuccess {
		return outcome
	}

	records, err := s.storage.ReadPending(s.cfg.BatchSize)
	if err != nil {
		s.failCycle(models.UploadAPIFail, 0, 0, time.Time{}, 0, err)
		return OutcomeAPIFail
	}
	if len(records) == 0 {
		metrics.RecordUploadCycle(string(OutcomeNoData), false, 0)
		return OutcomeNoData
	}

	payload := models.UploadPayload{
		Device:  s.cfg.Device,
		Records: filterUploadable(records),
	}
	if t, ok := s.clock.Now(); ok {
		payload.SentAt = t
	}

	startWall, _ := s.clock.Now()

	// A batch of nothing but fixless or zero-fix records is confirmed
	// without a network call. The cursor must still drain past them or
	// the scheduler would re-read the same unuploadable batch forever.
	if len(payload.Records) == 0 {
		if err := s.confirm(len(records), 0); err != nil {
			s.failCycle(models.UploadAPIFail, len(records), 0, startWall, 0, err)
			return OutcomeAPIFail
		}
		s.recordAttempt(models.UploadAttempt{
			StartedAt:   startWall,
			Success:     true,
			RecordsRead: len(records),
			Status:      models.UploadSuccess,
		})
		metrics.RecordUploadCycle(string(OutcomeSuccess), false, 0)
		logging.Info().
			Int("records", len(records)).
			Msg("Batch contained no uploadable fixes, confirmed locally")
		return OutcomeSuccess
	}

	start := time.Now()
	wireBytes, err := s.client.Upload(ctx, payload)
	elapsed := time.Since(start)

	if err != nil {
		s.failCycle(models.UploadAPIFail, len(records), len(payload.Records), startWall, elapsed, err)
		metrics.RecordUploadCycle(string(OutcomeAPIFail), true, elapsed)
		return OutcomeAPIFail
	}

	// Cursor advances by records READ, not records sent: the filtered
	// records are consumed by this batch even though they never hit the
	// wire.
	if err := s.confirm(len(records), wireBytes); err != nil {
		s.failCycle(models.UploadAPIFail, len(records), len(payload.Records), startWall, elapsed, err)
		return OutcomeAPIFail
	}

	s.recordAttempt(models.UploadAttempt{
		StartedAt:   startWall,
		Duration:    elapsed,
		Success:     true,
		RecordsRead: len(records),
		RecordsSent: len(payload.Records),
		WireBytes:   wireBytes,
		Status:      models.UploadSuccess,
	})
	metrics.RecordUploadCycle(string(OutcomeSuccess), true, elapsed)
	metrics.RecordUploadConfirmed(len(records), wireBytes)

	logging.Info().
		Int("read", len(records)).
		Int("sent", len(payload.Records)).
		Int("wire_bytes", wireBytes).
		Uint64("pending", s.storage.PendingCount()).
		Dur("took", elapsed).
		Bool("forced", forced).
		Msg("Upload confirmed")

	return OutcomeSuccess
}

// syncTime ensures absolute time is known, asking the transport once
// if it is not.
func (s *Scheduler) syncTime(ctx context.Context) Outcome {
	if _, ok := s.clock.Now(); ok {
		return OutcomeSuccess
	}

	t, err := s.client.SyncTime(ctx)
	if err != nil {
		metrics.RecordTimeSync(false)
		metrics.RecordUploadCycle(string(OutcomeNoTime), false, 0)
		s.reporter.ReportNetworkError("uploader.timesync", err)
		logging.Warn().Err(err).Msg("Time sync failed, upload deferred")
		return OutcomeNoTime
	}

	s.clock.SetAbsolute(t)
	metrics.RecordTimeSync(true)
	logging.Info().Time("utc", t).Msg("Absolute time synced from endpoint")
	return OutcomeSuccess
}

// confirm advances the cursor and counters after acknowledged
// delivery, and resets the backoff.
func (s *Scheduler) confirm(recordsRead, wireBytes int) error {
	if err := s.storage.AdvanceUploadCursor(uint64(recordsRead)); err != nil {
		return err
	}
	if wireBytes > 0 {
		if err := s.storage.AddBytesUploaded(uint64(wireBytes)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.retryCount = 0
	s.mu.Unlock()
	metrics.SetRetryLevel(0)
	return nil
}

// failCycle records a failed transmit attempt and advances the backoff.
func (s *Scheduler) failCycle(status models.UploadStatus, read, sent int, startedAt time.Time, took time.Duration, cause error) {
	s.reporter.ReportNetworkError("uploader.client", cause)

	s.mu.Lock()
	s.retryCount++
	retry := s.retryCount
	s.mu.Unlock()
	metrics.SetRetryLevel(retry)

	s.recordAttempt(models.UploadAttempt{
		StartedAt:   startedAt,
		Duration:    took,
		Success:     false,
		RecordsRead: read,
		RecordsSent: sent,
		Status:      status,
		Error:       cause.Error(),
	})

	logging.Warn().
		Err(cause).
		Int("retry", retry).
		Dur("next_interval", backoffFor(retry, s.cfg.Interval)).
		Msg("Upload failed, backing off")
}

func (s *Scheduler) recordAttempt(a models.UploadAttempt) {
	s.mu.Lock()
	s.ring.add(a)
	s.mu.Unlock()
}

// currentIntervalLocked returns the interval in force: the configured
// interval after a success, the backoff entry for the current retry
// count after failures. Caller holds the mutex.
func (s *Scheduler) currentIntervalLocked() time.Duration {
	return backoffFor(s.retryCount, s.cfg.Interval)
}

// backoffFor maps a consecutive-failure count onto the table, clamping
// at the last entry. Zero failures means the normal interval.
func backoffFor(retries int, normal time.Duration) time.Duration {
	if retries <= 0 {
		return normal
	}
	if retries > len(backoffTable) {
		retries = len(backoffTable)
	}
	return backoffTable[retries-1]
}

// ForceUpload queues a force request: the next Process skips the
// interval check. Link and time preconditions still apply.
func (s *Scheduler) ForceUpload() {
	s.mu.Lock()
	s.force = true
	s.mu.Unlock()
	logging.Info().Msg("Force upload requested")
}

// History returns the attempt ring, newest first.
func (s *Scheduler) History() []models.UploadAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.newestFirst()
}

// Status summarizes the scheduler for the admin API.
func (s *Scheduler) Status() models.UploaderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.UploaderStatus{
		LastOutcome:   s.lastOutcome.status(),
		RetryCount:    s.retryCount,
		NextInterval:  s.currentIntervalLocked().String(),
		ForcePending:  s.force,
		LinkUp:        s.link.Up(),
		BytesUploaded: s.storage.BytesUploaded(),
	}
	if s.lastOutcome == "" {
		st.LastOutcome = ""
	}
	if !s.lastCycleAt.IsZero() {
		t := s.lastCycleAt
		st.LastCycleAt = &t
	}
	return st
}

// filterUploadable drops records without a usable fix from the payload.
// A 0°/0° fix is the receiver's searching artifact on this device
// class, never a real open-water position; the stored record keeps its
// literal zeros, only the payload excludes it.
func filterUploadable(records []models.Observation) []models.Observation {
	out := make([]models.Observation, 0, len(records))
	for i := range records {
		if records[i].Uploadable() {
			out = append(out, records[i])
		}
	}
	return out
}
