// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package storage provides the dual-backend observation log that survives
// power loss, reboots, and removable-media swaps.
//
// Observations are appended as text lines to two independent backends: a
// capacity-bounded circular log on internal flash (always present, wear
// limited) and an unbounded durable log on removable storage (may be absent).
// Each backend keeps a small JSON metadata file with its counters and the
// upload-progress cursor.
//
// # Architecture
//
//	Observation → Facade.Write → CircularStore (internal flash)
//	                           → DurableStore  (SD card, best effort)
//
//	Uploader → Facade.ReadPending → healthiest backend, circular cursor
//	         → Facade.AdvanceUploadCursor → circular metadata, forced flush
//
// # Durability Contract
//
// Every record append is open→write→fsync→close, so a power loss corrupts
// at most the line being written. Recovery on open counts the data lines in
// the log and reconciles the persisted counters with any tail written after
// the last metadata flush. A torn final line (no trailing newline) is never
// counted and never decoded.
//
// # Metadata Batching
//
// Counter changes accumulate in memory and the metadata file is rewritten
// only every MetaFlushThreshold changes, trading bounded counter staleness
// after an ungraceful power loss for far fewer flash erase cycles. Cursor
// advances, clears, trims, and shutdown always force a flush, so the upload
// cursor on disk is never stale.
//
// # Eviction
//
// The circular log accumulates TrimSlack records past capacity before a trim
// rewrites the file keeping only the newest capacity records. Eviction
// shifts the counter coordinate system: total written and the upload cursor
// both decrease by the evicted count, the cursor clamping at zero, so
// pending = total − uploaded never exceeds the records actually on disk and
// never goes negative.
//
// # Thread Safety
//
// Each store serializes its operations with one mutex. The facade adds no
// locking of its own; the single-writer discipline (one recorder goroutine
// writes, one uploader goroutine reads and advances the cursor) keeps the
// cross-backend sequences race free while stats remain safe to read from
// the admin API at any time.
package storage
