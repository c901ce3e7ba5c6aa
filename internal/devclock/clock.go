// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package devclock provides the device's two notions of time.
//
// The relative clock is a 32-bit millisecond tick that wraps roughly every
// 49.7 days. All scheduling arithmetic uses Elapsed, which is correct
// across the wrap; nothing in the daemon may compare ticks with < or >.
//
// The absolute clock starts unknown. It becomes known the first time
// SetAbsolute is called (after a successful time sync against the
// telemetry endpoint) and is required before any upload leaves the device,
// because records without trustworthy UTC stamps poison downstream
// datasets.
//
// Clocks are constructed in main and passed to components explicitly;
// there is no package-level clock state.
package devclock

import (
	"sync"
	"time"
)

// Clock is the time source handed to every component that schedules work
// or stamps records.
type Clock interface {
	// Millis returns the wrapping device-relative millisecond tick.
	Millis() uint32

	// Now returns absolute UTC and whether it has ever been synced.
	// Before the first sync the returned time is the zero value.
	Now() (time.Time, bool)

	// SetAbsolute records an absolute UTC reference. Subsequent Now calls
	// extrapolate from it using the monotonic clock.
	SetAbsolute(t time.Time)

	// LastSync returns when SetAbsolute was last called, device-local
	// wall perspective, and whether it ever was.
	LastSync() (time.Time, bool)
}

// Elapsed returns now-since in wrapping 32-bit arithmetic. With ticks
// last=0xFFFFF000 and now=0x00001000 the result is 8192: the subtraction
// stays correct across the rollover as long as the true elapsed time is
// under half the counter range (~24.8 days).
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// SystemClock derives the relative tick from the process monotonic clock
// and holds the synced absolute reference.
type SystemClock struct {
	bootRef time.Time // monotonic anchor taken at construction

	mu         sync.RWMutex
	syncedWall time.Time // UTC at last sync, zero until first sync
	syncedMono time.Time // monotonic reading at last sync
}

// NewSystemClock returns a clock anchored at the current instant, with
// absolute time unknown.
func NewSystemClock() *SystemClock {
	return &SystemClock{bootRef: time.Now()}
}

// Millis returns milliseconds since construction, truncated to uint32 so
// the tick wraps exactly like the device counter it models.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.bootRef).Milliseconds())
}

// Now returns the synced absolute time extrapolated to the present,
// or (zero, false) before the first sync.
func (c *SystemClock) Now() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.syncedWall.IsZero() {
		return time.Time{}, false
	}
	return c.syncedWall.Add(time.Since(c.syncedMono)), true
}

// SetAbsolute records t as the current absolute UTC.
func (c *SystemClock) SetAbsolute(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncedWall = t.UTC()
	c.syncedMono = time.Now()
}

// LastSync returns the absolute time recorded at the most recent
// SetAbsolute call.
func (c *SystemClock) LastSync() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.syncedWall.IsZero() {
		return time.Time{}, false
	}
	return c.syncedWall, true
}
