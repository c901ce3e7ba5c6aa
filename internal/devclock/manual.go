// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package devclock

import (
	"sync"
	"time"
)

// ManualClock is a Clock driven entirely by the caller. Tests use it to
// place the tick on either side of the 32-bit rollover and to control
// exactly when absolute time becomes known.
type ManualClock struct {
	mu     sync.RWMutex
	millis uint32
	wall   time.Time
	synced bool
}

// NewManualClock returns a manual clock at the given tick with absolute
// time unknown.
func NewManualClock(millis uint32) *ManualClock {
	return &ManualClock{millis: millis}
}

// Millis returns the current manual tick.
func (c *ManualClock) Millis() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.millis
}

// SetMillis moves the tick to an exact value, including across the wrap.
func (c *ManualClock) SetMillis(m uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis = m
}

// Advance moves the tick forward by d milliseconds, wrapping naturally.
func (c *ManualClock) Advance(d uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis += d
}

// Now returns the manual absolute time, if one has been set.
func (c *ManualClock) Now() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wall, c.synced
}

// SetAbsolute marks the clock synced at t.
func (c *ManualClock) SetAbsolute(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = t.UTC()
	c.synced = true
}

// LastSync reports the manual absolute time and whether it was ever set.
func (c *ManualClock) LastSync() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wall, c.synced
}
