// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package devclock

import (
	"testing"
	"time"
)

func TestElapsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		now   uint32
		since uint32
		want  uint32
	}{
		{"simple forward", 5000, 1000, 4000},
		{"zero elapsed", 7, 7, 0},
		{"across rollover", 0x00001000, 0xFFFFF000, 8192},
		{"just before wrap", 0xFFFFFFFF, 0xFFFFFFF0, 15},
		{"wrap to zero", 0, 0xFFFFFFFF, 1},
		{"half range", 0x80000000, 0, 0x80000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Elapsed(tt.now, tt.since); got != tt.want {
				t.Errorf("Elapsed(%#x, %#x) = %d, want %d", tt.now, tt.since, got, tt.want)
			}
		})
	}
}

func TestSystemClockStartsUnsynced(t *testing.T) {
	t.Parallel()

	c := NewSystemClock()

	if _, ok := c.Now(); ok {
		t.Error("fresh clock must not report absolute time")
	}
	if _, ok := c.LastSync(); ok {
		t.Error("fresh clock must not report a sync")
	}
}

func TestSystemClockSync(t *testing.T) {
	t.Parallel()

	c := NewSystemClock()
	ref := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

	c.SetAbsolute(ref)

	now, ok := c.Now()
	if !ok {
		t.Fatal("clock should be synced after SetAbsolute")
	}
	if now.Before(ref) || now.Sub(ref) > time.Second {
		t.Errorf("Now should extrapolate from the reference: %v", now)
	}

	syncedAt, ok := c.LastSync()
	if !ok || !syncedAt.Equal(ref) {
		t.Errorf("LastSync = %v, %v; want %v, true", syncedAt, ok, ref)
	}
}

func TestSystemClockMillisAdvances(t *testing.T) {
	t.Parallel()

	c := NewSystemClock()
	a := c.Millis()
	time.Sleep(15 * time.Millisecond)
	b := c.Millis()

	if Elapsed(b, a) < 10 {
		t.Errorf("tick barely moved: %d -> %d", a, b)
	}
}

func TestManualClock(t *testing.T) {
	t.Parallel()

	c := NewManualClock(0xFFFFF000)

	if c.Millis() != 0xFFFFF000 {
		t.Fatalf("unexpected initial tick %#x", c.Millis())
	}

	c.Advance(0x2000)
	if c.Millis() != 0x00001000 {
		t.Errorf("tick should wrap: got %#x", c.Millis())
	}

	if _, ok := c.Now(); ok {
		t.Error("manual clock must start unsynced")
	}

	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetAbsolute(ref)

	now, ok := c.Now()
	if !ok || !now.Equal(ref) {
		t.Errorf("Now = %v, %v; want %v, true", now, ok, ref)
	}
}
