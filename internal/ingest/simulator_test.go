// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/hydrolog/internal/devclock"
	"github.com/tomtom215/hydrolog/internal/models"
)

type fakePublisher struct {
	mu  sync.Mutex
	obs []models.Observation
}

func (p *fakePublisher) Publish(_ context.Context, o models.Observation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obs = append(p.obs, o)
	return nil
}

func (p *fakePublisher) published() []models.Observation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Observation(nil), p.obs...)
}

func TestSimulatorCycleCoversSensorSuite(t *testing.T) {
	clock := devclock.NewManualClock(5000)
	clock.SetAbsolute(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	s := NewSimulator(nil, clock, time.Second, 1)

	cycle := s.sample()
	if len(cycle) != 4 {
		t.Fatalf("cycle produced %d observations, want 4", len(cycle))
	}

	types := map[string]bool{}
	for _, o := range cycle {
		types[o.SensorType] = true

		if o.Timestamp != 5000 {
			t.Errorf("%s: timestamp %d, want the shared tick 5000", o.SensorType, o.Timestamp)
		}
		if o.UTC == nil {
			t.Errorf("%s: UTC missing with a synced clock", o.SensorType)
		}
		if o.Value == nil {
			t.Errorf("%s: no measurement value", o.SensorType)
		}
		if !o.HasFix() {
			t.Errorf("%s: first cycle has no fix", o.SensorType)
		}
	}

	for _, want := range []string{"wtemp", "ctd", "ph", "do"} {
		if !types[want] {
			t.Errorf("cycle missing sensor type %q", want)
		}
	}
}

func TestSimulatorEmitsFixArtifacts(t *testing.T) {
	clock := devclock.NewManualClock(0)
	s := NewSimulator(nil, clock, time.Second, 1)

	var sawDropout, sawZeroFix bool
	for cycle := 1; cycle <= 53; cycle++ {
		obs := s.sample()
		o := obs[0]
		switch {
		case cycle%20 == 7:
			if o.HasFix() {
				t.Errorf("cycle %d: expected GPS dropout, got a fix", cycle)
			}
			sawDropout = true
		case cycle%40 == 13:
			if !o.ZeroFix() {
				t.Errorf("cycle %d: expected the 0/0 searching artifact", cycle)
			}
			if o.Uploadable() {
				t.Errorf("cycle %d: 0/0 record reported uploadable", cycle)
			}
			sawZeroFix = true
		default:
			if !o.Uploadable() {
				t.Errorf("cycle %d: normal cycle not uploadable", cycle)
			}
		}
	}
	if !sawDropout || !sawZeroFix {
		t.Errorf("coverage: dropout=%v zerofix=%v, want both", sawDropout, sawZeroFix)
	}
}

func TestSimulatorUTCNilUntilSynced(t *testing.T) {
	clock := devclock.NewManualClock(0)
	s := NewSimulator(nil, clock, time.Second, 1)

	if o := s.sample()[0]; o.UTC != nil {
		t.Errorf("UTC = %v before sync, want nil", o.UTC)
	}

	clock.SetAbsolute(time.Date(2026, 8, 24, 11, 30, 0, 0, time.UTC))
	o := s.sample()[0]
	if o.UTC == nil {
		t.Fatal("UTC still nil after sync")
	}
	if o.UTC.Nanosecond() != 0 {
		t.Errorf("UTC not truncated to seconds: %v", o.UTC)
	}
}

func TestSimulatorServePublishes(t *testing.T) {
	pub := &fakePublisher{}
	clock := devclock.NewManualClock(0)
	s := NewSimulator(pub, clock, 5*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.published()) < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	obs := pub.published()
	if len(obs) < 4 {
		t.Fatalf("published %d observations, want at least one full cycle of 4", len(obs))
	}
}
