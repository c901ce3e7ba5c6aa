// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package uploader

import (
	"context"
	"time"
)

// Runner ticks the scheduler as a supervised service. The tick is
// deliberately much shorter than the upload interval: Process itself
// decides whether a cycle is due, the runner just keeps calling.
type Runner struct {
	scheduler *Scheduler
	tick      time.Duration
}

// NewRunner wraps the scheduler for the supervision tree.
func NewRunner(s *Scheduler, tick time.Duration) *Runner {
	if tick <= 0 {
		tick = time.Second
	}
	return &Runner{scheduler: s, tick: tick}
}

// Serve implements suture.Service.
func (r *Runner) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.scheduler.Process(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *Runner) String() string {
	return "upload-runner"
}
