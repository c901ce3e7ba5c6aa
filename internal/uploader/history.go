// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package uploader

import (
	"github.com/tomtom215/hydrolog/internal/models"
)

// historySlots is the fixed size of the attempt ring.
const historySlots = 10

// attemptRing keeps the most recent upload attempts in a fixed array
// with a modulo write index. Purely diagnostic: nothing here is
// persisted and nothing here feeds cursor arithmetic. Not self-locking;
// the scheduler's mutex covers it.
type attemptRing struct {
	slots [historySlots]models.UploadAttempt
	next  int
	count int
}

// add records one attempt, overwriting the oldest once full.
func (r *attemptRing) add(a models.UploadAttempt) {
	r.slots[r.next] = a
	r.next = (r.next + 1) % historySlots
	if r.count < historySlots {
		r.count++
	}
}

// newestFirst returns the recorded attempts, most recent first.
func (r *attemptRing) newestFirst() []models.UploadAttempt {
	out := make([]models.UploadAttempt, 0, r.count)
	for i := 1; i <= r.count; i++ {
		out = append(out, r.slots[(r.next-i+historySlots)%historySlots])
	}
	return out
}
