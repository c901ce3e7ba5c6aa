// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package api

import (
	"net/http"
	"strconv"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/hydrolog/internal/health"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/models"
	"github.com/tomtom215/hydrolog/internal/websocket"
)

// StorageSource is the read-only slice of the storage facade the API
// serves.
type StorageSource interface {
	Stats() models.StorageStats
	RecentRecords(maxCount int) ([]models.Observation, error)
	PendingCount() uint64
}

// Uploader is the scheduler surface the API exposes.
type Uploader interface {
	Status() models.UploaderStatus
	History() []models.UploadAttempt
	ForceUpload()
}

// defaultRecordLimit bounds GET /records and /health/events when the
// client sends no count.
const (
	defaultRecordLimit = 50
	maxRecordLimit     = 1000
)

// handleHealthz is the unauthenticated liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus is GET /api/v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	clock := models.ClockStatus{Millis: s.clock.Millis()}
	if t, ok := s.clock.Now(); ok {
		t = t.UTC()
		clock.UTC = &t
		clock.Synced = true
	}
	if t, ok := s.clock.LastSync(); ok {
		t = t.UTC()
		clock.SyncedAt = &t
	}

	resp := models.StatusResponse{
		Device:  s.device,
		Clock:   clock,
		Pending: s.storage.PendingCount(),
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.uploader != nil {
		resp.Uploader = s.uploader.Status()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStorage is GET /api/v1/storage.
func (s *Server) handleStorage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.storage.Stats())
}

// handleUploads is GET /api/v1/uploads: the attempt ring, newest first.
func (s *Server) handleUploads(w http.ResponseWriter, _ *http.Request) {
	if s.uploader == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "uploader disabled")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   s.uploader.Status(),
		"attempts": s.uploader.History(),
	})
}

// handleForceUpload is POST /api/v1/uploads/force.
func (s *Server) handleForceUpload(w http.ResponseWriter, _ *http.Request) {
	if s.uploader == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "uploader disabled")
		return
	}

	s.uploader.ForceUpload()
	writeJSON(w, http.StatusAccepted, map[string]string{"result": "force upload queued"})
}

// handleRecords is GET /api/v1/records?n=: the newest n decoded
// records, oldest first.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	n, ok := countParam(w, r, defaultRecordLimit)
	if !ok {
		return
	}

	records, err := s.storage.RecentRecords(n)
	if err != nil {
		logging.Error().Err(err).Msg("Recent records read failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "storage read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// handleHealthEvents is GET /api/v1/health/events?n=.
func (s *Server) handleHealthEvents(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "health monitor disabled")
		return
	}

	n, ok := countParam(w, r, defaultRecordLimit)
	if !ok {
		return
	}

	events, err := s.health.Recent(n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "health store read failed")
		return
	}
	counters, err := s.health.Counters()
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "health store read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"counters": counters,
		"events":   events,
	})
}

// handleLive is GET /api/v1/live: upgrade and join the observation
// stream.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "live stream disabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logging.Debug().Err(err).Msg("Live stream upgrade failed")
		return
	}

	client := websocket.NewClient(s.hub, conn)
	s.hub.Register <- client
	client.Start()
}

// countParam parses ?n= with a default and an upper bound. Reports
// false after writing the error response.
func countParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return def, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "n must be a positive integer")
		return 0, false
	}
	if n > maxRecordLimit {
		n = maxRecordLimit
	}
	return n, true
}

// upgrader builds the gorilla upgrader with the configured origin
// policy.
func newUpgrader(origins []string) gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// interface guard: the health monitor satisfies the API's source
var _ health.Source = (*health.Monitor)(nil)
