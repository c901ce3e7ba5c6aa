// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package api is the admin HTTP surface: status, storage statistics,
// upload history, recent records, health events, the live observation
// stream, and the force-upload trigger. Everything here is a thin
// read-mostly view over the core; no durability semantics live in this
// package.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Error codes returned in APIError.Code.
const (
	codeBadRequest   = "BAD_REQUEST"
	codeUnauthorized = "UNAUTHORIZED"
	codeNotFound     = "NOT_FOUND"
	codeInternal     = "INTERNAL_ERROR"
)

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	resp := models.APIResponse{
		Status:    "success",
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	write(w, status, &resp)
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	resp := models.APIResponse{
		Status:    "error",
		Error:     &models.APIError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	}
	write(w, status, &resp)
}

func write(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Debug().Err(err).Msg("Response write failed")
	}
}
