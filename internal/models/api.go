// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package models

import "time"

// APIResponse is the standardized wrapper used by all admin endpoints.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure:
//
//	{"status":"success","data":{...},"timestamp":"2026-08-21T12:00:00Z"}
//	{"status":"error","error":{"code":"UNAUTHORIZED","message":"..."}}
type APIResponse struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries a machine-readable code plus a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClockStatus reports the device clock's state.
type ClockStatus struct {
	Millis   uint32     `json:"millis"` // wrapping device-relative tick
	UTC      *time.Time `json:"utc,omitempty"`
	Synced   bool       `json:"synced"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

// UploaderStatus summarizes the scheduler's current posture.
type UploaderStatus struct {
	LastOutcome   UploadStatus `json:"last_outcome,omitempty"`
	LastCycleAt   *time.Time   `json:"last_cycle_at,omitempty"`
	RetryCount    int          `json:"retry_count"`
	NextInterval  string       `json:"next_interval"` // human-readable duration
	ForcePending  bool         `json:"force_pending"` // a force-upload request is queued
	LinkUp        bool         `json:"link_up"`
	BytesUploaded uint64       `json:"bytes_uploaded"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Device   DeviceInfo     `json:"device"`
	Clock    ClockStatus    `json:"clock"`
	Uploader UploaderStatus `json:"uploader"`
	Pending  uint64         `json:"pending"`
	Uptime   string         `json:"uptime"`
}

// LoginRequest is the body of POST /api/v1/auth/login (jwt mode).
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
