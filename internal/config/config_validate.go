// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/hydrolog/internal/validation"
)

// Validate checks the full configuration: struct tags first, then the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Uploader.Validate(); err != nil {
		return fmt.Errorf("uploader: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := c.Security.Validate(c.Server.Environment); err != nil {
		return fmt.Errorf("security: %w", err)
	}

	if c.Uploader.Enabled && c.Uploader.BatchSize > c.Storage.CircularCapacity {
		return fmt.Errorf("uploader: batch_size %d exceeds storage circular_capacity %d",
			c.Uploader.BatchSize, c.Storage.CircularCapacity)
	}

	return nil
}

// Validate checks storage-specific constraints.
func (s *StorageConfig) Validate() error {
	if s.CircularPath == "" {
		return fmt.Errorf("circular_path is required")
	}
	if s.TrimSlack < 0 {
		return fmt.Errorf("trim_slack must not be negative, got %d", s.TrimSlack)
	}
	if s.TrimSlack >= s.CircularCapacity {
		return fmt.Errorf("trim_slack %d must be smaller than circular_capacity %d",
			s.TrimSlack, s.CircularCapacity)
	}
	return nil
}

// Validate checks uploader constraints. Most fields only matter when
// the uploader is enabled.
func (u *UploaderConfig) Validate() error {
	if !u.Enabled {
		return nil
	}

	if u.Endpoint == "" {
		return fmt.Errorf("endpoint is required when uploads are enabled")
	}
	parsed, err := url.Parse(u.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint has no host")
	}

	if u.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", u.Interval)
	}
	if u.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", u.Tick)
	}
	if u.Tick > u.Interval {
		return fmt.Errorf("tick %s must not exceed interval %s", u.Tick, u.Interval)
	}
	if u.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", u.Timeout)
	}
	if u.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %g", u.RateLimit)
	}
	if u.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1, got %d", u.RateBurst)
	}

	return nil
}

// Validate checks ingest constraints.
func (i *IngestConfig) Validate() error {
	if i.SimulatorEnabled && i.SimulatorInterval <= 0 {
		return fmt.Errorf("simulator_interval must be positive, got %s", i.SimulatorInterval)
	}

	n := &i.NATS
	if !n.Enabled {
		return nil
	}
	if !n.EmbeddedServer && n.URL == "" {
		return fmt.Errorf("nats: url is required unless embedded_server is enabled")
	}
	if n.EmbeddedServer && n.StoreDir == "" {
		return fmt.Errorf("nats: store_dir is required when embedded_server is enabled")
	}
	if n.Stream == "" {
		return fmt.Errorf("nats: stream is required")
	}
	if n.Subject == "" {
		return fmt.Errorf("nats: subject is required")
	}

	return nil
}

// Validate checks security constraints. Production environments get
// stricter secret requirements.
func (s *SecurityConfig) Validate(environment string) error {
	production := environment == "production"

	switch s.AuthMode {
	case "none":
		// Bench mode. Nothing to check.

	case "token":
		if s.APIToken == "" {
			return fmt.Errorf("api_token is required when auth_mode is token")
		}
		if production && len(s.APIToken) < 32 {
			return fmt.Errorf("api_token must be at least 32 characters in production, got %d",
				len(s.APIToken))
		}

	case "jwt":
		if len(s.JWTSecret) < 32 {
			return fmt.Errorf("jwt_secret must be at least 32 characters, got %d",
				len(s.JWTSecret))
		}
		if s.AdminUsername == "" || s.AdminPassword == "" {
			return fmt.Errorf("admin_username and admin_password are required when auth_mode is jwt")
		}
		if s.SessionTimeout <= 0 {
			return fmt.Errorf("session_timeout must be positive, got %s", s.SessionTimeout)
		}

	default:
		return fmt.Errorf("unknown auth_mode %q", s.AuthMode)
	}

	if !s.RateLimitDisabled {
		if s.RateLimitReqs < 1 {
			return fmt.Errorf("rate_limit_reqs must be at least 1, got %d", s.RateLimitReqs)
		}
		if s.RateLimitWindow <= 0 {
			return fmt.Errorf("rate_limit_window must be positive, got %s", s.RateLimitWindow)
		}
	}

	for _, origin := range s.CORSOrigins {
		if origin == "*" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors origin %q must start with http:// or https://", origin)
		}
	}

	return nil
}
