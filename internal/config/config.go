// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package config holds all daemon configuration, loaded with Koanf v2
// from three layers in increasing priority: built-in defaults, an
// optional YAML file, and environment variables.
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"
)

// Config holds all application configuration.
//
// Loading order:
//  1. Defaults: built-in values suitable for a bench deployment
//  2. Config file: optional YAML (config.yaml, /etc/hydrolog/config.yaml,
//     or $CONFIG_PATH)
//  3. Environment variables: override any setting (see envTransformFunc)
type Config struct {
	Device   DeviceConfig   `koanf:"device"`
	Storage  StorageConfig  `koanf:"storage"`
	Uploader UploaderConfig `koanf:"uploader"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Health   HealthConfig   `koanf:"health"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DeviceConfig identifies this buoy to the telemetry endpoint and the
// admin API.
//
// Environment variables: DEVICE_ID, DEVICE_NAME, DEVICE_FIRMWARE.
type DeviceConfig struct {
	ID       string `koanf:"id" validate:"required"`
	Name     string `koanf:"name"`
	Firmware string `koanf:"firmware"`
}

// StorageConfig configures the two log backends.
//
// The circular backend lives on the always-present internal flash and is
// capacity-bounded; the durable backend lives on removable storage and
// grows until the card is swapped. Paths are directories; each holds the
// log file and its metadata file.
//
// Environment variables: CIRCULAR_PATH, DURABLE_PATH, CIRCULAR_CAPACITY,
// TRIM_SLACK, META_FLUSH_THRESHOLD.
type StorageConfig struct {
	CircularPath string `koanf:"circular_path" validate:"required"`
	DurablePath  string `koanf:"durable_path"`

	// CircularCapacity is the record count the circular log is trimmed
	// back to. Sized so the buffer covers the longest expected
	// connectivity gap at the configured sampling cadence.
	CircularCapacity int `koanf:"circular_capacity" validate:"min=100"`

	// TrimSlack is how many records past capacity may accumulate before
	// a trim rewrites the file. Larger slack means fewer whole-file
	// rewrites on wear-limited flash at the cost of slack extra records
	// on disk.
	TrimSlack int `koanf:"trim_slack"`

	// MetaFlushThreshold is the dirty-record count that triggers a
	// metadata flush. 1 persists counters on every write.
	MetaFlushThreshold int `koanf:"meta_flush_threshold" validate:"min=1"`
}

// UploaderConfig configures the upload scheduler and its HTTP client.
//
// Environment variables: UPLOAD_ENABLED, UPLOAD_ENDPOINT, UPLOAD_INTERVAL,
// UPLOAD_BATCH_SIZE, UPLOAD_TICK, UPLOAD_TIMEOUT, UPLOAD_RATE_LIMIT,
// UPLOAD_RATE_BURST, UPLOAD_AUTH_TOKEN.
type UploaderConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`

	// Interval between upload cycles under normal conditions. Failure
	// backoff stretches the effective interval; it never shrinks it.
	Interval time.Duration `koanf:"interval"`

	// BatchSize caps records per upload payload.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// Tick is how often the runner polls the scheduler. The scheduler
	// itself decides whether a cycle is due.
	Tick time.Duration `koanf:"tick"`

	// Timeout bounds one HTTP exchange with the endpoint.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit and RateBurst feed the client-side request limiter,
	// protecting a metered uplink from a misconfigured interval.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// AuthToken is sent as a bearer token when non-empty.
	AuthToken string `koanf:"auth_token"`
}

// IngestConfig configures how observations reach storage.
type IngestConfig struct {
	// SimulatorEnabled runs the synthetic observation producer, for
	// bench development and soak testing without sensor hardware.
	SimulatorEnabled bool `koanf:"simulator_enabled"`

	// SimulatorInterval is the synthetic sampling cadence.
	SimulatorInterval time.Duration `koanf:"simulator_interval"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig enables the JetStream ingest transport, used when sensor
// acquisition runs as separate processes (external sensor pods publish
// observations instead of calling into this daemon).
//
// Environment variables: NATS_ENABLED, NATS_URL, NATS_EMBEDDED,
// NATS_STORE_DIR, NATS_STREAM, NATS_SUBJECT, NATS_DURABLE_NAME,
// NATS_QUEUE_GROUP.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	Stream         string `koanf:"stream"`
	Subject        string `koanf:"subject"`
	DurableName    string `koanf:"durable_name"`
	QueueGroup     string `koanf:"queue_group"`
}

// HealthConfig configures the persistent health monitor.
//
// Environment variables: HEALTH_ENABLED, HEALTH_PATH, HEALTH_EVENT_TTL,
// HEALTH_GC_INTERVAL.
type HealthConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`

	// EventTTL bounds how long individual fault events are kept.
	// Lifetime counters are exempt.
	EventTTL time.Duration `koanf:"event_ttl"`

	// GCInterval is the Badger value-log GC cadence.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// ServerConfig configures the admin HTTP server.
//
// Environment variables: HTTP_PORT, HTTP_HOST, HTTP_TIMEOUT, ENVIRONMENT.
type ServerConfig struct {
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment toggles production hardening checks: "development" or
	// "production".
	Environment string `koanf:"environment" validate:"oneof=development production"`
}

// SecurityConfig configures admin API authentication and rate limiting.
//
// Environment variables: AUTH_MODE, API_TOKEN, JWT_SECRET, SESSION_TIMEOUT,
// ADMIN_USERNAME, ADMIN_PASSWORD, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW,
// DISABLE_RATE_LIMIT, CORS_ORIGINS.
type SecurityConfig struct {
	// AuthMode selects how /api/v1 routes authenticate:
	//   - "none":  open; acceptable only on an isolated bench network
	//   - "token": static bearer token compared in constant time
	//   - "jwt":   login with admin credentials, HMAC session tokens
	AuthMode string `koanf:"auth_mode" validate:"oneof=none token jwt"`

	APIToken string `koanf:"api_token"`

	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	AdminPassword  string        `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the zerolog global logger.
//
// Environment variables: LOG_LEVEL, LOG_FORMAT, LOG_CALLER.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load loads, layers, and validates the full configuration.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
