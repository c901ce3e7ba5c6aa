// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/hydrolog/config.yaml",
	"/etc/hydrolog/config.yml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default applied. Defaults
// suit a bench deployment: simulator on, auth off, endpoints empty.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:       "buoy-000",
			Name:     "unnamed buoy",
			Firmware: "dev",
		},
		Storage: StorageConfig{
			CircularPath: "/data/hydrolog/circular",
			DurablePath:  "/media/sd/hydrolog",

			// ~7 days of one-minute sampling
			CircularCapacity:   10000,
			TrimSlack:          32,
			MetaFlushThreshold: 50,
		},
		Uploader: UploaderConfig{
			Enabled:   false, // No endpoint configured out of the box
			Endpoint:  "",
			Interval:  10 * time.Minute,
			BatchSize: 100,
			Tick:      time.Second,
			Timeout:   30 * time.Second,
			RateLimit: 1,
			RateBurst: 1,
			AuthToken: "",
		},
		Ingest: IngestConfig{
			SimulatorEnabled:  false,
			SimulatorInterval: 10 * time.Second,
			NATS: NATSConfig{
				Enabled:        false,
				URL:            "nats://127.0.0.1:4222",
				EmbeddedServer: false,
				StoreDir:       "/data/hydrolog/nats",
				Stream:         "OBSERVATIONS",
				Subject:        "observations.raw",
				DurableName:    "hydrolog-recorder",
				QueueGroup:     "recorders",
			},
		},
		Health: HealthConfig{
			Enabled:    true,
			Path:       "/data/hydrolog/health",
			EventTTL:   30 * 24 * time.Hour,
			GCInterval: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:        4326,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			APIToken:          "",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in struct
//  2. Config file: optional YAML
//  3. Environment variables: highest priority
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// UPLOAD_ENDPOINT -> uploader.endpoint, HTTP_PORT -> server.port
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, environment override first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive through environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env strings to slices for
// the known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so stray environment noise cannot leak
// into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Device identity
		"device_id":       "device.id",
		"device_name":     "device.name",
		"device_firmware": "device.firmware",

		// Storage backends
		"circular_path":        "storage.circular_path",
		"durable_path":         "storage.durable_path",
		"circular_capacity":    "storage.circular_capacity",
		"trim_slack":           "storage.trim_slack",
		"meta_flush_threshold": "storage.meta_flush_threshold",

		// Upload scheduler
		"upload_enabled":    "uploader.enabled",
		"upload_endpoint":   "uploader.endpoint",
		"upload_interval":   "uploader.interval",
		"upload_batch_size": "uploader.batch_size",
		"upload_tick":       "uploader.tick",
		"upload_timeout":    "uploader.timeout",
		"upload_rate_limit": "uploader.rate_limit",
		"upload_rate_burst": "uploader.rate_burst",
		"upload_auth_token": "uploader.auth_token",

		// Ingest
		"simulator_enabled":  "ingest.simulator_enabled",
		"simulator_interval": "ingest.simulator_interval",
		"nats_enabled":       "ingest.nats.enabled",
		"nats_url":           "ingest.nats.url",
		"nats_embedded":      "ingest.nats.embedded_server",
		"nats_store_dir":     "ingest.nats.store_dir",
		"nats_stream":        "ingest.nats.stream",
		"nats_subject":       "ingest.nats.subject",
		"nats_durable_name":  "ingest.nats.durable_name",
		"nats_queue_group":   "ingest.nats.queue_group",

		// Health monitor
		"health_enabled":     "health.enabled",
		"health_path":        "health.path",
		"health_event_ttl":   "health.event_ttl",
		"health_gc_interval": "health.gc_interval",

		// Admin server
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Security
		"auth_mode":           "security.auth_mode",
		"api_token":           "security.api_token",
		"jwt_secret":          "security.jwt_secret",
		"session_timeout":     "security.session_timeout",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload. The caller is
// responsible for mutex protection when swapping configuration.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}

// GetKoanfInstance returns a fresh Koanf instance for callers that need
// direct access to configuration loading.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}
