// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/hydrolog/internal/config"
	"github.com/tomtom215/hydrolog/internal/devclock"
	"github.com/tomtom215/hydrolog/internal/health"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
	"github.com/tomtom215/hydrolog/internal/websocket"
)

// Server holds the handler dependencies and builds the route tree.
type Server struct {
	device    models.DeviceInfo
	storage   StorageSource
	uploader  Uploader
	clock     devclock.Clock
	health    health.Source
	hub       *websocket.Hub
	auth      *authenticator
	security  config.SecurityConfig
	upgrader  gorillaws.Upgrader
	startedAt time.Time
}

// NewServer wires the admin API. uploader, health, and hub may be nil
// when those subsystems are disabled; their routes answer 404.
func NewServer(
	device models.DeviceInfo,
	storage StorageSource,
	uploader Uploader,
	clock devclock.Clock,
	healthSource health.Source,
	hub *websocket.Hub,
	security config.SecurityConfig,
) (*Server, error) {
	auth, err := newAuthenticator(security)
	if err != nil {
		return nil, err
	}

	return &Server{
		device:    device,
		storage:   storage,
		uploader:  uploader,
		clock:     clock,
		health:    healthSource,
		hub:       hub,
		auth:      auth,
		security:  security,
		upgrader:  newUpgrader(security.CORSOrigins),
		startedAt: time.Now(),
	}, nil
}

// Handler builds the chi route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if !s.security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(s.rateLimitReqs(), s.rateLimitWindow()))
		}
		r.Use(instrument)

		// Login is reachable without a session so jwt mode can
		// bootstrap one.
		r.Post("/auth/login", s.auth.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.middleware)

			r.Get("/status", s.handleStatus)
			r.Get("/storage", s.handleStorage)
			r.Get("/uploads", s.handleUploads)
			r.Post("/uploads/force", s.handleForceUpload)
			r.Get("/records", s.handleRecords)
			r.Get("/health/events", s.handleHealthEvents)
			r.Get("/live", s.handleLive)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.security.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.security.CORSOrigins
}

func (s *Server) rateLimitReqs() int {
	if s.security.RateLimitReqs > 0 {
		return s.security.RateLimitReqs
	}
	return 100
}

func (s *Server) rateLimitWindow() time.Duration {
	if s.security.RateLimitWindow > 0 {
		return s.security.RateLimitWindow
	}
	return time.Minute
}

// accessLog emits one structured line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// instrument records request metrics with the routed pattern so
// per-record query strings do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		metrics.RecordHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start))
	})
}
