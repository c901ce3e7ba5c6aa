// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/hydrolog/internal/config"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// authenticator guards /api/v1 routes in one of three modes: none
// (isolated bench network), token (static bearer compared in constant
// time), or jwt (login with admin credentials, HMAC session tokens).
type authenticator struct {
	mode         string
	apiToken     string
	jwtSecret    []byte
	sessionTTL   time.Duration
	adminUser    string
	adminPwdHash []byte
}

// newAuthenticator validates and builds the configured mode. In jwt
// mode the admin password is bcrypt-hashed once at startup so the
// plaintext never sits in memory longer than Load already keeps it.
func newAuthenticator(cfg config.SecurityConfig) (*authenticator, error) {
	a := &authenticator{
		mode:       cfg.AuthMode,
		apiToken:   cfg.APIToken,
		jwtSecret:  []byte(cfg.JWTSecret),
		sessionTTL: cfg.SessionTimeout,
		adminUser:  cfg.AdminUsername,
	}
	if a.sessionTTL <= 0 {
		a.sessionTTL = 24 * time.Hour
	}

	switch cfg.AuthMode {
	case "none":
	case "token":
		if cfg.APIToken == "" {
			return nil, fmt.Errorf("auth mode token requires api_token")
		}
	case "jwt":
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("auth mode jwt requires a jwt_secret of at least 32 bytes")
		}
		if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
			return nil, fmt.Errorf("auth mode jwt requires admin credentials")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.adminPwdHash = hash
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}

	return a, nil
}

// middleware enforces the configured mode.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch a.mode {
		case "none":
			next.ServeHTTP(w, r)
			return

		case "token":
			if a.checkToken(bearerToken(r)) {
				next.ServeHTTP(w, r)
				return
			}
			metrics.RecordAuthFailure("token")

		case "jwt":
			if a.checkJWT(bearerToken(r)) {
				next.ServeHTTP(w, r)
				return
			}
			metrics.RecordAuthFailure("jwt")
		}

		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid credentials")
	})
}

// checkToken compares in constant time regardless of length mismatch.
func (a *authenticator) checkToken(token string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.apiToken)) == 1
}

// checkJWT validates signature, expiry, and signing method.
func (a *authenticator) checkJWT(token string) bool {
	if token == "" {
		return false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithExpirationRequired())

	return err == nil && parsed.Valid
}

// handleLogin is POST /api/v1/auth/login, jwt mode only.
func (a *authenticator) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.mode != "jwt" {
		writeError(w, http.StatusNotFound, codeNotFound, "login is only available in jwt auth mode")
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.adminUser)) == 1
	pwdErr := bcrypt.CompareHashAndPassword(a.adminPwdHash, []byte(req.Password))
	if !userOK || pwdErr != nil {
		metrics.RecordAuthFailure("jwt")
		logging.Warn().Str("username", req.Username).Msg("Login rejected")
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	expiresAt := time.Now().Add(a.sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   req.Username,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    "hydrolog",
	})

	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "token signing failed")
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: signed, ExpiresAt: expiresAt.UTC()})
}

// bearerToken extracts the Authorization bearer value, if any.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
