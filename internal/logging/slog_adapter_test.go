// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSlogHandlerLevels(t *testing.T) {
	var buf bytes.Buffer

	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))
	slogger := slog.New(handler)

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"Debug", func() { slogger.Debug("debug msg") }, `"level":"debug"`},
		{"Info", func() { slogger.Info("info msg") }, `"level":"info"`},
		{"Warn", func() { slogger.Warn("warn msg") }, `"level":"warn"`},
		{"Error", func() { slogger.Error("error msg") }, `"level":"error"`},
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("%s: expected %s in output: %s", tt.name, tt.level, buf.String())
		}
	}
}

func TestSlogHandlerAttrs(t *testing.T) {
	var buf bytes.Buffer

	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))
	slogger := slog.New(handler)

	slogger.Info("attrs", slog.String("service", "uploader"), slog.Int("count", 3))

	output := buf.String()
	if !strings.Contains(output, `"service":"uploader"`) {
		t.Errorf("expected string attr: %s", output)
	}
	if !strings.Contains(output, `"count":3`) {
		t.Errorf("expected int attr: %s", output)
	}
}

func TestSlogHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer

	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))
	slogger := slog.New(handler).With(slog.String("supervisor", "root"))

	slogger.Info("child message")

	output := buf.String()
	if !strings.Contains(output, `"supervisor":"root"`) {
		t.Errorf("expected pre-configured attr: %s", output)
	}
}

func TestSlogHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer

	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))
	slogger := slog.New(handler).WithGroup("tree")

	slogger.Info("grouped", slog.String("service", "recorder"))

	output := buf.String()
	if !strings.Contains(output, `"tree.service":"recorder"`) {
		t.Errorf("expected group-prefixed attr: %s", output)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	handler := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should not be enabled for a warn-level logger")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled for a warn-level logger")
	}
}
