// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/hydrolog/internal/models"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }
func tptr(t time.Time) *time.Time {
	return &t
}

// fullObservation populates every field, for round-trip coverage.
func fullObservation() models.Observation {
	return models.Observation{
		Timestamp:     4123456789, // beyond int32 range, still a valid uint32
		UTC:           tptr(time.Date(2026, 8, 21, 14, 30, 5, 0, time.UTC)),
		Lat:           f64(43.508132),
		Lon:           f64(16.440193),
		Alt:           f64(1.5),
		Satellites:    iptr(11),
		HDOP:          f64(0.8),
		SensorType:    "ctd",
		SensorModel:   "SBE-37SM",
		SensorSerial:  "37SM-12345",
		SensorIndex:   iptr(2),
		CalDate:       tptr(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
		Value:         f64(18.4271),
		Unit:          "degC",
		Quality:       models.QualityGood,
		WindSpeed:     f64(7.2),
		WindDir:       f64(312.5),
		Depth:         f64(2.5),
		Speed:         f64(0.31),
		ExtTemp:       f64(24.1),
		Pressure:      f64(1013.2),
		Humidity:      f64(68.5),
		COG:           f64(145.2),
		SOG:           f64(0.28),
		Heading:       f64(150.1),
		Pitch:         f64(-2.3),
		Roll:          f64(4.7),
		TrueWindSpeed: f64(6.9),
		TrueWindDir:   f64(305),
		Accel:         f64(0.12),
	}
}

func assertFloatField(t *testing.T, name string, want, got *float64) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Errorf("%s: presence mismatch: want %v, got %v", name, want, got)
	case *want != *got:
		t.Errorf("%s: want %v, got %v", name, *want, *got)
	}
}

func assertIntField(t *testing.T, name string, want, got *int) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Errorf("%s: presence mismatch: want %v, got %v", name, want, got)
	case *want != *got:
		t.Errorf("%s: want %d, got %d", name, *want, *got)
	}
}

func assertTimeField(t *testing.T, name string, want, got *time.Time) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Errorf("%s: presence mismatch: want %v, got %v", name, want, got)
	case !want.Equal(*got):
		t.Errorf("%s: want %v, got %v", name, *want, *got)
	}
}

func assertObservationsEqual(t *testing.T, want, got models.Observation) {
	t.Helper()

	if want.Timestamp != got.Timestamp {
		t.Errorf("ts_ms: want %d, got %d", want.Timestamp, got.Timestamp)
	}
	assertTimeField(t, "utc", want.UTC, got.UTC)
	assertFloatField(t, "lat", want.Lat, got.Lat)
	assertFloatField(t, "lon", want.Lon, got.Lon)
	assertFloatField(t, "alt", want.Alt, got.Alt)
	assertIntField(t, "sats", want.Satellites, got.Satellites)
	assertFloatField(t, "hdop", want.HDOP, got.HDOP)
	if want.SensorType != got.SensorType {
		t.Errorf("sensor_type: want %q, got %q", want.SensorType, got.SensorType)
	}
	if want.SensorModel != got.SensorModel {
		t.Errorf("sensor_model: want %q, got %q", want.SensorModel, got.SensorModel)
	}
	if want.SensorSerial != got.SensorSerial {
		t.Errorf("sensor_serial: want %q, got %q", want.SensorSerial, got.SensorSerial)
	}
	assertIntField(t, "sensor_index", want.SensorIndex, got.SensorIndex)
	assertTimeField(t, "cal_date", want.CalDate, got.CalDate)
	assertFloatField(t, "value", want.Value, got.Value)
	if want.Unit != got.Unit {
		t.Errorf("unit: want %q, got %q", want.Unit, got.Unit)
	}
	if want.Quality != got.Quality {
		t.Errorf("quality: want %q, got %q", want.Quality, got.Quality)
	}
	assertFloatField(t, "wind_speed_ms", want.WindSpeed, got.WindSpeed)
	assertFloatField(t, "wind_dir_deg", want.WindDir, got.WindDir)
	assertFloatField(t, "depth_m", want.Depth, got.Depth)
	assertFloatField(t, "speed_ms", want.Speed, got.Speed)
	assertFloatField(t, "ext_temp_c", want.ExtTemp, got.ExtTemp)
	assertFloatField(t, "pressure_hpa", want.Pressure, got.Pressure)
	assertFloatField(t, "humidity_pct", want.Humidity, got.Humidity)
	assertFloatField(t, "cog_deg", want.COG, got.COG)
	assertFloatField(t, "sog_ms", want.SOG, got.SOG)
	assertFloatField(t, "heading_deg", want.Heading, got.Heading)
	assertFloatField(t, "pitch_deg", want.Pitch, got.Pitch)
	assertFloatField(t, "roll_deg", want.Roll, got.Roll)
	assertFloatField(t, "true_wind_speed_ms", want.TrueWindSpeed, got.TrueWindSpeed)
	assertFloatField(t, "true_wind_dir_deg", want.TrueWindDir, got.TrueWindDir)
	assertFloatField(t, "accel_ms2", want.Accel, got.Accel)
}

func TestRoundTripAllFields(t *testing.T) {
	t.Parallel()

	want := fullObservation()
	line := Encode(&want)

	if n := len(strings.Split(line, ",")); n != FieldCount {
		t.Fatalf("expected %d fields, got %d: %s", FieldCount, n, line)
	}

	got, err := Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertObservationsEqual(t, want, got)
}

func TestRoundTripAllAbsent(t *testing.T) {
	t.Parallel()

	want := models.Observation{Timestamp: 12345, SensorType: "wtemp"}
	got, err := Decode(Encode(&want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertObservationsEqual(t, want, got)
}

func TestRoundTripZeroFix(t *testing.T) {
	t.Parallel()

	// 0/0/0 with zero satellites is a real, representable state; it must
	// survive storage as literal zeros, not collapse to absent.
	want := models.Observation{
		Timestamp:  500,
		Lat:        f64(0),
		Lon:        f64(0),
		Alt:        f64(0),
		Satellites: iptr(0),
		SensorType: "gps",
	}

	got, err := Decode(Encode(&want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertObservationsEqual(t, want, got)

	if !got.ZeroFix() {
		t.Error("decoded record should report a zero fix")
	}
	if !got.HasFix() {
		t.Error("zero fix is still a fix")
	}
}

func TestDecodeLegacyTenFieldLine(t *testing.T) {
	t.Parallel()

	line := "123456,2024-02-10T08:15:00Z,-36.84,174.76,0.8,7,1.2,ph,EXO-pH,PH-9912"

	got, err := Decode(line)
	if err != nil {
		t.Fatalf("decode legacy line: %v", err)
	}

	if got.Timestamp != 123456 {
		t.Errorf("ts_ms: got %d", got.Timestamp)
	}
	if got.SensorSerial != "PH-9912" {
		t.Errorf("sensor_serial: got %q", got.SensorSerial)
	}
	if got.Lat == nil || *got.Lat != -36.84 {
		t.Errorf("lat: got %v", got.Lat)
	}

	// Everything the old schema never wrote decodes as absent.
	if got.Value != nil {
		t.Errorf("value should be absent on a legacy line, got %v", *got.Value)
	}
	if got.CalDate != nil {
		t.Error("cal_date should be absent on a legacy line")
	}
	if got.WindSpeed != nil {
		t.Error("wind_speed_ms should be absent on a legacy line")
	}
	if got.Quality != "" {
		t.Errorf("quality should be empty on a legacy line, got %q", got.Quality)
	}
}

func TestDecodeTooShortRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"nine fields", "1,2024-02-10T08:15:00Z,1.0,2.0,0,5,1.0,ph,EXO-pH"},
		{"one field", "123456"},
		{"empty", ""},
		{"torn tail", "9981,2024-02-10T08:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.line)
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("want ErrTruncated, got %v", err)
			}
		})
	}
}

func TestDecodeMalformedField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		field string
	}{
		{
			"bad timestamp",
			"abc,2024-02-10T08:15:00Z,1,2,0,5,1,ph,m,s",
			"ts_ms",
		},
		{
			"bad latitude",
			"1,2024-02-10T08:15:00Z,not-a-number,2,0,5,1,ph,m,s",
			"lat",
		},
		{
			"bad utc",
			"1,yesterday,1,2,0,5,1,ph,m,s",
			"utc",
		},
		{
			"bad satellites",
			"1,2024-02-10T08:15:00Z,1,2,0,many,1,ph,m,s",
			"sats",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.line)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("want ErrMalformed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error should name field %q: %v", tt.field, err)
			}
		})
	}
}

func TestDecodeIgnoresExtraFields(t *testing.T) {
	t.Parallel()

	// A line written by newer firmware with two extra columns.
	obs := fullObservation()
	line := Encode(&obs) + ",42,future"

	got, err := Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertObservationsEqual(t, obs, got)
}

func TestEncodeSanitizesStrings(t *testing.T) {
	t.Parallel()

	obs := models.Observation{
		Timestamp:   1,
		SensorType:  "ctd,extra",
		SensorModel: "weird\nmodel",
		Unit:        "deg,C",
	}

	line := Encode(&obs)
	if n := len(strings.Split(line, ",")); n != FieldCount {
		t.Fatalf("sanitization failed, got %d fields: %s", n, line)
	}
	if strings.Contains(line, "\n") {
		t.Error("encoded line must not contain newlines")
	}

	got, err := Decode(line)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SensorType != "ctd;extra" {
		t.Errorf("expected sanitized sensor type, got %q", got.SensorType)
	}
}

func TestHeaderIsSkippable(t *testing.T) {
	t.Parallel()

	h := Header()
	if !strings.HasPrefix(h, "#") {
		t.Fatalf("header must be a comment line: %s", h)
	}
	if !IsComment(h) {
		t.Error("header must be recognized as a comment")
	}
	if !strings.Contains(h, "ts_ms") || !strings.Contains(h, "accel_ms2") {
		t.Errorf("header should name first and last columns: %s", h)
	}
}

func TestIsComment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want bool
	}{
		{"# comment", true},
		{"  # indented", true},
		{"", true},
		{"   ", true},
		{"1,2024-02-10T08:15:00Z,1,2,0,5,1,ph,m,s", false},
	}

	for _, tt := range tests {
		if got := IsComment(tt.line); got != tt.want {
			t.Errorf("IsComment(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestFloatPrecisionRoundTrip(t *testing.T) {
	t.Parallel()

	// 'g' with precision -1 emits the shortest string that parses back
	// to the identical float64.
	values := []float64{43.508132999999997, -0.000001, 1e-10, 179.99999999999997}

	for _, v := range values {
		obs := models.Observation{Timestamp: 1, SensorType: "t", Lat: f64(v), Lon: f64(1)}
		got, err := Decode(Encode(&obs))
		if err != nil {
			t.Fatalf("decode %v: %v", v, err)
		}
		if *got.Lat != v {
			t.Errorf("float %v did not round-trip, got %v", v, *got.Lat)
		}
	}
}
