// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package models defines data structures used throughout the Hydrolog application.
// These models represent sensor observations, storage statistics, upload attempts,
// health events, and API responses.
package models

import "time"

// Quality is the sensor-reported quality tag attached to a measurement.
// An empty Quality means the sensor reported no assessment.
type Quality string

// Known quality tags. Decoders pass unknown tags through unchanged so a
// log written by newer firmware stays readable.
const (
	QualityGood         Quality = "good"
	QualityQuestionable Quality = "questionable"
	QualityBad          Quality = "bad"
)

// Observation is a single sensor measurement with its positional and
// environmental context at the moment it was taken.
//
// Optional fields are pointers: nil means the field was absent from the
// record, while a pointer to zero is a real measured zero. The distinction
// matters for GPS fixes (0°N 0°E is representable) and for calm-condition
// measurements (0.0 m/s wind). JSON serialization uses omitempty on the
// optional fields to keep upload payloads small.
//
// Key fields:
//   - Timestamp: device-relative milliseconds since boot, wraps at 2^32
//   - UTC: absolute time, nil until the device has synced its clock
//   - Lat/Lon: a position fix; nil when the GPS had no fix
//   - SensorType/Value/Unit: the measurement itself
type Observation struct {
	// Device-relative time. Wraps roughly every 49.7 days; elapsed-time
	// comparisons must use wraparound-safe subtraction.
	Timestamp uint32 `json:"ts_ms"`

	// Absolute UTC at second precision, once known.
	UTC *time.Time `json:"utc,omitempty"`

	// Position fix. Nil Lat or Lon means no fix at sampling time.
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Alt        *float64 `json:"alt,omitempty"`  // meters above WGS84 ellipsoid
	Satellites *int     `json:"sats,omitempty"` // satellites in the fix
	HDOP       *float64 `json:"hdop,omitempty"` // horizontal dilution of precision

	// Sensor identification
	SensorType   string     `json:"sensor_type"`             // e.g. 'ctd', 'ph', 'do', 'wtemp'
	SensorModel  string     `json:"sensor_model,omitempty"`  // manufacturer model string
	SensorSerial string     `json:"sensor_serial,omitempty"` // unit serial number
	SensorIndex  *int       `json:"sensor_index,omitempty"`  // instance number for duplicated sensors
	CalDate      *time.Time `json:"cal_date,omitempty"`      // last calibration, day precision

	// Measurement
	Value   *float64 `json:"value,omitempty"`
	Unit    string   `json:"unit,omitempty"`
	Quality Quality  `json:"quality,omitempty"`

	// Meteorological context
	WindSpeed *float64 `json:"wind_speed_ms,omitempty"` // apparent wind, m/s
	WindDir   *float64 `json:"wind_dir_deg,omitempty"`  // apparent wind, degrees true
	ExtTemp   *float64 `json:"ext_temp_c,omitempty"`    // external air temperature
	Pressure  *float64 `json:"pressure_hpa,omitempty"`  // barometric pressure
	Humidity  *float64 `json:"humidity_pct,omitempty"`  // relative humidity

	// Hydrological context
	Depth *float64 `json:"depth_m,omitempty"`  // measurement depth
	Speed *float64 `json:"speed_ms,omitempty"` // speed through water

	// Navigation context
	COG     *float64 `json:"cog_deg,omitempty"` // course over ground
	SOG     *float64 `json:"sog_ms,omitempty"`  // speed over ground
	Heading *float64 `json:"heading_deg,omitempty"`

	// Attitude and motion
	Pitch         *float64 `json:"pitch_deg,omitempty"`
	Roll          *float64 `json:"roll_deg,omitempty"`
	TrueWindSpeed *float64 `json:"true_wind_speed_ms,omitempty"` // motion-corrected wind
	TrueWindDir   *float64 `json:"true_wind_dir_deg,omitempty"`
	Accel         *float64 `json:"accel_ms2,omitempty"` // linear acceleration magnitude
}

// HasFix reports whether the observation carries a position fix.
// A fix requires both latitude and longitude.
func (o *Observation) HasFix() bool {
	return o.Lat != nil && o.Lon != nil
}

// ZeroFix reports whether the observation carries the literal 0°N 0°E fix.
// Receivers on this device class emit 0/0 while searching for satellites,
// so upload payloads exclude it; the stored record keeps the literal zeros.
func (o *Observation) ZeroFix() bool {
	return o.HasFix() && *o.Lat == 0 && *o.Lon == 0
}

// Uploadable reports whether the observation belongs in an upload payload:
// it must carry a fix and the fix must not be the 0/0 searching artifact.
func (o *Observation) Uploadable() bool {
	return o.HasFix() && !o.ZeroFix()
}
