// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

// Package codec serializes observations to the on-flash line format.
//
// One observation per comma-delimited line, 30 fixed-order fields. Absent
// optional fields render as empty strings, so a pointer to zero and a nil
// pointer are distinct on the wire. The format is append-friendly (no
// record updates, no quoting) and versioned by column count: decoders
// accept any line with at least the 10 original columns and ignore columns
// beyond the 30 they know, so logs survive firmware upgrades in both
// directions.
//
// Lines starting with '#' are comments; every new log file begins with a
// '#' header naming the schema and column order.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/hydrolog/internal/models"
)

// SchemaVersion is the current line-format generation. Bumped only when
// a new trailing column is added; existing columns never move.
const SchemaVersion = 3

// Field positions in a record line. Order is frozen: positions 0-9 are the
// legacy minimum a decoder must accept, everything after is optional.
const (
	fieldTimestamp = iota
	fieldUTC
	fieldLat
	fieldLon
	fieldAlt
	fieldSatellites
	fieldHDOP
	fieldSensorType
	fieldSensorModel
	fieldSensorSerial
	fieldSensorIndex
	fieldCalDate
	fieldValue
	fieldUnit
	fieldQuality
	fieldWindSpeed
	fieldWindDir
	fieldDepth
	fieldSpeed
	fieldExtTemp
	fieldPressure
	fieldHumidity
	fieldCOG
	fieldSOG
	fieldHeading
	fieldPitch
	fieldRoll
	fieldTrueWindSpeed
	fieldTrueWindDir
	fieldAccel

	// FieldCount is the number of columns the current schema writes.
	FieldCount
)

// legacyMinFields is the column count of the first deployed schema.
// Shorter lines carry too little to identify a measurement.
const legacyMinFields = 10

// fieldNames maps positions to wire names, for the header line and for
// decode error messages.
var fieldNames = [FieldCount]string{
	"ts_ms", "utc", "lat", "lon", "alt", "sats", "hdop",
	"sensor_type", "sensor_model", "sensor_serial", "sensor_index",
	"cal_date", "value", "unit", "quality",
	"wind_speed_ms", "wind_dir_deg", "depth_m", "speed_ms",
	"ext_temp_c", "pressure_hpa", "humidity_pct",
	"cog_deg", "sog_ms", "heading_deg", "pitch_deg", "roll_deg",
	"true_wind_speed_ms", "true_wind_dir_deg", "accel_ms2",
}

const (
	delimiter = ","

	// utcLayout is RFC 3339 at second precision; sub-second timing is
	// meaningless next to a wrapping millisecond tick.
	utcLayout = time.RFC3339

	// calDateLayout is day precision; calibration certificates carry no time.
	calDateLayout = "2006-01-02"
)

// sanitizer strips the characters the format reserves. Sensor strings come
// from config and serial hardware, either of which can surprise.
var sanitizer = strings.NewReplacer(delimiter, ";", "\n", " ", "\r", " ")

// Header returns the comment line written at the top of every new log file.
func Header() string {
	return fmt.Sprintf("# hydrolog v%d %s", SchemaVersion, strings.Join(fieldNames[:], delimiter))
}

// IsComment reports whether a raw line is a comment or blank and should be
// skipped by readers.
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// Encode renders an observation as one record line, without a trailing
// newline. Encoding never fails: absent optionals become empty fields.
func Encode(o *models.Observation) string {
	fields := make([]string, FieldCount)

	fields[fieldTimestamp] = strconv.FormatUint(uint64(o.Timestamp), 10)
	fields[fieldUTC] = encodeTime(o.UTC, utcLayout)
	fields[fieldLat] = encodeFloat(o.Lat)
	fields[fieldLon] = encodeFloat(o.Lon)
	fields[fieldAlt] = encodeFloat(o.Alt)
	fields[fieldSatellites] = encodeInt(o.Satellites)
	fields[fieldHDOP] = encodeFloat(o.HDOP)
	fields[fieldSensorType] = sanitizer.Replace(o.SensorType)
	fields[fieldSensorModel] = sanitizer.Replace(o.SensorModel)
	fields[fieldSensorSerial] = sanitizer.Replace(o.SensorSerial)
	fields[fieldSensorIndex] = encodeInt(o.SensorIndex)
	fields[fieldCalDate] = encodeTime(o.CalDate, calDateLayout)
	fields[fieldValue] = encodeFloat(o.Value)
	fields[fieldUnit] = sanitizer.Replace(o.Unit)
	fields[fieldQuality] = sanitizer.Replace(string(o.Quality))
	fields[fieldWindSpeed] = encodeFloat(o.WindSpeed)
	fields[fieldWindDir] = encodeFloat(o.WindDir)
	fields[fieldDepth] = encodeFloat(o.Depth)
	fields[fieldSpeed] = encodeFloat(o.Speed)
	fields[fieldExtTemp] = encodeFloat(o.ExtTemp)
	fields[fieldPressure] = encodeFloat(o.Pressure)
	fields[fieldHumidity] = encodeFloat(o.Humidity)
	fields[fieldCOG] = encodeFloat(o.COG)
	fields[fieldSOG] = encodeFloat(o.SOG)
	fields[fieldHeading] = encodeFloat(o.Heading)
	fields[fieldPitch] = encodeFloat(o.Pitch)
	fields[fieldRoll] = encodeFloat(o.Roll)
	fields[fieldTrueWindSpeed] = encodeFloat(o.TrueWindSpeed)
	fields[fieldTrueWindDir] = encodeFloat(o.TrueWindDir)
	fields[fieldAccel] = encodeFloat(o.Accel)

	return strings.Join(fields, delimiter)
}

// Decode parses one record line.
//
// Lines with 10-29 fields are legacy records; the missing trailing fields
// decode as absent. Fields beyond the 30 known columns are ignored. Returns
// ErrTruncated for lines too short to be any schema generation, and
// ErrMalformed (wrapping the offending field name) when a present field
// fails to parse. Callers doing bulk reads skip malformed lines rather
// than aborting.
func Decode(line string) (models.Observation, error) {
	var o models.Observation

	fields := strings.Split(strings.TrimRight(line, "\r\n"), delimiter)
	if len(fields) < legacyMinFields {
		return o, fmt.Errorf("%w: %d fields", ErrTruncated, len(fields))
	}

	// get returns the field at position i, or empty when the line predates
	// the column.
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	ts, err := strconv.ParseUint(get(fieldTimestamp), 10, 32)
	if err != nil {
		return o, malformed(fieldTimestamp, err)
	}
	o.Timestamp = uint32(ts)

	if o.UTC, err = decodeTime(get(fieldUTC), utcLayout); err != nil {
		return o, malformed(fieldUTC, err)
	}
	if o.Lat, err = decodeFloat(get(fieldLat)); err != nil {
		return o, malformed(fieldLat, err)
	}
	if o.Lon, err = decodeFloat(get(fieldLon)); err != nil {
		return o, malformed(fieldLon, err)
	}
	if o.Alt, err = decodeFloat(get(fieldAlt)); err != nil {
		return o, malformed(fieldAlt, err)
	}
	if o.Satellites, err = decodeInt(get(fieldSatellites)); err != nil {
		return o, malformed(fieldSatellites, err)
	}
	if o.HDOP, err = decodeFloat(get(fieldHDOP)); err != nil {
		return o, malformed(fieldHDOP, err)
	}

	o.SensorType = get(fieldSensorType)
	o.SensorModel = get(fieldSensorModel)
	o.SensorSerial = get(fieldSensorSerial)

	if o.SensorIndex, err = decodeInt(get(fieldSensorIndex)); err != nil {
		return o, malformed(fieldSensorIndex, err)
	}
	if o.CalDate, err = decodeTime(get(fieldCalDate), calDateLayout); err != nil {
		return o, malformed(fieldCalDate, err)
	}
	if o.Value, err = decodeFloat(get(fieldValue)); err != nil {
		return o, malformed(fieldValue, err)
	}

	o.Unit = get(fieldUnit)
	o.Quality = models.Quality(get(fieldQuality))

	if o.WindSpeed, err = decodeFloat(get(fieldWindSpeed)); err != nil {
		return o, malformed(fieldWindSpeed, err)
	}
	if o.WindDir, err = decodeFloat(get(fieldWindDir)); err != nil {
		return o, malformed(fieldWindDir, err)
	}
	if o.Depth, err = decodeFloat(get(fieldDepth)); err != nil {
		return o, malformed(fieldDepth, err)
	}
	if o.Speed, err = decodeFloat(get(fieldSpeed)); err != nil {
		return o, malformed(fieldSpeed, err)
	}
	if o.ExtTemp, err = decodeFloat(get(fieldExtTemp)); err != nil {
		return o, malformed(fieldExtTemp, err)
	}
	if o.Pressure, err = decodeFloat(get(fieldPressure)); err != nil {
		return o, malformed(fieldPressure, err)
	}
	if o.Humidity, err = decodeFloat(get(fieldHumidity)); err != nil {
		return o, malformed(fieldHumidity, err)
	}
	if o.COG, err = decodeFloat(get(fieldCOG)); err != nil {
		return o, malformed(fieldCOG, err)
	}
	if o.SOG, err = decodeFloat(get(fieldSOG)); err != nil {
		return o, malformed(fieldSOG, err)
	}
	if o.Heading, err = decodeFloat(get(fieldHeading)); err != nil {
		return o, malformed(fieldHeading, err)
	}
	if o.Pitch, err = decodeFloat(get(fieldPitch)); err != nil {
		return o, malformed(fieldPitch, err)
	}
	if o.Roll, err = decodeFloat(get(fieldRoll)); err != nil {
		return o, malformed(fieldRoll, err)
	}
	if o.TrueWindSpeed, err = decodeFloat(get(fieldTrueWindSpeed)); err != nil {
		return o, malformed(fieldTrueWindSpeed, err)
	}
	if o.TrueWindDir, err = decodeFloat(get(fieldTrueWindDir)); err != nil {
		return o, malformed(fieldTrueWindDir, err)
	}
	if o.Accel, err = decodeFloat(get(fieldAccel)); err != nil {
		return o, malformed(fieldAccel, err)
	}

	return o, nil
}

func malformed(field int, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, fieldNames[field], err)
}

func encodeFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func decodeFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func decodeInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(layout)
}

func decodeTime(s, layout string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// Sentinel errors returned by Decode.
var (
	// ErrTruncated marks a line with fewer fields than the oldest schema
	// ever wrote, typically the torn final line after a power loss.
	ErrTruncated = errors.New("codec: truncated record")

	// ErrMalformed marks a line whose shape is plausible but whose field
	// content does not parse.
	ErrMalformed = errors.New("codec: malformed record")
)
