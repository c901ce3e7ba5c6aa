// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package ingest

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tomtom215/hydrolog/internal/devclock"
	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Simulator publishes a synthetic multi-sensor observation cycle:
// a position random-walk, sinusoidal water temperature, plausible wind
// and attitude context. For bench development and soak testing without
// sensor hardware.
//
// Roughly one cycle in twenty emits a fixless record and one in forty
// the 0/0 searching artifact, so the upload payload filter is
// exercised end to end.
type Simulator struct {
	publisher Publisher
	clock     devclock.Clock
	interval  time.Duration
	rng       *rand.Rand

	lat, lon float64
	cycle    int
}

// NewSimulator builds the synthetic producer. seed 0 derives one from
// the wall clock.
func NewSimulator(publisher Publisher, clock devclock.Clock, interval time.Duration, seed int64) *Simulator {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		rng:       rand.New(rand.NewSource(seed)),
		// Baltic test site; any open water works
		lat: 57.32,
		lon: 19.85,
	}
}

// Serve implements suture.Service.
func (s *Simulator) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Observation simulator running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, o := range s.sample() {
				if err := s.publisher.Publish(ctx, o); err != nil {
					logging.Warn().Err(err).Msg("Simulator publish failed")
					continue
				}
				recordPublished("simulator")
			}
		}
	}
}

// sample produces one cycle's observations across the simulated
// sensor suite.
func (s *Simulator) sample() []models.Observation {
	s.cycle++
	s.drift()

	base := s.base()

	wtemp := base
	wtemp.SensorType = "wtemp"
	wtemp.SensorModel = "SBE56"
	wtemp.SensorSerial = "05612345"
	wtemp.Value = ptr(s.waterTemp())
	wtemp.Unit = "degC"
	wtemp.Quality = models.QualityGood

	cond := base
	cond.SensorType = "ctd"
	cond.SensorModel = "SBE37"
	cond.SensorSerial = "37-0091"
	cond.Value = ptr(7.2 + s.rng.Float64()*0.3)
	cond.Unit = "S/m"
	cond.Quality = models.QualityGood
	cond.Depth = ptr(1.5)

	ph := base
	ph.SensorType = "ph"
	ph.SensorModel = "SeaFET"
	ph.SensorSerial = "SF2-114"
	ph.Value = ptr(8.05 + s.rng.Float64()*0.1 - 0.05)
	ph.Unit = "pH"
	if s.rng.Float64() < 0.05 {
		ph.Quality = models.QualityQuestionable
	} else {
		ph.Quality = models.QualityGood
	}

	do := base
	do.SensorType = "do"
	do.SensorModel = "Optode4835"
	do.SensorSerial = "4835-2210"
	do.Value = ptr(8.9 + s.rng.Float64()*0.8)
	do.Unit = "mg/L"
	do.Quality = models.QualityGood

	return []models.Observation{wtemp, cond, ph, do}
}

// base builds the shared positional and environmental context for one
// cycle.
func (s *Simulator) base() models.Observation {
	o := models.Observation{Timestamp: s.clock.Millis()}
	if t, ok := s.clock.Now(); ok {
		t = t.Truncate(time.Second)
		o.UTC = &t
	}

	switch {
	case s.cycle%20 == 7:
		// GPS dropout: no fix at all
	case s.cycle%40 == 13:
		// Receiver searching: the 0/0 artifact, stored verbatim
		o.Lat, o.Lon = ptr(0.0), ptr(0.0)
		o.Satellites = ptr(0)
	default:
		o.Lat = ptr(s.lat)
		o.Lon = ptr(s.lon)
		o.Alt = ptr(s.rng.Float64()*2 - 1)
		o.Satellites = ptr(7 + s.rng.Intn(5))
		o.HDOP = ptr(0.8 + s.rng.Float64()*0.7)
	}

	windDir := math.Mod(210+s.rng.Float64()*30, 360)
	o.WindSpeed = ptr(4 + s.rng.Float64()*3)
	o.WindDir = ptr(windDir)
	o.ExtTemp = ptr(s.waterTemp() + 2 + s.rng.Float64())
	o.Pressure = ptr(1009 + s.rng.Float64()*8)
	o.Humidity = ptr(68 + s.rng.Float64()*15)

	o.COG = ptr(math.Mod(windDir+140, 360))
	o.SOG = ptr(0.2 + s.rng.Float64()*0.4)
	o.Heading = ptr(math.Mod(windDir+160, 360))
	o.Pitch = ptr(s.rng.Float64()*8 - 4)
	o.Roll = ptr(s.rng.Float64()*10 - 5)
	o.TrueWindSpeed = ptr(*o.WindSpeed - *o.SOG*0.6)
	o.TrueWindDir = ptr(math.Mod(windDir+3, 360))
	o.Accel = ptr(0.3 + s.rng.Float64()*1.2)

	return o
}

// drift random-walks the position a few meters per cycle.
func (s *Simulator) drift() {
	s.lat += (s.rng.Float64() - 0.5) * 0.0001
	s.lon += (s.rng.Float64() - 0.5) * 0.0001
}

// waterTemp follows a slow sinusoid over the simulated day.
func (s *Simulator) waterTemp() float64 {
	phase := float64(s.cycle) / 360 * 2 * math.Pi
	return 12.5 + 1.8*math.Sin(phase) + s.rng.Float64()*0.2
}

// String implements fmt.Stringer for supervisor logs.
func (s *Simulator) String() string {
	return "simulator"
}

func ptr[T any](v T) *T {
	return &v
}
