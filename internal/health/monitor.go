// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package health

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Key layout. Event keys sort by time so a reverse iteration yields
// newest first; counter keys are exempt from the event TTL.
const (
	eventKeyPrefix   = "event:"
	counterKeyPrefix = "counter:"
)

// Config configures the monitor.
type Config struct {
	// Path is the BadgerDB directory. Empty opens in memory (tests).
	Path string

	// EventTTL bounds how long individual events are kept. Zero means
	// events never expire.
	EventTTL time.Duration

	// GCInterval is the value-log GC cadence for the supervised GC
	// service. Default 10 minutes.
	GCInterval time.Duration
}

// Monitor is the BadgerDB-backed health store. It implements Reporter
// for the core and Source for the admin API.
type Monitor struct {
	db  *badger.DB
	ttl time.Duration
	gc  time.Duration
}

// Interface guards.
var (
	_ Reporter = (*Monitor)(nil)
	_ Source   = (*Monitor)(nil)
)

// NewMonitor opens the health store.
func NewMonitor(cfg Config) (*Monitor, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open health store: %w", err)
	}

	gc := cfg.GCInterval
	if gc <= 0 {
		gc = 10 * time.Minute
	}

	m := &Monitor{db: db, ttl: cfg.EventTTL, gc: gc}
	logging.Info().
		Str("path", cfg.Path).
		Dur("event_ttl", cfg.EventTTL).
		Msg("Health monitor opened")
	return m, nil
}

// Close closes the underlying store.
func (m *Monitor) Close() error {
	return m.db.Close()
}

// ReportStorageError persists a storage fault event.
func (m *Monitor) ReportStorageError(component string, err error) {
	m.report(models.HealthStorage, component, err)
}

// ReportNetworkError persists a network fault event.
func (m *Monitor) ReportNetworkError(component string, err error) {
	m.report(models.HealthNetwork, component, err)
}

// report persists the event and bumps the kind counter in one
// transaction. A failure to persist is logged and dropped; the health
// store must never take the data path down with it.
func (m *Monitor) report(kind models.HealthKind, component string, cause error) {
	ev := models.HealthEvent{
		ID:        uuid.New(),
		At:        time.Now().UTC(),
		Kind:      kind,
		Component: component,
		Message:   cause.Error(),
	}

	data, err := json.Marshal(&ev)
	if err != nil {
		logging.Error().Err(err).Msg("Health event marshal failed")
		return
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(eventKey(ev), data)
		if m.ttl > 0 {
			entry = entry.WithTTL(m.ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set event: %w", err)
		}
		return incrementCounter(txn, kind)
	})
	if err != nil {
		logging.Error().Err(err).Msg("Health event persist failed")
		return
	}

	metrics.RecordHealthEvent(string(kind))
	logging.Warn().
		Str("kind", string(kind)).
		Str("component", component).
		Err(cause).
		Msg("Health event recorded")
}

// eventKey builds a time-ordered key: prefix, big-endian unix nanos,
// then the UUID to break ties.
func eventKey(ev models.HealthEvent) []byte {
	key := make([]byte, 0, len(eventKeyPrefix)+8+16)
	key = append(key, eventKeyPrefix...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(ev.At.UnixNano()))
	key = append(key, ts[:]...)
	key = append(key, ev.ID[:]...)
	return key
}

// incrementCounter bumps one lifetime kind counter.
func incrementCounter(txn *badger.Txn, kind models.HealthKind) error {
	key := []byte(counterKeyPrefix + string(kind))

	var current uint64
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		// First fault of this kind
	case err != nil:
		return fmt.Errorf("get counter: %w", err)
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) == 8 {
				current = binary.BigEndian.Uint64(val)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("read counter: %w", err)
		}
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], current+1)
	if err := txn.Set(key, buf[:]); err != nil {
		return fmt.Errorf("set counter: %w", err)
	}
	return nil
}

// Recent returns up to n most recent events, newest first.
func (m *Monitor) Recent(n int) ([]models.HealthEvent, error) {
	if n <= 0 {
		return nil, nil
	}

	var events []models.HealthEvent
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past every event key
		seek := append([]byte(eventKeyPrefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seek); it.Valid() && len(events) < n; it.Next() {
			var ev models.HealthEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				logging.Debug().Err(err).Msg("Skipping undecodable health event")
				continue
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read health events: %w", err)
	}
	return events, nil
}

// Counters returns the lifetime per-kind fault totals.
func (m *Monitor) Counters() (models.HealthCounters, error) {
	var c models.HealthCounters
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		if c.Storage, err = readCounter(txn, models.HealthStorage); err != nil {
			return err
		}
		if c.Network, err = readCounter(txn, models.HealthNetwork); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return c, fmt.Errorf("read health counters: %w", err)
	}
	return c, nil
}

func readCounter(txn *badger.Txn, kind models.HealthKind) (uint64, error) {
	item, err := txn.Get([]byte(counterKeyPrefix + string(kind)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}

	var v uint64
	err = item.Value(func(val []byte) error {
		if len(val) == 8 {
			v = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return v, err
}

// GCService runs Badger value-log garbage collection on a fixed
// cadence as a supervised service.
type GCService struct {
	monitor *Monitor
}

// NewGCService wraps the monitor's GC loop for the supervision tree.
func NewGCService(m *Monitor) *GCService {
	return &GCService{monitor: m}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.monitor.gc)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.monitor.db.RunValueLogGC(0.5)
			switch {
			case err == nil:
				metrics.RecordHealthGC("reclaimed")
			case errors.Is(err, badger.ErrNoRewrite):
				metrics.RecordHealthGC("noop")
			default:
				metrics.RecordHealthGC("error")
				logging.Debug().Err(err).Msg("Health store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *GCService) String() string {
	return "health-gc"
}
