// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydrolog/internal/models"
)

func f64(v float64) *float64 { return &v }

// testObservation builds a record with a valid fix, distinguishable by
// its timestamp.
func testObservation(ts uint32) models.Observation {
	return models.Observation{
		Timestamp:  ts,
		Lat:        f64(57.32),
		Lon:        f64(19.85),
		SensorType: "wtemp",
		Value:      f64(12.5),
		Unit:       "degC",
		Quality:    models.QualityGood,
	}
}

func openTestCircular(t *testing.T, dir string, capacity, slack, threshold int) *CircularStore {
	t.Helper()
	c, err := OpenCircular(CircularOptions{
		Dir:            dir,
		Capacity:       capacity,
		TrimSlack:      slack,
		FlushThreshold: threshold,
	})
	if err != nil {
		t.Fatalf("OpenCircular: %v", err)
	}
	return c
}

func writeN(t *testing.T, c *CircularStore, start, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		o := testObservation(uint32(start + i))
		if err := c.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", start+i, err)
		}
	}
}

func readMetaFile(t *testing.T, dir string) Metadata {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		t.Fatalf("read metadata file: %v", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal metadata file: %v", err)
	}
	return m
}

func TestCircularWriteAndReadBack(t *testing.T) {
	c := openTestCircular(t, t.TempDir(), 100, 0, 1)
	defer c.Close()

	writeN(t, c, 0, 5)

	records, _, err := c.ReadRecords(0, 10, 0)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	for i, r := range records {
		if r.Timestamp != uint32(i) {
			t.Errorf("record %d: timestamp %d, want %d", i, r.Timestamp, i)
		}
		if r.SensorType != "wtemp" {
			t.Errorf("record %d: sensor type %q", i, r.SensorType)
		}
	}

	if got := c.PendingCount(); got != 5 {
		t.Errorf("PendingCount = %d, want 5", got)
	}
}

func TestMetadataFlushBatching(t *testing.T) {
	dir := t.TempDir()
	c := openTestCircular(t, dir, 1000, 0, 50)
	defer c.Close()

	writeN(t, c, 0, 49)
	if _, err := os.Stat(filepath.Join(dir, metaFileName)); !os.IsNotExist(err) {
		t.Fatalf("metadata flushed before threshold, stat err = %v", err)
	}

	writeN(t, c, 49, 1)
	m := readMetaFile(t, dir)
	if m.TotalWritten != 50 || m.LiveCount != 50 {
		t.Errorf("metadata after threshold flush = %+v, want total/live 50", m)
	}
}

func TestCursorAdvanceForcesFlush(t *testing.T) {
	dir := t.TempDir()
	c := openTestCircular(t, dir, 1000, 0, 100)
	defer c.Close()

	writeN(t, c, 0, 3)
	if _, err := os.Stat(filepath.Join(dir, metaFileName)); !os.IsNotExist(err) {
		t.Fatalf("metadata flushed before cursor advance, stat err = %v", err)
	}

	if err := c.AdvanceCursor(2); err != nil {
		t.Fatalf("AdvanceCursor: %v", err)
	}

	m := readMetaFile(t, dir)
	if m.Uploaded != 2 {
		t.Errorf("on-disk cursor = %d, want 2", m.Uploaded)
	}
	if m.TotalWritten != 3 {
		t.Errorf("on-disk total = %d, want 3", m.TotalWritten)
	}
}

func TestCursorClampsToTotalWritten(t *testing.T) {
	c := openTestCircular(t, t.TempDir(), 100, 0, 1)
	defer c.Close()

	writeN(t, c, 0, 5)
	if err := c.AdvanceCursor(10); err != nil {
		t.Fatalf("AdvanceCursor: %v", err)
	}

	if got := c.Uploaded(); got != 5 {
		t.Errorf("Uploaded = %d, want clamp at 5", got)
	}
	if got := c.PendingCount(); got != 0 {
		t.Errorf("PendingCount = %d, want 0", got)
	}
}

func TestTrimCounterArithmetic(t *testing.T) {
	tests := []struct {
		name         string
		written      int
		cursor       uint64
		capacity     int
		wantTotal    uint64
		wantCursor   uint64
		wantPending  uint64
		wantLive     uint64
	}{
		{
			name:     "cursor survives eviction shifted",
			written:  120,
			cursor:   100,
			capacity: 100,
			// 20 evicted: both counters shift down together
			wantTotal:   100,
			wantCursor:  80,
			wantPending: 20,
			wantLive:    100,
		},
		{
			name:     "cursor clamps at zero when eviction passes it",
			written:  80,
			cursor:   10,
			capacity: 50,
			// 30 evicted, 20 of them unuploaded and lost
			wantTotal:   50,
			wantCursor:  0,
			wantPending: 50,
			wantLive:    50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Slack large enough that nothing trims until asked
			c := openTestCircular(t, t.TempDir(), tt.capacity, 1000, 1)
			defer c.Close()

			writeN(t, c, 0, tt.written)
			if err := c.AdvanceCursor(tt.cursor); err != nil {
				t.Fatalf("AdvanceCursor: %v", err)
			}
			if err := c.TrimToCapacity(); err != nil {
				t.Fatalf("TrimToCapacity: %v", err)
			}

			s := c.Stats()
			if s.TotalWritten != tt.wantTotal {
				t.Errorf("TotalWritten = %d, want %d", s.TotalWritten, tt.wantTotal)
			}
			if s.Uploaded != tt.wantCursor {
				t.Errorf("Uploaded = %d, want %d", s.Uploaded, tt.wantCursor)
			}
			if s.LiveCount != tt.wantLive {
				t.Errorf("LiveCount = %d, want %d", s.LiveCount, tt.wantLive)
			}
			if got := c.PendingCount(); got != tt.wantPending {
				t.Errorf("PendingCount = %d, want %d", got, tt.wantPending)
			}

			// Trim keeps the newest capacity records
			records, _, err := c.ReadRecords(0, 1, 0)
			if err != nil {
				t.Fatalf("ReadRecords: %v", err)
			}
			wantFirst := uint32(tt.written - tt.capacity)
			if len(records) != 1 || records[0].Timestamp != wantFirst {
				t.Errorf("oldest surviving record = %v, want timestamp %d", records, wantFirst)
			}
		})
	}
}

func TestWriteTrimsPastSlack(t *testing.T) {
	c := openTestCircular(t, t.TempDir(), 10, 5, 1)
	defer c.Close()

	// 15 records fit inside capacity+slack, the 16th trips the trim
	writeN(t, c, 0, 15)
	if got := c.Stats().LiveCount; got != 15 {
		t.Fatalf("LiveCount before trim = %d, want 15", got)
	}

	writeN(t, c, 15, 1)
	s := c.Stats()
	if s.LiveCount != 10 {
		t.Errorf("LiveCount after trim = %d, want 10", s.LiveCount)
	}
	if s.TotalWritten != 10 {
		t.Errorf("TotalWritten after trim = %d, want 10", s.TotalWritten)
	}
}

func TestRecoveryCountsUnflushedTail(t *testing.T) {
	dir := t.TempDir()

	// High threshold so only the cursor advance flushes metadata
	c := openTestCircular(t, dir, 1000, 0, 100)
	writeN(t, c, 0, 10)
	if err := c.AdvanceCursor(10); err != nil {
		t.Fatalf("AdvanceCursor: %v", err)
	}
	writeN(t, c, 10, 5)
	// No Close: simulate power loss with the tail unflushed

	c2 := openTestCircular(t, dir, 1000, 0, 100)
	defer c2.Close()

	s := c2.Stats()
	if s.TotalWritten != 15 {
		t.Errorf("recovered TotalWritten = %d, want 15", s.TotalWritten)
	}
	if s.Uploaded != 10 {
		t.Errorf("recovered Uploaded = %d, want 10", s.Uploaded)
	}
	if got := c2.PendingCount(); got != 5 {
		t.Errorf("recovered PendingCount = %d, want 5", got)
	}
}

func TestRecoveryIgnoresTornFinalLine(t *testing.T) {
	dir := t.TempDir()

	c := openTestCircular(t, dir, 100, 0, 1)
	writeN(t, c, 0, 3)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A power loss mid-append leaves a final line with no newline
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("4,2026-08-21T14:30:05Z,57.3"); err != nil {
		t.Fatalf("write torn line: %v", err)
	}
	f.Close()

	c2 := openTestCircular(t, dir, 100, 0, 1)
	defer c2.Close()

	if got := c2.Stats().LiveCount; got != 3 {
		t.Errorf("LiveCount with torn tail = %d, want 3", got)
	}
	records, _, err := c2.ReadRecords(0, 10, 0)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3 with torn line excluded", len(records))
	}
}

func TestRecoveryReconcilesShrunkenLog(t *testing.T) {
	dir := t.TempDir()

	c := openTestCircular(t, dir, 100, 0, 1)
	writeN(t, c, 0, 10)
	if err := c.AdvanceCursor(8); err != nil {
		t.Fatalf("AdvanceCursor: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Replace the log with a shorter one, as if the file was truncated
	// outside our control
	short := "# header\n" + "0,,57.32,19.85,,,,wtemp,,,,,12.5,degC,good,,,,,,,,,,,,,,,\n"
	if err := os.WriteFile(filepath.Join(dir, logFileName), []byte(short), 0o644); err != nil {
		t.Fatalf("rewrite log: %v", err)
	}

	c2 := openTestCircular(t, dir, 100, 0, 1)
	defer c2.Close()

	s := c2.Stats()
	if s.LiveCount != 1 {
		t.Errorf("reconciled LiveCount = %d, want 1", s.LiveCount)
	}
	if s.Uploaded > s.TotalWritten {
		t.Errorf("cursor %d exceeds total %d after reconcile", s.Uploaded, s.TotalWritten)
	}
}

func TestClearResetsEverything(t *testing.T) {
	c := openTestCircular(t, t.TempDir(), 100, 0, 1)
	defer c.Close()

	writeN(t, c, 0, 7)
	if err := c.AdvanceCursor(3); err != nil {
		t.Fatalf("AdvanceCursor: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	s := c.Stats()
	if s.TotalWritten != 0 || s.Uploaded != 0 || s.LiveCount != 0 {
		t.Errorf("stats after clear = %+v, want zeros", s)
	}
	records, _, err := c.ReadRecords(0, 10, 0)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records after clear, want 0", len(records))
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	c := openTestCircular(t, t.TempDir(), 100, 0, 1)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	o := testObservation(0)
	if err := c.Write(&o); err != ErrStoreClosed {
		t.Errorf("Write after close = %v, want ErrStoreClosed", err)
	}
	if _, _, err := c.ReadRecords(0, 1, 0); err != ErrStoreClosed {
		t.Errorf("ReadRecords after close = %v, want ErrStoreClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestCorruptMetadataStartsFromZero(t *testing.T) {
	dir := t.TempDir()

	c := openTestCircular(t, dir, 100, 0, 1)
	writeN(t, c, 0, 4)
	c.Close()

	if err := os.WriteFile(filepath.Join(dir, metaFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt metadata: %v", err)
	}

	// Recovery rebuilds the live count from the log; the cursor is lost,
	// which re-uploads at worst (at-least-once)
	c2 := openTestCircular(t, dir, 100, 0, 1)
	defer c2.Close()

	s := c2.Stats()
	if s.LiveCount != 4 || s.TotalWritten != 4 {
		t.Errorf("recovered stats = %+v, want live/total 4", s)
	}
	if s.Uploaded != 0 {
		t.Errorf("recovered cursor = %d, want 0", s.Uploaded)
	}
}

func TestReadRecordsSkipAndLimit(t *testing.T) {
	c := openTestCircular(t, t.TempDir(), 100, 0, 1)
	defer c.Close()

	writeN(t, c, 0, 10)

	records, _, err := c.ReadRecords(0, 3, 4)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, r := range records {
		if want := uint32(4 + i); r.Timestamp != want {
			t.Errorf("record %d: timestamp %d, want %d", i, r.Timestamp, want)
		}
	}
}
