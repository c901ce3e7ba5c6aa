// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package storage

import (
	"os"
	"sync"
	"testing"

	"github.com/tomtom215/hydrolog/internal/health"
)

// recordingReporter captures health events for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	storage []string
	network []string
}

func (r *recordingReporter) ReportStorageError(component string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = append(r.storage, component)
}

func (r *recordingReporter) ReportNetworkError(component string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.network = append(r.network, component)
}

func (r *recordingReporter) storageEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.storage...)
}

func newTestFacade(t *testing.T, durable *DurableStore, reporter *recordingReporter) (*Facade, *CircularStore) {
	t.Helper()
	circular := openTestCircular(t, t.TempDir(), 100, 0, 1)

	var rep health.Reporter
	if reporter != nil {
		rep = reporter
	}

	f, err := NewFacade(circular, durable, rep)
	if err != nil {
		t.Fatalf("NewFacade: %v", err)
	}
	return f, circular
}

func TestFacadeDualWrite(t *testing.T) {
	durable := openTestDurable(t, t.TempDir(), 1)
	f, circular := newTestFacade(t, durable, nil)
	defer f.Close()

	o := testObservation(42)
	if err := f.Write(&o); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := circular.Stats().TotalWritten; got != 1 {
		t.Errorf("circular total = %d, want 1", got)
	}
	if got := durable.Stats().TotalWritten; got != 1 {
		t.Errorf("durable total = %d, want 1", got)
	}
	if got := f.PendingCount(); got != 1 {
		t.Errorf("PendingCount = %d, want 1", got)
	}
}

func TestFacadeWriteSucceedsWithDurableUnmounted(t *testing.T) {
	dir, _ := blockedDir(t)
	durable, err := OpenDurable(DurableOptions{Dir: dir, FlushThreshold: 1})
	if err != nil {
		t.Fatalf("OpenDurable: %v", err)
	}

	reporter := &recordingReporter{}
	f, circular := newTestFacade(t, durable, reporter)
	defer f.Close()

	o := testObservation(0)
	if err := f.Write(&o); err != nil {
		t.Fatalf("Write with durable unmounted: %v", err)
	}

	if got := circular.Stats().TotalWritten; got != 1 {
		t.Errorf("circular total = %d, want 1", got)
	}

	// The durable miss still surfaces as a health event
	events := reporter.storageEvents()
	if len(events) != 1 || events[0] != "storage.durable" {
		t.Errorf("storage events = %v, want one storage.durable", events)
	}

	s := f.Stats()
	if s.Durable.Mounted {
		t.Error("stats report durable mounted")
	}
	if !s.Circular.Mounted {
		t.Error("stats report circular unmounted")
	}
}

func TestFacadeWithoutDurableBackend(t *testing.T) {
	f, _ := newTestFacade(t, nil, nil)
	defer f.Close()

	o := testObservation(0)
	if err := f.Write(&o); err != nil {
		t.Fatalf("Write: %v", err)
	}

	s := f.Stats()
	if s.Durable.Mounted {
		t.Error("absent durable backend reported mounted")
	}
	if s.Durable.Name != "durable" {
		t.Errorf("durable stats name = %q", s.Durable.Name)
	}
	if s.Pending != 1 {
		t.Errorf("pending = %d, want 1", s.Pending)
	}
}

func TestFacadeReadPendingHonorsCursor(t *testing.T) {
	f, _ := newTestFacade(t, nil, nil)
	defer f.Close()

	for i := 0; i < 10; i++ {
		o := testObservation(uint32(i))
		if err := f.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	if err := f.AdvanceUploadCursor(4); err != nil {
		t.Fatalf("AdvanceUploadCursor: %v", err)
	}

	records, err := f.ReadPending(100)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d pending records, want 6", len(records))
	}
	if records[0].Timestamp != 4 {
		t.Errorf("first pending timestamp = %d, want 4", records[0].Timestamp)
	}

	if got := f.PendingCount(); got != 6 {
		t.Errorf("PendingCount = %d, want 6", got)
	}
}

func TestFacadeReadPendingBatchLimit(t *testing.T) {
	f, _ := newTestFacade(t, nil, nil)
	defer f.Close()

	for i := 0; i < 10; i++ {
		o := testObservation(uint32(i))
		if err := f.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	records, err := f.ReadPending(3)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want batch limit 3", len(records))
	}
	if records[0].Timestamp != 0 || records[2].Timestamp != 2 {
		t.Errorf("batch = %v, want the oldest three", records)
	}
}

func TestFacadeReadPendingFallsBackToCircular(t *testing.T) {
	dir, _ := blockedDir(t)
	durable, err := OpenDurable(DurableOptions{Dir: dir, FlushThreshold: 1})
	if err != nil {
		t.Fatalf("OpenDurable: %v", err)
	}

	f, _ := newTestFacade(t, durable, nil)
	defer f.Close()

	for i := 0; i < 5; i++ {
		o := testObservation(uint32(i))
		if err := f.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	// Durable never mounted, so the circular log serves the read
	records, err := f.ReadPending(10)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(records) != 5 {
		t.Errorf("got %d records, want 5", len(records))
	}
}

func TestFacadeRecentRecords(t *testing.T) {
	f, _ := newTestFacade(t, nil, nil)
	defer f.Close()

	for i := 0; i < 10; i++ {
		o := testObservation(uint32(i))
		if err := f.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	records, err := f.RecentRecords(3)
	if err != nil {
		t.Fatalf("RecentRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []uint32{7, 8, 9} {
		if records[i].Timestamp != want {
			t.Errorf("record %d: timestamp %d, want %d", i, records[i].Timestamp, want)
		}
	}

	// Asking for more than exists returns everything
	all, err := f.RecentRecords(100)
	if err != nil {
		t.Fatalf("RecentRecords: %v", err)
	}
	if len(all) != 10 {
		t.Errorf("got %d records, want 10", len(all))
	}
}

func TestFacadeCursorPersistsAcrossReopen(t *testing.T) {
	circularDir := t.TempDir()

	circular := openTestCircular(t, circularDir, 100, 0, 100)
	f, err := NewFacade(circular, nil, nil)
	if err != nil {
		t.Fatalf("NewFacade: %v", err)
	}

	for i := 0; i < 10; i++ {
		o := testObservation(uint32(i))
		if err := f.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := f.AdvanceUploadCursor(10); err != nil {
		t.Fatalf("AdvanceUploadCursor: %v", err)
	}
	for i := 10; i < 15; i++ {
		o := testObservation(uint32(i))
		if err := f.Write(&o); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	// Crash: no Flush, no Close

	circular2 := openTestCircular(t, circularDir, 100, 0, 100)
	f2, err := NewFacade(circular2, nil, nil)
	if err != nil {
		t.Fatalf("NewFacade: %v", err)
	}
	defer f2.Close()

	if got := f2.PendingCount(); got != 5 {
		t.Errorf("pending after reopen = %d, want the 5 unconfirmed", got)
	}
	records, err := f2.ReadPending(100)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d pending records after reopen, want 5", len(records))
	}
	if records[0].Timestamp != 10 {
		t.Errorf("first pending timestamp after reopen = %d, want 10", records[0].Timestamp)
	}
}

func TestFacadeBytesUploaded(t *testing.T) {
	f, _ := newTestFacade(t, nil, nil)
	defer f.Close()

	if err := f.AddBytesUploaded(1024); err != nil {
		t.Fatalf("AddBytesUploaded: %v", err)
	}
	if err := f.AddBytesUploaded(512); err != nil {
		t.Fatalf("AddBytesUploaded: %v", err)
	}
	if got := f.BytesUploaded(); got != 1536 {
		t.Errorf("BytesUploaded = %d, want 1536", got)
	}
}

func TestFacadeRequiresCircular(t *testing.T) {
	if _, err := NewFacade(nil, nil, nil); err == nil {
		t.Fatal("NewFacade accepted nil circular backend")
	}
}

func TestFacadeSkipsUndecodableLines(t *testing.T) {
	circularDir := t.TempDir()
	circular := openTestCircular(t, circularDir, 100, 0, 1)
	f, err := NewFacade(circular, nil, nil)
	if err != nil {
		t.Fatalf("NewFacade: %v", err)
	}
	defer f.Close()

	o := testObservation(0)
	if err := f.Write(&o); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Inject a malformed but complete line between two good records
	lf, err := os.OpenFile(circularDir+"/"+logFileName, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := lf.WriteString("not-a-timestamp,,,,,,,,,,,,,,\n"); err != nil {
		t.Fatalf("inject bad line: %v", err)
	}
	lf.Close()

	o2 := testObservation(1)
	if err := f.Write(&o2); err != nil {
		t.Fatalf("Write: %v", err)
	}

	records, err := f.ReadPending(10)
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 with the bad line skipped", len(records))
	}
	if records[0].Timestamp != 0 || records[1].Timestamp != 1 {
		t.Errorf("records = %v, want timestamps 0 and 1", records)
	}
}
