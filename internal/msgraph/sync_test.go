package msgraph_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/ledger"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/msgraph"
	"github.com/Tiliavir/booking-ledger/internal/normalize"
	"github.com/Tiliavir/booking-ledger/internal/storage"
)

var day = time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)

func hm(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func meeting(id, subject string, from, to time.Time) msgraph.Meeting {
	return msgraph.Meeting{ID: id, Subject: subject, Span: model.NewInterval(from, to)}
}

// openLedger starts a day on a fresh ledger and returns it with a submit
// function suitable for SyncEvents.
func openLedger(t *testing.T, policy normalize.ConflictPolicy) (*ledger.Ledger, msgraph.SubmitFunc) {
	t.Helper()
	dir := t.TempDir()
	lock, err := storage.AcquireLock(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = lock.Release() })
	l, err := ledger.Open(storage.NewStore(dir), lock, ledger.Options{
		Location: time.UTC,
		Policy:   policy,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Submit(model.NewStartDay(day.Add(8 * time.Hour))); err != nil {
		t.Fatal(err)
	}
	return l, func(a model.Action) error {
		_, err := l.Submit(a)
		return err
	}
}

func options(l *ledger.Ledger) msgraph.SyncOptions {
	return msgraph.SyncOptions{
		Date:     day,
		Issue:    "MEETING",
		Existing: l.Actions(),
	}
}

func TestToAction(t *testing.T) {
	a := msgraph.ToAction(meeting("ext-id-1", "Sprint Planning", hm(9, 0), hm(10, 30)), "MEETING")
	if a.Kind != model.BookFixed {
		t.Errorf("Kind = %s, want book_fixed", a.Kind)
	}
	if a.Issue != "MEETING" || a.Comment != "Sprint Planning" {
		t.Errorf("issue/comment = %q/%q", a.Issue, a.Comment)
	}
	if a.Span().Duration() != 90*time.Minute || !a.At.Equal(hm(9, 0)) {
		t.Errorf("span = %v, want 09:00-10:30", a.Span())
	}
}

func TestSyncEventsImport(t *testing.T) {
	l, submit := openLedger(t, normalize.Overwrite)
	events := []msgraph.Meeting{
		meeting("ext-1", "Architecture Board", hm(9, 0), hm(10, 30)),
	}
	var out bytes.Buffer
	result, err := msgraph.SyncEvents(events, options(l), submit, &out)
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 1 imported", result)
	}
	records := l.Records()
	if len(records) != 1 || records[0].Comment != "Architecture Board" || records[0].Issue != "MEETING" {
		t.Errorf("records = %+v", records)
	}
	if !strings.Contains(out.String(), "Imported") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSyncEventsIdempotent(t *testing.T) {
	l, submit := openLedger(t, normalize.Overwrite)
	events := []msgraph.Meeting{
		meeting("ext-1", "Architecture Board", hm(9, 0), hm(10, 30)),
		// The same slot twice in one response is booked once.
		meeting("ext-1b", "Architecture Board", hm(9, 0), hm(10, 30)),
	}

	r1, err := msgraph.SyncEvents(events, options(l), submit, io.Discard)
	if err != nil {
		t.Fatalf("first SyncEvents: %v", err)
	}
	if r1.Imported != 1 || r1.Skipped != 1 {
		t.Errorf("first sync = %+v, want 1 imported 1 skipped", r1)
	}

	r2, err := msgraph.SyncEvents(events, options(l), submit, io.Discard)
	if err != nil {
		t.Fatalf("second SyncEvents: %v", err)
	}
	if r2.Imported != 0 || r2.Skipped != 2 {
		t.Errorf("second sync = %+v, want everything skipped", r2)
	}
	if n := len(l.Actions()); n != 2 {
		t.Errorf("actions = %d after two syncs, want start_day + one booking", n)
	}
}

func TestSyncEventsSkipsUnbookableMeetings(t *testing.T) {
	l, submit := openLedger(t, normalize.Overwrite)
	skipped := meeting("c", "Cancelled", hm(9, 0), hm(10, 0))
	skipped.Skip = "cancelled"
	broken := msgraph.Meeting{ID: "b", Subject: "Broken", Err: errors.New("cannot parse graph time")}

	var out bytes.Buffer
	r, err := msgraph.SyncEvents([]msgraph.Meeting{skipped, broken}, options(l), submit, &out)
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if r.Imported != 0 || r.Skipped != 1 || r.Errors != 1 {
		t.Errorf("result = %+v, want 1 skipped 1 error", r)
	}
	if !strings.Contains(out.String(), "Cancelled (cancelled)") {
		t.Errorf("output = %q", out.String())
	}
	if n := len(l.Actions()); n != 1 {
		t.Errorf("actions = %d, want only start_day", n)
	}
}

func TestSyncEventsSkipsOtherDates(t *testing.T) {
	l, submit := openLedger(t, normalize.Overwrite)
	events := []msgraph.Meeting{
		meeting("ext-2", "Tomorrow", hm(33, 0), hm(34, 0)),
	}
	r, err := msgraph.SyncEvents(events, options(l), submit, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if r.Imported != 0 || r.Skipped != 1 {
		t.Errorf("result = %+v, want skipped", r)
	}
}

func TestSyncEventsDryRun(t *testing.T) {
	l, _ := openLedger(t, normalize.Overwrite)
	events := []msgraph.Meeting{
		meeting("ext-dry", "Dry Run Event", hm(9, 0), hm(10, 0)),
	}
	opts := options(l)
	opts.DryRun = true

	submit := func(model.Action) error {
		t.Fatal("submit called in dry-run")
		return nil
	}
	result, err := msgraph.SyncEvents(events, opts, submit, io.Discard)
	if err != nil {
		t.Fatalf("SyncEvents dry-run: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("dry-run Imported = %d, want 1", result.Imported)
	}
	if n := len(l.Actions()); n != 1 {
		t.Errorf("dry-run wrote %d actions, want only start_day", n)
	}
}

func TestSyncEventsCountsRejectedBookings(t *testing.T) {
	l, submit := openLedger(t, normalize.Reject)
	if _, err := l.Submit(model.NewBookFixed(
		model.NewInterval(day.Add(9*time.Hour), day.Add(10*time.Hour)),
		model.IssueRef{ID: "ABC-1"})); err != nil {
		t.Fatal(err)
	}

	events := []msgraph.Meeting{
		meeting("ext-1", "Clashing", hm(9, 30), hm(10, 30)),
		meeting("ext-2", "Fine", hm(11, 0), hm(11, 30)),
	}
	r, err := msgraph.SyncEvents(events, options(l), submit, io.Discard)
	if err != nil {
		t.Fatalf("SyncEvents: %v", err)
	}
	if r.Errors != 1 || r.Imported != 1 {
		t.Errorf("result = %+v, want 1 error 1 imported", r)
	}
}

func TestSyncEventsAbortsOnStorageError(t *testing.T) {
	submit := func(model.Action) error {
		return apperr.New(apperr.CodeStorageIO, "disk full")
	}
	events := []msgraph.Meeting{
		meeting("ext-1", "A", hm(9, 0), hm(10, 0)),
		meeting("ext-2", "B", hm(11, 0), hm(12, 0)),
	}
	opts := msgraph.SyncOptions{Date: day, Issue: "MEETING"}
	_, err := msgraph.SyncEvents(events, opts, submit, io.Discard)
	if !errors.Is(err, apperr.ErrStorageIO) {
		t.Fatalf("SyncEvents error = %v, want StorageIO", err)
	}
}
