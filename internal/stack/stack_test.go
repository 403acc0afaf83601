package stack_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/stack"
)

func hm(h, m int) time.Time {
	return time.Date(2026, 2, 27, h, m, 0, 0, time.UTC)
}

func issue(id string) model.IssueRef {
	return model.IssueRef{ID: id}
}

func checkRecord(t *testing.T, got model.BookingRecord, start, end time.Time, id string) {
	t.Helper()
	if !got.Start.Equal(start) || !got.End.Equal(end) || got.Issue != id {
		t.Errorf("record = %s %s, want %s %s",
			got.Interval(), got.Issue, model.NewInterval(start, end), id)
	}
}

func TestInterruptionResumesSuspendedTask(t *testing.T) {
	s := stack.New()
	if recs, err := s.Start(issue("A"), hm(9, 0)); err != nil || len(recs) != 0 {
		t.Fatalf("Start A: recs=%v err=%v", recs, err)
	}

	recs, err := s.StartInterruption(issue("B"), hm(10, 0), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("StartInterruption: got %d records, want 1", len(recs))
	}
	checkRecord(t, recs[0], hm(9, 0), hm(10, 0), "A")
	if s.Depth() != 1 {
		t.Errorf("Depth = %d, want 1", s.Depth())
	}

	recs, err = s.End(hm(10, 30))
	if err != nil {
		t.Fatal(err)
	}
	checkRecord(t, recs[0], hm(10, 0), hm(10, 30), "B")

	active, ok := s.Active()
	if !ok || active.Issue.ID != "A" || !active.Since.Equal(hm(10, 30)) {
		t.Fatalf("Active after End = %+v, want A since 10:30", active)
	}

	recs, err = s.End(hm(12, 0))
	if err != nil {
		t.Fatal(err)
	}
	checkRecord(t, recs[0], hm(10, 30), hm(12, 0), "A")
	if _, ok := s.Active(); ok {
		t.Error("expected no active task after stack drained")
	}
}

func TestNestedInterruptionsAreLIFO(t *testing.T) {
	s := stack.New()
	_, _ = s.Start(issue("A"), hm(9, 0))
	_, _ = s.StartInterruption(issue("B"), hm(9, 30), 0)
	_, _ = s.StartInterruption(issue("C"), hm(9, 45), 0)

	if s.Depth() != 2 {
		t.Fatalf("Depth = %d, want 2", s.Depth())
	}
	_, _ = s.End(hm(10, 0))
	if active, _ := s.Active(); active.Issue.ID != "B" {
		t.Errorf("first resume = %s, want B", active.Issue.ID)
	}
	_, _ = s.End(hm(10, 15))
	if active, _ := s.Active(); active.Issue.ID != "A" {
		t.Errorf("second resume = %s, want A", active.Issue.ID)
	}
}

func TestStartBeforeActiveFails(t *testing.T) {
	s := stack.New()
	_, _ = s.Start(issue("A"), hm(9, 0))

	_, err := s.Start(issue("B"), hm(8, 0))
	if !errors.Is(err, apperr.ErrInvalidInstant) {
		t.Fatalf("err = %v, want InvalidInstant", err)
	}
	if active, _ := s.Active(); active.Issue.ID != "A" || s.Depth() != 0 {
		t.Error("failed Start changed the stack")
	}
}

func TestEndWithoutActiveFails(t *testing.T) {
	s := stack.New()
	if _, err := s.End(hm(9, 0)); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("err = %v, want InvalidTransition", err)
	}
}

func TestExpireUsesDeadline(t *testing.T) {
	s := stack.New()
	_, _ = s.Start(issue("A"), hm(9, 0))
	_, _ = s.StartInterruption(issue("STANDUP"), hm(9, 30), 15*time.Minute)

	if recs := s.Expire(hm(9, 40)); len(recs) != 0 {
		t.Fatalf("Expire before deadline returned %v", recs)
	}
	recs := s.Expire(hm(11, 0))
	if len(recs) != 1 {
		t.Fatalf("Expire after deadline: %d records, want 1", len(recs))
	}
	checkRecord(t, recs[0], hm(9, 30), hm(9, 45), "STANDUP")
	if active, _ := s.Active(); active.Issue.ID != "A" || !active.Since.Equal(hm(9, 45)) {
		t.Errorf("Active after expiry = %+v, want A since 09:45", active)
	}
}

func TestEndDayReportsUnresumed(t *testing.T) {
	s := stack.New()
	_, _ = s.Start(issue("A"), hm(9, 0))
	_, _ = s.StartInterruption(issue("B"), hm(11, 0), 0)

	recs, unresumed, err := s.EndDay(hm(17, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("EndDay: %d records, want 1", len(recs))
	}
	checkRecord(t, recs[0], hm(11, 0), hm(17, 0), "B")
	if len(unresumed) != 1 || unresumed[0].Issue.ID != "A" || !unresumed[0].SuspendedAt.Equal(hm(11, 0)) {
		t.Errorf("unresumed = %+v, want A suspended at 11:00", unresumed)
	}
	if s.Depth() != 0 {
		t.Error("stack not cleared at day end")
	}
	if _, ok := s.Active(); ok {
		t.Error("active task left after day end")
	}
}
