package actionlog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/actionlog"
	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
)

func hm(h, m int) time.Time {
	return time.Date(2026, 2, 27, h, m, 0, 0, time.UTC)
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	log := actionlog.New(nil)
	if err := log.Append(model.NewStartDay(hm(8, 0))); err != nil {
		t.Fatal(err)
	}
	if err := log.Append(model.NewStartWork(hm(9, 0), model.IssueRef{ID: "ISSUE-1"})); err != nil {
		t.Fatal(err)
	}

	err := log.Append(model.NewStartInterruption(hm(8, 30), model.IssueRef{ID: "MEETING"}, 0))
	if !errors.Is(err, apperr.ErrOutOfOrderAction) {
		t.Fatalf("Append earlier action: err = %v, want OutOfOrderAction", err)
	}
	if log.Len() != 2 {
		t.Errorf("Len after rejected append = %d, want 2", log.Len())
	}

	// Same instant is a valid handoff.
	if err := log.Append(model.NewEndWork(hm(9, 0))); err != nil {
		t.Errorf("Append same-instant action: %v", err)
	}
}

func TestAppendAllowsFixedOutOfOrder(t *testing.T) {
	log := actionlog.New([]model.Action{model.NewStartDay(hm(8, 0)), model.NewEndWork(hm(12, 0))})

	fixed := model.NewBookFixed(model.NewInterval(hm(8, 30), hm(9, 0)), model.IssueRef{ID: "ISSUE-2"})
	if err := log.Append(fixed); err != nil {
		t.Fatalf("Append fixed booking: %v", err)
	}

	// The fixed booking does not move the ordering watermark.
	if err := log.Append(model.NewEndDay(hm(12, 30))); err != nil {
		t.Errorf("Append after fixed booking: %v", err)
	}
	if err := log.Append(model.NewStartWork(hm(11, 0), model.IssueRef{ID: "X-1"})); !errors.Is(err, apperr.ErrOutOfOrderAction) {
		t.Errorf("Append earlier than last timed action: err = %v", err)
	}
}

func TestAppendValidates(t *testing.T) {
	log := actionlog.New(nil)
	err := log.Append(model.NewBookFixed(model.NewInterval(hm(9, 0), hm(9, 0)), model.IssueRef{ID: "A-1"}))
	if !errors.Is(err, apperr.ErrZeroDuration) {
		t.Errorf("err = %v, want ZeroDuration", err)
	}
}

func TestRetract(t *testing.T) {
	log := actionlog.New(nil)
	if _, err := log.Retract(); !errors.Is(err, apperr.ErrNothingToRetract) {
		t.Fatalf("Retract on empty log: err = %v, want NothingToRetract", err)
	}

	_ = log.Append(model.NewStartDay(hm(8, 0)))
	_ = log.Append(model.NewStartWork(hm(8, 5), model.IssueRef{ID: "ISSUE-1"}))

	got, err := log.Retract()
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != model.StartWork {
		t.Errorf("Retract returned %s, want start_work", got.Kind)
	}
	if last, _ := log.Last(); last.Kind != model.StartDay {
		t.Errorf("Last after retract = %s, want start_day", last.Kind)
	}
}

func TestActionsSinceIsRestartable(t *testing.T) {
	log := actionlog.New(nil)
	_ = log.Append(model.NewStartDay(hm(8, 0)))
	_ = log.Append(model.NewStartWork(hm(8, 5), model.IssueRef{ID: "ISSUE-1"}))
	_ = log.Append(model.NewStartInterruption(hm(9, 0), model.IssueRef{ID: "MEETING"}, 0))

	seq := log.ActionsSince(hm(8, 5))

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if got := count(); got != 2 {
		t.Errorf("first pass = %d actions, want 2", got)
	}
	// Appending after the sequence was created does not affect the snapshot.
	_ = log.Append(model.NewEndInterruption(hm(9, 30)))
	if got := count(); got != 2 {
		t.Errorf("second pass = %d actions, want 2", got)
	}

	for a := range log.ActionsSince(hm(9, 0)) {
		if a.Kind != model.StartInterruption {
			t.Errorf("early break: first action = %s", a.Kind)
		}
		break
	}
}

func TestAllReturnsCopy(t *testing.T) {
	log := actionlog.New([]model.Action{model.NewStartDay(hm(8, 0))})
	all := log.All()
	all[0].Kind = model.EndDay
	if last, _ := log.Last(); last.Kind != model.StartDay {
		t.Error("mutating All() result changed the log")
	}
}
