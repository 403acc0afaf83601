// Package stack tracks the active task and the LIFO stack of tasks suspended
// by interruptions.
package stack

import (
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
)

// Kind distinguishes regular work from interruptions.
type Kind int

const (
	Work Kind = iota
	Interruption
)

func (k Kind) String() string {
	if k == Interruption {
		return "interruption"
	}
	return "work"
}

// Task is the active task. Since is the start of its currently open span.
// Deadline is set for interruptions started with a default duration.
type Task struct {
	Issue    model.IssueRef
	Kind     Kind
	Since    time.Time
	Deadline time.Time
}

// HasDeadline reports whether the task ends on its own when not ended explicitly.
func (t Task) HasDeadline() bool {
	return !t.Deadline.IsZero()
}

// Entry is a suspended task. Since is the start of the span that was closed
// when it was suspended at SuspendedAt.
type Entry struct {
	Task
	SuspendedAt time.Time
}

// Stack holds at most one active task and the suspended entries in push order.
type Stack struct {
	active    *Task
	suspended []Entry
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{}
}

// Start suspends the active task, if any, and makes issue the active task.
// The suspended task's span up to at is returned as a record.
func (s *Stack) Start(issue model.IssueRef, at time.Time) ([]model.BookingRecord, error) {
	return s.start(Task{Issue: issue, Kind: Work, Since: at}, at)
}

// StartInterruption is Start for an interruption. A positive defaultDuration
// sets a deadline used when no explicit end arrives.
func (s *Stack) StartInterruption(issue model.IssueRef, at time.Time, defaultDuration time.Duration) ([]model.BookingRecord, error) {
	task := Task{Issue: issue, Kind: Interruption, Since: at}
	if defaultDuration > 0 {
		task.Deadline = at.Add(defaultDuration)
	}
	return s.start(task, at)
}

func (s *Stack) start(next Task, at time.Time) ([]model.BookingRecord, error) {
	var out []model.BookingRecord
	if s.active != nil {
		if at.Before(s.active.Since) {
			return nil, s.beforeActive(at)
		}
		out = append(out, record(*s.active, at))
		s.suspended = append(s.suspended, Entry{Task: *s.active, SuspendedAt: at})
	}
	s.active = &next
	return out, nil
}

// End closes the active task at at and resumes the most recently suspended
// entry, whose open span starts at at.
func (s *Stack) End(at time.Time) ([]model.BookingRecord, error) {
	if s.active == nil {
		return nil, apperr.New(apperr.CodeInvalidTransition, "no active task to end at %s", at.Format(time.TimeOnly))
	}
	if at.Before(s.active.Since) {
		return nil, s.beforeActive(at)
	}
	out := []model.BookingRecord{record(*s.active, at)}
	s.active = nil
	if n := len(s.suspended); n > 0 {
		resumed := s.suspended[n-1].Task
		s.suspended = s.suspended[:n-1]
		resumed.Since = at
		s.active = &resumed
	}
	return out, nil
}

// Expire ends every active interruption whose deadline is not after at,
// each at its own deadline.
func (s *Stack) Expire(at time.Time) []model.BookingRecord {
	var out []model.BookingRecord
	for s.active != nil && s.active.Kind == Interruption && s.active.HasDeadline() && !s.active.Deadline.After(at) {
		end := s.active.Deadline
		if end.Before(s.active.Since) {
			end = s.active.Since
		}
		recs, _ := s.End(end)
		out = append(out, recs...)
	}
	return out
}

// EndDay resolves expired interruptions, closes the active task at at and
// empties the stack. The discarded entries are returned: each one already
// contributed its record ending at its own suspension instant.
func (s *Stack) EndDay(at time.Time) ([]model.BookingRecord, []Entry, error) {
	if s.active != nil && at.Before(s.active.Since) {
		return nil, nil, s.beforeActive(at)
	}
	out := s.Expire(at)
	if s.active != nil {
		out = append(out, record(*s.active, at))
		s.active = nil
	}
	unresumed := s.suspended
	s.suspended = nil
	return out, unresumed, nil
}

// Active returns the active task.
func (s *Stack) Active() (Task, bool) {
	if s.active == nil {
		return Task{}, false
	}
	return *s.active, true
}

// Depth returns the number of suspended entries.
func (s *Stack) Depth() int {
	return len(s.suspended)
}

// Suspended returns the suspended entries, most recently suspended last.
func (s *Stack) Suspended() []Entry {
	return append([]Entry(nil), s.suspended...)
}

func (s *Stack) beforeActive(at time.Time) error {
	return apperr.New(apperr.CodeInvalidInstant, "%s precedes the start of active task %s at %s",
		at.Format(time.TimeOnly), s.active.Issue.ID, s.active.Since.Format(time.TimeOnly))
}

func record(t Task, end time.Time) model.BookingRecord {
	return model.BookingRecord{Start: t.Since, End: end, Issue: t.Issue.ID, Comment: t.Issue.Comment}
}
