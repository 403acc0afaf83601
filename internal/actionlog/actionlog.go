// Package actionlog holds the append-only record of one day's raw actions.
package actionlog

import (
	"iter"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
)

// Log stores actions in the order received. It is not safe for concurrent
// mutation; the ledger is its single writer.
type Log struct {
	actions []model.Action
}

// New returns a log seeded with previously persisted actions. The slice is copied.
func New(actions []model.Action) *Log {
	return &Log{actions: append([]model.Action(nil), actions...)}
}

// Append adds an action. Non-fixed actions must not precede the last
// non-fixed action; fixed bookings are manual corrections and may be
// inserted at any time.
func (l *Log) Append(a model.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if !a.IsFixed() {
		if last, ok := l.lastTimed(); ok && a.At.Before(last) {
			return apperr.New(apperr.CodeOutOfOrderAction,
				"%s at %s precedes the last action at %s",
				a.Kind, a.At.Format(time.TimeOnly), last.Format(time.TimeOnly))
		}
	}
	l.actions = append(l.actions, a)
	return nil
}

// Retract removes and returns the most recent action.
func (l *Log) Retract() (model.Action, error) {
	if len(l.actions) == 0 {
		return model.Action{}, apperr.New(apperr.CodeNothingToRetract, "no action logged for the day")
	}
	last := l.actions[len(l.actions)-1]
	l.actions = l.actions[:len(l.actions)-1]
	return last, nil
}

// ActionsSince returns the actions with At >= since, in stored order. The
// sequence works on a snapshot and can be ranged over repeatedly.
func (l *Log) ActionsSince(since time.Time) iter.Seq[model.Action] {
	snapshot := l.All()
	return func(yield func(model.Action) bool) {
		for _, a := range snapshot {
			if a.At.Before(since) {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

// All returns a copy of every action in stored order.
func (l *Log) All() []model.Action {
	return append([]model.Action(nil), l.actions...)
}

// Last returns the most recent action.
func (l *Log) Last() (model.Action, bool) {
	if len(l.actions) == 0 {
		return model.Action{}, false
	}
	return l.actions[len(l.actions)-1], true
}

// Len returns the number of logged actions.
func (l *Log) Len() int {
	return len(l.actions)
}

func (l *Log) lastTimed() (time.Time, bool) {
	for i := len(l.actions) - 1; i >= 0; i-- {
		if !l.actions[i].IsFixed() {
			return l.actions[i].At, true
		}
	}
	return time.Time{}, false
}
