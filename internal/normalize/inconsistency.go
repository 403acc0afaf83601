package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

// InconsistencyKind names a consistency warning.
type InconsistencyKind string

const (
	// Gap is an unbooked span inside the day; a legitimate break.
	Gap InconsistencyKind = "gap"
	// Overlap is a span of Other overwritten by the fixed booking Issue.
	Overlap InconsistencyKind = "overlap"
	// UnresumedInterruption is a task still suspended at day end; it was
	// booked only up to its suspension instant.
	UnresumedInterruption InconsistencyKind = "unresumed_interruption"
	// ZeroDuration is a record of no length that was dropped.
	ZeroDuration InconsistencyKind = "zero_duration"
	// MissingDayEnd marks a day closed implicitly at its latest action.
	MissingDayEnd InconsistencyKind = "missing_day_end"
)

// Inconsistency is a warning recorded alongside successful output.
type Inconsistency struct {
	Kind  InconsistencyKind `json:"kind"`
	From  time.Time         `json:"from"`
	To    time.Time         `json:"to"`
	Issue string            `json:"issue,omitempty"`
	Other string            `json:"other,omitempty"`
}

// Span returns [From, To).
func (i Inconsistency) Span() model.Interval {
	return model.NewInterval(i.From, i.To)
}

func (i Inconsistency) String() string {
	switch i.Kind {
	case Gap:
		return fmt.Sprintf("gap %s", i.Span())
	case Overlap:
		return fmt.Sprintf("overlap %s: %s overwrites %s", i.Span(), i.Issue, i.Other)
	case UnresumedInterruption:
		return fmt.Sprintf("unresumed interruption: %s suspended at %s was never resumed", i.Issue, i.To.Format("15:04"))
	case ZeroDuration:
		return fmt.Sprintf("zero-duration booking of %s at %s dropped", i.Issue, i.From.Format("15:04"))
	case MissingDayEnd:
		return fmt.Sprintf("missing day end: day closed at %s", i.To.Format("15:04"))
	}
	return fmt.Sprintf("%s %s", i.Kind, i.Span())
}

func sortInconsistencies(in []Inconsistency) []Inconsistency {
	out := append([]Inconsistency(nil), in...)
	sort.SliceStable(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if !x.From.Equal(y.From) {
			return x.From.Before(y.From)
		}
		if x.Kind != y.Kind {
			return x.Kind < y.Kind
		}
		if !x.To.Equal(y.To) {
			return x.To.Before(y.To)
		}
		return x.Issue < y.Issue
	})
	return out
}

// Count returns how many inconsistencies of kind the result carries.
func (r Result) Count(kind InconsistencyKind) int {
	n := 0
	for _, i := range r.Inconsistencies {
		if i.Kind == kind {
			n++
		}
	}
	return n
}
