package model

import (
	"fmt"
	"time"
)

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval builds an interval from two instants.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Duration returns End - Start, or zero for an empty interval.
func (i Interval) Duration() time.Duration {
	if i.IsEmpty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// IsEmpty reports whether the interval covers no time.
func (i Interval) IsEmpty() bool {
	return !i.End.After(i.Start)
}

// Contains reports whether t lies within [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Equal reports whether both intervals cover the same instants.
func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

// Overlaps reports whether the two intervals share any time.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Adjacent reports whether one interval ends exactly where the other starts.
func (i Interval) Adjacent(o Interval) bool {
	return i.End.Equal(o.Start) || o.End.Equal(i.Start)
}

// Intersect returns the common span; the result is empty when they do not overlap.
func (i Interval) Intersect(o Interval) Interval {
	start := i.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := i.End
	if o.End.Before(end) {
		end = o.End
	}
	if end.Before(start) {
		end = start
	}
	return Interval{Start: start, End: end}
}

// Subtract removes o from i and returns the non-empty remainders in order.
func (i Interval) Subtract(o Interval) []Interval {
	if !i.Overlaps(o) {
		if i.IsEmpty() {
			return nil
		}
		return []Interval{i}
	}
	var out []Interval
	if before := (Interval{Start: i.Start, End: o.Start}); !before.IsEmpty() {
		out = append(out, before)
	}
	if after := (Interval{Start: o.End, End: i.End}); !after.IsEmpty() {
		out = append(out, after)
	}
	return out
}

// String renders the interval as "15:04–15:04" (with dates when they differ).
func (i Interval) String() string {
	if i.Start.YearDay() != i.End.YearDay() || i.Start.Year() != i.End.Year() {
		return fmt.Sprintf("%s–%s", i.Start.Format("2006-01-02 15:04"), i.End.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("%s–%s", i.Start.Format("15:04"), i.End.Format("15:04"))
}
