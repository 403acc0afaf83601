package model

import (
	"sort"
	"time"
)

// BookingRecord is a finalized, non-overlapping span attributed to one issue.
type BookingRecord struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Issue   string    `json:"issue"`
	Comment string    `json:"comment"`
}

// Interval returns the record's span.
func (r BookingRecord) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// Duration returns the length of the record.
func (r BookingRecord) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// SameBooking reports whether two records book the same issue with the same comment.
func (r BookingRecord) SameBooking(o BookingRecord) bool {
	return r.Issue == o.Issue && r.Comment == o.Comment
}

// SortRecords orders records by start, then end, then issue.
func SortRecords(records []BookingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.Issue < b.Issue
	})
}

// TotalDuration sums the durations of all records.
func TotalDuration(records []BookingRecord) time.Duration {
	var total time.Duration
	for _, r := range records {
		total += r.Duration()
	}
	return total
}

// DayFile is the persisted DayLedger: the raw action log is the source of
// truth, Records is a recomputable cache.
type DayFile struct {
	Date    string          `json:"date"`
	Actions []Action        `json:"actions"`
	Records []BookingRecord `json:"records"`
}

// IsEmpty reports whether no day has been started.
func (d DayFile) IsEmpty() bool {
	return d.Date == "" && len(d.Actions) == 0
}

// WeekDay holds the finalized records of one closed day.
type WeekDay struct {
	Date    string          `json:"date"`
	Weekday int             `json:"weekday"`
	Digest  string          `json:"digest"`
	Records []BookingRecord `json:"records"`
}

// WeekFile is the persisted WeekLedger for one ISO week.
type WeekFile struct {
	Week string    `json:"week"`
	Days []WeekDay `json:"days"`
}

// Day returns the finalized day for date, if present.
func (w WeekFile) Day(date string) (WeekDay, bool) {
	for _, d := range w.Days {
		if d.Date == date {
			return d, true
		}
	}
	return WeekDay{}, false
}

// Records returns all records of the week in day order.
func (w WeekFile) Records() []BookingRecord {
	var out []BookingRecord
	for _, d := range w.Days {
		out = append(out, d.Records...)
	}
	return out
}
