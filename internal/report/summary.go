package report

import (
	"sort"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// GroupBy selects how Totals aggregates records.
type GroupBy int

const (
	GroupByIssue GroupBy = iota
	GroupByNone
)

// Group is the accumulated duration of one issue.
type Group struct {
	Issue string
	Total time.Duration
}

// Totals sums record durations per group, sorted by issue. GroupByNone
// returns a single group with an empty issue.
func Totals(records []model.BookingRecord, by GroupBy) []Group {
	if by == GroupByNone {
		return []Group{{Total: model.TotalDuration(records)}}
	}
	sums := map[string]time.Duration{}
	for _, r := range records {
		sums[r.Issue] += r.Duration()
	}
	groups := make([]Group, 0, len(sums))
	for issue, total := range sums {
		groups = append(groups, Group{Issue: issue, Total: total})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Issue < groups[j].Issue })
	return groups
}

// BreakInfo describes worked time and the unbooked gaps between bookings.
type BreakInfo struct {
	Work   time.Duration
	Break  time.Duration
	Breaks []model.Interval
}

// Breaks returns work time, break time and the break intervals of records.
// Gaps are only counted between bookings of the same day.
func Breaks(records []model.BookingRecord) BreakInfo {
	sorted := append([]model.BookingRecord(nil), records...)
	model.SortRecords(sorted)

	var info BreakInfo
	for i, r := range sorted {
		info.Work += r.Duration()
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if !timecalc.SameDay(prev.Start, r.Start) {
			continue
		}
		gap := model.NewInterval(prev.End, r.Start)
		if gap.IsEmpty() {
			continue
		}
		info.Break += gap.Duration()
		info.Breaks = append(info.Breaks, gap)
	}
	return info
}

// Scope names the period a Summary covers.
type Scope string

const (
	ScopeDay  Scope = "day"
	ScopeWeek Scope = "week"
)

// Summary aggregates the records of a day or a week.
type Summary struct {
	Scope  Scope
	Label  string
	Total  time.Duration
	Break  time.Duration
	Breaks []model.Interval
	Groups []Group
}

// Summarize builds the Summary of records.
func Summarize(scope Scope, label string, records []model.BookingRecord) Summary {
	b := Breaks(records)
	return Summary{
		Scope:  scope,
		Label:  label,
		Total:  b.Work,
		Break:  b.Break,
		Breaks: b.Breaks,
		Groups: Totals(records, GroupByIssue),
	}
}
