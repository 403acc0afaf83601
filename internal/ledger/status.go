package ledger

import (
	"fmt"
	"io"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/normalize"
	"github.com/Tiliavir/booking-ledger/internal/report"
	"github.com/Tiliavir/booking-ledger/internal/stack"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// Status is the user-facing state of the open day at an instant.
type Status struct {
	Phase   normalize.Phase
	Date    string
	Issue   model.IssueRef
	Kind    stack.Kind
	Since   time.Time
	Elapsed time.Duration
	// Depth is the number of suspended tasks below the active one.
	Depth int
	// Booked is the day's total including the running task.
	Booked time.Duration
}

// Running reports whether a task is active.
func (s Status) Running() bool {
	return s.Phase == normalize.Working
}

// CurrentState evaluates the open day as of now. Default-duration
// interruptions whose deadline passed are treated as ended.
func (l *Ledger) CurrentState(now time.Time) (Status, error) {
	if l.date == "" {
		return Status{Phase: normalize.Idle}, nil
	}
	now = now.In(l.loc)
	res, err := l.normalize(l.actions.All(), normalize.Options{AsOf: now})
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Phase:  res.Phase,
		Date:   l.date,
		Depth:  len(res.Suspended),
		Booked: model.TotalDuration(res.WithOpen(now)),
	}
	if res.Active != nil {
		st.Issue = res.Active.Issue
		st.Kind = res.Active.Kind
		st.Since = res.Active.Since
		if now.After(res.Active.Since) {
			st.Elapsed = now.Sub(res.Active.Since)
		}
	}
	return st, nil
}

// DaySummary aggregates the day containing now, including the running task.
func (l *Ledger) DaySummary(now time.Time) (report.Summary, error) {
	now = now.In(l.loc)
	records, err := l.reader.Day(now)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(report.ScopeDay, timecalc.DateKey(now), records), nil
}

// WeekSummary aggregates the ISO week containing now, including the open day.
func (l *Ledger) WeekSummary(now time.Time) (report.Summary, error) {
	now = now.In(l.loc)
	records, err := l.reader.Week(now, true)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(report.ScopeWeek, timecalc.ISOWeekLabel(now), records), nil
}

// RecentIssues lists the issues booked most recently as of now, at most limit.
func (l *Ledger) RecentIssues(now time.Time, limit int) ([]report.RecentIssue, error) {
	return l.reader.Recent(now.In(l.loc), limit)
}

// ExportOptions post-processes records before rendering.
type ExportOptions struct {
	// Resolution rounds records when positive.
	Resolution time.Duration
	// Combine merges bookings of the same issue and comment.
	Combine bool
}

// Export renders the records of scope in format f.
func (l *Ledger) Export(w io.Writer, scope report.Scope, f report.Format, now time.Time, opts ExportOptions) error {
	now = now.In(l.loc)
	var (
		records []model.BookingRecord
		err     error
	)
	switch scope {
	case report.ScopeDay:
		records, err = l.reader.Day(now)
	case report.ScopeWeek:
		records, err = l.reader.Week(now, true)
	default:
		return fmt.Errorf("unknown export scope %q", scope)
	}
	if err != nil {
		return err
	}
	if opts.Combine {
		records = report.Combine(records)
	}
	if opts.Resolution > 0 {
		records = report.Round(records, opts.Resolution)
	}
	return report.Render(w, f, records)
}
