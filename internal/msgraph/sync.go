package msgraph

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Errors   int
}

// SubmitFunc hands a book_fixed action to the ledger.
type SubmitFunc func(model.Action) error

// SyncOptions configures a sync run.
type SyncOptions struct {
	// Date is the open day; meetings on other dates are skipped.
	Date time.Time
	// Issue is booked for every imported meeting.
	Issue string
	// Existing holds the day's actions; meetings already booked are skipped.
	Existing []model.Action
	DryRun   bool
}

// ToAction books m on issue, with the meeting subject as comment.
func ToAction(m Meeting, issue string) model.Action {
	return model.NewBookFixed(m.Span, model.IssueRef{ID: issue, Comment: m.Subject})
}

// alreadyBooked reports whether actions hold a fixed booking of the same
// span and issue.
func alreadyBooked(actions []model.Action, a model.Action) bool {
	for _, e := range actions {
		if e.IsFixed() && model.NormalizeIssue(e.Issue) == model.NormalizeIssue(a.Issue) && e.Span().Equal(a.Span()) {
			return true
		}
	}
	return false
}

// SyncEvents books the meetings of the open day through submit and writes
// one progress line per meeting to out. Rejected bookings are counted; a
// storage failure aborts the run.
func SyncEvents(meetings []Meeting, opts SyncOptions, submit SubmitFunc, out io.Writer) (SyncResult, error) {
	var result SyncResult
	date := timecalc.DateKey(opts.Date)
	booked := append([]model.Action(nil), opts.Existing...)

	for _, m := range meetings {
		switch {
		case m.Skip != "":
			fmt.Fprintf(out, "  – Skipped:  %s (%s)\n", m.Subject, m.Skip)
			result.Skipped++
			continue
		case m.Err != nil:
			fmt.Fprintf(out, "  ! Error:    %v\n", m.Err)
			result.Errors++
			continue
		case timecalc.DateKey(m.Span.Start) != date:
			fmt.Fprintf(out, "  – Skipped:  %s (not on %s)\n", m.Subject, date)
			result.Skipped++
			continue
		}

		action := ToAction(m, opts.Issue)
		if alreadyBooked(booked, action) {
			fmt.Fprintf(out, "  – Skipped:  %s (already booked)\n", m.Subject)
			result.Skipped++
			continue
		}

		if !opts.DryRun {
			if err := submit(action); err != nil {
				var appErr *apperr.Error
				if errors.As(err, &appErr) && appErr.Kind() == apperr.KindStorage {
					return result, err
				}
				fmt.Fprintf(out, "  ! Error booking %q: %v\n", m.Subject, err)
				result.Errors++
				continue
			}
		}
		booked = append(booked, action)
		fmt.Fprintf(out, "  ✓ Imported: %s %s (%s)\n", m.Span, m.Subject,
			timecalc.FormatDuration(m.Span.Duration()))
		result.Imported++
	}

	return result, nil
}
