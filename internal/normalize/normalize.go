// Package normalize turns a day's action log into ordered, non-overlapping
// booking records.
//
// Normalize is pure: it sorts a copy of the actions, replays them through an
// interruption stack and merges fixed bookings. Running it twice over the
// same actions yields identical records and inconsistencies, which is what
// makes the action log alone sufficient for crash recovery.
package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/stack"
)

// ConflictPolicy selects how a fixed booking treats records it overlaps.
type ConflictPolicy string

const (
	// Overwrite replaces the overlapped span of existing records.
	Overwrite ConflictPolicy = "overwrite"
	// Reject fails with OverlapConflict.
	Reject ConflictPolicy = "reject"
)

// ParsePolicy parses a policy name; the empty string means Overwrite.
func ParsePolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case "", Overwrite:
		return Overwrite, nil
	case Reject:
		return Reject, nil
	}
	return "", fmt.Errorf("unknown overlap policy %q (want %q or %q)", s, Overwrite, Reject)
}

// Phase is the state of the day's state machine.
type Phase string

const (
	Idle    Phase = "idle"
	DayOpen Phase = "day_open"
	Working Phase = "working"
)

// Options tunes a normalization run.
type Options struct {
	Policy ConflictPolicy
	// Finalize closes a day that has no end_day at its latest action.
	Finalize bool
	// AsOf resolves default-duration interruptions of an open day up to this
	// instant without closing anything.
	AsOf time.Time
	// Watermark is the end of the latest finalized record; non-fixed actions
	// before it are rejected.
	Watermark time.Time
}

// OpenTask is the task still running at the end of the log.
type OpenTask struct {
	Issue    model.IssueRef
	Kind     stack.Kind
	Since    time.Time
	Deadline time.Time
}

// Result is the outcome of a normalization run.
type Result struct {
	Records         []model.BookingRecord
	Inconsistencies []Inconsistency
	Phase           Phase
	Active          *OpenTask
	Suspended       []stack.Entry
	DayStart        time.Time
	DayEnd          time.Time
	Closed          bool
	// Fixed holds the spans of all fixed bookings, in submission order.
	Fixed []model.Interval
}

// WithOpen returns the records plus the active task's span up to now, for
// provisional summaries of a day in progress. Fixed bookings win over the
// running task, so the open span is cut around them.
func (r Result) WithOpen(now time.Time) []model.BookingRecord {
	out := append([]model.BookingRecord(nil), r.Records...)
	if r.Active != nil && now.After(r.Active.Since) {
		end := now
		if r.Active.Deadline.After(r.Active.Since) && r.Active.Deadline.Before(end) {
			end = r.Active.Deadline
		}
		open := []model.Interval{model.NewInterval(r.Active.Since, end)}
		for _, f := range r.Fixed {
			var rest []model.Interval
			for _, span := range open {
				rest = append(rest, span.Subtract(f)...)
			}
			open = rest
		}
		for _, span := range open {
			out = append(out, model.BookingRecord{
				Start:   span.Start,
				End:     span.End,
				Issue:   r.Active.Issue.ID,
				Comment: r.Active.Issue.Comment,
			})
		}
	}
	model.SortRecords(out)
	return out
}

// AdmitFixed checks a fixed booking submitted while a task is running. The
// running task claims everything from Since until it stops, so under Reject
// any booking ending after Since conflicts with it.
func (r Result) AdmitFixed(a model.Action, policy ConflictPolicy) error {
	if policy != Reject || r.Active == nil || !a.IsFixed() {
		return nil
	}
	if span := a.Span(); span.End.After(r.Active.Since) {
		return apperr.New(apperr.CodeOverlapConflict,
			"fixed booking %s %s overlaps %s running since %s",
			a.Issue, span, r.Active.Issue.ID, r.Active.Since.Format("15:04"))
	}
	return nil
}

// Normalize replays actions and returns the day's booking records.
func Normalize(actions []model.Action, opts Options) (Result, error) {
	if opts.Policy == "" {
		opts.Policy = Overwrite
	}

	sorted := append([]model.Action(nil), actions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	m := machine{stack: stack.New(), phase: Idle}
	for _, a := range sorted {
		if a.IsFixed() {
			continue
		}
		if !opts.Watermark.IsZero() && a.At.Before(opts.Watermark) {
			return Result{}, apperr.New(apperr.CodeOutOfOrderAction,
				"%s at %s precedes the finalized booking ending at %s",
				a.Kind, a.At.Format(time.DateTime), opts.Watermark.Format(time.DateTime))
		}
		if err := m.apply(a); err != nil {
			return Result{}, err
		}
		m.last = a.At
	}

	if m.phase != Idle {
		switch {
		case opts.Finalize:
			if err := m.finalize(); err != nil {
				return Result{}, err
			}
		case !opts.AsOf.IsZero() && opts.AsOf.After(m.last):
			m.records = append(m.records, m.stack.Expire(opts.AsOf)...)
		}
	}

	res := Result{
		Phase:    m.phase,
		DayStart: m.dayStart,
		DayEnd:   m.dayEnd,
		Closed:   m.closed,
	}
	if active, ok := m.stack.Active(); ok {
		res.Active = &OpenTask{Issue: active.Issue, Kind: active.Kind, Since: active.Since, Deadline: active.Deadline}
		res.Phase = Working
	} else if m.phase == Working {
		res.Phase = DayOpen
	}
	res.Suspended = m.stack.Suspended()

	records := make([]model.BookingRecord, 0, len(m.records))
	for _, r := range m.records {
		if r.Duration() <= 0 {
			m.warn(Inconsistency{Kind: ZeroDuration, From: r.Start, To: r.End, Issue: r.Issue})
			continue
		}
		records = append(records, r)
	}
	model.SortRecords(records)

	// Fixed bookings merge in submission order so later corrections win.
	for _, a := range actions {
		if !a.IsFixed() {
			continue
		}
		var err error
		records, err = m.mergeFixed(records, a, opts.Policy)
		if err != nil {
			return Result{}, err
		}
		res.Fixed = append(res.Fixed, a.Span())
	}

	m.reportGaps(records, res.Active)
	res.Records = records
	res.Inconsistencies = sortInconsistencies(m.warnings)
	return res, nil
}

type machine struct {
	stack    *stack.Stack
	phase    Phase
	records  []model.BookingRecord
	warnings []Inconsistency
	dayStart time.Time
	dayEnd   time.Time
	last     time.Time
	closed   bool
}

func (m *machine) apply(a model.Action) error {
	if m.phase != Idle {
		m.records = append(m.records, m.stack.Expire(a.At)...)
	}

	switch a.Kind {
	case model.StartDay:
		if m.closed {
			return invalid(a, "the day already ended at %s", m.dayEnd.Format(time.TimeOnly))
		}
		if m.phase != Idle {
			return invalid(a, "the day already started at %s", m.dayStart.Format(time.TimeOnly))
		}
		m.dayStart = a.At
		m.phase = DayOpen
		return nil

	case model.EndDay:
		if m.phase == Idle {
			return invalid(a, "no day in progress")
		}
		recs, unresumed, err := m.stack.EndDay(a.At)
		if err != nil {
			return err
		}
		m.records = append(m.records, recs...)
		m.warnUnresumed(unresumed)
		m.dayEnd = a.At
		m.closed = true
		m.phase = Idle
		return nil
	}

	if m.phase == Idle {
		return invalid(a, "no day in progress")
	}

	active, hasActive := m.stack.Active()
	var (
		recs []model.BookingRecord
		err  error
	)
	switch a.Kind {
	case model.StartWork:
		if hasActive && active.Kind == stack.Work && active.Issue == a.IssueRef() {
			return nil
		}
		recs, err = m.stack.Start(a.IssueRef(), a.At)
	case model.StartInterruption:
		recs, err = m.stack.StartInterruption(a.IssueRef(), a.At, a.DefaultDuration())
	case model.EndWork:
		if !hasActive {
			return invalid(a, "no work in progress")
		}
		if active.Kind != stack.Work {
			return invalid(a, "active task %s is an interruption", active.Issue.ID)
		}
		recs, err = m.stack.End(a.At)
	case model.EndInterruption:
		if !hasActive || active.Kind != stack.Interruption {
			return invalid(a, "no interruption in progress")
		}
		recs, err = m.stack.End(a.At)
	default:
		return invalid(a, "unsupported action")
	}
	if err != nil {
		return err
	}
	m.records = append(m.records, recs...)
	if _, ok := m.stack.Active(); ok {
		m.phase = Working
	} else {
		m.phase = DayOpen
	}
	return nil
}

// finalize closes a day without end_day at its latest action, or at the
// deadline of a still running default-duration interruption.
func (m *machine) finalize() error {
	closeAt := m.last
	if active, ok := m.stack.Active(); ok && active.HasDeadline() && active.Deadline.After(closeAt) {
		closeAt = active.Deadline
	}
	recs, unresumed, err := m.stack.EndDay(closeAt)
	if err != nil {
		return err
	}
	m.records = append(m.records, recs...)
	m.warnUnresumed(unresumed)
	m.warn(Inconsistency{Kind: MissingDayEnd, From: m.dayStart, To: closeAt})
	m.dayEnd = closeAt
	m.closed = true
	m.phase = Idle
	return nil
}

func (m *machine) warnUnresumed(entries []stack.Entry) {
	for _, e := range entries {
		m.warn(Inconsistency{Kind: UnresumedInterruption, From: e.Since, To: e.SuspendedAt, Issue: e.Issue.ID})
	}
}

func (m *machine) warn(i Inconsistency) {
	m.warnings = append(m.warnings, i)
}

func (m *machine) mergeFixed(records []model.BookingRecord, a model.Action, policy ConflictPolicy) ([]model.BookingRecord, error) {
	fixed := model.BookingRecord{Start: a.At, End: *a.End, Issue: a.Issue, Comment: a.Comment}
	span := fixed.Interval()

	out := make([]model.BookingRecord, 0, len(records)+2)
	for _, r := range records {
		if !r.Interval().Overlaps(span) {
			out = append(out, r)
			continue
		}
		if policy == Reject {
			return nil, apperr.New(apperr.CodeOverlapConflict,
				"fixed booking %s %s overlaps %s %s",
				fixed.Issue, span, r.Issue, r.Interval())
		}
		cut := r.Interval().Intersect(span)
		m.warn(Inconsistency{Kind: Overlap, From: cut.Start, To: cut.End, Issue: fixed.Issue, Other: r.Issue})
		for _, rest := range r.Interval().Subtract(span) {
			piece := r
			piece.Start, piece.End = rest.Start, rest.End
			out = append(out, piece)
		}
	}
	out = append(out, fixed)
	model.SortRecords(out)
	return out, nil
}

func (m *machine) reportGaps(records []model.BookingRecord, active *OpenTask) {
	if m.dayStart.IsZero() {
		return
	}
	cursor := m.dayStart
	for _, r := range records {
		if r.Start.After(cursor) {
			m.warn(Inconsistency{Kind: Gap, From: cursor, To: r.Start})
		}
		if r.End.After(cursor) {
			cursor = r.End
		}
	}
	switch {
	case active != nil:
		if active.Since.After(cursor) {
			m.warn(Inconsistency{Kind: Gap, From: cursor, To: active.Since})
		}
	case m.closed:
		if m.dayEnd.After(cursor) {
			m.warn(Inconsistency{Kind: Gap, From: cursor, To: m.dayEnd})
		}
	}
}

func invalid(a model.Action, format string, args ...any) error {
	return apperr.New(apperr.CodeInvalidTransition, "%s at %s: %s",
		a.Kind, a.At.Format(time.TimeOnly), fmt.Sprintf(format, args...))
}
