// Package ledger is the single entry point for changing booking state.
//
// A Ledger owns the open day (its action log and the records derived from
// it) and persists every accepted action before reporting success. Each
// operation is either fully applied or rejected without any observable
// change: candidate state is computed on copies and swapped in only after
// the files are written.
package ledger

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/actionlog"
	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/normalize"
	"github.com/Tiliavir/booking-ledger/internal/report"
	"github.com/Tiliavir/booking-ledger/internal/storage"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// ErrReadOnly is returned by mutating calls on a ledger opened without the lock.
var ErrReadOnly = errors.New("ledger opened without the writer lock")

// Options configures a Ledger.
type Options struct {
	// Location is the zone in which days are cut. Defaults to time.Local.
	Location *time.Location
	// Policy decides how fixed bookings treat overlapped records.
	Policy normalize.ConflictPolicy
	// Logger receives lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Ledger is the writer of one data directory.
type Ledger struct {
	store  *storage.Store
	lock   *storage.Lock
	loc    *time.Location
	policy normalize.ConflictPolicy
	log    *slog.Logger
	reader *report.Reader

	// Open day; date is empty when none is open.
	date      string
	day       time.Time
	watermark time.Time
	actions   *actionlog.Log
	result    normalize.Result
}

// Open loads the open day from store. With a lock the ledger may write and
// first recovers from an interrupted rotation; with a nil lock it is
// read-only and performs no recovery.
func Open(store *storage.Store, lock *storage.Lock, opts Options) (*Ledger, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Policy == "" {
		opts.Policy = normalize.Overwrite
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if lock != nil {
		store = store.Locked(lock)
	}
	l := &Ledger{
		store:   store,
		lock:    lock,
		loc:     opts.Location,
		policy:  opts.Policy,
		log:     opts.Logger,
		reader:  report.NewReader(store, opts.Policy),
		actions: actionlog.New(nil),
	}

	df, err := store.LoadCurrentDay()
	if err != nil {
		return nil, err
	}
	if df.IsEmpty() {
		return l, nil
	}
	day, err := timecalc.ParseDate(df.Date, l.loc)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeCorruptFile, err, "current day")
	}
	actions := make([]model.Action, len(df.Actions))
	for i, a := range df.Actions {
		actions[i] = a.InLocation(l.loc)
	}
	if err := l.begin(day); err != nil {
		return nil, err
	}
	res, err := l.normalize(actions, normalize.Options{})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeCorruptFile, err, "replaying %s", storage.CurrentDayFile)
	}
	l.actions = actionlog.New(actions)
	l.result = res

	if lock != nil {
		if err := l.recover(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// recover finishes a rotation that was interrupted between writing the
// week file and resetting the current day.
func (l *Ledger) recover() error {
	final, err := l.normalize(l.actions.All(), normalize.Options{Finalize: true})
	if err != nil {
		return err
	}
	wf, err := l.store.WeekFor(l.day)
	if err != nil {
		return err
	}
	entry, rotated := wf.Day(l.date)
	switch {
	case rotated && entry.Digest == storage.Digest(final.Records):
		l.log.Info("recovered rotated day", "date", l.date)
		if err := l.store.ResetCurrentDay(); err != nil {
			return err
		}
		l.clear()
	case rotated:
		l.log.Warn("current day differs from its finalized week entry; leaving it untouched",
			"date", l.date, "week", wf.Week)
	case l.result.Closed:
		l.log.Info("recovering closed day", "date", l.date, "records", len(l.result.Records))
		if err := l.store.Rotate(l.day, l.result.Records, false); err != nil {
			return err
		}
		if err := l.store.ResetCurrentDay(); err != nil {
			return err
		}
		l.clear()
	}
	return nil
}

// SubmitOption tunes a single Submit call.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	overwrite bool
}

// WithOverwrite lets a day-closing action replace an already finalized
// entry for the same date instead of failing with RotationConflict.
func WithOverwrite() SubmitOption {
	return func(c *submitConfig) { c.overwrite = true }
}

// Submit validates a and applies it to the open day. An end_day rotates the
// day into its week file; a start_day on a later date first closes the open
// day the same way.
func (l *Ledger) Submit(a model.Action, opts ...SubmitOption) (normalize.Result, error) {
	if l.lock == nil {
		return normalize.Result{}, ErrReadOnly
	}
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	a = a.InLocation(l.loc)
	if a.Issue != "" {
		a.Issue = model.NormalizeIssue(a.Issue)
	}
	if err := a.Validate(); err != nil {
		return normalize.Result{}, err
	}

	date := timecalc.DateKey(a.At)
	switch {
	case l.date == "":
		if a.Kind != model.StartDay && !a.IsFixed() {
			return normalize.Result{}, apperr.New(apperr.CodeInvalidTransition,
				"%s at %s: no day in progress", a.Kind, a.At.Format(time.DateTime))
		}
		plan, err := l.planDay(a, nil)
		if err != nil {
			return normalize.Result{}, err
		}
		return l.startDay(plan)

	case date < l.date:
		return normalize.Result{}, apperr.New(apperr.CodeOutOfOrderAction,
			"%s at %s precedes the open day %s", a.Kind, a.At.Format(time.DateTime), l.date)

	case date > l.date:
		if a.Kind != model.StartDay {
			return normalize.Result{}, apperr.New(apperr.CodeInvalidInstant,
				"%s at %s lies outside the open day %s; start a new day first",
				a.Kind, a.At.Format(time.DateTime), l.date)
		}
		final, err := l.prepareClose(cfg.overwrite)
		if err != nil {
			return normalize.Result{}, err
		}
		plan, err := l.planDay(a, final.Records)
		if err != nil {
			return normalize.Result{}, err
		}
		l.warnMissingEnd(final)
		if err := l.rotate(final.Records, cfg.overwrite); err != nil {
			return normalize.Result{}, err
		}
		return l.startDay(plan)
	}

	if a.IsFixed() {
		if err := l.result.AdmitFixed(a, l.policy); err != nil {
			return normalize.Result{}, err
		}
	}
	log := actionlog.New(l.actions.All())
	if err := log.Append(a); err != nil {
		return normalize.Result{}, err
	}
	res, err := l.normalize(log.All(), normalize.Options{})
	if err != nil {
		return normalize.Result{}, err
	}

	if res.Closed {
		if err := l.checkRotation(l.day, cfg.overwrite); err != nil {
			return normalize.Result{}, err
		}
		if err := l.commit(log.All(), res); err != nil {
			return normalize.Result{}, err
		}
		if err := l.rotate(res.Records, cfg.overwrite); err != nil {
			return normalize.Result{}, err
		}
		return res, nil
	}

	if err := l.commit(log.All(), res); err != nil {
		return normalize.Result{}, err
	}
	l.log.Debug("action applied", "kind", a.Kind, "at", a.At, "issue", a.Issue, "phase", res.Phase)
	return res, nil
}

// dayPlan is a new day whose first action was validated but not yet written.
type dayPlan struct {
	day       time.Time
	date      string
	watermark time.Time
	actions   []model.Action
	result    normalize.Result
}

// planDay validates a as the first action of its day. closing holds the
// records of the open day about to be rotated, which count toward the
// watermark although they are not in the week file yet.
func (l *Ledger) planDay(a model.Action, closing []model.BookingRecord) (dayPlan, error) {
	day := timecalc.StartOfDay(a.At)
	date := timecalc.DateKey(day)
	if err := l.checkNotFinalized(date); err != nil {
		return dayPlan{}, err
	}
	watermark, err := l.watermarkFor(day)
	if err != nil {
		return dayPlan{}, err
	}
	if len(closing) > 0 && timecalc.ISOWeekLabel(l.day) == timecalc.ISOWeekLabel(day) {
		for _, r := range closing {
			if r.End.After(watermark) {
				watermark = r.End
			}
		}
	}

	log := actionlog.New(nil)
	if err := log.Append(a); err != nil {
		return dayPlan{}, err
	}
	res, err := normalize.Normalize(log.All(), normalize.Options{Policy: l.policy, Watermark: watermark})
	if err != nil {
		return dayPlan{}, err
	}
	return dayPlan{day: day, date: date, watermark: watermark, actions: log.All(), result: res}, nil
}

// startDay makes the planned day the open day and persists it.
func (l *Ledger) startDay(p dayPlan) (normalize.Result, error) {
	prev := *l
	l.date = p.date
	l.day = p.day
	l.watermark = p.watermark
	if err := l.commit(p.actions, p.result); err != nil {
		*l = prev
		return normalize.Result{}, err
	}
	l.log.Info("day started", "date", p.date, "kind", p.actions[0].Kind)
	return p.result, nil
}

// Retract undoes the most recent action of the open day. Retracting the
// only action discards the day.
func (l *Ledger) Retract() (model.Action, error) {
	if l.lock == nil {
		return model.Action{}, ErrReadOnly
	}
	if l.date == "" {
		return model.Action{}, apperr.New(apperr.CodeNothingToRetract, "no day in progress")
	}
	log := actionlog.New(l.actions.All())
	last, err := log.Retract()
	if err != nil {
		return model.Action{}, err
	}
	if log.Len() == 0 {
		if err := l.store.ResetCurrentDay(); err != nil {
			return model.Action{}, err
		}
		l.log.Info("day discarded", "date", l.date)
		l.clear()
		return last, nil
	}
	res, err := l.normalize(log.All(), normalize.Options{})
	if err != nil {
		return model.Action{}, err
	}
	if err := l.commit(log.All(), res); err != nil {
		return model.Action{}, err
	}
	return last, nil
}

// Finalize closes the open day without an end_day: any running task ends
// at the latest action and the records move to the week file.
func (l *Ledger) Finalize(overwrite bool) (normalize.Result, error) {
	if l.lock == nil {
		return normalize.Result{}, ErrReadOnly
	}
	if l.date == "" {
		return normalize.Result{}, apperr.New(apperr.CodeInvalidTransition, "finalize: no day in progress")
	}
	res, err := l.normalize(l.actions.All(), normalize.Options{Finalize: true})
	if err != nil {
		return normalize.Result{}, err
	}
	if err := l.checkRotation(l.day, overwrite); err != nil {
		return normalize.Result{}, err
	}
	if err := l.rotate(res.Records, overwrite); err != nil {
		return normalize.Result{}, err
	}
	return res, nil
}

// Amend applies book_fixed corrections to an already finalized day and
// rewrites its week entry. Corrections always overwrite the spans they
// cover. Rewriting finalized bookings requires overwrite.
func (l *Ledger) Amend(date time.Time, corrections []model.Action, overwrite bool) (normalize.Result, error) {
	if l.lock == nil {
		return normalize.Result{}, ErrReadOnly
	}
	day := timecalc.StartOfDay(date.In(l.loc))
	key := timecalc.DateKey(day)
	if !overwrite {
		return normalize.Result{}, apperr.New(apperr.CodeRotationConflict,
			"amending %s rewrites finalized bookings; overwrite is required", key)
	}
	wf, err := l.store.WeekFor(day)
	if err != nil {
		return normalize.Result{}, err
	}
	entry, ok := wf.Day(key)
	if !ok {
		return normalize.Result{}, apperr.New(apperr.CodeInvalidInstant, "no finalized bookings for %s", key)
	}

	actions := make([]model.Action, 0, len(entry.Records)+len(corrections))
	for _, r := range entry.Records {
		actions = append(actions, model.NewBookFixed(r.Interval(), model.IssueRef{ID: r.Issue, Comment: r.Comment}).InLocation(l.loc))
	}
	for _, c := range corrections {
		c = c.InLocation(l.loc)
		c.Issue = model.NormalizeIssue(c.Issue)
		if !c.IsFixed() {
			return normalize.Result{}, apperr.New(apperr.CodeInvalidTransition, "amend accepts only book_fixed, got %s", c.Kind)
		}
		if err := c.Validate(); err != nil {
			return normalize.Result{}, err
		}
		if timecalc.DateKey(c.At) != key {
			return normalize.Result{}, apperr.New(apperr.CodeInvalidInstant, "correction %s lies outside %s", c.Span(), key)
		}
		actions = append(actions, c)
	}

	res, err := normalize.Normalize(actions, normalize.Options{Policy: normalize.Overwrite})
	if err != nil {
		return normalize.Result{}, err
	}
	if err := l.store.Rotate(day, res.Records, true); err != nil {
		return normalize.Result{}, err
	}
	l.log.Info("day amended", "date", key, "corrections", len(corrections), "records", len(res.Records))
	return res, nil
}

// Date returns the open day's key, or "" when no day is open.
func (l *Ledger) Date() string {
	return l.date
}

// Actions returns the open day's action log.
func (l *Ledger) Actions() []model.Action {
	return l.actions.All()
}

// Records returns the open day's completed records.
func (l *Ledger) Records() []model.BookingRecord {
	return append([]model.BookingRecord(nil), l.result.Records...)
}

// Inconsistencies returns the warnings of the open day's last normalization.
func (l *Ledger) Inconsistencies() []normalize.Inconsistency {
	return append([]normalize.Inconsistency(nil), l.result.Inconsistencies...)
}

// Location returns the zone days are cut in.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

func (l *Ledger) normalize(actions []model.Action, opts normalize.Options) (normalize.Result, error) {
	opts.Policy = l.policy
	opts.Watermark = l.watermark
	return normalize.Normalize(actions, opts)
}

// begin makes day the open day.
func (l *Ledger) begin(day time.Time) error {
	watermark, err := l.watermarkFor(day)
	if err != nil {
		return err
	}
	l.date = timecalc.DateKey(day)
	l.day = day
	l.watermark = watermark
	l.actions = actionlog.New(nil)
	l.result = normalize.Result{}
	return nil
}

// watermarkFor returns the latest end among records already finalized for
// earlier days of day's week. No timed action of day may precede it.
func (l *Ledger) watermarkFor(day time.Time) (time.Time, error) {
	wf, err := l.store.WeekFor(day)
	if err != nil {
		return time.Time{}, err
	}
	date := timecalc.DateKey(day)
	var watermark time.Time
	for _, d := range wf.Days {
		if d.Date >= date {
			continue
		}
		for _, r := range d.Records {
			if r.End.After(watermark) {
				watermark = r.End
			}
		}
	}
	return watermark, nil
}

func (l *Ledger) clear() {
	l.date = ""
	l.day = time.Time{}
	l.watermark = time.Time{}
	l.actions = actionlog.New(nil)
	l.result = normalize.Result{}
}

// commit persists the open day and then adopts it in memory.
func (l *Ledger) commit(actions []model.Action, res normalize.Result) error {
	df := model.DayFile{Date: l.date, Actions: actions, Records: res.Records}
	if df.Records == nil {
		df.Records = []model.BookingRecord{}
	}
	if err := l.store.SaveCurrentDay(df); err != nil {
		return err
	}
	l.actions = actionlog.New(actions)
	l.result = res
	return nil
}

// prepareClose finalizes the open day in memory and checks that it may be
// rotated. Nothing is written.
func (l *Ledger) prepareClose(overwrite bool) (normalize.Result, error) {
	res, err := l.normalize(l.actions.All(), normalize.Options{Finalize: true})
	if err != nil {
		return normalize.Result{}, err
	}
	if err := l.checkRotation(l.day, overwrite); err != nil {
		return normalize.Result{}, err
	}
	return res, nil
}

func (l *Ledger) warnMissingEnd(res normalize.Result) {
	for _, w := range res.Inconsistencies {
		if w.Kind == normalize.MissingDayEnd {
			l.log.Warn("closing day without end_day", "date", l.date, "at", w.To)
		}
	}
}

// rotate writes records as the open day's finalized entry and discards the
// current-day file.
func (l *Ledger) rotate(records []model.BookingRecord, overwrite bool) error {
	if err := l.store.Rotate(l.day, records, overwrite); err != nil {
		return err
	}
	if err := l.store.ResetCurrentDay(); err != nil {
		return err
	}
	l.log.Info("day finalized", "date", l.date, "week", timecalc.ISOWeekLabel(l.day), "records", len(records))
	l.clear()
	return nil
}

func (l *Ledger) checkRotation(day time.Time, overwrite bool) error {
	if overwrite {
		return nil
	}
	return l.checkNotFinalized(timecalc.DateKey(day))
}

func (l *Ledger) checkNotFinalized(date string) error {
	day, err := timecalc.ParseDate(date, l.loc)
	if err != nil {
		return err
	}
	wf, err := l.store.WeekFor(day)
	if err != nil {
		return err
	}
	if _, ok := wf.Day(date); ok {
		return apperr.New(apperr.CodeRotationConflict,
			"week %s already contains finalized bookings for %s", wf.Week, date)
	}
	return nil
}
