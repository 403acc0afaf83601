// Package report is the read side of the ledger: it loads day and week
// records, aggregates them and renders them in the export formats.
//
// Nothing here mutates a ledger, so readers need no lock. They may observe
// the state before or after a concurrent write, never a mix, because every
// write is an atomic rename.
package report

import (
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/normalize"
	"github.com/Tiliavir/booking-ledger/internal/storage"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// Reader loads records from a Store.
type Reader struct {
	store  *storage.Store
	policy normalize.ConflictPolicy
}

// NewReader returns a Reader over store. policy must match the one the
// writer uses, so that provisional records of the open day agree with what
// finalization will produce.
func NewReader(store *storage.Store, policy normalize.ConflictPolicy) *Reader {
	return &Reader{store: store, policy: policy}
}

// Day returns the records of the day containing now. For the open day this
// includes the running task up to now; a day already finalized is read
// from its week file. A day with neither yields no records.
func (r *Reader) Day(now time.Time) ([]model.BookingRecord, error) {
	open, ok, err := r.open(now)
	if err != nil {
		return nil, err
	}
	if ok && open.date == timecalc.DateKey(now) {
		return open.records, nil
	}
	wf, err := r.store.WeekFor(now)
	if err != nil {
		return nil, err
	}
	if d, found := wf.Day(timecalc.DateKey(now)); found {
		return d.Records, nil
	}
	return []model.BookingRecord{}, nil
}

// Week returns the finalized records of the ISO week containing ref. With
// includeOpen, the open day's provisional records are added when that day
// falls into the week and is not finalized yet.
func (r *Reader) Week(ref time.Time, includeOpen bool) ([]model.BookingRecord, error) {
	wf, err := r.store.WeekFor(ref)
	if err != nil {
		return nil, err
	}
	records := wf.Records()
	if includeOpen {
		open, ok, err := r.open(ref)
		if err != nil {
			return nil, err
		}
		if ok && open.week == wf.Week {
			if _, finalized := wf.Day(open.date); !finalized {
				records = append(records, open.records...)
			}
		}
	}
	model.SortRecords(records)
	return records, nil
}

type openDay struct {
	date    string
	week    string
	records []model.BookingRecord
}

// open normalizes the current-day file as of now.
func (r *Reader) open(now time.Time) (openDay, bool, error) {
	df, err := r.store.LoadCurrentDay()
	if err != nil {
		return openDay{}, false, err
	}
	if df.IsEmpty() {
		return openDay{}, false, nil
	}
	day, err := timecalc.ParseDate(df.Date, now.Location())
	if err != nil {
		return openDay{}, false, err
	}
	res, err := normalize.Normalize(df.Actions, normalize.Options{Policy: r.policy, AsOf: now})
	if err != nil {
		return openDay{}, false, err
	}
	records := res.Records
	if timecalc.SameDay(day, now) {
		records = res.WithOpen(now)
	}
	return openDay{date: df.Date, week: timecalc.ISOWeekLabel(day), records: records}, true, nil
}
