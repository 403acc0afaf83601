package report

import (
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// Round aligns records to resolution for export. Each contiguous block of
// bookings is handled on its own: its start is rounded, each duration is
// rounded to the nearest unit (never below one unit), and the accumulated
// rounding error is paid back from the last bookings until it is below one
// unit. The block is then laid out without gaps from its rounded start.
func Round(records []model.BookingRecord, resolution time.Duration) []model.BookingRecord {
	if resolution <= 0 {
		return sortedCopy(records)
	}
	var out []model.BookingRecord
	for _, block := range blocks(sortedCopy(records)) {
		rounded := roundBlock(block, resolution)
		if n := len(out); n > 0 && rounded[0].Start.Before(out[n-1].End) {
			rounded = layout(rounded, out[n-1].End, durations(rounded))
		}
		out = append(out, rounded...)
	}
	return out
}

func roundBlock(block []model.BookingRecord, resolution time.Duration) []model.BookingRecord {
	start := timecalc.RoundTime(block[0].Start, resolution)

	durs := make([]time.Duration, len(block))
	var total, rounded time.Duration
	for i, r := range block {
		d := r.Duration()
		total += d
		rd := timecalc.Round(d, resolution)
		if rd == 0 {
			rd = resolution
		}
		durs[i] = rd
		rounded += rd
	}

	roundErr := rounded - total
	for i := len(durs) - 1; i >= 0; i-- {
		if abs(roundErr) < resolution {
			break
		}
		for abs(roundErr) >= resolution && durs[i] > resolution {
			if roundErr > 0 {
				durs[i] -= resolution
				roundErr -= resolution
			} else {
				durs[i] += resolution
				roundErr += resolution
			}
		}
	}
	return layout(block, start, durs)
}

// Combine merges bookings of the same issue and comment within each
// contiguous block. The merged bookings keep the order of their first
// occurrence and are laid out without gaps from the block's start.
func Combine(records []model.BookingRecord) []model.BookingRecord {
	var out []model.BookingRecord
	for _, block := range blocks(sortedCopy(records)) {
		var merged []model.BookingRecord
		var durs []time.Duration
	next:
		for _, r := range block {
			for i, m := range merged {
				if m.SameBooking(r) {
					durs[i] += r.Duration()
					continue next
				}
			}
			merged = append(merged, r)
			durs = append(durs, r.Duration())
		}
		out = append(out, layout(merged, block[0].Start, durs)...)
	}
	return out
}

// blocks splits sorted records into runs where each booking starts exactly
// where the previous one ended.
func blocks(records []model.BookingRecord) [][]model.BookingRecord {
	var out [][]model.BookingRecord
	for i, r := range records {
		if i == 0 || !r.Start.Equal(records[i-1].End) {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], r)
	}
	return out
}

func layout(records []model.BookingRecord, start time.Time, durs []time.Duration) []model.BookingRecord {
	out := make([]model.BookingRecord, len(records))
	cursor := start
	for i, r := range records {
		r.Start = cursor
		r.End = cursor.Add(durs[i])
		cursor = r.End
		out[i] = r
	}
	return out
}

func durations(records []model.BookingRecord) []time.Duration {
	out := make([]time.Duration, len(records))
	for i, r := range records {
		out[i] = r.Duration()
	}
	return out
}

func sortedCopy(records []model.BookingRecord) []model.BookingRecord {
	out := append([]model.BookingRecord(nil), records...)
	model.SortRecords(out)
	return out
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
