package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(time.Duration(tt.seconds) * time.Second)
		if got != tt.want {
			t.Errorf("FormatDuration(%ds) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDurationHHMMSS(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDurationHHMMSS(time.Duration(tt.seconds) * time.Second)
		if got != tt.want {
			t.Errorf("FormatDurationHHMMSS(%ds) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestWeekRange(t *testing.T) {
	// 2026-02-27 is a Friday (week 9).
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	monday, next := timecalc.WeekRange(fri)

	wantMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	wantNext := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	if !monday.Equal(wantMonday) {
		t.Errorf("WeekRange monday = %v, want %v", monday, wantMonday)
	}
	if !next.Equal(wantNext) {
		t.Errorf("WeekRange end = %v, want %v", next, wantNext)
	}

	sun := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	if m, _ := timecalc.WeekRange(sun); !m.Equal(wantMonday) {
		t.Errorf("WeekRange(sunday) monday = %v, want %v", m, wantMonday)
	}
}

func TestISOWeekLabel(t *testing.T) {
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	got := timecalc.ISOWeekLabel(fri)
	if got != "2026-W09" {
		t.Errorf("ISOWeekLabel = %q, want %q", got, "2026-W09")
	}
	// 2027-01-01 is a Friday and belongs to 2026-W53.
	if got := timecalc.ISOWeekLabel(time.Date(2027, 1, 1, 9, 0, 0, 0, time.UTC)); got != "2026-W53" {
		t.Errorf("ISOWeekLabel(2027-01-01) = %q, want %q", got, "2026-W53")
	}
}

func TestISOWeekday(t *testing.T) {
	if got := timecalc.ISOWeekday(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)); got != 7 {
		t.Errorf("ISOWeekday(sunday) = %d, want 7", got)
	}
	if got := timecalc.ISOWeekday(time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)); got != 1 {
		t.Errorf("ISOWeekday(monday) = %d, want 1", got)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	if !timecalc.SameDay(a, b) {
		t.Error("SameDay: expected same day for a and b")
	}
	if timecalc.SameDay(a, c) {
		t.Error("SameDay: expected different day for a and c")
	}
}

func TestParseDate(t *testing.T) {
	d, err := timecalc.ParseDate("2026-02-27", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if timecalc.DateKey(d) != "2026-02-27" {
		t.Errorf("DateKey = %q", timecalc.DateKey(d))
	}
	if _, err := timecalc.ParseDate("27.02.2026", time.UTC); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestRoundTime(t *testing.T) {
	tests := []struct {
		in, want time.Time
	}{
		{time.Date(2026, 2, 27, 8, 7, 0, 0, time.UTC), time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)},
		{time.Date(2026, 2, 27, 8, 8, 0, 0, time.UTC), time.Date(2026, 2, 27, 8, 15, 0, 0, time.UTC)},
		{time.Date(2026, 2, 27, 8, 7, 30, 0, time.UTC), time.Date(2026, 2, 27, 8, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := timecalc.RoundTime(tt.in, 15*time.Minute); !got.Equal(tt.want) {
			t.Errorf("RoundTime(%s) = %s, want %s", tt.in.Format("15:04:05"), got.Format("15:04"), tt.want.Format("15:04"))
		}
	}
	if got := timecalc.Round(52*time.Minute, 0); got != 52*time.Minute {
		t.Errorf("Round with zero resolution = %v", got)
	}
}
