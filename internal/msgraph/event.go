package msgraph

import (
	"fmt"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

// Meeting is a calendar event of the day, converted into the booking zone.
type Meeting struct {
	ID      string
	Subject string
	Span    model.Interval
	// Skip names why the meeting is not booked ("cancelled", "all-day",
	// "private", "free" or "incomplete"); empty for bookable meetings.
	Skip string
	// Err is set when the event's times could not be read.
	Err error
}

// graphTime is Graph's dateTimeTimeZone resource.
type graphTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// graphEvent holds the event fields the import looks at.
type graphEvent struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	IsAllDay    bool      `json:"isAllDay"`
	IsCancelled bool      `json:"isCancelled"`
	Sensitivity string    `json:"sensitivity"`
	ShowAs      string    `json:"showAs"`
	Start       graphTime `json:"start"`
	End         graphTime `json:"end"`
}

func (e graphEvent) skipReason() string {
	switch {
	case e.IsCancelled:
		return "cancelled"
	case e.IsAllDay:
		return "all-day"
	case e.Sensitivity == "private":
		return "private"
	case e.ShowAs == "free":
		return "free"
	case e.Start.DateTime == "" || e.End.DateTime == "":
		return "incomplete"
	}
	return ""
}

// meeting converts e. Naive Graph times are read in the event's own zone,
// falling back to tz, and moved to loc.
func (e graphEvent) meeting(tz string, loc *time.Location) Meeting {
	m := Meeting{ID: e.ID, Subject: e.Subject, Skip: e.skipReason()}
	if m.Skip != "" {
		return m
	}
	start, err := parseGraphTime(e.Start, tz)
	if err != nil {
		m.Err = fmt.Errorf("start of %q: %w", e.Subject, err)
		return m
	}
	end, err := parseGraphTime(e.End, tz)
	if err != nil {
		m.Err = fmt.Errorf("end of %q: %w", e.Subject, err)
		return m
	}
	m.Span = model.NewInterval(start.In(loc), end.In(loc))
	return m
}

// Graph sends "2026-02-27T09:00:00.0000000" without an offset when the
// Prefer: outlook.timezone header is set.
var graphLayouts = []string{
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
}

func parseGraphTime(gt graphTime, fallback string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, gt.DateTime); err == nil {
		return t, nil
	}
	loc := time.UTC
	for _, name := range []string{gt.TimeZone, fallback} {
		if name == "" {
			continue
		}
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
			break
		}
	}
	for _, layout := range graphLayouts {
		if t, err := time.ParseInLocation(layout, gt.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", gt.DateTime)
}
