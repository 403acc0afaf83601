package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Tiliavir/booking-ledger/internal/normalize"
)

// clockValue is a --at flag. It accepts a time of day, resolved against the
// current day, an offset from now or a full RFC3339 instant.
type clockValue struct {
	raw string
}

var _ pflag.Value = (*clockValue)(nil)

func (c *clockValue) Set(s string) error {
	if s == "" {
		c.raw = ""
		return nil
	}
	if _, err := parseClock(s, time.Now()); err != nil {
		return err
	}
	c.raw = s
	return nil
}

func (c *clockValue) String() string {
	return c.raw
}

func (c *clockValue) Type() string {
	return "time"
}

// resolve returns the flag's instant, or now when the flag is unset.
func (c *clockValue) resolve(now time.Time) time.Time {
	if c.raw == "" {
		return now
	}
	t, err := parseClock(c.raw, now)
	if err != nil {
		return now
	}
	return t
}

func addAtFlag(fs *pflag.FlagSet, v *clockValue) {
	fs.Var(v, "at", "Time of the action (HH:MM, HH:MM:SS, +15m, -1h30m, 0 or RFC3339); default now")
}

// parseClock parses s as a time of day on ref's date, an RFC3339 instant,
// or an offset from ref such as "+15m" or "-1h30m". "0" is ref itself.
func parseClock(s string, ref time.Time) (time.Time, error) {
	if s == "0" {
		return ref, nil
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid offset %q (want e.g. +15m or -1h30m)", s)
		}
		return ref.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(ref.Location()), nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := ref.Date()
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, ref.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM, HH:MM:SS, an offset like -15m or RFC3339)", s)
}

// printWarnings lists the day's inconsistencies.
func printWarnings(w io.Writer, res normalize.Result) {
	for _, inc := range res.Inconsistencies {
		fmt.Fprintf(w, "Warning: %s\n", inc)
	}
}
