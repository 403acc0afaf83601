package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

// Format is an output format name.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatTimeCockpit Format = "timecockpit"
	FormatJSON        Format = "json"
	FormatYAML        Format = "yaml"
	FormatMarkdown    Format = "md"
)

// ParseFormat checks s against the allowed formats.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	for _, f := range allowed {
		if Format(s) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of %v)", s, allowed)
}

// Render writes records in format f.
func Render(w io.Writer, f Format, records []model.BookingRecord) error {
	records = sortedCopy(records)
	switch f {
	case FormatCSV:
		return RenderCSV(w, records)
	case FormatTimeCockpit:
		return RenderTimeCockpit(w, records)
	case FormatJSON:
		return RenderJSON(w, records)
	case FormatYAML:
		return RenderYAML(w, records)
	case FormatMarkdown:
		return RenderList(w, records)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// RenderCSV writes one row per record with a header. Durations are given in
// whole minutes and as HH:MM:SS.
func RenderCSV(w io.Writer, records []model.BookingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start", "end", "issue", "duration_minutes", "duration", "comment"}); err != nil {
		return err
	}
	for _, r := range records {
		d := r.Duration()
		row := []string{
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339),
			r.Issue,
			strconv.FormatInt(int64(d/time.Minute), 10),
			timecalc.FormatDurationHHMMSS(d),
			r.Comment,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderTimeCockpit writes the pipe-separated import format
// "date|HH:MM|HH:MM|issue|comment", one line per record.
func RenderTimeCockpit(w io.Writer, records []model.BookingRecord) error {
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s|%s|%s|%s|%s\n",
			timecalc.DateKey(r.Start), r.Start.Format("15:04"), r.End.Format("15:04"), r.Issue, r.Comment); err != nil {
			return err
		}
	}
	return nil
}

// exportRecord is the JSON/YAML shape of a record.
type exportRecord struct {
	Date            string `json:"date" yaml:"date"`
	Start           string `json:"start" yaml:"start"`
	End             string `json:"end" yaml:"end"`
	Issue           string `json:"issue" yaml:"issue"`
	Comment         string `json:"comment,omitempty" yaml:"comment,omitempty"`
	DurationMinutes int64  `json:"duration_minutes" yaml:"duration_minutes"`
}

func toExport(records []model.BookingRecord) []exportRecord {
	out := make([]exportRecord, len(records))
	for i, r := range records {
		out[i] = exportRecord{
			Date:            timecalc.DateKey(r.Start),
			Start:           r.Start.Format(time.RFC3339),
			End:             r.End.Format(time.RFC3339),
			Issue:           r.Issue,
			Comment:         r.Comment,
			DurationMinutes: int64(r.Duration() / time.Minute),
		}
	}
	return out
}

// RenderJSON writes records as an indented JSON array.
func RenderJSON(w io.Writer, records []model.BookingRecord) error {
	return writeJSON(w, toExport(records))
}

// RenderYAML writes records as a YAML sequence.
func RenderYAML(w io.Writer, records []model.BookingRecord) error {
	return writeYAML(w, toExport(records))
}

// RenderList prints records grouped by date.
func RenderList(w io.Writer, records []model.BookingRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No bookings found.")
		return err
	}
	var currentDay string
	for _, r := range records {
		day := timecalc.DateKey(r.Start)
		if day != currentDay {
			if _, err := fmt.Fprintln(w, day); err != nil {
				return err
			}
			currentDay = day
		}
		comment := ""
		if r.Comment != "" {
			comment = "  " + r.Comment
		}
		if _, err := fmt.Fprintf(w, "%s  %s%s (%s)\n",
			r.Interval(), r.Issue, comment, timecalc.FormatDuration(r.Duration())); err != nil {
			return err
		}
	}
	return nil
}

// RenderSummary writes s in format f (md, csv, json or yaml).
func RenderSummary(w io.Writer, f Format, s Summary) error {
	switch f {
	case FormatMarkdown:
		return RenderMarkdown(w, s)
	case FormatCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"issue", "duration_minutes"})
		for _, g := range s.Groups {
			_ = cw.Write([]string{g.Issue, strconv.FormatInt(int64(g.Total/time.Minute), 10)})
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		return writeJSON(w, toSummaryView(s))
	case FormatYAML:
		return writeYAML(w, toSummaryView(s))
	}
	return fmt.Errorf("unsupported report format %q", f)
}

// RenderMarkdown prints the per-issue totals as a fixed-width table.
func RenderMarkdown(w io.Writer, s Summary) error {
	title := "Day"
	if s.Scope == ScopeWeek {
		title = "Week"
	}
	const rule = "--------------------------------"
	lines := []string{fmt.Sprintf("%s %s", title, s.Label), rule}
	for _, g := range s.Groups {
		lines = append(lines, fmt.Sprintf("%-20s%s", g.Issue, timecalc.FormatDuration(g.Total)))
	}
	lines = append(lines, rule, fmt.Sprintf("%-20s%s", "Total", timecalc.FormatDuration(s.Total)))
	if s.Break > 0 {
		lines = append(lines, fmt.Sprintf("%-20s%s", "Breaks", timecalc.FormatDuration(s.Break)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

type groupView struct {
	Issue           string `json:"issue" yaml:"issue"`
	DurationMinutes int64  `json:"duration_minutes" yaml:"duration_minutes"`
}

type breakView struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type summaryView struct {
	Scope        Scope       `json:"scope" yaml:"scope"`
	Label        string      `json:"label" yaml:"label"`
	TotalMinutes int64       `json:"total_minutes" yaml:"total_minutes"`
	BreakMinutes int64       `json:"break_minutes" yaml:"break_minutes"`
	Breaks       []breakView `json:"breaks" yaml:"breaks"`
	Issues       []groupView `json:"issues" yaml:"issues"`
}

func toSummaryView(s Summary) summaryView {
	v := summaryView{
		Scope:        s.Scope,
		Label:        s.Label,
		TotalMinutes: int64(s.Total / time.Minute),
		BreakMinutes: int64(s.Break / time.Minute),
		Breaks:       []breakView{},
		Issues:       []groupView{},
	}
	for _, b := range s.Breaks {
		v.Breaks = append(v.Breaks, breakView{Start: b.Start.Format(time.RFC3339), End: b.End.Format(time.RFC3339)})
	}
	for _, g := range s.Groups {
		v.Issues = append(v.Issues, groupView{Issue: g.Issue, DurationMinutes: int64(g.Total / time.Minute)})
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
