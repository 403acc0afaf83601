package report_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/booking-ledger/internal/model"
	"github.com/Tiliavir/booking-ledger/internal/normalize"
	"github.com/Tiliavir/booking-ledger/internal/report"
	"github.com/Tiliavir/booking-ledger/internal/storage"
)

var day = time.Date(2022, 1, 6, 0, 0, 0, 0, time.UTC)

func hm(d time.Time, h, m int) time.Time {
	return d.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func rec(d time.Time, from, to int, issue, comment string) model.BookingRecord {
	return model.BookingRecord{
		Start:   hm(d, from/100, from%100),
		End:     hm(d, to/100, to%100),
		Issue:   issue,
		Comment: comment,
	}
}

func sample() []model.BookingRecord {
	return []model.BookingRecord{
		rec(day, 845, 900, "I-15", "some meeting+org"),
		rec(day, 900, 1200, "ISSUE-12345", "other"),
		rec(day, 1245, 1700, "A-51", "the afternoon"),
	}
}

func TestRenderTimeCockpit(t *testing.T) {
	var buf bytes.Buffer
	if err := report.RenderTimeCockpit(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	want := `2022-01-06|08:45|09:00|I-15|some meeting+org
2022-01-06|09:00|12:00|ISSUE-12345|other
2022-01-06|12:45|17:00|A-51|the afternoon
`
	if buf.String() != want {
		t.Errorf("RenderTimeCockpit =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestTotals(t *testing.T) {
	records := append(sample(), rec(day, 1700, 1730, "I-15", ""))
	groups := report.Totals(records, report.GroupByIssue)
	want := []report.Group{
		{Issue: "A-51", Total: 4*time.Hour + 15*time.Minute},
		{Issue: "I-15", Total: 45 * time.Minute},
		{Issue: "ISSUE-12345", Total: 3 * time.Hour},
	}
	if len(groups) != len(want) {
		t.Fatalf("Totals = %+v", groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("group %d = %+v, want %+v", i, groups[i], want[i])
		}
	}

	all := report.Totals(records, report.GroupByNone)
	if len(all) != 1 || all[0].Total != 8*time.Hour {
		t.Errorf("GroupByNone = %+v, want single 8h group", all)
	}
}

func TestBreaks(t *testing.T) {
	info := report.Breaks(sample())
	if info.Work != 7*time.Hour+30*time.Minute {
		t.Errorf("Work = %v", info.Work)
	}
	if info.Break != 45*time.Minute {
		t.Errorf("Break = %v", info.Break)
	}
	if len(info.Breaks) != 1 || !info.Breaks[0].Start.Equal(hm(day, 12, 0)) {
		t.Errorf("Breaks = %v", info.Breaks)
	}

	// The night between two days is not a break.
	next := day.AddDate(0, 0, 1)
	two := report.Breaks([]model.BookingRecord{rec(day, 900, 1700, "A-1", ""), rec(next, 900, 1700, "A-1", "")})
	if two.Break != 0 {
		t.Errorf("overnight Break = %v, want 0", two.Break)
	}
}

func TestRound(t *testing.T) {
	records := []model.BookingRecord{
		rec(day, 852, 900, "I-15", ""),
		rec(day, 900, 1203, "ISSUE-12345", ""),
		rec(day, 1244, 1701, "A-51", ""),
	}
	got := report.Round(records, 15*time.Minute)
	want := []model.BookingRecord{
		rec(day, 845, 900, "I-15", ""),
		rec(day, 900, 1200, "ISSUE-12345", ""),
		rec(day, 1245, 1700, "A-51", ""),
	}
	assertRecords(t, got, want)
}

func TestRoundCompensatesError(t *testing.T) {
	// Three 37-minute bookings round to 30 each, losing 21 minutes; one
	// unit is given back to the last booking.
	records := []model.BookingRecord{
		rec(day, 900, 937, "A-1", ""),
		rec(day, 937, 1014, "A-2", ""),
		rec(day, 1014, 1051, "A-3", ""),
	}
	got := report.Round(records, 15*time.Minute)
	want := []model.BookingRecord{
		rec(day, 900, 930, "A-1", ""),
		rec(day, 930, 1000, "A-2", ""),
		rec(day, 1000, 1045, "A-3", ""),
	}
	assertRecords(t, got, want)
}

func TestRoundShortBookingKeepsOneUnit(t *testing.T) {
	got := report.Round([]model.BookingRecord{rec(day, 900, 903, "A-1", "")}, 15*time.Minute)
	assertRecords(t, got, []model.BookingRecord{rec(day, 900, 915, "A-1", "")})
}

func TestRoundNeverOverlaps(t *testing.T) {
	records := []model.BookingRecord{
		rec(day, 900, 1008, "A-1", ""),
		rec(day, 1012, 1100, "A-2", ""),
	}
	got := report.Round(records, 15*time.Minute)
	for i := 1; i < len(got); i++ {
		if got[i].Start.Before(got[i-1].End) {
			t.Errorf("record %d starts %v before previous end %v", i, got[i].Start, got[i-1].End)
		}
	}
}

func TestCombine(t *testing.T) {
	records := []model.BookingRecord{
		rec(day, 900, 1000, "A-1", "dev"),
		rec(day, 1000, 1030, "MEETING", "standup"),
		rec(day, 1030, 1200, "A-1", "dev"),
		rec(day, 1200, 1215, "A-1", "review"),
		rec(day, 1300, 1400, "A-1", "dev"),
	}
	got := report.Combine(records)
	want := []model.BookingRecord{
		rec(day, 900, 1130, "A-1", "dev"),
		rec(day, 1130, 1200, "MEETING", "standup"),
		rec(day, 1200, 1215, "A-1", "review"),
		rec(day, 1300, 1400, "A-1", "dev"),
	}
	assertRecords(t, got, want)
}

func TestRenderCSVDurationsMatchTotals(t *testing.T) {
	records := append(sample(), rec(day, 1700, 1723, "I-15", "late, with comma"))
	var buf bytes.Buffer
	if err := report.RenderCSV(&buf, records); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV back: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("rows = %d, want %d", len(rows), len(records)+1)
	}
	if strings.Join(rows[0], ",") != "start,end,issue,duration_minutes,duration,comment" {
		t.Errorf("header = %v", rows[0])
	}
	var sum int64
	for _, row := range rows[1:] {
		n, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			t.Fatal(err)
		}
		sum += n
	}
	total := report.Totals(records, report.GroupByNone)[0].Total
	if sum != int64(total/time.Minute) {
		t.Errorf("CSV minutes = %d, Totals = %v", sum, total)
	}
	if rows[4][5] != "late, with comma" {
		t.Errorf("comment = %q", rows[4][5])
	}
	if rows[4][4] != "00:23:00" {
		t.Errorf("duration = %q", rows[4][4])
	}
}

func TestRenderJSONAndYAML(t *testing.T) {
	var jbuf, ybuf bytes.Buffer
	if err := report.Render(&jbuf, report.FormatJSON, sample()); err != nil {
		t.Fatal(err)
	}
	if err := report.Render(&ybuf, report.FormatYAML, sample()); err != nil {
		t.Fatal(err)
	}

	type row struct {
		Issue   string `json:"issue" yaml:"issue"`
		Minutes int64  `json:"duration_minutes" yaml:"duration_minutes"`
	}
	var fromJSON, fromYAML []row
	if err := json.Unmarshal(jbuf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if err := yaml.Unmarshal(ybuf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("YAML: %v", err)
	}
	if len(fromJSON) != 3 || len(fromYAML) != 3 {
		t.Fatalf("rows json=%d yaml=%d, want 3", len(fromJSON), len(fromYAML))
	}
	for i := range fromJSON {
		if fromJSON[i] != fromYAML[i] {
			t.Errorf("row %d: json %+v != yaml %+v", i, fromJSON[i], fromYAML[i])
		}
	}
	if fromJSON[1].Issue != "ISSUE-12345" || fromJSON[1].Minutes != 180 {
		t.Errorf("row 1 = %+v", fromJSON[1])
	}
}

func TestRenderSummaryMarkdown(t *testing.T) {
	s := report.Summarize(report.ScopeWeek, "2022-W01", sample())
	var buf bytes.Buffer
	if err := report.RenderSummary(&buf, report.FormatMarkdown, s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Week 2022-W01", "ISSUE-12345         3h 0m", "Total               7h 30m", "Breaks              45m"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := report.ParseFormat("yaml", report.FormatCSV, report.FormatYAML); err != nil {
		t.Errorf("yaml rejected: %v", err)
	}
	if _, err := report.ParseFormat("xml", report.FormatCSV, report.FormatYAML); err == nil {
		t.Error("xml accepted")
	}
}

func TestReader(t *testing.T) {
	store := storage.NewStore(t.TempDir())
	monday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	if err := store.Rotate(monday, []model.BookingRecord{rec(monday, 900, 1700, "A-1", "")}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveCurrentDay(model.DayFile{
		Date: "2026-02-24",
		Actions: []model.Action{
			model.NewStartDay(hm(tuesday, 8, 0)),
			model.NewStartWork(hm(tuesday, 9, 0), model.IssueRef{ID: "B-2"}),
		},
	}); err != nil {
		t.Fatal(err)
	}

	r := report.NewReader(store, normalize.Overwrite)
	now := hm(tuesday, 10, 30)

	today, err := r.Day(now)
	if err != nil {
		t.Fatal(err)
	}
	assertRecords(t, today, []model.BookingRecord{rec(tuesday, 900, 1030, "B-2", "")})

	mon, err := r.Day(hm(monday, 12, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(mon) != 1 || mon[0].Issue != "A-1" {
		t.Errorf("Day(monday) = %+v", mon)
	}

	finalized, err := r.Week(now, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(finalized) != 1 {
		t.Errorf("Week without open day = %d records, want 1", len(finalized))
	}
	withOpen, err := r.Week(now, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(withOpen) != 2 || withOpen[1].Issue != "B-2" {
		t.Errorf("Week with open day = %+v", withOpen)
	}

	empty, err := report.NewReader(storage.NewStore(t.TempDir()), normalize.Overwrite).Day(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("Day on empty store = %+v", empty)
	}
}

func assertRecords(t *testing.T, got, want []model.BookingRecord) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d:\n got  %+v\n want %+v", len(got), len(want), got, want)
	}
	for i := range want {
		g, w := got[i], want[i]
		if !g.Start.Equal(w.Start) || !g.End.Equal(w.End) || g.Issue != w.Issue || g.Comment != w.Comment {
			t.Errorf("record %d = %s %s %q, want %s %s %q", i, g.Interval(), g.Issue, g.Comment, w.Interval(), w.Issue, w.Comment)
		}
	}
}

func TestRecentIssues(t *testing.T) {
	records := []model.BookingRecord{
		rec(day, 800, 900, "A-1", "design"),
		rec(day, 900, 1000, "B-2", ""),
		rec(day, 1000, 1100, "A-1", "design"),
		rec(day, 1100, 1200, "A-1", "review"),
	}
	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{"A-1 review", "A-1 design", "B-2 "}},
		{2, []string{"A-1 review", "A-1 design"}},
	}
	for _, tt := range tests {
		got := report.RecentIssues(records, tt.limit)
		var keys []string
		for _, r := range got {
			keys = append(keys, r.Issue+" "+r.Comment)
		}
		if strings.Join(keys, ",") != strings.Join(tt.want, ",") {
			t.Errorf("RecentIssues(limit %d) = %q, want %q", tt.limit, keys, tt.want)
		}
	}
	if got := report.RecentIssues(records, 0); !got[1].LastUsed.Equal(hm(day, 11, 0)) {
		t.Errorf("A-1 design last used %v, want its latest end", got[1].LastUsed)
	}
}

func TestReaderRecent(t *testing.T) {
	store := storage.NewStore(t.TempDir())
	lastWeek := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	monday := lastWeek.AddDate(0, 0, 7)
	tuesday := monday.AddDate(0, 0, 1)

	if err := store.Rotate(lastWeek, []model.BookingRecord{
		rec(lastWeek, 900, 1000, "OLD-1", "archived"),
		rec(lastWeek, 1000, 1100, "A-1", ""),
	}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.Rotate(monday, []model.BookingRecord{rec(monday, 900, 1700, "A-1", "")}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveCurrentDay(model.DayFile{
		Date: "2026-02-24",
		Actions: []model.Action{
			model.NewStartDay(hm(tuesday, 8, 0)),
			model.NewStartWork(hm(tuesday, 9, 0), model.IssueRef{ID: "B-2", Comment: "hotfix"}),
		},
	}); err != nil {
		t.Fatal(err)
	}

	r := report.NewReader(store, normalize.Overwrite)
	got, err := r.Recent(hm(tuesday, 10, 0), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []report.RecentIssue{
		{Issue: "B-2", Comment: "hotfix", LastUsed: hm(tuesday, 10, 0)},
		{Issue: "A-1", LastUsed: hm(monday, 17, 0)},
		{Issue: "OLD-1", Comment: "archived", LastUsed: hm(lastWeek, 10, 0)},
	}
	if len(got) != len(want) {
		t.Fatalf("Recent = %+v", got)
	}
	for i := range want {
		if got[i].Issue != want[i].Issue || got[i].Comment != want[i].Comment || !got[i].LastUsed.Equal(want[i].LastUsed) {
			t.Errorf("Recent[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	limited, err := r.Recent(hm(tuesday, 10, 0), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[1].Issue != "A-1" {
		t.Errorf("Recent(limit 2) = %+v", limited)
	}
}
