package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

// RecentIssue is an issue and comment pair last booked at LastUsed.
type RecentIssue struct {
	Issue    string    `json:"issue" yaml:"issue"`
	Comment  string    `json:"comment" yaml:"comment"`
	LastUsed time.Time `json:"last_used" yaml:"last_used"`
}

// RecentIssues returns the distinct issue and comment pairs of records,
// most recently ended first, at most limit of them. limit <= 0 returns all.
func RecentIssues(records []model.BookingRecord, limit int) []RecentIssue {
	sorted := append([]model.BookingRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].End.After(sorted[j].End) })

	seen := map[[2]string]bool{}
	var out []RecentIssue
	for _, r := range sorted {
		key := [2]string{r.Issue, r.Comment}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, RecentIssue{Issue: r.Issue, Comment: r.Comment, LastUsed: r.End})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Recent returns the recently used issues as of now: the open day first,
// then the week files from newest to oldest until limit pairs are found.
func (r *Reader) Recent(now time.Time, limit int) ([]RecentIssue, error) {
	var records []model.BookingRecord
	open, ok, err := r.open(now)
	if err != nil {
		return nil, err
	}
	if ok {
		records = append(records, open.records...)
	}

	labels, err := r.store.ListWeeks()
	if err != nil {
		return nil, err
	}
	for i := len(labels) - 1; i >= 0; i-- {
		if limit > 0 && len(RecentIssues(records, limit)) == limit {
			break
		}
		wf, err := r.store.LoadWeek(labels[i])
		if err != nil {
			return nil, err
		}
		records = append(records, wf.Records()...)
	}
	return RecentIssues(records, limit), nil
}

// RenderRecent writes issues in format f (md, json or yaml).
func RenderRecent(w io.Writer, f Format, issues []RecentIssue) error {
	if issues == nil {
		issues = []RecentIssue{}
	}
	switch f {
	case FormatJSON:
		return writeJSON(w, issues)
	case FormatYAML:
		return writeYAML(w, issues)
	case FormatMarkdown:
	default:
		return fmt.Errorf("unsupported recent format %q", f)
	}
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "No bookings found.")
		return err
	}
	for _, r := range issues {
		if _, err := fmt.Fprintf(w, "%-20s%-16s%s\n", r.Issue, r.LastUsed.Format("2006-01-02 15:04"), r.Comment); err != nil {
			return err
		}
	}
	return nil
}
