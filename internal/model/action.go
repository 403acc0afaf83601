package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
)

// ActionKind identifies the variant of an Action.
type ActionKind string

const (
	StartDay          ActionKind = "start_day"
	EndDay            ActionKind = "end_day"
	StartWork         ActionKind = "start_work"
	EndWork           ActionKind = "end_work"
	StartInterruption ActionKind = "start_interruption"
	EndInterruption   ActionKind = "end_interruption"
	BookFixed         ActionKind = "book_fixed"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case StartDay, EndDay, StartWork, EndWork, StartInterruption, EndInterruption, BookFixed:
		return true
	}
	return false
}

// IssueRef identifies a cost unit or issue, with an optional comment.
type IssueRef struct {
	ID      string
	Comment string
}

// Action is a raw, timestamped user event. Actions are immutable once logged.
//
// For BookFixed, [At, End) is the booked interval. DefaultSeconds is only
// meaningful for StartInterruption.
type Action struct {
	Kind           ActionKind `json:"kind"`
	At             time.Time  `json:"at"`
	End            *time.Time `json:"end,omitempty"`
	Issue          string     `json:"issue,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	DefaultSeconds int64      `json:"default_seconds,omitempty"`
}

// NewStartDay returns a StartDay action.
func NewStartDay(at time.Time) Action {
	return Action{Kind: StartDay, At: at}
}

// NewEndDay returns an EndDay action.
func NewEndDay(at time.Time) Action {
	return Action{Kind: EndDay, At: at}
}

// NewStartWork returns a StartWork action.
func NewStartWork(at time.Time, issue IssueRef) Action {
	return Action{Kind: StartWork, At: at, Issue: issue.ID, Comment: issue.Comment}
}

// NewEndWork returns an EndWork action.
func NewEndWork(at time.Time) Action {
	return Action{Kind: EndWork, At: at}
}

// NewStartInterruption returns a StartInterruption action. A zero
// defaultDuration means the interruption only ends explicitly.
func NewStartInterruption(at time.Time, issue IssueRef, defaultDuration time.Duration) Action {
	return Action{
		Kind:           StartInterruption,
		At:             at,
		Issue:          issue.ID,
		Comment:        issue.Comment,
		DefaultSeconds: int64(defaultDuration / time.Second),
	}
}

// NewEndInterruption returns an EndInterruption action.
func NewEndInterruption(at time.Time) Action {
	return Action{Kind: EndInterruption, At: at}
}

// NewBookFixed returns a manual booking of a completed interval.
func NewBookFixed(span Interval, issue IssueRef) Action {
	end := span.End
	return Action{Kind: BookFixed, At: span.Start, End: &end, Issue: issue.ID, Comment: issue.Comment}
}

// IssueRef returns the issue carried by the action.
func (a Action) IssueRef() IssueRef {
	return IssueRef{ID: a.Issue, Comment: a.Comment}
}

// DefaultDuration returns the interruption's default duration, or zero.
func (a Action) DefaultDuration() time.Duration {
	return time.Duration(a.DefaultSeconds) * time.Second
}

// Span returns the booked interval of a BookFixed action.
func (a Action) Span() Interval {
	if a.End == nil {
		return Interval{Start: a.At, End: a.At}
	}
	return Interval{Start: a.At, End: *a.End}
}

// IsFixed reports whether the action is a manual correction that bypasses the stack.
func (a Action) IsFixed() bool {
	return a.Kind == BookFixed
}

// InLocation returns a copy with all instants truncated to seconds and moved to loc.
func (a Action) InLocation(loc *time.Location) Action {
	a.At = a.At.Truncate(time.Second).In(loc)
	if a.End != nil {
		end := a.End.Truncate(time.Second).In(loc)
		a.End = &end
	}
	return a
}

// Validate checks the shape of the action independent of any state.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return apperr.New(apperr.CodeInvalidTransition, "unknown action kind %q", a.Kind)
	}
	if a.At.IsZero() {
		return apperr.New(apperr.CodeInvalidInstant, "%s: missing timestamp", a.Kind)
	}
	switch a.Kind {
	case StartWork, StartInterruption, BookFixed:
		if strings.TrimSpace(a.Issue) == "" {
			return apperr.New(apperr.CodeInvalidIssue, "%s: issue is required", a.Kind)
		}
	}
	if a.DefaultSeconds < 0 {
		return apperr.New(apperr.CodeInvalidInstant, "%s: negative default duration", a.Kind)
	}
	if a.Kind == BookFixed {
		if a.End == nil {
			return apperr.New(apperr.CodeInvalidInstant, "book_fixed: missing end")
		}
		if !a.End.After(a.At) {
			return apperr.New(apperr.CodeZeroDuration, "book_fixed: %s has no duration", a.Span())
		}
	}
	return nil
}

var jiraKey = regexp.MustCompile(`^[A-Za-z]+-[0-9]+$`)

// NormalizeIssue trims the identifier and upper-cases Jira-style keys ("abc-12" → "ABC-12").
func NormalizeIssue(id string) string {
	id = strings.TrimSpace(id)
	if jiraKey.MatchString(id) {
		return strings.ToUpper(id)
	}
	return id
}
