package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Period selects the comparison window used by dashboards and leaderboards.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod accepts week, month or year in any case. An empty string is
// rejected so callers can substitute their own default.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown period %q", core.ErrInvalidInput, s)
}

// Window is a time range. Calendar windows are half-open [Start, End). The
// rolling week is open at Start and closed at End, (Start, End]. A zero End
// means unbounded.
type Window struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end,omitempty"`
	Rolling bool      `json:"rolling,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.Rolling {
		if !t.After(w.Start) {
			return false
		}
		return w.End.IsZero() || !t.After(w.End)
	}
	if t.Before(w.Start) {
		return false
	}
	return w.End.IsZero() || t.Before(w.End)
}

const week = 7 * 24 * time.Hour

// CurrentWindow returns the window the current period covers at now.
// Calendar boundaries are taken in now's location.
func CurrentWindow(p Period, now time.Time) Window {
	switch p {
	case PeriodWeek:
		return Window{Start: now.Add(-week), Rolling: true}
	case PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: start.AddDate(1, 0, 0)}
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	}
}

// PreviousWindow returns the window immediately before the current one.
// For months this is the whole calendar month containing the day before
// the first of the current month.
func PreviousWindow(p Period, now time.Time) Window {
	switch p {
	case PeriodWeek:
		return Window{Start: now.Add(-2 * week), End: now.Add(-week), Rolling: true}
	case PeriodYear:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: start.AddDate(1, 0, 0)}
	default:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		prior := firstOfMonth.AddDate(0, 0, -1)
		start := time.Date(prior.Year(), prior.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: firstOfMonth}
	}
}

// Filter returns the entries inside w, preserving input order.
func Filter(logs []core.LogEntry, w Window) []core.LogEntry {
	out := make([]core.LogEntry, 0)
	for _, l := range logs {
		if w.Contains(l.CreatedAt) {
			out = append(out, l)
		}
	}
	return out
}

// Split partitions logs into the current and previous windows of p. The two
// results are disjoint; entries outside both are dropped.
func Split(logs []core.LogEntry, p Period, now time.Time) (current, previous []core.LogEntry) {
	cur, prev := CurrentWindow(p, now), PreviousWindow(p, now)
	current = make([]core.LogEntry, 0)
	previous = make([]core.LogEntry, 0)
	for _, l := range logs {
		switch {
		case cur.Contains(l.CreatedAt):
			current = append(current, l)
		case prev.Contains(l.CreatedAt):
			previous = append(previous, l)
		}
	}
	return current, previous
}
