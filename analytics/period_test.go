package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func logAt(t *testing.T, id string, at time.Time) core.LogEntry {
	t.Helper()
	e, err := core.NewLogEntry(core.LogID(id), core.User{ID: "u1", DepartmentID: "d1"}, core.Digital, 1, at)
	require.NoError(t, err)
	return e
}

func ids(logs []core.LogEntry) []string {
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, string(l.ID))
	}
	return out
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Month ")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)
	_, err = ParsePeriod("decade")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = ParsePeriod("")
	assert.Error(t, err)
}

func TestSplitWeekIsRolling(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	logs := []core.LogEntry{
		logAt(t, "now", now),
		logAt(t, "edge7", now.Add(-7*24*time.Hour)),              // previous, closed end
		logAt(t, "just-in", now.Add(-7*24*time.Hour+time.Second)), // current
		logAt(t, "edge14", now.Add(-14*24*time.Hour)),            // excluded, open start
		logAt(t, "prev", now.Add(-10*24*time.Hour)),
		logAt(t, "old", now.Add(-30*24*time.Hour)),
	}
	cur, prev := Split(logs, PeriodWeek, now)
	assert.Equal(t, []string{"now", "just-in"}, ids(cur))
	assert.Equal(t, []string{"edge7", "prev"}, ids(prev))
}

func TestSplitMonthUsesCalendarMonths(t *testing.T) {
	now := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	logs := []core.LogEntry{
		logAt(t, "mar1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		logAt(t, "feb29", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)),
		logAt(t, "feb1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		logAt(t, "jan31", time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)),
		logAt(t, "mar-last-year", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)),
	}
	cur, prev := Split(logs, PeriodMonth, now)
	assert.Equal(t, []string{"mar1"}, ids(cur))
	assert.Equal(t, []string{"feb29", "feb1"}, ids(prev))
}

func TestPreviousMonthAcrossYearBoundary(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	w := PreviousWindow(PeriodMonth, now)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.End)
}

func TestSplitYear(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	logs := []core.LogEntry{
		logAt(t, "y24", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		logAt(t, "y23", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)),
		logAt(t, "y22", time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)),
	}
	cur, prev := Split(logs, PeriodYear, now)
	assert.Equal(t, []string{"y24"}, ids(cur))
	assert.Equal(t, []string{"y23"}, ids(prev))
}

func TestCalendarWindowsFollowLocation(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	now := time.Date(2024, 4, 1, 3, 0, 0, 0, bangkok) // still March 31 in UTC
	entry := logAt(t, "early-april", time.Date(2024, 3, 31, 20, 30, 0, 0, time.UTC))
	cur, prev := Split([]core.LogEntry{entry}, PeriodMonth, now)
	assert.Len(t, cur, 1)
	assert.Empty(t, prev)
}

func TestSplitEmpty(t *testing.T) {
	cur, prev := Split(nil, PeriodMonth, time.Now())
	assert.NotNil(t, cur)
	assert.NotNil(t, prev)
	assert.Empty(t, cur)
	assert.Empty(t, prev)
}
