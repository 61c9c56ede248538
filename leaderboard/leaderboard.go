// Package leaderboard ranks departments and individuals. The department and
// individual builders are pure functions over a log snapshot; SkipList keeps
// a live all-time standing that is updated as logs are committed.
package leaderboard

import "github.com/anuphat-bit/Eco-Hero/core"

// Entry represents a user's score on a live board.
type Entry struct {
	User  core.UserID `json:"user_id"`
	Score int64       `json:"score"`
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(user core.UserID, score int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
}

// Metric names a department ranking.
type Metric string

const (
	MetricDuplexRatio    Metric = "duplex_ratio"
	MetricMostImproved   Metric = "most_improved"
	MetricPaperlessRatio Metric = "paperless_ratio"
	MetricFrugality      Metric = "frugality"
	MetricEcoPoints      Metric = "eco_points"
)

// Metrics lists the department boards in display order.
var Metrics = []Metric{MetricDuplexRatio, MetricMostImproved, MetricPaperlessRatio, MetricFrugality, MetricEcoPoints}

// Ascending reports whether lower values rank higher on m.
func (m Metric) Ascending() bool { return m == MetricFrugality }

// Standing is one ranked row of a department board.
type Standing struct {
	Rank         int               `json:"rank"`
	DepartmentID core.DepartmentID `json:"department_id"`
	Name         string            `json:"name"`
	Value        float64           `json:"value"`
}

// Ranking is a complete department board. Excluded lists departments that
// have no defined value for the metric, such as a zero baseline on
// most_improved; they are never given a score.
type Ranking struct {
	Metric   Metric              `json:"metric"`
	Entries  []Standing          `json:"entries"`
	Excluded []core.DepartmentID `json:"excluded,omitempty"`
}

// Top returns the leading entry, if any.
func (r Ranking) Top() (Standing, bool) {
	if len(r.Entries) == 0 {
		return Standing{}, false
	}
	return r.Entries[0], true
}

// Find returns the row for dept.
func (r Ranking) Find(dept core.DepartmentID) (Standing, bool) {
	for _, s := range r.Entries {
		if s.DepartmentID == dept {
			return s, true
		}
	}
	return Standing{}, false
}
