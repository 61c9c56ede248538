package engine

import (
	"time"

	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/badges"
	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/leaderboard"
)

// Receipt is returned by RecordUsage.
type Receipt struct {
	Entry  core.LogEntry    `json:"entry"`
	Total  int64            `json:"total"`
	Level  core.GrowthLevel `json:"level"`
	Tier   string           `json:"tier"`
	Events []core.Event     `json:"events"`
}

// Dashboard is the personal view of one user for one period.
type Dashboard struct {
	User       core.User        `json:"user"`
	Department core.Department  `json:"department"`
	Period     analytics.Period `json:"period"`
	Window     analytics.Window `json:"window"`

	Current  core.Totals `json:"current"`
	Previous core.Totals `json:"previous"`
	Lifetime core.Totals `json:"lifetime"`

	TotalPoints int64            `json:"total_points"`
	Level       core.GrowthLevel `json:"level"`
	Tier        string           `json:"tier"`
	Breakdown   core.Breakdown   `json:"breakdown"`
	PaperSaved  int64            `json:"paper_saved"`
	TreesSaved  float64          `json:"trees_saved"`
	TreesUsed   float64          `json:"trees_used"`

	DepartmentAverage float64 `json:"department_average"`
	// Comparison is nil when the department average is zero.
	Comparison *float64 `json:"comparison,omitempty"`

	Badges []badges.Status `json:"badges"`
	Tip    string          `json:"tip"`
}

// LeaderboardView bundles the department boards and the individual top list.
type LeaderboardView struct {
	Period      analytics.Period         `json:"period"`
	Current     analytics.Window         `json:"current"`
	Previous    analytics.Window         `json:"previous"`
	Departments leaderboard.Boards       `json:"departments"`
	Individuals []leaderboard.Individual `json:"individuals"`
}

// AllTimeEntry is one row of the live all-time board.
type AllTimeEntry struct {
	Rank   int         `json:"rank"`
	UserID core.UserID `json:"user_id"`
	Name   string      `json:"name"`
	Points int64       `json:"points"`
	Tier   string      `json:"tier"`
}

// MemberStat is one department member's usage in the period.
type MemberStat struct {
	User    core.User   `json:"user"`
	Current core.Totals `json:"current"`
}

// DepartmentView is the team page of one department.
type DepartmentView struct {
	Summary  analytics.DepartmentSummary `json:"summary"`
	Period   analytics.Period            `json:"period"`
	Previous core.Totals                 `json:"previous"`
	// Improvement is nil when the previous period used no paper.
	Improvement *float64                   `json:"improvement,omitempty"`
	Ranks       map[leaderboard.Metric]int `json:"ranks"`
	Members     []MemberStat               `json:"members"`
}

// HistoryFilter narrows a user's log history. Zero fields do not filter.
// From and To are calendar dates and both are inclusive.
type HistoryFilter struct {
	Type core.UsageType
	From time.Time
	To   time.Time
}

// IntegrityIssue reports a user whose cached total drifted from the log.
type IntegrityIssue struct {
	UserID    core.UserID `json:"user_id"`
	Cached    int64       `json:"cached"`
	FromLogs  int64       `json:"from_logs"`
	LogsCount int64       `json:"logs_count"`
}
