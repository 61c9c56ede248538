package analytics

import (
	"sort"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Aggregate holds per-user and per-department totals for a set of logs.
// Departments are keyed by the department copied into each entry at
// logging time, not by the user's current department.
type Aggregate struct {
	Users       map[core.UserID]core.Totals       `json:"users"`
	Departments map[core.DepartmentID]core.Totals `json:"departments"`
}

// NewAggregate returns an empty aggregate ready for Add.
func NewAggregate() Aggregate {
	return Aggregate{
		Users:       make(map[core.UserID]core.Totals),
		Departments: make(map[core.DepartmentID]core.Totals),
	}
}

// Fold aggregates logs from scratch.
func Fold(logs []core.LogEntry) Aggregate {
	a := NewAggregate()
	for _, l := range logs {
		a.Add(l)
	}
	return a
}

// Add folds one entry in. Use it to keep an aggregate current as logs are
// committed instead of re-folding the full history.
func (a *Aggregate) Add(l core.LogEntry) {
	if a.Users == nil || a.Departments == nil {
		*a = a.cloneInto(NewAggregate())
	}
	u := a.Users[l.UserID]
	u.Add(l)
	a.Users[l.UserID] = u
	d := a.Departments[l.DepartmentID]
	d.Add(l)
	a.Departments[l.DepartmentID] = d
}

// Merge adds other into a. Merging is associative and commutative.
func (a *Aggregate) Merge(other Aggregate) {
	if a.Users == nil || a.Departments == nil {
		*a = a.cloneInto(NewAggregate())
	}
	for id, t := range other.Users {
		u := a.Users[id]
		u.Merge(t)
		a.Users[id] = u
	}
	for id, t := range other.Departments {
		d := a.Departments[id]
		d.Merge(t)
		a.Departments[id] = d
	}
}

func (a Aggregate) cloneInto(dst Aggregate) Aggregate {
	for k, v := range a.Users {
		dst.Users[k] = v
	}
	for k, v := range a.Departments {
		dst.Departments[k] = v
	}
	return dst
}

// User returns the totals for id, zero when the user has no logs.
func (a Aggregate) User(id core.UserID) core.Totals { return a.Users[id] }

// Department returns the totals for id, zero when the department has no logs.
func (a Aggregate) Department(id core.DepartmentID) core.Totals { return a.Departments[id] }

// Equal compares two aggregates by value.
func (a Aggregate) Equal(o Aggregate) bool {
	if len(a.Users) != len(o.Users) || len(a.Departments) != len(o.Departments) {
		return false
	}
	for k, v := range a.Users {
		if !v.Equal(o.Users[k]) {
			return false
		}
	}
	for k, v := range a.Departments {
		if !v.Equal(o.Departments[k]) {
			return false
		}
	}
	return true
}

// Headcounts counts users per department from the roster, so users who never
// logged anything still count toward averages.
func Headcounts(users []core.User) map[core.DepartmentID]int {
	out := make(map[core.DepartmentID]int)
	for _, u := range users {
		out[u.DepartmentID]++
	}
	return out
}

// AveragePerUser divides total by headcount, returning 0 for an empty
// department.
func AveragePerUser(total int64, headcount int) float64 {
	if headcount <= 0 {
		return 0
	}
	return float64(total) / float64(headcount)
}

// DepartmentSummary is the per-department view of one period.
type DepartmentSummary struct {
	Department    core.Department `json:"department"`
	Headcount     int             `json:"headcount"`
	Totals        core.Totals     `json:"totals"`
	PaperPerUser  float64         `json:"paper_per_user"`
	PointsPerUser float64         `json:"points_per_user"`
}

// DepartmentSummaries returns one summary per department in id order.
func DepartmentSummaries(departments []core.Department, users []core.User, agg Aggregate) []DepartmentSummary {
	heads := Headcounts(users)
	out := make([]DepartmentSummary, 0, len(departments))
	for _, d := range departments {
		t := agg.Department(d.ID)
		n := heads[d.ID]
		out = append(out, DepartmentSummary{
			Department:    d,
			Headcount:     n,
			Totals:        t,
			PaperPerUser:  AveragePerUser(t.PaperUsed, n),
			PointsPerUser: AveragePerUser(t.EcoPoints, n),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Department.ID < out[j].Department.ID })
	return out
}

// UserLogs returns the entries belonging to user, preserving order.
func UserLogs(logs []core.LogEntry, user core.UserID) []core.LogEntry {
	out := make([]core.LogEntry, 0)
	for _, l := range logs {
		if l.UserID == user {
			out = append(out, l)
		}
	}
	return out
}

// DepartmentLogs returns the entries logged under department, preserving order.
func DepartmentLogs(logs []core.LogEntry, dept core.DepartmentID) []core.LogEntry {
	out := make([]core.LogEntry, 0)
	for _, l := range logs {
		if l.DepartmentID == dept {
			out = append(out, l)
		}
	}
	return out
}
