package leaderboard

import (
	"sort"

	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/core"
)

// DefaultTopIndividuals is how many users the individual board shows.
const DefaultTopIndividuals = 3

// Individual is one row of the individual board.
type Individual struct {
	Rank           int               `json:"rank"`
	UserID         core.UserID       `json:"user_id"`
	Name           string            `json:"name"`
	DepartmentID   core.DepartmentID `json:"department_id"`
	DepartmentName string            `json:"department_name"`
	EcoPoints      int64             `json:"eco_points"`
	PaperUsed      int64             `json:"paper_used"`
}

// TopIndividuals ranks users who logged in the current period by summed
// eco-points, highest first, ties broken by user id ascending. At most n
// rows are returned; n <= 0 returns all.
func TopIndividuals(users []core.User, departments []core.Department, current []core.LogEntry, n int) []Individual {
	agg := analytics.Fold(current)
	byID := make(map[core.UserID]core.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	deptNames := make(map[core.DepartmentID]string, len(departments))
	for _, d := range departments {
		deptNames[d.ID] = d.Name
	}

	out := make([]Individual, 0, len(agg.Users))
	for id, t := range agg.Users {
		row := Individual{UserID: id, Name: string(id), EcoPoints: t.EcoPoints, PaperUsed: t.PaperUsed}
		if u, ok := byID[id]; ok {
			row.Name = u.Name
			row.DepartmentID = u.DepartmentID
		}
		row.DepartmentName = deptNames[row.DepartmentID]
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EcoPoints != out[j].EcoPoints {
			return out[i].EcoPoints > out[j].EcoPoints
		}
		return out[i].UserID < out[j].UserID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
