package leaderboard

import (
	"sort"

	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/core"
)

// Boards holds one Ranking per metric, in Metrics order.
type Boards []Ranking

// Get returns the ranking for m.
func (b Boards) Get(m Metric) (Ranking, bool) {
	for _, r := range b {
		if r.Metric == m {
			return r, true
		}
	}
	return Ranking{}, false
}

// BuildDepartmentBoards ranks every roster department on each metric using
// the current period's logs, and the previous period's logs for
// most_improved. Ties are broken by department id ascending.
func BuildDepartmentBoards(departments []core.Department, users []core.User, current, previous []core.LogEntry) Boards {
	cur := analytics.Fold(current)
	prev := analytics.Fold(previous)
	heads := analytics.Headcounts(users)

	values := make(map[Metric][]Standing, len(Metrics))
	excluded := make([]core.DepartmentID, 0)
	for _, d := range departments {
		t := cur.Department(d.ID)
		row := func(v float64) Standing { return Standing{DepartmentID: d.ID, Name: d.Name, Value: v} }

		values[MetricDuplexRatio] = append(values[MetricDuplexRatio], row(DuplexRatio(t)))
		values[MetricPaperlessRatio] = append(values[MetricPaperlessRatio], row(PaperlessRatio(t)))
		values[MetricFrugality] = append(values[MetricFrugality], row(analytics.AveragePerUser(t.PaperUsed, heads[d.ID])))
		values[MetricEcoPoints] = append(values[MetricEcoPoints], row(float64(t.EcoPoints)))

		if pct, ok := Improvement(prev.Department(d.ID).PaperUsed, t.PaperUsed); ok {
			values[MetricMostImproved] = append(values[MetricMostImproved], row(pct))
		} else {
			excluded = append(excluded, d.ID)
		}
	}
	sort.Slice(excluded, func(i, j int) bool { return excluded[i] < excluded[j] })

	out := make(Boards, 0, len(Metrics))
	for _, m := range Metrics {
		r := Ranking{Metric: m, Entries: rank(values[m], m.Ascending())}
		if m == MetricMostImproved && len(excluded) > 0 {
			r.Excluded = excluded
		}
		out = append(out, r)
	}
	return out
}

// DuplexRatio is the percentage of consumed paper that was printed
// double-sided, 0 when no paper was used.
func DuplexRatio(t core.Totals) float64 {
	if t.PaperUsed == 0 {
		return 0
	}
	return float64(t.Of(core.DoubleSided).PaperUsed) / float64(t.PaperUsed) * 100
}

// PaperlessRatio is the percentage of reported sheets sent digitally, 0 when
// nothing was reported.
func PaperlessRatio(t core.Totals) float64 {
	if t.Sheets == 0 {
		return 0
	}
	return float64(t.Of(core.Digital).Sheets) / float64(t.Sheets) * 100
}

// Improvement returns the percentage drop in paper use from previous to
// current. It is undefined, and ok is false, when previous is zero.
func Improvement(previous, current int64) (pct float64, ok bool) {
	if previous == 0 {
		return 0, false
	}
	return float64(previous-current) / float64(previous) * 100, true
}

func rank(rows []Standing, ascending bool) []Standing {
	out := make([]Standing, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if ascending {
				return out[i].Value < out[j].Value
			}
			return out[i].Value > out[j].Value
		}
		return out[i].DepartmentID < out[j].DepartmentID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
