package analytics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func TestActivityMetrics_OnEvent(t *testing.T) {
	metrics := NewActivityMetrics()
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

	entry := core.LogEntry{ID: "l1", UserID: "u1", DepartmentID: "d1", Type: core.SingleSided, Sheets: 10, PaperUsed: 10, EcoPoints: -20, CreatedAt: now}
	metrics.OnEvent(core.NewLogRecorded(entry, -20))
	entry2 := core.LogEntry{ID: "l2", UserID: "u2", DepartmentID: "d1", Type: core.Digital, Sheets: 5, EcoPoints: 10, CreatedAt: now}
	metrics.OnEvent(core.NewLogRecorded(entry2, 10))
	metrics.OnEvent(core.Event{Type: core.EventBadgeUnlocked, UserID: "u2", Badge: "first_log", Time: now})
	metrics.OnEvent(core.Event{Type: core.EventBadgeUnlocked, UserID: "u1", Badge: "first_log", Time: now})
	metrics.OnEvent(core.Event{Type: core.EventTreeWilting, UserID: "u1", Time: now})

	day := now.Format("2006-01-02")
	assert.Equal(t, 2, metrics.DailyActiveUsers(day))
	assert.Equal(t, 2, metrics.WeeklyActiveUsers("2024-W19"))
	assert.Equal(t, 2, metrics.MonthlyActiveUsers("2024-05"))
	assert.Equal(t, int64(-10), metrics.PointsByDay(day))
	assert.Equal(t, int64(10), metrics.PaperByDay(day))
	assert.Equal(t, int64(1), metrics.LogsByType(core.Digital))
	assert.Equal(t, int64(2), metrics.BadgesUnlockedByDay(day))

	snap := metrics.Snapshot(now, 5)
	assert.Equal(t, 2, snap.ActiveUsers)
	assert.Equal(t, int64(1), snap.Wiltings)
	require.Len(t, snap.TopBadges, 1)
	assert.Equal(t, BadgeCount{Badge: "first_log", Count: 2}, snap.TopBadges[0])
}

func TestDAUCountsOnlyLoggers(t *testing.T) {
	d := NewDAU()
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	d.OnEvent(core.NewLogRecorded(core.LogEntry{UserID: "u1", CreatedAt: now}, 0))
	d.OnEvent(core.NewLogRecorded(core.LogEntry{UserID: "u1", CreatedAt: now.Add(time.Hour)}, 0))
	d.OnEvent(core.Event{Type: core.EventBadgeUnlocked, UserID: "u2", Time: now})
	assert.Equal(t, 1, d.Count("2024-05-06"))
}

func TestBridgeFansOut(t *testing.T) {
	a, b := NewDAU(), NewActivityMetrics()
	bridge := NewBridge(a, nil)
	bridge.Add(b)
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	bridge.OnEvent(core.NewLogRecorded(core.LogEntry{UserID: "u1", Type: core.Reuse, Sheets: 2, EcoPoints: 2, CreatedAt: now}, 2))
	assert.Equal(t, 1, a.Count("2024-05-06"))
	assert.Equal(t, int64(2), b.PointsByDay("2024-05-06"))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestPrometheusHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := NewPrometheusHook(reg)
	now := time.Now().UTC()

	hook.OnEvent(core.NewLogRecorded(core.LogEntry{UserID: "u1", DepartmentID: "d1", Type: core.SingleSided, Sheets: 10, PaperUsed: 10, EcoPoints: -20, CreatedAt: now}, -20))
	hook.OnEvent(core.NewLogRecorded(core.LogEntry{UserID: "u1", DepartmentID: "d1", Type: core.Digital, Sheets: 15, EcoPoints: 30, CreatedAt: now}, 10))
	hook.OnEvent(core.NewBadgeUnlocked("u1", "first_log"))
	hook.OnEvent(core.NewGrowthChanged("u1", core.Wilting, core.Growing, 10))
	hook.OnEvent(core.NewTreeWilting("u1", -20, -20))

	assert.Equal(t, 1.0, counterValue(t, reg, "ecohero_logs_total", map[string]string{"type": "Digital", "department": "d1"}))
	assert.Equal(t, 10.0, counterValue(t, reg, "ecohero_paper_used_sheets_total", map[string]string{"department": "d1"}))
	assert.Equal(t, 30.0, counterValue(t, reg, "ecohero_eco_points_total", map[string]string{"kind": "reward"}))
	assert.Equal(t, 20.0, counterValue(t, reg, "ecohero_eco_points_total", map[string]string{"kind": "penalty"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "ecohero_badge_transitions_total", map[string]string{"badge": "first_log", "direction": "unlocked"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "ecohero_growth_changes_total", map[string]string{"tier": "Growing"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "ecohero_tree_wilting_total", nil))
	assert.Equal(t, 10.0, counterValue(t, reg, "ecohero_user_points", map[string]string{"user": "u1"}))
}
