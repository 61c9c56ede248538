package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// DAU tracks daily active users.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	if e.Type != core.EventLogRecorded {
		return
	}
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// ActivityMetrics keeps in-process counters of programme activity, keyed by
// UTC day, ISO week and month.
type ActivityMetrics struct {
	mu sync.RWMutex

	dailyActiveUsers   map[string]map[core.UserID]struct{}
	weeklyActiveUsers  map[string]map[core.UserID]struct{}
	monthlyActiveUsers map[string]map[core.UserID]struct{}

	pointsByDay  map[string]int64
	paperByDay   map[string]int64
	logsByType   map[core.UsageType]int64
	sheetsByType map[core.UsageType]int64

	badgesUnlockedByDay  map[string]int64
	badgesUnlockedByType map[core.BadgeID]int64
	badgesLocked         int64

	growthChanges int64
	wiltings      int64
}

func NewActivityMetrics() *ActivityMetrics {
	return &ActivityMetrics{
		dailyActiveUsers:     make(map[string]map[core.UserID]struct{}),
		weeklyActiveUsers:    make(map[string]map[core.UserID]struct{}),
		monthlyActiveUsers:   make(map[string]map[core.UserID]struct{}),
		pointsByDay:          make(map[string]int64),
		paperByDay:           make(map[string]int64),
		logsByType:           make(map[core.UsageType]int64),
		sheetsByType:         make(map[core.UsageType]int64),
		badgesUnlockedByDay:  make(map[string]int64),
		badgesUnlockedByType: make(map[core.BadgeID]int64),
	}
}

func (m *ActivityMetrics) OnEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")

	switch e.Type {
	case core.EventLogRecorded:
		m.trackUserEngagement(e.UserID, day, getWeekKey(e.Time), getMonthKey(e.Time))
		m.pointsByDay[day] += e.Delta
		if e.Log != nil {
			m.paperByDay[day] += e.Log.PaperUsed
			m.logsByType[e.Log.Type]++
			m.sheetsByType[e.Log.Type] += e.Log.Sheets
		}
	case core.EventBadgeUnlocked:
		m.badgesUnlockedByDay[day]++
		m.badgesUnlockedByType[e.Badge]++
	case core.EventBadgeLocked:
		m.badgesLocked++
	case core.EventGrowthChanged:
		m.growthChanges++
	case core.EventTreeWilting:
		m.wiltings++
	}
}

func (m *ActivityMetrics) trackUserEngagement(userID core.UserID, day, week, month string) {
	if m.dailyActiveUsers[day] == nil {
		m.dailyActiveUsers[day] = make(map[core.UserID]struct{})
	}
	m.dailyActiveUsers[day][userID] = struct{}{}

	if m.weeklyActiveUsers[week] == nil {
		m.weeklyActiveUsers[week] = make(map[core.UserID]struct{})
	}
	m.weeklyActiveUsers[week][userID] = struct{}{}

	if m.monthlyActiveUsers[month] == nil {
		m.monthlyActiveUsers[month] = make(map[core.UserID]struct{})
	}
	m.monthlyActiveUsers[month][userID] = struct{}{}
}

// DailyActiveUsers returns the number of users who logged on day (YYYY-MM-DD).
func (m *ActivityMetrics) DailyActiveUsers(day string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dailyActiveUsers[day])
}

// WeeklyActiveUsers returns the number of users who logged in ISO week (YYYY-Www).
func (m *ActivityMetrics) WeeklyActiveUsers(week string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.weeklyActiveUsers[week])
}

// MonthlyActiveUsers returns the number of users who logged in month (YYYY-MM).
func (m *ActivityMetrics) MonthlyActiveUsers(month string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monthlyActiveUsers[month])
}

func (m *ActivityMetrics) PointsByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointsByDay[day]
}

func (m *ActivityMetrics) PaperByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paperByDay[day]
}

func (m *ActivityMetrics) LogsByType(t core.UsageType) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logsByType[t]
}

func (m *ActivityMetrics) BadgesUnlockedByDay(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.badgesUnlockedByDay[day]
}

// Snapshot is a point-in-time summary of the counters for one day.
type Snapshot struct {
	Day            string                   `json:"day"`
	ActiveUsers    int                      `json:"active_users"`
	EcoPoints      int64                    `json:"eco_points"`
	PaperUsed      int64                    `json:"paper_used"`
	BadgesUnlocked int64                    `json:"badges_unlocked"`
	BadgesLocked   int64                    `json:"badges_locked_total"`
	GrowthChanges  int64                    `json:"growth_changes_total"`
	Wiltings       int64                    `json:"wiltings_total"`
	LogsByType     map[core.UsageType]int64 `json:"logs_by_type"`
	TopBadges      []BadgeCount             `json:"top_badges,omitempty"`
}

// BadgeCount pairs a badge with how often it was unlocked.
type BadgeCount struct {
	Badge core.BadgeID `json:"badge"`
	Count int64        `json:"count"`
}

// Snapshot summarises day and lists at most limit badges by unlock count.
func (m *ActivityMetrics) Snapshot(day time.Time, limit int) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := day.UTC().Format("2006-01-02")
	s := Snapshot{
		Day:            key,
		ActiveUsers:    len(m.dailyActiveUsers[key]),
		EcoPoints:      m.pointsByDay[key],
		PaperUsed:      m.paperByDay[key],
		BadgesUnlocked: m.badgesUnlockedByDay[key],
		BadgesLocked:   m.badgesLocked,
		GrowthChanges:  m.growthChanges,
		Wiltings:       m.wiltings,
		LogsByType:     make(map[core.UsageType]int64, len(m.logsByType)),
	}
	for k, v := range m.logsByType {
		s.LogsByType[k] = v
	}
	for b, n := range m.badgesUnlockedByType {
		s.TopBadges = append(s.TopBadges, BadgeCount{Badge: b, Count: n})
	}
	sort.Slice(s.TopBadges, func(i, j int) bool {
		if s.TopBadges[i].Count != s.TopBadges[j].Count {
			return s.TopBadges[i].Count > s.TopBadges[j].Count
		}
		return s.TopBadges[i].Badge < s.TopBadges[j].Badge
	})
	if limit > 0 && len(s.TopBadges) > limit {
		s.TopBadges = s.TopBadges[:limit]
	}
	return s
}

// Helper functions
func getWeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func getMonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
