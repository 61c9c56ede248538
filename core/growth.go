package core

import (
	"sort"
	"time"
)

// GrowthLevel is the ordinal vitality tier of a user's tree, 0 to 4.
type GrowthLevel int

const (
	Endangered GrowthLevel = iota
	Wilting
	Growing
	Healthy
	Flourishing
)

var growthNames = [...]string{"Endangered", "Wilting", "Growing", "Healthy", "Flourishing"}

func (l GrowthLevel) String() string {
	if l < Endangered || l > Flourishing {
		return "Unknown"
	}
	return growthNames[l]
}

// LevelFor maps cumulative eco-points to a growth tier.
func LevelFor(points int64) GrowthLevel {
	switch {
	case points > 50:
		return Flourishing
	case points > 10:
		return Healthy
	case points >= 0:
		return Growing
	case points > -50:
		return Wilting
	default:
		return Endangered
	}
}

// IsWilting reports whether a move from prev to next points should be
// surfaced as the tree wilting: the total dropped and is now negative.
func IsWilting(prev, next int64) bool {
	return next < prev && next < 0
}

// TimelineStep is one log replayed against the running point total.
type TimelineStep struct {
	LogID     LogID       `json:"log_id"`
	Type      UsageType   `json:"type"`
	Sheets    int64       `json:"sheets"`
	EcoPoints int64       `json:"eco_points"`
	Total     int64       `json:"total"`
	Level     GrowthLevel `json:"level"`
	Previous  GrowthLevel `json:"previous"`
	Changed   bool        `json:"changed"`
	At        time.Time   `json:"at"`
}

// Timeline replays logs oldest first, accumulating points and marking every
// step where the growth tier changes. The tier before the first log is
// LevelFor(0). The input slice is not modified.
func Timeline(logs []LogEntry) []TimelineStep {
	sorted := make([]LogEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	steps := make([]TimelineStep, 0, len(sorted))
	var total int64
	level := LevelFor(0)
	for _, l := range sorted {
		total += l.EcoPoints
		next := LevelFor(total)
		steps = append(steps, TimelineStep{
			LogID:     l.ID,
			Type:      l.Type,
			Sheets:    l.Sheets,
			EcoPoints: l.EcoPoints,
			Total:     total,
			Level:     next,
			Previous:  level,
			Changed:   next != level,
			At:        l.CreatedAt,
		})
		level = next
	}
	return steps
}
