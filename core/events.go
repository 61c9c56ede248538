package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventLogRecorded   EventType = "log_recorded"
	EventGrowthChanged EventType = "growth_changed"
	EventTreeWilting   EventType = "tree_wilting"
	EventBadgeUnlocked EventType = "badge_unlocked"
	EventBadgeLocked   EventType = "badge_locked"
)

// EventTypes lists every event type the engine publishes.
var EventTypes = []EventType{EventLogRecorded, EventGrowthChanged, EventTreeWilting, EventBadgeUnlocked, EventBadgeLocked}

// BadgeID names a badge from the badge catalogue.
type BadgeID string

// Event represents an immutable domain event.
type Event struct {
	Type          EventType      `json:"type"`
	Time          time.Time      `json:"time"`
	UserID        UserID         `json:"user_id"`
	DepartmentID  DepartmentID   `json:"department_id,omitempty"`
	Log           *LogEntry      `json:"log,omitempty"`
	Delta         int64          `json:"delta,omitempty"`
	Total         int64          `json:"total,omitempty"`
	Badge         BadgeID        `json:"badge,omitempty"`
	Level         GrowthLevel    `json:"level,omitempty"`
	PreviousLevel GrowthLevel    `json:"previous_level,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func NewLogRecorded(entry LogEntry, total int64) Event {
	e := entry
	return Event{Type: EventLogRecorded, Time: entry.CreatedAt, UserID: entry.UserID, DepartmentID: entry.DepartmentID, Log: &e, Delta: entry.EcoPoints, Total: total}
}

func NewGrowthChanged(user UserID, prev, next GrowthLevel, total int64) Event {
	return Event{Type: EventGrowthChanged, Time: time.Now().UTC(), UserID: user, Level: next, PreviousLevel: prev, Total: total}
}

func NewTreeWilting(user UserID, delta, total int64) Event {
	return Event{Type: EventTreeWilting, Time: time.Now().UTC(), UserID: user, Delta: delta, Total: total}
}

func NewBadgeUnlocked(user UserID, badge BadgeID) Event {
	return Event{Type: EventBadgeUnlocked, Time: time.Now().UTC(), UserID: user, Badge: badge}
}

func NewBadgeLocked(user UserID, badge BadgeID) Event {
	return Event{Type: EventBadgeLocked, Time: time.Now().UTC(), UserID: user, Badge: badge}
}
